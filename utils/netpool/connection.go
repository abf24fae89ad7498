package netpool

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frankli0324/go-shred/utils/nettools"
)

type conn struct {
	conn     net.Conn
	p        *Pool
	isClosed uint32
	lastIdle time.Time

	closeOnce sync.Once
}

func (c *conn) Available() bool {
	return atomic.LoadUint32(&c.isClosed) == 0
}

func (c *conn) Raw() net.Conn {
	return c.conn
}

// a failed read or write leaves the stream in an unknown state, so the
// connection is never handed out again
func (c *conn) Write(p []byte) (n int, err error) {
	n, err = c.conn.Write(p)
	if err != nil {
		c.Close()
	}
	return
}

func (c *conn) Read(p []byte) (n int, err error) {
	n, err = c.conn.Read(p)
	if err != nil {
		c.Close()
	}
	return
}

func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
		atomic.StoreUint32(&c.isClosed, 1)
		if c.p != nil {
			c.p.free()
		}
	})
	return err
}

// Release hands the connection back to its pool for reuse.
func (c *conn) Release() {
	if c.p == nil {
		c.Close()
		return
	}
	c.p.release(c)
}

// stale reports whether an idle connection was closed or written to by the
// peer while sitting in the pool.
func (c *conn) stale(maxIdle time.Duration) bool {
	if !c.Available() {
		return true
	}
	if maxIdle != 0 && time.Since(c.lastIdle) > maxIdle {
		return true
	}
	return nettools.Readable(c.conn)
}
