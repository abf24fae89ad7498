package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/frankli0324/go-shred/internal/http"
	"github.com/frankli0324/go-shred/utils/netpool"
	"golang.org/x/net/http2"
)

var (
	ErrNoDialer = errors.New("transport: no dialer configured")
	// ErrIdleTimeout is returned when a read or write made no progress
	// within [http.Params.SocketTimeout].
	ErrIdleTimeout = errors.New("transport: connection idle timeout")
)

// Core is the default [http.Transport]: it obtains a stream from Dialer
// and speaks HTTP/1.1 over it, or HTTP/2 when the dialer negotiated it.
type Core struct {
	Dialer http.Dialer
	H1     HTTP1
	H2     H2
}

type h2Conn interface {
	ClientConn() *http2.ClientConn
}

func (t *Core) RoundTrip(ctx context.Context, p *http.Params, trace *http.Trace) (*http.Reply, error) {
	if t.Dialer == nil {
		return nil, ErrNoDialer
	}
	conn, err := t.Dialer.Dial(ctx, p)
	if err != nil {
		return nil, err
	}
	trace.GotConn(conn.Raw())
	if h2, ok := conn.(h2Conn); ok {
		return t.H2.RoundTrip(ctx, h2.ClientConn(), p, trace)
	}

	var rw io.ReadWriter = conn
	if p.SocketTimeout > 0 {
		rw = &idleConn{Conn: conn, timeout: p.SocketTimeout}
	}
	// cancellation interrupts blocking reads and writes by closing the stream
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	fail := func(err error) (*http.Reply, error) {
		stop()
		conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		return nil, err
	}

	if err := t.H1.Write(ctx, rw, p); err != nil {
		return fail(err)
	}
	trace.Wrote()
	reply := &http.Reply{}
	if err := t.H1.Read(ctx, rw, p, reply); err != nil {
		return fail(err)
	}

	reuse := keepAlive(reply)
	raw := reply.Body
	body := &bodyCloser{Reader: raw}
	body.close = func() error {
		raw.Close()
		if !stop() || !reuse || !body.eof {
			return conn.Close()
		}
		if p.SocketTimeout > 0 {
			conn.Raw().SetDeadline(time.Time{})
		}
		conn.Release()
		return nil
	}
	if raw == http.NoBody {
		body.eof = true
	}
	reply.Body = body
	return reply, nil
}

// idleConn aborts reads and writes that make no progress for timeout.
type idleConn struct {
	netpool.Conn
	timeout time.Duration
}

func (c *idleConn) Read(b []byte) (int, error) {
	c.Raw().SetDeadline(time.Now().Add(c.timeout))
	n, err := c.Conn.Read(b)
	return n, idleErr(err)
}

func (c *idleConn) Write(b []byte) (int, error) {
	c.Raw().SetDeadline(time.Now().Add(c.timeout))
	n, err := c.Conn.Write(b)
	return n, idleErr(err)
}

func idleErr(err error) error {
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrIdleTimeout, err)
	}
	return err
}
