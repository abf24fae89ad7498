package netpool

import (
	"context"
	"io"
	"net"
	"sync"
	"time"
)

// Conn is a pooled connection. Close discards it, Release returns it to
// the pool once the exchange on it is complete.
type Conn interface {
	io.ReadWriteCloser
	Release()
	Raw() net.Conn
}

type Pool struct {
	mu   sync.Mutex
	idle []*conn

	connTicket      chan struct{} // one per open connection, idle ones included
	maxIdle         int
	maxIdleDuration time.Duration
}

func NewPool(maxIdle, maxConn uint, maxIdleDuration time.Duration) *Pool {
	return &Pool{
		connTicket:      make(chan struct{}, maxConn),
		maxIdle:         int(maxIdle),
		maxIdleDuration: maxIdleDuration,
	}
}

func (p *Pool) popIdle() *conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 {
		return nil
	}
	c := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return c
}

// Connect reuses an idle connection or dials a new one, waiting for a free
// slot when the pool is at capacity.
func (p *Pool) Connect(ctx context.Context, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	for c := p.popIdle(); c != nil; c = p.popIdle() {
		if c.stale(p.maxIdleDuration) {
			c.Close()
			continue
		}
		return c, nil
	}
	select {
	case p.connTicket <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	nc, err := dial(ctx)
	if err != nil {
		p.free()
		return nil, err
	}
	return &conn{conn: nc, p: p}, nil
}

func (p *Pool) free() {
	select {
	case <-p.connTicket:
	default:
	}
}

func (p *Pool) release(c *conn) {
	if !c.Available() {
		return
	}
	c.lastIdle = time.Now()
	p.mu.Lock()
	if len(p.idle) < p.maxIdle {
		p.idle = append(p.idle, c)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	c.Close()
}

// CloseIdle closes every idle connection.
func (p *Pool) CloseIdle() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, c := range idle {
		c.Close()
	}
}

// Idle counts idle connections.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}
