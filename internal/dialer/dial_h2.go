package dialer

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/frankli0324/go-shred/utils/netpool"
	"golang.org/x/net/http2"
)

var errH2Stream = errors.New("dialer: h2 connections carry streams, not bytes")

// H2Conn is what [CoreDialer.Dial] returns once h2 was negotiated. The
// transport recognizes it by its ClientConn method and sends the request as
// a stream instead of writing bytes to it.
type H2Conn struct {
	cc  *http2.ClientConn
	raw net.Conn
}

func (c *H2Conn) ClientConn() *http2.ClientConn { return c.cc }
func (c *H2Conn) Raw() net.Conn                 { return c.raw }

func (c *H2Conn) Read([]byte) (int, error)  { return 0, errH2Stream }
func (c *H2Conn) Write([]byte) (int, error) { return 0, errH2Stream }

// Close and Release are no-ops: the multiplexed connection outlives a
// single stream and is reaped by the registry.
func (c *H2Conn) Close() error { return nil }
func (c *H2Conn) Release()     {}

type h2Entry struct {
	cc     *http2.ClientConn
	pooled netpool.Conn // holds the pool slot for as long as cc lives
}

type h2Registry struct {
	mu    sync.Mutex
	conns map[poolKey]*h2Entry
	t     http2.Transport
}

func (d *CoreDialer) registry() *h2Registry {
	dialerMu.Lock()
	defer dialerMu.Unlock()
	if d.h2 == nil {
		d.h2 = &h2Registry{conns: map[poolKey]*h2Entry{}}
	}
	return d.h2
}

var dialerMu sync.Mutex

// get returns a live connection for key, reaping a dead one.
func (r *h2Registry) get(key poolKey) *H2Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[key]
	if !ok {
		return nil
	}
	if e.cc.CanTakeNewRequest() {
		return &H2Conn{cc: e.cc, raw: e.pooled.Raw()}
	}
	delete(r.conns, key)
	e.retire()
	return nil
}

// retire lets in-flight streams finish, then frees the pool slot.
func (e *h2Entry) retire() {
	go func() {
		e.cc.Shutdown(context.Background())
		e.pooled.Close()
	}()
}

// negotiate wraps a freshly handshaked TLS connection that agreed on h2.
func (r *h2Registry) negotiate(key poolKey, pooled netpool.Conn) (*H2Conn, error) {
	cc, err := r.t.NewClientConn(pooled.Raw())
	if err != nil {
		pooled.Close()
		return nil, err
	}
	r.mu.Lock()
	if old, ok := r.conns[key]; ok {
		// a concurrent dial won, let the old one drain
		old.retire()
	}
	r.conns[key] = &h2Entry{cc: cc, pooled: pooled}
	r.mu.Unlock()
	return &H2Conn{cc: cc, raw: pooled.Raw()}, nil
}

func (r *h2Registry) closeIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.conns {
		if e.cc.State().StreamsActive == 0 {
			e.cc.Close()
			e.pooled.Close()
			delete(r.conns, k)
		}
	}
}

func (r *h2Registry) retireAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.conns {
		e.retire()
		delete(r.conns, k)
	}
}
