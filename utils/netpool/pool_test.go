package netpool

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 64)
				for {
					n, err := c.Read(buf)
					if err != nil {
						c.Close()
						return
					}
					c.Write(buf[:n])
				}
			}()
		}
	}()
	t.Cleanup(func() { ln.Close() })
	return ln
}

func dialer(addr string, count *int) func(ctx context.Context) (net.Conn, error) {
	return func(ctx context.Context) (net.Conn, error) {
		*count++
		var d net.Dialer
		return d.DialContext(ctx, "tcp", addr)
	}
}

func TestPoolReusesReleased(t *testing.T) {
	ln := listen(t)
	dials := 0
	p := NewPool(2, 4, time.Minute)
	c1, err := p.Connect(context.Background(), dialer(ln.Addr().String(), &dials))
	if err != nil {
		t.Fatal(err)
	}
	c1.Release()
	c2, err := p.Connect(context.Background(), dialer(ln.Addr().String(), &dials))
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	if dials != 1 {
		t.Errorf("expected a single dial, got %d", dials)
	}
	if c1 != c2 {
		t.Error("released connection was not reused")
	}
}

func TestPoolDropsClosed(t *testing.T) {
	ln := listen(t)
	dials := 0
	p := NewPool(2, 4, time.Minute)
	c1, _ := p.Connect(context.Background(), dialer(ln.Addr().String(), &dials))
	c1.Close()
	c1.Release()
	if p.Idle() != 0 {
		t.Fatal("closed connection entered the idle list")
	}
	c2, err := p.Connect(context.Background(), dialer(ln.Addr().String(), &dials))
	if err != nil {
		t.Fatal(err)
	}
	c2.Close()
	if dials != 2 {
		t.Errorf("dials %d", dials)
	}
}

func TestPoolWaitsForSlot(t *testing.T) {
	ln := listen(t)
	dials := 0
	p := NewPool(0, 1, time.Minute)
	c1, err := p.Connect(context.Background(), dialer(ln.Addr().String(), &dials))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Connect(ctx, dialer(ln.Addr().String(), &dials)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected to wait for a slot, got %v", err)
	}
	c1.Close()
	c2, err := p.Connect(context.Background(), dialer(ln.Addr().String(), &dials))
	if err != nil {
		t.Fatal(err)
	}
	c2.Close()
}

func TestPoolFreesSlotOnDialError(t *testing.T) {
	p := NewPool(1, 1, time.Minute)
	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		_, err := p.Connect(context.Background(), func(context.Context) (net.Conn, error) { return nil, boom })
		if !errors.Is(err, boom) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
}

func TestGroupSeparatesKeys(t *testing.T) {
	g := NewGroup(4, 2)
	if g.Get("a:80") == g.Get("b:80") {
		t.Error("distinct keys share a pool")
	}
	if g.Get("a:80") != g.Get("a:80") {
		t.Error("same key returned different pools")
	}
	if g.NewEmpty().Get("a:80") == g.Get("a:80") {
		t.Error("NewEmpty shares pools")
	}
}
