package netpool

import (
	"context"
	"net"
	"sync"
	"time"
)

// PoolGroup keeps one [Pool] per key, usually host:port. It plays the role
// of an http agent: requests sharing a group share keep-alive connections.
type PoolGroup struct {
	sync.RWMutex
	pools map[interface{}]*Pool

	maxConnsPerHost, maxIdlePerHost uint
	MaxIdleDuration                 time.Duration
}

func NewGroup(maxConnsPerHost, maxIdlePerHost uint) *PoolGroup {
	return &PoolGroup{
		pools:           map[interface{}]*Pool{},
		maxConnsPerHost: maxConnsPerHost, maxIdlePerHost: maxIdlePerHost,
		MaxIdleDuration: 90 * time.Second,
	}
}

// NewEmpty returns a group with the same limits and no connections.
func (g *PoolGroup) NewEmpty() *PoolGroup {
	if g == nil {
		return nil
	}
	e := NewGroup(g.maxConnsPerHost, g.maxIdlePerHost)
	e.MaxIdleDuration = g.MaxIdleDuration
	return e
}

func (g *PoolGroup) Get(key interface{}) *Pool {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p
	}
	g.Lock()
	defer g.Unlock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxIdlePerHost, g.maxConnsPerHost, g.MaxIdleDuration)
		g.pools[key] = p
	}
	return p
}

func (g *PoolGroup) Connect(ctx context.Context, key interface{}, dial func(ctx context.Context) (net.Conn, error)) (Conn, error) {
	return g.Get(key).Connect(ctx, dial)
}

func (g *PoolGroup) CloseIdle() {
	g.RLock()
	defer g.RUnlock()
	for _, p := range g.pools {
		p.CloseIdle()
	}
}
