package dialer

import (
	"context"
	"crypto/tls"

	"github.com/frankli0324/go-shred/internal/http"
	"github.com/frankli0324/go-shred/utils/netpool"
)

// CoreDialer handles pretty much everything related to the actual connection,
// including tunnelling through a proxy for each request, setting resolvers,
// TLS and HTTP/2 negotiation.
type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use, ServerName and verification are set per hop

	ConnPool *netpool.PoolGroup // used when the hop carries no agent of its own
	// GetProxy returns the proxy to tunnel a hop through, "" dials directly.
	GetProxy    func(ctx context.Context, p *http.Params) (string, error)
	ProxyConfig *ProxyConfig

	h2 *h2Registry
}

// New returns a dialer with its own connection pool that offers h2 over TLS.
func New() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: &ResolveConfig{},
		TLSConfig:     &tls.Config{NextProtos: []string{"h2", "http/1.1"}},
		ConnPool:      netpool.NewGroup(100, 80),
		ProxyConfig:   &ProxyConfig{},
	}
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
		ConnPool:      d.ConnPool.NewEmpty(),
		GetProxy:      d.GetProxy,
		ProxyConfig:   d.ProxyConfig.Clone(),
	}
}

func (d *CoreDialer) Unwrap() http.Dialer {
	return nil
}

// DisableH2 stops offering h2 during TLS negotiation. Connections already
// speaking h2 finish their streams and are closed.
func (d *CoreDialer) DisableH2() {
	cfg := d.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	protos := cfg.NextProtos[:0:0]
	for _, p := range cfg.NextProtos {
		if p != "h2" {
			protos = append(protos, p)
		}
	}
	cfg.NextProtos = protos
	d.TLSConfig = cfg
	d.registry().retireAll()
}

// CloseIdle closes idle keep-alive connections of the dialer's own pool.
func (d *CoreDialer) CloseIdle() {
	if d.ConnPool != nil {
		d.ConnPool.CloseIdle()
	}
	d.registry().closeIdle()
}
