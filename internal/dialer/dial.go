package dialer

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/frankli0324/go-shred/internal/http"
	"github.com/frankli0324/go-shred/utils/netpool"
)

var defaultPool = netpool.NewGroup(100, 80)

var zeroDialer net.Dialer
var customDnsDialer = net.Dialer{
	Resolver: &customServerResolver,
}

// poolKey separates connections that must not be shared: a connection made
// without certificate verification is never handed to a strict hop.
type poolKey struct {
	addr   string
	strict bool
	proxy  string
}

func (d *CoreDialer) Dial(ctx context.Context, p *http.Params) (netpool.Conn, error) {
	proxy, err := d.proxyFor(ctx, p)
	if err != nil {
		return nil, err
	}
	key := poolKey{addr: p.Addr(), strict: p.SSLStrict}
	if proxy != nil {
		key.proxy = proxy.String()
	}
	if p.Scheme == "https" {
		if c := d.registry().get(key); c != nil {
			return c, nil
		}
	}

	agent := p.Agent
	if agent == nil {
		agent = d.ConnPool
	}
	if agent == nil {
		agent = defaultPool
	}
	conn, err := agent.Connect(ctx, key, func(ctx context.Context) (net.Conn, error) {
		return d.dialHop(ctx, p, proxy)
	})
	if err != nil {
		return nil, err
	}
	if tc, ok := conn.Raw().(*tls.Conn); ok && tc.ConnectionState().NegotiatedProtocol == "h2" {
		return d.registry().negotiate(key, conn) // must succeed since already negotiated h2
	}
	return conn, nil
}

func (d *CoreDialer) dialHop(ctx context.Context, p *http.Params, proxy *url.URL) (conn net.Conn, err error) {
	if proxy != nil {
		conn, err = d.DialContextOverProxy(ctx, p, proxy)
	} else {
		conn, err = d.dialTCP(ctx, d.ResolveConfig, p.Host, strconv.Itoa(portOf(p)), p.SocketTimeout)
	}
	if err != nil {
		return nil, err
	}
	if p.Scheme != "https" {
		return conn, nil
	}
	config := d.TLSConfig.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	config.ServerName = p.Host
	config.InsecureSkipVerify = !p.SSLStrict
	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// dialTCP connects to host:port honouring static hosts, the address family
// and a custom DNS server from cfg.
func (d *CoreDialer) dialTCP(ctx context.Context, cfg *ResolveConfig, host, port string, socketTimeout time.Duration) (net.Conn, error) {
	network, dialer, dialctx, dst := "tcp", zeroDialer, ctx, net.JoinHostPort(host, port)
	if cfg != nil {
		if cfg.Network == "ip4" {
			network = "tcp4"
		} else if cfg.Network == "ip6" {
			network = "tcp6"
		}
		if static, ok := cfg.StaticHosts[host]; ok {
			dst = net.JoinHostPort(static, port)
		}
		if dns := cfg.CustomDNSServer; dns != "" {
			dialctx = dnsServerCtx{dialctx, dns}
			dialer = customDnsDialer
		}
	}
	dialer.Control = sockopts(socketTimeout)
	return dialer.DialContext(dialctx, network, dst)
}

func portOf(p *http.Params) int {
	if p.Port != 0 {
		return p.Port
	}
	return http.DefaultPort(p.Scheme)
}
