package dialer

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/url"
	"strconv"

	"github.com/frankli0324/go-shred/internal/http"
	"github.com/frankli0324/go-shred/internal/transport"
	"golang.org/x/net/http/httpproxy"
)

type ProxyConfig struct {
	TLSConfig      *tls.Config // the [*tls.Config] to use with proxy, if nil, *[CoreDialer.TLSConfig] will be used
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for dialer for proxy
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

var (
	h1Transport = transport.HTTP1{}
)

// ProxyFromEnvironment tunnels hops through the proxy named by HTTP_PROXY,
// HTTPS_PROXY and NO_PROXY. The environment is read once.
func ProxyFromEnvironment() func(ctx context.Context, p *http.Params) (string, error) {
	proxyFunc := httpproxy.FromEnvironment().ProxyFunc()
	return func(ctx context.Context, p *http.Params) (string, error) {
		u, err := proxyFunc(&url.URL{Scheme: p.Scheme, Host: p.Addr()})
		if err != nil || u == nil {
			return "", err
		}
		return u.String(), nil
	}
}

func (d *CoreDialer) proxyFor(ctx context.Context, p *http.Params) (*url.URL, error) {
	if d.GetProxy == nil {
		return nil, nil
	}
	proxy, err := d.GetProxy(ctx, p)
	if err != nil || proxy == "" {
		return nil, err
	}
	return url.Parse(proxy)
}

// DialContextOverProxy creates a tunnel to the hop's host over an http(s)
// proxy with CONNECT. This part of logic may be reused when wrapping
// *[CoreDialer] into a new custom [http.Dialer]
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote *http.Params, proxy *url.URL) (net.Conn, error) {
	if proxy.Scheme != "http" && proxy.Scheme != "https" { // TODO: socks
		return nil, errors.New("unsupported proxy scheme:" + proxy.Scheme)
	}
	pcfg := d.ProxyConfig
	if pcfg == nil {
		pcfg = &ProxyConfig{}
	}
	port := proxy.Port()
	if port == "" {
		port = strconv.Itoa(http.DefaultPort(proxy.Scheme))
	}

	conn, err := d.dialTCP(ctx, d.ResolveConfig, proxy.Hostname(), port, remote.SocketTimeout)
	if err != nil {
		return nil, err
	}

	if proxy.Scheme == "https" {
		tlsCfg := pcfg.TLSConfig
		if tlsCfg == nil {
			tlsCfg = d.TLSConfig
		}
		tlsCfg = tlsCfg.Clone()
		if tlsCfg == nil {
			tlsCfg = &tls.Config{}
		}
		tlsCfg.ServerName = proxy.Hostname()
		tlsCfg.NextProtos = nil // the tunnel is negotiated in HTTP/1.1
		c := tls.Client(conn, tlsCfg)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		conn = c
	}

	addr := remote.Host
	if pcfg.ResolveLocally {
		dnsCfg := pcfg.ResolveConfig.Merge(d.ResolveConfig)
		if dnsCfg == nil {
			dnsCfg = &ResolveConfig{}
		}
		if res, ok := dnsCfg.StaticHosts[addr]; ok {
			addr = res
		} else {
			ips, err := d.lookup(ctx, dnsCfg, addr)
			if err != nil {
				conn.Close()
				return nil, err
			}
			addr = ips[rand.Intn(len(ips))].String()
		}
	}

	remotePort := strconv.Itoa(portOf(remote))
	connReq := &http.Params{
		Method:     "CONNECT",
		Scheme:     proxy.Scheme,
		Host:       proxy.Hostname(),
		HostHeader: net.JoinHostPort(remote.Host, remotePort),
		Path:       net.JoinHostPort(addr, remotePort),
		Header:     http.Header{},
	}
	if u := proxy.User; u != nil {
		pw, _ := u.Password()
		connReq.Header.Set("Proxy-Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(u.Username()+":"+pw)))
	}
	if err := h1Transport.Write(ctx, conn, connReq); err != nil {
		conn.Close()
		return nil, err
	}
	resp, br := &http.Reply{}, bufio.NewReader(conn)
	if err := h1Transport.Read(ctx, br, connReq, resp); err != nil {
		conn.Close()
		return nil, err
	}
	if resp.StatusCode != 200 {
		s, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		resp.Body.Close()
		conn.Close()
		return nil, fmt.Errorf("proxy server returned error. status:%d, body:%s", resp.StatusCode, string(s))
	}
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// bufferedConn hands out tunnel bytes that arrived along with the CONNECT
// response before reading from the connection again.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.r.Read(b)
}
