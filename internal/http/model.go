package http

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/frankli0324/go-shred/utils/netpool"
)

// Dialer handles pretty much everything related to the actual connection,
// including tunnelling through proxies, resolving and TLS.
type Dialer interface {
	// Dial returns an abstract stream for writing the request and reading responses.
	// the implementation of this stream could be specific to protocols.
	Dial(ctx context.Context, p *Params) (netpool.Conn, error)
	Unwrap() Dialer
}

// Transport issues a single hop. Implementations must call [Trace.Wrote]
// once the request head and body were handed to the connection and must
// return promptly after ctx is cancelled.
type Transport interface {
	RoundTrip(ctx context.Context, p *Params, t *Trace) (*Reply, error)
}

type TransportFunc func(ctx context.Context, p *Params, t *Trace) (*Reply, error)

func (f TransportFunc) RoundTrip(ctx context.Context, p *Params, t *Trace) (*Reply, error) {
	return f(ctx, p, t)
}

// Params is the record a transport receives for one hop.
type Params struct {
	Scheme string
	Host   string
	Port   int
	Method string
	// Path is the request target: path and query, or the absolute target URL
	// when the hop goes through a forward proxy.
	Path   string
	Header Header
	Body   []byte

	SSLStrict     bool
	Agent         *netpool.PoolGroup // nil means the dialer's own pool
	SocketTimeout time.Duration      // per read/write idle timeout, 0 disables

	// HostHeader overrides the computed authority, used for CONNECT.
	HostHeader string
}

var defaultPorts = map[string]int{
	"http": 80, "https": 443, "socks": 1080,
}

// DefaultPort returns the well-known port for scheme, or 0.
func DefaultPort(scheme string) int {
	return defaultPorts[scheme]
}

func (p *Params) port() int {
	if p.Port != 0 {
		return p.Port
	}
	return DefaultPort(p.Scheme)
}

// Addr is the host:port to connect to.
func (p *Params) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.port()))
}

// Authority is the value of the Host header: the port is omitted when it
// is the scheme's default.
func (p *Params) Authority() string {
	if p.HostHeader != "" {
		return p.HostHeader
	}
	if p.Port == 0 || p.Port == DefaultPort(p.Scheme) {
		if ip := net.ParseIP(p.Host); ip != nil && ip.To4() == nil {
			return "[" + p.Host + "]"
		}
		return p.Host
	}
	return p.Addr()
}

// URL renders the hop as an absolute URL. For proxied hops Path already is one.
func (p *Params) URL() string {
	if len(p.Path) > 0 && p.Path[0] != '/' && p.Method != "CONNECT" {
		return p.Path
	}
	return p.Scheme + "://" + p.Authority() + p.Path
}

// Reply is what a transport returns once the response head is read. Body
// streams the payload and must be closed.
type Reply struct {
	Proto      string
	Status     string
	StatusCode int
	Header     Header

	ContentLength int64
	Body          io.ReadCloser
}

// Trace receives transport progress for one hop. nil funcs are skipped.
type Trace struct {
	Socket  func(net.Conn)
	Written func()
}

func (t *Trace) GotConn(c net.Conn) {
	if t != nil && t.Socket != nil && c != nil {
		t.Socket(c)
	}
}

func (t *Trace) Wrote() {
	if t != nil && t.Written != nil {
		t.Written()
	}
}
