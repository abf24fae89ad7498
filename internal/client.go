package internal

import (
	"context"
	"sync"

	"github.com/frankli0324/go-shred/internal/content"
	"github.com/frankli0324/go-shred/internal/cookie"
	"github.com/frankli0324/go-shred/internal/dialer"
	"github.com/frankli0324/go-shred/internal/http"
	"github.com/frankli0324/go-shred/internal/observability"
	"github.com/frankli0324/go-shred/internal/transport"
	"github.com/frankli0324/go-shred/utils/netpool"
	"github.com/rs/zerolog"
)

type Handler = func(ctx context.Context, p *http.Params, t *http.Trace) (*http.Reply, error)
type Middleware func(next Handler) Handler

// Config holds the client-wide settings. The zero value is usable.
type Config struct {
	Logger   *zerolog.Logger // nil disables logging
	Defaults Options         // applied to every call, per-call options win
	LogCurl  bool
	// MaxRedirects bounds followed redirects per exchange, 0 means 10.
	MaxRedirects int
	UserAgent    string     // "" means "Shred"
	Jar          cookie.Jar // nil means a fresh in-memory jar shared by all calls
	Agent        *netpool.PoolGroup
	// Transport issues the hops, nil means HTTP/1.1 and h2 over Dialer.
	Transport http.Transport
	Dialer    http.Dialer // nil means a [dialer.CoreDialer]
	Metrics   *observability.Metrics
	Registry  *content.Registry // content processors, nil means the default registry
}

const (
	defaultMaxRedirects = 10
	defaultUserAgent    = "Shred"
)

type Client struct {
	Config

	once        sync.Once
	mu          sync.RWMutex
	middlewares []Middleware
	core        *transport.Core
}

func New(cfg Config) *Client {
	c := &Client{Config: cfg}
	c.init()
	return c
}

func (c *Client) init() {
	c.once.Do(func() {
		if c.Logger == nil {
			c.Logger = observability.Nop()
		}
		if c.Jar == nil {
			c.Jar = cookie.NewJar()
		}
		if c.MaxRedirects == 0 {
			c.MaxRedirects = defaultMaxRedirects
		}
		if c.UserAgent == "" {
			c.UserAgent = defaultUserAgent
		}
		if c.Transport == nil {
			d := c.Dialer
			if d == nil {
				d = dialer.New()
			}
			c.core = &transport.Core{Dialer: d}
		}
	})
}

// Use appends mws to the chain wrapping every hop. The first "Use"d
// middleware sees the hop first.
func (c *Client) Use(mws ...Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer replaces the dialer of the built-in transport with wrap(current).
// It reports false when the client was given its own Transport.
func (c *Client) UseDialer(wrap func(http.Dialer) http.Dialer) bool {
	c.init()
	if c.core == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.core.Dialer = wrap(c.core.Dialer)
	return true
}

func (c *Client) roundTrip() http.Transport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var next Handler
	if c.Transport != nil {
		next = c.Transport.RoundTrip
	} else {
		next = c.core.RoundTrip
	}
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	return http.TransportFunc(next)
}

// NewRequest prepares an exchange without running it, so listeners can be
// attached first. Configuration errors surface when it runs.
func (c *Client) NewRequest(opts Options) *Request {
	c.init()
	o := opts.withDefaults(c.Defaults)
	if o.MaxRedirects == 0 {
		o.MaxRedirects = c.MaxRedirects
	}
	o.LogCurl = o.LogCurl || c.LogCurl
	if o.Agent == nil {
		o.Agent = c.Agent
	}
	r := &Request{
		Emitter:   &Emitter{},
		log:       c.Logger,
		metrics:   c.Metrics,
		transport: c.roundTrip(),
		registry:  c.Registry,
		jar:       o.CookieJar,
	}
	if r.jar == nil {
		r.jar = c.Jar
	}
	r.Register(c.Defaults.On)
	r.Register(opts.On)
	r.err = r.configure(o, c.UserAgent)
	return r
}

// Request runs an exchange with the options as given.
func (c *Client) Request(ctx context.Context, opts Options) (*Response, error) {
	return c.NewRequest(opts).Do(ctx)
}

func (c *Client) do(ctx context.Context, method string, opts Options) (*Response, error) {
	opts.Method = method
	return c.Request(ctx, opts)
}

func (c *Client) Get(ctx context.Context, opts Options) (*Response, error) {
	return c.do(ctx, "GET", opts)
}

func (c *Client) Put(ctx context.Context, opts Options) (*Response, error) {
	return c.do(ctx, "PUT", opts)
}

func (c *Client) Post(ctx context.Context, opts Options) (*Response, error) {
	return c.do(ctx, "POST", opts)
}

func (c *Client) Delete(ctx context.Context, opts Options) (*Response, error) {
	return c.do(ctx, "DELETE", opts)
}

func (c *Client) Patch(ctx context.Context, opts Options) (*Response, error) {
	return c.do(ctx, "PATCH", opts)
}

func (c *Client) Head(ctx context.Context, opts Options) (*Response, error) {
	return c.do(ctx, "HEAD", opts)
}

// CloseIdle closes idle connections held by the client's agent and dialer.
func (c *Client) CloseIdle() {
	c.init()
	if c.Agent != nil {
		c.Agent.CloseIdle()
	}
	if c.core == nil {
		return
	}
	c.mu.RLock()
	d := c.core.Dialer
	c.mu.RUnlock()
	for d != nil {
		if cd, ok := d.(*dialer.CoreDialer); ok {
			cd.CloseIdle()
		}
		d = d.Unwrap()
	}
}
