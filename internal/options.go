package internal

import (
	"time"

	"github.com/frankli0324/go-shred/internal/content"
	"github.com/frankli0324/go-shred/internal/cookie"
	"github.com/frankli0324/go-shred/utils/netpool"
)

// Options configures one exchange. Either URL or Host must be set.
type Options struct {
	URL    string
	Scheme string // with Host, defaults to http
	Host   string
	Port   int
	Path   string

	Method  string // defaults to GET
	Headers map[string]string
	// Query replaces the query of the url. It may be a string, [url.Values],
	// map[string]string, map[string][]string or map[string]any.
	Query any

	// Body is sent as is when it is a string, []byte or io.Reader, anything
	// else is stringified by the processor for the Content-Type header.
	Body    any
	Content *content.Content // takes precedence over Body

	Timeout       time.Duration // whole hop, armed once the request is written
	SocketTimeout time.Duration // per read or write on the connection

	// CookieJar replaces the client's jar, [cookie.Discard] opts out.
	CookieJar cookie.Jar
	// Proxy is a forward proxy url. The hop connects to it and sends the
	// absolute target url as the request target.
	Proxy         string
	SkipTLSVerify bool
	Agent         *netpool.PoolGroup

	// Encoding decodes the response body from this charset to UTF-8, "auto"
	// sniffs it from Content-Type and the body.
	Encoding string
	// MaxRedirects bounds followed redirects, 0 means the client's default
	// and a negative value stops following them.
	MaxRedirects int
	LogCurl      bool

	On Handlers
}

// withDefaults fills every zero field of o from d. Maps are taken whole,
// never merged. Handlers are not copied here, both sets get registered.
func (o Options) withDefaults(d Options) Options {
	if o.URL == "" && o.Host == "" {
		o.URL, o.Host = d.URL, d.Host
		if o.Scheme == "" {
			o.Scheme = d.Scheme
		}
		if o.Port == 0 {
			o.Port = d.Port
		}
		if o.Path == "" {
			o.Path = d.Path
		}
	}
	if o.Method == "" {
		o.Method = d.Method
	}
	if o.Headers == nil {
		o.Headers = d.Headers
	}
	if o.Query == nil {
		o.Query = d.Query
	}
	if o.Body == nil && o.Content == nil {
		o.Body, o.Content = d.Body, d.Content
	}
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	if o.SocketTimeout == 0 {
		o.SocketTimeout = d.SocketTimeout
	}
	if o.CookieJar == nil {
		o.CookieJar = d.CookieJar
	}
	if o.Proxy == "" {
		o.Proxy = d.Proxy
	}
	o.SkipTLSVerify = o.SkipTLSVerify || d.SkipTLSVerify
	if o.Agent == nil {
		o.Agent = d.Agent
	}
	if o.Encoding == "" {
		o.Encoding = d.Encoding
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = d.MaxRedirects
	}
	o.LogCurl = o.LogCurl || d.LogCurl
	return o
}
