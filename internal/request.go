package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frankli0324/go-shred/internal/content"
	"github.com/frankli0324/go-shred/internal/cookie"
	"github.com/frankli0324/go-shred/internal/http"
	"github.com/frankli0324/go-shred/internal/observability"
	"github.com/frankli0324/go-shred/internal/transport"
	"github.com/frankli0324/go-shred/utils/netpool"
	"github.com/rs/zerolog"
)

const formType = "application/x-www-form-urlencoded"

// Request drives one exchange: it dispatches hops, follows redirects on
// itself and ends in exactly one terminal event.
type Request struct {
	*Emitter

	log       *zerolog.Logger
	metrics   *observability.Metrics
	transport http.Transport
	registry  *content.Registry

	err error // configuration error, reported when the request runs

	method        string
	url           *url.URL
	header        http.Header
	content       *content.Content
	timeout       time.Duration
	socketTimeout time.Duration
	jar           cookie.Jar
	proxy         *url.URL
	sslStrict     bool
	agent         *netpool.PoolGroup
	encoding      string
	maxRedirects  int
	logCurl       bool

	redirects int
}

// Result is what [Request.Go] delivers.
type Result struct {
	Response *Response
	Err      error
}

func (r *Request) configure(o Options, userAgent string) error {
	r.method = strings.ToUpper(o.Method)
	if r.method == "" {
		r.method = "GET"
	}
	r.header = http.FromMap(o.Headers)
	r.timeout, r.socketTimeout = o.Timeout, o.SocketTimeout
	r.sslStrict = !o.SkipTLSVerify
	r.agent = o.Agent
	r.encoding = o.Encoding
	r.logCurl = o.LogCurl
	r.maxRedirects = o.MaxRedirects

	u, err := buildURL(o)
	if err != nil {
		return err
	}
	r.url = u

	if !r.header.Has("User-Agent") && userAgent != "" {
		r.header.Set("User-Agent", userAgent)
	}

	switch {
	case o.Content != nil:
		r.content = o.Content
	case o.Body != nil:
		if r.content, err = bodyContent(o.Body, r.header.Get("Content-Type"), r.registry); err != nil {
			return err
		}
	}
	if r.content != nil {
		body, err := r.content.BodyErr()
		if err != nil {
			return fmt.Errorf("shred: encoding %s body: %w", r.content.Type(), err)
		}
		if !r.header.Has("Content-Type") {
			r.header.Set("Content-Type", r.content.Type())
		}
		r.header.Set("Content-Length", strconv.Itoa(len(body)))
	}

	if o.Proxy != "" {
		pu, err := url.Parse(o.Proxy)
		if err != nil {
			return fmt.Errorf("shred: proxy: %w", err)
		}
		if pu.Host == "" {
			return fmt.Errorf("shred: proxy %q has no host", o.Proxy)
		}
		if pu.Scheme == "" {
			pu.Scheme = "http"
		}
		r.proxy = pu
	}
	return nil
}

func buildURL(o Options) (*url.URL, error) {
	var u *url.URL
	switch {
	case o.URL != "":
		var err error
		if u, err = url.Parse(o.URL); err != nil {
			return nil, err
		}
	case o.Host != "":
		scheme := strings.ToLower(o.Scheme)
		if scheme == "" {
			scheme = "http"
		}
		host := o.Host
		if o.Port != 0 {
			host = net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
		} else if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
			host = "[" + host + "]"
		}
		path := o.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		ref, err := url.Parse(path)
		if err != nil {
			return nil, err
		}
		u = &url.URL{Scheme: scheme, Host: host, Path: ref.Path, RawPath: ref.RawPath, RawQuery: ref.RawQuery}
	default:
		return nil, ErrNoURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w %q", ErrScheme, u.Scheme)
	}
	if u.Host == "" {
		return nil, ErrNoURL
	}
	u.Fragment, u.RawFragment = "", ""
	if o.Query != nil {
		q, err := encodeQuery(o.Query)
		if err != nil {
			return nil, err
		}
		u.RawQuery = q
	}
	return u, nil
}

func encodeQuery(q any) (string, error) {
	switch q := q.(type) {
	case string:
		return strings.TrimPrefix(q, "?"), nil
	case url.Values:
		return q.Encode(), nil
	}
	v, err := content.FormValues(q)
	if err != nil {
		return "", fmt.Errorf("shred: query: %w", err)
	}
	return v.Encode(), nil
}

// bodyContent sends strings, bytes and readers as they are and treats
// anything else as data for the processor of typ.
func bodyContent(body any, typ string, reg *content.Registry) (*content.Content, error) {
	o := content.Options{Type: typ, Registry: reg}
	switch b := body.(type) {
	case string:
		o.Body = []byte(b)
	case []byte:
		o.Body = b
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("shred: reading body: %w", err)
		}
		o.Body = data
	case url.Values:
		if o.Type == "" {
			o.Type = formType
		}
		o.Data = b
	default:
		o.Data = b
	}
	return content.New(o)
}

// URL is the current target, it changes when a redirect is followed.
func (r *Request) URL() string {
	if r.url == nil {
		return ""
	}
	return r.url.String()
}

func (r *Request) Method() string { return r.method }

// Err returns the configuration error the request will report when it runs.
func (r *Request) Err() error { return r.err }

func (r *Request) Content() *content.Content { return r.content }

// Redirects counts the redirects followed so far.
func (r *Request) Redirects() int { return r.redirects }

func (r *Request) Timeout() time.Duration { return r.timeout }

func (r *Request) SetHeader(name, value string) {
	if r.header == nil {
		r.header = http.Header{}
	}
	r.header.Set(name, value)
}

func (r *Request) GetHeader(name string) string { return r.header.Get(name) }

// Header returns a copy of the headers sent on every hop.
func (r *Request) Header() http.Header { return r.header.Clone() }

func (r *Request) access() cookie.AccessInfo {
	path := r.url.EscapedPath()
	if path == "" {
		path = "/"
	}
	return cookie.AccessInfo{Domain: r.url.Hostname(), Path: path, Secure: r.url.Scheme == "https"}
}

// params builds the record for the next hop. The Cookie header is computed
// from the jar each time, so cookies set during a redirect chain apply to
// the following hops.
func (r *Request) params() *http.Params {
	port, _ := strconv.Atoi(r.url.Port())
	h := r.header.Clone()
	if r.jar != nil {
		if cs := r.jar.GetCookies(r.access()); len(cs) > 0 {
			h.Set("Cookie", cookie.Header(h.Get("Cookie"), cs))
		}
	}
	p := &http.Params{
		Scheme:        r.url.Scheme,
		Host:          r.url.Hostname(),
		Port:          port,
		Method:        r.method,
		Path:          r.url.RequestURI(),
		Header:        h,
		SSLStrict:     r.sslStrict,
		Agent:         r.agent,
		SocketTimeout: r.socketTimeout,
	}
	if r.content != nil {
		p.Body = r.content.Body()
	}
	if r.proxy != nil {
		p.HostHeader = p.Authority()
		p.Scheme, p.Host = r.proxy.Scheme, r.proxy.Hostname()
		p.Port, _ = strconv.Atoi(r.proxy.Port())
		p.Path = r.url.String()
	}
	return p
}

// Do runs the exchange to its terminal event. Error statuses are returned
// as a response with a nil error; timeouts, transport and configuration
// failures as a *[RequestError].
func (r *Request) Do(ctx context.Context) (*Response, error) {
	if r.err != nil {
		return nil, r.fail(r.err)
	}
	if r.logCurl {
		r.log.Info().Str("curl", curlCommand(r.params(), r.url.String())).Msg("equivalent curl command")
	}
	for {
		resp, err := r.hop(ctx)
		if err != nil {
			return nil, err
		}
		if !resp.IsRedirect() || r.maxRedirects < 0 {
			r.finish(resp)
			return resp, nil
		}
		if r.redirects >= r.maxRedirects {
			return nil, r.fail(ErrTooManyRedirects)
		}
		loc, err := r.url.Parse(resp.Header.Get("Location"))
		if err != nil {
			return nil, r.fail(fmt.Errorf("shred: redirect location: %w", err))
		}
		if loc.Scheme != "http" && loc.Scheme != "https" {
			return nil, r.fail(fmt.Errorf("%w %q in redirect", ErrScheme, loc.Scheme))
		}
		loc.Fragment, loc.RawFragment = "", ""
		r.log.Debug().Int("status", resp.Status).Str("from", r.url.String()).Str("to", loc.String()).Msg("redirecting")
		r.url = loc
		r.redirects++
		r.metrics.Redirect()
		r.emit(EventRedirect, resp)
	}
}

// Go runs [Request.Do] in a goroutine.
func (r *Request) Go(ctx context.Context) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		resp, err := r.Do(ctx)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

func (r *Request) finish(resp *Response) {
	if resp.IsError() {
		r.metrics.Exchange(observability.OutcomeError)
		r.emit(EventError, resp)
		return
	}
	r.metrics.Exchange(observability.OutcomeSuccess)
	r.emit(EventSuccess, resp)
}

func (r *Request) newError(err error) *RequestError {
	e := &RequestError{Method: r.method, Err: err}
	if r.url != nil {
		e.URL = r.url.String()
	}
	return e
}

// fail reports err as the terminal request_error.
func (r *Request) fail(err error) error {
	rerr := r.newError(err)
	r.log.Error().Err(err).Str("method", r.method).Str("url", rerr.URL).Msg("request failed")
	r.metrics.Exchange(observability.OutcomeRequestError)
	r.emitRequestError(r, rerr)
	return rerr
}

var errNoReply = errors.New("shred: transport returned neither reply nor error")

// hop issues one transport call and buffers its reply. The timeout clock
// starts once the request is written and stops at cleanup; a transport
// error caused by the timeout or by an idle connection is reported as the
// timeout alone.
func (r *Request) hop(ctx context.Context) (*Response, error) {
	p := r.params()
	hopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		timer    *time.Timer
		done     bool
		timedOut atomic.Bool
	)
	trace := &http.Trace{
		Socket: r.emitSocket,
		Written: func() {
			if r.timeout <= 0 {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if done || timer != nil {
				return
			}
			timer = time.AfterFunc(r.timeout, func() {
				timedOut.Store(true)
				cancel()
			})
		},
	}

	r.log.Debug().Str("method", p.Method).Str("url", r.url.String()).Int("redirects", r.redirects).Msg("dispatching")
	start := time.Now()
	reply, err := r.transport.RoundTrip(hopCtx, p, trace)
	if err == nil && reply == nil {
		err = errNoReply
	}
	var resp *Response
	if err == nil {
		if reply.Body == nil {
			reply.Body = http.NoBody
		}
		resp, err = readResponse(r, reply)
	}

	mu.Lock()
	done = true
	if timer != nil {
		timer.Stop()
	}
	mu.Unlock()
	r.emitCleanup(r)

	if err == nil {
		r.metrics.Hop(p.Method, time.Since(start))
		r.log.Debug().Int("status", resp.Status).Str("url", r.url.String()).Dur("took", time.Since(start)).Msg("response")
		return resp, nil
	}
	if timedOut.Load() {
		r.log.Warn().Dur("timeout", r.timeout).Str("url", r.url.String()).Msg("request timed out")
		r.metrics.Exchange(observability.OutcomeTimeout)
		r.emitTimeout(r)
		return nil, r.newError(ErrTimeout)
	}
	if errors.Is(err, transport.ErrIdleTimeout) {
		r.log.Warn().Dur("socket_timeout", r.socketTimeout).Str("url", r.url.String()).Msg("connection idle timeout")
		r.metrics.Exchange(observability.OutcomeTimeout)
		r.emitTimeout(r)
		return nil, r.newError(fmt.Errorf("%w: %w", ErrTimeout, err))
	}
	return nil, r.fail(err)
}
