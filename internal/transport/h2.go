package transport

import (
	"bytes"
	"context"
	"io"
	nhttp "net/http"
	"net/http/httptrace"
	"strings"

	"github.com/frankli0324/go-shred/internal/http"
	"golang.org/x/net/http2"
)

// connection-specific fields are forbidden in HTTP/2 (RFC 9113 8.2.2)
var h2Forbidden = map[string]bool{
	"connection": true, "keep-alive": true, "proxy-connection": true,
	"transfer-encoding": true, "upgrade": true, "host": true, "content-length": true,
}

type H2 struct{}

func (t H2) RoundTrip(ctx context.Context, cc *http2.ClientConn, p *http.Params, trace *http.Trace) (*http.Reply, error) {
	ctx = httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		WroteRequest: func(info httptrace.WroteRequestInfo) {
			if info.Err == nil {
				trace.Wrote()
			}
		},
	})
	var body io.Reader = http.NoBody
	if len(p.Body) > 0 {
		body = bytes.NewReader(p.Body)
	}
	req, err := nhttp.NewRequestWithContext(ctx, p.Method, p.URL(), body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(p.Body))
	req.Host = p.Header.Get("Host")
	if req.Host == "" {
		req.Host = p.Authority()
	}
	p.Header.Each(func(name, value string) {
		if !h2Forbidden[strings.ToLower(name)] {
			req.Header[name] = append(req.Header[name], value)
		}
	})

	resp, err := cc.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	return &http.Reply{
		Proto:         resp.Proto,
		Status:        strings.TrimPrefix(resp.Status, resp.Proto+" "),
		StatusCode:    resp.StatusCode,
		Header:        http.FromStd(resp.Header),
		ContentLength: resp.ContentLength,
		Body:          resp.Body,
	}, nil
}
