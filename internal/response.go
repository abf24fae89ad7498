package internal

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/frankli0324/go-shred/internal/content"
	"github.com/frankli0324/go-shred/internal/cookie"
	"github.com/frankli0324/go-shred/internal/http"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// Response is a fully buffered and decoded reply to one hop.
type Response struct {
	Request    *Request
	Proto      string
	Status     int
	StatusText string // reason phrase, e.g. "Not Found"
	Header     http.Header
	Content    *content.Content
}

// IsRedirect reports a 3xx status carrying a Location header.
func (r *Response) IsRedirect() bool {
	return r.Status > 299 && r.Status < 400 && r.Header.Has("Location")
}

// IsError reports a missing status or one of 400 and above.
func (r *Response) IsError() bool {
	return r.Status == 0 || r.Status > 399
}

func (r *Response) String() string {
	return strconv.Itoa(r.Status) + " " + r.StatusText
}

// readResponse buffers reply into a Response. Cookies are stored before the
// body is read, decoding happens once the body is complete.
func readResponse(req *Request, reply *http.Reply) (*Response, error) {
	defer reply.Body.Close()
	resp := &Response{
		Request:    req,
		Proto:      reply.Proto,
		Status:     reply.StatusCode,
		StatusText: reasonPhrase(reply),
		Header:     reply.Header,
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	req.absorbCookies(resp.Header.Values("Set-Cookie"))

	buf := &bytes.Buffer{}
	if reply.ContentLength > 0 && reply.ContentLength < 1<<20 {
		buf.Grow(int(reply.ContentLength))
	}
	if _, err := buf.ReadFrom(reply.Body); err != nil {
		return nil, err
	}
	body, err := decompress(resp.Header.Get("Content-Encoding"), buf.Bytes())
	if err != nil {
		return nil, err
	}
	typ := resp.Header.Get("Content-Type")
	if body, err = decodeCharset(req.encoding, typ, body); err != nil {
		return nil, err
	}
	resp.Content, _ = content.New(content.Options{Body: body, Type: typ, Registry: req.registry})
	return resp, nil
}

func reasonPhrase(reply *http.Reply) string {
	if _, phrase, ok := strings.Cut(reply.Status, " "); ok && phrase != "" {
		return phrase
	}
	return http.StatusText(reply.StatusCode)
}

func decompress(encoding string, body []byte) ([]byte, error) {
	var r io.ReadCloser
	var err error
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		r, err = gzip.NewReader(bytes.NewReader(body))
	case "deflate":
		r = flate.NewReader(bytes.NewReader(body))
	default:
		return body, nil
	}
	if err != nil {
		return nil, fmt.Errorf("shred: %s body: %w", encoding, err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("shred: %s body: %w", encoding, err)
	}
	return out, nil
}

func decodeCharset(name, contentType string, body []byte) ([]byte, error) {
	if name == "" {
		return body, nil
	}
	if strings.EqualFold(name, "auto") {
		enc, _, _ := charset.DetermineEncoding(body, contentType)
		return enc.NewDecoder().Bytes(body)
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("shred: response encoding %q: %w", name, err)
	}
	return enc.NewDecoder().Bytes(body)
}

// absorbCookies stores Set-Cookie values in the request's jar, scoped to
// the current hop unless they name their own domain and path.
func (r *Request) absorbCookies(values []string) {
	if r.jar == nil || len(values) == 0 {
		return
	}
	host, path := r.url.Hostname(), r.url.EscapedPath()
	if path == "" {
		path = "/"
	}
	cookies := make([]*cookie.Cookie, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		lower := strings.ToLower(v)
		if !strings.Contains(lower, "domain=") {
			v += "; domain=" + host
		}
		if !strings.Contains(lower, "path=") {
			v += "; path=" + path
		}
		c, err := cookie.Parse(v, host, path)
		if err != nil {
			r.log.Warn().Err(err).Str("cookie", v).Msg("ignoring cookie")
			continue
		}
		cookies = append(cookies, c)
	}
	r.jar.SetCookies(cookies)
}
