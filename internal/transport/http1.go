package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/frankli0324/go-shred/internal/http"
	"github.com/frankli0324/go-shred/internal/transport/chunked"
)

type HTTP1 struct{}

func (t HTTP1) Write(ctx context.Context, w io.Writer, p *http.Params) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w) // default bufsize is 4096
	if err := t.writeHeader(bw, p); err != nil {
		return err
	}
	if len(p.Body) > 0 {
		if _, err := bw.Write(p.Body); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func bodyAllowed(method string) bool {
	switch method {
	case "POST", "PUT", "PATCH":
		return true
	}
	return false
}

// writeHeader writes the status and header part of an http 1.1 request
// e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.google.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
//
// header names are written as they were set, never canonicalized.
func (t HTTP1) writeHeader(w *bufio.Writer, p *http.Params) error {
	target := p.Path
	if target == "" {
		target = "/"
	}
	w.WriteString(p.Method)
	w.WriteByte(' ')
	w.WriteString(target)
	w.WriteString(" HTTP/1.1\r\n")

	host := p.Header.Get("Host")
	if host == "" {
		host = p.Authority()
	}
	w.WriteString("Host: ")
	w.WriteString(host)
	w.WriteString("\r\n")

	if !p.Header.Has("Content-Length") && (len(p.Body) > 0 || bodyAllowed(p.Method)) {
		w.WriteString("Content-Length: ")
		w.WriteString(strconv.Itoa(len(p.Body)))
		w.WriteString("\r\n")
	}

	var err error
	p.Header.Each(func(name, value string) {
		if err != nil || strings.EqualFold(name, "Host") {
			return
		}
		if strings.ContainsAny(name, "\r\n:") || strings.ContainsAny(value, "\r\n") {
			err = fmt.Errorf("transport: invalid header field %q", name)
			return
		}
		w.WriteString(name)
		w.WriteString(": ")
		w.WriteString(value)
		_, err = w.WriteString("\r\n")
	})
	if err != nil {
		return err
	}
	_, err = w.WriteString("\r\n")
	return err
}

func (t HTTP1) Read(ctx context.Context, r io.Reader, p *http.Params, resp *http.Reply) (err error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	tp := textproto.NewReader(br)
	for {
		if err := t.readHead(tp, resp); err != nil {
			return err
		}
		// informational responses precede the final one, 101 is final
		if resp.StatusCode < 100 || resp.StatusCode >= 200 || resp.StatusCode == 101 {
			break
		}
	}
	return t.readTransfer(br, p, resp)
}

func (t HTTP1) readHead(tp *textproto.Reader, resp *http.Reply) error {
	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/") {
		return errors.New("transport: malformed HTTP response " + strconv.Quote(line))
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return errors.New("transport: malformed HTTP status code " + statusCode)
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return errors.New("transport: malformed HTTP status code " + statusCode)
	}

	// textproto would canonicalize names, read them raw instead
	resp.Header = http.Header{}
	for {
		kv, err := tp.ReadContinuedLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		if kv == "" {
			return nil
		}
		k, v, ok := strings.Cut(kv, ":")
		if !ok {
			return fmt.Errorf("transport: malformed MIME header line: %s", kv)
		}
		resp.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}
}

func (t HTTP1) readTransfer(r *bufio.Reader, p *http.Params, resp *http.Reply) error {
	contentLens := resp.Header.Values("Content-Length")

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return fmt.Errorf("transport: message cannot contain multiple Content-Length headers; got %q", contentLens)
			}
		}
		// deduplicate Content-Length
		resp.Header.Set("Content-Length", first)
		contentLens = resp.Header.Values("Content-Length")
	}

	resp.ContentLength = -1
	if len(contentLens) > 0 {
		n, err := strconv.ParseUint(contentLens[0], 10, 63)
		if err != nil {
			return fmt.Errorf("transport: bad Content-Length %q", contentLens[0])
		}
		resp.ContentLength = int64(n)
	}

	switch {
	case p.Method == "HEAD", resp.StatusCode/100 == 1, resp.StatusCode == 204, resp.StatusCode == 304,
		p.Method == "CONNECT" && resp.StatusCode/100 == 2: // the tunnel follows the head
		resp.ContentLength = 0
		resp.Body = http.NoBody
	case isChunked(resp.Header):
		resp.ContentLength = -1
		resp.Body = io.NopCloser(chunked.NewChunkedReader(r))
	case resp.ContentLength == 0:
		resp.Body = http.NoBody
	case resp.ContentLength > 0:
		resp.Body = io.NopCloser(&fixedReader{r: r, n: resp.ContentLength})
	default:
		// delimited by connection close
		resp.Body = io.NopCloser(r)
	}
	return nil
}

func isChunked(h http.Header) bool {
	te := h.Values("Transfer-Encoding")
	return len(te) > 0 && strings.EqualFold(strings.TrimSpace(te[len(te)-1]), "chunked")
}

// keepAlive reports whether the connection can carry another request once
// the reply body is drained.
func keepAlive(resp *http.Reply) bool {
	for _, v := range resp.Header.Values("Connection") {
		for _, tok := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "close") {
				return false
			}
		}
	}
	if resp.Proto == "HTTP/1.0" && !strings.EqualFold(resp.Header.Get("Connection"), "keep-alive") {
		return false
	}
	return resp.Body == http.NoBody || resp.ContentLength >= 0 || isChunked(resp.Header)
}
