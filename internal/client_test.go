package internal_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	nhttp "net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/frankli0324/go-shred/internal"
	"github.com/frankli0324/go-shred/internal/config"
	"github.com/frankli0324/go-shred/internal/observability"
	"github.com/frankli0324/go-shred/internal/transport"
	"github.com/kr/pretty"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func testServer() *nhttp.ServeMux {
	mux := nhttp.NewServeMux()
	mux.HandleFunc("/login", func(w nhttp.ResponseWriter, r *nhttp.Request) {
		nhttp.SetCookie(w, &nhttp.Cookie{Name: "sid", Value: "s3cr3t", Path: "/"})
		nhttp.Redirect(w, r, "/whoami", nhttp.StatusFound)
	})
	mux.HandleFunc("/whoami", func(w nhttp.ResponseWriter, r *nhttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		c, _ := r.Cookie("sid")
		sid := ""
		if c != nil {
			sid = c.Value
		}
		io.WriteString(w, `{"proto":"`+r.Proto+`","sid":"`+sid+`"}`)
	})
	mux.HandleFunc("/echo", func(w nhttp.ResponseWriter, r *nhttp.Request) {
		w.Header().Set("Content-Type", r.Header.Get("Content-Type"))
		io.Copy(w, r.Body)
	})
	mux.HandleFunc("/slow", func(w nhttp.ResponseWriter, r *nhttp.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	return mux
}

func TestClientHTTP1(t *testing.T) {
	srv := httptest.NewServer(testServer())
	defer srv.Close()
	c := internal.New(internal.Config{})
	defer c.CloseIdle()

	var sockets int
	resp, err := c.Get(context.Background(), internal.Options{
		URL: srv.URL + "/login",
		On:  internal.Handlers{Socket: func(net.Conn) { sockets++ }},
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(resp.Content.Data(), map[string]any{"proto": "HTTP/1.1", "sid": "s3cr3t"}); len(diff) > 0 {
		t.Error(diff)
	}
	if sockets != 2 || resp.Request.Redirects() != 1 {
		t.Errorf("%d sockets, %d redirects", sockets, resp.Request.Redirects())
	}

	resp, err = c.Post(context.Background(), internal.Options{URL: srv.URL + "/echo", Body: map[string]any{"n": 1}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(resp.Content.Data(), map[string]any{"n": float64(1)}); len(diff) > 0 {
		t.Error(diff)
	}

	resp, err = c.Get(context.Background(), internal.Options{URL: srv.URL + "/missing"})
	if err != nil || resp.Status != 404 || resp.StatusText != "Not Found" {
		t.Errorf("resp %v err %v", resp, err)
	}
}

func TestClientTimeoutOverNetwork(t *testing.T) {
	srv := httptest.NewServer(testServer())
	defer srv.Close()
	var events []string
	_, err := internal.New(internal.Config{}).Get(context.Background(), internal.Options{
		URL: srv.URL + "/slow", Timeout: 100 * time.Millisecond,
		On: internal.Handlers{
			Timeout:      func(*internal.Request) { events = append(events, "timeout") },
			RequestError: func(*internal.Request, error) { events = append(events, "request_error") },
		},
	})
	if err == nil || !strings.Contains(err.Error(), internal.ErrTimeout.Error()) {
		t.Errorf("got %v", err)
	}
	if diff := pretty.Diff(events, []string{"timeout"}); len(diff) > 0 {
		t.Error(diff)
	}
}

func TestClientH2(t *testing.T) {
	srv := httptest.NewUnstartedServer(testServer())
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	c := internal.New(internal.Config{Defaults: internal.Options{SkipTLSVerify: true}})
	defer c.CloseIdle()
	resp, err := c.Get(context.Background(), internal.Options{URL: srv.URL + "/login"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(resp.Content.Data(), map[string]any{"proto": "HTTP/2.0", "sid": "s3cr3t"}); len(diff) > 0 {
		t.Error(diff)
	}

	if !c.DisableH2() {
		t.Fatal("no core dialer found")
	}
	resp, err = c.Get(context.Background(), internal.Options{URL: srv.URL + "/whoami"})
	if err != nil {
		t.Fatal(err)
	}
	if data, _ := resp.Content.Data().(map[string]any); data["proto"] != "HTTP/1.1" {
		t.Errorf("served %v after DisableH2", data)
	}
}

func TestClientForwardProxy(t *testing.T) {
	var target, host string
	proxy := httptest.NewServer(nhttp.HandlerFunc(func(w nhttp.ResponseWriter, r *nhttp.Request) {
		target, host = r.RequestURI, r.Host
		io.WriteString(w, "via proxy")
	}))
	defer proxy.Close()

	resp, err := internal.New(internal.Config{}).Get(context.Background(), internal.Options{
		URL: "http://example.test/a?b=c", Proxy: proxy.URL,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content.String() != "via proxy" || target != "http://example.test/a?b=c" || host != "example.test" {
		t.Errorf("proxy saw %q host %q", target, host)
	}
}

func TestLogCurl(t *testing.T) {
	srv := httptest.NewServer(testServer())
	defer srv.Close()
	buf := &bytes.Buffer{}
	c := internal.New(internal.Config{Logger: observability.NewLoggerTo(buf, "info"), LogCurl: true})
	if _, err := c.Post(context.Background(), internal.Options{URL: srv.URL + "/echo", Body: "x"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `curl -X POST`) || !strings.Contains(buf.String(), `--data-binary 'x'`) {
		t.Errorf("log %s", buf)
	}
}

func TestNewFromConfig(t *testing.T) {
	srv := httptest.NewServer(testServer())
	defer srv.Close()

	env := config.FromEnv()
	env.CookieFile = filepath.Join(t.TempDir(), "cookies")
	env.Metrics = true
	c, jar, err := internal.NewFromConfig(env)
	if err != nil {
		t.Fatal(err)
	}
	if jar == nil || c.Metrics == nil || c.Agent == nil {
		t.Fatalf("jar %v metrics %v agent %v", jar, c.Metrics, c.Agent)
	}
	if _, err := c.Get(context.Background(), internal.Options{URL: srv.URL + "/login"}); err != nil {
		t.Fatal(err)
	}
	if err := jar.Save(); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(c.Metrics.RedirectsTotal); got != 1 {
		t.Errorf("redirects %v", got)
	}
}

// rawServer accepts connections and hands each one to serve.
func rawServer(t *testing.T, serve func(net.Conn)) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go serve(c)
		}
	}()
	return "http://" + ln.Addr().String() + "/"
}

func TestClientSocketTimeout(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	addr := rawServer(t, func(c net.Conn) {
		defer c.Close()
		<-done
	})
	var events []string
	_, err := internal.New(internal.Config{}).Get(context.Background(), internal.Options{
		URL: addr, SocketTimeout: 50 * time.Millisecond,
		On: internal.Handlers{
			Timeout:      func(*internal.Request) { events = append(events, "timeout") },
			RequestError: func(*internal.Request, error) { events = append(events, "request_error") },
		},
	})
	if !errors.Is(err, internal.ErrTimeout) || !errors.Is(err, transport.ErrIdleTimeout) {
		t.Errorf("got %v", err)
	}
	if diff := pretty.Diff(events, []string{"timeout"}); len(diff) > 0 {
		t.Error(diff)
	}
}

func TestClientTruncatedBody(t *testing.T) {
	addr := rawServer(t, func(c net.Conn) {
		defer c.Close()
		br := bufio.NewReader(c)
		for {
			if line, err := br.ReadString('\n'); err != nil || line == "\r\n" {
				break
			}
		}
		io.WriteString(c, "HTTP/1.1 200 OK\r\nContent-Type: application/json\r\nContent-Length: 100\r\n\r\n{\"a\":")
	})
	var events []string
	_, err := internal.New(internal.Config{}).Get(context.Background(), internal.Options{
		URL: addr,
		On: internal.Handlers{
			Success:      func(*internal.Response) { events = append(events, "success") },
			RequestError: func(*internal.Request, error) { events = append(events, "request_error") },
		},
	})
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("got %v", err)
	}
	if diff := pretty.Diff(events, []string{"request_error"}); len(diff) > 0 {
		t.Error(diff)
	}
}
