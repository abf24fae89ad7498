package content_test

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/frankli0324/go-shred/internal/content"
	"github.com/kr/pretty"
)

func TestTypeInference(t *testing.T) {
	cases := map[string]struct {
		c    *content.Content
		want string
	}{
		"StringData":   {content.FromData("hi", ""), "text/plain"},
		"ObjectData":   {content.FromData(map[string]any{"a": 1}, ""), "application/json"},
		"BodyOnly":     {content.FromBody([]byte("x"), ""), "text/plain"},
		"Explicit":     {content.FromData("a=b", "application/x-www-form-urlencoded"), "application/x-www-form-urlencoded"},
		"NothingAtAll": {content.FromData(nil, ""), "text/plain"},
	}
	for name, cas := range cases {
		if got := cas.c.Type(); got != cas.want {
			t.Errorf("%s: got %q want %q", name, got, cas.want)
		}
	}
}

func TestConflictIsImmediate(t *testing.T) {
	c := content.FromBody([]byte("raw"), "text/plain")
	if err := c.SetData("typed"); !errors.Is(err, content.ErrConflict) {
		t.Errorf("SetData on body content: got %v", err)
	}
	d := content.FromData(map[string]any{"a": true}, "")
	if err := d.SetBody([]byte("{}")); !errors.Is(err, content.ErrConflict) {
		t.Errorf("SetBody on data content: got %v", err)
	}
	if _, err := content.New(content.Options{Body: []byte("a"), Data: "b"}); !errors.Is(err, content.ErrConflict) {
		t.Errorf("New with both: got %v", err)
	}
	// clearing is not a conflict
	if err := c.SetData(nil); err != nil {
		t.Errorf("SetData(nil): %v", err)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	for _, d := range []any{
		map[string]any{"ok": true},
		map[string]any{"n": 1.5, "list": []any{"a", nil, false}, "nested": map[string]any{"x": "y"}},
		[]any{1.0, 2.0, 3.0},
		"plain string",
		nil,
	} {
		body, err := content.JSON.Stringify(d)
		if err != nil {
			t.Fatal(err)
		}
		back, err := content.JSON.Parse(body)
		if err != nil {
			t.Fatal(err)
		}
		if diff := pretty.Diff(back, d); len(diff) > 0 {
			t.Errorf("%s: %v", body, diff)
		}
	}
}

func TestLazyConversion(t *testing.T) {
	c := content.FromBody([]byte(`{"ok":true}`), "application/json; charset=utf-8")
	if diff := pretty.Diff(c.Data(), map[string]any{"ok": true}); len(diff) > 0 {
		t.Error(diff)
	}
	d := content.FromData(map[string]any{"ok": true}, "")
	if got := string(d.Body()); got != `{"ok":true}` {
		t.Errorf("got %s", got)
	}
	if d.Len() != len(`{"ok":true}`) {
		t.Errorf("length %d", d.Len())
	}
	bad := content.FromBody([]byte("{"), "application/json")
	if _, err := bad.DataErr(); err == nil {
		t.Error("expected parse error")
	}
}

func TestFormProcessor(t *testing.T) {
	c := content.FromData(map[string]string{"b": "2", "a": "1 2"}, "application/x-www-form-urlencoded")
	if got := c.String(); got != "a=1+2&b=2" {
		t.Errorf("got %q", got)
	}
	p := content.FromBody([]byte("a=1&a=2&b=x"), "application/x-www-form-urlencoded")
	if diff := pretty.Diff(p.Data(), url.Values{"a": {"1", "2"}, "b": {"x"}}); len(diff) > 0 {
		t.Error(diff)
	}
}

func TestLookupFallbackFirstTokenWins(t *testing.T) {
	r := content.NewRegistry()
	upper := content.Processor{
		Parse:     func(b []byte) (any, error) { return strings.ToUpper(string(b)), nil },
		Stringify: content.Identity.Stringify,
	}
	r.Register(upper, "upper")

	for _, c := range []struct{ typ, body, want string }{
		{"application/vnd.custom+json", `"x"`, "x"},
		{"application/json+upper", `"x"`, "x"},       // json comes first
		{"application/upper+json", `"x"`, `"X"`},     // upper comes first
		{"application/unknown", `"x"`, `"x"`},        // identity
		{"TEXT/PLAIN; charset=latin1", `"x"`, `"x"`}, // exact, case-insensitive
	} {
		got, err := r.Lookup(c.typ).Parse([]byte(c.body))
		if err != nil {
			t.Fatalf("%s: %v", c.typ, err)
		}
		if got != c.want {
			t.Errorf("%s: got %#v want %#v", c.typ, got, c.want)
		}
	}
}

func TestCustomRegistryContent(t *testing.T) {
	r := content.NewRegistry()
	r.Register(content.Processor{
		Parse:     func(b []byte) (any, error) { return len(b), nil },
		Stringify: content.Identity.Stringify,
	}, "application/x-length", "length")
	c, err := content.New(content.Options{Body: []byte("12345"), Type: "application/x-length", Registry: r})
	if err != nil {
		t.Fatal(err)
	}
	if c.Data() != 5 {
		t.Errorf("got %v", c.Data())
	}
}
