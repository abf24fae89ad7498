package http

import (
	"net/http"
	"sort"
	"strings"
)

// Field is a single header entry. Name keeps the casing of the last write,
// which is the casing written on the wire.
type Field struct {
	Name   string
	Values []string
}

// Header is a case-insensitive header mapping. Keys are lower-cased, so two
// writes that only differ in casing address the same entry and the later
// one wins. Header names are never canonicalized on output.
type Header map[string]Field

func key(k string) string { return strings.ToLower(strings.TrimSpace(k)) }

func (h Header) Set(k, v string) {
	h[key(k)] = Field{Name: k, Values: []string{v}}
}

func (h Header) Add(k, v string) {
	f, ok := h[key(k)]
	if !ok {
		h.Set(k, v)
		return
	}
	f.Name = k
	f.Values = append(f.Values, v)
	h[key(k)] = f
}

// Get returns the first value associated with k, or "".
func (h Header) Get(k string) string {
	if f, ok := h[key(k)]; ok && len(f.Values) > 0 {
		return f.Values[0]
	}
	return ""
}

func (h Header) Values(k string) []string {
	return h[key(k)].Values
}

func (h Header) Has(k string) bool {
	_, ok := h[key(k)]
	return ok
}

func (h Header) Del(k string) {
	delete(h, key(k))
}

func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	c := make(Header, len(h))
	for k, f := range h {
		c[k] = Field{Name: f.Name, Values: append([]string(nil), f.Values...)}
	}
	return c
}

// Each calls fn for every name/value pair, ordered by lower-cased name so
// serialized output is stable.
func (h Header) Each(fn func(name, value string)) {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f := h[k]
		for _, v := range f.Values {
			fn(f.Name, v)
		}
	}
}

// Std converts h to a [net/http.Header] without canonicalizing names.
func (h Header) Std() http.Header {
	out := make(http.Header, len(h))
	for _, f := range h {
		out[f.Name] = append([]string(nil), f.Values...)
	}
	return out
}

// FromStd builds a Header from a [net/http.Header]. Values under names that
// collide case-insensitively are merged.
func FromStd(std http.Header) Header {
	h := make(Header, len(std))
	for k, vs := range std {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	return h
}

// FromMap builds a Header from single-valued pairs, the shape the per-call
// options use.
func FromMap(m map[string]string) Header {
	h := make(Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
