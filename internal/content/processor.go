package content

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Processor converts between a raw body and a typed value for a media type.
type Processor struct {
	Parse     func(body []byte) (any, error)
	Stringify func(data any) ([]byte, error)
}

// Registry maps media types to processors.
type Registry struct {
	mu    sync.RWMutex
	procs map[string]Processor
}

func NewRegistry() *Registry {
	r := &Registry{procs: map[string]Processor{}}
	r.Register(Identity, "text/plain", "text/html", "text")
	r.Register(JSON, "application/json", "json")
	r.Register(Form, "application/x-www-form-urlencoded")
	return r
}

// Default is the registry used by [Content] values that don't carry their own.
var Default = NewRegistry()

// Register binds p to every given media type, replacing earlier bindings.
func (r *Registry) Register(p Processor, types ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		r.procs[strings.ToLower(strings.TrimSpace(t))] = p
	}
}

// Register binds p on the [Default] registry.
func Register(p Processor, types ...string) { Default.Register(p, types...) }

// Lookup resolves the processor for a media type. Parameters are ignored.
// The exact type is tried first, then each "/" or "+" separated token in
// order: the first token with a processor wins, so
// application/vnd.custom+json resolves to the json processor. Unknown types
// get [Identity].
func (r *Registry) Lookup(typ string) Processor {
	main, _, _ := strings.Cut(typ, ";")
	main = strings.ToLower(strings.TrimSpace(main))

	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.procs[main]; ok {
		return p
	}
	for _, part := range strings.FieldsFunc(main, func(c rune) bool { return c == '/' || c == '+' }) {
		if p, ok := r.procs[part]; ok {
			return p
		}
	}
	return Identity
}

var Identity = Processor{
	Parse: func(body []byte) (any, error) { return string(body), nil },
	Stringify: func(data any) ([]byte, error) {
		switch d := data.(type) {
		case string:
			return []byte(d), nil
		case []byte:
			return d, nil
		case fmt.Stringer:
			return []byte(d.String()), nil
		}
		return []byte(fmt.Sprint(data)), nil
	},
}

var JSON = Processor{
	Parse: func(body []byte) (v any, err error) {
		err = json.Unmarshal(body, &v)
		return
	},
	Stringify: func(data any) ([]byte, error) { return json.Marshal(data) },
}

var Form = Processor{
	Parse: func(body []byte) (any, error) { return url.ParseQuery(string(body)) },
	Stringify: func(data any) ([]byte, error) {
		v, err := formValues(data)
		if err != nil {
			return nil, err
		}
		return []byte(v.Encode()), nil
	},
}

func formValues(data any) (url.Values, error) {
	switch d := data.(type) {
	case url.Values:
		return d, nil
	case map[string][]string:
		return url.Values(d), nil
	case map[string]string:
		v := make(url.Values, len(d))
		for k, s := range d {
			v.Set(k, s)
		}
		return v, nil
	case map[string]any:
		v := make(url.Values, len(d))
		for k, s := range d {
			switch s := s.(type) {
			case []string:
				v[k] = s
			case []any:
				for _, e := range s {
					v.Add(k, fmt.Sprint(e))
				}
			default:
				v.Set(k, fmt.Sprint(s))
			}
		}
		return v, nil
	case string:
		return url.ParseQuery(d)
	}
	return nil, fmt.Errorf("content: cannot form-encode %T", data)
}

// FormValues converts the shapes accepted by the form processor into
// [url.Values]. It backs query string handling too.
func FormValues(data any) (url.Values, error) { return formValues(data) }
