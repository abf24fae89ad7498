// package content holds request and response entities. A Content is either
// a raw body or a typed value; the other representation is derived on
// demand through the processor registered for its media type.
package content

import (
	"errors"
)

// ErrConflict is returned when both representations are supplied to the
// same Content. It is a programming error, not a network condition.
var ErrConflict = errors.New("content: body and data are mutually exclusive")

type Options struct {
	Body     []byte
	Data     any
	Type     string
	Registry *Registry // nil means Default
}

type Content struct {
	typ      string
	registry *Registry

	hasBody bool
	body    []byte
	hasData bool
	data    any

	// cached derivation of the other representation
	derived    bool
	derivedErr error
}

func New(o Options) (*Content, error) {
	if len(o.Body) > 0 && o.Data != nil {
		return nil, ErrConflict
	}
	c := &Content{typ: o.Type, registry: o.Registry}
	if o.Data != nil {
		c.hasData, c.data = true, o.Data
	} else {
		c.hasBody, c.body = true, o.Body
	}
	return c, nil
}

func FromBody(body []byte, typ string) *Content {
	return &Content{typ: typ, hasBody: true, body: body}
}

func FromData(data any, typ string) *Content {
	return &Content{typ: typ, hasData: true, data: data}
}

// Type returns the explicit media type, or one inferred from the data:
// text/plain for strings, application/json for everything else.
func (c *Content) Type() string {
	if c.typ != "" {
		return c.typ
	}
	if c.hasData && c.data != nil {
		if _, ok := c.data.(string); ok {
			return "text/plain"
		}
		return "application/json"
	}
	return "text/plain"
}

func (c *Content) processor() Processor {
	r := c.registry
	if r == nil {
		r = Default
	}
	return r.Lookup(c.Type())
}

func (c *Content) derive() {
	if c.derived {
		return
	}
	c.derived = true
	switch {
	case c.hasBody && !c.hasData:
		c.data, c.derivedErr = c.processor().Parse(c.body)
	case c.hasData && !c.hasBody && c.data != nil:
		c.body, c.derivedErr = c.processor().Stringify(c.data)
	}
}

// DataErr returns the typed value, parsing the body if needed.
func (c *Content) DataErr() (any, error) {
	if c.hasData {
		return c.data, nil
	}
	c.derive()
	return c.data, c.derivedErr
}

// BodyErr returns the raw body, stringifying the data if needed.
func (c *Content) BodyErr() ([]byte, error) {
	if c.hasBody {
		return c.body, nil
	}
	c.derive()
	return c.body, c.derivedErr
}

func (c *Content) Data() any {
	d, _ := c.DataErr()
	return d
}

func (c *Content) Body() []byte {
	b, _ := c.BodyErr()
	return b
}

func (c *Content) String() string { return string(c.Body()) }

func (c *Content) Len() int { return len(c.Body()) }

// SetData replaces the typed value. It fails if the content already holds
// a body.
func (c *Content) SetData(data any) error {
	if c.hasBody && len(c.body) > 0 && data != nil {
		return ErrConflict
	}
	*c = Content{typ: c.typ, registry: c.registry, hasData: data != nil, data: data}
	return nil
}

// SetBody replaces the raw body. It fails if the content already holds
// typed data.
func (c *Content) SetBody(body []byte) error {
	if c.hasData && c.data != nil && len(body) > 0 {
		return ErrConflict
	}
	*c = Content{typ: c.typ, registry: c.registry, hasBody: true, body: body}
	return nil
}

func (c *Content) SetType(typ string) {
	c.typ = typ
	c.derived, c.derivedErr = false, nil
	if c.hasBody {
		c.data = nil
	} else {
		c.body = nil
	}
}
