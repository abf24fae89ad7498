// package cookie implements the cookie store shared between requests of a
// client. Cookies are scoped by domain and path; two cookies of the same
// name "collide" when their scopes could apply to the same request, and
// only one of a colliding set is kept.
package cookie

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var ErrMalformed = errors.New("cookie: malformed cookie string")

// AccessInfo describes the request a cookie would be sent with.
type AccessInfo struct {
	Domain string
	Path   string
	Secure bool
	Script bool // access from script, rejects httponly cookies
}

type Cookie struct {
	Name     string
	Value    string
	Expires  time.Time // zero means the cookie never expires
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool

	explicitPath   bool
	explicitDomain bool
}

// Parse parses a Set-Cookie value. Attributes missing from raw default to
// requestDomain and requestPath ("/" when empty).
func Parse(raw, requestDomain, requestPath string) (*Cookie, error) {
	var parts []string
	for _, p := range strings.Split(raw, ";") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil, ErrMalformed
	}
	name, value, ok := strings.Cut(parts[0], "=")
	if !ok || strings.TrimSpace(name) == "" {
		return nil, ErrMalformed
	}
	c := &Cookie{Name: strings.TrimSpace(name), Value: strings.TrimSpace(value)}

	var maxAge *int
	for _, attr := range parts[1:] {
		k, v, _ := strings.Cut(attr, "=")
		v = strings.TrimSpace(v)
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "httponly":
			c.HTTPOnly = true
		case "secure":
			c.Secure = true
		case "expires":
			if v == "" {
				continue
			}
			if t, err := http.ParseTime(v); err == nil {
				c.Expires = t
			} else if t, err := time.Parse("Mon, 02-Jan-2006 15:04:05 MST", v); err == nil {
				c.Expires = t
			} else {
				// unparsable dates expire right away, like an invalid Date would
				c.Expires = time.Unix(0, 0)
			}
		case "max-age":
			if n, err := strconv.Atoi(v); err == nil {
				maxAge = &n
			}
		case "path":
			c.Path, c.explicitPath = v, true
		case "domain":
			c.Domain = v
			c.explicitDomain = v != ""
		}
	}
	// max-age takes precedence over expires
	if maxAge != nil {
		if *maxAge <= 0 {
			c.Expires = time.Unix(0, 0)
		} else {
			c.Expires = time.Now().Add(time.Duration(*maxAge) * time.Second)
		}
	}
	if !c.explicitPath {
		c.Path = requestPath
		if c.Path == "" {
			c.Path = "/"
		}
	}
	if !c.explicitDomain {
		c.Domain = requestDomain
	}
	return c, nil
}

// Expired reports whether the cookie is expired at now.
func (c *Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// Matches reports whether the cookie should be sent for the given access.
func (c *Cookie) Matches(a AccessInfo) bool {
	if c.HTTPOnly && a.Script || c.Secure && !a.Secure {
		return false
	}
	return c.CollidesWith(a)
}

// CollidesWith reports whether the cookie's domain and path scope applies
// to the access. A cookie without an explicit domain only applies to its
// exact host; an explicit domain also covers subdomains.
func (c *Cookie) CollidesWith(a AccessInfo) bool {
	if c.Path != "" && a.Path == "" || c.Domain != "" && a.Domain == "" {
		return false
	}
	if c.Path != "" && !strings.HasPrefix(a.Path, c.Path) {
		return false
	}
	accessDomain := strings.ToLower(strings.TrimPrefix(a.Domain, "."))
	cookieDomain := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
	if cookieDomain == accessDomain {
		return true
	}
	if cookieDomain != "" {
		if !c.explicitDomain {
			return false
		}
		return strings.HasSuffix(accessDomain, "."+cookieDomain)
	}
	return true
}

func (c *Cookie) scope() AccessInfo {
	return AccessInfo{Domain: c.Domain, Path: c.Path}
}

// String renders the cookie in Set-Cookie form.
func (c *Cookie) String() string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)
	if !c.Expires.IsZero() {
		b.WriteString("; expires=")
		b.WriteString(c.Expires.UTC().Format(http.TimeFormat))
	}
	if c.Domain != "" {
		b.WriteString("; domain=")
		b.WriteString(c.Domain)
	}
	if c.Path != "" {
		b.WriteString("; path=")
		b.WriteString(c.Path)
	}
	if c.Secure {
		b.WriteString("; secure")
	}
	if c.HTTPOnly {
		b.WriteString("; httponly")
	}
	return b.String()
}

// Header appends "name=value;" pairs of cookies to an existing Cookie
// header value.
func Header(existing string, cookies []*Cookie) string {
	var b strings.Builder
	b.WriteString(existing)
	for _, c := range cookies {
		if s := b.String(); len(s) > 0 && s[len(s)-1] != ';' {
			b.WriteByte(';')
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
		b.WriteByte(';')
	}
	return b.String()
}
