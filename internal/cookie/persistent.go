package cookie

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	cookiejar "github.com/juju/persistent-cookiejar"
	"golang.org/x/net/publicsuffix"
)

// PersistentJar stores cookies in a file through persistent-cookiejar. It
// follows RFC 6265 domain rules backed by the public suffix list instead of
// the collision rules of [MemoryJar], and it can't tell httponly cookies
// apart on read, so [AccessInfo.Script] is not honored.
type PersistentJar struct {
	jar *cookiejar.Jar
}

// NewPersistentJar loads the jar from filename. An empty filename keeps the
// jar in memory only.
func NewPersistentJar(filename string) (*PersistentJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{
		Filename:         filename,
		NoPersist:        filename == "",
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, err
	}
	return &PersistentJar{jar: jar}, nil
}

func accessURL(domain, path string, secure bool) *url.URL {
	u := &url.URL{Scheme: "http", Host: strings.TrimPrefix(domain, "."), Path: path}
	if secure {
		u.Scheme = "https"
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u
}

func (p *PersistentJar) GetCookies(a AccessInfo) []*Cookie {
	if a.Domain == "" {
		return nil
	}
	std := p.jar.Cookies(accessURL(a.Domain, a.Path, a.Secure))
	out := make([]*Cookie, 0, len(std))
	for _, c := range std {
		out = append(out, &Cookie{Name: c.Name, Value: c.Value, Domain: a.Domain, Path: a.Path})
	}
	return out
}

func (p *PersistentJar) SetCookies(cookies []*Cookie) []*Cookie {
	now := time.Now()
	var ok []*Cookie
	for _, c := range cookies {
		if c == nil || c.Domain == "" {
			continue
		}
		std := &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}
		if c.explicitDomain {
			std.Domain = c.Domain
		}
		if c.Expired(now) {
			std.MaxAge = -1
		} else {
			ok = append(ok, c)
		}
		p.jar.SetCookies(accessURL(c.Domain, c.Path, c.Secure), []*http.Cookie{std})
	}
	return ok
}

// Save writes the jar to its file.
func (p *PersistentJar) Save() error {
	return p.jar.Save()
}
