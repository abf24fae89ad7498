package cookie

import (
	"sort"
	"sync"
	"time"
)

// Jar is the store a client shares between its requests.
type Jar interface {
	// GetCookies returns the cookies to send for an access.
	GetCookies(a AccessInfo) []*Cookie
	// SetCookies stores cookies and returns the ones that took effect.
	// Cookies that only removed an entry are not returned.
	SetCookies(cookies []*Cookie) []*Cookie
}

// MemoryJar keeps cookies in memory, keyed by name. Each name holds a list
// of cookies with mutually non-colliding scopes.
type MemoryJar struct {
	mu      sync.Mutex
	cookies map[string][]*Cookie
	now     func() time.Time
}

func NewJar() *MemoryJar {
	return &MemoryJar{cookies: map[string][]*Cookie{}, now: time.Now}
}

// SetCookie stores c. An existing cookie of the same name whose scope
// collides with c is replaced, or removed if c is already expired. The
// second return value is false when nothing was stored.
func (j *MemoryJar) SetCookie(c *Cookie) (*Cookie, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cookies == nil {
		j.cookies = map[string][]*Cookie{}
	}
	remove := c.Expired(j.clock())
	list := j.cookies[c.Name]
	for i, existing := range list {
		if !existing.CollidesWith(c.scope()) {
			continue
		}
		if remove {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(j.cookies, c.Name)
			} else {
				j.cookies[c.Name] = list
			}
			return nil, false
		}
		list[i] = c
		return c, true
	}
	if remove {
		return nil, false
	}
	j.cookies[c.Name] = append(list, c)
	return c, true
}

func (j *MemoryJar) SetCookies(cookies []*Cookie) []*Cookie {
	var ok []*Cookie
	for _, c := range cookies {
		if c == nil {
			continue
		}
		if set, stored := j.SetCookie(c); stored {
			ok = append(ok, set)
		}
	}
	return ok
}

// GetCookie returns the first live cookie named name matching a. Expired
// cookies met on the way are evicted.
func (j *MemoryJar) GetCookie(name string, a AccessInfo) *Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.getLocked(name, a)
}

func (j *MemoryJar) getLocked(name string, a AccessInfo) *Cookie {
	now := j.clock()
	list := j.cookies[name]
	for i := 0; i < len(list); i++ {
		c := list[i]
		if c.Expired(now) {
			list = append(list[:i], list[i+1:]...)
			i--
			continue
		}
		if c.Matches(a) {
			j.store(name, list)
			return c
		}
	}
	j.store(name, list)
	return nil
}

func (j *MemoryJar) store(name string, list []*Cookie) {
	if len(list) == 0 {
		delete(j.cookies, name)
	} else {
		j.cookies[name] = list
	}
}

// GetCookies returns at most one cookie per name, ordered by name.
func (j *MemoryJar) GetCookies(a AccessInfo) []*Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	names := make([]string, 0, len(j.cookies))
	for name := range j.cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []*Cookie
	for _, name := range names {
		if c := j.getLocked(name, a); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Len counts stored cookies, expired ones included until evicted.
func (j *MemoryJar) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, list := range j.cookies {
		n += len(list)
	}
	return n
}

func (j *MemoryJar) clock() time.Time {
	if j.now == nil {
		return time.Now()
	}
	return j.now()
}

type discard struct{}

func (discard) GetCookies(AccessInfo) []*Cookie  { return nil }
func (discard) SetCookies(c []*Cookie) []*Cookie { return nil }

// Discard neither stores nor returns cookies. Set it on a single request to
// opt out of the client's shared jar.
var Discard Jar = discard{}
