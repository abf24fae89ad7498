package internal

import (
	"github.com/frankli0324/go-shred/internal/dialer"
	"github.com/frankli0324/go-shred/internal/http"
)

// DisableH2 stops offering h2 on every [dialer.CoreDialer] in the dialer
// chain. It reports whether one was found.
func (c *Client) DisableH2() (ok bool) {
	c.UseDialer(func(d http.Dialer) http.Dialer {
		for cd := d; cd != nil; cd = cd.Unwrap() {
			if core, isCore := cd.(*dialer.CoreDialer); isCore {
				core.DisableH2()
				ok = true
			}
		}
		return d
	})
	return
}
