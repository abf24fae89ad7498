// package http contains the value types flowing between the request state
// machine and the transport: per-call options, the parameter record handed
// to a transport for a single hop, and the raw reply it gives back. the
// package name is meant to be same with the wire-level concept so that
// callers reading `http.Params` know what they're looking at.
//
// the package also contains some type and value aliases from standard
// library to avoid annoying imports
package http

import (
	"net/http"
)

var NoBody = http.NoBody

// StatusText is [net/http.StatusText], re-exported for status phrase channels.
func StatusText(code int) string { return http.StatusText(code) }
