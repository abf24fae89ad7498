// Package dialer exposes the connection layer of a shred client.
package dialer

import (
	"github.com/frankli0324/go-shred/internal/dialer"
	"github.com/frankli0324/go-shred/internal/http"
)

// Dialers are responsible for creating underlying streams that requests could
// be written to and responses could be read from. for example, opening a raw TCP
// connection for HTTP/1.1 requests, or sharing one h2 connection between hops.
//
// A Dialer MUST NOT hold active exchange states, which means a Dialer must be
// able to be swapped out from a client with UseDialer without pain. It SHOULD
// hold the connection related configs like [ProxyConfig] or *[crypto/tls.Config].
type Dialer = http.Dialer

// CoreDialer is the default implementation of the [Dialer] interface. It would
// be used by a zero value client.
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig

// we need a dedicated resolver for two scenarios:
//
//  1. Resolve remote address locally in proxied requests
//  2. to customize the DNS server used for resolving hostname
//
// the standard library only follows the system configuration
// (e.g. /etc/resolv.conf) leaving us the [net.Resolver.Dial] hook
// with a Go Resolver, which is what this config drives.
type ResolveConfig = dialer.ResolveConfig

func New() *CoreDialer { return dialer.New() }

// ProxyFromEnvironment reads HTTP_PROXY, HTTPS_PROXY and NO_PROXY once, for
// use as [CoreDialer.GetProxy].
var ProxyFromEnvironment = dialer.ProxyFromEnvironment
