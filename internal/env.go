package internal

import (
	"github.com/frankli0324/go-shred/internal/config"
	"github.com/frankli0324/go-shred/internal/cookie"
	"github.com/frankli0324/go-shred/internal/dialer"
	"github.com/frankli0324/go-shred/internal/observability"
	"github.com/frankli0324/go-shred/utils/netpool"
)

// NewFromEnv builds a client from the SHRED_* environment variables. The
// persistent jar, when configured, is returned so the caller can Save it.
func NewFromEnv() (*Client, *cookie.PersistentJar, error) {
	return NewFromConfig(config.FromEnv())
}

func NewFromConfig(env config.Config) (*Client, *cookie.PersistentJar, error) {
	d := dialer.New()
	if env.DNSServer != "" {
		d.ResolveConfig.CustomDNSServer = env.DNSServer
	}
	if env.ProxyFromEnv {
		d.GetProxy = dialer.ProxyFromEnvironment()
	}
	if env.DisableH2 {
		d.DisableH2()
	}
	cfg := Config{
		Logger:       observability.NewLogger(env.LogLevel),
		LogCurl:      env.LogCurl,
		MaxRedirects: env.MaxRedirects,
		UserAgent:    env.UserAgent,
		Dialer:       d,
		Defaults: Options{
			Timeout:       env.Timeout,
			SocketTimeout: env.SocketTimeout,
			SkipTLSVerify: !env.SSLStrict,
		},
	}
	if env.MaxConnsPerHost > 0 && env.MaxIdlePerHost >= 0 {
		cfg.Agent = netpool.NewGroup(uint(env.MaxConnsPerHost), uint(env.MaxIdlePerHost))
	}
	if env.Metrics {
		cfg.Metrics = observability.NewMetrics()
	}
	var jar *cookie.PersistentJar
	if env.CookieFile != "" {
		var err error
		if jar, err = cookie.NewPersistentJar(env.CookieFile); err != nil {
			return nil, nil, err
		}
		cfg.Jar = jar
	}
	return New(cfg), jar, nil
}
