package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the environment's view of a client. Zero values mean the
// client defaults.
type Config struct {
	LogLevel     string
	LogCurl      bool
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	// SSLStrict defaults to true, SHRED_SSL_STRICT=0 turns verification off
	SSLStrict bool
	// CookieFile enables a persistent cookie jar saved at this path.
	CookieFile string

	MaxConnsPerHost int
	MaxIdlePerHost  int
	SocketTimeout   time.Duration

	DNSServer    string
	ProxyFromEnv bool // tunnel through HTTP(S)_PROXY
	DisableH2    bool
	Metrics      bool
}

func FromEnv() Config {
	cfg := Config{
		LogLevel:  getEnv("SHRED_LOG_LEVEL", "disabled"),
		UserAgent: getEnv("SHRED_USER_AGENT", "Shred"),
		SSLStrict: true,
	}
	cfg.LogCurl = getEnvBool("SHRED_LOG_CURL", false)
	cfg.Timeout = getEnvDuration("SHRED_TIMEOUT", 0)
	cfg.MaxRedirects = getEnvInt("SHRED_MAX_REDIRECTS", 10)
	cfg.SSLStrict = getEnvBool("SHRED_SSL_STRICT", true)
	cfg.CookieFile = getEnv("SHRED_COOKIE_FILE", "")
	cfg.MaxConnsPerHost = getEnvInt("SHRED_MAX_CONNS_PER_HOST", 100)
	cfg.MaxIdlePerHost = getEnvInt("SHRED_MAX_IDLE_PER_HOST", 80)
	cfg.SocketTimeout = getEnvDuration("SHRED_SOCKET_TIMEOUT", 0)
	cfg.DNSServer = getEnv("SHRED_DNS_SERVER", "")
	cfg.ProxyFromEnv = getEnvBool("SHRED_PROXY_FROM_ENV", false)
	cfg.DisableH2 = getEnvBool("SHRED_DISABLE_H2", false)
	cfg.Metrics = getEnvBool("SHRED_METRICS", false)
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// getEnvDuration accepts Go durations ("1.5s") or bare milliseconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
