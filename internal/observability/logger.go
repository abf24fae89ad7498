package observability

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger returns a logger writing JSON lines to stderr. Unknown levels
// fall back to info, "disabled" turns logging off.
func NewLogger(level string) *zerolog.Logger {
	return NewLoggerTo(os.Stderr, level)
}

func NewLoggerTo(w io.Writer, level string) *zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "trace":
		lvl = zerolog.TraceLevel
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	case "disabled", "off":
		lvl = zerolog.Disabled
	}
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "shred").Logger()
	return &logger
}

// Nop is the default client logger.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
