// Package logging builds the service logger and carries request IDs.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pysugar/oauth-connect/internal/version"
	"github.com/rs/zerolog"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"

	serviceName = "oauth-connect"
)

// New returns the root logger. Unknown levels fall back to info and any
// format other than "console" writes JSON lines.
func New(level, format string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if strings.EqualFold(format, FormatConsole) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", version.Version).
		Logger()
}
