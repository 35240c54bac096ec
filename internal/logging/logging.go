package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// DefaultLevel is used when no level or an unknown level is configured
const DefaultLevel = "warn"

// New builds the named logger used across apispectre. Output defaults to stderr
// so reports written to stdout stay machine-readable.
func New(name, level string, out io.Writer) hclog.Logger {
	if out == nil {
		out = os.Stderr
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Output: out,
		Level:  ParseLevel(level),
	})
}

// ParseLevel maps trace, debug, info, warn, error and off to hclog levels
func ParseLevel(level string) hclog.Level {
	l := hclog.LevelFromString(level)
	if l == hclog.NoLevel {
		return hclog.LevelFromString(DefaultLevel)
	}
	return l
}

// LevelFor picks the level implied by the verbose and debug flags unless an
// explicit level was configured.
func LevelFor(explicit string, verbose, debug bool) string {
	switch {
	case explicit != "":
		return explicit
	case debug:
		return "debug"
	case verbose:
		return "info"
	default:
		return DefaultLevel
	}
}
