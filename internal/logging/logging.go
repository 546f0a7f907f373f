// Package logging builds the host's root hclog logger.
package logging

import (
	"io"
	"log"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Options configures the root logger.
type Options struct {
	// Level is one of trace, debug, info, warn, error. Unknown values mean info.
	Level string
	// Format is "text" or "json".
	Format string
	// Color enables ANSI colors on terminals; "auto", "on" or "off".
	Color string
	// Output defaults to stderr.
	Output io.Writer
}

// New creates the root logger. Sub-loggers created with Named share its
// level, so SetLevel on the root adjusts all of them.
func New(name string, opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	jsonFormat := strings.EqualFold(opts.Format, "json")
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      ParseLevel(opts.Level),
		Output:     out,
		JSONFormat: jsonFormat,
		Color:      colorOption(opts.Color, jsonFormat, out),
		TimeFormat: "2006-01-02T15:04:05.000Z0700",
	})
}

// ParseLevel maps a level name to an hclog level, defaulting to info.
func ParseLevel(s string) hclog.Level {
	switch lvl := hclog.LevelFromString(strings.TrimSpace(s)); lvl {
	case hclog.NoLevel, hclog.Off:
		return hclog.Info
	default:
		return lvl
	}
}

// Standard returns a standard library logger that writes through l. It is
// used where a *log.Logger is required, such as http.Server.ErrorLog.
func Standard(l hclog.Logger) *log.Logger {
	return l.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
}

// colorOption never colours JSON, and "auto" only colours an *os.File;
// hclog leaves colour on for writers it cannot probe for a terminal.
func colorOption(s string, jsonFormat bool, out io.Writer) hclog.ColorOption {
	if jsonFormat {
		return hclog.ColorOff
	}
	switch strings.ToLower(s) {
	case "on", "always", "force":
		return hclog.ForceColor
	case "off", "never", "false":
		return hclog.ColorOff
	default:
		if _, ok := out.(*os.File); !ok {
			return hclog.ColorOff
		}
		return hclog.AutoColor
	}
}
