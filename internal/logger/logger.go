// Package logger builds the zerolog loggers used by the binaries.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Options configure New.
type Options struct {
	Service string
	Level   string
	Writer  io.Writer // defaults to os.Stderr
	Pretty  *bool     // nil picks pretty output when Writer is a terminal
}

// New returns a logger tagged with the service name. Output is a console
// writer on terminals and JSON lines otherwise.
func New(opts Options) zerolog.Logger {
	if opts.Service == "" {
		opts.Service = "powfaucet"
	}
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	isTerminal := false
	if f, ok := opts.Writer.(*os.File); ok {
		isTerminal = term.IsTerminal(int(f.Fd()))
	}
	pretty := isTerminal
	if opts.Pretty != nil {
		pretty = *opts.Pretty
	}

	var w io.Writer = opts.Writer
	if pretty {
		w = consoleWriter(opts.Writer, opts.Service, !isTerminal)
	}

	logger := zerolog.New(w).With().Timestamp().Str("service", opts.Service).Logger()
	return logger.Level(ParseLevel(opts.Level))
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}

func consoleWriter(out io.Writer, service string, noColor bool) zerolog.ConsoleWriter {
	output := zerolog.ConsoleWriter{
		Out:           out,
		NoColor:       noColor,
		TimeFormat:    time.RFC3339,
		FieldsExclude: []string{"service"},
	}

	output.FormatTimestamp = func(i interface{}) string {
		parsed, err := time.Parse(time.RFC3339, fmt.Sprintf("%s", i))
		if err != nil {
			return fmt.Sprintf("%s", i)
		}
		return parsed.Format("15:04:05")
	}

	output.FormatLevel = func(i interface{}) string {
		return fmt.Sprintf("| %-6s|", strings.ToUpper(fmt.Sprintf("%s", i)))
	}

	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("| %-9s| %s", service, i)
	}

	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	return output
}
