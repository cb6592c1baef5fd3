// Package logging builds the zerolog logger shared by the CLI, the HTTP
// server and the library packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options select level and destinations.
type Options struct {
	// Level is one of trace, debug, info, warn, error, disabled. Empty means info.
	Level string
	// File, when set, receives JSON logs with size-based rotation.
	File string
	// JSON forces JSON output on Out even when it is a terminal.
	JSON bool
	// Out defaults to os.Stderr.
	Out io.Writer
}

// Rotation limits for File.
const (
	maxSizeMB  = 50
	maxBackups = 3
	maxAgeDays = 28
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a configured logger and a Closer for the log file (a no-op
// when no file is configured).
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if !opts.JSON && isTerminal(out) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
			MaxAge:     maxAgeDays,
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, lj)
		closer = lj
	}

	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return l, closer, nil
}

// ParseLevel maps a level name to a zerolog.Level; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return zerolog.InfoLevel, nil
	case "off":
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
