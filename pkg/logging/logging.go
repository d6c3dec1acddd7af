// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Settings struct {
	Level      string `mapstructure:"log-level" yaml:"log-level"`
	File       string `mapstructure:"log-file" yaml:"log-file"`
	WithCaller bool   `mapstructure:"with-caller" yaml:"with-caller"`
}

// DefaultLogFile is where the TUI logs while it owns the terminal.
func DefaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "remoni.log"
	}
	return filepath.Join(dir, "remoni", "remoni.log")
}

func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	l, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", s)
	}
	return l, nil
}

// NewLogger builds a logger writing to w: a console writer for terminals, or
// plain JSON lines otherwise.
func NewLogger(s Settings, w io.Writer, console bool) (zerolog.Logger, error) {
	level, err := ParseLevel(s.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}

// InitLogger replaces the global logger. With a log file the output is JSON lines
// appended to it, otherwise a console writer on stderr. The returned function
// closes the file, if any.
func InitLogger(s Settings) (func() error, error) {
	level, err := ParseLevel(s.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)

	if s.File == "" {
		l, err := NewLogger(s, os.Stderr, true)
		if err != nil {
			return nil, err
		}
		log.Logger = l
		return func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.File), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log directory")
	}
	f, err := os.OpenFile(s.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "open log file %s", s.File)
	}
	l, err := NewLogger(s, f, false)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	log.Logger = l
	return f.Close, nil
}
