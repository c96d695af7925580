// Package logging sets up the process-wide zerolog logger
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures the root logger
type Options struct {
	Level  string
	Format string // console or json
	File   string // empty logs to stderr
	Writer io.Writer
}

var (
	once sync.Once
	root atomic.Pointer[zerolog.Logger]
)

// New builds a logger from opt without touching the process-wide root
func New(opt Options) zerolog.Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.ToLower(opt.Format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime, NoColor: opt.Writer != nil || opt.File != ""}
	}
	return zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp().Logger()
}

// Init configures the root logger once. When File is set the log is
// appended there and the open file is returned so the caller can close it.
func Init(opt Options) (io.Closer, error) {
	var (
		closer io.Closer = io.NopCloser(nil)
		err    error
	)
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		if opt.File != "" && opt.Writer == nil {
			f, openErr := os.OpenFile(opt.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if openErr != nil {
				err = errors.Wrapf(openErr, "failed to open log file %s", opt.File)
				return
			}
			opt.Writer = f
			closer = f
		}

		log := New(opt)
		root.Store(&log)
	})
	return closer, err
}

// Get returns the root logger, initialising a console logger on first use
func Get() *zerolog.Logger {
	if l := root.Load(); l != nil {
		return l
	}
	_, _ = Init(Options{Level: "info"})
	if l := root.Load(); l != nil {
		return l
	}
	nop := zerolog.Nop()
	return &nop
}

// Named returns a child of the root logger tagged with component
func Named(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// ParseLevel maps a level name to zerolog, defaulting to info
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
