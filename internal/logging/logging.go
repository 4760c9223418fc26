// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package logging constructs the logiface loggers used throughout the module.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/rs/zerolog"
)

const (
	// FormatConsole writes human-readable lines via zerolog's console writer.
	FormatConsole = `console`
	// FormatJSON writes one JSON object per line via stumpy.
	FormatJSON = `json`
)

// Options configures New.
type Options struct {
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// Level is parsed by ParseLevel, and defaults to info.
	Level string
	// Format is one of FormatConsole (default) or FormatJSON.
	Format string
}

// New builds a generic logger from opts.
func New(opts Options) (*logiface.Logger[logiface.Event], error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	switch strings.ToLower(opts.Format) {
	case ``, FormatConsole:
		z := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: `15:04:05.000`}).
			Level(zerolog.TraceLevel).
			With().
			Timestamp().
			Logger()
		return logiface.New[*Event](
			WithZerolog(z),
			logiface.WithLevel[*Event](level),
		).Logger(), nil

	case FormatJSON:
		return stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(w)),
			stumpy.L.WithLevel(level),
		).Logger(), nil

	default:
		return nil, fmt.Errorf("logging: unsupported format %q", opts.Format)
	}
}

// ParseLevel converts a level name into a logiface.Level. The empty string
// maps to info, and "off" or "disabled" disables logging.
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ``, `info`, `informational`:
		return logiface.LevelInformational, nil
	case `trace`:
		return logiface.LevelTrace, nil
	case `debug`:
		return logiface.LevelDebug, nil
	case `notice`:
		return logiface.LevelNotice, nil
	case `warn`, `warning`:
		return logiface.LevelWarning, nil
	case `err`, `error`:
		return logiface.LevelError, nil
	case `crit`, `critical`:
		return logiface.LevelCritical, nil
	case `off`, `disabled`, `none`:
		return logiface.LevelDisabled, nil
	default:
		return logiface.LevelDisabled, fmt.Errorf("logging: unknown level %q", s)
	}
}
