// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// NewHandler returns a handler writing to w in the given format.
func NewHandler(level, format string, w io.Writer) (slog.Handler, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: parsed}
	switch format {
	case "text":
		return slog.NewTextHandler(w, options), nil
	case "json":
		return slog.NewJSONHandler(w, options), nil
	case "", "auto":
		if isTerminal(w) {
			return slog.NewTextHandler(w, options), nil
		}
		return slog.NewJSONHandler(w, options), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// New returns a logger writing to w in the given format.
func New(level, format string, w io.Writer) (*slog.Logger, error) {
	handler, err := NewHandler(level, format, w)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

// Open resolves a log destination: "" or "stderr" is standard error,
// "stdout" is standard output, anything else is a file opened for
// appending. The returned close function is a no-op for the standard
// streams.
func Open(output string) (io.Writer, func() error, error) {
	switch output {
	case "", "stderr":
		return os.Stderr, func() error { return nil }, nil
	case "stdout":
		return os.Stdout, func() error { return nil }, nil
	}
	file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	return file, file.Close, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
