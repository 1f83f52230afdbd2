// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"log/slog"
)

// Mirror returns a handler that keeps records in the tail and also
// writes them to file, each side filtering by its own level. A nil file
// makes the tail the only destination.
func (handler *Tail) Mirror(file slog.Handler) slog.Handler {
	if file == nil {
		return handler
	}
	return &mirror{tail: handler, file: file}
}

type mirror struct {
	tail *Tail
	file slog.Handler
}

func (m *mirror) Enabled(ctx context.Context, level slog.Level) bool {
	return m.tail.Enabled(ctx, level) || m.file.Enabled(ctx, level)
}

// Handle records into the tail first; the tail never fails, so the
// returned error is the file's.
func (m *mirror) Handle(ctx context.Context, record slog.Record) error {
	if m.tail.Enabled(ctx, record.Level) {
		m.tail.Handle(ctx, record.Clone())
	}
	if !m.file.Enabled(ctx, record.Level) {
		return nil
	}
	return m.file.Handle(ctx, record)
}

func (m *mirror) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mirror{tail: m.tail.WithAttrs(attrs).(*Tail), file: m.file.WithAttrs(attrs)}
}

func (m *mirror) WithGroup(name string) slog.Handler {
	return &mirror{tail: m.tail.WithGroup(name).(*Tail), file: m.file.WithGroup(name)}
}
