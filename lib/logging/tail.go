// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
)

// Line is one record kept by a [Tail].
type Line struct {
	Time    time.Time
	Level   slog.Level
	Summary string
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	lines []Line
}

// Tail is a slog.Handler that keeps the most recent records in
// memory, formatted as "message (key=value, ...)" with group names
// prefixed to keys. Handlers derived
// with WithAttrs and WithGroup share one buffer. Handle never blocks
// on a reader, so it is safe to log while holding locks a renderer
// might need.
type Tail struct {
	level  slog.Level
	buffer *tailBuffer
	attrs  []string
	groups []string
}

// NewTail returns a handler keeping the last limit records at or
// above level.
func NewTail(level slog.Level, limit int) *Tail {
	return &Tail{level: level, buffer: &tailBuffer{limit: max(1, limit)}}
}

// Lines returns the kept records, oldest first.
func (handler *Tail) Lines() []Line {
	handler.buffer.mu.Lock()
	defer handler.buffer.mu.Unlock()
	return slices.Clone(handler.buffer.lines)
}

// Enabled implements slog.Handler.
func (handler *Tail) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle implements slog.Handler.
func (handler *Tail) Handle(_ context.Context, record slog.Record) error {
	parts := slices.Clone(handler.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, handler.format(attr))
		return true
	})
	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}

	buffer := handler.buffer
	buffer.mu.Lock()
	defer buffer.mu.Unlock()
	buffer.lines = append(buffer.lines, Line{Time: record.Time, Level: record.Level, Summary: summary})
	if excess := len(buffer.lines) - buffer.limit; excess > 0 {
		buffer.lines = slices.Delete(buffer.lines, 0, excess)
	}
	return nil
}

func (handler *Tail) format(attr slog.Attr) string {
	key := attr.Key
	if len(handler.groups) > 0 {
		key = strings.Join(handler.groups, ".") + "." + key
	}
	return key + "=" + attr.Value.String()
}

// WithAttrs implements slog.Handler.
func (handler *Tail) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *handler
	derived.attrs = slices.Clone(handler.attrs)
	for _, attr := range attrs {
		derived.attrs = append(derived.attrs, handler.format(attr))
	}
	return &derived
}

// WithGroup implements slog.Handler.
func (handler *Tail) WithGroup(name string) slog.Handler {
	derived := *handler
	derived.groups = append(slices.Clone(handler.groups), name)
	return &derived
}
