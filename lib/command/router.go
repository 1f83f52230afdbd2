// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"log/slog"
	"slices"
	"sync"
)

// Handler reacts to one operator command. Payload is never nil.
type Handler func(action string, payload map[string]any)

type entry struct {
	screen  string
	handler Handler
}

// Router is an ordered registry of per-screen command handlers. The
// zero value is not usable; create one with [NewRouter].
type Router struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries []entry
}

// NewRouter returns an empty router logging on logger.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{logger: logger.With("component", "command")}
}

// Register installs handler for screen, replacing any handler that
// screen already had.
func (r *Router) Register(screen string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for index := range r.entries {
		if r.entries[index].screen == screen {
			r.entries[index].handler = handler
			r.logger.Debug("command handler replaced", "screen", screen)
			return
		}
	}
	r.entries = append(r.entries, entry{screen: screen, handler: handler})
	r.logger.Debug("command handler registered", "screen", screen, "handlers", len(r.entries))
}

// Unregister removes the handler for screen and reports whether one
// was present.
func (r *Router) Unregister(screen string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.entries)
	r.entries = slices.DeleteFunc(r.entries, func(candidate entry) bool {
		return candidate.screen == screen
	})
	removed := len(r.entries) != before
	if removed {
		r.logger.Debug("command handler unregistered", "screen", screen, "handlers", len(r.entries))
	}
	return removed
}

// Screens lists the registered screen ids in dispatch order.
func (r *Router) Screens() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	screens := make([]string, len(r.entries))
	for index, candidate := range r.entries {
		screens[index] = candidate.screen
	}
	return screens
}

// Len reports the number of registered handlers.
func (r *Router) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Dispatch calls every registered handler once, in registration order,
// and returns how many were called. A nil payload is delivered as an
// empty map. Handlers share the payload map and must not modify it.
func (r *Router) Dispatch(action string, payload map[string]any) int {
	if payload == nil {
		payload = map[string]any{}
	}
	r.mu.Lock()
	snapshot := slices.Clone(r.entries)
	r.mu.Unlock()

	r.logger.Debug("dispatching command", "action", action, "handlers", len(snapshot))
	for _, target := range snapshot {
		r.invoke(target, action, payload)
	}
	return len(snapshot)
}

func (r *Router) invoke(target entry, action string, payload map[string]any) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("command handler panicked",
				"screen", target.screen, "action", action, "panic", recovered)
		}
	}()
	target.handler(action, payload)
}
