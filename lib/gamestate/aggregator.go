// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gamestate

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
)

// DeriveFunc computes presentation fields from a raw snapshot. It must
// be a pure function of its argument and must not modify it.
type DeriveFunc func(raw State) State

// Publisher receives every published snapshot. transport.Session
// satisfies it.
type Publisher interface {
	SendState(state map[string]any) error
}

// Options configures an [Aggregator].
type Options struct {
	// Defaults is the initial raw snapshot, restored by Reset.
	Defaults State

	// Derive may be nil, in which case snapshots carry no derived
	// fields.
	Derive DeriveFunc

	// Publisher may be nil for a purely local aggregator.
	Publisher Publisher

	Logger *slog.Logger
}

// Aggregator owns the client state. Create one with [New].
type Aggregator struct {
	defaults  State
	derive    DeriveFunc
	publisher Publisher
	logger    *slog.Logger

	mu       sync.Mutex
	raw      State
	watchers []*watcher

	// publishMu is taken while mu is still held and released after
	// publication, so snapshots leave in merge order.
	publishMu sync.Mutex
}

type watcher struct {
	fn func(State)
}

// New returns an aggregator holding a copy of options.Defaults.
func New(options Options) *Aggregator {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaults := options.Defaults.Clone()
	return &Aggregator{
		defaults:  defaults,
		derive:    options.Derive,
		publisher: options.Publisher,
		logger:    logger.With("component", "gamestate"),
		raw:       defaults.Clone(),
	}
}

// Update merges partial into the raw snapshot, publishes the derived
// snapshot, and returns it.
func (a *Aggregator) Update(partial map[string]any) State {
	a.mu.Lock()
	maps.Copy(a.raw, partial)
	return a.publishLocked("update", len(partial))
}

// Reset restores the defaults, publishes, and returns the derived
// snapshot.
func (a *Aggregator) Reset() State {
	a.mu.Lock()
	a.raw = a.defaults.Clone()
	return a.publishLocked("reset", len(a.raw))
}

// Snapshot returns a copy of the raw snapshot.
func (a *Aggregator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.raw.Clone()
}

// Derived returns a copy of the raw snapshot overlaid with the derived
// fields, exactly as it would be published now.
func (a *Aggregator) Derived() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overlayLocked()
}

// Defaults returns a copy of the default snapshot.
func (a *Aggregator) Defaults() State {
	return a.defaults.Clone()
}

// Watch calls fn with every published snapshot. The returned function
// stops the notifications.
func (a *Aggregator) Watch(fn func(State)) (cancel func()) {
	w := &watcher{fn: fn}
	a.mu.Lock()
	a.watchers = append(a.watchers, w)
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.watchers = slices.DeleteFunc(a.watchers, func(candidate *watcher) bool { return candidate == w })
	}
}

// publishLocked must be called with mu held; it releases mu.
func (a *Aggregator) publishLocked(reason string, keys int) State {
	snapshot := a.overlayLocked()
	watchers := slices.Clone(a.watchers)
	a.publishMu.Lock()
	a.mu.Unlock()
	defer a.publishMu.Unlock()

	if a.publisher != nil {
		if err := a.publisher.SendState(snapshot); err != nil {
			a.logger.Debug("state not published", "reason", reason, "error", err)
		}
	}
	for _, w := range watchers {
		w.fn(snapshot.Clone())
	}
	a.logger.Debug("state published", "reason", reason, "keys", keys)
	return snapshot
}

func (a *Aggregator) overlayLocked() State {
	snapshot := a.raw.Clone()
	if a.derive != nil {
		maps.Copy(snapshot, a.derive(a.raw.Clone()))
	}
	return snapshot
}
