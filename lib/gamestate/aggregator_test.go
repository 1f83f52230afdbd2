// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gamestate

import (
	"errors"
	"reflect"
	"sync"
	"testing"
)

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []map[string]any
	err       error
}

func (p *recordingPublisher) SendState(state map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, state)
	return p.err
}

func (p *recordingPublisher) last() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshots[len(p.snapshots)-1]
}

func stage(raw State) State {
	if raw.Bool("running") {
		return State{"stage": "running"}
	}
	return State{"stage": "idle"}
}

func TestUpdateShallowMerges(t *testing.T) {
	aggregator := New(Options{Defaults: State{"screen": "lock", "score": 0}})
	partials := []map[string]any{
		{"score": 1},
		{"screen": "home", "note": "x"},
		{"score": 4},
	}
	want := State{"screen": "lock", "score": 0}
	for _, partial := range partials {
		aggregator.Update(partial)
		for key, value := range partial {
			want[key] = value
		}
	}
	if got := aggregator.Snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("Snapshot = %v, want %v", got, want)
	}
}

func TestDerivedFieldsOverlayOnly(t *testing.T) {
	publisher := &recordingPublisher{}
	aggregator := New(Options{
		Defaults:  State{"running": false},
		Derive:    stage,
		Publisher: publisher,
	})

	derived := aggregator.Update(map[string]any{"running": true})
	if derived["stage"] != "running" {
		t.Errorf("derived stage = %v, want running", derived["stage"])
	}
	if _, stored := aggregator.Snapshot()["stage"]; stored {
		t.Error("derived field leaked into the raw snapshot")
	}
	if publisher.last()["stage"] != "running" {
		t.Errorf("published = %v", publisher.last())
	}

	// A stale derived value supplied by a caller is overwritten.
	aggregator.Update(map[string]any{"running": false, "stage": "running"})
	if got := aggregator.Derived()["stage"]; got != "idle" {
		t.Errorf("Derived stage = %v, want idle", got)
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	aggregator := New(Options{Defaults: State{"running": true}, Derive: stage})
	first := aggregator.Derived()
	second := aggregator.Derived()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Derived not stable: %v then %v", first, second)
	}
}

func TestEveryUpdatePublishes(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("transport: not connected")}
	aggregator := New(Options{Publisher: publisher})
	for range 3 {
		aggregator.Update(map[string]any{"same": 1})
	}
	if len(publisher.snapshots) != 3 {
		t.Errorf("published %d snapshots, want 3", len(publisher.snapshots))
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	publisher := &recordingPublisher{}
	defaults := State{"screen": "lock", "score": 0}
	aggregator := New(Options{Defaults: defaults, Publisher: publisher})
	aggregator.Update(map[string]any{"screen": "game", "score": 9, "extra": true})

	aggregator.Reset()
	if got := aggregator.Snapshot(); !reflect.DeepEqual(got, defaults) {
		t.Errorf("Snapshot after reset = %v, want %v", got, defaults)
	}
	if !reflect.DeepEqual(State(publisher.last()), defaults) {
		t.Errorf("published after reset = %v", publisher.last())
	}

	// Mutating the caller's defaults or a snapshot never touches the
	// aggregator's copy.
	defaults["screen"] = "mutated"
	aggregator.Snapshot()["score"] = 100
	if got := aggregator.Defaults(); got["screen"] != "lock" || got["score"] != 0 {
		t.Errorf("Defaults = %v", got)
	}
	aggregator.Reset()
	if got := aggregator.Snapshot(); got["screen"] != "lock" || got["score"] != 0 {
		t.Errorf("Snapshot = %v", got)
	}
}

func TestWatch(t *testing.T) {
	aggregator := New(Options{Derive: stage})
	var seen []string
	cancel := aggregator.Watch(func(state State) {
		seen = append(seen, state.String("stage"))
		// Reading from a watcher is allowed.
		aggregator.Snapshot()
	})
	aggregator.Update(map[string]any{"running": true})
	aggregator.Reset()
	cancel()
	aggregator.Update(map[string]any{"running": true})

	if want := []string{"running", "idle"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("seen = %v, want %v", seen, want)
	}
}

func TestConcurrentUpdatesAreAtomic(t *testing.T) {
	publisher := &recordingPublisher{}
	aggregator := New(Options{Publisher: publisher})
	var group sync.WaitGroup
	for writer := range 8 {
		group.Go(func() {
			for range 50 {
				// Both keys always carry the same writer id; a torn
				// merge would show mismatched values.
				aggregator.Update(map[string]any{"a": writer, "b": writer})
			}
		})
	}
	group.Wait()

	for _, snapshot := range publisher.snapshots {
		if snapshot["a"] != snapshot["b"] {
			t.Fatalf("torn snapshot %v", snapshot)
		}
	}
	if len(publisher.snapshots) != 400 {
		t.Errorf("published %d snapshots, want 400", len(publisher.snapshots))
	}
}

func TestStateAccessors(t *testing.T) {
	state := State{
		"name":     "sidequest",
		"flag":     true,
		"local":    3,
		"json":     float64(4),
		"cbor":     uint64(5),
		"negative": int64(-2),
		"wrong":    "7",
	}
	if state.String("name") != "sidequest" || state.String("flag") != "" {
		t.Error("String accessor")
	}
	if !state.Bool("flag") || state.Bool("name") {
		t.Error("Bool accessor")
	}
	for key, want := range map[string]int{"local": 3, "json": 4, "cbor": 5, "negative": -2, "wrong": 0, "missing": 0} {
		if got := state.Int(key); got != want {
			t.Errorf("Int(%q) = %d, want %d", key, got, want)
		}
	}
	if State(nil).Clone() == nil {
		t.Error("Clone of nil returned nil")
	}
}
