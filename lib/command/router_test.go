// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"slices"
	"testing"
)

func TestDispatchReachesEveryHandlerInOrder(t *testing.T) {
	for _, count := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d handlers", count), func(t *testing.T) {
			router := NewRouter(nil)
			var calls []string
			for index := range count {
				screen := fmt.Sprintf("screen-%d", index)
				router.Register(screen, func(action string, payload map[string]any) {
					calls = append(calls, screen+":"+action)
				})
			}
			if called := router.Dispatch("skip_phase", nil); called != count {
				t.Errorf("Dispatch called %d handlers, want %d", called, count)
			}
			if len(calls) != count {
				t.Fatalf("calls = %v, want %d", calls, count)
			}
			for index, call := range calls {
				if want := fmt.Sprintf("screen-%d:skip_phase", index); call != want {
					t.Errorf("call %d = %q, want %q", index, call, want)
				}
			}
		})
	}
}

func TestRegisterReplacesInPlace(t *testing.T) {
	router := NewRouter(nil)
	var calls []string
	record := func(name string) Handler {
		return func(string, map[string]any) { calls = append(calls, name) }
	}
	router.Register("lockscreen", record("lock-v1"))
	router.Register("game", record("game"))
	router.Register("lockscreen", record("lock-v2"))

	if got, want := router.Screens(), []string{"lockscreen", "game"}; !slices.Equal(got, want) {
		t.Fatalf("Screens = %v, want %v", got, want)
	}
	router.Dispatch("reset", nil)
	if want := []string{"lock-v2", "game"}; !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestUnregister(t *testing.T) {
	router := NewRouter(nil)
	router.Register("home", func(string, map[string]any) { t.Error("unregistered handler called") })
	if !router.Unregister("home") {
		t.Fatal("Unregister(home) = false")
	}
	if router.Unregister("home") {
		t.Error("second Unregister(home) = true")
	}
	if router.Dispatch("reset", nil) != 0 || router.Len() != 0 {
		t.Error("router not empty after unregister")
	}
}

func TestNilPayloadBecomesEmptyMap(t *testing.T) {
	router := NewRouter(nil)
	router.Register("game", func(_ string, payload map[string]any) {
		if payload == nil {
			t.Error("payload is nil")
		}
	})
	router.Dispatch("add_points", nil)
}

func TestMutationDuringDispatch(t *testing.T) {
	router := NewRouter(nil)
	var calls []string
	router.Register("lockscreen", func(action string, _ map[string]any) {
		calls = append(calls, "lockscreen")
		// Navigating away: unregister self, register the next screen.
		router.Unregister("lockscreen")
		router.Register("home", func(string, map[string]any) { calls = append(calls, "home") })
	})
	router.Register("global", func(string, map[string]any) { calls = append(calls, "global") })

	router.Dispatch("enter_solution", map[string]any{"code": "admin"})
	if want := []string{"lockscreen", "global"}; !slices.Equal(calls, want) {
		t.Fatalf("first dispatch calls = %v, want %v", calls, want)
	}

	calls = nil
	router.Dispatch("reset", nil)
	if want := []string{"global", "home"}; !slices.Equal(calls, want) {
		t.Errorf("second dispatch calls = %v, want %v", calls, want)
	}
}

func TestPanickingHandlerDoesNotStopFanOut(t *testing.T) {
	router := NewRouter(nil)
	reached := false
	router.Register("broken", func(string, map[string]any) { panic("boom") })
	router.Register("after", func(string, map[string]any) { reached = true })
	if called := router.Dispatch("reset", nil); called != 2 {
		t.Errorf("Dispatch = %d, want 2", called)
	}
	if !reached {
		t.Error("handler after the panicking one was skipped")
	}
}
