// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ready provides a resolve-once readiness signal. Callers that
// need a component to finish initializing wait on [Signal.Done] or
// [Signal.Wait] instead of polling for it.
package ready

import (
	"context"
	"sync"
)

// Signal is resolved at most once. The zero value is ready to use.
type Signal struct {
	once sync.Once
	mu   sync.Mutex
	done chan struct{}
}

func (s *Signal) channel() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		s.done = make(chan struct{})
	}
	return s.done
}

// Resolve marks the signal ready. Later calls do nothing and report
// false.
func (s *Signal) Resolve() bool {
	resolved := false
	s.once.Do(func() {
		close(s.channel())
		resolved = true
	})
	return resolved
}

// Done returns a channel closed once the signal resolves.
func (s *Signal) Done() <-chan struct{} {
	return s.channel()
}

// Resolved reports whether Resolve has been called.
func (s *Signal) Resolved() bool {
	select {
	case <-s.channel():
		return true
	default:
		return false
	}
}

// Wait blocks until the signal resolves or ctx ends.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.channel():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
