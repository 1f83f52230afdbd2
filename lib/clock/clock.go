// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time package. Structs that wait, schedule, or
// tick hold a Clock instead of calling time.After, time.AfterFunc, or
// time.NewTicker directly.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After delivers the current time on the returned channel once d
	// has elapsed. A non-positive d delivers immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer cancels
	// the call.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker delivers ticks every d on the Ticker's C channel.
	// Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop cancels the pending call. Returns false when the call already
// happened or was already cancelled.
func (t *Timer) Stop() bool {
	if t == nil || t.stop == nil {
		return false
	}
	return t.stop()
}

// Ticker delivers periodic ticks on C. C has capacity 1; ticks are
// dropped while the reader is behind.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop ends the tick stream. C is not closed.
func (t *Ticker) Stop() {
	if t != nil && t.stop != nil {
		t.stop()
	}
}
