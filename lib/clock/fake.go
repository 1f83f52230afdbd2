// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time moves only on Advance. Safe for
// concurrent use.
//
// AfterFunc callbacks run synchronously inside Advance, in deadline
// order, without the clock's lock held. A callback may arm new timers
// but must not call Advance.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*pendingTimer
	changed *sync.Cond
}

type pendingTimer struct {
	deadline time.Time
	interval time.Duration // non-zero for tickers
	channel  chan time.Time
	callback func()
	done     bool // fired (one-shot) or stopped
}

// Fake returns a FakeClock reading initial until advanced.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After returns a channel that receives once the clock passes now+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	channel := make(chan time.Time, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.addLocked(&pendingTimer{deadline: c.now.Add(d), channel: channel})
	return channel
}

// AfterFunc schedules f for now+d. A non-positive d runs f before
// AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{stop: func() bool { return false }}
	}
	c.mu.Lock()
	timer := &pendingTimer{deadline: c.now.Add(d), callback: f}
	c.addLocked(timer)
	c.mu.Unlock()
	return &Timer{stop: func() bool { return c.cancel(timer) }}
}

// NewTicker returns a ticker firing every d of fake time.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	channel := make(chan time.Time, 1)
	c.mu.Lock()
	timer := &pendingTimer{deadline: c.now.Add(d), interval: d, channel: channel}
	c.addLocked(timer)
	c.mu.Unlock()
	return &Ticker{C: channel, stop: func() { c.cancel(timer) }}
}

// Advance moves the clock forward by d and fires everything whose
// deadline is reached, earliest first. A ticker spanning several
// intervals fires once per interval; sends that find the channel full
// are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.takeDue(target)
		if len(due) == 0 {
			return
		}
		for _, timer := range due {
			if timer.callback != nil {
				timer.callback()
				continue
			}
			select {
			case timer.channel <- target:
			default:
			}
		}
	}
}

// WaitForTimers blocks until at least n timers, tickers, or After
// channels are armed.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.armedLocked() < n {
		c.changed.Wait()
	}
}

// PendingCount reports how many timers are currently armed.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armedLocked()
}

func (c *FakeClock) addLocked(timer *pendingTimer) {
	c.pending = append(c.pending, timer)
	c.changed.Broadcast()
}

func (c *FakeClock) cancel(timer *pendingTimer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timer.done {
		return false
	}
	timer.done = true
	return true
}

func (c *FakeClock) armedLocked() int {
	count := 0
	for _, timer := range c.pending {
		if !timer.done {
			count++
		}
	}
	return count
}

// takeDue removes expired one-shot timers, reschedules tickers, and
// returns what should fire in deadline order.
func (c *FakeClock) takeDue(target time.Time) []*pendingTimer {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, keep []*pendingTimer
	for _, timer := range c.pending {
		switch {
		case timer.done:
		case timer.deadline.After(target):
			keep = append(keep, timer)
		default:
			due = append(due, timer)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})

	// Tickers fire once per pass and are re-queued at their next
	// deadline; the outer Advance loop picks up further intervals.
	for _, timer := range due {
		if timer.interval > 0 {
			timer.deadline = timer.deadline.Add(timer.interval)
			keep = append(keep, timer)
		} else {
			timer.done = true
		}
	}
	c.pending = keep
	return due
}
