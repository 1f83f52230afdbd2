// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for every timer in the gamemaster
// client: reconnect backoff waits, the delayed state replay after a
// reconnect, heartbeat pings, preset progress ticks, and the screen
// timers of the Sidequest controllers.
//
// Production code receives Real(). Tests receive Fake(), whose time
// only moves when the test calls Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	session := transport.New(transport.Config{Clock: c, ...})
//	go session.Run(ctx)
//	c.WaitForTimers(1)          // the reconnect wait is registered
//	c.Advance(10 * time.Second) // and now it fires
//
// WaitForTimers closes the race between a goroutine arming a timer and
// the test advancing past it.
package clock
