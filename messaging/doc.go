// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging sends one-shot notifications to the operator
// console and carries free-form game messages in both directions.
//
// [Emitter.SendEvent] writes a named event immediately. Delivery is
// at-most-once: there is no acknowledgement or retry, and an event
// emitted while the transport is disconnected is dropped rather than
// queued for the next connection. While connected, events keep the
// transport's send order.
//
// [Emitter.SendMessage] and [Emitter.OnMessage] use the game-message
// channel, whose payload the client does not interpret.
package messaging
