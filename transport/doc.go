// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport maintains the client's single persistent websocket
// connection to the gamemaster operator console.
//
// A [Session] owns at most one live connection at a time. [Session.Run]
// dials, serves the connection until it drops, then waits out an
// exponential backoff with jitter (cenkalti/backoff) before dialling
// again. Reconnection is unbounded by default; a positive
// [Backoff.MaxAttempts] turns on bounded mode, in which Run returns
// [ErrReconnectExhausted] once that many consecutive reconnect attempts
// have failed.
//
// Every successful connection, initial or not, replays two things
// without caller involvement: the registration payload stored by
// [Session.Register] is written before any other frame, and the latest
// non-empty snapshot stored by [Session.SendState] follows on the
// state_update channel after [Config.StateReplayDelay], giving the
// console time to process the registration first.
//
// Frames are encoded with a lib/codec Codec. The preferred codec is
// offered as the first websocket subprotocol; whatever the console
// accepts is used for outbound frames. Inbound text frames decode as
// JSON and binary frames as CBOR, so a console may answer in either.
//
// [Session.Send] never queues. While disconnected it returns
// [ErrNotConnected] and the message is lost. While connected, frames
// written from any goroutine go out in call order.
//
// Inbound frames are dispatched on the read goroutine, one at a time
// in arrival order, to the handlers subscribed with [Session.OnReceive]
// in subscription order. A panicking handler is logged and skipped.
//
// All scheduling (backoff waits, the state replay, heartbeat pings)
// goes through an injected lib/clock Clock so tests drive time
// explicitly. Lifecycle transitions are logged on the injected
// *slog.Logger: connecting, connected, disconnected, reconnect attempt,
// reconnected, and reconnect exhausted.
package transport
