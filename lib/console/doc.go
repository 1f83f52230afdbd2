// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package console is the operator side of the gamemaster protocol: a
// websocket endpoint that game clients connect to.
//
// [Server] accepts any number of clients, negotiates the frame codec
// from the client's subprotocol list (client preference wins unless
// [Server.Prefer] names one of the offered codecs), and
// funnels every inbound frame into one channel returned by
// [Server.Inbound]. Frames go out to one client with [Server.Send] or
// to all of them with [Server.Broadcast]. [Server.KickAll] drops every
// connection abruptly, which is how tests exercise client reconnects.
//
// [Summarize] renders inbound frames as one-line operator summaries,
// and [ParseLine] turns typed operator input into outbound frames.
// Both work on the JSON rendering of a payload through tidwall/gjson,
// so they are codec-agnostic.
//
// The package backs cmd/gamemaster-mock and the transport and facade
// tests. It performs no authentication.
package console
