// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gamemaster is the client a game uses to talk to the
// operator console. A [Client] wires one transport session to the
// command router, the state aggregator, the event emitter, and the
// audio engine, and is passed explicitly to whatever drives the game
// (see lib/sidequest).
//
// Typical use:
//
//	client, err := gamemaster.New(gamemaster.Options{...})
//	go client.Run(ctx)
//	if err := client.WaitReady(ctx); err != nil { ... }
//	client.Register(gameID, name, actions, "")
//	client.OnReset(app.Reload)
//
// Inbound commands fan out to every registered screen handler. After
// the fan-out, a reset command restores the state defaults and then
// runs the reset hooks, which is where the game starts over.
package gamemaster
