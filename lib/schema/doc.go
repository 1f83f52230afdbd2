// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the channels and payloads exchanged between a
// game client and the gamemaster operator console.
//
// Channel constants name the frames; the structs define their payload
// fields, using the camelCase field names the console expects. The
// same struct tags drive both wire encodings in lib/codec.
//
// Outbound (client to console):
//
//   - [ChannelRegister] with [Register]: identity and action list,
//     re-sent on every reconnect
//   - [ChannelStateUpdate] with [StateUpdate]: the full derived state
//   - [ChannelEvent] with [Event]: one-shot notifications
//   - [ChannelRegisterAudioPlayer]: audio capability announcement
//   - [ChannelPresetProgress] with [PresetProgress]
//
// Inbound (console to client): [ChannelCommand] with [Command], and the
// audio:* channels whose payloads are in audio.go.
//
// [ChannelGameMessage] travels both ways with a free-form payload.
//
// This package depends on no other packages of this module.
package schema
