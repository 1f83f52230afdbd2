// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audio plays the sounds the operator console pushes to the
// client.
//
// The [Engine] manages three independent kinds of resource:
//
//   - ambient beds, keyed by sound id, looping until stopped
//   - presets, keyed by integer index, played once with progress
//     reports sent back on audio:preset-progress
//   - one voice (TTS) clip at a time
//
// At most one resource is live per key. Starting a resource on an
// occupied key stops and discards the previous one first.
//
// Gains come from three buses in [0,1]: master, voice, and ambient.
// Presets play at the master gain. Voice plays at min(1, voice ×
// master). An ambient bed plays at min(1, ambient × master) unless the
// play command pinned its own volume, in which case it starts at
// min(1, pinned × master) without the ambient bus. Any bus change
// re-applies gains immediately to every live resource of the kinds it
// affects, then composing own gain × bus × master, with an unpinned
// bed's own gain being 1.
//
// While a preset plays, [Engine.Tick] reports its position (only while
// connected). When one finishes on its own, Tick sends a final report
// with ended set and discards it. [Engine.Run] calls Tick on a ticker.
//
// Playback faults are logged and swallowed: a clip that fails to
// decode or start is simply absent. Malformed commands are ignored.
// Disabling the engine stops everything and ignores play commands
// until it is enabled again, which re-announces the audio player to
// the console.
//
// Actual sound output is behind the [Backend] interface;
// lib/audio/speaker provides the ebiten implementation.
package audio
