// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gamestate holds the client's single authoritative state
// object and keeps the operator console's copy in step with it.
//
// An [Aggregator] owns a raw [State] created from defaults. Every
// [Aggregator.Update] shallow-merges a partial state (keys present in
// the partial overwrite, absent keys persist), recomputes the derived
// presentation fields from the raw snapshot, and publishes the raw
// snapshot overlaid with the derived fields. Derived fields are never
// stored in the raw snapshot, so they cannot drift from the fields
// they are computed from. Each update publishes once; nothing is
// batched or debounced.
//
// [Aggregator.Reset] replaces the raw snapshot with a fresh copy of the
// defaults and publishes that.
//
// Merges are atomic: an observer never sees a half-applied partial.
// Publication and watcher notification happen in merge order, outside
// the state lock, so watchers may read the aggregator but must not
// call Update or Reset.
package gamestate
