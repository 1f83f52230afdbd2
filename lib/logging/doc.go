// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process logger for the gamemaster
// binaries.
//
// [New] picks a handler by format: "text" and "json" force one,
// "auto" uses text when the destination is a terminal and JSON
// otherwise, so piped output stays machine-parseable. [Open] resolves
// an output name to a writer. [Tail] keeps the most recent records in
// memory for an on-screen log pane, and [Tail.Mirror] copies them to a
// log file as well.
//
// Libraries never log through the global default logger; they take a
// *slog.Logger and scope it with a component attribute.
package logging
