// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the shared look of the gamemaster terminal views:
// a color [Theme] and the lipgloss styles derived from it. Views own
// their layout and data; they take colors from here so the client
// monitor and any later operator view look alike.
package tui
