// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sidequest is the escape-room game driven by the operator
// console: a password lock screen, a short intro, then an endless run
// of transfer tasks the players complete for points.
//
// The package has no rendering. Each screen is a controller that owns
// its timers, registers a command handler under its own name while it
// is active, and reports progress through a [Host] (in production the
// lib/gamemaster client). [App] moves between screens the way the
// players would and returns to the lock screen when the operator
// resets the room.
//
// [Defaults] and [Derive] describe the state the operator sees:
//
//	currentScreen      lockscreen | home | game
//	startScreen        lock screen lit (false means a black screen)
//	isPasswordCorrect  solution accepted
//	passwordEntered    text currently in the password field
//	score              packages transferred
//	phase              current task, 1..6 (0 before the first)
//	in_progress        a task run has started
//
// Derive adds workflowStep, displayScreen and codeStatus, and replaces
// an empty passwordEntered with a placeholder for display.
package sidequest
