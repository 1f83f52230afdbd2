// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sidequest

import (
	"fmt"

	"github.com/bureau-foundation/gamemaster/lib/gamestate"
	"github.com/bureau-foundation/gamemaster/lib/schema"
)

// Registration identity.
const (
	GameID = "sidequest"
	Name   = "Sidequest"
)

// Screen names. Each doubles as the command handler id of the screen
// that registers one.
const (
	ScreenLock = "lockscreen"
	ScreenHome = "home"
	ScreenGame = "game"
)

// Operator actions.
const (
	ActionStartScreen   = "start_screen"
	ActionEnterSolution = "enter_solution"
	ActionSetCode       = "set_code"
	ActionSkipPhase     = "skip_phase"
	ActionAddPoints     = "add_points"
	ActionRemovePoints  = "remove_points"
	ActionReset         = schema.ActionReset
)

// Workflow steps reported in workflowStep.
const (
	StepReset       = "reset"
	StepLocked      = "locked"
	StepUnlocked    = "unlocked"
	StepGameRunning = "game_running"
	StepUnknown     = "unknown"
)

// PhaseCount is the number of distinct transfer tasks.
const PhaseCount = 6

const emptyPasswordPlaceholder = "(vide)"

// Actions returns the operator action manifest sent on registration.
func Actions() []schema.Action {
	return []schema.Action{
		{ID: ActionStartScreen, Label: "Activer l'écran (ARIA méchante)"},
		{ID: ActionEnterSolution, Label: "Entrer la solution"},
		{ID: ActionSkipPhase, Label: "Force Finish Task"},
		{ID: ActionAddPoints, Label: "+1 Point"},
		{ID: ActionRemovePoints, Label: "-1 Point"},
		{ID: ActionReset, Label: "Reset"},
	}
}

// Defaults returns the state of a freshly reset room.
func Defaults() gamestate.State {
	return gamestate.State{
		"currentScreen":     ScreenLock,
		"startScreen":       false,
		"isPasswordCorrect": false,
		"passwordEntered":   "",
		"score":             0,
		"phase":             0,
		"in_progress":       false,
	}
}

// Derive computes the presentation fields the operator console shows.
// It is a [gamestate.DeriveFunc].
func Derive(raw gamestate.State) gamestate.State {
	screen := raw.String("currentScreen")
	started := raw.Bool("startScreen")
	correct := raw.Bool("isPasswordCorrect")
	entered := raw.String("passwordEntered")

	derived := gamestate.State{
		"workflowStep":  workflowStep(screen, started, correct, raw.Bool("in_progress")),
		"displayScreen": displayScreen(screen, started, raw.Int("phase")),
		"codeStatus":    codeStatus(correct, entered),
	}
	if entered == "" {
		derived["passwordEntered"] = emptyPasswordPlaceholder
	}
	return derived
}

func workflowStep(screen string, started, correct, inProgress bool) string {
	switch {
	case screen == ScreenLock && !started:
		return StepReset
	case screen == ScreenLock && !correct:
		return StepLocked
	case screen == ScreenHome:
		return StepUnlocked
	case screen == ScreenGame && inProgress:
		return StepGameRunning
	default:
		return StepUnknown
	}
}

func displayScreen(screen string, started bool, phase int) string {
	switch screen {
	case ScreenLock:
		if started {
			return "Écran de connexion"
		}
		return "Écran noir"
	case ScreenHome:
		return "Écran d'accueil"
	case ScreenGame:
		return fmt.Sprintf("Jeu - Phase %d/%d", phase, PhaseCount)
	default:
		return "État inconnu"
	}
}

func codeStatus(correct bool, entered string) string {
	switch {
	case correct:
		return "Correct"
	case entered != "":
		return "En saisie"
	default:
		return "En attente"
	}
}
