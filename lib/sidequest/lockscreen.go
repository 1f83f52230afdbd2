// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sidequest

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/gamemaster/lib/clock"
)

// Events emitted by the lock screen.
const (
	EventPasswordAttempt   = "password_attempt"
	EventPasswordCorrect   = "password_correct"
	EventPasswordIncorrect = "password_incorrect"
)

// LockScreen gates the room behind the solution password. The operator
// can light the screen, type a code into the field character by
// character, or enter the solution outright.
//
// While a code is being typed out, local input and submissions are
// ignored and the field is not reported upstream until the last
// character lands.
type LockScreen struct {
	host     Host
	clock    clock.Clock
	logger   *slog.Logger
	solution string
	interval time.Duration
	unlocked func()

	mu      sync.Mutex
	active  bool
	entered string
	typing  bool
	timer   *clock.Timer

	// generation invalidates typing callbacks from an earlier run.
	generation uint64
}

func (l *LockScreen) activate() {
	l.mu.Lock()
	l.active = true
	l.entered = ""
	l.typing = false
	l.generation++
	l.mu.Unlock()

	l.host.UpdateState(map[string]any{"currentScreen": ScreenLock})
	l.host.RegisterCommandHandler(ScreenLock, l.handle)
}

func (l *LockScreen) deactivate() {
	l.mu.Lock()
	l.active = false
	l.stopTypingLocked()
	l.mu.Unlock()
	l.host.UnregisterCommandHandler(ScreenLock)
}

func (l *LockScreen) handle(action string, payload map[string]any) {
	switch action {
	case ActionStartScreen:
		l.logger.Info("lock screen lit")
		l.host.UpdateState(map[string]any{"startScreen": true})
	case ActionSetCode:
		code, ok := codeFrom(payload)
		if !ok {
			l.logger.Debug("set_code without a code")
			return
		}
		l.typeOut(code, false)
	case ActionEnterSolution:
		code, ok := codeFrom(payload)
		if !ok {
			code = l.solution
		}
		l.typeOut(code, true)
	case ActionReset:
		l.mu.Lock()
		l.stopTypingLocked()
		l.entered = ""
		l.mu.Unlock()
		l.syncEntered("")
	}
}

// Input replaces the field contents, as a player typing would.
func (l *LockScreen) Input(text string) {
	l.mu.Lock()
	if !l.active || l.typing {
		l.mu.Unlock()
		return
	}
	l.entered = text
	l.mu.Unlock()
	l.syncEntered(text)
}

// Entered returns the field contents.
func (l *LockScreen) Entered() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entered
}

// Typing reports whether an operator code is still being typed out.
func (l *LockScreen) Typing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.typing
}

// Submit checks the field against the solution and reports whether it
// matched. A correct password unlocks the room and moves on to the
// intro; a wrong one clears the field. Submissions while inactive or
// typing are ignored and report false.
func (l *LockScreen) Submit() bool {
	l.mu.Lock()
	if !l.active || l.typing {
		l.mu.Unlock()
		return false
	}
	attempt := l.entered
	correct := attempt == l.solution
	if !correct {
		l.entered = ""
	}
	l.mu.Unlock()

	l.host.SendEvent(EventPasswordAttempt, map[string]any{
		"passwordEntered": attempt,
		"isCorrect":       correct,
	})
	if !correct {
		l.logger.Info("wrong password")
		l.host.SendEvent(EventPasswordIncorrect, map[string]any{
			"isPasswordCorrect": false,
			"passwordEntered":   attempt,
		})
		l.syncEntered("")
		return false
	}

	l.logger.Info("password accepted")
	l.host.SendEvent(EventPasswordCorrect, map[string]any{"isPasswordCorrect": true})
	l.host.UpdateState(map[string]any{
		"isPasswordCorrect": true,
		"passwordEntered":   attempt,
	})
	if l.unlocked != nil {
		l.unlocked()
	}
	return true
}

// typeOut clears the field and types code one character per interval.
// With submit set, the field is submitted once the last character is
// in.
func (l *LockScreen) typeOut(code string, submit bool) {
	l.mu.Lock()
	if !l.active {
		l.mu.Unlock()
		return
	}
	l.stopTypingLocked()
	l.entered = ""
	l.typing = true
	generation := l.generation
	l.logger.Info("typing code", "length", len([]rune(code)), "submit", submit)
	l.scheduleLocked(generation, []rune(code), submit)
	l.mu.Unlock()
}

func (l *LockScreen) scheduleLocked(generation uint64, remaining []rune, submit bool) {
	l.timer = l.clock.AfterFunc(l.interval, func() {
		l.mu.Lock()
		if l.generation != generation || !l.typing {
			l.mu.Unlock()
			return
		}
		if len(remaining) > 0 {
			l.entered += string(remaining[0])
			remaining = remaining[1:]
		}
		if len(remaining) > 0 {
			l.scheduleLocked(generation, remaining, submit)
			l.mu.Unlock()
			return
		}
		l.typing = false
		l.timer = nil
		entered := l.entered
		l.mu.Unlock()

		l.syncEntered(entered)
		if submit {
			l.Submit()
		}
	})
}

func (l *LockScreen) stopTypingLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	l.typing = false
	l.generation++
}

func (l *LockScreen) syncEntered(entered string) {
	l.host.UpdateState(map[string]any{"passwordEntered": entered})
}

// codeFrom extracts payload["code"]. Non-string values are formatted;
// an absent, nil or empty code reports false.
func codeFrom(payload map[string]any) (string, bool) {
	value, ok := payload["code"]
	if !ok || value == nil {
		return "", false
	}
	code, isString := value.(string)
	if !isString {
		code = fmt.Sprint(value)
	}
	return code, code != ""
}
