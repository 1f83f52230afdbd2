// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sidequest

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/gamemaster/lib/clock"
	"github.com/bureau-foundation/gamemaster/lib/command"
	"github.com/bureau-foundation/gamemaster/lib/gamestate"
)

// DefaultSolution is the lock screen password.
const DefaultSolution = "admin"

// Host is what the screens need from the client. lib/gamemaster.Client
// satisfies it.
type Host interface {
	UpdateState(partial map[string]any) gamestate.State
	SendEvent(name string, data map[string]any)
	RegisterCommandHandler(screen string, handler command.Handler)
	UnregisterCommandHandler(screen string) bool
}

// Timing holds the screen delays. Zero fields take the defaults.
type Timing struct {
	// TypeInterval separates characters when the operator types a code.
	TypeInterval time.Duration

	// Terminals is how long the intro's terminal storm runs before the
	// access overlay appears; Access is how long the overlay stays up
	// before the game starts.
	Terminals time.Duration
	Access    time.Duration

	// PackageDelay is the pause between a finished task and the next.
	PackageDelay time.Duration
}

// DefaultTiming returns the delays of the installed room: 240 intro
// terminals at 8ms each plus 300ms of settling, then a 1.5s overlay.
func DefaultTiming() Timing {
	return Timing{
		TypeInterval: 150 * time.Millisecond,
		Terminals:    2220 * time.Millisecond,
		Access:       1500 * time.Millisecond,
		PackageDelay: 1500 * time.Millisecond,
	}
}

func (t Timing) withDefaults() Timing {
	defaults := DefaultTiming()
	if t.TypeInterval <= 0 {
		t.TypeInterval = defaults.TypeInterval
	}
	if t.Terminals <= 0 {
		t.Terminals = defaults.Terminals
	}
	if t.Access <= 0 {
		t.Access = defaults.Access
	}
	if t.PackageDelay <= 0 {
		t.PackageDelay = defaults.PackageDelay
	}
	return t
}

// Options configures an [App].
type Options struct {
	Host Host

	// Solution defaults to DefaultSolution.
	Solution string

	Timing Timing
	Clock  clock.Clock

	// Rand shuffles the task queue. Nil uses a randomly seeded source.
	Rand *rand.Rand

	Logger *slog.Logger
}

type screen interface {
	activate()
	deactivate()
}

// App navigates between the screens. Create one with [New], then call
// [App.Start] once the client is registered.
type App struct {
	logger *slog.Logger

	lock *LockScreen
	home *Home
	game *Game

	// switchMu serialises screen changes. It is held while screens
	// talk to the host, so readers use current instead.
	switchMu sync.Mutex
	active   screen
	current  atomic.Value
}

// New builds the screens. Nothing is active until Start.
func New(options Options) *App {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("component", "sidequest")
	appClock := options.Clock
	if appClock == nil {
		appClock = clock.Real()
	}
	solution := options.Solution
	if solution == "" {
		solution = DefaultSolution
	}
	random := options.Rand
	if random == nil {
		random = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	timing := options.Timing.withDefaults()

	app := &App{logger: logger}
	app.current.Store("")
	app.lock = &LockScreen{
		host:     options.Host,
		clock:    appClock,
		logger:   logger,
		solution: solution,
		interval: timing.TypeInterval,
		unlocked: func() { app.advance(app.lock, ScreenHome) },
	}
	app.home = &Home{
		host:      options.Host,
		clock:     appClock,
		logger:    logger,
		terminals: timing.Terminals,
		access:    timing.Access,
		done:      func() { app.advance(app.home, ScreenGame) },
	}
	app.game = &Game{
		host:   options.Host,
		clock:  appClock,
		logger: logger,
		random: random,
		delay:  timing.PackageDelay,
	}
	return app
}

// Start shows the lock screen.
func (a *App) Start() {
	a.Navigate(ScreenLock)
}

// Reload tears down the active screen and starts over from the lock
// screen, as a page reload would after an operator reset.
func (a *App) Reload() {
	a.logger.Info("reloading after reset")
	a.Navigate(ScreenLock)
}

// Navigate deactivates the current screen and activates name.
// Navigating to the active screen restarts it. Unknown names are
// ignored.
func (a *App) Navigate(name string) {
	next := a.screen(name)
	if next == nil {
		a.logger.Warn("ignoring navigation to unknown screen", "screen", name)
		return
	}
	a.switchMu.Lock()
	defer a.switchMu.Unlock()
	a.switchLocked(name, next)
}

// advance moves on from a screen that finished its part, unless the
// operator already navigated away from it.
func (a *App) advance(from screen, name string) {
	a.switchMu.Lock()
	defer a.switchMu.Unlock()
	if a.active != from {
		return
	}
	a.switchLocked(name, a.screen(name))
}

func (a *App) switchLocked(name string, next screen) {
	if a.active != nil {
		a.active.deactivate()
	}
	a.active = next
	a.current.Store(name)
	a.logger.Info("screen changed", "screen", name)
	next.activate()
}

// Current returns the active screen name, or "" before Start.
func (a *App) Current() string {
	return a.current.Load().(string)
}

// Stop deactivates the current screen, cancelling its timers.
func (a *App) Stop() {
	a.switchMu.Lock()
	defer a.switchMu.Unlock()
	if a.active != nil {
		a.active.deactivate()
		a.active = nil
	}
	a.current.Store("")
}

// LockScreen returns the lock screen controller.
func (a *App) LockScreen() *LockScreen { return a.lock }

// Game returns the task screen controller.
func (a *App) Game() *Game { return a.game }

func (a *App) screen(name string) screen {
	switch name {
	case ScreenLock:
		return a.lock
	case ScreenHome:
		return a.home
	case ScreenGame:
		return a.game
	default:
		return nil
	}
}
