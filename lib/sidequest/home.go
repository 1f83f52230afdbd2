// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sidequest

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/gamemaster/lib/clock"
)

// Home is the intro played after unlocking: a storm of terminal
// windows, then an access overlay, then the game. It takes no
// operator commands.
type Home struct {
	host      Host
	clock     clock.Clock
	logger    *slog.Logger
	terminals time.Duration
	access    time.Duration
	done      func()

	mu         sync.Mutex
	timer      *clock.Timer
	generation uint64
}

func (h *Home) activate() {
	h.host.UpdateState(map[string]any{"currentScreen": ScreenHome})

	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++
	generation := h.generation
	h.timer = h.clock.AfterFunc(h.terminals, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.generation != generation {
			return
		}
		h.logger.Debug("access overlay shown")
		h.timer = h.clock.AfterFunc(h.access, func() {
			h.mu.Lock()
			current := h.generation == generation
			if current {
				h.timer = nil
			}
			h.mu.Unlock()
			if current && h.done != nil {
				h.done()
			}
		})
	})
}

func (h *Home) deactivate() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
}
