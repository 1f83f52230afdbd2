// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audio

import (
	"time"

	"github.com/bureau-foundation/gamemaster/lib/audio/clip"
)

// Backend turns encoded clips into players.
type Backend interface {
	// Load decodes c and returns a stopped player. A looping player
	// restarts from the beginning when it reaches the end and never
	// finishes on its own.
	Load(c *clip.Clip, loop bool) (Player, error)
}

// Player is one playing sound.
type Player interface {
	Play()
	Pause()

	// IsPlaying reports false once paused or finished.
	IsPlaying() bool

	Position() time.Duration
	SetPosition(position time.Duration) error
	Duration() time.Duration

	// SetVolume sets the gain in [0,1].
	SetVolume(volume float64)

	Close() error
}
