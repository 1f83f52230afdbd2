// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/gamemaster/lib/audio"
	"github.com/bureau-foundation/gamemaster/lib/audio/speaker"
	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/config"
	"github.com/bureau-foundation/gamemaster/lib/gamemaster"
	"github.com/bureau-foundation/gamemaster/lib/gamestate"
	"github.com/bureau-foundation/gamemaster/lib/schema"
	"github.com/bureau-foundation/gamemaster/lib/sidequest"
	"github.com/bureau-foundation/gamemaster/transport"
)

// identity is what the game registers as.
type identity struct {
	id      string
	name    string
	role    string
	actions []schema.Action
}

// game is one Sidequest room wired to the console client.
type game struct {
	client   *gamemaster.Client
	app      *sidequest.App
	identity identity
	logger   *slog.Logger

	mu          sync.Mutex
	cancelReset func()
}

func newSpeaker(cfg *config.Config, logger *slog.Logger) (audio.Backend, error) {
	cacheBytes, err := cfg.CacheBytes()
	if err != nil {
		return nil, err
	}
	return speaker.New(cfg.Audio.SampleRate, cacheBytes, logger), nil
}

func transportConfig(cfg *config.Config) (transport.Config, error) {
	frameCodec, err := codec.ByName(cfg.Console.Codec)
	if err != nil {
		return transport.Config{}, err
	}
	randomization := cfg.Console.RandomizationFactor
	if randomization == 0 {
		// A configured zero means no jitter; the transport reads zero
		// as "use the default".
		randomization = -1
	}
	return transport.Config{
		URL:   cfg.Console.URL,
		Codec: frameCodec,
		Backoff: transport.Backoff{
			InitialDelay:        cfg.Console.ReconnectDelay,
			MaxDelay:            cfg.Console.ReconnectDelayMax,
			RandomizationFactor: randomization,
			MaxAttempts:         cfg.Console.ReconnectAttempts,
		},
		DialTimeout:       cfg.Console.DialTimeout,
		StateReplayDelay:  cfg.Console.StateReplayDelay,
		HeartbeatInterval: cfg.Console.Heartbeat.Interval,
		HeartbeatTimeout:  cfg.Console.Heartbeat.Timeout,
	}, nil
}

func audioConfig(cfg *config.Config) *audio.Config {
	return &audio.Config{
		Enabled:          cfg.Audio.Enabled,
		Debug:            cfg.Audio.Debug,
		MasterVolume:     cfg.Audio.MasterVolume,
		VoiceVolume:      cfg.Audio.VoiceVolume,
		AmbientVolume:    cfg.Audio.AmbientVolume,
		ProgressInterval: cfg.Audio.ProgressInterval,
	}
}

// gameIdentity applies the configured overrides to the built-in
// Sidequest registration.
func gameIdentity(cfg *config.Config) (identity, error) {
	result := identity{
		id:      sidequest.GameID,
		name:    sidequest.Name,
		role:    cfg.Game.Role,
		actions: sidequest.Actions(),
	}
	if cfg.Game.ID != "" {
		result.id = cfg.Game.ID
	}
	if cfg.Game.Name != "" {
		result.name = cfg.Game.Name
	}
	if cfg.Game.ActionsFile != "" {
		actions, err := config.LoadActions(cfg.Game.ActionsFile)
		if err != nil {
			return identity{}, err
		}
		result.actions = actions
	}
	return result, nil
}

// newGame builds the client and the room. A nil backend runs audio
// silently.
func newGame(cfg *config.Config, backend audio.Backend, logger *slog.Logger) (*game, error) {
	transportOptions, err := transportConfig(cfg)
	if err != nil {
		return nil, err
	}
	registration, err := gameIdentity(cfg)
	if err != nil {
		return nil, err
	}
	client, err := gamemaster.New(gamemaster.Options{
		Transport:    transportOptions,
		Audio:        audioConfig(cfg),
		AudioBackend: backend,
		Defaults:     sidequest.Defaults(),
		Derive:       sidequest.Derive,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gamemaster client: %w", err)
	}
	app := sidequest.New(sidequest.Options{
		Host:     client,
		Solution: cfg.Game.Solution,
		Logger:   logger,
	})
	return &game{client: client, app: app, identity: registration, logger: logger}, nil
}

// start connects the client, registers the game and shows the lock
// screen. The returned channel yields the client's Run error once ctx
// ends.
func (g *game) start(ctx context.Context) (<-chan error, error) {
	done := make(chan error, 1)
	go func() { done <- g.client.Run(ctx) }()
	if err := g.client.WaitReady(ctx); err != nil {
		return nil, err
	}

	g.client.Register(g.identity.id, g.identity.name, g.identity.actions, g.identity.role)
	g.mu.Lock()
	g.cancelReset = g.client.OnReset(g.app.Reload)
	g.mu.Unlock()
	g.app.Start()
	return done, nil
}

// stop leaves the current screen and detaches from reset commands.
func (g *game) stop() {
	g.mu.Lock()
	cancel := g.cancelReset
	g.cancelReset = nil
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	g.app.Stop()
}

// run plays headless until ctx ends.
func (g *game) run(ctx context.Context) error {
	done, err := g.start(ctx)
	if err != nil {
		return err
	}
	err = <-done
	g.stop()
	g.logger.Info("sidequest client stopped")
	return err
}

// snapshot is everything the monitor renders, gathered in one pass.
type snapshot struct {
	connection transport.Status
	screen     string
	state      gamestate.State
	entered    string
	typing     bool
	game       sidequest.GameStatus
	audio      schema.AudioStatus
}

func (g *game) snapshot() snapshot {
	lock := g.app.LockScreen()
	return snapshot{
		connection: g.client.Status(),
		screen:     g.app.Current(),
		state:      g.client.DerivedState(),
		entered:    lock.Entered(),
		typing:     lock.Typing(),
		game:       g.app.Game().Status(),
		audio:      g.client.AudioStatus(),
	}
}

func (g *game) submitPassword(text string) bool {
	lock := g.app.LockScreen()
	lock.Input(text)
	return lock.Submit()
}

func (g *game) stepTask() {
	g.app.Game().Step()
}

func (g *game) toggleAudio() {
	if g.client.AudioStatus().Enabled {
		g.client.DisableAudio()
		return
	}
	g.client.EnableAudio()
}
