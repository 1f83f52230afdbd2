// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/gamemaster/lib/config"
	"github.com/bureau-foundation/gamemaster/lib/console"
	"github.com/bureau-foundation/gamemaster/lib/schema"
	"github.com/bureau-foundation/gamemaster/lib/sidequest"
	"github.com/bureau-foundation/gamemaster/lib/testutil"
)

func TestFlagsOverrideConfig(t *testing.T) {
	parsed, _, err := parseFlags([]string{
		"--url", "ws://console:9000/ws",
		"--codec", "cbor",
		"--no-audio",
		"--log-level", "debug",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	cfg := config.Default()
	parsed.apply(cfg)

	if cfg.Console.URL != "ws://console:9000/ws" || cfg.Console.Codec != "cbor" {
		t.Errorf("console = %+v", cfg.Console)
	}
	if cfg.Audio.Enabled {
		t.Error("--no-audio left audio enabled")
	}
	if cfg.Log.Level != "debug" || cfg.Log.Output != "stderr" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestTransportConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Console.Codec = "cbor"
	cfg.Console.ReconnectAttempts = 3

	options, err := transportConfig(cfg)
	if err != nil {
		t.Fatalf("transportConfig: %v", err)
	}
	if options.Codec.Name() != "cbor" || options.Backoff.MaxAttempts != 3 {
		t.Errorf("options = %+v", options)
	}
	if options.Backoff.InitialDelay != time.Second || options.Backoff.MaxDelay != 5*time.Second {
		t.Errorf("backoff = %+v", options.Backoff)
	}
	if options.HeartbeatInterval != 25*time.Second || options.HeartbeatTimeout != 20*time.Second {
		t.Errorf("heartbeat = %v/%v", options.HeartbeatInterval, options.HeartbeatTimeout)
	}

	cfg.Console.RandomizationFactor = 0
	options, err = transportConfig(cfg)
	if err != nil {
		t.Fatalf("transportConfig: %v", err)
	}
	if options.Backoff.RandomizationFactor >= 0 {
		t.Errorf("a configured zero jitter maps to %v, want a negative (disabled) factor", options.Backoff.RandomizationFactor)
	}
}

func TestGameIdentity(t *testing.T) {
	cfg := config.Default()
	registration, err := gameIdentity(cfg)
	if err != nil {
		t.Fatalf("gameIdentity: %v", err)
	}
	if registration.id != sidequest.GameID || registration.name != sidequest.Name || len(registration.actions) != len(sidequest.Actions()) {
		t.Errorf("built-in identity = %+v", registration)
	}

	path := filepath.Join(t.TempDir(), "actions.jsonc")
	manifest := `[
		// operator shortcuts
		{"id": "start_screen", "label": "Allumer"},
		{"id": "reset", "label": "Reset"},
	]`
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg.Game.ID = "sidequest-2"
	cfg.Game.ActionsFile = path
	registration, err = gameIdentity(cfg)
	if err != nil {
		t.Fatalf("gameIdentity: %v", err)
	}
	if registration.id != "sidequest-2" || registration.name != sidequest.Name {
		t.Errorf("identity = %+v", registration)
	}
	if len(registration.actions) != 2 || registration.actions[0].Label != "Allumer" {
		t.Errorf("actions = %+v", registration.actions)
	}
}

func TestHeadlessGameAgainstConsole(t *testing.T) {
	operator := console.New(nil)
	server := httptest.NewServer(operator)
	defer server.Close()
	defer operator.Close()

	cfg := config.Default()
	cfg.Console.URL = testutil.WebsocketURL(server.URL)
	cfg.Console.Heartbeat.Interval = 0
	cfg.Game.Solution = "sesame"

	game, err := newGame(cfg, nil, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("newGame: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- game.run(ctx) }()

	var register schema.Register
	for register.GameID == "" {
		frame := testutil.RequireReceive(t, operator.Inbound(), 5*time.Second, "registration")
		if frame.Message.Channel != schema.ChannelRegister {
			continue
		}
		if err := frame.Message.Decode(&register); err != nil {
			t.Fatalf("Decode: %v", err)
		}
	}
	if register.GameID != sidequest.GameID || len(register.AvailableActions) != len(sidequest.Actions()) {
		t.Fatalf("register = %+v", register)
	}

	operator.Broadcast(schema.ChannelCommand, schema.Command{Action: sidequest.ActionStartScreen, Payload: map[string]any{}})
	testutil.RequireEventually(t, func() bool {
		return game.snapshot().state.String("workflowStep") == sidequest.StepLocked
	}, 5*time.Second, "start_screen applied")

	if game.submitPassword("admin") {
		t.Error("the default password unlocked a room configured with another solution")
	}
	if !game.submitPassword("sesame") {
		t.Error("the configured solution did not unlock the room")
	}
	testutil.RequireEventually(t, func() bool {
		return game.snapshot().screen == sidequest.ScreenHome
	}, 5*time.Second, "home after unlock")

	operator.Broadcast(schema.ChannelCommand, schema.Command{Action: schema.ActionReset, Payload: map[string]any{}})
	testutil.RequireEventually(t, func() bool {
		current := game.snapshot()
		return current.screen == sidequest.ScreenLock && current.state.String("workflowStep") == sidequest.StepReset
	}, 5*time.Second, "lock screen after reset")

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "run return"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if game.snapshot().screen != "" {
		t.Error("screen still active after stop")
	}
}
