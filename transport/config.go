// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/gamemaster/lib/clock"
	"github.com/bureau-foundation/gamemaster/lib/codec"
)

// Defaults applied to zero-valued [Config] fields.
const (
	DefaultInitialDelay        = 1 * time.Second
	DefaultMaxDelay            = 5 * time.Second
	DefaultRandomizationFactor = 0.5
	DefaultDialTimeout         = 20 * time.Second
	DefaultStateReplayDelay    = 100 * time.Millisecond
)

// backoffMultiplier doubles the delay after every failed attempt.
const backoffMultiplier = 2

// Backoff shapes the reconnect schedule.
type Backoff struct {
	// InitialDelay is the base delay before the first reconnect
	// attempt.
	InitialDelay time.Duration

	// MaxDelay caps every delay, jitter included.
	MaxDelay time.Duration

	// RandomizationFactor spreads each delay uniformly over
	// delay*(1±factor). Zero selects the default; a negative value
	// disables jitter.
	RandomizationFactor float64

	// MaxAttempts bounds consecutive failed reconnect attempts. Zero
	// reconnects forever.
	MaxAttempts int
}

// Config configures a [Session].
type Config struct {
	// URL is the console endpoint, ws:// or wss://.
	URL string

	// Codec is the preferred frame encoding. Nil selects JSON.
	Codec codec.Codec

	Backoff Backoff

	// DialTimeout bounds one connection attempt, handshake included.
	DialTimeout time.Duration

	// StateReplayDelay separates the registration from the replayed
	// state snapshot on each new connection.
	StateReplayDelay time.Duration

	// HeartbeatInterval is the ping period. Zero disables the
	// heartbeat. A connection silent for longer than
	// HeartbeatInterval+HeartbeatTimeout is dropped and redialled.
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// Header is sent with the websocket handshake.
	Header http.Header

	// Dialer overrides the websocket dialer. Nil uses
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer

	Clock  clock.Clock
	Logger *slog.Logger
}

func (config Config) validate() error {
	if config.URL == "" {
		return fmt.Errorf("transport: URL is required")
	}
	parsed, err := url.Parse(config.URL)
	if err != nil {
		return fmt.Errorf("transport: parsing URL: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return fmt.Errorf("transport: URL scheme %q is not ws or wss", parsed.Scheme)
	}
	if config.Backoff.MaxAttempts < 0 {
		return fmt.Errorf("transport: negative MaxAttempts %d", config.Backoff.MaxAttempts)
	}
	if config.HeartbeatInterval < 0 || config.HeartbeatTimeout < 0 {
		return fmt.Errorf("transport: negative heartbeat duration")
	}
	return nil
}

func (config Config) withDefaults() Config {
	if config.Codec == nil {
		config.Codec = codec.JSON
	}
	if config.Backoff.InitialDelay <= 0 {
		config.Backoff.InitialDelay = DefaultInitialDelay
	}
	if config.Backoff.MaxDelay <= 0 {
		config.Backoff.MaxDelay = DefaultMaxDelay
	}
	if config.Backoff.MaxDelay < config.Backoff.InitialDelay {
		config.Backoff.MaxDelay = config.Backoff.InitialDelay
	}
	switch {
	case config.Backoff.RandomizationFactor == 0:
		config.Backoff.RandomizationFactor = DefaultRandomizationFactor
	case config.Backoff.RandomizationFactor < 0:
		config.Backoff.RandomizationFactor = 0
	case config.Backoff.RandomizationFactor > 1:
		config.Backoff.RandomizationFactor = 1
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.StateReplayDelay <= 0 {
		config.StateReplayDelay = DefaultStateReplayDelay
	}
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return config
}

// schedule yields reconnect delays capped at MaxDelay. The capped
// delay keeps jitter from ever pushing a wait past the configured
// maximum.
type schedule struct {
	exponential *backoff.ExponentialBackOff
	max         time.Duration
}

func newSchedule(policy Backoff) *schedule {
	exponential := &backoff.ExponentialBackOff{
		InitialInterval:     policy.InitialDelay,
		RandomizationFactor: policy.RandomizationFactor,
		Multiplier:          backoffMultiplier,
		MaxInterval:         policy.MaxDelay,
	}
	exponential.Reset()
	return &schedule{exponential: exponential, max: policy.MaxDelay}
}

func (s *schedule) next() time.Duration {
	return min(s.exponential.NextBackOff(), s.max)
}

func (s *schedule) reset() {
	s.exponential.Reset()
}
