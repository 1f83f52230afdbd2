// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gamemaster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/gamemaster/lib/audio"
	"github.com/bureau-foundation/gamemaster/lib/clock"
	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/command"
	"github.com/bureau-foundation/gamemaster/lib/gamestate"
	"github.com/bureau-foundation/gamemaster/lib/ready"
	"github.com/bureau-foundation/gamemaster/lib/schema"
	"github.com/bureau-foundation/gamemaster/messaging"
	"github.com/bureau-foundation/gamemaster/transport"
)

// ErrAlreadyRunning is returned by [Client.Run] while another Run on
// the same client has not returned.
var ErrAlreadyRunning = errors.New("gamemaster: client already running")

// Options configures a [Client].
type Options struct {
	Transport transport.Config

	// Audio is the initial engine configuration. Nil selects
	// audio.DefaultConfig.
	Audio *audio.Config

	// AudioBackend plays decoded clips. Nil leaves the engine running
	// without sound output: commands are tracked and logged but every
	// clip is dropped.
	AudioBackend audio.Backend

	// Defaults and Derive shape the game state; see lib/gamestate.
	Defaults gamestate.State
	Derive   gamestate.DeriveFunc

	// Clock is shared by every component unless Transport.Clock is
	// set. Nil uses the wall clock.
	Clock  clock.Clock
	Logger *slog.Logger
}

type resetHook struct {
	fn func()
}

// Client is the game's connection to the operator console. Create one
// with [New]; all methods are safe for concurrent use.
type Client struct {
	session *transport.Session
	router  *command.Router
	state   *gamestate.Aggregator
	emitter *messaging.Emitter
	audio   *audio.Engine
	logger  *slog.Logger
	ready   ready.Signal
	running atomic.Bool

	mu         sync.Mutex
	resetHooks []*resetHook
}

// New builds a client. Nothing connects until [Client.Run].
func New(options Options) (*Client, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clientClock := options.Clock
	if clientClock == nil {
		clientClock = clock.Real()
	}

	transportConfig := options.Transport
	if transportConfig.Clock == nil {
		transportConfig.Clock = clientClock
	}
	if transportConfig.Logger == nil {
		transportConfig.Logger = logger
	}
	session, err := transport.New(transportConfig)
	if err != nil {
		return nil, fmt.Errorf("creating transport session: %w", err)
	}

	c := &Client{
		session: session,
		router:  command.NewRouter(logger),
		state: gamestate.New(gamestate.Options{
			Defaults:  options.Defaults,
			Derive:    options.Derive,
			Publisher: session,
			Logger:    logger,
		}),
		emitter: messaging.New(session, logger),
		audio: audio.New(audio.Options{
			Backend: options.AudioBackend,
			Sender:  session,
			Config:  options.Audio,
			Clock:   clientClock,
			Logger:  logger,
		}),
		logger: logger,
	}
	c.audio.Attach(session)
	session.OnReceive(schema.ChannelCommand, c.handleCommand)
	return c, nil
}

// Run connects to the console and keeps the connection alive until ctx
// is cancelled, driving audio progress reports alongside. Readiness is
// signalled once Run has started. A second concurrent Run returns
// [ErrAlreadyRunning] and leaves the running one untouched; otherwise
// the error is that of transport.Session.Run.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	runContext, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Go(func() { c.audio.Run(runContext) })
	c.ready.Resolve()

	err := c.session.Run(runContext)
	cancel()
	wg.Wait()
	return err
}

// Ready is closed once Run has started.
func (c *Client) Ready() <-chan struct{} {
	return c.ready.Done()
}

// WaitReady blocks until Run has started or ctx ends.
func (c *Client) WaitReady(ctx context.Context) error {
	return c.ready.Wait(ctx)
}

// Register declares the game to the console. It is sent now if
// connected and again first thing on every later connection. Nil
// actions are sent as an empty list.
func (c *Client) Register(gameID, name string, actions []schema.Action, role string) {
	registration := schema.Register{
		GameID:           gameID,
		Name:             name,
		AvailableActions: slices.Clone(actions),
		Role:             role,
	}
	if registration.AvailableActions == nil {
		registration.AvailableActions = []schema.Action{}
	}
	c.logger.Info("registering game", "game_id", gameID, "name", name, "actions", len(registration.AvailableActions))
	if err := c.session.Register(registration); err != nil {
		c.logger.Debug("registration deferred to next connection", "error", err)
	}
}

// UpdateState merges partial into the game state, publishes it, and
// returns the published snapshot.
func (c *Client) UpdateState(partial map[string]any) gamestate.State {
	return c.state.Update(partial)
}

// ResetState restores the state defaults and publishes them.
func (c *Client) ResetState() gamestate.State {
	return c.state.Reset()
}

// State returns the raw game state.
func (c *Client) State() gamestate.State {
	return c.state.Snapshot()
}

// DerivedState returns the state as the console sees it.
func (c *Client) DerivedState() gamestate.State {
	return c.state.Derived()
}

// WatchState calls fn with every published snapshot. fn must not
// update the state.
func (c *Client) WatchState(fn func(gamestate.State)) (cancel func()) {
	return c.state.Watch(fn)
}

// SendEvent notifies the console. Events are dropped while
// disconnected.
func (c *Client) SendEvent(name string, data map[string]any) {
	_ = c.emitter.SendEvent(name, data)
}

// SendMessage sends a free-form game message. Messages are dropped
// while disconnected.
func (c *Client) SendMessage(message any) {
	_ = c.emitter.SendMessage(message)
}

// OnMessage subscribes to inbound game messages.
func (c *Client) OnMessage(handler func(message any)) (cancel func()) {
	return c.emitter.OnMessage(handler)
}

// RegisterCommandHandler installs the command handler for screen.
func (c *Client) RegisterCommandHandler(screen string, handler command.Handler) {
	c.router.Register(screen, handler)
}

// UnregisterCommandHandler removes the handler for screen and reports
// whether there was one.
func (c *Client) UnregisterCommandHandler(screen string) bool {
	return c.router.Unregister(screen)
}

// OnReset runs fn after every reset command, once the handlers have
// seen it and the state is back to its defaults.
func (c *Client) OnReset(fn func()) (cancel func()) {
	hook := &resetHook{fn: fn}
	c.mu.Lock()
	c.resetHooks = append(c.resetHooks, hook)
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.resetHooks = slices.DeleteFunc(c.resetHooks, func(candidate *resetHook) bool {
			return candidate == hook
		})
	}
}

// OnConnect runs fn after every successful connection.
func (c *Client) OnConnect(fn func()) (cancel func()) {
	return c.session.OnConnect(fn)
}

// OnDisconnect runs fn whenever a live connection ends.
func (c *Client) OnDisconnect(fn func(reason error)) (cancel func()) {
	return c.session.OnDisconnect(fn)
}

// Connected reports whether the console connection is up.
func (c *Client) Connected() bool {
	return c.session.Connected()
}

// Status reports the connection state.
func (c *Client) Status() transport.Status {
	return c.session.Status()
}

// AudioStatus summarises the audio engine.
func (c *Client) AudioStatus() schema.AudioStatus {
	return c.audio.Status()
}

// ConfigureAudio replaces the audio settings.
func (c *Client) ConfigureAudio(config audio.Config) {
	c.audio.Configure(config)
}

// EnableAudio turns playback on and announces the audio player.
func (c *Client) EnableAudio() {
	c.audio.Enable()
}

// DisableAudio stops all sound and ignores play commands.
func (c *Client) DisableAudio() {
	c.audio.Disable()
}

func (c *Client) handleCommand(message codec.Message) {
	var received schema.Command
	if err := message.Decode(&received); err != nil || received.Action == "" {
		c.logger.Debug("ignoring malformed command", "error", err)
		return
	}
	if received.Payload == nil {
		received.Payload = map[string]any{}
	}
	handlers := c.router.Dispatch(received.Action, received.Payload)
	c.logger.Info("command received", "action", received.Action, "handlers", handlers)
	if received.Action != schema.ActionReset {
		return
	}

	c.state.Reset()
	c.mu.Lock()
	hooks := slices.Clone(c.resetHooks)
	c.mu.Unlock()
	for _, hook := range hooks {
		c.runResetHook(hook)
	}
}

func (c *Client) runResetHook(hook *resetHook) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("reset hook panicked", "panic", recovered)
		}
	}()
	hook.fn()
}
