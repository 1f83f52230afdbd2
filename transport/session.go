// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bureau-foundation/gamemaster/lib/clock"
	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/schema"
)

var (
	// ErrNotConnected is returned by sends attempted while no
	// connection is live. The message is not queued.
	ErrNotConnected = errors.New("transport: not connected")

	// ErrReconnectExhausted is returned by Run in bounded mode after
	// MaxAttempts consecutive reconnect attempts failed.
	ErrReconnectExhausted = errors.New("transport: reconnect attempts exhausted")

	errAlreadyRunning = errors.New("transport: session already running")
)

// writeWait bounds a single frame or control write.
const writeWait = 10 * time.Second

// Status is the connection state of a [Session].
type Status int32

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return fmt.Sprintf("Status(%d)", int32(s))
	}
}

// Handler receives one inbound frame.
type Handler func(message codec.Message)

type subscription struct {
	handler Handler
}

type connectHook struct {
	fn func()
}

type disconnectHook struct {
	fn func(reason error)
}

// Session is the client side of the console connection. Create one
// with [New] and drive it with [Session.Run]. All methods are safe for
// concurrent use.
type Session struct {
	url               string
	preferred         codec.Codec
	backoff           Backoff
	dialTimeout       time.Duration
	stateReplayDelay  time.Duration
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	header            http.Header
	dialer            *websocket.Dialer
	clock             clock.Clock
	logger            *slog.Logger

	status   atomic.Int32
	attempts atomic.Int64
	running  atomic.Bool

	// writeMu serializes frame writes. It is taken before mu when
	// both are needed.
	writeMu sync.Mutex

	mu              sync.Mutex
	conn            *connection
	registration    any
	lastState       map[string]any
	subscriptions   map[string][]*subscription
	connectHooks    []*connectHook
	disconnectHooks []*disconnectHook
}

// New validates config and returns an idle session.
func New(config Config) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()
	return &Session{
		url:               config.URL,
		preferred:         config.Codec,
		backoff:           config.Backoff,
		dialTimeout:       config.DialTimeout,
		stateReplayDelay:  config.StateReplayDelay,
		heartbeatInterval: config.HeartbeatInterval,
		heartbeatTimeout:  config.HeartbeatTimeout,
		header:            config.Header,
		dialer:            config.Dialer,
		clock:             config.Clock,
		logger:            config.Logger.With("component", "transport"),
		subscriptions:     make(map[string][]*subscription),
	}, nil
}

// Status reports the current connection state.
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

// Connected reports whether a connection is live.
func (s *Session) Connected() bool {
	return s.Status() == StatusConnected
}

// Attempts reports the number of reconnect attempts made since the
// last successful connection.
func (s *Session) Attempts() int {
	return int(s.attempts.Load())
}

// Run connects and keeps reconnecting until ctx is cancelled, which
// returns nil. In bounded mode it returns [ErrReconnectExhausted] when
// the attempt budget runs out. A session runs at most once at a time.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer s.running.Store(false)
	defer s.status.Store(int32(StatusDisconnected))

	delays := newSchedule(s.backoff)
	s.attempts.Store(0)

	for {
		attempt := s.Attempts()
		if attempt == 0 {
			s.logger.Info("connecting", "url", s.url)
		}
		s.status.Store(int32(StatusConnecting))

		conn, err := s.dial(ctx)
		if err == nil {
			if attempt > 0 {
				s.logger.Info("reconnected", "attempts", attempt)
			}
			s.attempts.Store(0)
			delays.reset()
			s.serve(ctx, conn)
		} else {
			s.status.Store(int32(StatusDisconnected))
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Warn("connect failed", "url", s.url, "attempt", attempt, "error", err)
			if s.backoff.MaxAttempts > 0 && attempt >= s.backoff.MaxAttempts {
				s.logger.Error("reconnect exhausted", "attempts", attempt)
				return ErrReconnectExhausted
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		attempt = int(s.attempts.Add(1))
		delay := delays.next()
		s.logger.Info("reconnect attempt", "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(delay):
		}
	}
}

// Send writes one frame. It returns [ErrNotConnected] while
// disconnected. A write failure drops the connection so Run redials.
func (s *Session) Send(channel string, payload any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.write(channel, payload); err != nil {
		conn.ws.Close()
		return fmt.Errorf("sending %s: %w", channel, err)
	}
	return nil
}

// Register stores the registration payload and sends it if connected.
// The stored payload is written first on every later connection. The
// caller must not mutate payload afterwards.
func (s *Session) Register(payload any) error {
	s.mu.Lock()
	s.registration = payload
	connected := s.conn != nil
	s.mu.Unlock()
	if !connected {
		return nil
	}
	return s.Send(schema.ChannelRegister, payload)
}

// SendState remembers state as the snapshot to replay on reconnect and
// sends it on the state_update channel. The snapshot is remembered
// even when the send fails.
func (s *Session) SendState(state map[string]any) error {
	snapshot := maps.Clone(state)
	s.mu.Lock()
	s.lastState = snapshot
	s.mu.Unlock()
	return s.Send(schema.ChannelStateUpdate, schema.StateUpdate{State: snapshot})
}

// OnReceive subscribes handler to frames on channel. The returned
// function removes the subscription.
func (s *Session) OnReceive(channel string, handler Handler) (cancel func()) {
	sub := &subscription{handler: handler}
	s.mu.Lock()
	s.subscriptions[channel] = append(s.subscriptions[channel], sub)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subscriptions[channel] = slices.DeleteFunc(s.subscriptions[channel], func(candidate *subscription) bool {
			return candidate == sub
		})
		if len(s.subscriptions[channel]) == 0 {
			delete(s.subscriptions, channel)
		}
	}
}

// OnConnect runs fn after every successful connection, once the
// registration has been written.
func (s *Session) OnConnect(fn func()) (cancel func()) {
	hook := &connectHook{fn: fn}
	s.mu.Lock()
	s.connectHooks = append(s.connectHooks, hook)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.connectHooks = slices.DeleteFunc(s.connectHooks, func(candidate *connectHook) bool {
			return candidate == hook
		})
	}
}

// OnDisconnect runs fn with the drop reason whenever a live connection
// ends.
func (s *Session) OnDisconnect(fn func(reason error)) (cancel func()) {
	hook := &disconnectHook{fn: fn}
	s.mu.Lock()
	s.disconnectHooks = append(s.disconnectHooks, hook)
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.disconnectHooks = slices.DeleteFunc(s.disconnectHooks, func(candidate *disconnectHook) bool {
			return candidate == hook
		})
	}
}

func (s *Session) dial(ctx context.Context) (*connection, error) {
	dialContext, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()

	dialer := *s.dialer
	dialer.Subprotocols = codec.Subprotocols(s.preferred)
	ws, response, err := dialer.DialContext(dialContext, s.url, s.header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("dialing %s: %w (HTTP %s)", s.url, err, response.Status)
		}
		return nil, fmt.Errorf("dialing %s: %w", s.url, err)
	}

	outbound := s.preferred
	if negotiated := codec.BySubprotocol(ws.Subprotocol()); negotiated != nil {
		outbound = negotiated
	}
	conn := &connection{
		ws:    ws,
		id:    uuid.NewString(),
		codec: outbound,
	}
	conn.touch(s.clock.Now())
	return conn, nil
}

// serve runs one connection from handshake to drop.
func (s *Session) serve(ctx context.Context, conn *connection) {
	// The registration goes out under writeMu before the connection is
	// visible to Send, so no other frame can precede it.
	s.writeMu.Lock()
	s.mu.Lock()
	s.conn = conn
	registration := s.registration
	s.mu.Unlock()
	s.status.Store(int32(StatusConnected))
	var registrationErr error
	if registration != nil {
		registrationErr = conn.write(schema.ChannelRegister, registration)
	}
	s.writeMu.Unlock()

	s.logger.Info("connected", "conn_id", conn.id, "url", s.url, "codec", conn.codec.Name())

	done := make(chan struct{})
	var workers sync.WaitGroup
	workers.Go(func() {
		select {
		case <-ctx.Done():
			s.closeGracefully(conn)
		case <-done:
		}
	})
	if s.heartbeatInterval > 0 {
		workers.Go(func() { s.heartbeat(conn, done) })
	}

	var reason error
	if registrationErr != nil {
		reason = fmt.Errorf("writing registration: %w", registrationErr)
		conn.ws.Close()
	} else {
		s.runConnectHooks()
		replay := s.clock.AfterFunc(s.stateReplayDelay, func() { s.replayState(conn) })
		reason = s.readLoop(conn)
		replay.Stop()
	}

	close(done)
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	s.status.Store(int32(StatusDisconnected))
	conn.ws.Close()
	workers.Wait()

	if ctx.Err() != nil {
		reason = ctx.Err()
	}
	s.logger.Info("disconnected", "conn_id", conn.id, "reason", reason)
	s.runDisconnectHooks(reason)
}

func (s *Session) readLoop(conn *connection) error {
	conn.ws.SetPongHandler(func(string) error {
		conn.touch(s.clock.Now())
		return nil
	})
	for {
		messageType, data, err := conn.ws.ReadMessage()
		if err != nil {
			return err
		}
		conn.touch(s.clock.Now())

		frameCodec := codec.JSON
		if messageType == websocket.BinaryMessage {
			frameCodec = codec.CBOR
		}
		message, err := frameCodec.DecodeFrame(data)
		if err != nil {
			s.logger.Warn("dropping malformed frame", "conn_id", conn.id, "error", err)
			continue
		}
		s.dispatch(message)
	}
}

func (s *Session) dispatch(message codec.Message) {
	s.mu.Lock()
	subscribers := slices.Clone(s.subscriptions[message.Channel])
	s.mu.Unlock()
	if len(subscribers) == 0 {
		s.logger.Debug("no handler for channel", "channel", message.Channel)
		return
	}
	for _, sub := range subscribers {
		s.protect("receive handler", message.Channel, func() { sub.handler(message) })
	}
}

func (s *Session) replayState(conn *connection) {
	s.mu.Lock()
	current := s.conn == conn
	state := s.lastState
	s.mu.Unlock()
	if !current || len(state) == 0 {
		return
	}
	if err := s.Send(schema.ChannelStateUpdate, schema.StateUpdate{State: state}); err != nil {
		s.logger.Warn("state replay failed", "conn_id", conn.id, "error", err)
		return
	}
	s.logger.Debug("state replayed", "conn_id", conn.id, "keys", len(state))
}

func (s *Session) heartbeat(conn *connection, done <-chan struct{}) {
	ticker := s.clock.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()
	limit := s.heartbeatInterval + s.heartbeatTimeout
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			silence := s.clock.Now().Sub(conn.seen())
			if silence > limit {
				s.logger.Warn("heartbeat timeout", "conn_id", conn.id, "silence", silence)
				conn.ws.Close()
				return
			}
			deadline := time.Now().Add(writeWait) //nolint:realclock socket deadline
			if err := conn.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				conn.ws.Close()
				return
			}
		}
	}
}

func (s *Session) closeGracefully(conn *connection) {
	s.writeMu.Lock()
	deadline := time.Now().Add(writeWait) //nolint:realclock socket deadline
	conn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	s.writeMu.Unlock()
	conn.ws.Close()
}

func (s *Session) runConnectHooks() {
	s.mu.Lock()
	hooks := slices.Clone(s.connectHooks)
	s.mu.Unlock()
	for _, hook := range hooks {
		s.protect("connect hook", "", hook.fn)
	}
}

func (s *Session) runDisconnectHooks(reason error) {
	s.mu.Lock()
	hooks := slices.Clone(s.disconnectHooks)
	s.mu.Unlock()
	for _, hook := range hooks {
		s.protect("disconnect hook", "", func() { hook.fn(reason) })
	}
}

// protect runs fn, logging instead of propagating a panic.
func (s *Session) protect(what, channel string, fn func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error(what+" panicked", "channel", channel, "panic", recovered)
		}
	}()
	fn()
}

// connection is one live websocket.
type connection struct {
	ws    *websocket.Conn
	id    string
	codec codec.Codec

	// lastSeen is the clock reading, in Unix nanoseconds, of the last
	// inbound frame or pong.
	lastSeen atomic.Int64
}

func (c *connection) write(channel string, payload any) error {
	data, err := c.codec.EncodeFrame(channel, payload)
	if err != nil {
		return err
	}
	messageType := websocket.TextMessage
	if c.codec.Binary() {
		messageType = websocket.BinaryMessage
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:realclock socket deadline
	return c.ws.WriteMessage(messageType, data)
}

func (c *connection) touch(now time.Time) {
	c.lastSeen.Store(now.UnixNano())
}

func (c *connection) seen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}
