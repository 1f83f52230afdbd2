// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/schema"
	"github.com/bureau-foundation/gamemaster/transport"
)

// Transport is the part of transport.Session the emitter uses.
type Transport interface {
	Send(channel string, payload any) error
	OnReceive(channel string, handler transport.Handler) (cancel func())
}

// Emitter writes events and game messages over a transport.
type Emitter struct {
	transport Transport
	logger    *slog.Logger
}

// New returns an emitter writing to t.
func New(t Transport, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Emitter{transport: t, logger: logger.With("component", "messaging")}
}

// SendEvent emits a named event. Nil data is sent as an empty object.
// The error reports a dropped event; callers are free to ignore it.
func (e *Emitter) SendEvent(name string, data map[string]any) error {
	if data == nil {
		data = map[string]any{}
	}
	err := e.transport.Send(schema.ChannelEvent, schema.Event{Name: name, Data: data})
	if err != nil {
		e.logDrop("event", name, err)
		return fmt.Errorf("event %s: %w", name, err)
	}
	e.logger.Debug("event sent", "name", name)
	return nil
}

// SendMessage emits a free-form game message.
func (e *Emitter) SendMessage(message any) error {
	if message == nil {
		message = map[string]any{}
	}
	if err := e.transport.Send(schema.ChannelGameMessage, message); err != nil {
		e.logDrop("game message", "", err)
		return fmt.Errorf("game message: %w", err)
	}
	return nil
}

// OnMessage calls handler with every inbound game message, decoded
// into generic values (maps, slices, strings, numbers, bools). A
// payload that fails to decode is logged and skipped.
func (e *Emitter) OnMessage(handler func(message any)) (cancel func()) {
	return e.transport.OnReceive(schema.ChannelGameMessage, func(message codec.Message) {
		var value any
		if err := message.Decode(&value); err != nil {
			e.logger.Warn("dropping undecodable game message", "error", err)
			return
		}
		handler(value)
	})
}

func (e *Emitter) logDrop(kind, name string, err error) {
	if errors.Is(err, transport.ErrNotConnected) {
		e.logger.Debug(kind+" dropped while disconnected", "name", name)
		return
	}
	e.logger.Warn(kind+" send failed", "name", name, "error", err)
}
