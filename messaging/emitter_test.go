// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"errors"
	"reflect"
	"testing"

	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/schema"
	"github.com/bureau-foundation/gamemaster/transport"
)

type sent struct {
	channel string
	payload any
}

type fakeTransport struct {
	connected bool
	sent      []sent
	handlers  map[string][]transport.Handler
}

func (f *fakeTransport) Send(channel string, payload any) error {
	if !f.connected {
		return transport.ErrNotConnected
	}
	f.sent = append(f.sent, sent{channel: channel, payload: payload})
	return nil
}

func (f *fakeTransport) OnReceive(channel string, handler transport.Handler) func() {
	if f.handlers == nil {
		f.handlers = make(map[string][]transport.Handler)
	}
	f.handlers[channel] = append(f.handlers[channel], handler)
	return func() { delete(f.handlers, channel) }
}

func (f *fakeTransport) deliver(message codec.Message) {
	for _, handler := range f.handlers[message.Channel] {
		handler(message)
	}
}

func TestSendEvent(t *testing.T) {
	fake := &fakeTransport{connected: true}
	emitter := New(fake, nil)
	if err := emitter.SendEvent("point_earned", map[string]any{"points": 1}); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}
	if err := emitter.SendEvent("game_started", nil); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}

	want := []sent{
		{schema.ChannelEvent, schema.Event{Name: "point_earned", Data: map[string]any{"points": 1}}},
		{schema.ChannelEvent, schema.Event{Name: "game_started", Data: map[string]any{}}},
	}
	if !reflect.DeepEqual(fake.sent, want) {
		t.Errorf("sent = %+v, want %+v", fake.sent, want)
	}
}

func TestEventDroppedWhileDisconnected(t *testing.T) {
	fake := &fakeTransport{}
	emitter := New(fake, nil)
	err := emitter.SendEvent("x", map[string]any{"a": 1})
	if !errors.Is(err, transport.ErrNotConnected) {
		t.Fatalf("SendEvent = %v, want ErrNotConnected", err)
	}

	// Reconnecting does not resurrect the event.
	fake.connected = true
	if len(fake.sent) != 0 {
		t.Errorf("sent = %+v, want nothing", fake.sent)
	}
}

func TestGameMessages(t *testing.T) {
	fake := &fakeTransport{connected: true}
	emitter := New(fake, nil)
	if err := emitter.SendMessage(map[string]any{"hint": 2}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(fake.sent) != 1 || fake.sent[0].channel != schema.ChannelGameMessage {
		t.Fatalf("sent = %+v", fake.sent)
	}

	var received []any
	cancel := emitter.OnMessage(func(message any) { received = append(received, message) })
	fake.deliver(codec.NewMessage(codec.JSON, schema.ChannelGameMessage, []byte(`{"from":"console"}`)))
	fake.deliver(codec.NewMessage(codec.JSON, schema.ChannelGameMessage, []byte(`{broken`)))
	cancel()
	fake.deliver(codec.NewMessage(codec.JSON, schema.ChannelGameMessage, []byte(`"late"`)))

	want := []any{map[string]any{"from": "console"}}
	if !reflect.DeepEqual(received, want) {
		t.Errorf("received = %#v, want %#v", received, want)
	}
}
