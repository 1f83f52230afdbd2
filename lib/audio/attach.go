// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audio

import (
	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/schema"
	"github.com/bureau-foundation/gamemaster/transport"
)

// Session is the part of transport.Session that Attach subscribes to.
type Session interface {
	OnReceive(channel string, handler transport.Handler) (cancel func())
	OnConnect(fn func()) (cancel func())
}

// Attach subscribes the engine to every inbound audio channel and
// announces the audio player on each connection. The returned function
// removes every subscription.
func (e *Engine) Attach(session Session) (detach func()) {
	cancels := []func(){
		session.OnReceive(schema.ChannelPlayAmbient, handle(e, e.PlayAmbient)),
		session.OnReceive(schema.ChannelStopAmbient, handle(e, e.StopAmbient)),
		session.OnReceive(schema.ChannelAmbientVolume, handle(e, e.SetAmbientVolume)),
		session.OnReceive(schema.ChannelPlayPreset, handle(e, e.PlayPreset)),
		session.OnReceive(schema.ChannelPausePreset, handle(e, e.PausePreset)),
		session.OnReceive(schema.ChannelResumePreset, handle(e, e.ResumePreset)),
		session.OnReceive(schema.ChannelSeekPreset, handle(e, e.SeekPreset)),
		session.OnReceive(schema.ChannelStopPreset, handle(e, e.StopPreset)),
		session.OnReceive(schema.ChannelPlayTTS, handle(e, e.PlayVoice)),
		session.OnReceive(schema.ChannelMasterVolume, handle(e, e.SetMasterVolume)),
		session.OnReceive(schema.ChannelVoiceVolume, handle(e, e.SetVoiceVolume)),
		session.OnReceive(schema.ChannelStopAll, func(codec.Message) { e.StopAll() }),
		session.OnConnect(e.Announce),
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// handle adapts a typed command method to a frame handler. Frames
// whose payload does not decode into P are ignored.
func handle[P any](e *Engine, apply func(P)) transport.Handler {
	return func(message codec.Message) {
		var payload P
		if err := message.Decode(&payload); err != nil {
			e.logger.Debug("ignoring malformed audio command", "channel", message.Channel, "error", err)
			return
		}
		apply(payload)
	}
}
