// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Game channels.
const (
	ChannelRegister    = "register"
	ChannelStateUpdate = "state_update"
	ChannelEvent       = "event"
	ChannelCommand     = "command"
	ChannelGameMessage = "game-message"
)

// Audio channels.
const (
	ChannelRegisterAudioPlayer = "register-audio-player"

	ChannelPlayAmbient   = "audio:play-ambient"
	ChannelStopAmbient   = "audio:stop-ambient"
	ChannelAmbientVolume = "audio:volume-ambient"

	ChannelPlayPreset     = "audio:play-preset"
	ChannelPausePreset    = "audio:pause-preset"
	ChannelResumePreset   = "audio:resume-preset"
	ChannelSeekPreset     = "audio:seek-preset"
	ChannelStopPreset     = "audio:stop-preset"
	ChannelPresetProgress = "audio:preset-progress"

	ChannelPlayTTS      = "audio:play-tts"
	ChannelMasterVolume = "audio:master-volume"
	ChannelVoiceVolume  = "audio:volume-ia"
	ChannelStopAll      = "audio:stop-all"
)

// ActionReset is the command action that, besides reaching every
// registered handler, resets the client state to its defaults.
const ActionReset = "reset"
