// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Pointer fields distinguish "absent" from a zero value: a command
// missing a required field is ignored by the receiver rather than
// acting on index 0 or time 0.

// PlayAmbient starts a looping ambient bed. A present Volume pins the
// bed's gain instead of following the ambient bus.
type PlayAmbient struct {
	SoundID     string   `json:"soundId"`
	AudioBase64 string   `json:"audioBase64"`
	MimeType    string   `json:"mimeType"`
	Volume      *float64 `json:"volume,omitempty"`
}

// StopAmbient stops one bed, or every bed when SoundID is empty.
type StopAmbient struct {
	SoundID string `json:"soundId,omitempty"`
}

// PlayPreset starts the one-shot track at PresetIdx. File is the
// console-side file name, used for logging only.
type PlayPreset struct {
	PresetIdx   *int   `json:"presetIdx"`
	File        string `json:"file,omitempty"`
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
}

// PresetRef addresses a preset for pause, resume, and stop.
type PresetRef struct {
	PresetIdx *int `json:"presetIdx"`
}

// SeekPreset moves a preset's playback position, in seconds.
type SeekPreset struct {
	PresetIdx   *int     `json:"presetIdx"`
	CurrentTime *float64 `json:"currentTime"`
}

// PresetProgress reports a preset's position upstream. Times are in
// seconds. The final report of a naturally finished track has Ended set.
type PresetProgress struct {
	PresetIdx   int     `json:"presetIdx"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Ended       bool    `json:"ended,omitempty"`
}

// PlayTTS plays a voice clip. MimeType defaults to audio/mpeg.
type PlayTTS struct {
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Volume sets a bus gain in [0,1].
type Volume struct {
	Volume *float64 `json:"volume"`
}

// AudioStatus summarises the audio engine for local displays.
type AudioStatus struct {
	Unlocked       bool     `json:"unlocked"`
	Enabled        bool     `json:"enabled"`
	MasterVolume   float64  `json:"masterVolume"`
	VoiceVolume    float64  `json:"iaVolume"`
	AmbientVolume  float64  `json:"ambientVolume"`
	ActiveAmbients []string `json:"activeAmbients"`
	ActivePresets  []int    `json:"activePresets"`
	VoiceActive    bool     `json:"voiceActive"`
}
