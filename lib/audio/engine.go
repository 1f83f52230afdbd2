// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audio

import (
	"context"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bureau-foundation/gamemaster/lib/audio/clip"
	"github.com/bureau-foundation/gamemaster/lib/clock"
	"github.com/bureau-foundation/gamemaster/lib/schema"
)

// DefaultProgressInterval is the Tick period used by Run, close to
// the cadence at which browsers fire timeupdate.
const DefaultProgressInterval = 250 * time.Millisecond

// Config holds the locally configured engine settings.
type Config struct {
	Enabled bool

	// Debug raises command logging from debug to info level.
	Debug bool

	// Initial bus gains, clamped to [0,1].
	MasterVolume  float64
	VoiceVolume   float64
	AmbientVolume float64

	ProgressInterval time.Duration
}

// DefaultConfig returns an enabled engine with every bus at full gain.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		MasterVolume:     1,
		VoiceVolume:      1,
		AmbientVolume:    1,
		ProgressInterval: DefaultProgressInterval,
	}
}

// Sender is the outbound side of the transport.
type Sender interface {
	Send(channel string, payload any) error
	Connected() bool
}

// Options configures an [Engine].
type Options struct {
	Backend Backend
	Sender  Sender

	// Config is the initial configuration. Nil selects [DefaultConfig].
	Config *Config
	Clock  clock.Clock
	Logger *slog.Logger
}

// Engine owns every live sound resource. Create one with [New].
type Engine struct {
	backend Backend
	sender  Sender
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.Mutex
	enabled  bool
	debug    bool
	interval time.Duration
	master   float64
	voiceBus float64
	ambient  float64
	ambients map[string]*ambientBed
	presets  map[int]*presetTrack
	voice    Player
}

type ambientBed struct {
	player Player
	pinned *float64
}

type presetTrack struct {
	player Player
	paused bool
}

// New returns an engine with nothing playing.
func New(options Options) *Engine {
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	engineClock := options.Clock
	if engineClock == nil {
		engineClock = clock.Real()
	}
	e := &Engine{
		backend:  options.Backend,
		sender:   options.Sender,
		clock:    engineClock,
		logger:   logger.With("component", "audio"),
		ambients: make(map[string]*ambientBed),
		presets:  make(map[int]*presetTrack),
	}
	config := DefaultConfig()
	if options.Config != nil {
		config = *options.Config
	}
	e.applyConfigLocked(config)
	return e
}

// Configure replaces the local settings. Disabling stops everything;
// enabling re-announces the audio player. New bus gains are re-applied
// to live resources.
func (e *Engine) Configure(config Config) {
	e.mu.Lock()
	wasEnabled := e.enabled
	e.applyConfigLocked(config)
	if wasEnabled && !e.enabled {
		e.stopAllLocked()
	}
	e.applyAmbientLocked()
	e.applyPresetLocked()
	e.applyVoiceLocked()
	announce := !wasEnabled && e.enabled
	e.mu.Unlock()
	if announce {
		e.Announce()
	}
}

func (e *Engine) applyConfigLocked(config Config) {
	e.enabled = config.Enabled
	e.debug = config.Debug
	e.interval = config.ProgressInterval
	if e.interval <= 0 {
		e.interval = DefaultProgressInterval
	}
	e.master = clamp(config.MasterVolume)
	e.voiceBus = clamp(config.VoiceVolume)
	e.ambient = clamp(config.AmbientVolume)
}

// Enable turns playback on and announces the audio player.
func (e *Engine) Enable() {
	e.mu.Lock()
	e.enabled = true
	e.mu.Unlock()
	e.logger.Info("audio enabled")
	e.Announce()
}

// Disable stops every resource and ignores play commands until Enable.
func (e *Engine) Disable() {
	e.mu.Lock()
	e.enabled = false
	e.stopAllLocked()
	e.mu.Unlock()
	e.logger.Info("audio disabled")
}

// Enabled reports whether play commands are honoured.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Announce sends register-audio-player if the engine is enabled.
// Attach calls it on every connection.
func (e *Engine) Announce() {
	if !e.Enabled() || e.sender == nil {
		return
	}
	if err := e.sender.Send(schema.ChannelRegisterAudioPlayer, schema.RegisterAudioPlayer{}); err != nil {
		e.logger.Debug("audio player announcement dropped", "error", err)
	}
}

// Status summarises the engine.
func (e *Engine) Status() schema.AudioStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	ambients := slices.Sorted(maps.Keys(e.ambients))
	presets := slices.Sorted(maps.Keys(e.presets))
	if ambients == nil {
		ambients = []string{}
	}
	if presets == nil {
		presets = []int{}
	}
	return schema.AudioStatus{
		Unlocked:       e.backend != nil,
		Enabled:        e.enabled,
		MasterVolume:   e.master,
		VoiceVolume:    e.voiceBus,
		AmbientVolume:  e.ambient,
		ActiveAmbients: ambients,
		ActivePresets:  presets,
		VoiceActive:    e.voice != nil,
	}
}

// PlayAmbient starts a looping bed, replacing any bed with the same id.
func (e *Engine) PlayAmbient(command schema.PlayAmbient) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled || command.SoundID == "" {
		return
	}
	e.trace("play ambient", "sound_id", command.SoundID)

	if existing := e.ambients[command.SoundID]; existing != nil {
		e.release(existing.player)
		delete(e.ambients, command.SoundID)
	}
	player := e.load(command.AudioBase64, command.MimeType, true, "ambient "+command.SoundID)
	if player == nil {
		return
	}
	bed := &ambientBed{player: player}
	if command.Volume != nil && !math.IsNaN(*command.Volume) {
		pinned := clamp(*command.Volume)
		bed.pinned = &pinned
		player.SetVolume(min(1, pinned*e.master))
	} else {
		player.SetVolume(e.ambientGainLocked(bed))
	}
	e.ambients[command.SoundID] = bed
	player.Play()
}

// StopAmbient stops one bed, or all of them when no id is given.
// Stopping an id that is not playing does nothing.
func (e *Engine) StopAmbient(command schema.StopAmbient) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if command.SoundID == "" {
		e.trace("stop all ambient", "count", len(e.ambients))
		for id, bed := range e.ambients {
			e.release(bed.player)
			delete(e.ambients, id)
		}
		return
	}
	bed := e.ambients[command.SoundID]
	if bed == nil {
		return
	}
	e.trace("stop ambient", "sound_id", command.SoundID)
	e.release(bed.player)
	delete(e.ambients, command.SoundID)
}

// PlayPreset starts the track at an index, replacing any track there.
func (e *Engine) PlayPreset(command schema.PlayPreset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled || command.PresetIdx == nil {
		return
	}
	index := *command.PresetIdx
	e.trace("play preset", "preset", index, "file", command.File)

	if existing := e.presets[index]; existing != nil {
		e.release(existing.player)
		delete(e.presets, index)
	}
	player := e.load(command.AudioBase64, command.MimeType, false, "preset")
	if player == nil {
		return
	}
	player.SetVolume(e.master)
	e.presets[index] = &presetTrack{player: player}
	player.Play()
}

// PausePreset pauses a track, keeping its position.
func (e *Engine) PausePreset(command schema.PresetRef) {
	e.withPreset(command.PresetIdx, "pause preset", func(track *presetTrack) {
		track.player.Pause()
		track.paused = true
	})
}

// ResumePreset resumes a paused track.
func (e *Engine) ResumePreset(command schema.PresetRef) {
	e.withPreset(command.PresetIdx, "resume preset", func(track *presetTrack) {
		track.player.Play()
		track.paused = false
	})
}

// SeekPreset moves a track to a position in seconds. Commands without
// a time are ignored.
func (e *Engine) SeekPreset(command schema.SeekPreset) {
	if command.CurrentTime == nil || math.IsNaN(*command.CurrentTime) || math.IsInf(*command.CurrentTime, 0) {
		return
	}
	position := max(0, time.Duration(*command.CurrentTime*float64(time.Second)))
	e.withPreset(command.PresetIdx, "seek preset", func(track *presetTrack) {
		if err := track.player.SetPosition(position); err != nil {
			e.logger.Warn("seek failed", "preset", *command.PresetIdx, "position", position, "error", err)
		}
	})
}

// StopPreset pauses, rewinds and discards a track.
func (e *Engine) StopPreset(command schema.PresetRef) {
	e.withPreset(command.PresetIdx, "stop preset", func(track *presetTrack) {
		track.player.Pause()
		if err := track.player.SetPosition(0); err != nil {
			e.logger.Debug("rewind failed", "preset", *command.PresetIdx, "error", err)
		}
		e.release(track.player)
		delete(e.presets, *command.PresetIdx)
	})
}

func (e *Engine) withPreset(index *int, what string, fn func(track *presetTrack)) {
	if index == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	track := e.presets[*index]
	if track == nil {
		return
	}
	e.trace(what, "preset", *index)
	fn(track)
}

// PlayVoice replaces the voice clip.
func (e *Engine) PlayVoice(command schema.PlayTTS) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.enabled {
		return
	}
	e.trace("play tts")
	if e.voice != nil {
		e.release(e.voice)
		e.voice = nil
	}
	mimeType := command.MimeType
	if mimeType == "" {
		mimeType = clip.DefaultMIMEType
	}
	player := e.load(command.AudioBase64, mimeType, false, "tts")
	if player == nil {
		return
	}
	e.voice = player
	e.applyVoiceLocked()
	player.Play()
}

// SetMasterVolume sets the master bus and re-applies every gain.
func (e *Engine) SetMasterVolume(command schema.Volume) {
	volume, ok := busValue(command)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.master = volume
	e.trace("master volume", "percent", percent(volume))
	e.applyPresetLocked()
	e.applyVoiceLocked()
	e.applyAmbientLocked()
}

// SetVoiceVolume sets the voice bus and re-applies the voice gain.
func (e *Engine) SetVoiceVolume(command schema.Volume) {
	volume, ok := busValue(command)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voiceBus = volume
	e.trace("voice volume", "percent", percent(volume))
	e.applyVoiceLocked()
}

// SetAmbientVolume sets the ambient bus and re-applies ambient gains.
func (e *Engine) SetAmbientVolume(command schema.Volume) {
	volume, ok := busValue(command)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ambient = volume
	e.trace("ambient volume", "percent", percent(volume))
	e.applyAmbientLocked()
}

// StopAll tears down every resource of every kind.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopAllLocked()
}

func (e *Engine) stopAllLocked() {
	for id, bed := range e.ambients {
		e.release(bed.player)
		delete(e.ambients, id)
	}
	for index, track := range e.presets {
		e.release(track.player)
		delete(e.presets, index)
	}
	if e.voice != nil {
		e.release(e.voice)
		e.voice = nil
	}
	e.trace("all audio stopped")
}

// Tick reports progress for playing presets and reaps resources that
// finished on their own.
func (e *Engine) Tick() {
	e.mu.Lock()
	connected := e.sender != nil && e.sender.Connected()
	var reports []schema.PresetProgress
	for index, track := range e.presets {
		if track.paused {
			continue
		}
		if !track.player.IsPlaying() {
			duration := track.player.Duration().Seconds()
			reports = append(reports, schema.PresetProgress{
				PresetIdx:   index,
				CurrentTime: duration,
				Duration:    duration,
				Ended:       true,
			})
			e.trace("preset ended", "preset", index)
			e.release(track.player)
			delete(e.presets, index)
			continue
		}
		if connected {
			reports = append(reports, schema.PresetProgress{
				PresetIdx:   index,
				CurrentTime: track.player.Position().Seconds(),
				Duration:    track.player.Duration().Seconds(),
			})
		}
	}
	if e.voice != nil && !e.voice.IsPlaying() {
		e.trace("tts ended")
		e.release(e.voice)
		e.voice = nil
	}
	e.mu.Unlock()

	if e.sender == nil {
		return
	}
	slices.SortFunc(reports, func(a, b schema.PresetProgress) int { return a.PresetIdx - b.PresetIdx })
	for _, report := range reports {
		if err := e.sender.Send(schema.ChannelPresetProgress, report); err != nil {
			e.logger.Debug("preset progress dropped", "preset", report.PresetIdx, "error", err)
		}
	}
}

// Run calls Tick every progress interval until ctx ends, then stops
// every resource.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	interval := e.interval
	e.mu.Unlock()
	ticker := e.clock.NewTicker(interval)
	defer ticker.Stop()
	defer e.StopAll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

func (e *Engine) load(payload, mimeType string, loop bool, what string) Player {
	if e.backend == nil {
		e.logger.Warn("no audio backend, dropping clip", "clip", what)
		return nil
	}
	decoded, err := clip.Decode(payload, mimeType)
	if err != nil {
		e.logger.Warn("undecodable clip", "clip", what, "error", err)
		return nil
	}
	player, err := e.backend.Load(decoded, loop)
	if err != nil {
		e.logger.Warn("clip failed to load", "clip", what, "mime_type", decoded.MIMEType,
			"size", humanize.Bytes(uint64(decoded.Size())), "error", err)
		return nil
	}
	e.trace("clip loaded", "clip", what, "mime_type", decoded.MIMEType,
		"size", humanize.Bytes(uint64(decoded.Size())), "digest", decoded.Digest[:12])
	return player
}

func (e *Engine) release(player Player) {
	player.Pause()
	if err := player.Close(); err != nil {
		e.logger.Debug("closing player", "error", err)
	}
}

func (e *Engine) ambientGainLocked(bed *ambientBed) float64 {
	own := 1.0
	if bed.pinned != nil {
		own = *bed.pinned
	}
	return min(1, own*e.ambient*e.master)
}

func (e *Engine) applyAmbientLocked() {
	for _, bed := range e.ambients {
		bed.player.SetVolume(e.ambientGainLocked(bed))
	}
}

func (e *Engine) applyPresetLocked() {
	for _, track := range e.presets {
		track.player.SetVolume(e.master)
	}
}

func (e *Engine) applyVoiceLocked() {
	if e.voice != nil {
		e.voice.SetVolume(min(1, e.voiceBus*e.master))
	}
}

func (e *Engine) trace(msg string, args ...any) {
	level := slog.LevelDebug
	if e.debug {
		level = slog.LevelInfo
	}
	e.logger.Log(context.Background(), level, msg, args...)
}

func busValue(command schema.Volume) (float64, bool) {
	if command.Volume == nil || math.IsNaN(*command.Volume) {
		return 0, false
	}
	return clamp(*command.Volume), true
}

func clamp(volume float64) float64 {
	if math.IsNaN(volume) {
		return 0
	}
	return min(1, max(0, volume))
}

func percent(volume float64) string {
	return humanize.FtoaWithDigits(volume*100, 0) + "%"
}
