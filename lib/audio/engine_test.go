// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package audio

import (
	"encoding/base64"
	"errors"
	"math"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/gamemaster/lib/audio/clip"
	"github.com/bureau-foundation/gamemaster/lib/clock"
	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/schema"
	"github.com/bureau-foundation/gamemaster/transport"
)

// fakePlayer is an in-memory Player.
type fakePlayer struct {
	data     string
	loop     bool
	playing  bool
	closed   bool
	volume   float64
	position time.Duration
	duration time.Duration
}

func (p *fakePlayer) Play()                   { p.playing = true }
func (p *fakePlayer) Pause()                  { p.playing = false }
func (p *fakePlayer) IsPlaying() bool         { return p.playing }
func (p *fakePlayer) Position() time.Duration { return p.position }
func (p *fakePlayer) Duration() time.Duration { return p.duration }
func (p *fakePlayer) SetVolume(volume float64) {
	p.volume = volume
}
func (p *fakePlayer) SetPosition(position time.Duration) error {
	p.position = position
	return nil
}
func (p *fakePlayer) Close() error {
	p.closed = true
	return nil
}

// finish simulates the track reaching its end.
func (p *fakePlayer) finish() {
	p.position = p.duration
	p.playing = false
}

type fakeBackend struct {
	players []*fakePlayer
	fail    bool
}

func (b *fakeBackend) Load(c *clip.Clip, loop bool) (Player, error) {
	if b.fail || string(c.Data) == "corrupt" {
		return nil, errors.New("cannot decode")
	}
	player := &fakePlayer{data: string(c.Data), loop: loop, duration: 3 * time.Second}
	b.players = append(b.players, player)
	return player, nil
}

func (b *fakeBackend) last() *fakePlayer {
	return b.players[len(b.players)-1]
}

type fakeSender struct {
	mu        sync.Mutex
	connected bool
	sent      []sentFrame
}

type sentFrame struct {
	channel string
	payload any
}

func (s *fakeSender) Send(channel string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return transport.ErrNotConnected
	}
	s.sent = append(s.sent, sentFrame{channel, payload})
	return nil
}

func (s *fakeSender) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSender) progress() []schema.PresetProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	var reports []schema.PresetProgress
	for _, frame := range s.sent {
		if frame.channel == schema.ChannelPresetProgress {
			reports = append(reports, frame.payload.(schema.PresetProgress))
		}
	}
	return reports
}

func (s *fakeSender) count(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, frame := range s.sent {
		if frame.channel == channel {
			n++
		}
	}
	return n
}

func b64(data string) string {
	return base64.StdEncoding.EncodeToString([]byte(data))
}

func index(i int) *int { return &i }

func volume(v float64) *float64 { return &v }

func newEngine(t *testing.T) (*Engine, *fakeBackend, *fakeSender) {
	t.Helper()
	backend := &fakeBackend{}
	sender := &fakeSender{connected: true}
	engine := New(Options{Backend: backend, Sender: sender, Clock: clock.Fake(time.Unix(0, 0))})
	return engine, backend, sender
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAmbientReplacesSameID(t *testing.T) {
	engine, backend, _ := newEngine(t)
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "rain", AudioBase64: b64("first"), MimeType: "audio/mpeg"})
	first := backend.last()
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "rain", AudioBase64: b64("second"), MimeType: "audio/mpeg"})
	second := backend.last()

	if !first.closed || first.playing {
		t.Error("first bed was not stopped")
	}
	if !second.playing || !second.loop {
		t.Errorf("second bed playing=%v loop=%v", second.playing, second.loop)
	}
	if got := engine.Status().ActiveAmbients; !slices.Equal(got, []string{"rain"}) {
		t.Errorf("ActiveAmbients = %v", got)
	}
}

func TestStopAmbient(t *testing.T) {
	engine, backend, _ := newEngine(t)
	for _, id := range []string{"rain", "wind", "hum"} {
		engine.PlayAmbient(schema.PlayAmbient{SoundID: id, AudioBase64: b64(id)})
	}
	engine.StopAmbient(schema.StopAmbient{SoundID: "wind"})
	if got := engine.Status().ActiveAmbients; !slices.Equal(got, []string{"hum", "rain"}) {
		t.Fatalf("ActiveAmbients = %v", got)
	}
	// Unknown id leaves the others alone.
	engine.StopAmbient(schema.StopAmbient{SoundID: "thunder"})
	if len(engine.Status().ActiveAmbients) != 2 {
		t.Fatal("unknown id stopped other beds")
	}

	engine.StopAmbient(schema.StopAmbient{})
	if len(engine.Status().ActiveAmbients) != 0 {
		t.Fatal("stop without id left beds playing")
	}
	for _, player := range backend.players {
		if !player.closed {
			t.Errorf("player %q not closed", player.data)
		}
	}
	// Already empty: a no-op, not a failure.
	engine.StopAmbient(schema.StopAmbient{SoundID: "rain"})
	engine.StopAmbient(schema.StopAmbient{})
}

func TestAmbientGains(t *testing.T) {
	engine, backend, _ := newEngine(t)
	engine.SetMasterVolume(schema.Volume{Volume: volume(0.8)})
	engine.SetAmbientVolume(schema.Volume{Volume: volume(0.5)})

	engine.PlayAmbient(schema.PlayAmbient{SoundID: "bus", AudioBase64: b64("bus")})
	bus := backend.last()
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "pinned", AudioBase64: b64("pinned"), Volume: volume(0.9)})
	pinned := backend.last()

	if !near(bus.volume, 0.4) {
		t.Errorf("bus bed volume = %v, want 0.4", bus.volume)
	}
	// The pinned volume bypasses the ambient bus at play time.
	if !near(pinned.volume, 0.72) {
		t.Errorf("pinned bed volume = %v, want 0.72", pinned.volume)
	}

	engine.SetMasterVolume(schema.Volume{Volume: volume(0.5)})
	if !near(bus.volume, 0.25) {
		t.Errorf("bus bed volume after master = %v, want 0.25", bus.volume)
	}
	if !near(pinned.volume, 0.9*0.5*0.5) {
		t.Errorf("pinned bed volume after master = %v, want %v", pinned.volume, 0.9*0.5*0.5)
	}

	engine.SetAmbientVolume(schema.Volume{Volume: volume(1)})
	if !near(bus.volume, 0.5) || !near(pinned.volume, 0.45) {
		t.Errorf("after ambient bus: bus=%v pinned=%v", bus.volume, pinned.volume)
	}
}

func TestMasterVolumeReappliesEveryKind(t *testing.T) {
	engine, backend, _ := newEngine(t)
	engine.SetVoiceVolume(schema.Volume{Volume: volume(0.5)})
	engine.SetAmbientVolume(schema.Volume{Volume: volume(0.6)})
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(0), AudioBase64: b64("p0")})
	preset0 := backend.last()
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(4), AudioBase64: b64("p4")})
	preset4 := backend.last()
	engine.PlayVoice(schema.PlayTTS{AudioBase64: b64("voice")})
	voice := backend.last()
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "bed", AudioBase64: b64("bed")})
	bed := backend.last()

	engine.SetMasterVolume(schema.Volume{Volume: volume(0.7)})
	if preset0.volume != 0.7 || preset4.volume != 0.7 {
		t.Errorf("preset volumes = %v, %v, want exactly 0.7", preset0.volume, preset4.volume)
	}
	if !near(voice.volume, min(1, 0.5*0.7)) {
		t.Errorf("voice volume = %v", voice.volume)
	}
	if !near(bed.volume, min(1, 0.6*0.7)) {
		t.Errorf("bed volume = %v", bed.volume)
	}

	// The voice bus only touches the voice clip.
	engine.SetVoiceVolume(schema.Volume{Volume: volume(1)})
	if !near(voice.volume, 0.7) || preset0.volume != 0.7 || !near(bed.volume, 0.42) {
		t.Errorf("after voice bus: voice=%v preset=%v bed=%v", voice.volume, preset0.volume, bed.volume)
	}
}

func TestVolumeCommandsValidated(t *testing.T) {
	engine, _, _ := newEngine(t)
	engine.SetMasterVolume(schema.Volume{})
	engine.SetMasterVolume(schema.Volume{Volume: volume(math.NaN())})
	if engine.Status().MasterVolume != 1 {
		t.Errorf("MasterVolume = %v after invalid commands", engine.Status().MasterVolume)
	}
	engine.SetMasterVolume(schema.Volume{Volume: volume(3)})
	engine.SetVoiceVolume(schema.Volume{Volume: volume(-1)})
	status := engine.Status()
	if status.MasterVolume != 1 || status.VoiceVolume != 0 {
		t.Errorf("volumes = %v/%v, want clamped 1/0", status.MasterVolume, status.VoiceVolume)
	}
}

func TestPresetReplacedAtSameIndex(t *testing.T) {
	engine, backend, sender := newEngine(t)
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(2), AudioBase64: b64("first")})
	first := backend.last()
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(2), AudioBase64: b64("second")})
	second := backend.last()
	second.position = time.Second

	if !first.closed {
		t.Error("first preset not stopped")
	}
	if got := engine.Status().ActivePresets; !slices.Equal(got, []int{2}) {
		t.Fatalf("ActivePresets = %v", got)
	}

	engine.Tick()
	want := []schema.PresetProgress{{PresetIdx: 2, CurrentTime: 1, Duration: 3}}
	if got := sender.progress(); !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %+v, want %+v", got, want)
	}
	if second.data != "second" {
		t.Errorf("live preset plays %q", second.data)
	}
}

func TestPresetNaturalEnd(t *testing.T) {
	engine, backend, sender := newEngine(t)
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(1), AudioBase64: b64("track")})
	player := backend.last()
	player.finish()

	engine.Tick()
	want := []schema.PresetProgress{{PresetIdx: 1, CurrentTime: 3, Duration: 3, Ended: true}}
	if got := sender.progress(); !reflect.DeepEqual(got, want) {
		t.Fatalf("progress = %+v, want %+v", got, want)
	}
	if len(engine.Status().ActivePresets) != 0 || !player.closed {
		t.Error("finished preset not discarded")
	}

	engine.Tick()
	if len(sender.progress()) != 1 {
		t.Error("finished preset reported twice")
	}
}

func TestPresetProgressOnlyWhilePlayingAndConnected(t *testing.T) {
	engine, _, sender := newEngine(t)
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(0), AudioBase64: b64("track")})

	engine.PausePreset(schema.PresetRef{PresetIdx: index(0)})
	engine.Tick()
	if len(sender.progress()) != 0 {
		t.Fatal("paused preset reported progress")
	}
	if len(engine.Status().ActivePresets) != 1 {
		t.Fatal("paused preset mistaken for a finished one")
	}

	engine.ResumePreset(schema.PresetRef{PresetIdx: index(0)})
	sender.mu.Lock()
	sender.connected = false
	sender.mu.Unlock()
	engine.Tick()
	if len(sender.progress()) != 0 {
		t.Fatal("progress reported while disconnected")
	}

	sender.mu.Lock()
	sender.connected = true
	sender.mu.Unlock()
	engine.Tick()
	if len(sender.progress()) != 1 {
		t.Errorf("progress = %+v, want one report", sender.progress())
	}
}

func TestPresetTransport(t *testing.T) {
	engine, backend, _ := newEngine(t)
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(3), AudioBase64: b64("track")})
	player := backend.last()

	engine.SeekPreset(schema.SeekPreset{PresetIdx: index(3), CurrentTime: volume(1.5)})
	if player.position != 1500*time.Millisecond {
		t.Errorf("position = %v after seek", player.position)
	}
	engine.SeekPreset(schema.SeekPreset{PresetIdx: index(3)})
	if player.position != 1500*time.Millisecond {
		t.Error("seek without a time moved the track")
	}

	// Commands for absent or unspecified presets are no-ops.
	engine.PausePreset(schema.PresetRef{PresetIdx: index(9)})
	engine.ResumePreset(schema.PresetRef{})
	engine.SeekPreset(schema.SeekPreset{PresetIdx: index(9), CurrentTime: volume(1)})
	engine.StopPreset(schema.PresetRef{PresetIdx: index(9)})

	engine.StopPreset(schema.PresetRef{PresetIdx: index(3)})
	if player.position != 0 || player.playing || !player.closed {
		t.Errorf("stopped preset: position=%v playing=%v closed=%v", player.position, player.playing, player.closed)
	}
	if len(engine.Status().ActivePresets) != 0 {
		t.Error("stopped preset still active")
	}
}

func TestVoiceSingleton(t *testing.T) {
	engine, backend, _ := newEngine(t)
	engine.PlayVoice(schema.PlayTTS{AudioBase64: b64("one")})
	first := backend.last()
	engine.PlayVoice(schema.PlayTTS{AudioBase64: b64("two"), MimeType: "audio/wav"})
	second := backend.last()
	if !first.closed || !second.playing {
		t.Fatal("second clip did not replace the first")
	}

	second.finish()
	engine.Tick()
	if engine.Status().VoiceActive {
		t.Error("finished voice clip still active")
	}
}

func TestPlaybackFaultsAreSwallowed(t *testing.T) {
	engine, backend, _ := newEngine(t)
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "bad", AudioBase64: "%%%"})
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "corrupt", AudioBase64: b64("corrupt")})
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(0), AudioBase64: ""})
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "good", AudioBase64: b64("good")})

	status := engine.Status()
	if !slices.Equal(status.ActiveAmbients, []string{"good"}) || len(status.ActivePresets) != 0 {
		t.Errorf("status = %+v", status)
	}
	if len(backend.players) != 1 {
		t.Errorf("backend loaded %d players, want 1", len(backend.players))
	}
}

func TestStopAll(t *testing.T) {
	engine, backend, _ := newEngine(t)
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "bed", AudioBase64: b64("bed")})
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(0), AudioBase64: b64("p")})
	engine.PlayVoice(schema.PlayTTS{AudioBase64: b64("v")})
	engine.StopAll()

	status := engine.Status()
	if len(status.ActiveAmbients)+len(status.ActivePresets) != 0 || status.VoiceActive {
		t.Errorf("status after stop-all = %+v", status)
	}
	for _, player := range backend.players {
		if !player.closed {
			t.Errorf("player %q survived stop-all", player.data)
		}
	}
}

func TestDisableAndEnable(t *testing.T) {
	engine, backend, sender := newEngine(t)
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "bed", AudioBase64: b64("bed")})
	engine.Disable()
	if !backend.players[0].closed {
		t.Error("disable left a bed playing")
	}
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "bed", AudioBase64: b64("bed")})
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(0), AudioBase64: b64("p")})
	engine.PlayVoice(schema.PlayTTS{AudioBase64: b64("v")})
	if len(backend.players) != 1 {
		t.Fatal("play commands honoured while disabled")
	}

	engine.Enable()
	if sender.count(schema.ChannelRegisterAudioPlayer) != 1 {
		t.Error("enable did not announce the audio player")
	}
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "bed", AudioBase64: b64("bed")})
	if len(backend.players) != 2 {
		t.Error("play ignored after enable")
	}
}

func TestConfigure(t *testing.T) {
	engine, backend, sender := newEngine(t)
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(0), AudioBase64: b64("p")})
	config := DefaultConfig()
	config.MasterVolume = 0.3
	engine.Configure(config)
	if backend.last().volume != 0.3 {
		t.Errorf("preset volume = %v after configure", backend.last().volume)
	}

	config.Enabled = false
	engine.Configure(config)
	if !backend.last().closed || engine.Enabled() {
		t.Error("configure disabled did not stop playback")
	}
	config.Enabled = true
	engine.Configure(config)
	if sender.count(schema.ChannelRegisterAudioPlayer) != 1 {
		t.Error("configure enabled did not announce")
	}
}

func TestNewHonoursDisabledConfig(t *testing.T) {
	backend := &fakeBackend{}
	sender := &fakeSender{connected: true}
	engine := New(Options{
		Backend: backend,
		Sender:  sender,
		Config:  &Config{Enabled: false},
		Clock:   clock.Fake(time.Unix(0, 0)),
	})
	if engine.Enabled() {
		t.Fatal("engine built from a disabled config is enabled")
	}
	engine.Announce()
	engine.PlayAmbient(schema.PlayAmbient{SoundID: "rain", AudioBase64: b64("rain")})
	if len(backend.players) != 0 {
		t.Errorf("disabled engine loaded %d players", len(backend.players))
	}
	if sender.count(schema.ChannelRegisterAudioPlayer) != 0 {
		t.Error("disabled engine announced the audio player")
	}

	defaults := New(Options{Backend: backend, Sender: sender})
	if status := defaults.Status(); !status.Enabled || status.MasterVolume != 1 {
		t.Errorf("nil config status = %+v, want enabled at full gain", status)
	}
}

// fakeSession routes frames to subscribed handlers.
type fakeSession struct {
	handlers map[string][]transport.Handler
	connects []func()
}

func (s *fakeSession) OnReceive(channel string, handler transport.Handler) func() {
	if s.handlers == nil {
		s.handlers = make(map[string][]transport.Handler)
	}
	s.handlers[channel] = append(s.handlers[channel], handler)
	return func() { delete(s.handlers, channel) }
}

func (s *fakeSession) OnConnect(fn func()) func() {
	s.connects = append(s.connects, fn)
	return func() { s.connects = nil }
}

func (s *fakeSession) deliver(t *testing.T, channel, payload string) {
	t.Helper()
	for _, handler := range s.handlers[channel] {
		handler(codec.NewMessage(codec.JSON, channel, []byte(payload)))
	}
}

func TestAttach(t *testing.T) {
	engine, backend, sender := newEngine(t)
	session := &fakeSession{}
	detach := engine.Attach(session)

	for _, connect := range session.connects {
		connect()
	}
	if sender.count(schema.ChannelRegisterAudioPlayer) != 1 {
		t.Error("connect did not announce the audio player")
	}

	session.deliver(t, schema.ChannelPlayPreset, `{"presetIdx":2,"file":"intro.mp3","audioBase64":"`+b64("intro")+`","mimeType":"audio/mpeg"}`)
	session.deliver(t, schema.ChannelSeekPreset, `{"presetIdx":2,"currentTime":"later"}`)
	session.deliver(t, schema.ChannelPlayPreset, `{"file":"no-index.mp3","audioBase64":"`+b64("x")+`"}`)
	session.deliver(t, schema.ChannelMasterVolume, `{"volume":0.5}`)
	session.deliver(t, schema.ChannelAmbientVolume, `{}`)

	status := engine.Status()
	if !slices.Equal(status.ActivePresets, []int{2}) {
		t.Errorf("ActivePresets = %v", status.ActivePresets)
	}
	if status.MasterVolume != 0.5 || status.AmbientVolume != 1 {
		t.Errorf("volumes = %+v", status)
	}
	if backend.last().position != 0 {
		t.Error("malformed seek moved the track")
	}

	session.deliver(t, schema.ChannelStopAll, `{}`)
	if len(engine.Status().ActivePresets) != 0 {
		t.Error("stop-all frame ignored")
	}

	detach()
	if len(session.handlers) != 0 || session.connects != nil {
		t.Error("detach left subscriptions behind")
	}
}

func TestRunTicksOnClock(t *testing.T) {
	backend := &fakeBackend{}
	sender := &fakeSender{connected: true}
	fake := clock.Fake(time.Unix(0, 0))
	engine := New(Options{Backend: backend, Sender: sender, Clock: fake})
	engine.PlayPreset(schema.PlayPreset{PresetIdx: index(0), AudioBase64: b64("p")})

	ctx, cancel := contextWithCancel()
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()
	fake.WaitForTimers(1)
	fake.Advance(DefaultProgressInterval)
	waitFor(t, func() bool { return len(sender.progress()) == 1 })

	cancel()
	<-done
	if len(engine.Status().ActivePresets) != 0 {
		t.Error("Run exit left presets playing")
	}
}
