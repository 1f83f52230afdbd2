// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package speaker plays audio clips on the local sound device through
// ebiten's audio package.
//
// Clips are decoded (mp3, wav, or ogg/vorbis) to 16-bit stereo PCM at
// the context's sample rate. Decoded PCM is kept in a clip.Cache keyed
// by the clip digest, so a bed or preset the console sends again is
// not decoded twice.
package speaker

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"

	gmaudio "github.com/bureau-foundation/gamemaster/lib/audio"
	"github.com/bureau-foundation/gamemaster/lib/audio/clip"
)

// DefaultSampleRate is used when no audio context exists yet.
const DefaultSampleRate = 48000

// DefaultCacheBytes bounds decoded PCM kept in memory.
const DefaultCacheBytes = 256 << 20

// bytesPerFrame is 16-bit samples times two channels.
const bytesPerFrame = 4

// ErrUnsupportedMIME is returned for clips in a format without a
// decoder.
var ErrUnsupportedMIME = errors.New("speaker: unsupported MIME type")

type decoder func(sampleRate int, src io.Reader) (io.Reader, error)

var decoders = map[string]decoder{
	"audio/mpeg":   decodeMP3,
	"audio/mp3":    decodeMP3,
	"audio/wav":    decodeWAV,
	"audio/wave":   decodeWAV,
	"audio/x-wav":  decodeWAV,
	"audio/ogg":    decodeVorbis,
	"audio/vorbis": decodeVorbis,
}

func decodeMP3(sampleRate int, src io.Reader) (io.Reader, error) {
	return mp3.DecodeWithSampleRate(sampleRate, src)
}

func decodeWAV(sampleRate int, src io.Reader) (io.Reader, error) {
	return wav.DecodeWithSampleRate(sampleRate, src)
}

func decodeVorbis(sampleRate int, src io.Reader) (io.Reader, error) {
	return vorbis.DecodeWithSampleRate(sampleRate, src)
}

// decoderFor resolves a MIME type, ignoring parameters such as
// "codecs=vorbis".
func decoderFor(mimeType string) (decoder, error) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnsupportedMIME, mimeType, err)
	}
	decode, ok := decoders[mediaType]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupportedMIME, mediaType)
	}
	return decode, nil
}

// Backend implements audio.Backend on an ebiten audio context.
type Backend struct {
	context *audio.Context
	cache   *clip.Cache[[]byte]
	logger  *slog.Logger
}

// New returns a backend on the process audio context, creating one at
// sampleRate if none exists. ebiten allows only one context per
// process, so an existing context keeps its own rate.
func New(sampleRate int, cacheBytes int64, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if cacheBytes <= 0 {
		cacheBytes = DefaultCacheBytes
	}
	context := audio.CurrentContext()
	if context == nil {
		context = audio.NewContext(sampleRate)
	}
	logger = logger.With("component", "speaker")
	return &Backend{
		context: context,
		cache:   clip.NewCache[[]byte](cacheBytes, logger),
		logger:  logger,
	}
}

// Load decodes c, reusing cached PCM, and returns a stopped player.
func (b *Backend) Load(c *clip.Clip, loop bool) (gmaudio.Player, error) {
	pcm, err := b.pcm(c)
	if err != nil {
		return nil, err
	}
	var player *audio.Player
	if loop {
		player, err = b.context.NewPlayer(audio.NewInfiniteLoop(bytes.NewReader(pcm), int64(len(pcm))))
		if err != nil {
			return nil, fmt.Errorf("speaker: creating loop player: %w", err)
		}
	} else {
		player = b.context.NewPlayerFromBytes(pcm)
	}
	frames := len(pcm) / bytesPerFrame
	duration := time.Duration(frames) * time.Second / time.Duration(b.context.SampleRate())
	return &ebitenPlayer{Player: player, duration: duration}, nil
}

func (b *Backend) pcm(c *clip.Clip) ([]byte, error) {
	if cached, ok := b.cache.Get(c.Digest); ok {
		return cached, nil
	}
	decode, err := decoderFor(c.MIMEType)
	if err != nil {
		return nil, err
	}
	stream, err := decode(b.context.SampleRate(), bytes.NewReader(c.Data))
	if err != nil {
		return nil, fmt.Errorf("speaker: decoding %s: %w", c.MIMEType, err)
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("speaker: reading %s stream: %w", c.MIMEType, err)
	}
	b.cache.Put(c.Digest, pcm, int64(len(pcm)))
	b.logger.Debug("clip decoded",
		"mime_type", c.MIMEType,
		"encoded", humanize.Bytes(uint64(c.Size())),
		"pcm", humanize.Bytes(uint64(len(pcm))),
		"cached", humanize.Bytes(uint64(b.cache.Used())))
	return pcm, nil
}

// ebitenPlayer adds the clip duration ebiten players do not expose.
type ebitenPlayer struct {
	*audio.Player
	duration time.Duration
}

func (p *ebitenPlayer) Duration() time.Duration {
	return p.duration
}
