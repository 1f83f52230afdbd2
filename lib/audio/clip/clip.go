// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clip decodes the base64 audio payloads the console sends and
// identifies them by content.
//
// Every decoded [Clip] carries a blake3 digest of its encoded bytes.
// Consoles resend the same ambient beds and presets many times per
// session; the digest lets playback backends keep one decoded copy per
// distinct sound in a bounded [Cache].
package clip

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// DefaultMIMEType is assumed when a payload names no MIME type.
const DefaultMIMEType = "audio/mpeg"

// ErrEmptyPayload is returned for a payload with no audio bytes.
var ErrEmptyPayload = errors.New("clip: empty audio payload")

// Clip is one encoded sound.
type Clip struct {
	// Data is the encoded audio (mp3, wav, ogg), not PCM.
	Data []byte

	MIMEType string

	// Digest is the hex blake3 digest of Data.
	Digest string
}

// Size returns the encoded size in bytes.
func (c *Clip) Size() int {
	return len(c.Data)
}

// Decode decodes a base64 payload. A data: URI is accepted as well, in
// which case its media type wins over mimeType. An empty mimeType
// selects [DefaultMIMEType].
func Decode(payload, mimeType string) (*Clip, error) {
	payload = strings.TrimSpace(payload)
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found {
			return nil, fmt.Errorf("clip: malformed data URI")
		}
		mediaType, _, _ := strings.Cut(header, ";")
		if mediaType != "" {
			mimeType = mediaType
		}
		payload = body
	}
	if payload == "" {
		return nil, ErrEmptyPayload
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some encoders strip padding.
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return nil, fmt.Errorf("clip: decoding base64: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return &Clip{Data: data, MIMEType: mimeType, Digest: Digest(data)}, nil
}

// Digest returns the hex blake3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
