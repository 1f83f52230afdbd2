// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is the binary frame codec.
var CBOR Codec = cborCodec{}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
	cborNil = []byte{0xf6}
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		// Payloads decoded into any (command payloads, state
		// snapshots) must come out as map[string]any so handlers see
		// the same shape whichever codec carried them.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

type cborFrameOut struct {
	Channel string `cbor:"channel"`
	Payload any    `cbor:"payload"`
}

type cborFrameIn struct {
	Channel string          `cbor:"channel"`
	Payload cbor.RawMessage `cbor:"payload"`
}

func (cborCodec) Name() string        { return "cbor" }
func (cborCodec) Subprotocol() string { return "gamemaster.cbor" }
func (cborCodec) Binary() bool        { return true }

func (cborCodec) EncodeFrame(channel string, payload any) ([]byte, error) {
	data, err := encMode.Marshal(cborFrameOut{Channel: channel, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", channel, err)
	}
	return data, nil
}

func (c cborCodec) DecodeFrame(data []byte) (Message, error) {
	var frame cborFrameIn
	if err := decMode.Unmarshal(data, &frame); err != nil {
		return Message{}, fmt.Errorf("decoding cbor frame: %w", err)
	}
	if frame.Channel == "" {
		return Message{}, fmt.Errorf("decoding cbor frame: missing channel")
	}
	payload := []byte(frame.Payload)
	if bytes.Equal(payload, cborNil) {
		payload = nil
	}
	return NewMessage(c, frame.Channel, payload), nil
}

func (cborCodec) Marshal(v any) ([]byte, error)      { return encMode.Marshal(v) }
func (cborCodec) Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }
