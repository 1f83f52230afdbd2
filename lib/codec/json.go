// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"fmt"
)

// JSON is the text frame codec.
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

type jsonFrameOut struct {
	Channel string `json:"channel"`
	Payload any    `json:"payload"`
}

type jsonFrameIn struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) Subprotocol() string { return "gamemaster.json" }
func (jsonCodec) Binary() bool        { return false }

func (jsonCodec) EncodeFrame(channel string, payload any) ([]byte, error) {
	data, err := json.Marshal(jsonFrameOut{Channel: channel, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", channel, err)
	}
	return data, nil
}

func (c jsonCodec) DecodeFrame(data []byte) (Message, error) {
	var frame jsonFrameIn
	if err := json.Unmarshal(data, &frame); err != nil {
		return Message{}, fmt.Errorf("decoding json frame: %w", err)
	}
	if frame.Channel == "" {
		return Message{}, fmt.Errorf("decoding json frame: missing channel")
	}
	payload := []byte(frame.Payload)
	if string(payload) == "null" {
		payload = nil
	}
	return NewMessage(c, frame.Channel, payload), nil
}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
