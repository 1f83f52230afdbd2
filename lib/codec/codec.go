// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"fmt"
)

// Codec encodes frames and payloads for one wire encoding.
type Codec interface {
	// Name is the short encoding name used in configuration ("json",
	// "cbor").
	Name() string

	// Subprotocol is the websocket subprotocol announcing this codec.
	Subprotocol() string

	// Binary reports whether frames travel as binary websocket
	// messages rather than text.
	Binary() bool

	// EncodeFrame encodes payload under channel.
	EncodeFrame(channel string, payload any) ([]byte, error)

	// DecodeFrame splits a frame into its channel and encoded payload.
	DecodeFrame(data []byte) (Message, error)

	// Marshal and Unmarshal encode bare values.
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Message is one received frame.
type Message struct {
	Channel string

	// Payload is the payload still in the frame's encoding. Empty when
	// the frame carried no payload.
	Payload []byte

	codec Codec
}

// NewMessage builds a Message whose payload is encoded with c.
func NewMessage(c Codec, channel string, payload []byte) Message {
	return Message{Channel: channel, Payload: payload, codec: c}
}

// Decode decodes the payload into v. An absent or null payload leaves
// v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 || m.codec == nil {
		return nil
	}
	if err := m.codec.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", m.Channel, err)
	}
	return nil
}

// JSON renders the payload as JSON regardless of the frame encoding,
// for logs and operator displays. An empty payload renders as "null".
func (m Message) JSON() ([]byte, error) {
	if len(m.Payload) == 0 || m.codec == nil {
		return []byte("null"), nil
	}
	if m.codec.Name() == JSON.Name() {
		return m.Payload, nil
	}
	var value any
	if err := m.codec.Unmarshal(m.Payload, &value); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", m.Channel, err)
	}
	return json.Marshal(value)
}

// ByName returns the codec for a configured encoding name. The empty
// name selects JSON.
func ByName(name string) (Codec, error) {
	switch name {
	case "", JSON.Name():
		return JSON, nil
	case CBOR.Name():
		return CBOR, nil
	default:
		return nil, fmt.Errorf("codec: unknown encoding %q (want json or cbor)", name)
	}
}

// BySubprotocol returns the codec announced by a websocket
// subprotocol, or nil.
func BySubprotocol(subprotocol string) Codec {
	for _, candidate := range []Codec{JSON, CBOR} {
		if candidate.Subprotocol() == subprotocol {
			return candidate
		}
	}
	return nil
}

// Subprotocols lists the subprotocols of every codec, preferred first.
func Subprotocols(preferred Codec) []string {
	list := []string{preferred.Subprotocol()}
	for _, candidate := range []Codec{JSON, CBOR} {
		if candidate.Name() != preferred.Name() {
			list = append(list, candidate.Subprotocol())
		}
	}
	return list
}
