// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/json"
	"testing"
)

type seekPayload struct {
	PresetIdx   int      `json:"presetIdx"`
	CurrentTime *float64 `json:"currentTime,omitempty"`
}

func TestFrameRoundTripPerCodec(t *testing.T) {
	for _, c := range []Codec{JSON, CBOR} {
		t.Run(c.Name(), func(t *testing.T) {
			seconds := 12.5
			data, err := c.EncodeFrame("audio:seek-preset", seekPayload{PresetIdx: 2, CurrentTime: &seconds})
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			message, err := c.DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if message.Channel != "audio:seek-preset" {
				t.Errorf("channel = %q", message.Channel)
			}
			var decoded seekPayload
			if err := message.Decode(&decoded); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if decoded.PresetIdx != 2 || decoded.CurrentTime == nil || *decoded.CurrentTime != 12.5 {
				t.Errorf("decoded %+v", decoded)
			}
		})
	}
}

func TestNullPayloadLeavesTargetUntouched(t *testing.T) {
	for _, c := range []Codec{JSON, CBOR} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.EncodeFrame("audio:stop-all", nil)
			if err != nil {
				t.Fatalf("EncodeFrame: %v", err)
			}
			message, err := c.DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if len(message.Payload) != 0 {
				t.Errorf("payload = %x, want empty", message.Payload)
			}
			target := seekPayload{PresetIdx: 7}
			if err := message.Decode(&target); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if target.PresetIdx != 7 {
				t.Errorf("target modified: %+v", target)
			}
		})
	}
}

func TestCBORMapsDecodeAsStringKeyed(t *testing.T) {
	data, err := CBOR.EncodeFrame("command", map[string]any{
		"action":  "set_code",
		"payload": map[string]any{"code": "admin"},
	})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	message, err := CBOR.DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	var command struct {
		Action  string         `json:"action"`
		Payload map[string]any `json:"payload"`
	}
	if err := message.Decode(&command); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if command.Payload["code"] != "admin" {
		t.Errorf("payload = %#v", command.Payload)
	}
}

func TestCBOREncodingIsDeterministic(t *testing.T) {
	state := map[string]any{"score": 3, "phase": 2, "currentScreen": "game", "in_progress": true}
	first, err := CBOR.EncodeFrame("state_update", map[string]any{"state": state})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	for range 10 {
		again, err := CBOR.EncodeFrame("state_update", map[string]any{"state": state})
		if err != nil {
			t.Fatalf("EncodeFrame: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("CBOR frame encoding differs between calls")
		}
	}
}

func TestMessageJSONTranscodesCBOR(t *testing.T) {
	data, err := CBOR.EncodeFrame("event", map[string]any{"name": "game_started", "data": map[string]any{}})
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	message, err := CBOR.DecodeFrame(data)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}
	rendered, err := message.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(rendered, &decoded); err != nil {
		t.Fatalf("rendered JSON invalid: %v (%s)", err, rendered)
	}
	if decoded["name"] != "game_started" {
		t.Errorf("rendered %s", rendered)
	}
}

func TestDecodeFrameRejectsMissingChannel(t *testing.T) {
	if _, err := JSON.DecodeFrame([]byte(`{"payload":{}}`)); err == nil {
		t.Error("JSON frame without channel accepted")
	}
	if _, err := JSON.DecodeFrame([]byte(`not json`)); err == nil {
		t.Error("garbage accepted as JSON frame")
	}
}

func TestByName(t *testing.T) {
	for name, want := range map[string]string{"": "json", "json": "json", "cbor": "cbor"} {
		c, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q): %v", name, err)
		}
		if c.Name() != want {
			t.Errorf("ByName(%q) = %s, want %s", name, c.Name(), want)
		}
	}
	if _, err := ByName("xml"); err == nil {
		t.Error("ByName accepted an unknown encoding")
	}
	if got := Subprotocols(CBOR); len(got) != 2 || got[0] != "gamemaster.cbor" {
		t.Errorf("Subprotocols(CBOR) = %v", got)
	}
	if BySubprotocol("gamemaster.json") != JSON {
		t.Error("BySubprotocol did not resolve the JSON codec")
	}
}
