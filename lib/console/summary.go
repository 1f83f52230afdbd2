// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/gamemaster/lib/codec"
	"github.com/bureau-foundation/gamemaster/lib/schema"
)

// Summarize renders an inbound frame as a short operator-facing line.
// Unknown channels fall back to their raw JSON payload.
func Summarize(message codec.Message) string {
	data, err := message.JSON()
	if err != nil {
		return fmt.Sprintf("%s <undecodable: %v>", message.Channel, err)
	}
	payload := gjson.ParseBytes(data)

	switch message.Channel {
	case schema.ChannelRegister:
		var actions []string
		payload.Get("availableActions.#.id").ForEach(func(_, id gjson.Result) bool {
			actions = append(actions, id.String())
			return true
		})
		return fmt.Sprintf("register %s (%s) actions=[%s]",
			payload.Get("gameId").String(), payload.Get("name").String(), strings.Join(actions, " "))

	case schema.ChannelStateUpdate:
		state := payload.Get("state")
		parts := []string{"state"}
		for _, key := range []string{"workflowStep", "displayScreen", "score", "codeStatus"} {
			if value := state.Get(key); value.Exists() {
				parts = append(parts, key+"="+value.String())
			}
		}
		if len(parts) == 1 {
			parts = append(parts, fmt.Sprintf("keys=%d", len(state.Map())))
		}
		return strings.Join(parts, " ")

	case schema.ChannelEvent:
		return fmt.Sprintf("event %s %s", payload.Get("name").String(), payload.Get("data").Raw)

	case schema.ChannelPresetProgress:
		line := fmt.Sprintf("preset %d %.1fs/%.1fs",
			payload.Get("presetIdx").Int(), payload.Get("currentTime").Float(), payload.Get("duration").Float())
		if payload.Get("ended").Bool() {
			line += " ended"
		}
		return line

	case schema.ChannelRegisterAudioPlayer:
		return "audio player registered"

	default:
		return message.Channel + " " + string(data)
	}
}
