// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/bureau-foundation/gamemaster/lib/schema"
)

// ParseLine turns one line of operator input into a frame.
//
// Two forms are accepted:
//
//	<channel> [json]            audio:master-volume {"volume":0.4}
//	cmd <action> [json]         cmd enter_solution {"code":"admin"}
//
// The second form wraps the action and payload in a command frame. A
// missing JSON argument means an empty object.
func ParseLine(line string) (channel string, payload any, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, fmt.Errorf("empty line")
	}
	head, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	if head == "cmd" {
		action, argument, _ := strings.Cut(rest, " ")
		if action == "" {
			return "", nil, fmt.Errorf("cmd needs an action")
		}
		object, err := parseObject(strings.TrimSpace(argument))
		if err != nil {
			return "", nil, err
		}
		return schema.ChannelCommand, schema.Command{Action: action, Payload: object}, nil
	}

	object, err := parseObject(rest)
	if err != nil {
		return "", nil, err
	}
	return head, object, nil
}

func parseObject(text string) (map[string]any, error) {
	if text == "" {
		return map[string]any{}, nil
	}
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("invalid JSON: %s", text)
	}
	result := gjson.Parse(text)
	if !result.IsObject() {
		return nil, fmt.Errorf("payload must be a JSON object, got %s", result.Type)
	}
	object, _ := result.Value().(map[string]any)
	return object, nil
}
