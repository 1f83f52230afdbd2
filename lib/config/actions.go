// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/gamemaster/lib/schema"
)

// LoadActions reads an operator action manifest. The file is JSONC
// (comments and trailing commas allowed) holding either a bare array
// of actions or an object with an "actions" array:
//
//	{
//	  // shown as buttons on the console
//	  "actions": [
//	    {"id": "start_screen", "label": "Activer l'écran"},
//	    {"id": "set_code", "label": "Code", "params": ["code"]},
//	  ],
//	}
//
// Every action needs a unique id and a label.
func LoadActions(path string) ([]schema.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading actions: %w", err)
	}
	actions, err := parseActions(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return actions, nil
}

func parseActions(data []byte) ([]schema.Action, error) {
	data = bytes.TrimSpace(data)
	var actions []schema.Action
	if bytes.HasPrefix(data, []byte("[")) {
		if err := json.Unmarshal(data, &actions); err != nil {
			return nil, err
		}
	} else {
		var manifest struct {
			Actions []schema.Action `json:"actions"`
		}
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, err
		}
		actions = manifest.Actions
	}

	var errs []error
	seen := make(map[string]bool, len(actions))
	for index, action := range actions {
		switch {
		case action.ID == "":
			errs = append(errs, fmt.Errorf("action %d has no id", index))
		case seen[action.ID]:
			errs = append(errs, fmt.Errorf("duplicate action id %q", action.ID))
		}
		if action.Label == "" {
			errs = append(errs, fmt.Errorf("action %d (%q) has no label", index, action.ID))
		}
		seen[action.ID] = true
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if actions == nil {
		actions = []schema.Action{}
	}
	return actions, nil
}
