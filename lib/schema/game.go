// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Action is one operator-triggerable command a game declares at
// registration. The console renders one control per action.
type Action struct {
	ID     string   `json:"id"`
	Label  string   `json:"label"`
	Params []string `json:"params,omitempty"`
}

// Register declares the client's identity and capabilities.
type Register struct {
	GameID           string   `json:"gameId"`
	Name             string   `json:"name"`
	AvailableActions []Action `json:"availableActions"`
	Role             string   `json:"role,omitempty"`
}

// StateUpdate carries the full derived client state.
type StateUpdate struct {
	State map[string]any `json:"state"`
}

// Event is a one-shot notification.
type Event struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// Command is an operator instruction.
type Command struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload"`
}

// RegisterAudioPlayer announces that the client plays audio. It has
// no fields and encodes as an empty object.
type RegisterAudioPlayer struct{}
