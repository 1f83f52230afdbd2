// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Submit      key.Binding
	Step        key.Binding
	ToggleAudio key.Binding
	Quit        key.Binding
}

var defaultKeys = keyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "submit password"),
	),
	Step: key.NewBinding(
		key.WithKeys(" ", "space", "enter"),
		key.WithHelp("space", "progress task"),
	),
	ToggleAudio: key.NewBinding(
		key.WithKeys("ctrl+a"),
		key.WithHelp("ctrl+a", "audio on/off"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
}
