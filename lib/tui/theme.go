// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for terminal views. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	LabelText        lipgloss.Color

	// Health colors, for connection and playback state.
	Good    lipgloss.Color
	Warning lipgloss.Color
	Bad     lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("240"),

	HeaderForeground: lipgloss.Color("212"),
	BorderColor:      lipgloss.Color("238"),
	HelpText:         lipgloss.Color("241"),
	LabelText:        lipgloss.Color("245"),

	Good:    lipgloss.Color("42"),  // green
	Warning: lipgloss.Color("214"), // amber
	Bad:     lipgloss.Color("196"), // red
}

// Styles are the lipgloss styles of a theme.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Faint   lipgloss.Style
	Help    lipgloss.Style
	Good    lipgloss.Style
	Warning lipgloss.Style
	Bad     lipgloss.Style
	Section lipgloss.Style
}

// Styles derives the view styles. Labels are padded to labelWidth
// cells so values line up in a column.
func (theme Theme) Styles(labelWidth int) Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground),
		Label:   lipgloss.NewStyle().Foreground(theme.LabelText).Width(labelWidth),
		Faint:   lipgloss.NewStyle().Foreground(theme.FaintText),
		Help:    lipgloss.NewStyle().Foreground(theme.HelpText),
		Good:    lipgloss.NewStyle().Foreground(theme.Good),
		Warning: lipgloss.NewStyle().Foreground(theme.Warning),
		Bad:     lipgloss.NewStyle().Foreground(theme.Bad),
		Section: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.BorderColor).
			Padding(0, 1),
	}
}
