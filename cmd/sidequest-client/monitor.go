// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/gamemaster/lib/logging"
	"github.com/bureau-foundation/gamemaster/lib/sidequest"
	"github.com/bureau-foundation/gamemaster/lib/tui"
	"github.com/bureau-foundation/gamemaster/transport"
)

const (
	refreshInterval = 100 * time.Millisecond
	visibleLogLines = 8
)

// controller is the part of the game the monitor drives. Every call
// happens inside a tea.Cmd, never in Update, so a game lock held while
// logging can never stall the render loop.
type controller interface {
	snapshot() snapshot
	submitPassword(text string) bool
	stepTask()
	toggleAudio()
}

// tickMsg carries a periodic snapshot and re-arms the refresh.
type tickMsg snapshot

// actionMsg carries the snapshot taken right after a local action.
type actionMsg snapshot

var styles = tui.DefaultTheme.Styles(14)

type monitor struct {
	game    controller
	tail    *logging.Tail
	keys    keyMap
	input   textinput.Model
	current snapshot
	loaded  bool
	width   int
}

func newMonitor(game controller, tail *logging.Tail) monitor {
	input := textinput.New()
	input.Prompt = "mot de passe > "
	input.Placeholder = "admin"
	input.CharLimit = 64
	input.Focus()
	return monitor{game: game, tail: tail, keys: defaultKeys, input: input}
}

func (m monitor) Init() tea.Cmd {
	game := m.game
	return tea.Batch(textinput.Blink, func() tea.Msg { return tickMsg(game.snapshot()) })
}

func refresh(game controller) tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return tickMsg(game.snapshot())
	})
}

func act(game controller, action func()) tea.Cmd {
	return func() tea.Msg {
		action()
		return actionMsg(game.snapshot())
	}
}

func (m monitor) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tickMsg:
		m.current = snapshot(message)
		m.loaded = true
		return m, refresh(m.game)

	case actionMsg:
		m.current = snapshot(message)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = message.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(message)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(message)
	return m, cmd
}

func (m monitor) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	game := m.game
	switch {
	case key.Matches(message, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(message, m.keys.ToggleAudio):
		return m, act(game, game.toggleAudio)
	}

	switch m.current.screen {
	case sidequest.ScreenLock:
		if key.Matches(message, m.keys.Submit) {
			text := m.input.Value()
			m.input.Reset()
			return m, act(game, func() { game.submitPassword(text) })
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(message)
		return m, cmd

	case sidequest.ScreenGame:
		if key.Matches(message, m.keys.Step) {
			return m, act(game, game.stepTask)
		}
	}
	return m, nil
}

func (m monitor) View() string {
	if !m.loaded {
		return "connecting...\n"
	}
	current := m.current
	var sections []string

	header := styles.Title.Render(sidequest.Name) + "  " + connectionLabel(current.connection)
	sections = append(sections, header)

	state := []string{
		row("screen", current.state.String("displayScreen")),
		row("step", current.state.String("workflowStep")),
		row("score", fmt.Sprintf("%d", current.state.Int("score"))),
	}
	sections = append(sections, styles.Section.Render(strings.Join(state, "\n")))

	switch current.screen {
	case sidequest.ScreenLock:
		sections = append(sections, styles.Section.Render(m.lockView()))
	case sidequest.ScreenHome:
		sections = append(sections, styles.Section.Render("intro en cours..."))
	case sidequest.ScreenGame:
		sections = append(sections, styles.Section.Render(gameView(current.game)))
	}

	sections = append(sections, styles.Section.Render(audioView(current)))
	if m.tail != nil {
		sections = append(sections, logView(m.tail.Lines()))
	}
	sections = append(sections, styles.Help.Render(m.helpLine()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m monitor) lockView() string {
	current := m.current
	if !current.state.Bool("startScreen") {
		return styles.Faint.Render("écran noir, en attente de start_screen")
	}
	lines := []string{row("saisie", current.entered)}
	if current.typing {
		lines = append(lines, styles.Warning.Render("saisie opérateur en cours..."))
	} else {
		lines = append(lines, m.input.View())
	}
	return strings.Join(lines, "\n")
}

func gameView(status sidequest.GameStatus) string {
	lines := []string{
		row("tâche", fmt.Sprintf("%d/%d %s", status.Task.Phase, sidequest.PhaseCount, status.Task.Label)),
		row("progression", progressBar(status.Progress, status.Task.Steps, 20)),
		row("paquets", fmt.Sprintf("%d", status.Sent)),
	}
	if status.Sending {
		lines = append(lines, styles.Good.Render("envoi du paquet..."))
	}
	for _, line := range status.Log {
		lines = append(lines, styles.Faint.Render(line))
	}
	return strings.Join(lines, "\n")
}

func audioView(current snapshot) string {
	status := current.audio
	enabled := styles.Bad.Render("off")
	if status.Enabled {
		enabled = styles.Good.Render("on")
	}
	lines := []string{
		row("audio", enabled),
		row("volumes", fmt.Sprintf("master %.0f%%  voix %.0f%%  ambiance %.0f%%",
			status.MasterVolume*100, status.VoiceVolume*100, status.AmbientVolume*100)),
	}
	if len(status.ActiveAmbients) > 0 {
		lines = append(lines, row("ambiances", strings.Join(status.ActiveAmbients, " ")))
	}
	if len(status.ActivePresets) > 0 {
		lines = append(lines, row("presets", fmt.Sprint(status.ActivePresets)))
	}
	if status.VoiceActive {
		lines = append(lines, row("voix", "lecture"))
	}
	return strings.Join(lines, "\n")
}

func logView(lines []logging.Line) string {
	if len(lines) > visibleLogLines {
		lines = lines[len(lines)-visibleLogLines:]
	}
	rendered := make([]string, len(lines))
	for index, line := range lines {
		text := line.Time.Format("15:04:05") + " " + line.Summary
		switch {
		case line.Level >= slog.LevelError:
			rendered[index] = styles.Bad.Render(text)
		case line.Level >= slog.LevelWarn:
			rendered[index] = styles.Warning.Render(text)
		default:
			rendered[index] = styles.Faint.Render(text)
		}
	}
	return strings.Join(rendered, "\n")
}

func (m monitor) helpLine() string {
	bindings := []key.Binding{m.keys.ToggleAudio, m.keys.Quit}
	switch m.current.screen {
	case sidequest.ScreenLock:
		bindings = append([]key.Binding{m.keys.Submit}, bindings...)
	case sidequest.ScreenGame:
		bindings = append([]key.Binding{m.keys.Step}, bindings...)
	}
	parts := make([]string, len(bindings))
	for index, binding := range bindings {
		help := binding.Help()
		parts[index] = help.Key + " " + help.Desc
	}
	return strings.Join(parts, " • ")
}

func connectionLabel(status transport.Status) string {
	switch status {
	case transport.StatusConnected:
		return styles.Good.Render("● connected")
	case transport.StatusConnecting:
		return styles.Warning.Render("◌ connecting")
	default:
		return styles.Bad.Render("○ disconnected")
	}
}

func row(label, value string) string {
	return styles.Label.Render(label) + value
}

func progressBar(done, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := min(width, done*width/total)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf(" %d/%d", done, total)
}
