// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sidequest

import (
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/bureau-foundation/gamemaster/lib/clock"
)

// Events emitted by the game screen.
const (
	EventGameStarted         = "game_started"
	EventPointEarned         = "point_earned"
	EventResourceTransferred = "resource_transferred"
)

// Task is one of the six transfer tasks.
type Task struct {
	Phase int
	Label string

	// Steps is how much progress completes the task.
	Steps int
}

var tasks = [PhaseCount]Task{
	{Phase: 1, Label: "Compresser les données", Steps: 10},
	{Phase: 2, Label: "Récupérer les fragments", Steps: 6},
	{Phase: 3, Label: "Saisie Code Sécurité", Steps: 1},
	{Phase: 4, Label: "Connecter les flux", Steps: 4},
	{Phase: 5, Label: "Synchroniser la parité", Steps: 1},
	{Phase: 6, Label: "Calibrage rotatif", Steps: 3},
}

// TaskFor returns the task for phase 1..PhaseCount.
func TaskFor(phase int) (Task, bool) {
	if phase < 1 || phase > PhaseCount {
		return Task{}, false
	}
	return tasks[phase-1], true
}

const logLines = 5

// GameStatus is a snapshot of the game screen for local display.
type GameStatus struct {
	Active   bool
	Task     Task
	Progress int
	Sent     int
	Sending  bool
	Log      []string
}

// Game runs the transfer tasks. Tasks come in shuffled batches of all
// six so none repeats until every one has been played, and a new batch
// never opens with the task that closed the previous one. Each
// completed task earns one point, then after a short pause the next
// task starts.
type Game struct {
	host   Host
	clock  clock.Clock
	logger *slog.Logger
	random *rand.Rand
	delay  time.Duration

	mu         sync.Mutex
	active     bool
	sent       int
	phase      int
	last       int
	queue      []int
	progress   int
	sending    bool
	log        []string
	timer      *clock.Timer
	generation uint64
}

func (g *Game) activate() {
	g.mu.Lock()
	g.active = true
	g.generation++
	g.sent = 0
	g.phase = 0
	g.progress = 0
	g.sending = false
	g.queue = nil
	g.last = 0
	g.log = []string{"Système de transfert prêt.", "En attente de l'opérateur..."}
	g.mu.Unlock()

	g.host.UpdateState(map[string]any{"currentScreen": ScreenGame})
	g.host.RegisterCommandHandler(ScreenGame, g.handle)
	g.host.SendEvent(EventGameStarted, nil)
	g.nextTask()
}

func (g *Game) deactivate() {
	g.mu.Lock()
	g.active = false
	g.generation++
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.mu.Unlock()
	g.host.UnregisterCommandHandler(ScreenGame)
}

func (g *Game) handle(action string, _ map[string]any) {
	switch action {
	case ActionSkipPhase:
		g.appendLog(">> OVERRIDE: SAUT DE PHASE FORCÉ PAR GM")
		g.finish()
	case ActionAddPoints:
		g.adjust(1, ">> BONUS: RESSOURCE AJOUTÉE PAR GM")
	case ActionRemovePoints:
		g.adjust(-1, ">> MALUS: RESSOURCE SUPPRIMÉE PAR GM")
	}
}

// Step records one unit of progress on the current task, as a player
// completing part of it would. The last step finishes the task.
func (g *Game) Step() {
	g.mu.Lock()
	if !g.active || g.sending || g.phase == 0 {
		g.mu.Unlock()
		return
	}
	g.progress++
	task := tasks[g.phase-1]
	complete := g.progress >= task.Steps
	g.mu.Unlock()
	if complete {
		g.finish()
	}
}

// Status returns a snapshot for local display.
func (g *Game) Status() GameStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	status := GameStatus{
		Active:   g.active,
		Progress: g.progress,
		Sent:     g.sent,
		Sending:  g.sending,
		Log:      slices.Clone(g.log),
	}
	if task, ok := TaskFor(g.phase); ok {
		status.Task = task
	}
	return status
}

// finish scores the current task and schedules the next one. A task
// already being sent is not scored twice.
func (g *Game) finish() {
	g.mu.Lock()
	if !g.active || g.sending {
		g.mu.Unlock()
		return
	}
	g.sending = true
	g.sent++
	sent, phase, generation := g.sent, g.phase, g.generation
	g.appendLogLocked("TRANSFERT REUSSI. PAQUET ENVOYÉ.")
	g.timer = g.clock.AfterFunc(g.delay, func() {
		g.mu.Lock()
		if g.generation != generation {
			g.mu.Unlock()
			return
		}
		g.sending = false
		g.timer = nil
		g.mu.Unlock()
		g.nextTask()
	})
	g.mu.Unlock()

	g.logger.Info("package sent", "total", sent, "phase", phase)
	g.host.SendEvent(EventPointEarned, map[string]any{"points": 1, "totalPoints": sent})
	g.host.SendEvent(EventResourceTransferred, map[string]any{"total": sent})
	g.sync(sent, phase)
}

func (g *Game) nextTask() {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return
	}
	if len(g.queue) == 0 {
		g.queue = g.shuffleLocked()
	}
	g.phase = g.queue[0]
	g.queue = g.queue[1:]
	g.last = g.phase
	g.progress = 0
	task := tasks[g.phase-1]
	g.appendLogLocked("TÂCHE : " + task.Label)
	sent := g.sent
	g.mu.Unlock()

	g.logger.Info("task started", "phase", task.Phase, "task", task.Label)
	g.sync(sent, task.Phase)
}

// shuffleLocked returns a fresh batch of every phase in random order,
// never starting with the phase played last.
func (g *Game) shuffleLocked() []int {
	batch := make([]int, PhaseCount)
	for i := range batch {
		batch[i] = i + 1
	}
	g.random.Shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })
	if g.last != 0 && batch[0] == g.last {
		batch[0], batch[len(batch)-1] = batch[len(batch)-1], batch[0]
	}
	return batch
}

func (g *Game) adjust(delta int, line string) {
	g.mu.Lock()
	if !g.active {
		g.mu.Unlock()
		return
	}
	g.sent = max(0, g.sent+delta)
	g.appendLogLocked(line)
	sent, phase := g.sent, g.phase
	g.mu.Unlock()
	g.sync(sent, phase)
}

func (g *Game) sync(score, phase int) {
	g.host.UpdateState(map[string]any{
		"score":       score,
		"phase":       phase,
		"in_progress": true,
	})
}

func (g *Game) appendLog(line string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appendLogLocked(line)
}

func (g *Game) appendLogLocked(line string) {
	g.log = append(g.log, line)
	if len(g.log) > logLines {
		g.log = slices.Clone(g.log[len(g.log)-logLines:])
	}
}
