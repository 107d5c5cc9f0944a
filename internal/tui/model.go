// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/matt-FFFFFF/runscripts/internal/lastline"
	"github.com/matt-FFFFFF/runscripts/internal/progress"
)

// ScriptStatus represents the current state of a script.
type ScriptStatus int

const (
	// StatusPending indicates the script is waiting for a slot.
	StatusPending ScriptStatus = iota
	// StatusRunning indicates the script's process is running.
	StatusRunning
	// StatusSuccess indicates the script exited with code zero.
	StatusSuccess
	// StatusFailed indicates the script failed or could not be started.
	StatusFailed
)

// String returns the string representation of ScriptStatus.
func (s ScriptStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// KillAll is passed to a KillFunc to kill every running script.
const KillAll = -1

// KillFunc kills the script at index, or every script for KillAll.
type KillFunc func(index int) error

// Row is the display state of one script.
type Row struct {
	Index     int
	Name      string
	Status    ScriptStatus
	StartTime *time.Time
	EndTime   *time.Time
	ExitCode  int
	Signal    string
	ErrorMsg  string
	// KillSent names the last signal forwarded to the script.
	KillSent string

	output *lastline.Tracker
}

func newRow(index int, name string) *Row {
	return &Row{
		Index:  index,
		Name:   name,
		output: lastline.New(nil),
	}
}

// LastOutput returns the last complete line of output, truncated to width
// cells when width > 0.
func (r *Row) LastOutput(width int) string {
	return strings.TrimSpace(r.output.Last(width))
}

// Model is the bubbletea model for a run.
type Model struct {
	rows      []*Row
	cursor    int
	width     int
	height    int
	viewport  viewport.Model
	spinner   spinner.Model
	help      help.Model
	keys      keyMap
	kill      KillFunc
	now       func() time.Time
	completed bool
	autoQuit  bool
	quitting  bool
	result    RunCompletedMsg
	lastErr   string
	mutex     sync.RWMutex

	// Style definitions
	styles *Styles
}

// Styles contains all the styling for the TUI.
type Styles struct {
	Title    lipgloss.Style
	Pending  lipgloss.Style
	Running  lipgloss.Style
	Success  lipgloss.Style
	Failed   lipgloss.Style
	Output   lipgloss.Style
	Error    lipgloss.Style
	Help     lipgloss.Style
	Selected lipgloss.Style
}

// NewStyles creates the default styling for the TUI.
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1),
		Pending: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Running: lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true),
		Success: lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")),
		Failed: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")),
		Output: lipgloss.NewStyle().
			Foreground(lipgloss.Color("7")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Italic(true),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true),
	}
}

// NewModel creates a model with one pending row per name. kill may be nil,
// in which case the kill keys are disabled.
func NewModel(names []string, kill KillFunc) *Model {
	rows := make([]*Row, len(names))
	for i, n := range names {
		rows[i] = newRow(i, n)
	}

	keys := newKeyMap()
	if kill == nil {
		keys.Kill.SetEnabled(false)
		keys.KillAll.SetEnabled(false)
	}

	return &Model{
		rows:     rows,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     keys,
		kill:     kill,
		now:      time.Now,
		styles:   NewStyles(),
	}
}

// Rows returns a snapshot of the rows.
func (m *Model) Rows() []Row {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]Row, len(m.rows))
	for i, r := range m.rows {
		out[i] = *r
	}

	return out
}

// Completed reports whether the run has finished.
func (m *Model) Completed() bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return m.completed
}

func (m *Model) row(index int) *Row {
	if index < 0 {
		return nil
	}

	for len(m.rows) <= index {
		m.rows = append(m.rows, newRow(len(m.rows), ""))
	}

	return m.rows[index]
}

// processProgressEvent applies an event to its row. Callers hold the mutex.
func (m *Model) processProgressEvent(e progress.Event) {
	r := m.row(e.Index)
	if r == nil {
		return
	}

	if e.Name != "" {
		r.Name = e.Name
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = m.now()
	}

	switch e.Type {
	case progress.EventStarted:
		r.Status = StatusRunning
		r.StartTime = &ts
	case progress.EventOutput:
		r.output.WriteString(e.Data.OutputLine)
	case progress.EventCompleted, progress.EventFailed:
		r.Status = StatusSuccess
		if e.Type == progress.EventFailed {
			r.Status = StatusFailed
		}

		r.EndTime = &ts
		if r.StartTime == nil {
			r.StartTime = &ts
		}

		r.ExitCode = e.Data.ExitCode
		r.Signal = e.Data.Signal

		if e.Data.Error != nil {
			r.ErrorMsg = e.Data.Error.Error()
		}

		r.output.Flush()
	case progress.EventKillRequested:
		r.KillSent = e.Data.KillSignal
	}
}

func (m *Model) counts() (pending, running, succeeded, failed int) {
	for _, r := range m.rows {
		switch r.Status {
		case StatusPending:
			pending++
		case StatusRunning:
			running++
		case StatusSuccess:
			succeeded++
		case StatusFailed:
			failed++
		}
	}

	return pending, running, succeeded, failed
}
