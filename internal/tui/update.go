// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/matt-FFFFFF/runscripts/internal/lastline"
	"github.com/matt-FFFFFF/runscripts/internal/progress"
)

const (
	minStatusBarAvailableHeight = 10
	headerHeight                = 2
	footerHeight                = 4
	scriptDurationRounding      = 100 * time.Millisecond
)

// ProgressEventMsg wraps a progress event for the tea framework.
type ProgressEventMsg struct {
	Event progress.Event
}

// RunCompletedMsg indicates that every script has finished.
type RunCompletedMsg struct {
	Total     int
	Succeeded int
	Failed    int
	Duration  time.Duration
	Err       error
}

type killResultMsg struct {
	index int
	err   error
}

// Init implements bubbletea.Model.Init.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements bubbletea.Model.Update.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.mutex.Lock()
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()
		m.mutex.Unlock()

		return m, nil

	case ProgressEventMsg:
		m.mutex.Lock()
		m.processProgressEvent(msg.Event)
		m.mutex.Unlock()

		return m, nil

	case RunCompletedMsg:
		m.mutex.Lock()
		m.completed = true
		m.result = msg
		m.keys.Kill.SetEnabled(false)
		m.keys.KillAll.SetEnabled(false)
		autoQuit := m.autoQuit
		m.mutex.Unlock()

		if autoQuit {
			return m, tea.Quit
		}

		return m, nil

	case killResultMsg:
		m.mutex.Lock()
		m.lastErr = ""
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		}
		m.mutex.Unlock()

		return m, nil

	case spinner.TickMsg:
		if m.Completed() {
			return m, nil
		}

		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	return m, nil
}

// handleKeyPress processes keyboard input.
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

		m.followCursor()
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}

		m.followCursor()
	case key.Matches(msg, m.keys.Kill):
		if m.cursor < len(m.rows) && m.rows[m.cursor].Status == StatusRunning {
			return m, m.killCmd(m.cursor)
		}
	case key.Matches(msg, m.keys.KillAll):
		return m, m.killCmd(KillAll)
	}

	return m, nil
}

// killCmd runs the kill outside Update. Kills report progress events, and
// those are delivered through the same event loop.
func (m *Model) killCmd(index int) tea.Cmd {
	kill := m.kill

	return func() tea.Msg {
		return killResultMsg{index: index, err: kill(index)}
	}
}

func (m *Model) updateViewportSize() {
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-headerHeight-footerHeight, 1)
	m.followCursor()
}

func (m *Model) followCursor() {
	if m.viewport.Height <= 0 {
		return
	}

	switch {
	case m.cursor < m.viewport.YOffset:
		m.viewport.YOffset = m.cursor
	case m.cursor >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.YOffset = m.cursor - m.viewport.Height + 1
	}
}

// View implements bubbletea.Model.View.
func (m *Model) View() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.quitting {
		return "Shutting down...\n"
	}

	var content strings.Builder

	nameWidth := 0
	for _, r := range m.rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.Name))
	}

	for i, r := range m.rows {
		if i > 0 {
			content.WriteByte('\n')
		}

		content.WriteString(m.renderRow(r, i == m.cursor, nameWidth))
	}

	var view strings.Builder

	view.WriteString(m.styles.Title.Render("runscripts"))
	view.WriteByte('\n')

	if m.viewport.Height > 0 {
		m.viewport.SetContent(content.String())
		view.WriteString(m.viewport.View())
	} else {
		view.WriteString(content.String())
	}

	if m.height == 0 || m.height > minStatusBarAvailableHeight {
		view.WriteString("\n\n")
		view.WriteString(m.renderStatusBar())
		view.WriteByte('\n')
		view.WriteString(m.styles.Help.Render(m.help.View(m.keys)))
	}

	return view.String()
}

// renderRow renders a single script with its inline output.
func (m *Model) renderRow(r *Row, selected bool, nameWidth int) string {
	var icon, name string

	padded := r.Name + strings.Repeat(" ", nameWidth-lipgloss.Width(r.Name))

	switch r.Status {
	case StatusPending:
		icon = "⏳"
		name = m.styles.Pending.Render(padded)
	case StatusRunning:
		icon = m.spinner.View()
		name = m.styles.Running.Render(padded)
	case StatusSuccess:
		icon = "✅"
		name = m.styles.Success.Render(padded)
	case StatusFailed:
		icon = "❌"
		name = m.styles.Failed.Render(padded)
	}

	cursor := "  "
	if selected {
		cursor = m.styles.Selected.Render("> ")
	}

	left := fmt.Sprintf("%s%s %s", cursor, icon, name)

	if r.StartTime != nil {
		end := m.now()
		if r.EndTime != nil {
			end = *r.EndTime
		}

		left += m.styles.Output.Render(fmt.Sprintf(" (%v)", end.Sub(*r.StartTime).Round(scriptDurationRounding)))
	}

	left += " "

	avail := 0
	if m.width > 0 {
		avail = max(m.width-lipgloss.Width(left), len(lastline.Ellipsis)+1)
	}

	var right string

	switch {
	case r.Status == StatusFailed && r.ErrorMsg != "":
		right = m.styles.Error.Render(truncate("Error: "+r.ErrorMsg, avail))
	case r.Status == StatusFailed:
		detail := fmt.Sprintf("exit code: %d", r.ExitCode)
		if r.Signal != "" {
			detail += ", signal: " + r.Signal
		}

		right = m.styles.Error.Render(truncate(detail, avail))
	case r.Status == StatusRunning && r.KillSent != "":
		right = m.styles.Error.Render(truncate(r.KillSent+" sent", avail))
	default:
		right = m.styles.Output.Render(r.LastOutput(avail))
	}

	return left + right
}

func truncate(s string, width int) string {
	if width <= 0 || ansi.StringWidth(s) <= width {
		return s
	}

	return ansi.Truncate(s, width, lastline.Ellipsis)
}

func (m *Model) renderStatusBar() string {
	pending, running, succeeded, failed := m.counts()

	status := fmt.Sprintf("pending %d · running %d · succeeded %d · failed %d",
		pending, running, succeeded, failed)

	if m.completed {
		if m.result.Failed > 0 || m.result.Err != nil {
			status = m.styles.Failed.Render(
				fmt.Sprintf("⚠️  %d of %d scripts failed in %v", m.result.Failed, m.result.Total,
					m.result.Duration.Round(scriptDurationRounding)))
		} else {
			status = m.styles.Success.Render(
				fmt.Sprintf("✅ all %d scripts succeeded in %v", m.result.Total,
					m.result.Duration.Round(scriptDurationRounding)))
		}
	}

	if m.lastErr != "" {
		status += "  " + m.styles.Error.Render(m.lastErr)
	}

	return status
}
