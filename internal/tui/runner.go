// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/matt-FFFFFF/runscripts/internal/progress"
)

// Runner manages the TUI application and progress event integration.
type Runner struct {
	model    *Model
	program  *tea.Program
	reporter *Reporter
	kill     KillFunc
	mutex    sync.Mutex
}

// Reporter implements progress.Reporter and forwards events to the TUI.
type Reporter struct {
	program *tea.Program
	closed  bool
	mutex   sync.RWMutex
}

// NewReporter creates a new TUI progress reporter.
func NewReporter(program *tea.Program) *Reporter {
	return &Reporter{
		program: program,
	}
}

// Report implements progress.Reporter.
func (tr *Reporter) Report(event progress.Event) {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	if tr.closed || tr.program == nil {
		return
	}

	tr.program.Send(ProgressEventMsg{Event: event})
}

// Close implements progress.Reporter.
func (tr *Reporter) Close() {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()
	tr.closed = true
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

type runnerConfig struct {
	autoQuit bool
	program  []tea.ProgramOption
}

// WithAutoQuit closes the TUI as soon as the run completes instead of
// waiting for the user to quit.
func WithAutoQuit() RunnerOption {
	return func(c *runnerConfig) { c.autoQuit = true }
}

// WithProgramOptions adds options to the underlying tea.Program.
func WithProgramOptions(opts ...tea.ProgramOption) RunnerOption {
	return func(c *runnerConfig) { c.program = append(c.program, opts...) }
}

// NewRunner creates a new TUI runner with one row per script name.
func NewRunner(names []string, kill KillFunc, opts ...RunnerOption) *Runner {
	cfg := runnerConfig{
		program: []tea.ProgramOption{tea.WithAltScreen()},
	}
	for _, o := range opts {
		o(&cfg)
	}

	model := NewModel(names, kill)
	model.autoQuit = cfg.autoQuit
	program := tea.NewProgram(model, cfg.program...)

	return &Runner{
		model:    model,
		program:  program,
		reporter: NewReporter(program),
		kill:     kill,
	}
}

// Reporter returns the progress reporter for this TUI runner.
func (r *Runner) Reporter() progress.Reporter {
	return r.reporter
}

// Model returns the runner's model.
func (r *Runner) Model() *Model {
	return r.model
}

// Run starts the TUI and calls wait, which must block until the run is over.
// If the user quits before that, every script is killed and Run still waits.
func (r *Runner) Run(ctx context.Context, wait func(context.Context) RunCompletedMsg) (RunCompletedMsg, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	resultChan := make(chan RunCompletedMsg, 1)

	go func() {
		resultChan <- wait(ctx)
	}()

	tuiDone := make(chan error, 1)

	go func() {
		_, err := r.program.Run()
		tuiDone <- err
	}()

	var (
		result RunCompletedMsg
		err    error
	)

	select {
	case result = <-resultChan:
		// Completed; the user still decides when to leave.
		r.program.Send(result)

		select {
		case err = <-tuiDone:
		case <-ctx.Done():
			r.program.Quit()

			err = <-tuiDone
		}

		r.reporter.Close()

	case err = <-tuiDone:
		r.reporter.Close()

		if r.kill != nil {
			_ = r.kill(KillAll)
		}

		result = <-resultChan

	case <-ctx.Done():
		r.reporter.Close()
		r.program.Quit()

		err = <-tuiDone
		result = <-resultChan
	}

	return result, err
}
