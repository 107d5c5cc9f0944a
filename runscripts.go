// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package runscripts runs shell scripts as child processes, with a bounded
// number running at once, and merges their output into a single stream.
//
// A minimal run looks like this:
//
//	run, err := runscripts.RunScripts(ctx, []runscripts.Spec[string]{
//		{Name: "lint", Command: "make lint", Metadata: "lint"},
//		{Name: "test", Command: "make test", Metadata: "test"},
//	}, runscripts.WithParallel(2))
//	if err != nil {
//		return err
//	}
//
//	for env := range run.Output().All(ctx) {
//		fmt.Printf("[%s] %s", env.Name, env.Text())
//	}
//
//	summary, err := run.Summary(ctx)
package runscripts

import (
	"context"

	"github.com/matt-FFFFFF/runscripts/internal/orchestrator"
	"github.com/matt-FFFFFF/runscripts/internal/parallel"
	"github.com/matt-FFFFFF/runscripts/internal/script"
	"github.com/matt-FFFFFF/runscripts/internal/shell"
	"github.com/matt-FFFFFF/runscripts/internal/tempdir"
)

var (
	// Version is set during the build process.
	Version = "dev"
	// Commit is set during the build process.
	Commit = "unknown"
)

func init() {
	tempdir.Version = Version
}

type (
	// Spec describes one script.
	Spec[M any] = script.Spec[M]
	// ExitRecord is the outcome of one script.
	ExitRecord[M any] = script.ExitRecord[M]
	// Execution is a single running script.
	Execution[M any] = script.Execution[M]
	// Chunk is a piece of output from one stream of a script.
	Chunk = script.Chunk
	// Run is an in-flight set of scripts.
	Run[M any] = orchestrator.Run[M]
	// Envelope is one output chunk tagged with the script it came from.
	Envelope[M any] = orchestrator.Envelope[M]
	// Summary is the final outcome of a run.
	Summary[M any] = orchestrator.Summary[M]
	// LaunchError records a script that could not be started.
	LaunchError = orchestrator.LaunchError
	// Option configures RunScripts.
	Option = orchestrator.Option
	// KillOption configures Run.Kill.
	KillOption = orchestrator.KillOption
	// ScriptOption configures RunScript.
	ScriptOption = script.Option
	// Shell selects how commands are interpreted.
	Shell = shell.Option
	// Parallel is a resolved concurrency limit.
	Parallel = parallel.Max
)

// Shells.
const (
	System = shell.System
	Bash   = shell.Bash
	Pwsh   = shell.Pwsh
)

// Unbounded admits every script at once.
const Unbounded = parallel.Unbounded

var (
	// WithParallel sets the concurrency limit. The default is 1.
	WithParallel = orchestrator.WithParallel
	// WithShell selects the shell used for every script.
	WithShell = orchestrator.WithShell
	// WithReporter receives lifecycle events.
	WithReporter = orchestrator.WithReporter
	// WithEnv adds KEY=VALUE pairs to every script.
	WithEnv = orchestrator.WithEnv
	// WithIndex restricts Kill to one script.
	WithIndex = orchestrator.WithIndex
	// WithSignal selects the signal Kill sends.
	WithSignal = orchestrator.WithSignal
)

// ParseParallel parses a limit: a positive number, "auto" for the CPU
// count, "unbounded", or a percentage of the CPU count such as "50%".
func ParseParallel(value string) (Parallel, error) {
	return parallel.Parse(value)
}

// ParseShell parses "system", "bash" or "pwsh".
func ParseShell(value string) (Shell, error) {
	return shell.ParseOption(value)
}

// RunScripts starts specs with bounded concurrency and returns once the first
// batch has been admitted. Configuration errors come back with a nil Run.
// First-batch scripts that could not be launched come back as joined
// *LaunchError values next to a Run that is still going and must be consumed.
func RunScripts[M any](ctx context.Context, specs []Spec[M], opts ...Option) (*Run[M], error) {
	return orchestrator.RunScripts(ctx, specs, opts...)
}

// RunScript starts a single script immediately.
func RunScript[M any](ctx context.Context, spec Spec[M], opts ...ScriptOption) (*Execution[M], error) {
	return script.Run(ctx, spec, opts...)
}
