// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package process launches child processes and exposes their output as
// channels of byte chunks.
//
// A Handle is the only view the rest of the program has of a running process:
// two live output streams, a Done channel, the decoded exit Outcome and Kill.
package process

import (
	"context"
	"errors"
	"os"
)

var (
	// ErrEmptyArgv is returned when Spec.Argv is empty.
	ErrEmptyArgv = errors.New("argv must not be empty")
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when an operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
)

// Spec describes a process to start.
type Spec struct {
	// Argv[0] is the executable. It is resolved against PATH if it has no separator.
	Argv []string
	// Dir is the working directory, empty means the current one.
	Dir string
	// Env is the complete environment in KEY=VALUE form.
	Env []string
}

// Outcome is how a process ended.
type Outcome struct {
	// ExitCode is the process exit code. A process terminated by a signal on
	// unix reports 128 plus the signal number, as shells do.
	ExitCode int
	// Signal is the name of the terminating signal, e.g. "SIGTERM", or empty.
	Signal string
}

// Handle is a running process.
type Handle interface {
	// Pid returns the operating system process id.
	Pid() int
	// Stdout delivers chunks as they are read and is closed at end of stream.
	Stdout() <-chan []byte
	// Stderr delivers chunks as they are read and is closed at end of stream.
	Stderr() <-chan []byte
	// Done is closed once the process has exited and Outcome is valid.
	Done() <-chan struct{}
	// Outcome returns the exit outcome. It blocks until Done is closed.
	Outcome() Outcome
	// Kill sends sig to the process (its whole group on unix). Killing a
	// process that has already exited is not an error.
	Kill(sig os.Signal) error
}

// Launcher starts processes.
type Launcher interface {
	Launch(ctx context.Context, spec Spec) (Handle, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, spec Spec) (Handle, error)

// Launch implements Launcher.
func (f LauncherFunc) Launch(ctx context.Context, spec Spec) (Handle, error) {
	return f(ctx, spec)
}
