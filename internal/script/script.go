// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package script runs one script: it materializes the command text, launches
// the process, merges stdout and stderr into a single chunk queue, and
// produces an ExitRecord once the process has exited and both streams ended.
package script

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/matt-FFFFFF/runscripts/internal/color"
	"github.com/matt-FFFFFF/runscripts/internal/ctxlog"
	"github.com/matt-FFFFFF/runscripts/internal/fanin"
	"github.com/matt-FFFFFF/runscripts/internal/process"
	"github.com/matt-FFFFFF/runscripts/internal/queue"
	"github.com/matt-FFFFFF/runscripts/internal/shell"
	"github.com/matt-FFFFFF/runscripts/internal/tempdir"
)

// ErrLaunch wraps every failure that prevented a script from starting.
var ErrLaunch = errors.New("could not launch script")

// Spec describes a script. Metadata is opaque and echoed back in results.
type Spec[M any] struct {
	// Name is used in logs and output prefixes. It need not be unique.
	Name string
	// Command is the text handed to the shell.
	Command string
	// WorkingDirectory defaults to the current directory.
	WorkingDirectory string
	// Env overrides the inherited environment.
	Env      map[string]string
	Metadata M
}

// ExitRecord is the final state of one script.
type ExitRecord[M any] struct {
	// ExitCode is -1 if the script never launched.
	ExitCode int
	// Signal names the terminating signal, if any.
	Signal string
	// Success is true only for exit code zero without a launch error.
	Success   bool
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Metadata  M
	// LaunchErr is set when the script could not be started.
	LaunchErr error
}

// Materializer turns command text into an argv. *shell.Materializer implements it.
type Materializer interface {
	Materialize(command string, opt shell.Option) (shell.Executor, error)
}

// Config holds the collaborators used by Run. Use Option values to change it.
type Config struct {
	Shell        shell.Option
	Launcher     process.Launcher
	Materializer Materializer
	// Env is layered between the inherited environment and Spec.Env.
	Env []string
	Now func() time.Time
}

// Option configures Run.
type Option func(*Config)

// WithShell selects the shell option.
func WithShell(o shell.Option) Option {
	return func(c *Config) { c.Shell = o }
}

// WithLauncher replaces the operating system launcher.
func WithLauncher(l process.Launcher) Option {
	return func(c *Config) { c.Launcher = l }
}

// WithMaterializer replaces the temp file materializer.
func WithMaterializer(m Materializer) Option {
	return func(c *Config) { c.Materializer = m }
}

// WithEnv adds KEY=VALUE pairs below Spec.Env.
func WithEnv(kv ...string) Option {
	return func(c *Config) { c.Env = append(c.Env, kv...) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Config) { c.Now = now }
}

// NewConfig applies opts over the defaults.
func NewConfig(opts ...Option) Config {
	c := Config{
		Shell:    shell.Default,
		Launcher: &process.OSLauncher{},
		Now:      time.Now,
	}

	for _, o := range opts {
		o(&c)
	}

	if c.Materializer == nil {
		c.Materializer = shell.NewMaterializer(tempdir.Default())
	}

	return c
}

// Execution is a launched script.
type Execution[M any] struct {
	spec    Spec[M]
	handle  process.Handle
	output  *queue.Queue[Chunk]
	done    chan struct{}
	record  ExitRecord[M]
	cleanup func()
	now     func() time.Time
	start   time.Time
}

// Run launches spec and returns as soon as the process has started.
// A non-nil error wraps ErrLaunch and means no process is running.
func Run[M any](ctx context.Context, spec Spec[M], opts ...Option) (*Execution[M], error) {
	return RunWithConfig(ctx, spec, NewConfig(opts...))
}

// RunWithConfig is Run with a prepared Config.
func RunWithConfig[M any](ctx context.Context, spec Spec[M], cfg Config) (*Execution[M], error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrLaunch, err)
	}

	if err := cfg.Shell.Validate(); err != nil {
		return nil, errors.Join(ErrLaunch, err)
	}

	logger := ctxlog.Logger(ctx).With("script", spec.Name)

	ex, err := cfg.Materializer.Materialize(spec.Command, cfg.Shell)
	if err != nil {
		return nil, errors.Join(ErrLaunch, err)
	}

	env := mergeEnv(
		os.Environ(),
		cfg.Env,
		envList(spec.Env),
		[]string{
			shell.EnvOption + "=" + cfg.Shell.String(),
			color.ForceColor + "=1",
		},
	)

	start := cfg.Now()

	h, err := cfg.Launcher.Launch(ctx, process.Spec{
		Argv: ex.Argv,
		Dir:  spec.WorkingDirectory,
		Env:  env,
	})
	if err != nil {
		if ex.Cleanup != nil {
			ex.Cleanup()
		}

		return nil, errors.Join(ErrLaunch, err)
	}

	logger.Debug("script started", "pid", h.Pid(), "argv", ex.Argv)

	e := &Execution[M]{
		spec:    spec,
		handle:  h,
		output:  queue.New[Chunk](),
		done:    make(chan struct{}),
		cleanup: ex.Cleanup,
		now:     cfg.Now,
		start:   start,
	}

	go e.collect(ctx)

	return e, nil
}

// collect forwards output until both streams end, then waits for the exit
// outcome and finalizes the record.
func (e *Execution[M]) collect(ctx context.Context) {
	// Streams are always drained to the end, even after ctx is done, so
	// the reader goroutines behind the handle can finish.
	merged := fanin.Merge(context.WithoutCancel(ctx),
		tag(e.handle.Stdout(), Stdout),
		tag(e.handle.Stderr(), Stderr),
	)

	for c := range merged {
		e.output.Push(c)
	}

	e.output.Close()

	out := e.handle.Outcome()
	end := e.now()

	if e.cleanup != nil {
		e.cleanup()
	}

	e.record = ExitRecord[M]{
		ExitCode:  out.ExitCode,
		Signal:    out.Signal,
		Success:   out.ExitCode == 0 && out.Signal == "",
		StartTime: e.start,
		EndTime:   end,
		Duration:  end.Sub(e.start),
		Metadata:  e.spec.Metadata,
	}

	ctxlog.Debug(ctx, "script exited",
		"script", e.spec.Name,
		"exitCode", out.ExitCode,
		"signal", out.Signal,
		"duration", e.record.Duration.String(),
	)

	close(e.done)
}

func tag(src <-chan []byte, name StreamName) <-chan Chunk {
	out := make(chan Chunk)

	go func() {
		defer close(out)

		for b := range src {
			out <- Chunk{Stream: name, Raw: b}
		}
	}()

	return out
}

// Output is the merged stdout and stderr. It is closed when both streams end.
func (e *Execution[M]) Output() *queue.Queue[Chunk] {
	return e.output
}

// Done is closed once the ExitRecord is final.
func (e *Execution[M]) Done() <-chan struct{} {
	return e.done
}

// Exit waits for the ExitRecord.
func (e *Execution[M]) Exit(ctx context.Context) (ExitRecord[M], error) {
	select {
	case <-e.done:
		return e.record, nil
	case <-ctx.Done():
		return ExitRecord[M]{}, ctx.Err()
	}
}

// Kill sends sig to the script. It is a no-op once the script has exited.
func (e *Execution[M]) Kill(sig os.Signal) error {
	return e.handle.Kill(sig)
}

// Pid returns the process id.
func (e *Execution[M]) Pid() int {
	return e.handle.Pid()
}

// StartTime is when the launch was attempted.
func (e *Execution[M]) StartTime() time.Time {
	return e.start
}

// FailedRecord is the ExitRecord of a script that never launched.
func FailedRecord[M any](metadata M, at time.Time, err error) ExitRecord[M] {
	return ExitRecord[M]{
		ExitCode:  -1,
		StartTime: at,
		EndTime:   at,
		Metadata:  metadata,
		LaunchErr: err,
	}
}
