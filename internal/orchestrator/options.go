// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"os"
	"syscall"
	"time"

	"github.com/matt-FFFFFF/runscripts/internal/parallel"
	"github.com/matt-FFFFFF/runscripts/internal/process"
	"github.com/matt-FFFFFF/runscripts/internal/progress"
	"github.com/matt-FFFFFF/runscripts/internal/script"
	"github.com/matt-FFFFFF/runscripts/internal/shell"
)

// DefaultKillSignal is sent by Kill when no signal is given.
var DefaultKillSignal os.Signal = syscall.SIGTERM

type config struct {
	parallel parallel.Max
	reporter progress.Reporter
	script   []script.Option
	shell    shell.Option
	now      func() time.Time
}

// Option configures RunScripts.
type Option func(*config)

func newConfig(opts []Option) config {
	c := config{
		parallel: 1,
		reporter: progress.NullReporter{},
		shell:    shell.Default,
		now:      time.Now,
	}

	for _, o := range opts {
		o(&c)
	}

	return c
}

// WithParallel sets the concurrency limit. The default is 1.
func WithParallel(m parallel.Max) Option {
	return func(c *config) { c.parallel = m }
}

// WithShell selects the shell used for every script.
func WithShell(o shell.Option) Option {
	return func(c *config) { c.shell = o }
}

// WithReporter receives lifecycle events. The caller owns it and closes it.
func WithReporter(r progress.Reporter) Option {
	return func(c *config) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithLauncher replaces the operating system process launcher.
func WithLauncher(l process.Launcher) Option {
	return func(c *config) { c.script = append(c.script, script.WithLauncher(l)) }
}

// WithMaterializer replaces the temp file materializer.
func WithMaterializer(m script.Materializer) Option {
	return func(c *config) { c.script = append(c.script, script.WithMaterializer(m)) }
}

// WithEnv adds KEY=VALUE pairs to every script, below each script's own Env.
func WithEnv(kv ...string) Option {
	return func(c *config) { c.script = append(c.script, script.WithEnv(kv...)) }
}

// WithClock replaces time.Now for records and the summary.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
		c.script = append(c.script, script.WithClock(now))
	}
}

type killConfig struct {
	index    int
	hasIndex bool
	signal   os.Signal
}

// KillOption configures Run.Kill.
type KillOption func(*killConfig)

// WithIndex restricts Kill to the script at index i.
func WithIndex(i int) KillOption {
	return func(k *killConfig) {
		k.index = i
		k.hasIndex = true
	}
}

// WithSignal selects the signal. The default is DefaultKillSignal.
func WithSignal(sig os.Signal) KillOption {
	return func(k *killConfig) { k.signal = sig }
}
