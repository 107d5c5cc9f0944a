// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package orchestrator runs many scripts with bounded concurrency and merges
// their output into a single ordered-per-script stream.
//
// Every script gets a trigger that fires when the scheduler admits it (or
// fails to launch it). A coordination loop races all triggers; for each one
// that fires it starts a drain task copying that script's output into the
// shared queue. The queue is closed only after every trigger has fired and
// every drain task has finished, so no output can arrive after the end.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/runscripts/internal/ctxlog"
	"github.com/matt-FFFFFF/runscripts/internal/fanin"
	"github.com/matt-FFFFFF/runscripts/internal/parallel"
	"github.com/matt-FFFFFF/runscripts/internal/process"
	"github.com/matt-FFFFFF/runscripts/internal/progress"
	"github.com/matt-FFFFFF/runscripts/internal/queue"
	"github.com/matt-FFFFFF/runscripts/internal/scheduler"
	"github.com/matt-FFFFFF/runscripts/internal/script"
	"github.com/matt-FFFFFF/runscripts/internal/shell"
)

// Run is an in-flight set of scripts.
type Run[M any] struct {
	id       string
	specs    []script.Spec[M]
	cfg      config
	output   *queue.Queue[Envelope[M]]
	triggers []*trigger
	sched    *scheduler.Scheduler
	start    time.Time

	mu      sync.Mutex
	execs   []*script.Execution[M]
	records []script.ExitRecord[M]
	errs    []error
	// released[i] is closed once script i has exited and its output is drained.
	released []chan struct{}

	drained     chan struct{}
	summaryDone chan struct{}
	summary     Summary[M]
	summaryErr  error
}

// RunScripts validates the options, admits the first batch of scripts and
// returns.
//
// Configuration errors are returned with a nil Run. Scripts of the first batch
// that fail to launch are returned as joined LaunchErrors together with the
// Run, which carries on with the remaining scripts and must still be consumed.
// Later launch failures are reported through their ExitRecord and Summary's
// error, which also repeats the ones returned here.
//
// Cancelling ctx kills running scripts and makes pending scripts fail to launch.
func RunScripts[M any](ctx context.Context, specs []script.Spec[M], opts ...Option) (*Run[M], error) {
	cfg := newConfig(opts)

	sh, err := shell.ParseOption(cfg.shell.String())
	if err != nil {
		return nil, err
	}

	cfg.shell = sh

	if cfg.parallel < 1 && !cfg.parallel.IsUnbounded() {
		return nil, fmt.Errorf("%w: %d", parallel.ErrBelowOne, cfg.parallel)
	}

	n := len(specs)
	r := &Run[M]{
		id:          uuid.NewString(),
		specs:       specs,
		cfg:         cfg,
		output:      queue.New[Envelope[M]](),
		triggers:    make([]*trigger, n),
		start:       cfg.now(),
		execs:       make([]*script.Execution[M], n),
		records:     make([]script.ExitRecord[M], n),
		released:    make([]chan struct{}, n),
		drained:     make(chan struct{}),
		summaryDone: make(chan struct{}),
	}

	for i := range n {
		r.triggers[i] = newTrigger(i)
		r.released[i] = make(chan struct{})
	}

	ctx = ctxlog.With(ctx, "run", r.id)
	ctxlog.Info(ctx, "starting run", "scripts", n, "parallel", cfg.parallel.String(), "shell", cfg.shell.String())

	scriptCfg := script.NewConfig(append([]script.Option{
		script.WithShell(cfg.shell),
		script.WithEnv(cfg.parallel.Env()...),
	}, cfg.script...)...)

	r.sched = scheduler.New(n, cfg.parallel,
		func(ctx context.Context, i int) (<-chan struct{}, error) {
			return r.launch(ctx, i, scriptCfg)
		},
		scheduler.WithLaunchErrorHandler(func(_ int, err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
		}),
	)

	go r.coordinate(ctx)
	go r.summarize(ctx)

	return r, r.sched.Start(ctx)
}

func (r *Run[M]) launch(ctx context.Context, i int, cfg script.Config) (<-chan struct{}, error) {
	spec := r.specs[i]
	defer r.triggers[i].fire()

	ex, err := script.RunWithConfig(ctx, spec, cfg)
	if err != nil {
		lerr := &LaunchError{Index: i, Name: spec.Name, Err: err}
		rec := script.FailedRecord(spec.Metadata, r.cfg.now(), lerr)

		r.mu.Lock()
		r.records[i] = rec
		r.mu.Unlock()

		close(r.released[i])

		ctxlog.Warn(ctx, "script failed to launch", "index", i, "name", spec.Name, "error", err)
		r.cfg.reporter.Report(progress.Event{
			Index:     i,
			Name:      spec.Name,
			Type:      progress.EventFailed,
			Message:   "failed to launch",
			Timestamp: rec.EndTime,
			Data:      progress.EventData{ExitCode: rec.ExitCode, Error: lerr},
		})

		return nil, lerr
	}

	r.mu.Lock()
	r.execs[i] = ex
	r.mu.Unlock()

	ctxlog.Debug(ctx, "script admitted", "index", i, "name", spec.Name, "pid", ex.Pid())
	r.cfg.reporter.Report(progress.Event{
		Index:     i,
		Name:      spec.Name,
		Type:      progress.EventStarted,
		Message:   "started",
		Timestamp: ex.StartTime(),
		Data:      progress.EventData{Pid: ex.Pid()},
	})

	return r.released[i], nil
}

// coordinate starts one drain per admitted script and closes the shared
// queue after the last one. It must outlive ctx so that output produced
// while scripts are being killed still reaches the consumer.
func (r *Run[M]) coordinate(ctx context.Context) {
	chans := make([]<-chan int, len(r.triggers))
	for i, t := range r.triggers {
		chans[i] = t.C()
	}

	var wg sync.WaitGroup

	for i := range fanin.Merge(context.WithoutCancel(ctx), chans...) {
		ex := r.execution(i)
		if ex == nil {
			continue
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			r.drain(ctx, i, ex)
		}()
	}

	wg.Wait()
	r.output.Close()
	close(r.drained)
	ctxlog.Debug(ctx, "output closed")
}

func (r *Run[M]) drain(ctx context.Context, i int, ex *script.Execution[M]) {
	spec := r.specs[i]
	bg := context.WithoutCancel(ctx)

	for c := range ex.Output().All(bg) {
		r.output.Push(Envelope[M]{Chunk: c, Index: i, Name: spec.Name, Metadata: spec.Metadata})
		r.cfg.reporter.Report(progress.Event{
			Index:     i,
			Name:      spec.Name,
			Type:      progress.EventOutput,
			Timestamp: r.cfg.now(),
			Data: progress.EventData{
				OutputLine: c.Text(),
				IsStderr:   c.Stream == script.Stderr,
				Bytes:      len(c.Raw),
			},
		})
	}

	rec, _ := ex.Exit(bg)

	r.mu.Lock()
	r.records[i] = rec
	r.mu.Unlock()

	typ, msg := progress.EventCompleted, "completed"
	if !rec.Success {
		typ, msg = progress.EventFailed, "failed"
	}

	ctxlog.Debug(ctx, "script finished",
		"index", i,
		"name", spec.Name,
		"exitCode", rec.ExitCode,
		"signal", rec.Signal,
		"active", r.sched.Active(),
		"pending", r.sched.Pending(),
	)
	r.cfg.reporter.Report(progress.Event{
		Index:     i,
		Name:      spec.Name,
		Type:      typ,
		Message:   msg,
		Timestamp: rec.EndTime,
		Data: progress.EventData{
			ExitCode: rec.ExitCode,
			Signal:   rec.Signal,
			Duration: rec.Duration,
		},
	})

	close(r.released[i])
}

// summarize runs once every record is final, which is after the last drain,
// and the scheduler has released every slot.
func (r *Run[M]) summarize(ctx context.Context) {
	<-r.drained
	<-r.sched.Idle()

	r.mu.Lock()
	records := append([]script.ExitRecord[M](nil), r.records...)

	var merr *multierror.Error
	for _, err := range r.errs {
		merr = multierror.Append(merr, err)
	}
	r.mu.Unlock()

	r.summary = newSummary(r.start, r.cfg.now(), records)
	r.summaryErr = merr.ErrorOrNil()

	ctxlog.Info(ctx, "run finished",
		"total", r.summary.TotalCount,
		"succeeded", r.summary.SuccessCount,
		"failed", r.summary.FailureCount,
		"duration", r.summary.Duration.String(),
		"peakActive", r.sched.MaxActive(),
	)

	close(r.summaryDone)
}

func (r *Run[M]) execution(i int) *script.Execution[M] {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.execs[i]
}

// Len returns the number of scripts.
func (r *Run[M]) Len() int {
	return len(r.specs)
}

// Output is the merged output of every script. It is closed once all
// scripts have exited and their output has been drained.
func (r *Run[M]) Output() *queue.Queue[Envelope[M]] {
	return r.output
}

// Done is closed when the summary is available.
func (r *Run[M]) Done() <-chan struct{} {
	return r.summaryDone
}

// Summary waits for every script and returns the summary. The error joins the
// LaunchErrors of scripts that could not be started; the summary is valid
// regardless. If ctx ends first, ctx.Err() is returned.
func (r *Run[M]) Summary(ctx context.Context) (Summary[M], error) {
	select {
	case <-r.summaryDone:
		return r.summary, r.summaryErr
	case <-ctx.Done():
		return Summary[M]{}, ctx.Err()
	}
}

// Kill sends a signal to running scripts: the one selected by WithIndex, or
// every running script. Scripts that have not been admitted yet or that have
// already exited are left alone, and pending scripts are still admitted later.
func (r *Run[M]) Kill(opts ...KillOption) error {
	k := killConfig{signal: DefaultKillSignal}
	for _, o := range opts {
		o(&k)
	}

	var targets []int

	switch {
	case k.hasIndex && (k.index < 0 || k.index >= len(r.specs)):
		return nil
	case k.hasIndex:
		targets = []int{k.index}
	default:
		targets = make([]int, len(r.specs))
		for i := range targets {
			targets[i] = i
		}
	}

	var errs []error

	for _, i := range targets {
		ex := r.execution(i)
		if ex == nil {
			continue
		}

		select {
		case <-ex.Done():
			continue
		default:
		}

		if err := ex.Kill(k.signal); err != nil {
			errs = append(errs, fmt.Errorf("script %d: %w", i, err))
			continue
		}

		r.cfg.reporter.Report(progress.Event{
			Index:     i,
			Name:      r.specs[i].Name,
			Type:      progress.EventKillRequested,
			Message:   "kill requested",
			Timestamp: r.cfg.now(),
			Data:      progress.EventData{KillSignal: process.SignalName(k.signal)},
		})
	}

	return errors.Join(errs...)
}
