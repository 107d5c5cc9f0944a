// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package scheduler admits work items in index order while keeping the number
// of running items at or below a limit.
//
// Admission is driven purely by completions: Start admits the first batch and
// every time an admitted item's done channel closes, the next pending index is
// admitted. An item whose launch fails never occupies a slot.
package scheduler

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/runscripts/internal/parallel"
)

// LaunchFunc starts item index. On success it returns a channel that is closed
// when the item has finished and its slot may be reused. The channel must not
// be nil.
type LaunchFunc func(ctx context.Context, index int) (done <-chan struct{}, err error)

// Scheduler is a bounded FIFO admission controller. It is single use.
type Scheduler struct {
	total   int
	slots   int
	launch  LaunchFunc
	onError func(index int, err error)

	mu        sync.Mutex
	started   bool
	next      int
	active    int
	maxActive int
	idle      chan struct{}
	idleOnce  sync.Once
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLaunchErrorHandler is called, under the admission lock, for every launch
// that fails. It must not call back into the Scheduler.
func WithLaunchErrorHandler(fn func(index int, err error)) Option {
	return func(s *Scheduler) { s.onError = fn }
}

// New returns a scheduler for items 0..total-1 with at most limit running.
func New(total int, limit parallel.Max, launch LaunchFunc, opts ...Option) *Scheduler {
	slots := limit.Slots(total)
	if slots < 1 {
		slots = 1
	}

	s := &Scheduler{
		total:   total,
		slots:   slots,
		launch:  launch,
		onError: func(int, error) {},
		idle:    make(chan struct{}),
	}

	for _, o := range opts {
		o(s)
	}

	return s
}

// Start admits the first batch. Launches happen synchronously on the calling
// goroutine for the first batch and on completion watchers afterwards.
// The returned error joins the launch failures of the first batch only; every
// failure, first batch included, also goes to the launch error handler.
// Calling Start twice has no further effect.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.started = true

	return s.admitLocked(ctx).ErrorOrNil()
}

// admitLocked fills free slots with pending items, lowest index first.
// The lock is held across launch so that indices are launched strictly in
// order and the active count never exceeds the slot count.
func (s *Scheduler) admitLocked(ctx context.Context) *multierror.Error {
	var errs *multierror.Error

	for s.active < s.slots && s.next < s.total {
		i := s.next
		s.next++

		done, err := s.launch(ctx, i)
		if err != nil {
			s.onError(i, err)
			errs = multierror.Append(errs, err)

			continue
		}

		s.active++
		s.maxActive = max(s.maxActive, s.active)

		go s.release(ctx, done)
	}

	if s.next >= s.total && s.active == 0 {
		s.idleOnce.Do(func() { close(s.idle) })
	}

	return errs
}

func (s *Scheduler) release(ctx context.Context, done <-chan struct{}) {
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()

	s.active--
	s.admitLocked(ctx)
}

// Idle is closed once every item has been launched (or failed to launch) and
// every launched item has finished.
func (s *Scheduler) Idle() <-chan struct{} {
	return s.idle
}

// Active returns the number of admitted items that have not finished.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// MaxActive returns the highest Active value observed.
func (s *Scheduler) MaxActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.maxActive
}

// Pending returns the number of items not yet launched.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.total - s.next
}
