// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package queue provides an unbounded, single-consumer, multi-producer queue
// whose consumer suspends while the queue is empty.
//
// Producers call Push from any goroutine and Close when no more values will
// follow. The consumer pulls values with Next, or ranges over All.
package queue

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
)

// ErrConcurrentConsumer is returned by Next when another call to Next is
// already waiting on the same queue.
var ErrConcurrentConsumer = errors.New("queue: concurrent consumers are not supported")

// Queue is an unbounded FIFO. The zero value is not usable, use New.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	// waiter is non-nil while the consumer is suspended in Next.
	// Push hands the value straight to it, Close closes it.
	waiter chan T
}

// New returns an empty, open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends v. It is a no-op once the queue has been closed.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if q.waiter != nil {
		q.waiter <- v
		q.waiter = nil

		return
	}

	q.items = append(q.items, v)
}

// Close marks the end of the sequence. Buffered values are still delivered.
// Calling Close more than once is harmless.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true

	if q.waiter != nil {
		close(q.waiter)
		q.waiter = nil
	}
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closed
}

// Len returns the number of buffered values.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Next returns the next value in push order. If the queue is empty and open it
// blocks until a value is pushed, the queue is closed, or ctx is done.
// It returns io.EOF once the queue is closed and drained.
func (q *Queue[T]) Next(ctx context.Context) (T, error) {
	var zero T

	q.mu.Lock()

	if len(q.items) > 0 {
		v := q.items[0]
		q.items[0] = zero
		q.items = q.items[1:]
		q.mu.Unlock()

		return v, nil
	}

	if q.closed {
		q.mu.Unlock()
		return zero, io.EOF
	}

	if q.waiter != nil {
		q.mu.Unlock()
		return zero, ErrConcurrentConsumer
	}

	// Buffered so that Push never blocks while holding the lock.
	w := make(chan T, 1)
	q.waiter = w
	q.mu.Unlock()

	select {
	case v, ok := <-w:
		if !ok {
			return zero, io.EOF
		}

		return v, nil
	case <-ctx.Done():
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waiter == w {
		q.waiter = nil
		return zero, ctx.Err()
	}

	// A producer won the race and already handed over a value (or Close
	// closed the channel). Deliver it rather than drop it.
	if v, ok := <-w; ok {
		return v, nil
	}

	return zero, io.EOF
}

// All returns an iterator over the queue. Iteration stops at the end of the
// sequence or when ctx is done.
func (q *Queue[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, err := q.Next(ctx)
			if err != nil {
				return
			}

			if !yield(v) {
				return
			}
		}
	}
}

// Drain consumes the queue until the end of the sequence and returns every
// value. It returns the values read so far and ctx.Err() if ctx ends first.
func Drain[T any](ctx context.Context, q *Queue[T]) ([]T, error) {
	var out []T

	for {
		v, err := q.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			return out, err
		}

		out = append(out, v)
	}
}
