// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"sync"
	"sync/atomic"
)

var _ Reporter = (*ChannelReporter)(nil)

// ChannelReporter implements Reporter using a buffered channel.
// Report never blocks: when the buffer is full the event is dropped and counted.
type ChannelReporter struct {
	ch      chan Event
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
	wg      sync.WaitGroup
}

// NewChannelReporter creates a new ChannelReporter with the specified buffer size.
func NewChannelReporter(bufferSize int) *ChannelReporter {
	return &ChannelReporter{
		ch: make(chan Event, bufferSize),
	}
}

// Report implements Reporter.Report.
func (cr *ChannelReporter) Report(event Event) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	if cr.closed {
		return
	}

	select {
	case cr.ch <- event:
	default:
		cr.dropped.Add(1)
	}
}

// Close implements Reporter.Close. Buffered events are still delivered to
// listeners, and Close waits for them to be handled.
func (cr *ChannelReporter) Close() {
	cr.mu.Lock()

	if cr.closed {
		cr.mu.Unlock()
		return
	}

	cr.closed = true
	close(cr.ch)
	cr.mu.Unlock()

	cr.wg.Wait()
}

// Listen forwards events to listener on a new goroutine until Close.
func (cr *ChannelReporter) Listen(listener Listener) {
	cr.wg.Add(1)

	go func() {
		defer cr.wg.Done()

		for event := range cr.ch {
			listener.OnEvent(event)
		}
	}()
}

// Events returns the underlying channel, for callers that want to select on it.
func (cr *ChannelReporter) Events() <-chan Event {
	return cr.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (cr *ChannelReporter) Dropped() int64 {
	return cr.dropped.Load()
}
