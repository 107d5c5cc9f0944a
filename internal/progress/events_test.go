// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		eventType EventType
		expected  string
	}{
		{eventType: EventStarted, expected: "started"},
		{eventType: EventOutput, expected: "output"},
		{eventType: EventCompleted, expected: "completed"},
		{eventType: EventFailed, expected: "failed"},
		{eventType: EventKillRequested, expected: "kill-requested"},
		{eventType: EventType(999), expected: "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.eventType.String())
		})
	}

	assert.True(t, EventCompleted.IsTerminal())
	assert.True(t, EventFailed.IsTerminal())
	assert.False(t, EventOutput.IsTerminal())
}

func TestNullReporter(t *testing.T) {
	reporter := NewNullReporter()
	require.NotNil(t, reporter)

	reporter.Report(Event{Type: EventStarted, Timestamp: time.Now()})
	reporter.Close()
}

func TestChannelReporter(t *testing.T) {
	reporter := NewChannelReporter(10)

	event := Event{Index: 1, Name: "lint", Type: EventStarted, Message: "started"}
	reporter.Report(event)

	select {
	case got := <-reporter.Events():
		assert.Equal(t, event, got)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("event not received")
	}

	reporter.Close()
	reporter.Close()

	assert.NotPanics(t, func() {
		reporter.Report(Event{Type: EventCompleted})
	}, "report after close is dropped")
}

func TestChannelReporter_BufferOverflow(t *testing.T) {
	reporter := NewChannelReporter(1)

	reporter.Report(Event{Type: EventStarted})
	reporter.Report(Event{Type: EventOutput})
	reporter.Report(Event{Type: EventOutput})

	assert.Equal(t, int64(2), reporter.Dropped())
	reporter.Close()
}

type recordingListener struct {
	mu     sync.Mutex
	events []Event
}

func (l *recordingListener) OnEvent(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, e)
}

func TestChannelReporter_ListenDrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := NewChannelReporter(10)
	listener := &recordingListener{}
	reporter.Listen(listener)

	events := []Event{
		{Index: 0, Type: EventStarted},
		{Index: 0, Type: EventOutput},
		{Index: 0, Type: EventCompleted},
	}

	for _, e := range events {
		reporter.Report(e)
	}

	reporter.Close()

	assert.Equal(t, events, listener.events)
}

func TestChannelReporter_ConcurrentReportAndClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := NewChannelReporter(4)
	reporter.Listen(ListenerFunc(func(Event) {}))

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				reporter.Report(Event{Index: i, Type: EventOutput})
			}
		}()
	}

	reporter.Close()
	wg.Wait()
}

func TestCombine(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}

	assert.IsType(t, NullReporter{}, Combine())
	assert.Same(t, a, Combine(nil, a))

	r := Combine(a, nil, b)
	r.Report(Event{Index: 3})
	r.Close()

	assert.Equal(t, []Event{{Index: 3}}, a.events)
	assert.Equal(t, []Event{{Index: 3}}, b.events)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

type recordingReporter struct {
	events []Event
	closed bool
}

func (r *recordingReporter) Report(e Event) { r.events = append(r.events, e) }
func (r *recordingReporter) Close() { r.closed = true }
