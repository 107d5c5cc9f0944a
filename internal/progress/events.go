// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package progress

import (
	"time"
)

// Event is a lifecycle update for one script of a run.
type Event struct {
	Index     int       // Position of the script in the run
	Name      string    // Display name of the script
	Type      EventType // What happened
	Message   string    // Human-readable status message
	Timestamp time.Time // When the event occurred
	Data      EventData // Type-specific data
}

// EventType represents the type of progress event.
type EventType int

const (
	// EventStarted indicates a script has been admitted and its process launched.
	EventStarted EventType = iota
	// EventOutput indicates a chunk of stdout/stderr output arrived.
	EventOutput
	// EventCompleted indicates the script exited with code zero.
	EventCompleted
	// EventFailed indicates a non-zero exit, a signal, or a launch error.
	EventFailed
	// EventKillRequested indicates a kill was forwarded to the script.
	EventKillRequested
)

// String implements the Stringer interface for EventType.
func (et EventType) String() string {
	switch et {
	case EventStarted:
		return "started"
	case EventOutput:
		return "output"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventKillRequested:
		return "kill-requested"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further events follow for the script.
func (et EventType) IsTerminal() bool {
	return et == EventCompleted || et == EventFailed
}

// EventData contains type-specific information for progress events.
type EventData struct {
	// For EventOutput
	OutputLine string // Decoded chunk text, not necessarily a whole line
	IsStderr   bool   // True if this is stderr output
	Bytes      int    // Raw size of the chunk

	// For EventCompleted/EventFailed
	ExitCode int           // Exit code, -1 if the script never launched
	Signal   string        // Terminating signal, if any
	Duration time.Duration // Wall time from launch to exit
	Error    error         // Launch error, if any

	// For EventStarted
	Pid int

	// For EventKillRequested
	KillSignal string
}

// Reporter is the interface for sending progress events.
type Reporter interface {
	// Report sends a progress event. Implementations must not block for long;
	// events are reported from the goroutines that drive the run.
	Report(event Event)
	// Close signals that no more events will be sent and cleans up resources.
	Close()
}

// Listener receives progress events.
type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnEvent implements Listener.
func (f ListenerFunc) OnEvent(e Event) { f(e) }

// NullReporter is a no-op implementation of Reporter.
type NullReporter struct{}

// Report implements Reporter.Report by doing nothing.
func (NullReporter) Report(Event) {}

// Close implements Reporter.Close by doing nothing.
func (NullReporter) Close() {}

// NewNullReporter creates a new NullReporter.
func NewNullReporter() Reporter {
	return NullReporter{}
}

// MultiReporter forwards every event to each of its reporters in order.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(e Event) {
	for _, r := range m {
		r.Report(e)
	}
}

// Close implements Reporter.
func (m MultiReporter) Close() {
	for _, r := range m {
		r.Close()
	}
}

// Combine returns a Reporter for all non-nil reporters.
func Combine(reporters ...Reporter) Reporter {
	var m MultiReporter

	for _, r := range reporters {
		if r != nil {
			m = append(m, r)
		}
	}

	switch len(m) {
	case 0:
		return NullReporter{}
	case 1:
		return m[0]
	default:
		return m
	}
}
