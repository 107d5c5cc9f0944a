// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package processtest provides an in-memory process.Launcher for tests.
//
// Fake processes are driven by the test (or by a Behavior) through
// WriteStdout, WriteStderr, CloseStreams and Exit, so interleavings that are
// hard to provoke with real processes can be reproduced exactly.
package processtest

import (
	"context"
	"os"
	"sync"
	"syscall"

	"github.com/matt-FFFFFF/runscripts/internal/process"
)

const streamBuffer = 1024

var _ process.Handle = (*FakeHandle)(nil)

// FakeHandle is a controllable process.Handle.
type FakeHandle struct {
	pid    int
	stdout chan []byte
	stderr chan []byte
	done   chan struct{}

	mu          sync.Mutex
	outcome     process.Outcome
	exited      bool
	streamsDone bool
	killed      []os.Signal
}

// NewFakeHandle returns a running fake process.
func NewFakeHandle(pid int) *FakeHandle {
	return &FakeHandle{
		pid:    pid,
		stdout: make(chan []byte, streamBuffer),
		stderr: make(chan []byte, streamBuffer),
		done:   make(chan struct{}),
	}
}

// Pid implements process.Handle.
func (h *FakeHandle) Pid() int { return h.pid }

// Stdout implements process.Handle.
func (h *FakeHandle) Stdout() <-chan []byte { return h.stdout }

// Stderr implements process.Handle.
func (h *FakeHandle) Stderr() <-chan []byte { return h.stderr }

// Done implements process.Handle.
func (h *FakeHandle) Done() <-chan struct{} { return h.done }

// Outcome implements process.Handle.
func (h *FakeHandle) Outcome() process.Outcome {
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.outcome
}

// WriteStdout emits s on stdout. It is ignored after CloseStreams.
func (h *FakeHandle) WriteStdout(s string) { h.write(h.stdout, s) }

// WriteStderr emits s on stderr. It is ignored after CloseStreams.
func (h *FakeHandle) WriteStderr(s string) { h.write(h.stderr, s) }

func (h *FakeHandle) write(ch chan []byte, s string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streamsDone {
		return
	}

	ch <- []byte(s)
}

// CloseStreams ends both output streams. It is idempotent.
func (h *FakeHandle) CloseStreams() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streamsDone {
		return
	}

	h.streamsDone = true
	close(h.stdout)
	close(h.stderr)
}

// Exit records the exit code and closes Done. Only the first call counts.
func (h *FakeHandle) Exit(code int) {
	h.exit(process.Outcome{ExitCode: code})
}

func (h *FakeHandle) exit(o process.Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.exited {
		return
	}

	h.exited = true
	h.outcome = o
	close(h.done)
}

// Finish closes the streams and exits with code.
func (h *FakeHandle) Finish(code int) {
	h.CloseStreams()
	h.Exit(code)
}

// Kill implements process.Handle. A running fake dies immediately with
// 128+signal and the signal's name, like a shell killed by that signal.
func (h *FakeHandle) Kill(sig os.Signal) error {
	if sig == nil {
		sig = os.Kill
	}

	h.mu.Lock()
	h.killed = append(h.killed, sig)
	exited := h.exited
	h.mu.Unlock()

	if exited {
		return nil
	}

	code := 137
	if s, ok := sig.(syscall.Signal); ok {
		code = 128 + int(s)
	}

	h.CloseStreams()
	h.exit(process.Outcome{ExitCode: code, Signal: process.SignalName(sig)})

	return nil
}

// Killed returns every signal passed to Kill, including no-op kills.
func (h *FakeHandle) Killed() []os.Signal {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]os.Signal(nil), h.killed...)
}

// Exited reports whether the fake has exited.
func (h *FakeHandle) Exited() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.exited
}

// Launch describes one call to FakeLauncher.Launch.
type Launch struct {
	Seq    int
	Spec   process.Spec
	Handle *FakeHandle
}

// Behavior drives a freshly launched fake. It runs on its own goroutine.
type Behavior func(h *FakeHandle, spec process.Spec)

// FakeLauncher is a process.Launcher producing FakeHandles.
type FakeLauncher struct {
	// Behavior, if set, is started for every successful launch.
	Behavior Behavior
	// Fail, if set, decides whether the n-th launch (0 based) fails.
	Fail func(seq int, spec process.Spec) error

	mu        sync.Mutex
	seq       int
	launches  []Launch
	active    int
	maxActive int
	notify    chan Launch
}

// NewFakeLauncher returns a launcher running b for each process.
func NewFakeLauncher(b Behavior) *FakeLauncher {
	return &FakeLauncher{
		Behavior: b,
		notify:   make(chan Launch, streamBuffer),
	}
}

// Launch implements process.Launcher.
func (l *FakeLauncher) Launch(ctx context.Context, spec process.Spec) (process.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	seq := l.seq
	l.seq++

	if l.Fail != nil {
		if err := l.Fail(seq, spec); err != nil {
			l.mu.Unlock()
			return nil, err
		}
	}

	h := NewFakeHandle(1000 + seq)
	ln := Launch{Seq: seq, Spec: spec, Handle: h}
	l.launches = append(l.launches, ln)
	l.active++
	l.maxActive = max(l.maxActive, l.active)
	l.mu.Unlock()

	go func() {
		<-h.done

		l.mu.Lock()
		l.active--
		l.mu.Unlock()
	}()

	if l.notify != nil {
		l.notify <- ln
	}

	if l.Behavior != nil {
		go l.Behavior(h, spec)
	}

	return h, nil
}

// Launched delivers every successful launch in order.
func (l *FakeLauncher) Launched() <-chan Launch {
	return l.notify
}

// Launches returns a snapshot of every successful launch.
func (l *FakeLauncher) Launches() []Launch {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Launch(nil), l.launches...)
}

// MaxActive is the highest number of fakes that were running at once.
func (l *FakeLauncher) MaxActive() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.maxActive
}

// Echo writes each line to stdout and exits with code.
func Echo(code int, lines ...string) Behavior {
	return func(h *FakeHandle, _ process.Spec) {
		for _, line := range lines {
			h.WriteStdout(line + "\n")
		}

		h.Finish(code)
	}
}

// WaitFor blocks until release is closed, then behaves like Echo.
func WaitFor(release <-chan struct{}, code int, lines ...string) Behavior {
	echo := Echo(code, lines...)

	return func(h *FakeHandle, spec process.Spec) {
		select {
		case <-release:
			echo(h, spec)
		case <-h.done:
		}
	}
}

// Hang never exits on its own. It is meant to be killed.
func Hang(h *FakeHandle, _ process.Spec) {}
