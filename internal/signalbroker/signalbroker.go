// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package signalbroker listens for OS signals that should stop a run.
// By default it listens for os.Interrupt, syscall.SIGINT, syscall.SIGTERM, and syscall.SIGQUIT signals.
//
// Watch forwards the first signal of each type to a callback, typically to
// kill running scripts, and cancels a context when the same signal arrives twice.
package signalbroker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/matt-FFFFFF/runscripts/internal/ctxlog"
)

var termSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
	syscall.SIGQUIT,
	os.Interrupt,
}

// New starts relaying sigs (or the termination signals) to the returned
// channel. Call stop to stop relaying; the channel is never closed.
func New(ctx context.Context, sigs ...os.Signal) (ch chan os.Signal, stop func()) {
	ch = make(chan os.Signal, 1)

	if len(sigs) == 0 {
		sigs = termSignals
	}

	ctxlog.Debug(ctx, "signalbroker", "detail", "creating signal broker", "signals", sigs)
	signal.Notify(ch, sigs...)

	return ch, func() { signal.Stop(ch) }
}
