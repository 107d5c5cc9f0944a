// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdstate holds process wide state shared between main and the
// subcommands. main owns the signal watcher, while only the running
// subcommand knows what an interrupt should do. Global state is the only
// link between the two because urfave/cli actions receive no main-provided
// values other than the context.
package cmdstate

import (
	"os"
	"sync"
)

var (
	mu      sync.Mutex
	handler func(os.Signal)
)

// SetSignalHandler makes fn the receiver of the first signal of each type.
// restore puts the previous handler back.
func SetSignalHandler(fn func(os.Signal)) (restore func()) {
	mu.Lock()
	defer mu.Unlock()

	prev := handler
	handler = fn

	return func() {
		mu.Lock()
		defer mu.Unlock()

		handler = prev
	}
}

// Signal delivers sig to the current handler. It reports false when no
// handler is installed.
func Signal(sig os.Signal) bool {
	mu.Lock()
	fn := handler
	mu.Unlock()

	if fn == nil {
		return false
	}

	fn(sig)

	return true
}
