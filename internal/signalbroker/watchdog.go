// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/runscripts/internal/ctxlog"
)

// Watch handles signals from sigCh until ctx is done or sigCh is closed.
// The first signal of a given type is passed to onFirst, which may be nil.
// The second signal of the same type cancels and returns.
func Watch(ctx context.Context, sigCh <-chan os.Signal, onFirst func(os.Signal), cancel context.CancelFunc) {
	seen := make(map[os.Signal]struct{})

	for {
		var (
			sig os.Signal
			ok  bool
		)

		select {
		case <-ctx.Done():
			return
		case sig, ok = <-sigCh:
			if !ok {
				return
			}
		}

		if _, dup := seen[sig]; dup {
			ctxlog.Warn(ctx, "watchdog", "detail", "received second signal of type, forcefully terminating", "signal", sig.String())
			cancel()

			return
		}

		ctxlog.Info(ctx, "watchdog", "detail", "received first signal of type, stopping scripts", "signal", sig.String())

		seen[sig] = struct{}{}

		if onFirst != nil {
			onFirst(sig)
		}
	}
}
