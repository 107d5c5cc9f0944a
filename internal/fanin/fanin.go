// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package fanin merges any number of channels into one.
//
// Each source keeps exactly one outstanding receive. Whichever source is ready
// first is forwarded first, so the output is in arrival order and values from
// a single source keep their relative order. A source that is closed is retired
// and the output closes once every source has been retired.
package fanin

import (
	"context"
	"reflect"
)

// Merge forwards values from every source to the returned channel until all
// sources are closed or ctx is done. The returned channel is unbuffered, so a
// slow consumer applies backpressure to every source.
//
// With no sources the returned channel is already closed.
func Merge[T any](ctx context.Context, sources ...<-chan T) <-chan T {
	out := make(chan T)

	if len(sources) == 0 {
		close(out)
		return out
	}

	go func() {
		defer close(out)

		// cases[0] is ctx.Done(), the rest map to sources[i-1].
		cases := make([]reflect.SelectCase, len(sources)+1)
		cases[0] = reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())}

		live := 0

		for i, src := range sources {
			c := reflect.SelectCase{Dir: reflect.SelectRecv}
			// A nil source is already finished. A zero Chan is never selected.
			if src != nil {
				c.Chan = reflect.ValueOf(src)
				live++
			}

			cases[i+1] = c
		}

		for live > 0 {
			chosen, v, ok := reflect.Select(cases)
			if chosen == 0 {
				return
			}

			if !ok {
				cases[chosen].Chan = reflect.Value{}
				live--

				continue
			}

			var val T
			if !v.IsZero() {
				val = v.Interface().(T) //nolint:forcetypeassert
			}

			select {
			case out <- val:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
