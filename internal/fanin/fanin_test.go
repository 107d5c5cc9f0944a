// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package fanin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func collect[T any](ch <-chan T) []T {
	var out []T
	for v := range ch {
		out = append(out, v)
	}

	return out
}

func TestMerge_NoSources(t *testing.T) {
	defer goleak.VerifyNone(t)

	out := Merge[int](context.Background())
	_, ok := <-out
	assert.False(t, ok)
}

func TestMerge_NilSourcesAreFinished(t *testing.T) {
	defer goleak.VerifyNone(t)

	a := make(chan int, 1)
	a <- 1
	close(a)

	assert.Equal(t, []int{1}, collect(Merge[int](context.Background(), nil, a, nil)))
}

func TestMerge_AllValuesDeliveredInSourceOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	type tagged struct{ src, n int }

	const (
		sources = 5
		perSrc  = 100
	)

	chans := make([]<-chan tagged, sources)

	for s := range sources {
		ch := make(chan tagged)
		chans[s] = ch

		go func() {
			defer close(ch)

			for n := range perSrc {
				ch <- tagged{src: s, n: n}
			}
		}()
	}

	got := collect(Merge(context.Background(), chans...))
	require.Len(t, got, sources*perSrc)

	next := make([]int, sources)
	for _, v := range got {
		assert.Equal(t, next[v.src], v.n)
		next[v.src]++
	}
}

func TestMerge_ArrivalOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	slow := make(chan string)
	fast := make(chan string)
	out := Merge[string](context.Background(), slow, fast)

	fast <- "fast"
	assert.Equal(t, "fast", <-out)

	slow <- "slow"
	assert.Equal(t, "slow", <-out)

	close(fast)
	slow <- "slow again"
	assert.Equal(t, "slow again", <-out)

	close(slow)
	_, ok := <-out
	assert.False(t, ok)
}

func TestMerge_NilInterfaceValues(t *testing.T) {
	defer goleak.VerifyNone(t)

	ch := make(chan error, 2)
	ch <- nil
	ch <- errors.New("x")
	close(ch)

	got := collect(Merge(context.Background(), (<-chan error)(ch)))
	require.Len(t, got, 2)
	assert.NoError(t, got[0])
	assert.EqualError(t, got[1], "x")
}

func TestMerge_ContextCancelClosesOutput(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	never := make(chan int)
	out := Merge[int](ctx, never)

	cancel()

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("merge did not stop after cancel")
	}
}
