// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import "sync"

// trigger tells the coordination loop that a script has been admitted or
// rejected. It delivers its index exactly once and then closes, so a merge
// over all triggers ends once every script has been dealt with.
type trigger struct {
	index int
	ch    chan int
	once  sync.Once
}

func newTrigger(index int) *trigger {
	return &trigger{index: index, ch: make(chan int, 1)}
}

func (t *trigger) fire() {
	t.once.Do(func() {
		t.ch <- t.index
		close(t.ch)
	})
}

func (t *trigger) C() <-chan int {
	return t.ch
}
