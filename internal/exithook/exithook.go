// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package exithook collects cleanup functions that must run exactly once
// before the process exits, whether it finishes normally or is interrupted.
package exithook

import (
	"slices"
	"sync"
)

// Registry holds hooks. The zero value is ready to use.
type Registry struct {
	mu    sync.Mutex
	next  int
	hooks map[int]func()
	ran   bool
}

// Default is the process wide registry that main runs before exiting.
var Default = &Registry{}

// Register adds fn and returns a function that removes it again.
// If the registry has already run, fn is run immediately.
func (r *Registry) Register(fn func()) (unregister func()) {
	r.mu.Lock()

	if r.ran {
		r.mu.Unlock()
		fn()

		return func() {}
	}

	if r.hooks == nil {
		r.hooks = make(map[int]func())
	}

	id := r.next
	r.next++
	r.hooks[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(r.hooks, id)
	}
}

// Run calls every registered hook, newest first. Only the first call has any
// effect. A panicking hook does not prevent the others from running.
func (r *Registry) Run() {
	r.mu.Lock()

	if r.ran {
		r.mu.Unlock()
		return
	}

	r.ran = true

	ids := make([]int, 0, len(r.hooks))
	for id := range r.hooks {
		ids = append(ids, id)
	}

	slices.Sort(ids)
	slices.Reverse(ids)

	hooks := make([]func(), 0, len(ids))
	for _, id := range ids {
		hooks = append(hooks, r.hooks[id])
	}

	r.hooks = nil
	r.mu.Unlock()

	for _, fn := range hooks {
		runSafely(fn)
	}
}

func runSafely(fn func()) {
	defer func() { _ = recover() }()

	fn()
}

// Register adds fn to Default.
func Register(fn func()) func() {
	return Default.Register(fn)
}

// Run runs the hooks registered with Default.
func Run() {
	Default.Run()
}
