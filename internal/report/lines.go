// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/matt-FFFFFF/runscripts/internal/color"
	"github.com/matt-FFFFFF/runscripts/internal/lastline"
	"github.com/matt-FFFFFF/runscripts/internal/orchestrator"
	"github.com/matt-FFFFFF/runscripts/internal/queue"
	"github.com/matt-FFFFFF/runscripts/internal/script"
)

// ErrWriteOutput is returned when a line cannot be written.
var ErrWriteOutput = errors.New("failed to write script output")

// LineWriter writes merged output one complete line at a time, each line
// prefixed with the name of the script that produced it. Partial lines are
// held per script, so lines from different scripts never interleave.
type LineWriter[M any] struct {
	w      io.Writer
	decode script.DecodeOptions
	prefix bool
	width  int
	mu     sync.Mutex
	lines  map[int]*lastline.Tracker
	names  map[int]string
	err    error
}

// LineOption configures a LineWriter.
type LineOption func(*lineOptions)

type lineOptions struct {
	decode script.DecodeOptions
	prefix bool
	width  int
}

// WithStripANSI removes escape sequences from script output.
func WithStripANSI(strip bool) LineOption {
	return func(o *lineOptions) { o.decode.StripANSI = strip }
}

// WithPrefix controls the "[name] " prefix. It is on by default.
func WithPrefix(on bool) LineOption {
	return func(o *lineOptions) { o.prefix = on }
}

// WithPrefixWidth pads names to width so that output columns line up.
func WithPrefixWidth(width int) LineOption {
	return func(o *lineOptions) { o.width = width }
}

// NewLineWriter returns a LineWriter writing to w.
func NewLineWriter[M any](w io.Writer, opts ...LineOption) *LineWriter[M] {
	o := lineOptions{prefix: true}
	for _, opt := range opts {
		opt(&o)
	}

	return &LineWriter[M]{
		w:      w,
		decode: o.decode,
		prefix: o.prefix,
		width:  o.width,
		lines:  make(map[int]*lastline.Tracker),
		names:  make(map[int]string),
	}
}

// Write adds one chunk of output.
func (lw *LineWriter[M]) Write(env orchestrator.Envelope[M]) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	tr, ok := lw.lines[env.Index]
	if !ok {
		index := env.Index
		lw.names[index] = env.Name
		tr = lastline.New(func(line string) { lw.writeLine(index, line) })
		lw.lines[index] = tr
	}

	tr.WriteString(env.Decode(lw.decode))

	return lw.err
}

// Flush writes any unterminated lines, in script order.
func (lw *LineWriter[M]) Flush() error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	for i := range lw.maxIndex() + 1 {
		if tr, ok := lw.lines[i]; ok {
			tr.Flush()
		}
	}

	return lw.err
}

func (lw *LineWriter[M]) maxIndex() int {
	n := -1
	for i := range lw.lines {
		n = max(n, i)
	}

	return n
}

// writeLine runs with lw.mu held, from inside Tracker callbacks.
func (lw *LineWriter[M]) writeLine(index int, line string) {
	if lw.err != nil {
		return
	}

	var sb strings.Builder

	if lw.prefix {
		name := lw.names[index]
		if name == "" {
			name = fmt.Sprintf("#%d", index)
		}

		sb.WriteString(color.Colorize(fmt.Sprintf("[%-*s]", lw.width, name), color.ForIndex(index)))
		sb.WriteByte(' ')
	}

	sb.WriteString(line)
	sb.WriteByte('\n')

	if _, err := io.WriteString(lw.w, sb.String()); err != nil {
		lw.err = errors.Join(ErrWriteOutput, err)
	}
}

// Consume writes everything from q until it is closed, then flushes.
func (lw *LineWriter[M]) Consume(ctx context.Context, q *queue.Queue[orchestrator.Envelope[M]]) error {
	for env := range q.All(ctx) {
		if err := lw.Write(env); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return lw.Flush()
}

// PrefixWidth returns the length of the longest name.
func PrefixWidth(names []string) int {
	w := 0
	for _, n := range names {
		w = max(w, len(n))
	}

	return w
}
