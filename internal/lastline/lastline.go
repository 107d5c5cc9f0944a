// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package lastline

import (
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// Ellipsis is appended to truncated lines.
const Ellipsis = "..."

// Tracker assembles lines from written data. It is safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	partial strings.Builder
	last    string
	lines   int
	onLine  func(line string)
}

// New returns a Tracker. onLine, if not nil, is called with every complete
// line, without its trailing newline, in the order the lines were written.
func New(onLine func(line string)) *Tracker {
	return &Tracker{onLine: onLine}
}

// Write implements io.Writer. It never fails.
func (t *Tracker) Write(p []byte) (int, error) {
	t.WriteString(string(p))

	return len(p), nil
}

// WriteString is Write for strings.
func (t *Tracker) WriteString(s string) {
	if s == "" {
		return
	}

	t.mu.Lock()

	var complete []string

	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			t.partial.WriteString(s)
			break
		}

		t.partial.WriteString(s[:i])
		line := strings.TrimSuffix(t.partial.String(), "\r")
		t.partial.Reset()

		t.last = line
		t.lines++
		complete = append(complete, line)
		s = s[i+1:]
	}

	t.mu.Unlock()

	if t.onLine != nil {
		for _, line := range complete {
			t.onLine(line)
		}
	}
}

// Flush emits any unterminated data as a final line.
func (t *Tracker) Flush() {
	t.mu.Lock()

	if t.partial.Len() == 0 {
		t.mu.Unlock()
		return
	}

	line := t.partial.String()
	t.partial.Reset()
	t.last = line
	t.lines++
	t.mu.Unlock()

	if t.onLine != nil {
		t.onLine(line)
	}
}

// Last returns the last complete line with escape sequences removed. If
// width > 0 the line is truncated to that many cells, ending in Ellipsis.
func (t *Tracker) Last(width int) string {
	t.mu.RLock()
	line := t.last
	t.mu.RUnlock()

	line = ansi.Strip(line)
	if width > 0 && ansi.StringWidth(line) > width {
		return ansi.Truncate(line, width, Ellipsis)
	}

	return line
}

// Partial returns data written after the last newline.
func (t *Tracker) Partial() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.partial.String()
}

// Lines returns the number of complete lines seen.
func (t *Tracker) Lines() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.lines
}

// Reset forgets everything written so far.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.partial.Reset()
	t.last = ""
	t.lines = 0
}
