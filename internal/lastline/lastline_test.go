// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package lastline

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_SingleWrite(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		expectedLast    string
		expectedPartial string
		expectedLines   int
	}{
		{
			name:          "single line with newline",
			input:         "hello world\n",
			expectedLast:  "hello world",
			expectedLines: 1,
		},
		{
			name:            "single line without newline",
			input:           "hello world",
			expectedPartial: "hello world",
		},
		{
			name: "empty string",
		},
		{
			name:          "just newline",
			input:         "\n",
			expectedLines: 1,
		},
		{
			name:            "several lines and a partial",
			input:           "a\nb\nc",
			expectedLast:    "b",
			expectedPartial: "c",
			expectedLines:   2,
		},
		{
			name:          "crlf",
			input:         "dos line\r\n",
			expectedLast:  "dos line",
			expectedLines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(nil)
			tr.WriteString(tt.input)

			assert.Equal(t, tt.expectedLast, tr.Last(0))
			assert.Equal(t, tt.expectedPartial, tr.Partial())
			assert.Equal(t, tt.expectedLines, tr.Lines())
		})
	}
}

func TestTracker_LinesSplitAcrossWrites(t *testing.T) {
	var got []string

	tr := New(func(line string) { got = append(got, line) })

	for _, chunk := range []string{"hel", "lo\nwor", "ld\n", "\n", "tail"} {
		n, err := tr.Write([]byte(chunk))
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}

	assert.Equal(t, []string{"hello", "world", ""}, got)
	assert.Equal(t, "tail", tr.Partial())

	tr.Flush()
	assert.Equal(t, []string{"hello", "world", "", "tail"}, got)
	assert.Equal(t, "tail", tr.Last(0))
	assert.Empty(t, tr.Partial())

	tr.Flush()
	assert.Len(t, got, 4)
}

func TestTracker_IsWriter(t *testing.T) {
	tr := New(nil)

	_, err := io.Copy(tr, strings.NewReader("one\ntwo\n"))
	require.NoError(t, err)
	assert.Equal(t, "two", tr.Last(0))
}

func TestTracker_LastStripsAndTruncates(t *testing.T) {
	tr := New(nil)
	tr.WriteString("\x1b[32mhello world\x1b[0m\n")

	assert.Equal(t, "hello world", tr.Last(0))
	assert.Equal(t, "hello world", tr.Last(20))

	short := tr.Last(8)
	assert.True(t, strings.HasSuffix(short, Ellipsis))
	assert.LessOrEqual(t, ansi.StringWidth(short), 8)
}

func TestTracker_Reset(t *testing.T) {
	tr := New(nil)
	tr.WriteString("a\nb")
	tr.Reset()

	assert.Empty(t, tr.Last(0))
	assert.Empty(t, tr.Partial())
	assert.Zero(t, tr.Lines())
}

func TestTracker_Concurrent(t *testing.T) {
	var (
		mu  sync.Mutex
		got int
	)

	tr := New(func(string) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	var wg sync.WaitGroup

	for i := range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range 100 {
				tr.WriteString(fmt.Sprintf("%d-%d\n", i, j))
				_ = tr.Last(5)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1000, tr.Lines())
	assert.Equal(t, 1000, got)
}
