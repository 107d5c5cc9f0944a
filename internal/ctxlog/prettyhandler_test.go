// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package ctxlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(buf *bytes.Buffer, opts ...Option) *PrettyHandler {
	return NewPrettyHandler(&slog.HandlerOptions{Level: slog.LevelDebug},
		append([]Option{WithDestinationWriter(buf)}, opts...)...)
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(newTestHandler(&buf))
	logger.Info("script exited", "index", 2, "exit_code", 0)

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "INFO:")
	assert.Contains(t, line, "script exited")
	assert.Contains(t, line, `"index": 2`)
	assert.Contains(t, line, `"exit_code": 0`)
	assert.NotContains(t, line, "\033[", "colour is off unless requested")
}

func TestPrettyHandler_NoAttrs(t *testing.T) {
	var buf bytes.Buffer

	slog.New(newTestHandler(&buf)).Warn("bare")
	assert.NotContains(t, buf.String(), "{")

	buf.Reset()
	slog.New(newTestHandler(&buf, WithOutputEmptyAttrs())).Warn("bare")
	assert.Contains(t, buf.String(), "{}")
}

func TestPrettyHandler_Colour(t *testing.T) {
	var buf bytes.Buffer

	slog.New(newTestHandler(&buf, WithColour())).Error("boom")
	assert.Contains(t, buf.String(), "\033[31mERROR:")
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(newTestHandler(&buf)).With("run", "r1").WithGroup("script")
	logger.Info("started", "index", 0)

	assert.Contains(t, buf.String(), `"run": "r1"`)
	assert.Contains(t, buf.String(), `"script": {`)
}

func TestPrettyHandler_ReplaceAttrDropsTime(t *testing.T) {
	var buf bytes.Buffer

	h := NewPrettyHandler(&slog.HandlerOptions{
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}

			return a
		},
	}, WithDestinationWriter(&buf))

	r := slog.NewRecord(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "msg", 0)
	require.NoError(t, h.Handle(context.Background(), r))
	assert.NotContains(t, buf.String(), "[12:00:00.000]")
	assert.True(t, strings.HasPrefix(buf.String(), "INFO:"))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestPrettyHandler_WriteError(t *testing.T) {
	h := NewPrettyHandler(nil, WithDestinationWriter(failingWriter{}))
	r := slog.NewRecord(time.Now(), slog.LevelError, "msg", 0)
	assert.ErrorIs(t, h.Handle(context.Background(), r), ErrIoWrite)
}

func TestPrettyHandler_Concurrent(t *testing.T) {
	var (
		buf bytes.Buffer
		wg  sync.WaitGroup
	)

	logger := slog.New(newTestHandler(&buf))

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			logger.Info("line", "n", i)
		}()
	}

	wg.Wait()
	assert.Equal(t, 20, strings.Count(buf.String(), "\n"))
}
