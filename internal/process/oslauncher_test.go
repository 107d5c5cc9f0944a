// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func skipOnWindows(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}
}

func drain(ch <-chan []byte) []byte {
	var buf bytes.Buffer
	for c := range ch {
		buf.Write(c)
	}

	return buf.Bytes()
}

func run(t *testing.T, ctx context.Context, script string) (stdout, stderr string, h Handle) {
	t.Helper()

	h, err := (&OSLauncher{}).Launch(ctx, Spec{
		Argv: []string{"/bin/sh", "-c", script},
		Env:  os.Environ(),
	})
	require.NoError(t, err)

	errCh := make(chan []byte)
	go func() { errCh <- drain(h.Stderr()) }()

	out := drain(h.Stdout())

	return string(out), string(<-errCh), h
}

func TestOSLauncher_OutputAndExitCode(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	stdout, stderr, h := run(t, context.Background(), "echo out; echo err >&2; exit 3")

	assert.Equal(t, "out\n", stdout)
	assert.Equal(t, "err\n", stderr)
	assert.Equal(t, Outcome{ExitCode: 3}, h.Outcome())
	assert.Positive(t, h.Pid())
}

func TestOSLauncher_StdinIsNull(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	stdout, _, h := run(t, context.Background(), "cat; echo done")
	assert.Equal(t, "done\n", stdout)
	assert.Equal(t, 0, h.Outcome().ExitCode)
}

func TestOSLauncher_DirAndEnv(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	dir := t.TempDir()

	h, err := (&OSLauncher{}).Launch(context.Background(), Spec{
		Argv: []string{"sh", "-c", `printf '%s|%s' "$GREETING" "$(basename "$PWD")"`},
		Dir:  dir,
		Env:  append(os.Environ(), "GREETING=hi"),
	})
	require.NoError(t, err)

	go drain(h.Stderr())

	assert.Equal(t, "hi|"+filepath.Base(dir), string(drain(h.Stdout())))
	assert.Equal(t, 0, h.Outcome().ExitCode)
}

func TestOSLauncher_KillReportsSignal(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	tests := []struct {
		sig      os.Signal
		wantCode int
		wantName string
	}{
		{sig: syscall.SIGTERM, wantCode: 143, wantName: "SIGTERM"},
		{sig: syscall.SIGINT, wantCode: 130, wantName: "SIGINT"},
		{sig: syscall.SIGABRT, wantCode: 134, wantName: "SIGABRT"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			h, err := (&OSLauncher{}).Launch(context.Background(), Spec{
				Argv: []string{"/bin/sh", "-c", "echo ready; sleep 30"},
				Env:  os.Environ(),
			})
			require.NoError(t, err)

			go drain(h.Stderr())

			first := <-h.Stdout()
			assert.Equal(t, "ready\n", string(first))

			require.NoError(t, h.Kill(tt.sig))
			drain(h.Stdout())

			assert.Equal(t, Outcome{ExitCode: tt.wantCode, Signal: tt.wantName}, h.Outcome())
			assert.NoError(t, h.Kill(tt.sig), "killing an exited process is a no-op")
		})
	}
}

func TestOSLauncher_ContextCancelKillsGroup(t *testing.T) {
	skipOnWindows(t)
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())

	h, err := (&OSLauncher{}).Launch(ctx, Spec{
		// The grandchild sleep keeps the pipe open unless the whole group dies.
		Argv: []string{"/bin/sh", "-c", "sleep 30 & echo ready; wait"},
		Env:  os.Environ(),
	})
	require.NoError(t, err)

	go drain(h.Stderr())

	<-h.Stdout()
	cancel()

	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process not killed after cancel")
	}

	drain(h.Stdout())
	assert.Equal(t, "SIGKILL", h.Outcome().Signal)
}

func TestOSLauncher_Errors(t *testing.T) {
	_, err := (&OSLauncher{}).Launch(context.Background(), Spec{})
	require.ErrorIs(t, err, ErrEmptyArgv)

	_, err = (&OSLauncher{}).Launch(context.Background(), Spec{Argv: []string{"/definitely/not/here"}})
	require.ErrorIs(t, err, ErrCouldNotStartProcess)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = (&OSLauncher{}).Launch(ctx, Spec{Argv: []string{"true"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSignalNames(t *testing.T) {
	skipOnWindows(t)

	assert.Equal(t, "SIGTERM", SignalName(syscall.SIGTERM))

	for _, in := range []string{"TERM", "sigterm", "SIGTERM"} {
		sig, ok := ParseSignal(in)
		require.True(t, ok, in)
		assert.Equal(t, syscall.SIGTERM, sig)
	}

	_, ok := ParseSignal("NOPE")
	assert.False(t, ok)
}
