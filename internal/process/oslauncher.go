// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/matt-FFFFFF/runscripts/internal/ctxlog"
)

const defaultReadBufferSize = 32 * 1024

var _ Launcher = (*OSLauncher)(nil)

// OSLauncher starts real operating system processes.
//
// Stdin is connected to the null device. On unix every process is started in
// a new process group so that Kill reaches the shell and everything it spawned.
// When the launch context is done the process group is killed.
type OSLauncher struct {
	// ReadBufferSize is the maximum chunk size, defaults to 32KiB.
	ReadBufferSize int
}

// Launch implements Launcher.
func (l *OSLauncher) Launch(ctx context.Context, spec Spec) (Handle, error) {
	if len(spec.Argv) == 0 {
		return nil, ErrEmptyArgv
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}

	logger := ctxlog.Logger(ctx)

	path := spec.Argv[0]
	if resolved, err := exec.LookPath(path); err == nil || errors.Is(err, exec.ErrDot) {
		path = resolved
	}

	devNull, err := os.Open(os.DevNull)
	if err != nil {
		return nil, errors.Join(ErrCouldNotStartProcess, err)
	}
	defer devNull.Close() //nolint:errcheck

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	rErr, wErr, err := os.Pipe()
	if err != nil {
		_ = rOut.Close()
		_ = wOut.Close()

		return nil, errors.Join(ErrFailedToCreatePipe, err)
	}

	logger.Debug("starting process", "path", path, "args", spec.Argv[1:], "cwd", spec.Dir)

	ps, err := os.StartProcess(path, spec.Argv, &os.ProcAttr{
		Dir:   spec.Dir,
		Env:   spec.Env,
		Files: []*os.File{devNull, wOut, wErr},
		Sys:   sysProcAttr(),
	})

	// The child has its own copies. Closing ours means the readers see EOF as
	// soon as the child (and any grandchildren) close theirs.
	_ = wOut.Close()
	_ = wErr.Close()

	if err != nil {
		_ = rOut.Close()
		_ = rErr.Close()

		return nil, fmt.Errorf("%w: %s: %w", ErrCouldNotStartProcess, spec.Argv[0], err)
	}

	logger.Debug("process started", "pid", ps.Pid)

	size := l.ReadBufferSize
	if size <= 0 {
		size = defaultReadBufferSize
	}

	h := &osHandle{
		ps:     ps,
		stdout: make(chan []byte),
		stderr: make(chan []byte),
		done:   make(chan struct{}),
	}

	go pump(rOut, h.stdout, size)
	go pump(rErr, h.stderr, size)
	go h.wait(ctx)

	return h, nil
}

type osHandle struct {
	ps      *os.Process
	stdout  chan []byte
	stderr  chan []byte
	done    chan struct{}
	mu      sync.Mutex
	outcome Outcome
}

func (h *osHandle) Pid() int { return h.ps.Pid }
func (h *osHandle) Stdout() <-chan []byte { return h.stdout }
func (h *osHandle) Stderr() <-chan []byte { return h.stderr }
func (h *osHandle) Done() <-chan struct{} { return h.done }

func (h *osHandle) Outcome() Outcome {
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()

	return h.outcome
}

func (h *osHandle) Kill(sig os.Signal) error {
	select {
	case <-h.done:
		return nil
	default:
	}

	if sig == nil {
		sig = os.Kill
	}

	err := signalGroup(h.ps, sig)
	if err == nil || errors.Is(err, os.ErrProcessDone) {
		return nil
	}

	return fmt.Errorf("signal %s to pid %d: %w", sig, h.ps.Pid, err)
}

func (h *osHandle) wait(ctx context.Context) {
	logger := ctxlog.Logger(ctx).With("pid", h.ps.Pid)

	exited := make(chan struct{})

	// Watchdog: kill the group if the launch context ends first.
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("context done, killing process group")

			if err := signalGroup(h.ps, os.Kill); err != nil && !errors.Is(err, os.ErrProcessDone) {
				logger.Error("process kill error", "error", err)
			}
		case <-exited:
		}
	}()

	state, err := h.ps.Wait()
	close(exited)

	var out Outcome

	if err != nil {
		logger.Error("wait failed", "error", err)

		out.ExitCode = -1
	} else {
		out = outcomeFromState(state)
	}

	logger.Debug("process finished", "exitCode", out.ExitCode, "signal", out.Signal)

	h.mu.Lock()
	h.outcome = out
	h.mu.Unlock()

	close(h.done)
}

// pump copies r to ch in chunks until EOF, then closes both.
func pump(r io.ReadCloser, ch chan<- []byte, size int) {
	defer close(ch)
	defer r.Close() //nolint:errcheck

	buf := make([]byte, size)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			ch <- chunk
		}

		if err != nil {
			return
		}
	}
}
