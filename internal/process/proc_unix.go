// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !windows

package process

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup delivers sig to the process group led by ps.
func signalGroup(ps *os.Process, sig os.Signal) error {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return ps.Signal(sig)
	}

	if err := unix.Kill(-ps.Pid, s); err != nil {
		if err == unix.ESRCH {
			return os.ErrProcessDone
		}

		// Fall back to the leader alone, e.g. if it changed its group.
		return ps.Signal(sig)
	}

	return nil
}

func outcomeFromState(state *os.ProcessState) Outcome {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if ok && ws.Signaled() {
		return Outcome{
			ExitCode: 128 + int(ws.Signal()),
			Signal:   unix.SignalName(ws.Signal()),
		}
	}

	return Outcome{ExitCode: state.ExitCode()}
}

// SignalName returns the conventional name of sig, e.g. "SIGINT".
func SignalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}

	return sig.String()
}

// ParseSignal accepts names with or without the SIG prefix.
func ParseSignal(name string) (os.Signal, bool) {
	s := unix.SignalNum(normaliseSignalName(name))
	if s == 0 {
		return nil, false
	}

	return s, true
}
