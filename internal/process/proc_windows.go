// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build windows

package process

import (
	"os"
	"syscall"
)

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

// signalGroup terminates ps. Windows has no POSIX signals, so every signal
// is a hard kill.
func signalGroup(ps *os.Process, _ os.Signal) error {
	return ps.Kill()
}

func outcomeFromState(state *os.ProcessState) Outcome {
	return Outcome{ExitCode: state.ExitCode()}
}

// SignalName returns sig.String().
func SignalName(sig os.Signal) string {
	return sig.String()
}

// ParseSignal accepts INT/SIGINT and KILL/SIGKILL, the only two signals
// the os package defines on Windows.
func ParseSignal(name string) (os.Signal, bool) {
	switch normaliseSignalName(name) {
	case "SIGINT":
		return os.Interrupt, true
	case "SIGKILL", "SIGTERM":
		return os.Kill, true
	default:
		return nil, false
	}
}
