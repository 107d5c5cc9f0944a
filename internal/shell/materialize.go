// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shell turns a script's command text into an argument vector.
//
// The command is written to a temporary script file so that multi-line
// commands, quoting and shell builtins behave exactly as they would in a file.
// The returned Executor carries a cleanup function that removes the file.
package shell

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

const (
	goosWindows      = "windows"
	binSh            = "/bin/sh"
	cmdExe           = "cmd.exe"
	winSystem32      = "System32"
	winSystemRootEnv = "SystemRoot"
	scriptMode       = 0o755
)

var (
	// ErrEmptyCommand is returned for commands that are empty.
	ErrEmptyCommand = errors.New("command is empty")
	// ErrShellNotFound is returned when the selected shell is not in PATH.
	ErrShellNotFound = errors.New("shell executable not found")
	// ErrMaterialize is returned when the script file cannot be written.
	ErrMaterialize = errors.New("cannot write script file")
)

// FileCreator writes a temporary file and returns its path and a remover.
// *tempdir.Manager implements it.
type FileCreator interface {
	CreateFile(ext string, content []byte, mode os.FileMode) (string, func(), error)
}

// Executor is a ready to launch command.
type Executor struct {
	Argv    []string
	Cleanup func()
}

// Materializer creates Executors.
type Materializer struct {
	Files FileCreator
	// GOOS defaults to runtime.GOOS.
	GOOS string
	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
}

// NewMaterializer returns a Materializer writing through files.
func NewMaterializer(files FileCreator) *Materializer {
	return &Materializer{Files: files}
}

// Materialize writes command to a script file suitable for opt and returns the
// argv that runs it.
func (m *Materializer) Materialize(command string, opt Option) (Executor, error) {
	if command == "" {
		return Executor{}, ErrEmptyCommand
	}

	if opt == "" {
		opt = Default
	}

	if err := opt.Validate(); err != nil {
		return Executor{}, fmt.Errorf("%w: %s", err, opt)
	}

	switch opt {
	case Bash:
		bash, err := m.lookPath("bash")
		if err != nil {
			return Executor{}, err
		}

		return m.withFile(".sh", []byte(command), bash)
	case Pwsh:
		pwsh, err := m.lookPath(m.exeName("pwsh"))
		if err != nil {
			return Executor{}, err
		}

		return m.withFile(".ps1", []byte(command), pwsh, "-NonInteractive", "-NoProfile", "-File")
	default:
		if m.goos() == goosWindows {
			content := "@echo off\r\n" + command + "\r\n"
			return m.withFile(".cmd", []byte(content), windowsShell(), "/d", "/s", "/c", "call")
		}

		return m.withFile(".sh", []byte(command), binSh)
	}
}

func (m *Materializer) withFile(ext string, content []byte, argv ...string) (Executor, error) {
	path, cleanup, err := m.Files.CreateFile(ext, content, scriptMode)
	if err != nil {
		return Executor{}, errors.Join(ErrMaterialize, err)
	}

	return Executor{
		Argv:    append(argv, path),
		Cleanup: cleanup,
	}, nil
}

func (m *Materializer) lookPath(name string) (string, error) {
	lp := m.LookPath
	if lp == nil {
		lp = exec.LookPath
	}

	p, err := lp(name)
	if err != nil && !errors.Is(err, exec.ErrDot) {
		return "", fmt.Errorf("%w: %s: %w", ErrShellNotFound, name, err)
	}

	return p, nil
}

func (m *Materializer) goos() string {
	if m.GOOS != "" {
		return m.GOOS
	}

	return runtime.GOOS
}

func (m *Materializer) exeName(name string) string {
	if m.goos() == goosWindows {
		return name + ".exe"
	}

	return name
}

func windowsShell() string {
	systemRoot := os.Getenv(winSystemRootEnv)
	if systemRoot == "" {
		systemRoot = `C:\Windows`
	}

	return filepath.Join(systemRoot, winSystem32, cmdExe)
}
