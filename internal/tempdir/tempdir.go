// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tempdir manages the private directory that holds materialized
// script files for the lifetime of the process.
//
// The layout is <root>/<version>/<id>. The first time a file is created the
// directory is made with mode 0700, directories left behind by other versions
// are removed, and removal of our own directory is registered as an exit hook.
package tempdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/runscripts/internal/exithook"
	"github.com/spf13/afero"
)

const (
	// DirName is the directory below the OS temp dir owned by runscripts.
	DirName = "runscripts"
	dirMode = 0o700
	idLen   = 8
)

var (
	// ErrInit is returned when the temp directory cannot be created.
	ErrInit = errors.New("could not initialise temp directory")
	// ErrCreateFile is returned when a file cannot be written.
	ErrCreateFile = errors.New("could not create temp file")
	// ErrExited is returned when files are requested after the exit hooks ran.
	ErrExited = fmt.Errorf("%w: exit hooks have already run", ErrInit)
)

// Version selects the per-version subdirectory. It is set from the build version.
var Version = "dev"

// Manager owns one private temp directory. It is safe for concurrent use.
type Manager struct {
	fs      afero.Fs
	root    string
	version string
	id      string
	hooks   *exithook.Registry

	mu          sync.Mutex
	initialized bool
	unregister  func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithFs replaces the OS file system, typically with afero.NewMemMapFs in tests.
func WithFs(fs afero.Fs) Option {
	return func(m *Manager) { m.fs = fs }
}

// WithRoot replaces <os temp>/runscripts.
func WithRoot(root string) Option {
	return func(m *Manager) { m.root = root }
}

// WithVersion replaces Version.
func WithVersion(v string) Option {
	return func(m *Manager) { m.version = v }
}

// WithExitHooks registers cleanup with r instead of exithook.Default.
func WithExitHooks(r *exithook.Registry) Option {
	return func(m *Manager) { m.hooks = r }
}

// New returns a Manager. Nothing touches the file system until the first file
// is created.
func New(opts ...Option) *Manager {
	m := &Manager{
		fs:      afero.NewOsFs(),
		root:    filepath.Join(os.TempDir(), DirName),
		version: Version,
		id:      shortID(),
		hooks:   exithook.Default,
	}

	for _, o := range opts {
		o(m)
	}

	return m
}

var (
	defaultOnce    sync.Once
	defaultManager *Manager
)

// Default returns the process wide Manager on the OS file system.
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = New()
	})

	return defaultManager
}

// Dir returns the directory files are created in.
func (m *Manager) Dir() string {
	return filepath.Join(m.root, m.version, m.id)
}

// Fs returns the file system the manager writes to.
func (m *Manager) Fs() afero.Fs {
	return m.fs
}

func (m *Manager) init() error {
	m.mu.Lock()

	if m.initialized {
		m.mu.Unlock()
		return nil
	}

	if err := m.fs.MkdirAll(m.Dir(), dirMode); err != nil {
		m.mu.Unlock()
		return errors.Join(ErrInit, err)
	}

	if err := m.fs.Chmod(m.Dir(), dirMode); err != nil {
		m.mu.Unlock()
		return errors.Join(ErrInit, err)
	}

	m.removeStaleVersions()
	m.initialized = true
	m.mu.Unlock()

	// Register runs the hook straight away once the registry has run, and the
	// hook takes m.mu, so it must be called unlocked.
	unregister := m.hooks.Register(func() { _ = m.Cleanup() })

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		unregister()
		return ErrExited
	}

	m.unregister = unregister

	return nil
}

// removeStaleVersions deletes sibling directories left by other versions.
// Failures are ignored, another process may be using them.
func (m *Manager) removeStaleVersions() {
	entries, err := afero.ReadDir(m.fs, m.root)
	if err != nil {
		return
	}

	for _, e := range entries {
		if e.Name() == m.version {
			continue
		}

		_ = m.fs.RemoveAll(filepath.Join(m.root, e.Name()))
	}
}

// CreateFile writes content to a new file whose name is a random id followed
// by ext. It returns the absolute path and a function that removes the file.
func (m *Manager) CreateFile(ext string, content []byte, mode os.FileMode) (string, func(), error) {
	if err := m.init(); err != nil {
		return "", nil, err
	}

	path := filepath.Join(m.Dir(), shortID()+ext)

	if err := afero.WriteFile(m.fs, path, content, mode); err != nil {
		return "", nil, fmt.Errorf("%w %s: %w", ErrCreateFile, path, err)
	}

	// WriteFile honours the umask, so set the mode explicitly.
	if err := m.fs.Chmod(path, mode); err != nil {
		_ = m.fs.Remove(path)
		return "", nil, fmt.Errorf("%w %s: %w", ErrCreateFile, path, err)
	}

	return path, func() { _ = m.fs.Remove(path) }, nil
}

// Cleanup removes the directory and everything in it. The manager can be used
// again afterwards.
func (m *Manager) Cleanup() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil
	}

	m.initialized = false

	if m.unregister != nil {
		m.unregister()
		m.unregister = nil
	}

	if err := m.fs.RemoveAll(m.Dir()); err != nil {
		return fmt.Errorf("removing %s: %w", m.Dir(), err)
	}

	return nil
}

func shortID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])[:idLen]
}
