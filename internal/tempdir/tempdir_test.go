// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package tempdir

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matt-FFFFFF/runscripts/internal/exithook"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, version string) (*Manager, afero.Fs, *exithook.Registry) {
	t.Helper()

	fs := afero.NewMemMapFs()
	hooks := &exithook.Registry{}

	return New(WithFs(fs), WithRoot("/tmp/runscripts"), WithVersion(version), WithExitHooks(hooks)), fs, hooks
}

func TestManager_CreateFile(t *testing.T) {
	m, fs, _ := newTestManager(t, "1.0.0")

	path, cleanup, err := m.CreateFile(".sh", []byte("echo hi"), 0o755)
	require.NoError(t, err)

	assert.Equal(t, m.Dir(), filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".sh"))
	assert.True(t, strings.HasPrefix(m.Dir(), filepath.Join("/tmp/runscripts", "1.0.0")))

	content, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "echo hi", string(content))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "-rwxr-xr-x", info.Mode().Perm().String())

	dirInfo, err := fs.Stat(m.Dir())
	require.NoError(t, err)
	assert.Equal(t, "-rwx------", dirInfo.Mode().Perm().String())

	cleanup()

	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestManager_UniqueNames(t *testing.T) {
	m, _, _ := newTestManager(t, "1.0.0")

	seen := make(map[string]struct{})

	for range 50 {
		path, _, err := m.CreateFile(".cmd", nil, 0o600)
		require.NoError(t, err)

		_, dup := seen[path]
		require.False(t, dup)

		seen[path] = struct{}{}
	}
}

func TestManager_RemovesOtherVersions(t *testing.T) {
	m, fs, _ := newTestManager(t, "2.0.0")

	require.NoError(t, fs.MkdirAll("/tmp/runscripts/1.0.0/abc", 0o700))
	require.NoError(t, fs.MkdirAll("/tmp/runscripts/2.0.0/other-process", 0o700))

	_, _, err := m.CreateFile(".sh", []byte("true"), 0o755)
	require.NoError(t, err)

	old, _ := afero.DirExists(fs, "/tmp/runscripts/1.0.0")
	sibling, _ := afero.DirExists(fs, "/tmp/runscripts/2.0.0/other-process")

	assert.False(t, old, "other versions are removed")
	assert.True(t, sibling, "same version directories of other processes are kept")
}

func TestManager_CleanupOnExitHook(t *testing.T) {
	m, fs, hooks := newTestManager(t, "1.0.0")

	_, _, err := m.CreateFile(".sh", []byte("true"), 0o755)
	require.NoError(t, err)

	hooks.Run()

	exists, _ := afero.DirExists(fs, m.Dir())
	assert.False(t, exists)
}

func TestManager_CreateFileAfterExitHooks(t *testing.T) {
	m, fs, hooks := newTestManager(t, "1.0.0")

	hooks.Run()

	errCh := make(chan error, 1)

	go func() {
		_, _, err := m.CreateFile(".sh", []byte("true"), 0o755)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrExited)
		require.ErrorIs(t, err, ErrInit)
	case <-time.After(2 * time.Second):
		t.Fatal("CreateFile did not return after the exit hooks ran")
	}

	exists, _ := afero.DirExists(fs, m.Dir())
	assert.False(t, exists)
}

func TestManager_CleanupIsRepeatable(t *testing.T) {
	m, fs, _ := newTestManager(t, "1.0.0")

	require.NoError(t, m.Cleanup(), "cleanup before first use is a no-op")

	_, _, err := m.CreateFile(".sh", []byte("true"), 0o755)
	require.NoError(t, err)
	require.NoError(t, m.Cleanup())
	require.NoError(t, m.Cleanup())

	// Usable again after cleanup.
	path, _, err := m.CreateFile(".sh", []byte("true"), 0o755)
	require.NoError(t, err)

	exists, _ := afero.Exists(fs, path)
	assert.True(t, exists)
}

func TestManager_ReadOnlyFs(t *testing.T) {
	m := New(
		WithFs(afero.NewReadOnlyFs(afero.NewMemMapFs())),
		WithRoot("/tmp/runscripts"),
		WithExitHooks(&exithook.Registry{}),
	)

	_, _, err := m.CreateFile(".sh", []byte("true"), 0o755)
	assert.ErrorIs(t, err, ErrInit)
}
