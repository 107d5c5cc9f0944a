// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/matt-FFFFFF/runscripts/internal/parallel"
	"github.com/matt-FFFFFF/runscripts/internal/shell"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlConfig = `name: build
description: build everything
parallel: 50%
shell: bash
env:
  CI: "true"
scripts:
  - name: lint
    command: golangci-lint run
  - name: test
    command: go test ./...
    working_directory: src
    env:
      CI: "false"
      GOFLAGS: -race
`

const hclConfig = `
name     = "build"
parallel = cpu_count > 4 ? "50%" : true
shell    = lower("BASH")
env = {
  CI   = "true"
  USER = env.TEST_USER
}

script "lint" {
  command = "golangci-lint run"
}

script "test" {
  command           = format("go test %s", "./...")
  working_directory = "src"
  env = {
    CI = "false"
  }
}
`

func stubCPUs(t *testing.T, n int) {
	t.Helper()

	stubs := gostub.StubFunc(&parallel.CPUCount, n)
	t.Cleanup(stubs.Reset)
	t.Setenv(parallel.EnvResolved, "")
}

func TestParseYAML(t *testing.T) {
	stubCPUs(t, 8)

	f, err := Parse([]byte(yamlConfig), "build.yaml")
	require.NoError(t, err)

	assert.Equal(t, "build", f.Name)
	assert.Equal(t, "build.yaml", f.Source)
	assert.Equal(t, ParallelOf(parallel.Of("50%")), f.Parallel)
	assert.Equal(t, "bash", f.Shell)
	require.Len(t, f.Scripts, 2)
	assert.Equal(t, "src", f.Scripts[1].WorkingDirectory)

	specs := f.Specs()
	require.Len(t, specs, 2)
	assert.Equal(t, map[string]string{"CI": "true"}, specs[0].Env)
	assert.Equal(t, map[string]string{"CI": "false", "GOFLAGS": "-race"}, specs[1].Env)
	assert.Equal(t, Meta{Source: "build.yaml", Position: 1}, specs[1].Metadata)
}

func TestParseYAML_ParallelForms(t *testing.T) {
	tests := []struct {
		in   string
		want Parallel
	}{
		{in: "", want: Parallel{}},
		{in: "parallel: true\n", want: ParallelOf(parallel.Auto())},
		{in: "parallel: false\n", want: ParallelOf(parallel.Sequential())},
		{in: "parallel: 4\n", want: ParallelOf(parallel.Of("4"))},
		{in: "parallel: 2.5\n", want: ParallelOf(parallel.Of("2.5"))},
		{in: "parallel: unbounded\n", want: ParallelOf(parallel.Of("unbounded"))},
		{in: "parallel: \"true\"\n", want: ParallelOf(parallel.Auto())},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, err := ParseYAML([]byte(tt.in + "scripts:\n  - command: echo\n"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Parallel)
		})
	}
}

func TestParseYAML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{name: "malformed", in: "scripts: [", wantErr: ErrInvalidYAML},
		{name: "unknown key", in: "scripts: []\nbogus: 1\n", wantErr: ErrInvalidYAML},
		{name: "bad parallel type", in: "parallel: [1]\nscripts: []\n", wantErr: ErrInvalidConfig},
		{name: "no scripts", in: "name: x\n", wantErr: ErrNoScripts},
		{name: "empty command", in: "scripts:\n  - name: a\n    command: \"\"\n", wantErr: ErrEmptyCommand},
		{name: "bad shell", in: "shell: zsh\nscripts:\n  - command: x\n", wantErr: shell.ErrInvalidShell},
		{name: "bad parallel", in: "parallel: 0\nscripts:\n  - command: x\n", wantErr: parallel.ErrInvalidMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in), "c.yml")
			require.ErrorIs(t, err, tt.wantErr)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	f := &File{
		Shell:    "zsh",
		Parallel: ParallelOf(parallel.Of("150%")),
		Scripts:  []Script{{Name: "a"}, {Name: "b", Command: " "}},
	}

	err := f.Validate()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrEmptyCommand)
	require.ErrorIs(t, err, shell.ErrInvalidShell)
	require.ErrorIs(t, err, parallel.ErrPercentRange)
	assert.Contains(t, err.Error(), `scripts[1] "b"`)
}

func TestParseHCL(t *testing.T) {
	stubCPUs(t, 8)

	stubs := gostub.StubFunc(&environ, []string{"TEST_USER=alice", "NOT-AN-IDENT=x", "BROKEN"})
	defer stubs.Reset()

	f, err := Parse([]byte(hclConfig), "build.hcl")
	require.NoError(t, err)

	assert.Equal(t, "build", f.Name)
	assert.Equal(t, ParallelOf(parallel.Of("50%")), f.Parallel)
	assert.Equal(t, "bash", f.Shell)
	assert.Equal(t, map[string]string{"CI": "true", "USER": "alice"}, f.Env)
	require.Len(t, f.Scripts, 2)
	assert.Equal(t, "lint", f.Scripts[0].Name)
	assert.Equal(t, "go test ./...", f.Scripts[1].Command)
	assert.Equal(t, map[string]string{"CI": "false"}, f.Scripts[1].Env)
}

func TestParseHCL_ParallelExpression(t *testing.T) {
	stubs := gostub.StubFunc(&environ, []string{"TEST_USER=bob"})
	defer stubs.Reset()

	stubCPUs(t, 2)

	f, err := ParseHCL([]byte(hclConfig), "x.hcl")
	require.NoError(t, err)
	assert.Equal(t, ParallelOf(parallel.Auto()), f.Parallel)

	f, err = ParseHCL([]byte("parallel = cpu_count / 2\nscript \"a\" {\n  command = \"x\"\n}\n"), "x.hcl")
	require.NoError(t, err)
	assert.Equal(t, ParallelOf(parallel.Of("1")), f.Parallel)

	f, err = ParseHCL([]byte("script \"a\" {\n  command = \"x\"\n}\n"), "x.hcl")
	require.NoError(t, err)
	assert.False(t, f.Parallel.Set)
}

func TestParseHCL_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "syntax", in: "script \"a\" {"},
		{name: "missing command", in: "script \"a\" {}\n"},
		{name: "unknown attribute", in: "bogus = 1\n"},
		{name: "unknown variable", in: "parallel = nope\n"},
		{name: "bad parallel type", in: "parallel = [1]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseHCL([]byte(tt.in), "x.hcl")
			require.ErrorIs(t, err, ErrInvalidHCL)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestEval(t *testing.T) {
	stubCPUs(t, 6)

	stubs := gostub.StubFunc(&environ, []string{"HOME=/home/me"})
	defer stubs.Reset()

	ctx := EvalContext()

	tests := []struct {
		expr string
		want string
	}{
		{expr: "cpu_count", want: "6"},
		{expr: "env.HOME", want: `"/home/me"`},
		{expr: `upper("a")`, want: `"A"`},
		{expr: `join(",", ["a", "b"])`, want: `"a,b"`},
		{expr: "max(1, cpu_count / 4)", want: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Eval(tt.expr, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Eval("env.MISSING", ctx)
	require.Error(t, err)

	_, err = Eval("1 +", ctx)
	require.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatHCL, DetectFormat("a/b.HCL"))
	assert.Equal(t, FormatYAML, DetectFormat("a/b.yaml"))
	assert.Equal(t, FormatYAML, DetectFormat("a/b.yml"))
	assert.Equal(t, FormatYAML, DetectFormat("noext"))
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/cfg/run.yaml", []byte(yamlConfig), 0o644))

	f, err := Load(fs, "/cfg/run.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/cfg", f.BaseDir)
	assert.Equal(t, filepath.Join("/cfg", "src"), f.Specs()[1].WorkingDirectory)

	_, err = Load(fs, "/cfg/missing.yaml")
	require.ErrorIs(t, err, ErrReadConfig)
}

func TestSpecs_DefaultNames(t *testing.T) {
	f := &File{Source: "dir/ci.yaml", Scripts: []Script{{Command: "a"}, {Name: "named", Command: "b", WorkingDirectory: "/abs"}}}

	specs := f.Specs()
	assert.Equal(t, "ci#0", specs[0].Name)
	assert.Equal(t, "named", specs[1].Name)
	assert.Equal(t, "/abs", specs[1].WorkingDirectory)
	assert.Nil(t, specs[0].Env)
}

func TestMarshalYAML_RoundTrip(t *testing.T) {
	f, err := ParseYAML([]byte(yamlConfig))
	require.NoError(t, err)

	b, err := MarshalYAML(f)
	require.NoError(t, err)

	again, err := ParseYAML(b)
	require.NoError(t, err)
	assert.Equal(t, f, again)
}

func TestFetch_LocalFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlConfig), 0o600))

	f, err := Fetch(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, f.Source)
	assert.Equal(t, dir, f.BaseDir)
	assert.Len(t, f.Scripts, 2)
}

func TestFetch_Errors(t *testing.T) {
	_, err := Fetch(context.Background(), "")
	require.ErrorIs(t, err, ErrGetConfigFile)

	_, err = Fetch(context.Background(), "git::http://notexist//file.yaml")
	require.ErrorIs(t, err, ErrGetConfigFile)

	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scripts: ["), 0o600))

	_, err = Fetch(context.Background(), path)
	require.ErrorIs(t, err, ErrInvalidYAML)
}

func TestSplitFileNameFromGetterURL(t *testing.T) {
	tests := []struct {
		url      string
		wantURL  string
		wantFile string
	}{
		{
			url:      "git::https://github.com/org/repo//dir/file.yaml",
			wantURL:  "git::https://github.com/org/repo//dir",
			wantFile: "file.yaml",
		},
		{
			url:      "git::https://github.com/org/repo//file.hcl?ref=v1.0.0",
			wantURL:  "git::https://github.com/org/repo?ref=v1.0.0",
			wantFile: "file.hcl",
		},
		{
			url:      "git::https://github.com/org/repo//a/b/c.yml?ref=main",
			wantURL:  "git::https://github.com/org/repo//a/b?ref=main",
			wantFile: "c.yml",
		},
		{url: "https://example.com/file.yaml"},
		{url: "git::https://github.com/org/repo//"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			gotURL, gotFile := splitFileNameFromGetterURL(tt.url)
			assert.Equal(t, tt.wantURL, gotURL)
			assert.Equal(t, tt.wantFile, gotFile)
		})
	}
}

func TestNewPlan(t *testing.T) {
	stubCPUs(t, 8)

	a := &File{Source: "a.yaml", Parallel: ParallelOf(parallel.Of("4")), Shell: "bash", Scripts: []Script{{Name: "a", Command: "x"}}}
	b := &File{Source: "b.yaml", Parallel: ParallelOf(parallel.Of("4")), Scripts: []Script{{Name: "b", Command: "y"}}}

	p, err := NewPlan([]*File{a, b}, []string{"echo hi"}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "echo hi"}, p.Names())
	assert.Equal(t, parallel.Max(4), p.Parallel)
	assert.Equal(t, shell.Bash, p.Shell)

	p, err = NewPlan([]*File{a}, nil, Overrides{Parallel: ParallelOf(parallel.Of("unbounded")), Shell: "pwsh"})
	require.NoError(t, err)
	assert.Equal(t, parallel.Unbounded, p.Parallel)
	assert.Equal(t, shell.Pwsh, p.Shell)

	p, err = NewPlan(nil, []string{"x"}, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, parallel.Max(1), p.Parallel)
	assert.Equal(t, shell.System, p.Shell)
}

func TestNewPlan_Errors(t *testing.T) {
	a := &File{Source: "a.yaml", Parallel: ParallelOf(parallel.Of("4")), Shell: "bash", Scripts: []Script{{Command: "x"}}}
	b := &File{Source: "b.yaml", Parallel: ParallelOf(parallel.Of("2")), Shell: "pwsh", Scripts: []Script{{Command: "y"}}}

	_, err := NewPlan([]*File{a, b}, nil, Overrides{})
	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), `parallel "2" in b.yaml`)
	assert.Contains(t, err.Error(), `shell "pwsh" in b.yaml`)

	_, err = NewPlan(nil, nil, Overrides{})
	require.ErrorIs(t, err, ErrNoScripts)

	_, err = NewPlan(nil, []string{""}, Overrides{})
	require.ErrorIs(t, err, ErrEmptyCommand)

	_, err = NewPlan(nil, []string{"x"}, Overrides{Shell: "fish"})
	require.ErrorIs(t, err, shell.ErrInvalidShell)
}

func TestParseParallel(t *testing.T) {
	stubCPUs(t, 8)

	tests := []struct {
		value   string
		want    Parallel
		wantErr error
	}{
		{value: "", want: Parallel{}},
		{value: "true", want: ParallelOf(parallel.Auto())},
		{value: "false", want: ParallelOf(parallel.Sequential())},
		{value: "3", want: ParallelOf(parallel.Of("3"))},
		{value: "25%", want: ParallelOf(parallel.Of("25%"))},
		{value: "0", wantErr: parallel.ErrBelowOne},
		{value: "lots", wantErr: parallel.ErrInvalidMax},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseParallel(tt.value)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, ErrInvalidConfig)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
