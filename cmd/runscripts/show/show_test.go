// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package show

import (
	"bytes"
	"context"
	"testing"

	"github.com/matt-FFFFFF/runscripts/internal/config"
	"github.com/matt-FFFFFF/runscripts/internal/parallel"
	"github.com/matt-FFFFFF/runscripts/internal/script"
	"github.com/matt-FFFFFF/runscripts/internal/shell"
	"github.com/prashantv/gostub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func TestWrite(t *testing.T) {
	plan := &config.Plan{
		Specs: []script.Spec[config.Meta]{
			{Name: "lint", Command: "make lint"},
			{Name: "test", Command: "make test", WorkingDirectory: "/src", Env: map[string]string{"CI": "1"}},
		},
		Setting:  parallel.Of("50%"),
		Parallel: 4,
		Shell:    shell.Bash,
	}

	var out bytes.Buffer
	require.NoError(t, Write(&out, plan))

	got := out.String()
	assert.Contains(t, got, "# parallel resolves to 4\n")
	assert.Contains(t, got, "parallel:")
	assert.Contains(t, got, "50%")
	assert.Contains(t, got, "shell: bash")
	assert.Contains(t, got, "command: make lint")
	assert.Contains(t, got, "working_directory: /src")

	f, err := config.ParseYAML(out.Bytes())
	require.NoError(t, err)
	assert.Len(t, f.Scripts, 2)
	assert.Equal(t, "1", f.Scripts[1].Env["CI"])
}

func TestShowCmd(t *testing.T) {
	t.Setenv(parallel.EnvResolved, "")

	stubs := gostub.StubFunc(&parallel.CPUCount, 2)
	defer stubs.Reset()

	var out bytes.Buffer

	root := &cli.Command{
		Name:           "runscripts",
		Writer:         &out,
		Commands:       []*cli.Command{NewCommand()},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	err := root.Run(context.Background(), []string{"runscripts", "show", "-c", "echo hi", "-p", "auto"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "# parallel resolves to 2")
	assert.Contains(t, out.String(), "command: echo hi")
}

func TestShowCmd_Error(t *testing.T) {
	var out bytes.Buffer

	root := &cli.Command{
		Name:           "runscripts",
		Writer:         &out,
		ErrWriter:      &out,
		Commands:       []*cli.Command{NewCommand()},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	err := root.Run(context.Background(), []string{"runscripts", "show"})
	require.Error(t, err)

	var coder cli.ExitCoder

	require.ErrorAs(t, err, &coder)
	assert.Equal(t, 1, coder.ExitCode())
}
