// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package schema

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func runSchema(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	root := &cli.Command{
		Name:           "runscripts",
		Writer:         &out,
		ErrWriter:      &out,
		Commands:       []*cli.Command{NewCommand()},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}

	err := root.Run(context.Background(), append([]string{"runscripts", "schema"}, args...))

	return out.String(), err
}

func TestSchemaCmd_JSON(t *testing.T) {
	out, err := runSchema(t)
	require.NoError(t, err)

	var root map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &root))
	assert.Equal(t, title, root["title"])

	props, ok := root["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "parallel")
	assert.Contains(t, props, "scripts")
	assert.NotContains(t, props, "Source")
	assert.NotContains(t, props, "source")

	shell := props["shell"].(map[string]any)
	assert.Equal(t, []any{"system", "bash", "pwsh"}, shell["enum"])

	parallel := props["parallel"].(map[string]any)
	assert.Equal(t, []any{"boolean", "integer", "string"}, parallel["type"])

	items := props["scripts"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, []any{"command"}, items["required"])
}

func TestSchemaCmd_Markdown(t *testing.T) {
	out, err := runSchema(t, "--format", "markdown")
	require.NoError(t, err)

	assert.Contains(t, out, "# "+title)
	assert.Contains(t, out, "## scripts[]")
	assert.Contains(t, out, "| `working_directory` | string | No |")
}

func TestSchemaCmd_InvalidFormat(t *testing.T) {
	_, err := runSchema(t, "--format", "toml")
	require.Error(t, err)

	var coder cli.ExitCoder

	require.ErrorAs(t, err, &coder)
	assert.Equal(t, 1, coder.ExitCode())
}
