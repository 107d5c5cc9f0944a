// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package schema provides the schema command for documenting the configuration file.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/matt-FFFFFF/runscripts/internal/config"
	"github.com/matt-FFFFFF/runscripts/internal/schema"
	"github.com/urfave/cli/v3"
)

const (
	formatFlag = "format"

	title       = "runscripts Configuration Schema"
	description = "Schema for runscripts YAML configuration files. HCL files use the same attribute names, with one script block per script."
)

// SchemaCmd is the command that prints the configuration file schema.
var SchemaCmd = NewCommand()

// NewCommand builds a fresh schema command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the configuration file schema",
		Description: `Print the schema of the YAML configuration file, either as JSON Schema for
editor integration or as Markdown documentation.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        formatFlag,
				Usage:       "Output format: json or markdown",
				DefaultText: "json",
				Value:       "json",
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(_ context.Context, cmd *cli.Command) error {
	g := schema.NewGenerator(title, description)

	var err error

	switch strings.ToLower(cmd.String(formatFlag)) {
	case "json":
		err = g.WriteJSONSchema(cmd.Root().Writer, config.File{})
	case "markdown", "md":
		err = g.WriteMarkdown(cmd.Root().Writer, config.File{})
	default:
		return cli.Exit(fmt.Sprintf("Invalid format: %s. Valid formats: json, markdown", cmd.String(formatFlag)), 1)
	}

	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to generate schema: %v", err), 1)
	}

	return nil
}
