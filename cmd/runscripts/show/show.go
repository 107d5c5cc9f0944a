// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package show implements the show subcommand.
package show

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matt-FFFFFF/runscripts/cmd/runscripts/run"
	"github.com/matt-FFFFFF/runscripts/internal/config"
	"github.com/urfave/cli/v3"
)

// ErrWriteConfig is returned when the resolved configuration cannot be written.
var ErrWriteConfig = errors.New("failed to write configuration")

// ShowCmd is the command that shows what run would do.
var ShowCmd = NewCommand()

// NewCommand builds a fresh show command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Show the resolved configuration without running anything",
		Description: `Show the scripts, parallelism and shell that run would use for the same flags.
The output is a single YAML configuration combining every file and command,
preceded by a comment with the resolved parallel limit.`,
		Flags: run.PlanFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			plan, err := run.BuildPlan(ctx, cmd)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}

			if err := Write(cmd.Root().Writer, plan); err != nil {
				return cli.Exit(err.Error(), 1)
			}

			return nil
		},
	}
}

// Write renders plan as a YAML configuration.
func Write(w io.Writer, plan *config.Plan) error {
	f := &config.File{
		Parallel: config.ParallelOf(plan.Setting),
		Shell:    plan.Shell.String(),
		Scripts:  make([]config.Script, len(plan.Specs)),
	}

	for i, s := range plan.Specs {
		f.Scripts[i] = config.Script{
			Name:             s.Name,
			Command:          s.Command,
			WorkingDirectory: s.WorkingDirectory,
			Env:              s.Env,
		}
	}

	b, err := config.MarshalYAML(f)
	if err != nil {
		return errors.Join(ErrWriteConfig, err)
	}

	if _, err := fmt.Fprintf(w, "# parallel resolves to %s\n%s", plan.Parallel, b); err != nil {
		return errors.Join(ErrWriteConfig, err)
	}

	return nil
}
