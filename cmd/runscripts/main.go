// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the runscripts command-line interface (CLI).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/matt-FFFFFF/runscripts"
	"github.com/matt-FFFFFF/runscripts/cmd/runscripts/cmdstate"
	"github.com/matt-FFFFFF/runscripts/cmd/runscripts/debug"
	"github.com/matt-FFFFFF/runscripts/cmd/runscripts/run"
	"github.com/matt-FFFFFF/runscripts/cmd/runscripts/schema"
	"github.com/matt-FFFFFF/runscripts/cmd/runscripts/show"
	"github.com/matt-FFFFFF/runscripts/internal/color"
	"github.com/matt-FFFFFF/runscripts/internal/ctxlog"
	"github.com/matt-FFFFFF/runscripts/internal/exithook"
	"github.com/matt-FFFFFF/runscripts/internal/signalbroker"
	"github.com/urfave/cli/v3"
)

const (
	noColorFlag = "no-color"
	logJSONFlag = "log-json"
)

// rootCmd is the root command for the CLI.
var rootCmd = &cli.Command{
	Commands: []*cli.Command{
		run.RunCmd,
		show.ShowCmd,
		debug.DebugCmd,
		schema.SchemaCmd,
	},
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  noColorFlag,
			Usage: "Disable colored output. NO_COLOR and FORCE_COLOR are honoured as well.",
		},
		&cli.BoolFlag{
			Name:  logJSONFlag,
			Usage: "Write logs to stderr as JSON. The level is set with " + ctxlog.LogLevelEnvVar + ".",
		},
	},
	Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if cmd.Bool(noColorFlag) {
			color.SetEnabled(false)
		}

		if cmd.Bool(logJSONFlag) {
			ctx = ctxlog.New(ctx, ctxlog.JSONLogger)
		}

		return ctx, nil
	},
	Writer:    os.Stdout,
	ErrWriter: os.Stderr,
	Name:      "runscripts",
	Description: `runscripts runs shell scripts in parallel, with a limit on how many run at
once, and merges their output into one stream that keeps each script's lines
in order. Scripts come from YAML or HCL configuration files or the command line.`,
	Usage:     "runscripts run -f scripts.yaml",
	Copyright: "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
	Authors: []any{
		"Matt White (matt-FFFFFF)",
	},
	EnableShellCompletion: true,
}

func main() {
	os.Exit(realMain())
}

func realMain() int {
	defer exithook.Run()

	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.DefaultLogger)
	defer cancel()

	sigCh, stop := signalbroker.New(ctx)
	defer stop()

	go signalbroker.Watch(ctx, sigCh, func(sig os.Signal) {
		if !cmdstate.Signal(sig) {
			cancel()
		}
	}, cancel)

	rootCmd.Version = fmt.Sprintf("%s (commit: %s)", runscripts.Version, runscripts.Commit)
	// Exit codes are returned from here so that the exit hooks run.
	rootCmd.ExitErrHandler = func(context.Context, *cli.Command, error) {}

	err := rootCmd.Run(ctx, os.Args)

	// Check if the context was cancelled (e.g., due to signals)
	if ctx.Err() != nil {
		ctxlog.Logger(ctx).Error("command terminated due to cancellation", "error", ctx.Err())
		return 1
	}

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		return 1
	}

	ctxlog.Logger(ctx).Info("command completed successfully")

	return 0
}
