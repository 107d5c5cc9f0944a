// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package debug implements an interactive prompt for trying out HCL
// expressions before putting them in a configuration file.
package debug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/matt-FFFFFF/runscripts/internal/config"
	"github.com/peterh/liner"
	"github.com/urfave/cli/v3"
)

const prompt = "debug> "

// Prompter reads lines from the user. *liner.State implements it.
type Prompter interface {
	Prompt(p string) (string, error)
	AppendHistory(item string)
	Close() error
}

// NewPrompter opens the terminal prompt. It is swapped out in tests.
var NewPrompter = func() Prompter {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	return line
}

// DebugCmd is the command that starts the expression prompt.
var DebugCmd = NewCommand()

// NewCommand builds a fresh debug command.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Evaluate HCL expressions interactively",
		Description: `Start a prompt that evaluates HCL expressions with the same variables and
functions as HCL configuration files: env.NAME, cpu_count, upper, lower, join,
split, format, concat, length, max and min. Results are printed as JSON.
Type quit or exit, or press Ctrl+C, to leave.`,
		Action: func(_ context.Context, cmd *cli.Command) error {
			line := NewPrompter()
			defer line.Close() //nolint:errcheck

			return Loop(cmd.Root().Writer, line, config.EvalContext())
		},
	}
}

// Loop prompts until the user quits, printing the value of each expression.
func Loop(w io.Writer, line Prompter, ctx *hcl.EvalContext) error {
	fmt.Fprintln(w, "Entering debugging mode, press `quit` or `exit` or Ctrl+C to quit.") //nolint:errcheck

	for {
		input, err := line.Prompt(prompt)

		switch {
		case errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(w, "Aborted") //nolint:errcheck
			return nil
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("error reading line: %w", err)
		}

		input = strings.TrimSpace(input)

		switch input {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		line.AppendHistory(input)

		out, err := config.Eval(input, ctx)
		if err != nil {
			fmt.Fprintln(w, err.Error()) //nolint:errcheck
			continue
		}

		fmt.Fprintln(w, out) //nolint:errcheck
	}
}
