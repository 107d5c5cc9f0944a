// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the run subcommand.
package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/matt-FFFFFF/runscripts"
	"github.com/matt-FFFFFF/runscripts/cmd/runscripts/cmdstate"
	"github.com/matt-FFFFFF/runscripts/internal/config"
	"github.com/matt-FFFFFF/runscripts/internal/ctxlog"
	"github.com/matt-FFFFFF/runscripts/internal/metrics"
	"github.com/matt-FFFFFF/runscripts/internal/orchestrator"
	"github.com/matt-FFFFFF/runscripts/internal/process"
	"github.com/matt-FFFFFF/runscripts/internal/progress"
	"github.com/matt-FFFFFF/runscripts/internal/report"
	"github.com/matt-FFFFFF/runscripts/internal/tui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

const (
	fileFlag                    = "file"
	commandFlag                 = "command"
	parallelFlag                = "parallel"
	shellFlag                   = "shell"
	tuiFlag                     = "tui"
	tuiExitFlag                 = "tui-exit"
	stripANSIFlag               = "strip-ansi"
	outFlag                     = "out"
	metricsAddrFlag             = "metrics-addr"
	killSignalFlag              = "kill-signal"
	configTimeoutFlag           = "config-timeout"
	configTimeoutSecondsDefault = 30
	shutdownTimeout             = 5 * time.Second
	cliExitStr                  = ""
)

var (
	// ErrNoInput is returned when neither a file nor a command is given.
	ErrNoInput = errors.New("no scripts given: use --file or --command")
	// ErrInvalidSignal is returned when --kill-signal names no known signal.
	ErrInvalidSignal = errors.New("invalid kill signal")
)

// Fs is the file system the JSON summary is written to.
var Fs afero.Fs = afero.NewOsFs()

// RunCmd is the command that runs scripts from configuration files and the command line.
var RunCmd = NewCommand()

// NewCommand builds a fresh run command. Commands keep parsed flag values, so
// every invocation in tests needs its own.
func NewCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run scripts with bounded parallelism",
		Description: `Run scripts defined in YAML or HCL configuration files, or given directly with --command.
Output from every script is streamed as it arrives, one complete line at a time,
prefixed with the name of the script that produced it. A summary follows once
every script has finished. The exit code is 1 unless all scripts succeeded.

Config file URLs use Hashicorp's go-getter syntax, which allows for fetching files from various sources.
See https://github.com/hashicorp/go-getter.

The first SIGINT or SIGTERM is forwarded to the running scripts. A second one of
the same kind stops the run.
`,
		Flags: append(PlanFlags(),
			&cli.BoolFlag{
				Name:        tuiFlag,
				Aliases:     []string{"t", "interactive"},
				Usage:       "Run with interactive Terminal User Interface (TUI) showing real-time progress",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        tuiExitFlag,
				Usage:       "Leave the TUI as soon as every script has finished",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.BoolFlag{
				Name:        stripANSIFlag,
				Usage:       "Remove terminal escape sequences from script output",
				Value:       false,
				DefaultText: "false",
				OnlyOnce:    true,
			},
			&cli.StringFlag{
				Name:      outFlag,
				Usage:     "Write the summary as JSON to this file",
				TakesFile: true,
				OnlyOnce:  true,
			},
			&cli.StringFlag{
				Name:     metricsAddrFlag,
				Usage:    "Serve Prometheus metrics for the run on this address, for example :9090",
				OnlyOnce: true,
				Sources:  cli.EnvVars("RUNSCRIPTS_METRICS_ADDR"),
			},
			&cli.StringFlag{
				Name:     killSignalFlag,
				Usage:    "Signal sent to scripts stopped from the TUI, for example SIGINT or KILL",
				Value:    "SIGTERM",
				OnlyOnce: true,
				Sources:  cli.EnvVars("RUNSCRIPTS_KILL_SIGNAL"),
			},
		),
		Action: actionFunc,
	}
}

// PlanFlags are the flags that select the scripts and run-wide settings.
// They are shared by every subcommand that builds a plan.
func PlanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    fileFlag,
			Aliases: []string{"f"},
			Usage: "Specify the URL of a YAML or HCL configuration file. " +
				"Supports Hashicorp's go-getter syntax for fetching files from various sources. " +
				"Specify multiple times to run multiple files.",
		},
		&cli.StringSliceFlag{
			Name:    commandFlag,
			Aliases: []string{"c"},
			Usage:   "Run a command as a script. Specify multiple times to run multiple commands.",
		},
		&cli.StringFlag{
			Name:    parallelFlag,
			Aliases: []string{"p"},
			Usage: "Maximum number of scripts to run at once: a number, a percentage of the CPUs " +
				"such as 50%, auto, unbounded, true or false. Overrides the configuration files.",
			Sources: cli.EnvVars("RUNSCRIPTS_PARALLEL"),
		},
		&cli.StringFlag{
			Name:    shellFlag,
			Usage:   "Shell used to run every script: system, bash or pwsh. Overrides the configuration files.",
			Sources: cli.EnvVars("RUNSCRIPTS_SHELL"),
		},
		&cli.IntFlag{
			Name:    configTimeoutFlag,
			Aliases: []string{"timeout"},
			Usage: "Set the maximum time in seconds to wait for configuration files to be fetched. " +
				"Defaults to 30 seconds.",
			Value: configTimeoutSecondsDefault,
		},
	}
}

// result is what the run leaves behind for reporting.
type result struct {
	summary orchestrator.Summary[config.Meta]
	err     error
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	logger := ctxlog.Logger(ctx).With("command", cmd.Name)
	logger.Debug("Running run command")

	sig, err := killSignal(cmd)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	plan, err := BuildPlan(ctx, cmd)
	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reporters := []progress.Reporter{}

	if addr := cmd.String(metricsAddrFlag); addr != "" {
		registry := prometheus.NewRegistry()
		reporters = append(reporters, metrics.NewCollector(metrics.CollectorConfig{
			Version:  runscripts.Version,
			Shell:    plan.Shell.String(),
			Parallel: plan.Parallel.String(),
			Scripts:  len(plan.Specs),
		}, registry))

		server := metrics.NewServer(addr, registry)
		if err := server.Start(ctx); err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, 1)
		}

		defer func() {
			sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
			defer scancel()

			if err := server.Shutdown(sctx); err != nil {
				logger.Warn("metrics server shutdown", "error", err)
			}
		}()
	}

	var res result

	if cmd.Bool(tuiFlag) {
		res, err = runTUI(ctx, cmd, plan, sig, reporters)
	} else {
		res, err = runPlain(ctx, cmd, plan, reporters)
	}

	if err != nil {
		logger.Error(err.Error())
		return cli.Exit(cliExitStr, 1)
	}

	return finish(ctx, cmd, plan, res)
}

// killSignal parses --kill-signal.
func killSignal(cmd *cli.Command) (os.Signal, error) {
	name := cmd.String(killSignalFlag)

	sig, ok := process.ParseSignal(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSignal, name)
	}

	return sig, nil
}

// BuildPlan fetches the configuration files named by the flags and combines
// them with the ad-hoc commands.
func BuildPlan(ctx context.Context, cmd *cli.Command) (*config.Plan, error) {
	urls := cmd.StringSlice(fileFlag)
	commands := cmd.StringSlice(commandFlag)

	if len(urls) == 0 && len(commands) == 0 {
		return nil, ErrNoInput
	}

	configCtx, configCancel := context.WithTimeout(ctx, time.Duration(cmd.Int(configTimeoutFlag))*time.Second)
	defer configCancel()

	files := make([]*config.File, 0, len(urls))

	for i, u := range urls {
		if u == "" {
			return nil, fmt.Errorf("%w: the URL at index %d is empty", config.ErrGetConfigFile, i)
		}

		f, err := config.Fetch(configCtx, u)
		if err != nil {
			return nil, err
		}

		files = append(files, f)
	}

	p, err := config.ParseParallel(cmd.String(parallelFlag))
	if err != nil {
		return nil, err
	}

	return config.NewPlan(files, commands, config.Overrides{
		Parallel: p,
		Shell:    cmd.String(shellFlag),
	})
}

func runOptions(plan *config.Plan, reporter progress.Reporter) []orchestrator.Option {
	return []orchestrator.Option{
		orchestrator.WithParallel(plan.Parallel),
		orchestrator.WithShell(plan.Shell),
		orchestrator.WithReporter(reporter),
	}
}

func lineWriter(cmd *cli.Command, w io.Writer, plan *config.Plan) *report.LineWriter[config.Meta] {
	return report.NewLineWriter[config.Meta](w,
		report.WithStripANSI(cmd.Bool(stripANSIFlag)),
		report.WithPrefixWidth(report.PrefixWidth(plan.Names())),
	)
}

// runPlain streams prefixed output to the command's writer.
func runPlain(ctx context.Context, cmd *cli.Command, plan *config.Plan, reporters []progress.Reporter) (result, error) {
	reporter := progress.Combine(reporters...)
	defer reporter.Close()

	// Launch errors come back with the run and are repeated by Summary.
	run, err := orchestrator.RunScripts(ctx, plan.Specs, runOptions(plan, reporter)...)
	if run == nil {
		return result{}, err
	}

	restore := cmdstate.SetSignalHandler(func(sig os.Signal) {
		ctxlog.Warn(ctx, "forwarding signal to running scripts", "signal", sig.String())

		if err := run.Kill(orchestrator.WithSignal(sig)); err != nil {
			ctxlog.Error(ctx, "failed to forward signal", "error", err)
		}
	})
	defer restore()

	// Cancellation kills the scripts; the output and summary still arrive.
	drainCtx := context.WithoutCancel(ctx)

	if err := lineWriter(cmd, cmd.Root().Writer, plan).Consume(drainCtx, run.Output()); err != nil {
		ctxlog.Error(ctx, "failed to write output", "error", err)
	}

	summary, err := run.Summary(drainCtx)

	return result{summary: summary, err: err}, nil
}

// runTUI shows progress in the TUI and prints the collected output once it closes.
func runTUI(
	ctx context.Context, cmd *cli.Command, plan *config.Plan, sig os.Signal, reporters []progress.Reporter,
) (result, error) {
	logger := ctxlog.Logger(ctx)
	logger.Info("Starting interactive TUI mode...")

	logs := new(bytes.Buffer)
	output := new(bytes.Buffer)
	tuiCtx := ctxlog.NewForTUI(ctx, logs)

	runCtx, cancelRun := context.WithCancel(tuiCtx)
	defer cancelRun()

	var current atomic.Pointer[orchestrator.Run[config.Meta]]

	kill := func(index int) error {
		run := current.Load()

		switch {
		case run == nil && index == tui.KillAll:
			cancelRun()
			return nil
		case run == nil:
			return nil
		case index == tui.KillAll:
			return run.Kill(orchestrator.WithSignal(sig))
		default:
			return run.Kill(orchestrator.WithIndex(index), orchestrator.WithSignal(sig))
		}
	}

	opts := []tui.RunnerOption{}
	if cmd.Bool(tuiExitFlag) {
		opts = append(opts, tui.WithAutoQuit())
	}

	runner := tui.NewRunner(plan.Names(), kill, opts...)

	restore := cmdstate.SetSignalHandler(func(received os.Signal) {
		run := current.Load()
		if run == nil {
			cancelRun()
			return
		}

		_ = run.Kill(orchestrator.WithSignal(received))
	})
	defer restore()

	reporter := progress.Combine(append(reporters, runner.Reporter())...)

	var res result

	_, tuiErr := runner.Run(tuiCtx, func(ctx context.Context) tui.RunCompletedMsg {
		run, err := orchestrator.RunScripts(runCtx, plan.Specs, runOptions(plan, reporter)...)
		if run == nil {
			res.err = err
			return tui.RunCompletedMsg{Err: err}
		}

		current.Store(run)

		drainCtx := context.WithoutCancel(ctx)
		if err := lineWriter(cmd, output, plan).Consume(drainCtx, run.Output()); err != nil {
			ctxlog.Error(ctx, "failed to write output", "error", err)
		}

		res.summary, res.err = run.Summary(drainCtx)

		return tui.RunCompletedMsg{
			Total:     res.summary.TotalCount,
			Succeeded: res.summary.SuccessCount,
			Failed:    res.summary.FailureCount,
			Duration:  res.summary.Duration,
			Err:       res.err,
		}
	})

	reporter.Close()

	_, _ = output.WriteTo(cmd.Root().Writer)
	_, _ = logs.WriteTo(cmd.Root().ErrWriter)

	if tuiErr != nil {
		logger.Error(fmt.Sprintf("TUI execution error: %s", tuiErr.Error()), "error", tuiErr.Error())
	}

	if res.summary.TotalCount == 0 && res.err != nil {
		return result{}, res.err
	}

	return res, nil
}

// finish prints the summary, writes the JSON file and sets the exit code.
func finish(ctx context.Context, cmd *cli.Command, plan *config.Plan, res result) error {
	logger := ctxlog.Logger(ctx)
	names := plan.Names()

	if res.err != nil {
		logger.Error("some scripts could not be started", "error", res.err.Error())
	}

	if err := report.WriteSummary(cmd.Root().Writer, names, res.summary); err != nil {
		logger.Error(fmt.Sprintf("Failed to write summary: %s", err.Error()))
		return cli.Exit(cliExitStr, 1)
	}

	if out := cmd.String(outFlag); out != "" {
		if err := report.WriteJSON(Fs, out, names, res.summary); err != nil {
			logger.Error(err.Error())
			return cli.Exit(cliExitStr, 1)
		}

		logger.Info(fmt.Sprintf("Summary written to %s", out))
	}

	if !res.summary.AllSuccess {
		return cli.Exit(cliExitStr, 1)
	}

	return nil
}
