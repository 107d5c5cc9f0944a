// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"fmt"
	"io"
	"time"

	"github.com/matt-FFFFFF/runscripts/internal/color"
	"github.com/matt-FFFFFF/runscripts/internal/orchestrator"
	"github.com/matt-FFFFFF/runscripts/internal/script"
)

// WriteSummary writes one status line per script followed by the totals.
// names[i] labels ScriptResults[i]; missing names are shown as "[unnamed]".
func WriteSummary[M any](w io.Writer, names []string, s orchestrator.Summary[M]) error {
	for i, rec := range s.ScriptResults {
		name := ""
		if i < len(names) {
			name = names[i]
		}

		if err := writeRecord(w, name, rec); err != nil {
			return err
		}
	}

	status := color.Colorize("all scripts succeeded", color.Bold, color.FgGreen)
	if !s.AllSuccess {
		status = color.Colorize(fmt.Sprintf("%d of %d scripts failed", s.FailureCount, s.TotalCount), color.Bold, color.FgRed)
	}

	_, err := fmt.Fprintf(w, "\n%s (%d succeeded, %s)\n", status, s.SuccessCount, round(s.Duration))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	return nil
}

func writeRecord[M any](w io.Writer, name string, rec script.ExitRecord[M]) error {
	if name == "" {
		name = "[unnamed]"
	}

	statusStr := color.Colorize("✓", color.FgGreen)
	labelColor := color.FgGreen

	if !rec.Success {
		statusStr = color.Colorize("✗", color.FgRed)
		labelColor = color.FgRed
	}

	line := fmt.Sprintf("%s %s", statusStr, color.Colorize(name, color.Bold, labelColor))

	switch {
	case rec.LaunchErr != nil:
		line += fmt.Sprintf(" %s %v", color.Colorize("➜ Error:", color.FgRed), rec.LaunchErr)
	case rec.Signal != "":
		line += fmt.Sprintf(" (exit code: %d, signal: %s)", rec.ExitCode, rec.Signal)
	case rec.ExitCode != 0:
		line += fmt.Sprintf(" (exit code: %d)", rec.ExitCode)
	}

	if rec.LaunchErr == nil {
		line += " " + color.Colorize(round(rec.Duration).String(), color.Faint)
	}

	if _, err := fmt.Fprintln(w, line); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}

	return nil
}

func round(d time.Duration) time.Duration {
	if d > time.Second {
		return d.Round(10 * time.Millisecond)
	}

	return d.Round(time.Millisecond)
}
