// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package orchestrator

import (
	"fmt"
	"time"

	"github.com/matt-FFFFFF/runscripts/internal/script"
)

// Envelope is one output chunk tagged with the script it came from.
type Envelope[M any] struct {
	script.Chunk

	Index    int
	Name     string
	Metadata M
}

// Summary is the final outcome of a run.
type Summary[M any] struct {
	TotalCount   int
	SuccessCount int
	FailureCount int
	AllSuccess   bool
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	// ScriptResults is in the same order as the specs passed to RunScripts.
	ScriptResults []script.ExitRecord[M]
}

func newSummary[M any](start, end time.Time, records []script.ExitRecord[M]) Summary[M] {
	s := Summary[M]{
		TotalCount:    len(records),
		StartTime:     start,
		EndTime:       end,
		Duration:      end.Sub(start),
		ScriptResults: records,
	}

	for _, r := range records {
		if r.Success {
			s.SuccessCount++
		} else {
			s.FailureCount++
		}
	}

	s.AllSuccess = s.FailureCount == 0

	return s
}

// LaunchError records a script that could not be started.
type LaunchError struct {
	Index int
	Name  string
	Err   error
}

// Error implements error.
func (e *LaunchError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("script %d (%s): %v", e.Index, e.Name, e.Err)
	}

	return fmt.Sprintf("script %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying launch failure.
func (e *LaunchError) Unwrap() error {
	return e.Err
}
