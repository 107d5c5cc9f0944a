// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package report

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/matt-FFFFFF/runscripts/internal/orchestrator"
	"github.com/spf13/afero"
)

// ErrWriteJSON is returned when the JSON summary cannot be written.
var ErrWriteJSON = errors.New("failed to write JSON summary")

// JSONSummary is the document written by WriteJSON.
type JSONSummary[M any] struct {
	TotalCount   int             `json:"totalCount"`
	SuccessCount int             `json:"successCount"`
	FailureCount int             `json:"failureCount"`
	AllSuccess   bool            `json:"allSuccess"`
	StartTime    time.Time       `json:"startTime"`
	EndTime      time.Time       `json:"endTime"`
	DurationMs   int64           `json:"durationMs"`
	Scripts      []JSONResult[M] `json:"scripts"`
}

// JSONResult is one script in a JSONSummary.
type JSONResult[M any] struct {
	Index      int       `json:"index"`
	Name       string    `json:"name"`
	ExitCode   int       `json:"exitCode"`
	Signal     string    `json:"signal,omitempty"`
	Success    bool      `json:"success"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	DurationMs int64     `json:"durationMs"`
	Error      string    `json:"error,omitempty"`
	Metadata   M         `json:"metadata"`
}

// NewJSONSummary converts s. names[i] labels ScriptResults[i].
func NewJSONSummary[M any](names []string, s orchestrator.Summary[M]) JSONSummary[M] {
	out := JSONSummary[M]{
		TotalCount:   s.TotalCount,
		SuccessCount: s.SuccessCount,
		FailureCount: s.FailureCount,
		AllSuccess:   s.AllSuccess,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		DurationMs:   s.Duration.Milliseconds(),
		Scripts:      make([]JSONResult[M], len(s.ScriptResults)),
	}

	for i, rec := range s.ScriptResults {
		r := JSONResult[M]{
			Index:      i,
			ExitCode:   rec.ExitCode,
			Signal:     rec.Signal,
			Success:    rec.Success,
			StartTime:  rec.StartTime,
			EndTime:    rec.EndTime,
			DurationMs: rec.Duration.Milliseconds(),
			Metadata:   rec.Metadata,
		}

		if i < len(names) {
			r.Name = names[i]
		}

		if rec.LaunchErr != nil {
			r.Error = rec.LaunchErr.Error()
		}

		out.Scripts[i] = r
	}

	return out
}

// WriteJSON writes the summary as indented JSON to path on fs.
func WriteJSON[M any](fs afero.Fs, path string, names []string, s orchestrator.Summary[M]) error {
	b, err := json.MarshalIndent(NewJSONSummary(names, s), "", "  ")
	if err != nil {
		return errors.Join(ErrWriteJSON, err)
	}

	if err := afero.WriteFile(fs, path, append(b, '\n'), 0o644); err != nil {
		return errors.Join(ErrWriteJSON, err)
	}

	return nil
}
