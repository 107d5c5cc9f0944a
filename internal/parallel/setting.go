// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package parallel

import "fmt"

// Setting is the configuration level form of the parallel option.
// Exactly one of its fields is meaningful; the zero value means sequential.
//
//	parallel: false      -> 1
//	parallel: true       -> auto
//	parallel: 4 / "50%"  -> Parse
type Setting struct {
	// Enabled is used when Value is empty.
	Enabled bool
	// Value is a number, keyword or percentage.
	Value string
}

// Sequential runs one script at a time.
func Sequential() Setting { return Setting{} }

// Auto runs as many scripts as there are CPUs.
func Auto() Setting { return Setting{Enabled: true} }

// Of wraps an explicit value such as "4", "unbounded" or "75%".
func Of(v string) Setting { return Setting{Enabled: true, Value: v} }

// Resolve turns s into a concrete limit.
func (s Setting) Resolve() (Max, error) {
	if s.Value != "" {
		m, err := Parse(s.Value)
		if err != nil {
			return 0, fmt.Errorf("parallel: %w", err)
		}

		return m, nil
	}

	if !s.Enabled {
		return 1, nil
	}

	return Parse(KeywordAuto)
}

// String renders s the way a user would write it.
func (s Setting) String() string {
	switch {
	case s.Value != "":
		return s.Value
	case s.Enabled:
		return KeywordAuto
	default:
		return "false"
	}
}
