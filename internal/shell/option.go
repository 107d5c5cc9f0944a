// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package shell

import (
	"errors"
	"fmt"
	"strings"
)

// Option selects how a script's command text is executed.
type Option string

const (
	// System uses /bin/sh on unix and cmd.exe on Windows.
	System Option = "system"
	// Bash uses the first bash found in PATH.
	Bash Option = "bash"
	// Pwsh uses the first PowerShell 7 (pwsh) found in PATH.
	Pwsh Option = "pwsh"

	// Default is used when no option is given.
	Default = System

	// EnvOption is injected into every script with the option in use.
	EnvOption = "_RUNSCRIPTS_SHELL_OPTION"
)

// Options lists every accepted option.
var Options = []Option{System, Bash, Pwsh}

// ErrInvalidShell is returned for unknown shell options.
var ErrInvalidShell = errors.New("invalid shell option")

// ParseOption validates s. The empty string selects Default.
func ParseOption(s string) (Option, error) {
	if s == "" {
		return Default, nil
	}

	o := Option(strings.ToLower(strings.TrimSpace(s)))
	if err := o.Validate(); err != nil {
		return "", fmt.Errorf("%w: %s (accepted values: %s)", ErrInvalidShell, s, acceptedValues())
	}

	return o, nil
}

// Validate returns ErrInvalidShell for unknown options.
func (o Option) Validate() error {
	for _, known := range Options {
		if o == known {
			return nil
		}
	}

	return ErrInvalidShell
}

// String implements fmt.Stringer.
func (o Option) String() string {
	return string(o)
}

func acceptedValues() string {
	s := make([]string, len(Options))
	for i, o := range Options {
		s[i] = string(o)
	}

	return strings.Join(s, ", ")
}
