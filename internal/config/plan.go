// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/runscripts/internal/parallel"
	"github.com/matt-FFFFFF/runscripts/internal/script"
	"github.com/matt-FFFFFF/runscripts/internal/shell"
)

// ErrConflict is returned when files disagree on a run-wide setting that
// was not overridden.
var ErrConflict = fmt.Errorf("%w: conflicting settings", ErrInvalidConfig)

// Overrides are run-wide settings given on the command line. Empty fields
// defer to the files.
type Overrides struct {
	Parallel Parallel
	Shell    string
}

// Plan is everything needed to start a run.
type Plan struct {
	Specs    []script.Spec[Meta]
	Setting  parallel.Setting
	Parallel parallel.Max
	Shell    shell.Option
}

// Names returns the script names in order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Specs))
	for i, s := range p.Specs {
		names[i] = s.Name
	}

	return names
}

// NewPlan combines files and ad-hoc commands, in that order, and resolves
// the run-wide settings. Overrides win over files; files must agree with
// each other.
func NewPlan(files []*File, commands []string, o Overrides) (*Plan, error) {
	var (
		result  error
		specs   []script.Spec[Meta]
		setting = o.Parallel
		sh      = o.Shell
	)

	for _, f := range files {
		specs = append(specs, f.Specs()...)

		if !o.Parallel.Set && f.Parallel.Set {
			if setting.Set && setting.Setting != f.Parallel.Setting {
				result = multierror.Append(result, fmt.Errorf("%w: parallel %q in %s, %q earlier", ErrConflict, f.Parallel.String(), f.Source, setting.String()))
			} else {
				setting = f.Parallel
			}
		}

		if o.Shell == "" && f.Shell != "" {
			if sh != "" && !strings.EqualFold(sh, f.Shell) {
				result = multierror.Append(result, fmt.Errorf("%w: shell %q in %s, %q earlier", ErrConflict, f.Shell, f.Source, sh))
			} else {
				sh = f.Shell
			}
		}
	}

	for i, c := range commands {
		if strings.TrimSpace(c) == "" {
			result = multierror.Append(result, fmt.Errorf("%w: command %d", ErrEmptyCommand, i))
			continue
		}

		specs = append(specs, script.Spec[Meta]{
			Name:     c,
			Command:  c,
			Metadata: Meta{Position: i},
		})
	}

	if len(specs) == 0 {
		result = multierror.Append(result, ErrNoScripts)
	}

	opt, err := shell.ParseOption(sh)
	if err != nil {
		result = multierror.Append(result, errors.Join(ErrInvalidConfig, err))
	}

	limit, err := setting.Setting.Resolve()
	if err != nil {
		result = multierror.Append(result, errors.Join(ErrInvalidConfig, err))
	}

	if result != nil {
		return nil, result
	}

	return &Plan{
		Specs:    specs,
		Setting:  setting.Setting,
		Parallel: limit,
		Shell:    opt,
	}, nil
}
