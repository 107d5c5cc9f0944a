// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/matt-FFFFFF/runscripts/internal/parallel"
)

// Parallel is the parallel key. It accepts a boolean, a number, or a string
// such as "auto", "unbounded" or "50%".
type Parallel struct {
	// Set is false when the key was absent.
	Set bool
	parallel.Setting
}

// ParallelOf wraps s as an explicitly set value.
func ParallelOf(s parallel.Setting) Parallel {
	return Parallel{Set: true, Setting: s}
}

// UnmarshalYAML implements yaml.InterfaceUnmarshaler.
func (p *Parallel) UnmarshalYAML(unmarshal func(any) error) error {
	var v any
	if err := unmarshal(&v); err != nil {
		return err
	}

	s, err := settingFromValue(v)
	if err != nil {
		return err
	}

	*p = s

	return nil
}

// MarshalYAML implements yaml.InterfaceMarshaler.
func (p Parallel) MarshalYAML() (any, error) {
	switch {
	case !p.Set:
		return nil, nil
	case p.Value != "":
		return p.Value, nil
	default:
		return p.Enabled, nil
	}
}

// ParseParallel parses a command line value with the same rules as the
// parallel key. An empty value is unset.
func ParseParallel(value string) (Parallel, error) {
	if strings.TrimSpace(value) == "" {
		return Parallel{}, nil
	}

	p, err := settingFromValue(value)
	if err != nil {
		return Parallel{}, err
	}

	if _, err := p.Resolve(); err != nil {
		return Parallel{}, errors.Join(ErrInvalidConfig, err)
	}

	return p, nil
}

// IsZero reports whether the key was absent.
func (p Parallel) IsZero() bool {
	return !p.Set
}

func settingFromValue(v any) (Parallel, error) {
	switch t := v.(type) {
	case nil:
		return Parallel{}, nil
	case bool:
		if t {
			return ParallelOf(parallel.Auto()), nil
		}

		return ParallelOf(parallel.Sequential()), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return ParallelOf(parallel.Auto()), nil
		case "false":
			return ParallelOf(parallel.Sequential()), nil
		}

		return ParallelOf(parallel.Of(t)), nil
	case int:
		return ParallelOf(parallel.Of(strconv.Itoa(t))), nil
	case int64:
		return ParallelOf(parallel.Of(strconv.FormatInt(t, 10))), nil
	case uint64:
		return ParallelOf(parallel.Of(strconv.FormatUint(t, 10))), nil
	case float64:
		return ParallelOf(parallel.Of(strconv.FormatFloat(t, 'f', -1, 64))), nil
	default:
		return Parallel{}, fmt.Errorf("%w: parallel must be a boolean, number or string, got %T", ErrInvalidConfig, v)
	}
}
