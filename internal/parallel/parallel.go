// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package parallel resolves the user facing concurrency setting into the
// maximum number of scripts that may run at once.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
)

const (
	// KeywordAuto resolves to the number of available CPUs.
	KeywordAuto = "auto"
	// KeywordUnbounded admits every script immediately.
	KeywordUnbounded = "unbounded"

	// EnvMax carries the resolved limit into every child script.
	EnvMax = "_RUNSCRIPTS_PARALLEL_MAX"
	// EnvResolved marks that EnvMax was set by a parent runscripts process.
	EnvResolved = "_RUNSCRIPTS_PARALLEL_RESOLVED"
)

var (
	// ErrInvalidMax is the base error for every rejected parallel value.
	ErrInvalidMax = errors.New("invalid parallel max value")
	// ErrBelowOne is returned for numeric values that floor to less than one.
	ErrBelowOne = fmt.Errorf("%w: must be at least 1", ErrInvalidMax)
	// ErrPercentRange is returned for percentages outside (0, 100].
	ErrPercentRange = fmt.Errorf("%w: percentage must be greater than 0 and less than or equal to 100", ErrInvalidMax)
)

// Max is a resolved concurrency limit. It is always at least one, or Unbounded.
type Max int

// Unbounded means there is no limit.
const Unbounded Max = -1

// String returns the decimal limit or "unbounded".
// This is the value injected into child environments.
func (m Max) String() string {
	if m == Unbounded {
		return KeywordUnbounded
	}

	return strconv.Itoa(int(m))
}

// IsUnbounded reports whether m places no limit.
func (m Max) IsUnbounded() bool {
	return m == Unbounded
}

// Slots returns how many of total scripts may run concurrently.
func (m Max) Slots(total int) int {
	if m == Unbounded || int(m) > total {
		return total
	}

	return int(m)
}

// CPUCount returns the number of logical CPUs, never less than one.
// It is a variable so tests can pin it.
var CPUCount = func() int {
	n, err := cpu.CountsWithContext(context.Background(), true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}

	return max(1, n)
}

// lookupEnv is swapped out in tests.
var lookupEnv = os.LookupEnv

// Parse resolves a textual parallel value: a positive number (floored), "auto",
// "unbounded", or a percentage of the available CPUs such as "50%".
//
// "auto" honours a limit inherited from a parent run through EnvMax, so nested
// invocations share the parent's notion of available CPUs.
func Parse(value string) (Max, error) {
	v := strings.TrimSpace(value)

	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return FromNumber(f)
	}

	switch strings.ToLower(v) {
	case KeywordUnbounded:
		return Unbounded, nil
	case KeywordAuto:
		if inherited, ok := inheritedMax(); ok {
			return inherited, nil
		}

		return Max(CPUCount()), nil
	}

	if pct, ok := strings.CutSuffix(v, "%"); ok {
		p, err := strconv.ParseFloat(strings.TrimSpace(pct), 64)
		if err != nil || math.IsNaN(p) || p <= 0 || p > 100 {
			return 0, fmt.Errorf("%w: %q", ErrPercentRange, value)
		}

		return Max(max(1, int(math.Floor(float64(CPUCount())*p/100)))), nil
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidMax, value)
}

// FromNumber floors f and validates that the result is at least one.
func FromNumber(f float64) (Max, error) {
	if math.IsNaN(f) {
		return 0, ErrBelowOne
	}

	if math.IsInf(f, 1) {
		return Unbounded, nil
	}

	n := math.Floor(f)
	if n < 1 {
		return 0, fmt.Errorf("%w: got %v", ErrBelowOne, f)
	}

	if n > math.MaxInt32 {
		return Unbounded, nil
	}

	return Max(n), nil
}

func inheritedMax() (Max, bool) {
	if resolved, ok := lookupEnv(EnvResolved); !ok || resolved == "" || resolved == "0" || resolved == "false" {
		return 0, false
	}

	raw, ok := lookupEnv(EnvMax)
	if !ok {
		return 0, false
	}

	if raw == KeywordUnbounded {
		return Unbounded, true
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}

	return Max(n), true
}

// Env returns the variables that tell child scripts which limit is in force.
func (m Max) Env() []string {
	return []string{
		EnvMax + "=" + m.String(),
		EnvResolved + "=1",
	}
}
