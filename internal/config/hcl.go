// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/matt-FFFFFF/runscripts/internal/parallel"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ErrInvalidHCL is returned for malformed HCL and failed expressions.
var ErrInvalidHCL = fmt.Errorf("%w: invalid HCL", ErrInvalidConfig)

type hclFile struct {
	Name        string            `hcl:"name,optional"`
	Description string            `hcl:"description,optional"`
	Parallel    hcl.Expression    `hcl:"parallel,optional"`
	Shell       string            `hcl:"shell,optional"`
	Env         map[string]string `hcl:"env,optional"`
	Scripts     []hclScript       `hcl:"script,block"`
}

type hclScript struct {
	Name             string            `hcl:"name,label"`
	Command          string            `hcl:"command"`
	WorkingDirectory string            `hcl:"working_directory,optional"`
	Env              map[string]string `hcl:"env,optional"`
}

// environ is swapped out in tests.
var environ = os.Environ

// EvalContext returns the variables and functions available to expressions:
// env.NAME for environment variables and cpu_count for the CPU count.
func EvalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)

	for _, kv := range environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(k) {
			continue
		}

		env[k] = cty.StringVal(v)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env":       cty.ObjectVal(env),
			"cpu_count": cty.NumberIntVal(int64(parallel.CPUCount())),
		},
		Functions: map[string]function.Function{
			"upper":  stdlib.UpperFunc,
			"lower":  stdlib.LowerFunc,
			"join":   stdlib.JoinFunc,
			"split":  stdlib.SplitFunc,
			"format": stdlib.FormatFunc,
			"concat": stdlib.ConcatFunc,
			"length": stdlib.LengthFunc,
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
		},
	}
}

// ParseHCL decodes an HCL document. Diagnostics are returned as the error.
func ParseHCL(data []byte, filename string) (*File, error) {
	parser := hclparse.NewParser()

	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Join(ErrInvalidHCL, diags)
	}

	ctx := EvalContext()

	var raw hclFile
	if diags := gohcl.DecodeBody(file.Body, ctx, &raw); diags.HasErrors() {
		return nil, errors.Join(ErrInvalidHCL, diags)
	}

	f := &File{
		Name:        raw.Name,
		Description: raw.Description,
		Shell:       raw.Shell,
		Env:         raw.Env,
		Scripts:     make([]Script, len(raw.Scripts)),
	}

	for i, s := range raw.Scripts {
		f.Scripts[i] = Script{
			Name:             s.Name,
			Command:          s.Command,
			WorkingDirectory: s.WorkingDirectory,
			Env:              s.Env,
		}
	}

	if raw.Parallel != nil {
		val, diags := raw.Parallel.Value(ctx)
		if diags.HasErrors() {
			return nil, errors.Join(ErrInvalidHCL, diags)
		}

		p, err := parallelFromCty(val)
		if err != nil {
			return nil, err
		}

		f.Parallel = p
	}

	return f, nil
}

func parallelFromCty(val cty.Value) (Parallel, error) {
	switch {
	case val.IsNull():
		return Parallel{}, nil
	case !val.IsWhollyKnown():
		return Parallel{}, fmt.Errorf("%w: parallel is not known", ErrInvalidHCL)
	case val.Type() == cty.Bool:
		return settingFromValue(val.True())
	case val.Type() == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return settingFromValue(f)
	case val.Type() == cty.String:
		return settingFromValue(val.AsString())
	default:
		return Parallel{}, fmt.Errorf("%w: parallel must be a boolean, number or string, got %s", ErrInvalidHCL, val.Type().FriendlyName())
	}
}

// Eval evaluates a single HCL expression and renders the result as JSON.
func Eval(expr string, ctx *hcl.EvalContext) (string, error) {
	e, diags := hclsyntax.ParseExpression([]byte(expr), "<expression>", hcl.InitialPos)
	if diags.HasErrors() {
		return "", diags
	}

	val, diags := e.Value(ctx)
	if diags.HasErrors() {
		return "", diags
	}

	b, err := ctyjson.SimpleJSONValue{Value: val}.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("render value: %w", err)
	}

	return string(b), nil
}
