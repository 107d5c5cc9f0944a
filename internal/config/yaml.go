// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// ErrInvalidYAML is returned for malformed YAML and unknown keys.
var ErrInvalidYAML = fmt.Errorf("%w: invalid YAML", ErrInvalidConfig)

// ParseYAML decodes a YAML document. Unknown keys are rejected.
func ParseYAML(data []byte) (*File, error) {
	var f File

	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.Join(ErrInvalidYAML, errors.New(yaml.FormatError(err, false, true)))
	}

	return &f, nil
}

// MarshalYAML renders f in YAML syntax.
func MarshalYAML(f *File) ([]byte, error) {
	b, err := yaml.MarshalWithOptions(f, yaml.IndentSequence(true))
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return b, nil
}
