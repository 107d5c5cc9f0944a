// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/matt-FFFFFF/runscripts/internal/script"
	"github.com/matt-FFFFFF/runscripts/internal/shell"
	"github.com/spf13/afero"
)

var (
	// ErrInvalidConfig is the base error for every rejected configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrNoScripts is returned when a configuration defines no scripts.
	ErrNoScripts = fmt.Errorf("%w: no scripts specified", ErrInvalidConfig)
	// ErrEmptyCommand is returned for scripts without a command.
	ErrEmptyCommand = fmt.Errorf("%w: script has no command", ErrInvalidConfig)
	// ErrUnknownFormat is returned for files that are neither YAML nor HCL.
	ErrUnknownFormat = fmt.Errorf("%w: unknown file format", ErrInvalidConfig)
	// ErrReadConfig is returned when a file cannot be read.
	ErrReadConfig = errors.New("failed to read configuration file")
)

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatHCL  Format = "hcl"
)

// File is a parsed configuration file.
type File struct {
	// Source is where the file was loaded from. It is not part of the syntax.
	Source string `yaml:"-"`
	// BaseDir anchors relative working directories.
	BaseDir string `yaml:"-"`

	Name        string            `yaml:"name,omitempty" docdesc:"Name of the configuration"`
	Description string            `yaml:"description,omitempty" docdesc:"Description of what the scripts do"`
	Parallel    Parallel          `yaml:"parallel,omitempty" doctype:"boolean,integer,string" docdesc:"Maximum number of scripts running at once: true, false, a number, a percentage of CPUs such as 50%, or auto"`
	Shell       string            `yaml:"shell,omitempty" docenum:"system,bash,pwsh" docdesc:"Shell used to run every command"`
	Env         map[string]string `yaml:"env,omitempty" docdesc:"Environment variables added to every script"`
	Scripts     []Script          `yaml:"scripts" docdesc:"Scripts to run, in order"`
}

// Script is one script entry.
type Script struct {
	Name             string            `yaml:"name,omitempty" docdesc:"Display name, defaults to the file name and position"`
	Command          string            `yaml:"command" docdesc:"Command line passed to the shell"`
	WorkingDirectory string            `yaml:"working_directory,omitempty" docdesc:"Directory to run in, relative to the configuration file"`
	Env              map[string]string `yaml:"env,omitempty" docdesc:"Environment variables for this script only"`
}

// Meta is attached to every script spec built from a configuration.
type Meta struct {
	// Source is the file the script came from, or "" for ad-hoc commands.
	Source string `json:"source,omitempty"`
	// Position is the script's index within its source.
	Position int `json:"position"`
}

// DetectFormat picks the format from the file extension. Unknown extensions
// are treated as YAML.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hcl":
		return FormatHCL
	default:
		return FormatYAML
	}
}

// Parse decodes data in the format implied by filename and validates it.
func Parse(data []byte, filename string) (*File, error) {
	var (
		f   *File
		err error
	)

	switch DetectFormat(filename) {
	case FormatHCL:
		f, err = ParseHCL(data, filename)
	case FormatYAML:
		f, err = ParseYAML(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, filename)
	}

	if err != nil {
		return nil, err
	}

	f.Source = filename

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return f, nil
}

// Load reads and parses path from fs.
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Join(ErrReadConfig, err)
	}

	f, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	f.BaseDir = filepath.Dir(path)

	return f, nil
}

// Validate reports every problem in f at once.
func (f *File) Validate() error {
	var result error

	if len(f.Scripts) == 0 {
		result = multierror.Append(result, ErrNoScripts)
	}

	for i, s := range f.Scripts {
		if strings.TrimSpace(s.Command) == "" {
			result = multierror.Append(result, fmt.Errorf("%w: scripts[%d] %q", ErrEmptyCommand, i, s.Name))
		}
	}

	if _, err := shell.ParseOption(f.Shell); err != nil {
		result = multierror.Append(result, errors.Join(ErrInvalidConfig, err))
	}

	if _, err := f.Parallel.Setting.Resolve(); err != nil {
		result = multierror.Append(result, errors.Join(ErrInvalidConfig, err))
	}

	return result
}

// Specs converts the scripts to runnable specs. Relative working
// directories are resolved against BaseDir.
func (f *File) Specs() []script.Spec[Meta] {
	base := f.BaseDir

	specs := make([]script.Spec[Meta], len(f.Scripts))

	for i, s := range f.Scripts {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", displaySource(f.Source), i)
		}

		dir := s.WorkingDirectory
		if dir != "" && !filepath.IsAbs(dir) && base != "" {
			dir = filepath.Join(base, dir)
		}

		specs[i] = script.Spec[Meta]{
			Name:             name,
			Command:          s.Command,
			WorkingDirectory: dir,
			Env:              mergeMaps(f.Env, s.Env),
			Metadata:         Meta{Source: f.Source, Position: i},
		}
	}

	return specs
}

func displaySource(source string) string {
	if source == "" {
		return "script"
	}

	return strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
}

func mergeMaps(layers ...map[string]string) map[string]string {
	var out map[string]string

	for _, l := range layers {
		for k, v := range l {
			if out == nil {
				out = make(map[string]string)
			}

			out[k] = v
		}
	}

	return out
}
