// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package script

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// StreamName identifies which output stream a chunk was read from.
type StreamName string

const (
	// Stdout is the standard output stream.
	Stdout StreamName = "stdout"
	// Stderr is the standard error stream.
	Stderr StreamName = "stderr"
)

// Chunk is one read from a script's stdout or stderr. Chunk boundaries are
// wherever the operating system happened to split the stream; they are not lines.
type Chunk struct {
	Stream StreamName
	Raw    []byte
}

// DecodeOptions controls Chunk.Decode.
type DecodeOptions struct {
	// StripANSI removes escape sequences such as colors and cursor movement.
	StripANSI bool
}

// Decode returns the chunk as UTF-8 text. Invalid byte sequences, including
// multi-byte characters split across chunk boundaries, become U+FFFD.
func (c Chunk) Decode(opts DecodeOptions) string {
	s := strings.ToValidUTF8(string(c.Raw), "�")
	if opts.StripANSI {
		s = ansi.Strip(s)
	}

	return s
}

// Text is Decode with default options.
func (c Chunk) Text() string {
	return c.Decode(DecodeOptions{})
}
