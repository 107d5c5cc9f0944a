// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/term"
)

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	// Child scripts always receive it so that their own tooling keeps colors
	// even though their stdout is a pipe.
	ForceColor = "FORCE_COLOR"

	reset     = "\033[0m"
	prefix    = "\033["
	suffix    = "m"
	sbPadding = 16
)

// Code represents an ANSI SGR parameter.
type Code int

// Control codes for text formatting.
const (
	Reset Code = iota
	Bold
	Faint
	Italic
	Underline
)

// Foreground text colors.
const (
	FgBlack Code = iota + 30
	FgRed
	FgGreen
	FgYellow
	FgBlue
	FgMagenta
	FgCyan
	FgWhite
)

// Foreground Hi-Intensity text colors.
const (
	FgHiBlack Code = iota + 90
	FgHiRed
	FgHiGreen
	FgHiYellow
	FgHiBlue
	FgHiMagenta
	FgHiCyan
	FgHiWhite
)

// palette is the rotation used to tell scripts apart in prefixed output.
// Red is left out so that failures stay visually distinct.
var palette = []Code{
	FgCyan,
	FgMagenta,
	FgBlue,
	FgYellow,
	FgGreen,
	FgHiCyan,
	FgHiMagenta,
	FgHiBlue,
	FgHiYellow,
	FgHiGreen,
}

var enabled atomic.Bool

func init() {
	enabled.Store(isColorCapable())
}

// Enabled reports whether color output is enabled.
//
// NO_COLOR always wins. Otherwise FORCE_COLOR enables colors, and failing
// that colors are enabled when stdout is a terminal.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled overrides terminal detection, e.g. for a --no-color flag.
func SetEnabled(v bool) {
	enabled.Store(v)
}

// ForIndex returns the palette color for the script at index i.
func ForIndex(i int) Code {
	if i < 0 {
		i = -i
	}

	return palette[i%len(palette)]
}

// ControlString generates the escape sequence for the supplied codes.
// It is emitted regardless of whether colors are enabled.
func ControlString(c ...Code) string {
	sb := strings.Builder{}
	sb.Grow(len(prefix) + len(suffix) + sbPadding)
	writeSequence(&sb, c)

	return sb.String()
}

// Colorize wraps str in the escape sequence for colorCodes and a trailing reset.
func Colorize(str string, colorCodes ...Code) string {
	if !Enabled() || len(colorCodes) == 0 {
		return str
	}

	sb := strings.Builder{}
	sb.Grow(len(str) + len(prefix) + len(suffix) + len(reset) + sbPadding)
	writeSequence(&sb, colorCodes)
	sb.WriteString(str)
	sb.WriteString(reset)

	return sb.String()
}

// ColorizeNoReset is like Colorize but leaves the attributes active.
func ColorizeNoReset(str string, colorCodes ...Code) string {
	if !Enabled() || len(colorCodes) == 0 {
		return str
	}

	sb := strings.Builder{}
	sb.Grow(len(str) + len(prefix) + len(suffix) + sbPadding)
	writeSequence(&sb, colorCodes)
	sb.WriteString(str)

	return sb.String()
}

func writeSequence(sb *strings.Builder, codes []Code) {
	sb.WriteString(prefix)

	for i, code := range codes {
		if i > 0 {
			sb.WriteByte(';')
		}

		sb.WriteString(strconv.Itoa(int(code)))
	}

	sb.WriteString(suffix)
}

func isColorCapable() bool {
	if os.Getenv(NoColor) != "" {
		return false
	}

	if os.Getenv(ForceColor) != "" {
		return true
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}
