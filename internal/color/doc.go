// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color decides whether ANSI color output is wanted and provides
// helpers to wrap strings in SGR escape sequences.
//
// NO_COLOR and FORCE_COLOR are honoured, then golang.org/x/term is used to
// check whether stdout is a terminal. A fixed palette hands out one color per
// script so interleaved output can be attributed at a glance.
package color
