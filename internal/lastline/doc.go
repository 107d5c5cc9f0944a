// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package lastline splits arbitrarily chunked output into lines while
// remembering the last complete line. Output writers use it to prefix each
// line with its script name, and the TUI uses it to show the latest line of
// every running script.
package lastline
