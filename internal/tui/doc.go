// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tui provides a real-time Terminal User Interface (TUI) for monitoring
// a run. It shows one row per script with a status indicator, the elapsed time
// and the last line the script printed.
//
// The TUI is driven by progress events. Scripts can be killed from the UI,
// either the selected one or all of them at once.
package tui
