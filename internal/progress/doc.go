// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package progress carries per-script lifecycle events from a run to
// observers such as the TUI and the metrics collector.
package progress
