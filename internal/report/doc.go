// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package report renders a run for humans and machines: merged output as
// name-prefixed lines, a colored summary, and a JSON summary file.
package report
