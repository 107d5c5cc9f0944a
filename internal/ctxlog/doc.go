// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog carries a *slog.Logger in a context.Context.
//
// The default is a pretty console handler on stderr. The minimum level is read
// from the RUNSCRIPTS_LOG_LEVEL environment variable and defaults to WARN.
package ctxlog
