// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package config loads run definitions from YAML or HCL files.
//
// A file names a list of scripts and, optionally, the parallel setting, the
// shell and environment variables shared by every script:
//
//	name: build
//	parallel: 50%
//	shell: bash
//	env:
//	  CI: "true"
//	scripts:
//	  - name: lint
//	    command: golangci-lint run
//	  - name: test
//	    command: go test ./...
//	    working_directory: ./src
//
// The HCL form uses one script block per script. Expressions may refer to
// env.NAME and cpu_count:
//
//	parallel = cpu_count > 8 ? "50%" : true
//
//	script "lint" {
//	  command = "golangci-lint run"
//	}
package config
