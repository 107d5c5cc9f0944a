// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package script

import (
	"maps"
	"runtime"
	"slices"
	"strings"
)

// mergeEnv flattens KEY=VALUE layers. Later layers win and each key appears
// once, at the position it first appeared. Keys are case-insensitive on Windows.
func mergeEnv(layers ...[]string) []string {
	var (
		order  []string
		values = make(map[string]string)
	)

	for _, layer := range layers {
		for _, kv := range layer {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || k == "" {
				continue
			}

			id := envKey(k)
			if _, seen := values[id]; !seen {
				order = append(order, id)
			}

			values[id] = k + "=" + v
		}
	}

	out := make([]string, 0, len(order))
	for _, id := range order {
		out = append(out, values[id])
	}

	return out
}

func envKey(k string) string {
	if runtime.GOOS == "windows" {
		return strings.ToUpper(k)
	}

	return k
}

// envList renders a map in sorted key order.
func envList(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		out = append(out, k+"="+m[k])
	}

	return out
}
