// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package model

import "strings"

// Union appends the values of add that are not already present in base.
// Blank values are dropped and surrounding whitespace is trimmed.
func Union(base []string, add ...string) []string {
	seen := make(map[string]struct{}, len(base)+len(add))
	out := make([]string, 0, len(base)+len(add))
	for _, v := range base {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	for _, v := range add {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Subtract returns base without the values in remove.
func Subtract(base []string, remove ...string) []string {
	drop := make(map[string]struct{}, len(remove))
	for _, v := range remove {
		drop[strings.TrimSpace(v)] = struct{}{}
	}
	out := make([]string, 0, len(base))
	for _, v := range base {
		if _, ok := drop[strings.TrimSpace(v)]; ok {
			continue
		}
		out = append(out, v)
	}
	return out
}
