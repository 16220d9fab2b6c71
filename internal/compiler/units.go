// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package compiler

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"goexec/cli/internal/errors"
	"goexec/cli/internal/xdg"
)

const unitPrefix = "unit-"

// UnitsDir is the default directory build units are written to.
func UnitsDir() (string, error) {
	cache, err := xdg.CacheDir()
	if err != nil {
		return "", errors.Wrap(errors.ConfigError, "cache dir", err)
	}
	return filepath.Join(cache, "units"), nil
}

// Prune removes unit directories under dir last modified more than olderThan
// ago and returns how many were removed. A missing dir is not an error.
func Prune(dir string, olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(errors.ConfigError, "read units dir", err)
	}
	cutoff := time.Now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), unitPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return removed, errors.Wrap(errors.ConfigError, "remove "+e.Name(), err)
		}
		removed++
	}
	return removed, nil
}
