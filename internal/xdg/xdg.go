// Package xdg provides helpers to resolve XDG Base Directory paths for goexec.
// It implements the XDG Base Directory specification for determining appropriate
// locations for configuration files, state data, and build caches on
// Unix-like systems.
//
// The package handles fallback to traditional locations when XDG environment
// variables are not set and ensures proper permissions for security-sensitive
// directories like configuration storage.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "goexec"

// ConfigDir returns the XDG config directory for goexec.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/goexec when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for goexec.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/goexec when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// CacheDir returns the directory that holds build units.
// GOEXEC_CACHE_DIR wins over XDG_CACHE_HOME; the default is ~/.cache/goexec.
func CacheDir() (string, error) {
	if dir := os.Getenv("GOEXEC_CACHE_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
		return dir, nil
	}
	return ensure("XDG_CACHE_HOME", ".cache")
}

func ensure(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
