// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package paths resolves the cache and config roots the engine reads and
// writes, following a layered XDG-then-home-then-tmp fallback, with support
// for resolving the invoking user's home when running under sudo/doas
// elevation.
package paths

import (
	"os"
	"os/user"
	"path/filepath"
)

const appName = "traur"

// HomeDir returns the home directory the engine should use: when running
// under sudo or doas, it resolves the invoking (pre-elevation) user's home
// so that user's whitelist and config apply to their own transactions,
// rather than root's. Falls back to the process's own home when neither
// elevation variable is set or the named user can't be looked up.
func HomeDir() string {
	if name := elevationUser(); name != "" {
		if u, err := user.Lookup(name); err == nil && u.HomeDir != "" {
			return u.HomeDir
		}
	}
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return ""
}

func elevationUser() string {
	if v := os.Getenv("SUDO_USER"); v != "" {
		return v
	}
	if v := os.Getenv("DOAS_USER"); v != "" {
		return v
	}
	return ""
}

// CacheRoot resolves $CACHE_ROOT in order: XDG_CACHE_HOME/traur, then
// ~/.cache/traur, then a fixed temporary-directory fallback.
func CacheRoot() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if home := HomeDir(); home != "" {
		return filepath.Join(home, ".cache", appName)
	}
	return filepath.Join(os.TempDir(), appName+"-cache")
}

// GitCacheDir returns $CACHE_ROOT/git, the root all per-package shallow
// clones live under.
func GitCacheDir() string {
	return filepath.Join(CacheRoot(), "git")
}

// PackageCacheDir returns the working-copy path for a given package base:
// $CACHE_ROOT/git/<package_base>.
func PackageCacheDir(packageBase string) string {
	return filepath.Join(GitCacheDir(), packageBase)
}

// ConfigDir resolves the user-config directory in order: XDG_CONFIG_HOME/
// traur, then ~/.config/traur, then /etc/traur.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if home := HomeDir(); home != "" {
		return filepath.Join(home, ".config", appName)
	}
	return filepath.Join("/etc", appName)
}

// ConfigFile returns the path to the config document.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// EnsureDir creates dir (and parents) if it doesn't already exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
