// Package xdg resolves the XDG Base Directory locations askdb uses: a config
// directory for settings and saved connections, and a state directory for logs.
//
// Directories are created on first use with private permissions (0700), falling back
// to ~/.config and ~/.local/state when the XDG variables are unset.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under each XDG base.
const AppName = "askdb"

// ConfigDir returns $XDG_CONFIG_HOME/askdb, creating it if missing.
func ConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns $XDG_STATE_HOME/askdb, creating it if missing.
func StateDir() (string, error) {
	return appDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func appDir(env, homeRel string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, homeRel)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
