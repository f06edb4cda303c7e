// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

package keychain

import "os"

// Lookup returns the secret stored under key, falling back to the first non-empty
// environment variable in envs. m may be nil when no keychain is available.
func Lookup(m *Manager, key string, envs ...string) string {
	if m != nil {
		if v, err := m.Get(key); err == nil {
			return v
		}
	}
	for _, name := range envs {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
