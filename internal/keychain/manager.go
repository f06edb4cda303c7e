// Copyright (c) 2025 AskDB
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain stores askdb secrets in the OS credential store: API keys for the
// model and tracing backends, the agent bridge token and saved connection passwords.
//
// Settings files never hold secrets; they are written here and looked up by key.
package keychain

import (
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

// Global keychain manager instance
var (
	globalManager *Manager
	globalError   error
	mu            sync.Mutex
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("secret not found in keychain")

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "askdb"

// Keys used for storing secrets in the OS keychain.
const (
	KeyOpenAIAPIKey    = "openai_api_key"
	KeyLangSmithAPIKey = "langsmith_api_key"
	KeyAgentToken      = "agent_token"
	dbPasswordPrefix   = "db_password:"
)

// DBPasswordKey returns the key holding the password of a saved connection.
func DBPasswordKey(connection string) string {
	return dbPasswordPrefix + connection
}

// Manager provides thread-safe operations on the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager opens the OS keyring.
func NewManager() (*Manager, error) {
	ring, err := openRing()
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

// NewWithRing wraps an already opened keyring.
func NewWithRing(ring keyring.Keyring) *Manager {
	return &Manager{ring: ring}
}

// GetManager returns the global keychain manager instance.
// If initialization fails, it will retry on subsequent calls.
func GetManager() (*Manager, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalManager != nil {
		return globalManager, nil
	}

	globalManager, globalError = NewManager()
	if globalError != nil {
		return nil, globalError
	}
	return globalManager, nil
}

// openRing opens the OS keyring using native platform backends only; there is no
// encrypted-file fallback.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		// pass is the fallback when the login keychain is unavailable
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux":
		allowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.PassBackend,
		}
	default:
		return nil, errors.New("secure storage not supported on this OS")
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: allowedBackends,
		PassPrefix:      ServiceName,
	}
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}
	return keyring.Open(cfg)
}

// Set stores value under key. An empty value removes the key.
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if value == "" {
		return m.remove(key)
	}
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: ServiceName + " " + key})
}

// Get returns the value stored under key, or ErrNotFound.
func (m *Manager) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if len(it.Data) == 0 {
		return "", ErrNotFound
	}
	return string(it.Data), nil
}

// Delete removes key. Removing a missing key is not an error.
func (m *Manager) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(key)
}

func (m *Manager) remove(key string) error {
	if err := m.ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// SaveDBPassword stores the password of a saved connection.
func (m *Manager) SaveDBPassword(connection, password string) error {
	return m.Set(DBPasswordKey(connection), password)
}

// LoadDBPassword returns the password of a saved connection.
func (m *Manager) LoadDBPassword(connection string) (string, error) {
	return m.Get(DBPasswordKey(connection))
}

// ClearAll removes the API keys and every saved connection password.
func (m *Manager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys, err := m.ring.Keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k == KeyOpenAIAPIKey || k == KeyLangSmithAPIKey || k == KeyAgentToken || strings.HasPrefix(k, dbPasswordPrefix) {
			if err := m.remove(k); err != nil {
				return err
			}
		}
	}
	return nil
}
