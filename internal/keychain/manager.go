// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for goexec.
// It stores the per-host access tokens used to fetch snippets and references
// from private GitHub and GitLab repositories.
//
// The package supports macOS Keychain, Windows Credential Manager and the
// Secret Service / KWallet / pass backends on Linux, with thread-safe
// operations and proper error handling.
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

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu      sync.RWMutex
	ring    keyring.Keyring
	backend keychainBackend
}

// keychainBackend defines the interface for keychain operations.
type keychainBackend interface {
	Set(key, value string) error
	Get(key string) (string, error)
	Delete(key string) error
}

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "goexec"

// tokenKeyPrefix namespaces host tokens inside the service.
const tokenKeyPrefix = "token:"

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	// Try native security backend first on macOS
	if runtime.GOOS == "darwin" {
		backend, err := newSecurityBackend()
		if err == nil {
			return &Manager{backend: backend}, nil
		}
		// Fall through to keyring library if security command fails
	}

	ring, err := openRing()
	if err != nil {
		return nil, err
	}

	return &Manager{
		ring: ring,
	}, nil
}

// GetManager returns the global keychain manager instance.
// If not initialized, it will be created on first call.
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

// openRing opens the OS keyring using native platform backends only.
// There is no encrypted-file fallback: a token either lives in the OS
// store or in the environment.
func openRing() (keyring.Keyring, error) {
	var allowedBackends []keyring.BackendType
	switch runtime.GOOS {
	case "darwin":
		allowedBackends = []keyring.BackendType{keyring.KeychainBackend, keyring.PassBackend}
	case "windows":
		allowedBackends = []keyring.BackendType{keyring.WinCredBackend}
	case "linux", "freebsd", "openbsd":
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
		KWalletAppID:    ServiceName,
		KWalletFolder:   ServiceName,
	}

	// Hint prefixes where supported to minimize namespace collisions
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		if runtime.GOOS == "darwin" {
			return nil, errors.New("macOS Keychain unavailable. On macOS 26.0+, install 'pass': brew install pass gnupg && gpg --generate-key && pass init <gpg-key-id>")
		}
		return nil, err
	}

	return ring, nil
}

func tokenKey(host string) string {
	return tokenKeyPrefix + strings.ToLower(strings.TrimSpace(host))
}

// SaveToken stores the access token for a code host.
// This method is thread-safe.
func (m *Manager) SaveToken(host, token string) error {
	if strings.TrimSpace(host) == "" {
		return errors.New("host is required")
	}
	if token == "" {
		return errors.New("empty token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Set(tokenKey(host), token)
	}
	return m.ring.Set(keyring.Item{Key: tokenKey(host), Data: []byte(token), Label: "goexec token for " + host})
}

// LoadToken retrieves the access token for a code host.
// This method is thread-safe.
func (m *Manager) LoadToken(host string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		token, err := m.backend.Get(tokenKey(host))
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", errors.New("empty token")
		}
		return token, nil
	}

	it, err := m.ring.Get(tokenKey(host))
	if err != nil {
		return "", err
	}
	if len(it.Data) == 0 {
		return "", errors.New("empty token")
	}
	return string(it.Data), nil
}

// ClearToken removes the token for a code host.
// This method is thread-safe.
func (m *Manager) ClearToken(host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backend != nil {
		return m.backend.Delete(tokenKey(host))
	}
	err := m.ring.Remove(tokenKey(host))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Hosts lists hosts with a stored token. The macOS security backend cannot
// enumerate items and returns nil.
func (m *Manager) Hosts() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.backend != nil {
		return nil, nil
	}
	keys, err := m.ring.Keys()
	if err != nil {
		return nil, err
	}
	var hosts []string
	for _, k := range keys {
		if h, ok := strings.CutPrefix(k, tokenKeyPrefix); ok {
			hosts = append(hosts, h)
		}
	}
	return hosts, nil
}
