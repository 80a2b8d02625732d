package fakes

import (
	"sync"

	"github.com/systmms/vitaminc/internal/keystore"
)

// FakeKeychainClient is an in-memory OS keychain.
type FakeKeychainClient struct {
	mu sync.Mutex
	// Secrets maps service -> account -> value
	Secrets map[string]map[string]string
	// GetErr, when set, is returned by Get
	GetErr error
	// SetErr, when set, is returned by Set
	SetErr error
}

// NewFakeKeychainClient creates an empty fake.
func NewFakeKeychainClient() *FakeKeychainClient {
	return &FakeKeychainClient{Secrets: make(map[string]map[string]string)}
}

// Get returns keystore.ErrNotFound for missing items, like the real
// client.
func (f *FakeKeychainClient) Get(service, account string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GetErr != nil {
		return "", f.GetErr
	}
	if value, ok := f.Secrets[service][account]; ok {
		return value, nil
	}
	return "", keystore.ErrNotFound
}

// Set stores secret.
func (f *FakeKeychainClient) Set(service, account, secret string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SetErr != nil {
		return f.SetErr
	}
	if f.Secrets[service] == nil {
		f.Secrets[service] = make(map[string]string)
	}
	f.Secrets[service][account] = secret
	return nil
}

var _ keystore.KeychainClient = (*FakeKeychainClient)(nil)
