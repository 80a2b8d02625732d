package fakes

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/systmms/vitaminc/internal/keystore"
)

// ErrFakeAkeylessUnauthorized is returned for a rejected token.
var ErrFakeAkeylessUnauthorized = errors.New("akeyless: 401 unauthorized")

// FakeAkeylessClient is an in-memory Akeyless account.
type FakeAkeylessClient struct {
	mu sync.Mutex
	// Token is issued by Authenticate
	Token string
	// TokenTTL is the lifetime reported by Authenticate
	TokenTTL time.Duration
	// Secrets maps paths to values
	Secrets map[string]string
	// AuthErr, when set, is returned by Authenticate
	AuthErr error
	// AuthCallCount counts Authenticate calls
	AuthCallCount int
}

// NewFakeAkeylessClient creates a fake issuing a 30 minute token.
func NewFakeAkeylessClient() *FakeAkeylessClient {
	return &FakeAkeylessClient{
		Token:    "fake-akeyless-token",
		TokenTTL: 30 * time.Minute,
		Secrets:  make(map[string]string),
	}
}

// Authenticate issues Token.
func (f *FakeAkeylessClient) Authenticate(context.Context) (string, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.AuthCallCount++
	if f.AuthErr != nil {
		return "", 0, f.AuthErr
	}
	return f.Token, f.TokenTTL, nil
}

// GetSecret returns the value at path.
func (f *FakeAkeylessClient) GetSecret(_ context.Context, token, path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token != f.Token {
		return "", ErrFakeAkeylessUnauthorized
	}
	value, ok := f.Secrets[path]
	if !ok {
		return "", keystore.ErrNotFound
	}
	return value, nil
}

// SetSecret creates or updates the value at path.
func (f *FakeAkeylessClient) SetSecret(_ context.Context, token, path, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if token != f.Token {
		return ErrFakeAkeylessUnauthorized
	}
	f.Secrets[path] = value
	return nil
}

var _ keystore.AkeylessClient = (*FakeAkeylessClient)(nil)
