package keystore

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/systmms/vitaminc/pkg/protected"
)

// KeychainClient abstracts the OS keychain for testing.
type KeychainClient interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
}

// osKeychain is backed by the macOS Keychain, the Linux Secret Service
// or the Windows credential manager.
type osKeychain struct{}

func (osKeychain) Get(service, account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return secret, err
}

func (osKeychain) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

// Keychain stores values as passwords of one keychain service, one
// account per name.
type Keychain struct {
	service string
	client  KeychainClient
}

// NewKeychain returns a store for service using the OS keychain.
func NewKeychain(service string) *Keychain {
	return NewKeychainWithClient(service, osKeychain{})
}

// NewKeychainWithClient is NewKeychain with a custom client.
func NewKeychainWithClient(service string, client KeychainClient) *Keychain {
	return &Keychain{service: service, client: client}
}

func (k *Keychain) Name() string { return "keychain" }

func (k *Keychain) Put(_ context.Context, name string, value *protected.Protected[[]byte]) error {
	return k.client.Set(k.service, name, unwrapString(value))
}

func (k *Keychain) Get(_ context.Context, name string) (*protected.Protected[[]byte], error) {
	secret, err := k.client.Get(k.service, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return stringOf(secret), nil
}
