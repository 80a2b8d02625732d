package secure

import (
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/systmms/vitaminc/pkg/protected"
)

// ErrDestroyed is returned when opening a destroyed Sealed value.
var ErrDestroyed = errors.New("secure: sealed value destroyed")

// Sealed holds an encrypted encoding of a protected value.
type Sealed[T any] struct {
	mu        sync.RWMutex
	enclave   *memguard.Enclave
	destroyed bool
}

// Seal encodes e into a memguard enclave and closes e. The intermediate
// encoding is wiped by memguard.
func Seal[T any](e *protected.Exportable[T]) (*Sealed[T], error) {
	buf, err := e.MarshalBinary()
	closeErr := e.Close()
	if err != nil {
		return nil, fmt.Errorf("seal: %w", err)
	}
	if closeErr != nil {
		memguard.WipeBytes(buf)
		return nil, fmt.Errorf("seal: %w", closeErr)
	}

	// NewEnclave returns nil for an empty encoding.
	return &Sealed[T]{enclave: memguard.NewEnclave(buf)}, nil
}

// Open decrypts the enclave into a new exportable value. The sealed copy
// stays usable; the caller owns and must close the result.
func (s *Sealed[T]) Open() (*protected.Exportable[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed {
		return nil, ErrDestroyed
	}

	var raw []byte
	if s.enclave != nil {
		locked, err := s.enclave.Open()
		if err != nil {
			return nil, fmt.Errorf("open enclave: %w", err)
		}
		defer locked.Destroy()
		raw = locked.Bytes()
	}

	var out protected.Exportable[T]
	if err := out.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return &out, nil
}

// Size is the length of the sealed encoding.
func (s *Sealed[T]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.destroyed || s.enclave == nil {
		return 0
	}
	return s.enclave.Size()
}

// Destroy drops the enclave. It is idempotent.
func (s *Sealed[T]) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyed = true
	s.enclave = nil
}

// IsDestroyed reports whether Destroy has been called.
func (s *Sealed[T]) IsDestroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}
