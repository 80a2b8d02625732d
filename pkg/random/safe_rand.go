package random

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20"

	"github.com/systmms/vitaminc/pkg/protected"
)

var (
	// ErrGenerationFailed is returned when random bytes could not be produced.
	ErrGenerationFailed = errors.New("random: generation failed")

	// ErrClosed is returned by a SafeRand after Close.
	ErrClosed = errors.New("random: generator closed")
)

// Source yields uniformly distributed 32-bit values.
type Source interface {
	Uint32() uint32
}

// Filler fills a buffer with random bytes.
type Filler interface {
	Fill(b []byte) error
}

// SafeRand is a cryptographically secure generator backed by a ChaCha20
// keystream. It is safe for concurrent use.
type SafeRand struct {
	mu     sync.Mutex
	cipher *chacha20.Cipher
}

// FromEntropy seeds a generator from the operating system.
func FromEntropy() (*SafeRand, error) {
	var seed [chacha20.KeySize]byte
	defer memguard.WipeBytes(seed[:])
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("%w: reading entropy: %w", ErrGenerationFailed, err)
	}
	return newSafeRand(seed[:]), nil
}

// FromSeed returns a deterministic generator for seed. The seed is
// consumed and wiped.
func FromSeed(seed protected.Controlled[[32]byte]) *SafeRand {
	var r *SafeRand
	seed.Update(func(s *[32]byte) { r = newSafeRand(s[:]) })
	_ = seed.Close()
	return r
}

func newSafeRand(key []byte) *SafeRand {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce[:])
	if err != nil {
		// key and nonce sizes are fixed
		panic(err)
	}
	return &SafeRand{cipher: c}
}

// Fill overwrites b with keystream bytes.
func (r *SafeRand) Fill(b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cipher == nil {
		return fmt.Errorf("%w: %w", ErrGenerationFailed, ErrClosed)
	}
	clear(b)
	r.cipher.XORKeyStream(b, b)
	return nil
}

// Read implements io.Reader so a SafeRand can feed crypto APIs directly.
func (r *SafeRand) Read(b []byte) (int, error) {
	if err := r.Fill(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Uint32 returns the next 32 bits of keystream. It panics if the generator
// is closed.
func (r *SafeRand) Uint32() uint32 {
	var buf [4]byte
	r.mustFill(buf[:])
	v := binary.LittleEndian.Uint32(buf[:])
	clear(buf[:])
	return v
}

// Uint64 returns the next 64 bits of keystream, making SafeRand usable as
// a math/rand/v2 Source. It panics if the generator is closed.
func (r *SafeRand) Uint64() uint64 {
	var buf [8]byte
	r.mustFill(buf[:])
	v := binary.LittleEndian.Uint64(buf[:])
	clear(buf[:])
	return v
}

func (r *SafeRand) mustFill(b []byte) {
	if err := r.Fill(b); err != nil {
		panic(err)
	}
}

// Close wipes the keystream state. Further use fails with ErrClosed.
func (r *SafeRand) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cipher != nil {
		*r.cipher = chacha20.Cipher{}
		r.cipher = nil
	}
	return nil
}
