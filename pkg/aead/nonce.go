package aead

import (
	"fmt"

	"github.com/systmms/vitaminc/pkg/random"
)

// NonceGenerator produces a fresh nonce per message.
type NonceGenerator interface {
	Generate() (Nonce, error)
}

// RandomNonceGenerator draws nonces from a SafeRand. With 96-bit nonces
// a single key should seal well under 2^32 messages.
type RandomNonceGenerator struct {
	rng random.Filler
}

// NewRandomNonceGenerator seeds a generator from the operating system.
func NewRandomNonceGenerator() (*RandomNonceGenerator, error) {
	rng, err := random.FromEntropy()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNonce, err)
	}
	return &RandomNonceGenerator{rng: rng}, nil
}

// NonceGeneratorFrom draws nonces from rng.
func NonceGeneratorFrom(rng random.Filler) *RandomNonceGenerator {
	return &RandomNonceGenerator{rng: rng}
}

func (g *RandomNonceGenerator) Generate() (Nonce, error) {
	var n Nonce
	if err := g.rng.Fill(n[:]); err != nil {
		return Nonce{}, fmt.Errorf("%w: %w", ErrNonce, err)
	}
	return n, nil
}
