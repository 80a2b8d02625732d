package random_test

import (
	"encoding/hex"
	mathrand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/pkg/random"
)

func TestFromSeed_ZeroKeyKeystream(t *testing.T) {
	t.Parallel()

	rng := random.FromSeed(protected.Zeroed[[32]byte]())
	defer rng.Close()

	buf := make([]byte, 16)
	require.NoError(t, rng.Fill(buf))
	// ChaCha20 block 0 for the all-zero key and nonce.
	assert.Equal(t, "76b8e0ada0f13d90405d6ae55386bd28", hex.EncodeToString(buf))
}

func TestFromSeed_Deterministic(t *testing.T) {
	t.Parallel()

	a := random.FromSeed(protected.New([32]byte{7, 7, 7}))
	b := random.FromSeed(protected.New([32]byte{7, 7, 7}))

	for range 16 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestFromSeed_ConsumesSeed(t *testing.T) {
	t.Parallel()

	seeds := []struct {
		name string
		seed protected.Controlled[[32]byte]
	}{
		{name: "protected", seed: protected.New([32]byte{7})},
		{name: "equatable", seed: protected.EquatableOf([32]byte{7})},
	}

	for _, tt := range seeds {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rng := random.FromSeed(tt.seed)
			defer rng.Close()

			assert.PanicsWithError(t, protected.ErrConsumed.Error(), func() { tt.seed.RiskyUnwrap() })
		})
	}
}

func TestFromEntropy(t *testing.T) {
	t.Parallel()

	a, err := random.FromEntropy()
	require.NoError(t, err)
	b, err := random.FromEntropy()
	require.NoError(t, err)

	x, y := make([]byte, 32), make([]byte, 32)
	n, err := a.Read(x)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	require.NoError(t, b.Fill(y))
	assert.NotEqual(t, x, y)
}

func TestSafeRand_Close(t *testing.T) {
	t.Parallel()

	rng, err := random.FromEntropy()
	require.NoError(t, err)
	require.NoError(t, rng.Close())
	require.NoError(t, rng.Close())

	err = rng.Fill(make([]byte, 4))
	assert.ErrorIs(t, err, random.ErrClosed)
	assert.ErrorIs(t, err, random.ErrGenerationFailed)
	assert.Panics(t, func() { rng.Uint32() })
}

func TestSafeRand_MathRandSource(t *testing.T) {
	t.Parallel()

	rng := random.FromSeed(protected.New([32]byte{42}))
	defer rng.Close()

	r := mathrand.New(rng)
	perm := r.Perm(10)
	assert.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, perm)
}

func BenchmarkSafeRand_Uint32(b *testing.B) {
	rng, err := random.FromEntropy()
	require.NoError(b, err)
	defer rng.Close()

	for b.Loop() {
		_ = rng.Uint32()
	}
}
