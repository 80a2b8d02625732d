package permutation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/pkg/random"
)

var (
	// ErrInvalidSize is returned for key sizes other than 8, 16, 32, 64 or 128.
	ErrInvalidSize = errors.New("permutation: invalid key size")

	// ErrNotPermutation is returned when indices do not form a permutation.
	ErrNotPermutation = errors.New("permutation: indices are not a permutation")

	// ErrSizeMismatch is returned when a key and its input differ in length.
	ErrSizeMismatch = errors.New("permutation: key and input sizes differ")
)

// Sizes lists the supported key sizes.
var Sizes = []int{8, 16, 32, 64, 128}

// Indices is the raw form of a key. Decoding rejects anything that is not
// a permutation of a supported size.
type Indices []byte

func (ix *Indices) SafeSerialize(s protected.Sink) error {
	b := []byte(*ix)
	return protected.EncodeField(s, &b)
}

func (ix *Indices) SafeDeserialize(src protected.Source) error {
	var b []byte
	if err := protected.DecodeField(src, &b); err != nil {
		return err
	}
	if err := validate(b); err != nil {
		clear(b)
		return fmt.Errorf("%w: %w", protected.ErrDecode, err)
	}
	*ix = b
	return nil
}

// Key is a protected permutation of 0..n-1.
type Key struct {
	idx *protected.Protected[Indices]
	n   int
}

// Generate draws a uniformly random key of size n with a Fisher-Yates
// shuffle.
func Generate(rng random.Source, n int) (*Key, error) {
	if !slices.Contains(Sizes, n) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	idx := protected.New(make(Indices, n))
	idx.Update(func(ix *Indices) {
		for i := range *ix {
			(*ix)[i] = byte(i)
		}
		for i := n - 1; i > 0; i-- {
			j := random.NextBelow(rng, uint32(i+1))
			(*ix)[i], (*ix)[j] = (*ix)[j], (*ix)[i]
		}
	})
	return &Key{idx: idx, n: n}, nil
}

// NewKeyUnchecked takes over indices without validating them. Callers
// must already know they form a permutation.
func NewKeyUnchecked(indices []byte) *Key {
	return &Key{idx: protected.New(Indices(indices)), n: len(indices)}
}

// KeyFromIndices validates and takes over indices. On failure indices are
// wiped.
func KeyFromIndices(indices []byte) (*Key, error) {
	if err := validate(indices); err != nil {
		clear(indices)
		return nil, err
	}
	return NewKeyUnchecked(indices), nil
}

// Import builds a key from a decoded export. The source is consumed.
func Import(c protected.Controlled[Indices]) (*Key, error) {
	ix := c.RiskyUnwrap()
	return KeyFromIndices(ix)
}

// Export returns an exportable copy of the key.
func (k *Key) Export() *protected.Exportable[Indices] {
	return protected.NewExportable(protected.Clone[Indices](k.idx))
}

// Len is the number of positions the key permutes.
func (k *Key) Len() int { return k.n }

// Compose returns the key equivalent to applying first and then k.
func (k *Key) Compose(first *Key) (*Key, error) {
	if k.n != first.n {
		return nil, fmt.Errorf("%w: %d and %d", ErrSizeMismatch, k.n, first.n)
	}
	out := protected.ZipRef(protected.Clone[Indices](first.idx), k.idx, func(f Indices, key *Indices) Indices {
		defer clear(f)
		return Indices(apply[byte](*key, f))
	})
	return &Key{idx: out, n: k.n}, nil
}

// Close wipes the key.
func (k *Key) Close() error {
	return k.idx.Close()
}

func (k *Key) String() string {
	return fmt.Sprintf("permutation.Key[%d]{ ... }", k.n)
}

func validate(indices []byte) error {
	if !slices.Contains(Sizes, len(indices)) {
		return fmt.Errorf("%w: %d", ErrInvalidSize, len(indices))
	}
	var seen [128]bool
	bad := false
	for _, v := range indices {
		if int(v) >= len(indices) || seen[v] {
			bad = true
			continue
		}
		seen[v] = true
	}
	if bad {
		return ErrNotPermutation
	}
	return nil
}
