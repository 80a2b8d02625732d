package permutation

import (
	"fmt"

	"github.com/systmms/vitaminc/pkg/protected"
)

// Element is the set of element types a key can permute.
type Element interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Permute consumes in and returns out with out[i] = in[k[i]]. On a size
// mismatch in is left untouched.
func Permute[E Element](k *Key, in *protected.Protected[[]E]) (*protected.Protected[[]E], error) {
	return reorder(k, in, apply[E])
}

// Depermute consumes in and returns out with out[k[i]] = in[i], undoing
// Permute.
func Depermute[E Element](k *Key, in *protected.Protected[[]E]) (*protected.Protected[[]E], error) {
	return reorder(k, in, invert[E])
}

func reorder[E Element](k *Key, in *protected.Protected[[]E], f func(Indices, []E) []E) (*protected.Protected[[]E], error) {
	var n int
	in.Update(func(s *[]E) { n = len(*s) })
	if n != k.n {
		return nil, fmt.Errorf("%w: key has %d positions, input %d", ErrSizeMismatch, k.n, n)
	}
	return protected.ZipRef(in, k.idx, func(src []E, key *Indices) []E {
		defer clear(src)
		return f(*key, src)
	}), nil
}

func apply[E Element](key Indices, src []E) []E {
	out := make([]E, len(src))
	for i, j := range key {
		out[i] = src[j]
	}
	return out
}

func invert[E Element](key Indices, src []E) []E {
	out := make([]E, len(src))
	for i, j := range key {
		out[j] = src[i]
	}
	return out
}
