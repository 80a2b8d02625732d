package permutation

import (
	"fmt"
	"unsafe"

	"github.com/systmms/vitaminc/pkg/protected"
)

// Word is the set of integers whose bits can be permuted.
type Word interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// BitwisePermute consumes in and moves bit k[i] of the input to bit i of
// the output, counting from the most significant bit. The key must have
// one position per bit. A non-zero input stays non-zero.
func BitwisePermute[W Word](k *Key, in *protected.Protected[W]) (*protected.Protected[W], error) {
	var zero W
	width := int(unsafe.Sizeof(zero)) * 8
	if k.n != width {
		return nil, fmt.Errorf("%w: key has %d positions, word has %d bits", ErrSizeMismatch, k.n, width)
	}
	return protected.ZipRef(in, k.idx, func(x W, key *Indices) W {
		var out W
		for i, j := range *key {
			bit := (x >> (width - 1 - int(j))) & 1
			out |= bit << (width - 1 - i)
		}
		return out
	}), nil
}
