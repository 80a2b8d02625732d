package random

import (
	"math/bits"

	"github.com/systmms/vitaminc/pkg/protected"
)

// NextBounded returns a value in [0, upper]. When upper is a power of two
// the value is masked with upper-1, so upper itself is never returned in
// that case. Otherwise values are drawn modulo the next power of two and
// rejected until one does not exceed upper.
func NextBounded(src Source, upper uint32) uint32 {
	if upper != 0 && upper&(upper-1) == 0 {
		return src.Uint32() & (upper - 1)
	}
	limit := nextPowerOfTwo(upper)
	v := uint32(uint64(src.Uint32()) % limit)
	for v > upper {
		v = uint32(uint64(src.Uint32()) % limit)
	}
	return v
}

// NextBoundedProtected samples with a protected bound. The bound is consumed.
func NextBoundedProtected(src Source, upper *protected.Protected[uint32]) *protected.Protected[uint32] {
	return protected.Map(upper, func(u uint32) uint32 { return NextBounded(src, u) })
}

// NextBelow returns a uniformly distributed value in [0, n). It panics if
// n is zero.
func NextBelow(src Source, n uint32) uint32 {
	if n == 0 {
		panic("random: NextBelow called with n == 0")
	}
	if n&(n-1) == 0 {
		return src.Uint32() & (n - 1)
	}
	hi, lo := bits.Mul32(src.Uint32(), n)
	if lo < n {
		threshold := -n % n
		for lo < threshold {
			hi, lo = bits.Mul32(src.Uint32(), n)
		}
	}
	return hi
}

func nextPowerOfTwo(v uint32) uint64 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len32(v-1)
}
