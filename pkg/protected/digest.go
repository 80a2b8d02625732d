package protected

import (
	"fmt"
	"hash"
	"unsafe"

	"github.com/awnumar/memguard"
)

// DigestArray is the set of array types a digest or MAC can be stored in.
// Other sizes do not satisfy the constraint and fail to compile.
type DigestArray interface {
	~[16]byte | ~[20]byte | ~[28]byte | ~[32]byte | ~[48]byte | ~[64]byte
}

func arrayBytes[A DigestArray](a *A) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(a)), unsafe.Sizeof(*a))
}

// FromDigest copies sum into a protected array and wipes sum. It fails
// with ErrLength if sum does not fill A exactly.
func FromDigest[A DigestArray](sum []byte) (*Protected[A], error) {
	defer memguard.WipeBytes(sum)
	var a A
	dst := arrayBytes(&a)
	if len(sum) != len(dst) {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrLength, len(dst), len(sum))
	}
	copy(dst, sum)
	return adopt(a), nil
}

// Digest feeds protected input into a hash and yields a protected sum.
type Digest[A DigestArray] struct {
	h hash.Hash
}

// NewDigest wraps the hash returned by newHash, whose output size must
// match A.
//
//	d, err := protected.NewDigest[[32]byte](sha256.New)
func NewDigest[A DigestArray](newHash func() hash.Hash) (*Digest[A], error) {
	h := newHash()
	var a A
	if h.Size() != len(arrayBytes(&a)) {
		return nil, fmt.Errorf("%w: hash size %d does not fit %T", ErrLength, h.Size(), a)
	}
	return &Digest[A]{h: h}, nil
}

// Update feeds the bytes of data into the hash. data is not consumed.
func (d *Digest[A]) Update(data ByteSource) *Digest[A] {
	data.viewBytes(func(b []byte) { _, _ = d.h.Write(b) })
	return d
}

// Finalize returns the sum and resets the hash.
func (d *Digest[A]) Finalize() *Protected[A] {
	var a A
	d.h.Sum(arrayBytes(&a)[:0])
	d.h.Reset()
	return adopt(a)
}
