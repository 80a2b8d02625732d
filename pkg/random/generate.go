package random

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"

	"github.com/awnumar/memguard"

	"github.com/systmms/vitaminc/pkg/protected"
)

// ByteArray is the set of fixed-size arrays Array can fill.
type ByteArray interface {
	~[8]byte | ~[12]byte | ~[16]byte | ~[24]byte | ~[32]byte | ~[48]byte | ~[64]byte
}

// Array fills a protected array in place, without an intermediate copy.
func Array[A ByteArray](rng Filler) (*protected.Protected[A], error) {
	p := protected.Zeroed[A]()
	var err error
	p.Update(func(a *A) {
		err = rng.Fill(unsafe.Slice((*byte)(unsafe.Pointer(a)), unsafe.Sizeof(*a)))
	})
	if err != nil {
		_ = p.Close()
		return nil, generationFailed(err)
	}
	return p, nil
}

// Bytes returns n random bytes in protected memory.
func Bytes(rng Filler, n int) (*protected.Protected[[]byte], error) {
	p := protected.New(make([]byte, n))
	var err error
	p.Update(func(b *[]byte) { err = rng.Fill(*b) })
	if err != nil {
		_ = p.Close()
		return nil, generationFailed(err)
	}
	return p, nil
}

// Uint16 returns a protected big-endian 16-bit value.
func Uint16(rng Filler) (*protected.Protected[uint16], error) {
	return protected.GenerateOK(func() (uint16, error) {
		var buf [2]byte
		defer memguard.WipeBytes(buf[:])
		if err := rng.Fill(buf[:]); err != nil {
			return 0, generationFailed(err)
		}
		return binary.BigEndian.Uint16(buf[:]), nil
	})
}

// Uint32 returns a protected big-endian 32-bit value.
func Uint32(rng Filler) (*protected.Protected[uint32], error) {
	return protected.GenerateOK(func() (uint32, error) {
		var buf [4]byte
		defer memguard.WipeBytes(buf[:])
		if err := rng.Fill(buf[:]); err != nil {
			return 0, generationFailed(err)
		}
		return binary.BigEndian.Uint32(buf[:]), nil
	})
}

// Uint64 returns a protected big-endian 64-bit value.
func Uint64(rng Filler) (*protected.Protected[uint64], error) {
	return protected.GenerateOK(func() (uint64, error) {
		var buf [8]byte
		defer memguard.WipeBytes(buf[:])
		if err := rng.Fill(buf[:]); err != nil {
			return 0, generationFailed(err)
		}
		return binary.BigEndian.Uint64(buf[:]), nil
	})
}

// NonZeroUint16 draws until it gets a value other than zero.
func NonZeroUint16(rng Filler) (uint16, error) {
	var buf [2]byte
	defer memguard.WipeBytes(buf[:])
	for {
		if err := rng.Fill(buf[:]); err != nil {
			return 0, generationFailed(err)
		}
		if v := binary.BigEndian.Uint16(buf[:]); v != 0 {
			return v, nil
		}
	}
}

func generationFailed(err error) error {
	if errors.Is(err, ErrGenerationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}
