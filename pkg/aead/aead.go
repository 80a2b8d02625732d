package aead

import (
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/systmms/vitaminc/pkg/protected"
)

// Aead encodes values, seals them with a fresh nonce and reverses the
// process.
type Aead struct {
	core   Core
	nonces NonceGenerator
}

// New pairs a cipher with a nonce source.
func New(core Core, nonces NonceGenerator) *Aead {
	return &Aead{core: core, nonces: nonces}
}

// Encrypt encodes v and seals it.
func (a *Aead) Encrypt(v any) (CipherText, error) {
	return a.EncryptWithAAD(v, nil)
}

// EncryptWithAAD encodes v and seals it, binding aad to the result.
func (a *Aead) EncryptWithAAD(v any, aad []byte) (CipherText, error) {
	pt, err := encode(v)
	if err != nil {
		return nil, err
	}
	nonce, err := a.nonces.Generate()
	if err != nil {
		_ = pt.Close()
		return nil, err
	}
	return a.core.EncryptWithAAD(pt, nonce, aad)
}

// Decrypt opens ct and decodes it into out, which must be a pointer.
func (a *Aead) Decrypt(ct CipherText, out any) error {
	return a.DecryptWithAAD(ct, nil, out)
}

// DecryptWithAAD opens ct, checking aad, and decodes it into out.
func (a *Aead) DecryptWithAAD(ct CipherText, aad []byte, out any) error {
	pt, err := a.core.DecryptWithAAD(ct, aad)
	if err != nil {
		return err
	}
	defer pt.Close()
	pt.Update(func(b *[]byte) { err = msgpack.Unmarshal(*b, out) })
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}

// encode writes the MessagePack form of v straight into protected memory.
func encode(v any) (*protected.Protected[[]byte], error) {
	buf := protected.New(make([]byte, 0, 64))
	enc := msgpack.NewEncoder(protectedWriter{buf: buf})
	if err := enc.Encode(v); err != nil {
		_ = buf.Close()
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf, nil
}

// protectedWriter appends to a protected buffer, wiping every backing
// array it outgrows.
type protectedWriter struct {
	buf *protected.Protected[[]byte]
}

func (w protectedWriter) Write(p []byte) (int, error) {
	w.buf.Update(func(b *[]byte) {
		if cap(*b)-len(*b) < len(p) {
			grown := make([]byte, len(*b), 2*cap(*b)+len(p))
			copy(grown, *b)
			memguard.WipeBytes((*b)[:cap(*b)])
			*b = grown
		}
		*b = append(*b, p...)
	})
	return len(p), nil
}
