package aead

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/systmms/vitaminc/pkg/protected"
)

// Core seals and opens protected byte buffers.
type Core interface {
	EncryptWithAAD(plaintext *protected.Protected[[]byte], nonce Nonce, aad []byte) (CipherText, error)
	DecryptWithAAD(ct CipherText, aad []byte) (*protected.Protected[[]byte], error)
}

// sealer adapts a cipher.AEAD with a 12 byte nonce and 16 byte tag.
type sealer struct {
	aead cipher.AEAD
}

func (s sealer) EncryptWithAAD(plaintext *protected.Protected[[]byte], nonce Nonce, aad []byte) (CipherText, error) {
	return NewBuilder().
		AppendNonce(nonce).
		AppendTargetPlaintext(plaintext).
		AcceptsCipherTextAndTag(func(pt []byte) ([]byte, error) {
			return s.aead.Seal(pt[:0], nonce[:], pt, aad), nil
		}).
		Build()
}

func (s sealer) DecryptWithAAD(ct CipherText, aad []byte) (*protected.Protected[[]byte], error) {
	nonce, r := ct.ReadNonce()
	return r.AcceptsPlaintext(func(body []byte) ([]byte, error) {
		pt, err := s.aead.Open(body[:0], nonce[:], body, aad)
		if err != nil {
			return nil, ErrAuthentication
		}
		return pt, nil
	}).Read()
}

// ChaCha20Poly1305 is the RFC 8439 AEAD.
type ChaCha20Poly1305 struct {
	sealer
}

// NewChaCha20Poly1305 keys the cipher. The key is consumed.
func NewChaCha20Poly1305(key protected.Controlled[[32]byte]) (*ChaCha20Poly1305, error) {
	a, err := keyed(key, func(k []byte) (cipher.AEAD, error) { return chacha20poly1305.New(k) })
	if err != nil {
		return nil, err
	}
	return &ChaCha20Poly1305{sealer{aead: a}}, nil
}

// AES256GCM is AES-256 in Galois/Counter Mode.
type AES256GCM struct {
	sealer
}

// NewAES256GCM keys the cipher. The key is consumed.
func NewAES256GCM(key protected.Controlled[[32]byte]) (*AES256GCM, error) {
	a, err := keyed(key, func(k []byte) (cipher.AEAD, error) {
		block, err := aes.NewCipher(k)
		if err != nil {
			return nil, err
		}
		return cipher.NewGCM(block)
	})
	if err != nil {
		return nil, err
	}
	return &AES256GCM{sealer{aead: a}}, nil
}

func keyed(key protected.Controlled[[32]byte], init func([]byte) (cipher.AEAD, error)) (cipher.AEAD, error) {
	var (
		a   cipher.AEAD
		err error
	)
	key.Update(func(k *[32]byte) { a, err = init(k[:]) })
	_ = key.Close()
	if err != nil {
		return nil, fmt.Errorf("aead: keying cipher: %w", err)
	}
	if a.NonceSize() != NonceSize || a.Overhead() != TagSize {
		return nil, fmt.Errorf("%w: cipher uses %d byte nonces and %d byte tags", ErrMalformed, a.NonceSize(), a.Overhead())
	}
	return a, nil
}
