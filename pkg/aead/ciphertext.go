package aead

import (
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/systmms/vitaminc/pkg/protected"
)

const (
	// NonceSize is the nonce length of every supported cipher.
	NonceSize = 12
	// TagSize is the authentication tag length of every supported cipher.
	TagSize = 16
)

// Nonce is a per-message nonce. It is public once sealed.
type Nonce [NonceSize]byte

// CipherText is a sealed message: nonce || ciphertext || tag.
type CipherText []byte

// Builder starts a cipher text. Each stage returns the next one, so the
// parts can only be written in order.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NonceWritten is a builder holding its nonce.
type NonceWritten struct {
	buf []byte
}

// AppendNonce writes the nonce.
func (b *Builder) AppendNonce(n Nonce) *NonceWritten {
	buf := make([]byte, 0, NonceSize)
	return &NonceWritten{buf: append(buf, n[:]...)}
}

// PlaintextWritten is a builder holding the plaintext that is about to be
// sealed in place.
type PlaintextWritten struct {
	buf []byte
	n   int
}

// AppendTargetPlaintext consumes plaintext and copies it after the nonce,
// reserving room for the tag.
func (w *NonceWritten) AppendTargetPlaintext(plaintext *protected.Protected[[]byte]) *PlaintextWritten {
	pt := plaintext.RiskyUnwrap()
	defer memguard.WipeBytes(pt[:cap(pt)])
	buf := make([]byte, len(w.buf)+len(pt), len(w.buf)+len(pt)+TagSize)
	copy(buf, w.buf)
	copy(buf[len(w.buf):], pt)
	return &PlaintextWritten{buf: buf, n: len(pt)}
}

// Sealed is a builder whose plaintext has been replaced by cipher text
// and tag.
type Sealed struct {
	buf []byte
	err error
}

// AcceptsCipherTextAndTag hands the plaintext region to seal, which must
// encrypt it in place and return the cipher text with the tag appended.
// The region has spare capacity for the tag. On error the buffer is wiped.
func (p *PlaintextWritten) AcceptsCipherTextAndTag(seal func(plaintext []byte) ([]byte, error)) *Sealed {
	region := p.buf[NonceSize:]
	out, err := seal(region)
	if err != nil {
		memguard.WipeBytes(p.buf[:cap(p.buf)])
		return &Sealed{err: err}
	}
	if len(out) != p.n+TagSize || &out[0] != &p.buf[:cap(p.buf)][NonceSize] {
		memguard.WipeBytes(p.buf[:cap(p.buf)])
		return &Sealed{err: fmt.Errorf("%w: sealed region has %d bytes, want %d in place", ErrMalformed, len(out), p.n+TagSize)}
	}
	return &Sealed{buf: p.buf[:NonceSize+len(out)]}
}

// Build returns the finished cipher text.
func (s *Sealed) Build() (CipherText, error) {
	if s.err != nil {
		return nil, s.err
	}
	return CipherText(s.buf), nil
}

// Reader splits a cipher text back into its parts.
type Reader struct {
	nonce Nonce
	body  []byte
	err   error
}

// ReadNonce splits off the nonce. The body is copied so that opening it
// in place leaves the cipher text intact.
func (c CipherText) ReadNonce() (Nonce, *Reader) {
	var n Nonce
	if len(c) < NonceSize+TagSize {
		return n, &Reader{err: fmt.Errorf("%w: %d bytes", ErrMalformed, len(c))}
	}
	copy(n[:], c[:NonceSize])
	body := make([]byte, len(c)-NonceSize)
	copy(body, c[NonceSize:])
	return n, &Reader{nonce: n, body: body}
}

// Opened is a reader whose body has been decrypted.
type Opened struct {
	plaintext []byte
	err       error
}

// AcceptsPlaintext hands cipher text and tag to open, which must decrypt
// in place and return the plaintext. On error the body is wiped.
func (r *Reader) AcceptsPlaintext(open func(body []byte) ([]byte, error)) *Opened {
	if r.err != nil {
		return &Opened{err: r.err}
	}
	pt, err := open(r.body)
	if err != nil {
		memguard.WipeBytes(r.body)
		return &Opened{err: err}
	}
	return &Opened{plaintext: pt}
}

// Read returns the protected plaintext.
func (o *Opened) Read() (*protected.Protected[[]byte], error) {
	if o.err != nil {
		return nil, o.err
	}
	return protected.New(o.plaintext), nil
}
