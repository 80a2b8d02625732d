// Package password generates random passwords directly into protected
// memory.
package password

import (
	"errors"
	"fmt"

	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/pkg/random"
)

// Charset is an ordered set of ASCII characters to draw from.
type Charset string

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	digits  = "0123456789"
	symbols = "~`!@#$%^&*()_-+={[}]|\\:;\"'<,>.?/"
)

const (
	// Standard is every printable ASCII character except space.
	Standard Charset = letters + digits + symbols
	// AlphaNumeric is letters and digits.
	AlphaNumeric Charset = letters + digits
	// Alpha is upper and lower case letters.
	Alpha Charset = letters
)

// ErrInvalidLength is returned for non-positive lengths.
var ErrInvalidLength = errors.New("password: length must be positive")

// Generate draws n characters uniformly from charset.
func Generate(rng random.Source, n int, charset Charset) (*protected.Protected[[]byte], error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}
	if len(charset) == 0 {
		return nil, errors.New("password: empty charset")
	}
	out := protected.New(make([]byte, n))
	out.Update(func(b *[]byte) {
		for i := range *b {
			(*b)[i] = charset[random.NextBelow(rng, uint32(len(charset)))]
		}
	})
	return out, nil
}

// GenerateString is Generate returning a protected string.
func GenerateString(rng random.Source, n int, charset Charset) (*protected.Protected[string], error) {
	b, err := Generate(rng, n, charset)
	if err != nil {
		return nil, err
	}
	return protected.BytesToString(b), nil
}

// ParseCharset maps a charset name to its Charset.
func ParseCharset(name string) (Charset, error) {
	switch name {
	case "standard", "":
		return Standard, nil
	case "alnum", "alphanumeric":
		return AlphaNumeric, nil
	case "alpha":
		return Alpha, nil
	}
	return "", fmt.Errorf("password: unknown charset %q", name)
}
