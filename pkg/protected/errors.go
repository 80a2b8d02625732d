package protected

import "errors"

var (
	// ErrConsumed is the panic value raised when a wrapper is used after it
	// was unwrapped, consumed by a combinator, or closed.
	ErrConsumed = errors.New("protected: value already consumed")

	// ErrNotExportable is returned by marshaling methods on a chain without
	// an Exportable layer.
	ErrNotExportable = errors.New("protected: value is not exportable")

	// ErrNotEquatable is returned by AsEquatable on a chain without an
	// Equatable layer.
	ErrNotEquatable = errors.New("protected: value is not equatable")

	// ErrUnsupportedType is wrapped by the panic raised when a wrapper is
	// constructed over a type that cannot be wiped or compared.
	ErrUnsupportedType = errors.New("protected: unsupported type")

	// ErrLength is returned when a byte sequence does not have the length
	// its destination requires.
	ErrLength = errors.New("protected: invalid length")

	// ErrDecode is wrapped by every decoding failure.
	ErrDecode = errors.New("protected: decode failed")
)
