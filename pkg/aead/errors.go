package aead

import "errors"

var (
	// ErrEncode is returned when a plaintext value cannot be encoded.
	ErrEncode = errors.New("aead: encoding failed")

	// ErrDecode is returned when an opened plaintext cannot be decoded.
	ErrDecode = errors.New("aead: decoding failed")

	// ErrAuthentication is returned when a cipher text fails to open. The
	// cause is never reported in more detail.
	ErrAuthentication = errors.New("aead: message authentication failed")

	// ErrMalformed is returned for cipher texts too short to hold a nonce
	// and tag, or builders used out of order.
	ErrMalformed = errors.New("aead: malformed cipher text")

	// ErrNonce is returned when a nonce could not be generated.
	ErrNonce = errors.New("aead: nonce generation failed")
)
