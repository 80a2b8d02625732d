// Package aead seals values with an authenticated cipher without letting
// plaintext escape protected memory.
//
// Cipher texts are framed as nonce || ciphertext || tag. The framing is
// built and read through staged builders so that the plaintext buffer is
// encrypted in place and wiped on every failure path.
//
//	core, err := aead.NewChaCha20Poly1305(key)
//	nonces, err := aead.NewRandomNonceGenerator()
//	box := aead.New(core, nonces)
//
//	ct, err := box.Encrypt(protected.ExportableOf(secret))
//	var out protected.Exportable[[32]byte]
//	err = box.Decrypt(ct, &out)
//
// Values are encoded with MessagePack before sealing. Protected values
// take part through their Exportable layer; anything else is encoded by
// msgpack directly.
package aead
