// Package secure keeps exportable protected values sealed in memguard
// enclaves between uses.
//
// A sealed value is encoded with its binary codec and encrypted under
// memguard's session key (XSalsa20Poly1305). The plaintext only exists
// while Open decodes it back into a fresh protected value:
//
//	sealed, err := secure.Seal(protected.ExportableOf(key))
//	if err != nil {
//	    return err
//	}
//	defer sealed.Destroy()
//
//	key, err := sealed.Open()
//	if err != nil {
//	    return err
//	}
//	defer key.Close()
//
// # Platform Behavior
//
// memguard locks its key material with mlock. On Linux this needs a
// sufficient RLIMIT_MEMLOCK; the enclave itself is ordinary heap memory
// holding ciphertext only.
//
// Call memguard.Purge before exit to destroy the session key.
package secure
