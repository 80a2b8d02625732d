// Package random generates secret values straight into protected memory.
//
// SafeRand is a ChaCha20 keystream generator seeded from the operating
// system. It is the only generator the rest of the module accepts for key
// material, nonces, permutation keys and passwords.
//
//	rng, err := random.FromEntropy()
//	if err != nil {
//	    return err
//	}
//	defer rng.Close()
//
//	key, err := random.Array[[32]byte](rng)
//
// Bounded sampling comes in two flavours. NextBounded returns a value in
// [0, max] and NextBelow a value in [0, n). Both use rejection sampling so
// the result carries no modulo bias.
package random
