// Package permutation implements keyed permutations over protected
// sequences and over the bits of protected integers.
//
// A Key is a secret ordering of the indices 0..n-1 for n in 8, 16, 32, 64
// or 128. Permute moves element k[i] of the input to position i and
// Depermute undoes it:
//
//	key, _ := permutation.Generate(rng, 16)
//	shuffled, _ := permutation.Permute(key, values)
//	restored, _ := permutation.Depermute(key, shuffled)
package permutation
