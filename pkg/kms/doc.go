// Package kms computes HMAC tags with a key held in AWS KMS.
//
// Input is accumulated in protected memory and only leaves the process in
// the GenerateMac request. The tag size picks the algorithm:
//
//	28 bytes  HMAC_SHA_224
//	32 bytes  HMAC_SHA_256
//	48 bytes  HMAC_SHA_384
//	64 bytes  HMAC_SHA_512
//
// Any other size fails to compile.
//
//	tag, err := kms.NewHMAC[[64]byte](client, keyID).
//	    Update(accountKey).
//	    UpdateInfo("account_id").
//	    FinalizeFixed(ctx)
package kms
