// Package fakes provides test doubles for the cloud and OS clients used
// by vitaminc's key stores and KMS integration.
//
// Fakes are hand written rather than generated, and keep their state in
// exported maps so tests can seed and inspect it directly.
//
// Usage:
//
//	fake := fakes.NewFakeSSMClient()
//	store := keystore.NewParameterStore(fake, "/vitaminc/", "")
//	err := keystore.Save(ctx, store, "signing", protected.ExportableOf(key))
//	// fake.Parameters["/vitaminc/signing"] now holds the hex encoding
package fakes
