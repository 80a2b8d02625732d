// Package protected provides wrapper types for secret values.
//
// A secret held in a *Protected[T] cannot be read, compared, printed or
// serialized by accident. Every capability has to be granted explicitly by
// wrapping the value in an adapter, and the raw value is only reachable
// through an operation whose name makes the risk obvious.
//
// # Layers
//
// The package is built around a small set of composable layers:
//
//   - Protected: the root cell. Holds the value and wipes it on Close.
//   - Equatable: adds constant-time equality.
//   - Exportable: adds serialization (JSON, YAML, msgpack, binary, text).
//   - Usage: binds the value to a Scope, checked by the compiler.
//
// Layers nest in any order and any depth:
//
//	key := protected.NewExportable(protected.NewEquatable(protected.New(raw)))
//	defer key.Close()
//
// Adapters that are not the outermost layer still count. Equality works on
// Exportable(Equatable(Protected)) through AsEquatable, and serialization
// works on Equatable(Exportable(Protected)) through the marshaling methods
// every layer carries. Those methods fail with ErrNotExportable unless an
// Exportable layer is present somewhere in the chain.
//
// # Lifetime
//
// Values are wiped exactly once. Close (or Zeroize, which keeps the value
// usable as its zero value) overwrites the value in place, following byte
// slices, strings, arrays, struct fields and pointers. Nested protected
// values are closed instead of walked. A value that is never closed is
// wiped by a runtime cleanup when the wrapper becomes unreachable.
//
// RiskyUnwrap hands the raw value to the caller and disarms the wrapper.
// The caller owns the returned memory; the wrapper wipes nothing afterwards.
// Any further use of a consumed or closed wrapper panics with ErrConsumed.
//
// Strings are copied into wrapper-owned memory on entry, since string
// literals live in read-only memory and cannot be overwritten. Byte slices
// are taken over as-is: the caller must not keep using the slice it passed.
//
// # Supported types
//
// Wipeable types are booleans, numbers, strings, arrays, slices, structs and
// pointers built from those, plus any type implementing Zeroizer. Maps,
// channels, functions, interfaces and unsafe pointers are rejected with a
// panic wrapping ErrUnsupportedType when a wrapper is constructed.
//
// # Formatting
//
// All wrappers implement fmt.Formatter, fmt.Stringer, fmt.GoStringer and
// slog.LogValuer. None of them ever print the value:
//
//	fmt.Println(protected.New([32]byte{})) // Protected[[32]uint8]{ ... }
package protected
