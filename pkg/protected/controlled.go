package protected

import (
	"fmt"
	"log/slog"
	"reflect"
)

// Controlled is the contract shared by Protected and every adapter.
//
// The interface is sealed: only types in this package implement it. Code
// that needs to accept "any protected value of T" should take a
// Controlled[T]; code that needs a capability should take the adapter type
// (or use AsEquatable / AsExportable).
type Controlled[T any] interface {
	// RiskyUnwrap returns the raw value and consumes the chain. The wrapper
	// no longer wipes anything; the returned value belongs to the caller.
	RiskyUnwrap() T
	// Update runs f against the value in place.
	Update(f func(*T))
	// Zeroize wipes the value, leaving the zero value behind.
	Zeroize()
	// Close wipes the value and consumes the chain. Close is idempotent.
	Close() error

	fmt.Stringer
	slog.LogValuer

	root() *Protected[T]
	chain() layers
	viewBytes(f func([]byte))
}

type layerKind uint8

const (
	layerEquatable layerKind = iota + 1
	layerExportable
	layerUsage
)

type layer struct {
	kind  layerKind
	scope string
}

// layers lists the adapters of a chain, outermost first. The root
// Protected is implied.
type layers []layer

func (ls layers) has(kind layerKind) bool {
	for _, l := range ls {
		if l.kind == kind {
			return true
		}
	}
	return false
}

func (ls layers) push(l layer) layers {
	out := make(layers, 0, len(ls)+1)
	out = append(out, l)
	return append(out, ls...)
}

// rewrap rebuilds a chain with the given layers around a new root.
func rewrap[T any](ls layers, p *Protected[T]) Controlled[T] {
	var c Controlled[T] = p
	for i := len(ls) - 1; i >= 0; i-- {
		switch ls[i].kind {
		case layerEquatable:
			c = NewEquatable(c)
		case layerExportable:
			c = NewExportable(c)
		case layerUsage:
			s := &scoped[T]{inner: c, scope: ls[i].scope}
			s.self = s
			c = s
		}
	}
	return c
}

// ByteSource is implemented by every controlled value. Passing a value
// whose raw type is not a string, byte slice or byte array to a function
// taking a ByteSource panics with ErrUnsupportedType.
type ByteSource interface {
	viewBytes(f func([]byte))
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
