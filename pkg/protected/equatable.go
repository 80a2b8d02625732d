package protected

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
)

// Equatable grants constant-time equality to the chain it wraps.
type Equatable[T any] struct {
	codec[T]

	inner Controlled[T]
	view  bool
}

// NewEquatable wraps inner. It panics with an error wrapping
// ErrUnsupportedType if T cannot be compared in constant time.
func NewEquatable[T any](inner Controlled[T]) *Equatable[T] {
	mustComparable[T]()
	e := &Equatable[T]{inner: inner}
	e.self = e
	return e
}

// EquatableOf wraps v in Equatable(Protected).
func EquatableOf[T any](v T) *Equatable[T] {
	return NewEquatable[T](New(v))
}

// AsEquatable returns an equality view of c if any layer of its chain is
// Equatable. The view shares c's value.
func AsEquatable[T any](c Controlled[T]) (*Equatable[T], bool) {
	if e, ok := c.(*Equatable[T]); ok {
		return e, true
	}
	if !c.chain().has(layerEquatable) {
		return nil, false
	}
	e := &Equatable[T]{inner: c, view: true}
	e.self = c
	return e, true
}

// ConstantTimeEq compares the value against other's without branching on
// either. other may carry any layers.
func (e *Equatable[T]) ConstantTimeEq(other Controlled[T]) bool {
	var d difference
	d.compareNested(e.root(), other.root())
	return d.equal()
}

// Equal is ConstantTimeEq under the name go-cmp and friends look for.
func (e *Equatable[T]) Equal(other Controlled[T]) bool {
	return e.ConstantTimeEq(other)
}

func (e *Equatable[T]) RiskyUnwrap() T    { return e.inner.RiskyUnwrap() }
func (e *Equatable[T]) Update(f func(*T)) { e.inner.Update(f) }
func (e *Equatable[T]) Zeroize()          { e.inner.Zeroize() }

func (e *Equatable[T]) Close() error {
	if e == nil || e.inner == nil {
		return nil
	}
	return e.inner.Close()
}

func (e *Equatable[T]) root() *Protected[T] { return e.inner.root() }

func (e *Equatable[T]) chain() layers {
	if e.view {
		return e.inner.chain()
	}
	return e.inner.chain().push(layer{kind: layerEquatable})
}

func (e *Equatable[T]) viewBytes(f func([]byte))            { e.root().viewBytes(f) }
func (e *Equatable[T]) closeNested()                        { _ = e.Close() }
func (e *Equatable[T]) withRootValue(f func(reflect.Value)) { e.root().withValue(f) }

func (e *Equatable[T]) cloneNested() any {
	return NewEquatable(rewrap(e.inner.chain(), Clone[T](e)))
}

func (e *Equatable[T]) String() string {
	if e == nil || e.inner == nil {
		return "Equatable(<nil>)"
	}
	if e.view {
		return e.inner.String()
	}
	return "Equatable(" + e.inner.String() + ")"
}

func (e *Equatable[T]) GoString() string { return e.String() }

func (e *Equatable[T]) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, e.String())
}

func (e *Equatable[T]) LogValue() slog.Value {
	return slog.StringValue(e.String())
}
