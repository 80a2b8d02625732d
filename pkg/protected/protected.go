package protected

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"runtime"
)

type cellState uint8

const (
	stateLive cellState = iota
	stateConsumed
	stateClosed
)

// Protected is the root wrapper. It owns a heap cell holding the value and
// wipes that cell exactly once: on Close, or from a runtime cleanup if the
// wrapper becomes unreachable first.
//
// A Protected is not safe for concurrent use.
type Protected[T any] struct {
	codec[T]

	cell    *T
	cleanup runtime.Cleanup
	state   cellState
}

// New wraps v. Strings inside v are copied into wrapper-owned memory; byte
// slices are taken over and must not be used by the caller afterwards.
//
// New panics with an error wrapping ErrUnsupportedType if T cannot be wiped.
func New[T any](v T) *Protected[T] {
	mustWipeable[T]()
	claim(&v, nil)
	return adopt(v)
}

// Generate wraps the value returned by f.
func Generate[T any](f func() T) *Protected[T] {
	return New(f())
}

// GenerateOK wraps the value returned by f, or returns f's error
// unchanged. On error the value f returned is wiped.
func GenerateOK[T any](f func() (T, error)) (*Protected[T], error) {
	mustWipeable[T]()
	v, err := f()
	if err != nil {
		wipeValue(reflect.ValueOf(&v).Elem())
		return nil, err
	}
	claim(&v, nil)
	return adopt(v), nil
}

// Zeroed returns a wrapper holding the zero value of T.
func Zeroed[T any]() *Protected[T] {
	var zero T
	return New(zero)
}

// adopt wraps a value whose strings are already owned.
func adopt[T any](v T) *Protected[T] {
	p := &Protected[T]{cell: new(T)}
	p.self = p
	*p.cell = v
	release(&v)
	p.cleanup = runtime.AddCleanup(p, wipeCell[T], p.cell)
	return p
}

func wipeCell[T any](cell *T) {
	wipeValue(reflect.ValueOf(cell).Elem())
}

func (p *Protected[T]) mustLive() {
	if p == nil || p.state != stateLive {
		panic(ErrConsumed)
	}
}

// RiskyUnwrap returns the raw value and disarms the wrapper. Subsequent
// calls on p panic with ErrConsumed; Close becomes a no-op.
func (p *Protected[T]) RiskyUnwrap() T {
	p.mustLive()
	v := *p.cell
	p.disarm(stateConsumed)
	return v
}

func (p *Protected[T]) disarm(next cellState) {
	p.cleanup.Stop()
	release(p.cell)
	p.cell = nil
	p.state = next
}

// Update runs f against the value in place.
func (p *Protected[T]) Update(f func(*T)) {
	p.update(f, nil)
}

func (p *Protected[T]) update(f func(*T), carried stringSet) {
	p.mustLive()
	owned := ownedStrings(p.cell)
	for k := range carried {
		if owned == nil {
			owned = stringSet{}
		}
		owned[k] = struct{}{}
	}
	f(p.cell)
	claim(p.cell, owned)
}

// replace wipes the current value and stores v in its place.
func (p *Protected[T]) replace(v T) {
	p.mustLive()
	wipeValue(reflect.ValueOf(p.cell).Elem())
	*p.cell = v
	release(&v)
}

// Zeroize wipes the value in place. The wrapper stays usable and holds
// the zero value of T. Zeroize on a consumed or closed wrapper does nothing.
func (p *Protected[T]) Zeroize() {
	if p == nil || p.state != stateLive {
		return
	}
	wipeValue(reflect.ValueOf(p.cell).Elem())
}

// Close wipes the value and consumes the wrapper.
func (p *Protected[T]) Close() error {
	if p == nil || p.state != stateLive {
		return nil
	}
	p.cleanup.Stop()
	wipeValue(reflect.ValueOf(p.cell).Elem())
	p.cell = nil
	p.state = stateClosed
	return nil
}

func (p *Protected[T]) root() *Protected[T] { return p }

func (p *Protected[T]) chain() layers { return nil }

func (p *Protected[T]) acceptScope(DefaultScope) {}

// borrow runs f against the live cell. p stays reachable until f returns,
// so its cleanup cannot wipe the cell while f is reading it.
func (p *Protected[T]) borrow(f func(*T)) {
	p.mustLive()
	f(p.cell)
	runtime.KeepAlive(p)
}

func (p *Protected[T]) withValue(f func(reflect.Value)) {
	p.borrow(func(cell *T) { f(reflect.ValueOf(cell).Elem()) })
}

func (p *Protected[T]) viewBytes(f func([]byte)) {
	p.withValue(func(v reflect.Value) { f(bytesOf(v)) })
}

func (p *Protected[T]) closeNested() { _ = p.Close() }

func (p *Protected[T]) withRootValue(f func(reflect.Value)) { p.withValue(f) }

func (p *Protected[T]) cloneNested() any { return Clone[T](p) }

func (p *Protected[T]) String() string {
	return "Protected[" + typeName[T]() + "]{ ... }"
}

func (p *Protected[T]) GoString() string { return p.String() }

// Format prints the redacted form for every verb.
func (p *Protected[T]) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, p.String())
}

func (p *Protected[T]) LogValue() slog.Value {
	return slog.StringValue(p.String())
}
