package protected

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
)

// Scope names a usage context. Scopes are zero-size marker types and exist
// only at compile time:
//
//	type SigningKey struct{}
//
//	func (SigningKey) ScopeName() string { return "signing-key" }
type Scope interface {
	ScopeName() string
}

// DefaultScope is the scope accepted by a bare Protected.
type DefaultScope struct{}

func (DefaultScope) ScopeName() string { return "default" }

// Acceptable is satisfied by controlled values that may be used in scope S:
// *Protected[T] for DefaultScope and *Usage[T, S] for S. A function taking
// an Acceptable[S, T] cannot be handed a value from another scope; the
// mismatch is a compile error.
type Acceptable[S Scope, T any] interface {
	Controlled[T]
	acceptScope(S)
}

// Usage binds a chain to scope S.
type Usage[T any, S Scope] struct {
	codec[T]

	inner Controlled[T]
}

// NewUsage wraps inner in scope S.
//
//	key := protected.NewUsage[SigningKey](protected.New(raw))
func NewUsage[S Scope, T any](inner Controlled[T]) *Usage[T, S] {
	u := &Usage[T, S]{inner: inner}
	u.self = u
	return u
}

// UsageOf wraps v in Usage(Protected) for scope S.
func UsageOf[S Scope, T any](v T) *Usage[T, S] {
	return NewUsage[S, T](New(v))
}

func scopeName[S Scope]() string {
	var s S
	return s.ScopeName()
}

func (u *Usage[T, S]) acceptScope(S) {}

func (u *Usage[T, S]) RiskyUnwrap() T    { return u.inner.RiskyUnwrap() }
func (u *Usage[T, S]) Update(f func(*T)) { u.inner.Update(f) }
func (u *Usage[T, S]) Zeroize()          { u.inner.Zeroize() }

func (u *Usage[T, S]) Close() error {
	if u == nil || u.inner == nil {
		return nil
	}
	return u.inner.Close()
}

func (u *Usage[T, S]) root() *Protected[T] { return u.inner.root() }

func (u *Usage[T, S]) chain() layers {
	return u.inner.chain().push(layer{kind: layerUsage, scope: scopeName[S]()})
}

func (u *Usage[T, S]) viewBytes(f func([]byte))            { u.root().viewBytes(f) }
func (u *Usage[T, S]) closeNested()                        { _ = u.Close() }
func (u *Usage[T, S]) withRootValue(f func(reflect.Value)) { u.root().withValue(f) }

func (u *Usage[T, S]) cloneNested() any {
	return NewUsage[S](rewrap(u.inner.chain(), Clone[T](u)))
}

func (u *Usage[T, S]) String() string {
	if u == nil || u.inner == nil {
		return "Usage(<nil>)"
	}
	return "Usage[" + scopeName[S]() + "](" + u.inner.String() + ")"
}

func (u *Usage[T, S]) GoString() string { return u.String() }

func (u *Usage[T, S]) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, u.String())
}

func (u *Usage[T, S]) LogValue() slog.Value {
	return slog.StringValue(u.String())
}

// scoped stands in for a Usage layer below the outermost one after a
// combinator changed the value type. It keeps the scope name but no longer
// satisfies Acceptable.
type scoped[T any] struct {
	codec[T]

	inner Controlled[T]
	scope string
}

func (s *scoped[T]) RiskyUnwrap() T    { return s.inner.RiskyUnwrap() }
func (s *scoped[T]) Update(f func(*T)) { s.inner.Update(f) }
func (s *scoped[T]) Zeroize()          { s.inner.Zeroize() }
func (s *scoped[T]) Close() error      { return s.inner.Close() }

func (s *scoped[T]) root() *Protected[T]      { return s.inner.root() }
func (s *scoped[T]) viewBytes(f func([]byte)) { s.inner.viewBytes(f) }

func (s *scoped[T]) chain() layers {
	return s.inner.chain().push(layer{kind: layerUsage, scope: s.scope})
}

func (s *scoped[T]) String() string {
	return "Usage[" + s.scope + "](" + s.inner.String() + ")"
}

func (s *scoped[T]) LogValue() slog.Value {
	return slog.StringValue(s.String())
}
