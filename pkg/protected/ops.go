package protected

import (
	"fmt"
	"iter"
	"reflect"
	"unsafe"

	"github.com/awnumar/memguard"
)

// Map consumes p and wraps f's result. f takes ownership of the raw value.
func Map[T, U any](p *Protected[T], f func(T) U) *Protected[U] {
	mustWipeable[U]()
	return mapRoot(p, f)
}

// MapControlled consumes c and rebuilds its chain of layers around f's
// result. Usage layers keep their scope name.
func MapControlled[T, U any](c Controlled[T], f func(T) U) Controlled[U] {
	mustWipeable[U]()
	ls := c.chain()
	return rewrap(ls, mapRoot(c, f))
}

// MapEquatable is MapControlled for an Equatable-topped chain.
func MapEquatable[T, U any](e *Equatable[T], f func(T) U) *Equatable[U] {
	out, _ := AsEquatable(MapControlled[T, U](e, f))
	return out
}

// MapExportable is MapControlled for an Exportable-topped chain.
func MapExportable[T, U any](e *Exportable[T], f func(T) U) *Exportable[U] {
	out, _ := AsExportable(MapControlled[T, U](e, f))
	return out
}

// MapUsage is MapControlled for a Usage-topped chain. The result stays
// acceptable in scope S.
func MapUsage[T, U any, S Scope](u *Usage[T, S], f func(T) U) *Usage[U, S] {
	mustWipeable[U]()
	ls := u.inner.chain()
	return NewUsage[S](rewrap(ls, mapRoot(u, f)))
}

func mapRoot[T, U any](c Controlled[T], f func(T) U) *Protected[U] {
	v := c.RiskyUnwrap()
	owned := ownedStrings(&v)
	out := f(v)
	claim(&out, owned)
	return adopt(out)
}

// Zip consumes a and b and wraps f's result.
func Zip[T, U, V any](a Controlled[T], b Controlled[U], f func(T, U) V) *Protected[V] {
	mustWipeable[V]()
	x := a.RiskyUnwrap()
	y := b.RiskyUnwrap()
	owned := ownedStrings(&x)
	for k := range ownedStrings(&y) {
		if owned == nil {
			owned = stringSet{}
		}
		owned[k] = struct{}{}
	}
	out := f(x, y)
	claim(&out, owned)
	return adopt(out)
}

// ZipRef consumes a and reads b in place. f must not retain the pointer.
func ZipRef[T, U, V any](a Controlled[T], b Controlled[U], f func(T, *U) V) *Protected[V] {
	mustWipeable[V]()
	y := b.root()
	y.mustLive()
	x := a.RiskyUnwrap()
	owned := ownedStrings(&x)
	var out V
	y.borrow(func(u *U) { out = f(x, u) })
	claim(&out, owned)
	return adopt(out)
}

// UpdateWith consumes src and folds it into dst.
func UpdateWith[T, U any](dst Controlled[T], src Controlled[U], f func(*T, U)) {
	d := dst.root()
	d.mustLive()
	v := src.RiskyUnwrap()
	d.update(func(t *T) { f(t, v) }, ownedStrings(&v))
	release(&v)
}

// UpdateWithRef folds src into dst without consuming src. f must not
// retain the pointer.
func UpdateWithRef[T, U any](dst Controlled[T], src Controlled[U], f func(*T, *U)) {
	s := src.root()
	s.mustLive()
	dst.Update(func(t *T) {
		s.borrow(func(u *U) { f(t, u) })
	})
}

// AppendBytes appends the bytes of src to dst in place. Growing dst wipes
// its old backing array. src may be dst itself.
func AppendBytes(dst Controlled[[]byte], src ByteSource) {
	dst.Update(func(b *[]byte) {
		src.viewBytes(func(in []byte) {
			if cap(*b)-len(*b) >= len(in) {
				*b = append(*b, in...)
				return
			}
			grown := make([]byte, len(*b), 2*cap(*b)+len(in))
			copy(grown, *b)
			grown = append(grown, in...)
			memguard.WipeBytes((*b)[:cap(*b)])
			*b = grown
		})
	})
}

// Iter yields a protected copy of every element of c, which must hold an
// array or slice of E. The sequence can be ranged over once; later ranges
// yield nothing. c itself is left untouched.
func Iter[T, E any](c Controlled[T]) iter.Seq[*Protected[E]] {
	mustWipeable[E]()
	t := reflect.TypeFor[T]()
	if (t.Kind() != reflect.Array && t.Kind() != reflect.Slice) || t.Elem() != reflect.TypeFor[E]() {
		panic(fmt.Errorf("%w: %s is not a sequence of %s", ErrUnsupportedType, t, reflect.TypeFor[E]()))
	}
	used := false
	return func(yield func(*Protected[E]) bool) {
		if used {
			return
		}
		used = true
		for i := 0; ; i++ {
			var e E
			ok := false
			c.root().withValue(func(v reflect.Value) {
				if i < v.Len() {
					deepCopy(reflect.ValueOf(&e).Elem(), v.Index(i))
					ok = true
				}
			})
			if !ok || !yield(adopt(e)) {
				return
			}
		}
	}
}

// Clone returns an independent copy of c's value.
func Clone[T any](c Controlled[T]) *Protected[T] {
	var v T
	c.root().withValue(func(src reflect.Value) {
		deepCopy(reflect.ValueOf(&v).Elem(), src)
	})
	return adopt(v)
}

// Flatten removes one level of nesting.
func Flatten[T any](p *Protected[*Protected[T]]) *Protected[T] {
	return p.RiskyUnwrap()
}

// Transpose turns a protected pointer into a protected value. It reports
// false, and consumes p, if the pointer was nil.
func Transpose[T any](p *Protected[*T]) (*Protected[T], bool) {
	ptr := p.RiskyUnwrap()
	if ptr == nil {
		return nil, false
	}
	v := *ptr
	release(ptr)
	return adopt(v), true
}

// FlattenSlice consumes every element of ps into one protected slice.
func FlattenSlice[T any](ps []*Protected[T]) *Protected[[]T] {
	out := make([]T, len(ps))
	for i, p := range ps {
		out[i] = p.RiskyUnwrap()
	}
	return adopt(out)
}

// BytesToString consumes b and reinterprets its bytes as a string without
// copying. Closing the result wipes the shared memory.
func BytesToString(b *Protected[[]byte]) *Protected[string] {
	raw := b.RiskyUnwrap()
	memguard.WipeBytes(raw[len(raw):cap(raw)])
	if len(raw) == 0 {
		return adopt("")
	}
	return adopt(unsafe.String(&raw[0], len(raw)))
}

// Integer is the set of integer types Xor accepts.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Xor consumes a and b and returns a ^ b.
func Xor[T Integer](a, b Controlled[T]) *Protected[T] {
	return Zip(a, b, func(x, y T) T { return x ^ y })
}

// XorBytes consumes a and b, which must have equal length, and returns
// their bytewise XOR.
func XorBytes(a, b Controlled[[]byte]) (*Protected[[]byte], error) {
	var na, nb int
	a.viewBytes(func(x []byte) { na = len(x) })
	b.viewBytes(func(y []byte) { nb = len(y) })
	if na != nb {
		return nil, fmt.Errorf("%w: %d and %d bytes", ErrLength, na, nb)
	}
	return Zip(a, b, func(x, y []byte) []byte {
		for i := range x {
			x[i] ^= y[i]
		}
		memguard.WipeBytes(y)
		return x
	}), nil
}
