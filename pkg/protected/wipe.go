package protected

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/awnumar/memguard"
)

// Zeroizer is implemented by types that wipe themselves. Wrappers call
// Zeroize instead of walking such values.
type Zeroizer interface {
	Zeroize()
}

// nested is implemented by every controlled type, so that a protected value
// stored inside another one is closed rather than walked.
type nested interface {
	closeNested()
	withRootValue(f func(reflect.Value))
	cloneNested() any
}

var (
	zeroizerType = reflect.TypeFor[Zeroizer]()
	nestedType   = reflect.TypeFor[nested]()
)

// typeCache memoizes a per-type check.
type typeCache struct {
	m     sync.Map
	check func(reflect.Type, map[reflect.Type]bool) error
}

func (c *typeCache) get(t reflect.Type) error {
	if v, ok := c.m.Load(t); ok {
		err, _ := v.(error)
		return err
	}
	err := c.check(t, map[reflect.Type]bool{})
	c.m.Store(t, err)
	return err
}

var wipeable = &typeCache{check: checkWipeable}

func mustWipeable[T any]() {
	if err := wipeable.get(reflect.TypeFor[T]()); err != nil {
		panic(err)
	}
}

// implements reports whether t or *t implements iface.
func implements(t, iface reflect.Type) bool {
	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}

func checkWipeable(t reflect.Type, seen map[reflect.Type]bool) error {
	if implements(t, nestedType) || implements(t, zeroizerType) {
		return nil
	}
	if seen[t] {
		return nil
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return nil
	case reflect.Array, reflect.Slice, reflect.Pointer:
		return checkWipeable(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			if err := checkWipeable(t.Field(i).Type, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s cannot be wiped", ErrUnsupportedType, t)
	}
}

// exposed returns a settable view of an addressable value, including
// unexported struct fields.
func exposed(v reflect.Value) reflect.Value {
	if v.CanSet() {
		return v
	}
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

// hook runs the self-wiping behavior of v, if it has one.
func hook(v reflect.Value) bool {
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return false
	}
	switch {
	case v.Type().Implements(nestedType):
		v.Interface().(nested).closeNested()
		return true
	case reflect.PointerTo(v.Type()).Implements(nestedType):
		v.Addr().Interface().(nested).closeNested()
		return true
	case v.Type().Implements(zeroizerType):
		v.Interface().(Zeroizer).Zeroize()
		return true
	case reflect.PointerTo(v.Type()).Implements(zeroizerType):
		v.Addr().Interface().(Zeroizer).Zeroize()
		return true
	}
	return false
}

// wipeValue overwrites an addressable value in place and leaves the zero
// value behind. Byte slices are wiped up to their capacity.
func wipeValue(v reflect.Value) {
	v = exposed(v)
	if hook(v) {
		if v.Kind() == reflect.Pointer {
			v.SetZero()
		}
		return
	}

	switch v.Kind() {
	case reflect.String:
		wipeString(v.String())
		v.SetString("")
	case reflect.Slice:
		if v.IsNil() {
			return
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			memguard.WipeBytes(unsafe.Slice((*byte)(v.UnsafePointer()), v.Cap()))
		} else {
			full := v.Slice3(0, v.Cap(), v.Cap())
			for i := range full.Len() {
				wipeValue(full.Index(i))
			}
		}
		v.SetZero()
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			memguard.WipeBytes(unsafe.Slice((*byte)(unsafe.Pointer(v.UnsafeAddr())), v.Len()))
			return
		}
		for i := range v.Len() {
			wipeValue(v.Index(i))
		}
	case reflect.Struct:
		for i := range v.NumField() {
			wipeValue(v.Field(i))
		}
	case reflect.Pointer:
		if !v.IsNil() {
			wipeValue(v.Elem())
		}
		v.SetZero()
	default:
		v.SetZero()
	}
}

func wipeString(s string) {
	if len(s) == 0 {
		return
	}
	memguard.WipeBytes(unsafe.Slice(unsafe.StringData(s), len(s)))
}

// release shallowly clears *p without touching memory it refers to.
func release[T any](p *T) {
	if !hasPointers(reflect.TypeFor[T]()) {
		memguard.WipeBytes(unsafe.Slice((*byte)(unsafe.Pointer(p)), unsafe.Sizeof(*p)))
		return
	}
	var zero T
	*p = zero
	runtime.KeepAlive(p)
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Slice, reflect.Pointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

// stringSet records the backing arrays of strings a wrapper already owns.
type stringSet map[*byte]struct{}

var stringful = &typeCache{check: checkStringful}

// errHasStrings is a marker stored in the stringful cache.
var errHasStrings = errors.New("has strings")

func checkStringful(t reflect.Type, seen map[reflect.Type]bool) error {
	if implements(t, nestedType) || implements(t, zeroizerType) || seen[t] {
		return nil
	}
	seen[t] = true
	switch t.Kind() {
	case reflect.String:
		return errHasStrings
	case reflect.Array, reflect.Slice, reflect.Pointer:
		return checkStringful(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			if err := checkStringful(t.Field(i).Type, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func hasStrings(t reflect.Type) bool {
	return stringful.get(t) != nil
}

// ownedStrings collects the string data pointers reachable from *p.
func ownedStrings[T any](p *T) stringSet {
	if !hasStrings(reflect.TypeFor[T]()) {
		return nil
	}
	set := stringSet{}
	walkStrings(reflect.ValueOf(p).Elem(), func(v reflect.Value) {
		if s := v.String(); len(s) > 0 {
			set[unsafe.StringData(s)] = struct{}{}
		}
	})
	return set
}

// claim copies every string reachable from *p that is not already owned.
func claim[T any](p *T, owned stringSet) {
	if !hasStrings(reflect.TypeFor[T]()) {
		return
	}
	walkStrings(reflect.ValueOf(p).Elem(), func(v reflect.Value) {
		s := v.String()
		if len(s) == 0 {
			return
		}
		if _, ok := owned[unsafe.StringData(s)]; ok {
			return
		}
		exposed(v).SetString(strings.Clone(s))
	})
}

func walkStrings(v reflect.Value, visit func(reflect.Value)) {
	t := v.Type()
	if implements(t, nestedType) || implements(t, zeroizerType) {
		return
	}
	switch v.Kind() {
	case reflect.String:
		visit(v)
	case reflect.Array, reflect.Slice:
		for i := range v.Len() {
			walkStrings(v.Index(i), visit)
		}
	case reflect.Struct:
		for i := range v.NumField() {
			walkStrings(v.Field(i), visit)
		}
	case reflect.Pointer:
		if !v.IsNil() {
			walkStrings(v.Elem(), visit)
		}
	}
}

// bytesOf returns a read-only view of a string, byte slice or byte array.
func bytesOf(v reflect.Value) []byte {
	switch {
	case v.Kind() == reflect.String:
		s := v.String()
		return unsafe.Slice(unsafe.StringData(s), len(s))
	case v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8:
		if v.IsNil() {
			return nil
		}
		return unsafe.Slice((*byte)(v.UnsafePointer()), v.Len())
	case v.Kind() == reflect.Array && v.Type().Elem().Kind() == reflect.Uint8 && v.CanAddr():
		return unsafe.Slice((*byte)(unsafe.Pointer(v.UnsafeAddr())), v.Len())
	}
	panic(fmt.Errorf("%w: %s is not a byte sequence", ErrUnsupportedType, v.Type()))
}

// deepCopy copies src into the settable dst without sharing memory.
func deepCopy(dst, src reflect.Value) {
	dst = exposed(dst)
	if src.CanAddr() {
		src = exposed(src)
	}
	t := src.Type()
	if src.Kind() == reflect.Pointer && !src.IsNil() && t.Implements(nestedType) {
		dst.Set(reflect.ValueOf(src.Interface().(nested).cloneNested()))
		return
	}

	switch src.Kind() {
	case reflect.String:
		dst.SetString(strings.Clone(src.String()))
	case reflect.Slice:
		if src.IsNil() {
			dst.SetZero()
			return
		}
		out := reflect.MakeSlice(t, src.Len(), src.Len())
		for i := range src.Len() {
			deepCopy(out.Index(i), src.Index(i))
		}
		dst.Set(out)
	case reflect.Array:
		for i := range src.Len() {
			deepCopy(dst.Index(i), src.Index(i))
		}
	case reflect.Struct:
		if implements(t, zeroizerType) {
			dst.Set(src)
			return
		}
		for i := range src.NumField() {
			deepCopy(dst.Field(i), src.Field(i))
		}
	case reflect.Pointer:
		if src.IsNil() {
			dst.SetZero()
			return
		}
		out := reflect.New(t.Elem())
		deepCopy(out.Elem(), src.Elem())
		dst.Set(out)
	default:
		dst.Set(src)
	}
}
