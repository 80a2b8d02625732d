package protected

import (
	"crypto/subtle"
	"fmt"
	"math"
	"reflect"
)

// Equaler lets custom types provide their own constant-time comparison.
// It is consulted for values of T found anywhere inside a compared value.
type Equaler[T any] interface {
	ConstantTimeEq(other T) bool
}

var constantTime = &typeCache{check: checkComparable}

func mustComparable[T any]() {
	if err := constantTime.get(reflect.TypeFor[T]()); err != nil {
		panic(err)
	}
}

func hasEqualer(t reflect.Type) bool {
	m, ok := reflect.PointerTo(t).MethodByName("ConstantTimeEq")
	if !ok {
		return false
	}
	mt := m.Type
	return mt.NumIn() == 2 && mt.In(1) == t && mt.NumOut() == 1 && mt.Out(0).Kind() == reflect.Bool
}

func checkComparable(t reflect.Type, seen map[reflect.Type]bool) error {
	if implements(t, nestedType) || hasEqualer(t) || seen[t] {
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
		return checkComparable(t.Elem(), seen)
	case reflect.Struct:
		for i := range t.NumField() {
			if err := checkComparable(t.Field(i).Type, seen); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %s cannot be compared in constant time", ErrUnsupportedType, t)
	}
}

// ConstantTimeEq compares two raw values without branching on their
// contents. Lengths of strings and slices are compared first and are not
// hidden. Floats compare by bit pattern.
func ConstantTimeEq[T any](a, b T) bool {
	mustComparable[T]()
	var d difference
	d.compare(reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem())
	release(&a)
	release(&b)
	return d.equal()
}

// difference accumulates the XOR of every compared word.
type difference struct {
	acc uint64
}

// equal reports whether no difference was seen: ((x | -x) >> 63) ^ 1.
func (d *difference) equal() bool {
	x := d.acc
	return ((x|-x)>>63)^1 == 1
}

func (d *difference) mismatch() { d.acc |= 1 }

func bit(b bool) uint64 {
	var x uint64
	if b {
		x = 1
	}
	return x
}

func (d *difference) bytes(a, b []byte) {
	if len(a) != len(b) {
		d.mismatch()
		return
	}
	d.acc |= uint64(subtle.ConstantTimeCompare(a, b) ^ 1)
}

func (d *difference) compareNested(a, b nested) {
	a.withRootValue(func(av reflect.Value) {
		b.withRootValue(func(bv reflect.Value) { d.compare(av, bv) })
	})
}

func (d *difference) compare(a, b reflect.Value) {
	a, b = exposed(a), exposed(b)
	t := a.Type()

	if implements(t, nestedType) {
		if t.Kind() == reflect.Pointer {
			if a.IsNil() != b.IsNil() {
				d.mismatch()
				return
			}
			if a.IsNil() {
				return
			}
			d.compareNested(a.Interface().(nested), b.Interface().(nested))
			return
		}
		d.compareNested(a.Addr().Interface().(nested), b.Addr().Interface().(nested))
		return
	}
	if hasEqualer(t) {
		out := a.Addr().MethodByName("ConstantTimeEq").Call([]reflect.Value{b})
		if !out[0].Bool() {
			d.mismatch()
		}
		return
	}

	switch a.Kind() {
	case reflect.Bool:
		d.acc |= bit(a.Bool()) ^ bit(b.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		d.acc |= uint64(a.Int() ^ b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		d.acc |= a.Uint() ^ b.Uint()
	case reflect.Float32:
		d.acc |= uint64(math.Float32bits(float32(a.Float())) ^ math.Float32bits(float32(b.Float())))
	case reflect.Float64:
		d.acc |= math.Float64bits(a.Float()) ^ math.Float64bits(b.Float())
	case reflect.Complex64, reflect.Complex128:
		ac, bc := a.Complex(), b.Complex()
		d.acc |= math.Float64bits(real(ac)) ^ math.Float64bits(real(bc))
		d.acc |= math.Float64bits(imag(ac)) ^ math.Float64bits(imag(bc))
	case reflect.String:
		d.bytes(bytesOf(a), bytesOf(b))
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			d.bytes(bytesOf(a), bytesOf(b))
			return
		}
		if a.Len() != b.Len() {
			d.mismatch()
			return
		}
		for i := range a.Len() {
			d.compare(a.Index(i), b.Index(i))
		}
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			d.bytes(bytesOf(a), bytesOf(b))
			return
		}
		for i := range a.Len() {
			d.compare(a.Index(i), b.Index(i))
		}
	case reflect.Struct:
		for i := range a.NumField() {
			d.compare(a.Field(i), b.Field(i))
		}
	case reflect.Pointer:
		if a.IsNil() != b.IsNil() {
			d.mismatch()
			return
		}
		if !a.IsNil() {
			d.compare(a.Elem(), b.Elem())
		}
	}
}
