package protected

import (
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"github.com/awnumar/memguard"
)

// Sink receives the parts of a value being serialized. Human-readable sinks
// receive byte sequences as lowercase hex text; binary sinks receive them
// as length-prefixed blobs.
type Sink interface {
	HumanReadable() bool
	Bool(v bool) error
	Int(v int64, bits int) error
	Uint(v uint64, bits int) error
	Float(v float64, bits int) error
	// Text writes UTF-8 text. The slice is only valid during the call.
	Text(b []byte) error
	// Blob writes raw bytes. The slice is only valid during the call.
	Blob(b []byte) error
	BeginTuple(n int) error
	EndTuple() error
}

// Source yields the parts of a value being deserialized, mirroring Sink.
// Slices returned by Text and Blob belong to the caller.
type Source interface {
	HumanReadable() bool
	Bool() (bool, error)
	Int(bits int) (int64, error)
	Uint(bits int) (uint64, error)
	Float(bits int) (float64, error)
	Text() ([]byte, error)
	Blob() ([]byte, error)
	BeginTuple(n int) error
	EndTuple() error
}

// SafeSerializer lets a type define its own serialization strategy.
type SafeSerializer interface {
	SafeSerialize(s Sink) error
}

// SafeDeserializer is the decoding counterpart of SafeSerializer. It is
// implemented on the pointer type.
type SafeDeserializer interface {
	SafeDeserialize(src Source) error
}

var (
	serializerType   = reflect.TypeFor[SafeSerializer]()
	deserializerType = reflect.TypeFor[SafeDeserializer]()

	exportSupport = &typeCache{check: checkExportable}
)

func mustExportable[T any]() {
	if err := exportSupport.get(reflect.TypeFor[T]()); err != nil {
		panic(err)
	}
}

func checkExportable(t reflect.Type, seen map[reflect.Type]bool) error {
	if implements(t, serializerType) && reflect.PointerTo(t).Implements(deserializerType) {
		return nil
	}
	if seen[t] {
		return nil
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return nil
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
		return checkExportable(t.Elem(), seen)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return nil
		}
	}
	return fmt.Errorf("%w: %s has no serialization strategy", ErrUnsupportedType, t)
}

// EncodeField writes *v to s. SafeSerializer implementations use it for
// their fields.
func EncodeField[T any](s Sink, v *T) error {
	return encodeValue(s, reflect.ValueOf(v).Elem())
}

// DecodeField reads *v from src. SafeDeserializer implementations use it
// for their fields.
func DecodeField[T any](src Source, v *T) error {
	return decodeValue(src, reflect.ValueOf(v).Elem())
}

func encodeValue(s Sink, v reflect.Value) error {
	v = exposed(v)
	t := v.Type()
	if t.Implements(serializerType) {
		return v.Interface().(SafeSerializer).SafeSerialize(s)
	}
	if reflect.PointerTo(t).Implements(serializerType) {
		return v.Addr().Interface().(SafeSerializer).SafeSerialize(s)
	}

	switch v.Kind() {
	case reflect.Bool:
		return s.Bool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return s.Int(v.Int(), t.Bits())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return s.Uint(v.Uint(), t.Bits())
	case reflect.Float32, reflect.Float64:
		return s.Float(v.Float(), t.Bits())
	case reflect.String:
		return s.Text(bytesOf(v))
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return encodeBytes(s, bytesOf(v))
		}
		if v.Kind() == reflect.Slice {
			break
		}
		if err := s.BeginTuple(v.Len()); err != nil {
			return err
		}
		for i := range v.Len() {
			if err := encodeValue(s, v.Index(i)); err != nil {
				return err
			}
		}
		return s.EndTuple()
	}
	return fmt.Errorf("%w: %s has no serialization strategy", ErrUnsupportedType, t)
}

func encodeBytes(s Sink, b []byte) error {
	if !s.HumanReadable() {
		return s.Blob(b)
	}
	buf := make([]byte, hex.EncodedLen(len(b)))
	defer memguard.WipeBytes(buf)
	hex.Encode(buf, b)
	return s.Text(buf)
}

func decodeValue(src Source, v reflect.Value) error {
	v = exposed(v)
	t := v.Type()
	if reflect.PointerTo(t).Implements(deserializerType) {
		return v.Addr().Interface().(SafeDeserializer).SafeDeserialize(src)
	}

	switch v.Kind() {
	case reflect.Bool:
		b, err := src.Bool()
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := src.Int(t.Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := src.Uint(t.Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := src.Float(t.Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.String:
		b, err := src.Text()
		if err != nil {
			return err
		}
		v.SetString(ownedString(b))
		memguard.WipeBytes(b)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return decodeFixed(src, bytesOf(v))
		}
		if err := src.BeginTuple(v.Len()); err != nil {
			return err
		}
		for i := range v.Len() {
			if err := decodeValue(src, v.Index(i)); err != nil {
				return err
			}
		}
		return src.EndTuple()
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("%w: %s has no serialization strategy", ErrUnsupportedType, t)
		}
		b, err := decodeBlob(src)
		if err != nil {
			return err
		}
		v.SetBytes(b)
	default:
		return fmt.Errorf("%w: %s has no serialization strategy", ErrUnsupportedType, t)
	}
	return nil
}

// decodeFixed fills dst, which must be matched exactly in length.
func decodeFixed(src Source, dst []byte) error {
	if src.HumanReadable() {
		text, err := src.Text()
		if err != nil {
			return err
		}
		defer memguard.WipeBytes(text)
		if len(text) != hex.EncodedLen(len(dst)) {
			return fmt.Errorf("%w: want %d bytes, got %d hex digits", ErrLength, len(dst), len(text))
		}
		_, err = hex.Decode(dst, text)
		return err
	}
	blob, err := src.Blob()
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(blob)
	if len(blob) != len(dst) {
		return fmt.Errorf("%w: want %d bytes, got %d", ErrLength, len(dst), len(blob))
	}
	copy(dst, blob)
	return nil
}

func decodeBlob(src Source) ([]byte, error) {
	if !src.HumanReadable() {
		return src.Blob()
	}
	text, err := src.Text()
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(text)
	out := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(out, text); err != nil {
		memguard.WipeBytes(out)
		return nil, err
	}
	return out, nil
}

// ownedString copies b into a fresh heap string.
func ownedString(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return strings.Clone(unsafe.String(unsafe.SliceData(b), len(b)))
}

func decodeErr(err error) error {
	if err == nil || errors.Is(err, ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrDecode, err)
}

// decodeValueOf runs decode against a fresh value, wiping it on failure.
func decodeValueOf[T any](decode func(*T) error) (T, error) {
	var v T
	if err := decode(&v); err != nil {
		wipeValue(reflect.ValueOf(&v).Elem())
		var zero T
		return zero, decodeErr(err)
	}
	return v, nil
}

// decodeInto replaces the value of an exportable chain.
func decodeInto[T any](c Controlled[T], decode func(*T) error) error {
	if c == nil || !c.chain().has(layerExportable) {
		return ErrNotExportable
	}
	v, err := decodeValueOf(decode)
	if err != nil {
		return err
	}
	c.root().replace(v)
	return nil
}
