package protected

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Exportable grants serialization to the chain it wraps. It implements
// json.Marshaler, yaml.Marshaler, msgpack.CustomEncoder,
// encoding.BinaryMarshaler and encoding.TextMarshaler, and the matching
// unmarshalers.
//
// Decoding into a zero Exportable builds Exportable(Protected). Decoding
// into an existing chain replaces its value and keeps its layers.
type Exportable[T any] struct {
	codec[T]

	inner Controlled[T]
	view  bool
}

// NewExportable wraps inner. It panics with an error wrapping
// ErrUnsupportedType if T has no serialization strategy.
func NewExportable[T any](inner Controlled[T]) *Exportable[T] {
	mustExportable[T]()
	e := &Exportable[T]{inner: inner}
	e.self = e
	return e
}

// ExportableOf wraps v in Exportable(Protected).
func ExportableOf[T any](v T) *Exportable[T] {
	return NewExportable[T](New(v))
}

// AsExportable returns a serialization view of c if any layer of its chain
// is Exportable. The view shares c's value.
func AsExportable[T any](c Controlled[T]) (*Exportable[T], bool) {
	if e, ok := c.(*Exportable[T]); ok {
		return e, true
	}
	if !c.chain().has(layerExportable) {
		return nil, false
	}
	e := &Exportable[T]{inner: c, view: true}
	e.self = c
	return e, true
}

func (e *Exportable[T]) RiskyUnwrap() T    { return e.inner.RiskyUnwrap() }
func (e *Exportable[T]) Update(f func(*T)) { e.inner.Update(f) }
func (e *Exportable[T]) Zeroize()          { e.inner.Zeroize() }

func (e *Exportable[T]) Close() error {
	if e == nil || e.inner == nil {
		return nil
	}
	return e.inner.Close()
}

func (e *Exportable[T]) root() *Protected[T] { return e.inner.root() }

func (e *Exportable[T]) chain() layers {
	if e.view {
		return e.inner.chain()
	}
	return e.inner.chain().push(layer{kind: layerExportable})
}

func (e *Exportable[T]) viewBytes(f func([]byte))            { e.root().viewBytes(f) }
func (e *Exportable[T]) closeNested()                        { _ = e.Close() }
func (e *Exportable[T]) withRootValue(f func(reflect.Value)) { e.root().withValue(f) }

func (e *Exportable[T]) cloneNested() any {
	return NewExportable(rewrap(e.inner.chain(), Clone[T](e)))
}

// store decodes into e, creating the chain if e is the zero value.
func (e *Exportable[T]) store(decode func(*T) error) error {
	if e.inner != nil {
		return decodeInto(Controlled[T](e), decode)
	}
	mustExportable[T]()
	v, err := decodeValueOf(decode)
	if err != nil {
		return err
	}
	e.inner = adopt(v)
	e.self = e
	return nil
}

func (e *Exportable[T]) UnmarshalJSON(b []byte) error {
	return e.store(func(v *T) error { return decodeJSON(b, v) })
}

func (e *Exportable[T]) UnmarshalYAML(node *yaml.Node) error {
	return e.store(func(v *T) error { return decodeYAML(node, v) })
}

func (e *Exportable[T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	return e.store(func(v *T) error { return decodeMsgpack(dec, v) })
}

func (e *Exportable[T]) UnmarshalBinary(b []byte) error {
	return e.store(func(v *T) error { return decodeBinary(b, v) })
}

func (e *Exportable[T]) UnmarshalText(b []byte) error {
	return e.store(func(v *T) error { return decodeText(b, v) })
}

func (e *Exportable[T]) String() string {
	if e == nil || e.inner == nil {
		return "Exportable(<nil>)"
	}
	if e.view {
		return e.inner.String()
	}
	return "Exportable(" + e.inner.String() + ")"
}

func (e *Exportable[T]) GoString() string { return e.String() }

func (e *Exportable[T]) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, e.String())
}

func (e *Exportable[T]) LogValue() slog.Value {
	return slog.StringValue(e.String())
}
