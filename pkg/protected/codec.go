package protected

import (
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// codec carries the marshaling methods every layer exposes. Encoding is
// refused with ErrNotExportable unless the chain has an Exportable layer,
// so wrapping a secret in a struct never serializes it by accident.
type codec[T any] struct {
	self Controlled[T]
}

func (c codec[T]) exported() error {
	if c.self == nil || !c.self.chain().has(layerExportable) {
		return ErrNotExportable
	}
	return nil
}

func (c codec[T]) MarshalJSON() (out []byte, err error) {
	if err := c.exported(); err != nil {
		return nil, err
	}
	c.self.root().withValue(func(v reflect.Value) { out, err = encodeJSON(v) })
	return out, err
}

func (c codec[T]) MarshalYAML() (out any, err error) {
	if err := c.exported(); err != nil {
		return nil, err
	}
	c.self.root().withValue(func(v reflect.Value) { out, err = encodeYAML(v) })
	return out, err
}

func (c codec[T]) EncodeMsgpack(enc *msgpack.Encoder) (err error) {
	if err := c.exported(); err != nil {
		return err
	}
	c.self.root().withValue(func(v reflect.Value) { err = encodeValue(msgpackSink{enc: enc}, v) })
	return err
}

func (c codec[T]) MarshalBinary() (out []byte, err error) {
	if err := c.exported(); err != nil {
		return nil, err
	}
	c.self.root().withValue(func(v reflect.Value) { out, err = encodeBinary(v) })
	return out, err
}

func (c codec[T]) MarshalText() (out []byte, err error) {
	if err := c.exported(); err != nil {
		return nil, err
	}
	c.self.root().withValue(func(v reflect.Value) { out, err = encodeText(v) })
	return out, err
}

func (c codec[T]) UnmarshalJSON(b []byte) error {
	return decodeInto(c.self, func(v *T) error { return decodeJSON(b, v) })
}

func (c codec[T]) UnmarshalYAML(node *yaml.Node) error {
	return decodeInto(c.self, func(v *T) error { return decodeYAML(node, v) })
}

func (c codec[T]) DecodeMsgpack(dec *msgpack.Decoder) error {
	return decodeInto(c.self, func(v *T) error { return decodeMsgpack(dec, v) })
}

func (c codec[T]) UnmarshalBinary(b []byte) error {
	return decodeInto(c.self, func(v *T) error { return decodeBinary(b, v) })
}

func (c codec[T]) UnmarshalText(b []byte) error {
	return decodeInto(c.self, func(v *T) error { return decodeText(b, v) })
}
