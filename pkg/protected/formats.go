package protected

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
	"unsafe"

	"github.com/awnumar/memguard"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

var (
	errNonFinite = errors.New("NaN and infinities have no JSON form")
	errNoBlob    = errors.New("human-readable formats carry bytes as hex text")
)

// secretBuffer is an append-only buffer that wipes its old backing array
// whenever it grows.
type secretBuffer struct {
	b []byte
}

func (w *secretBuffer) grow(n int) {
	if cap(w.b)-len(w.b) >= n {
		return
	}
	nb := make([]byte, len(w.b), 2*cap(w.b)+n)
	copy(nb, w.b)
	memguard.WipeBytes(w.b[:cap(w.b)])
	w.b = nb
}

func (w *secretBuffer) write(p []byte) {
	w.grow(len(p))
	w.b = append(w.b, p...)
}

func (w *secretBuffer) writeByte(c byte) {
	w.grow(1)
	w.b = append(w.b, c)
}

func (w *secretBuffer) wipe() {
	memguard.WipeBytes(w.b[:cap(w.b)])
	w.b = nil
}

func unexpected(want string, got any) error {
	return fmt.Errorf("expected %s, got %T", want, got)
}

// JSON

type jsonSink struct {
	buf   secretBuffer
	count []int
}

func (s *jsonSink) HumanReadable() bool { return true }

func (s *jsonSink) sep() {
	if n := len(s.count); n > 0 {
		if s.count[n-1] > 0 {
			s.buf.writeByte(',')
		}
		s.count[n-1]++
	}
}

func (s *jsonSink) Bool(v bool) error {
	s.sep()
	s.buf.write([]byte(strconv.FormatBool(v)))
	return nil
}

func (s *jsonSink) Int(v int64, _ int) error {
	s.sep()
	s.buf.grow(20)
	s.buf.b = strconv.AppendInt(s.buf.b, v, 10)
	return nil
}

func (s *jsonSink) Uint(v uint64, _ int) error {
	s.sep()
	s.buf.grow(20)
	s.buf.b = strconv.AppendUint(s.buf.b, v, 10)
	return nil
}

func (s *jsonSink) Float(v float64, bits int) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errNonFinite
	}
	s.sep()
	s.buf.grow(32)
	s.buf.b = strconv.AppendFloat(s.buf.b, v, 'g', -1, bits)
	return nil
}

const hexDigits = "0123456789abcdef"

func (s *jsonSink) Text(b []byte) error {
	if !utf8.Valid(b) {
		return fmt.Errorf("%w: JSON strings must be valid UTF-8", ErrUnsupportedType)
	}
	s.sep()
	s.buf.grow(len(b) + 2)
	s.buf.writeByte('"')
	for _, c := range b {
		switch {
		case c == '"' || c == '\\':
			s.buf.writeByte('\\')
			s.buf.writeByte(c)
		case c == '\n':
			s.buf.write([]byte(`\n`))
		case c == '\r':
			s.buf.write([]byte(`\r`))
		case c == '\t':
			s.buf.write([]byte(`\t`))
		case c < 0x20:
			s.buf.write([]byte{'\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf]})
		default:
			s.buf.writeByte(c)
		}
	}
	s.buf.writeByte('"')
	return nil
}

func (s *jsonSink) Blob([]byte) error { return errNoBlob }

func (s *jsonSink) BeginTuple(int) error {
	s.sep()
	s.buf.writeByte('[')
	s.count = append(s.count, 0)
	return nil
}

func (s *jsonSink) EndTuple() error {
	s.count = s.count[:len(s.count)-1]
	s.buf.writeByte(']')
	return nil
}

type jsonSource struct {
	dec *json.Decoder
}

func newJSONSource(b []byte) *jsonSource {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return &jsonSource{dec: dec}
}

func (s *jsonSource) HumanReadable() bool { return true }

func (s *jsonSource) token() (json.Token, error) {
	tok, err := s.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, io.ErrUnexpectedEOF
	}
	return tok, err
}

func (s *jsonSource) Bool() (bool, error) {
	tok, err := s.token()
	if err != nil {
		return false, err
	}
	b, ok := tok.(bool)
	if !ok {
		return false, unexpected("bool", tok)
	}
	return b, nil
}

func (s *jsonSource) number() (string, error) {
	tok, err := s.token()
	if err != nil {
		return "", err
	}
	n, ok := tok.(json.Number)
	if !ok {
		return "", unexpected("number", tok)
	}
	return string(n), nil
}

func (s *jsonSource) Int(bits int) (int64, error) {
	n, err := s.number()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(n, 10, bits)
}

func (s *jsonSource) Uint(bits int) (uint64, error) {
	n, err := s.number()
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(n, 10, bits)
}

func (s *jsonSource) Float(bits int) (float64, error) {
	n, err := s.number()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(n, bits)
}

func (s *jsonSource) Text() ([]byte, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	str, ok := tok.(string)
	if !ok {
		return nil, unexpected("string", tok)
	}
	return []byte(str), nil
}

func (s *jsonSource) Blob() ([]byte, error) { return nil, errNoBlob }

func (s *jsonSource) delim(want json.Delim) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return unexpected("'"+want.String()+"'", tok)
	}
	return nil
}

func (s *jsonSource) BeginTuple(int) error { return s.delim('[') }

func (s *jsonSource) EndTuple() error { return s.delim(']') }

func (s *jsonSource) finish() error {
	if _, err := s.dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after value")
	}
	return nil
}

func encodeJSON(v reflect.Value) ([]byte, error) {
	s := &jsonSink{}
	if err := encodeValue(s, v); err != nil {
		s.buf.wipe()
		return nil, err
	}
	return s.buf.b, nil
}

func decodeJSON(b []byte, v any) error {
	src := newJSONSource(b)
	if err := decodeValue(src, reflect.ValueOf(v).Elem()); err != nil {
		return err
	}
	return src.finish()
}

// YAML

type yamlSink struct {
	root  *yaml.Node
	stack []*yaml.Node
}

func (s *yamlSink) HumanReadable() bool { return true }

func (s *yamlSink) add(n *yaml.Node) {
	if len(s.stack) == 0 {
		s.root = n
		return
	}
	top := s.stack[len(s.stack)-1]
	top.Content = append(top.Content, n)
}

func (s *yamlSink) scalar(tag, value string) error {
	s.add(&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value})
	return nil
}

func (s *yamlSink) Bool(v bool) error { return s.scalar("!!bool", strconv.FormatBool(v)) }

func (s *yamlSink) Int(v int64, _ int) error { return s.scalar("!!int", strconv.FormatInt(v, 10)) }

func (s *yamlSink) Uint(v uint64, _ int) error { return s.scalar("!!int", strconv.FormatUint(v, 10)) }

func (s *yamlSink) Float(v float64, bits int) error {
	switch {
	case math.IsNaN(v):
		return s.scalar("!!float", ".nan")
	case math.IsInf(v, 1):
		return s.scalar("!!float", ".inf")
	case math.IsInf(v, -1):
		return s.scalar("!!float", "-.inf")
	}
	return s.scalar("!!float", strconv.FormatFloat(v, 'g', -1, bits))
}

func (s *yamlSink) Text(b []byte) error { return s.scalar("!!str", string(b)) }

func (s *yamlSink) Blob([]byte) error { return errNoBlob }

func (s *yamlSink) BeginTuple(int) error {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	s.add(n)
	s.stack = append(s.stack, n)
	return nil
}

func (s *yamlSink) EndTuple() error {
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

type yamlFrame struct {
	node *yaml.Node
	next int
}

type yamlSource struct {
	root  *yaml.Node
	used  bool
	stack []*yamlFrame
}

func (s *yamlSource) HumanReadable() bool { return true }

func (s *yamlSource) next() (*yaml.Node, error) {
	var n *yaml.Node
	if len(s.stack) == 0 {
		if s.used {
			return nil, errors.New("unexpected extra value")
		}
		s.used = true
		n = s.root
	} else {
		f := s.stack[len(s.stack)-1]
		if f.next >= len(f.node.Content) {
			return nil, fmt.Errorf("line %d: sequence too short", f.node.Line)
		}
		n = f.node.Content[f.next]
		f.next++
	}
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n != nil && n.Kind == yaml.DocumentNode && len(n.Content) == 1 {
		n = n.Content[0]
	}
	if n == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return n, nil
}

func (s *yamlSource) scalar() (string, error) {
	n, err := s.next()
	if err != nil {
		return "", err
	}
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: expected a scalar", n.Line)
	}
	return n.Value, nil
}

func (s *yamlSource) Bool() (bool, error) {
	v, err := s.scalar()
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (s *yamlSource) Int(bits int) (int64, error) {
	v, err := s.scalar()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 0, bits)
}

func (s *yamlSource) Uint(bits int) (uint64, error) {
	v, err := s.scalar()
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 0, bits)
}

func (s *yamlSource) Float(bits int) (float64, error) {
	v, err := s.scalar()
	if err != nil {
		return 0, err
	}
	switch strings.ToLower(v) {
	case ".nan":
		return math.NaN(), nil
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(v, bits)
}

func (s *yamlSource) Text() ([]byte, error) {
	v, err := s.scalar()
	if err != nil {
		return nil, err
	}
	return []byte(v), nil
}

func (s *yamlSource) Blob() ([]byte, error) { return nil, errNoBlob }

func (s *yamlSource) BeginTuple(n int) error {
	node, err := s.next()
	if err != nil {
		return err
	}
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: expected a sequence", node.Line)
	}
	if len(node.Content) != n {
		return fmt.Errorf("line %d: %w: want %d items, got %d", node.Line, ErrLength, n, len(node.Content))
	}
	s.stack = append(s.stack, &yamlFrame{node: node})
	return nil
}

func (s *yamlSource) EndTuple() error {
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

func encodeYAML(v reflect.Value) (*yaml.Node, error) {
	s := &yamlSink{}
	if err := encodeValue(s, v); err != nil {
		return nil, err
	}
	return s.root, nil
}

func decodeYAML(node *yaml.Node, v any) error {
	return decodeValue(&yamlSource{root: node}, reflect.ValueOf(v).Elem())
}

// msgpack

type msgpackSink struct {
	enc *msgpack.Encoder
}

func (s msgpackSink) HumanReadable() bool { return false }

func (s msgpackSink) Bool(v bool) error { return s.enc.EncodeBool(v) }

func (s msgpackSink) Int(v int64, bits int) error {
	switch bits {
	case 8:
		return s.enc.EncodeInt8(int8(v))
	case 16:
		return s.enc.EncodeInt16(int16(v))
	case 32:
		return s.enc.EncodeInt32(int32(v))
	}
	return s.enc.EncodeInt64(v)
}

func (s msgpackSink) Uint(v uint64, bits int) error {
	switch bits {
	case 8:
		return s.enc.EncodeUint8(uint8(v))
	case 16:
		return s.enc.EncodeUint16(uint16(v))
	case 32:
		return s.enc.EncodeUint32(uint32(v))
	}
	return s.enc.EncodeUint64(v)
}

func (s msgpackSink) Float(v float64, bits int) error {
	if bits == 32 {
		return s.enc.EncodeFloat32(float32(v))
	}
	return s.enc.EncodeFloat64(v)
}

func (s msgpackSink) Text(b []byte) error {
	if len(b) == 0 {
		return s.enc.EncodeString("")
	}
	return s.enc.EncodeString(unsafe.String(unsafe.SliceData(b), len(b)))
}

func (s msgpackSink) Blob(b []byte) error { return s.enc.EncodeBytes(b) }

func (s msgpackSink) BeginTuple(n int) error { return s.enc.EncodeArrayLen(n) }

func (s msgpackSink) EndTuple() error { return nil }

type msgpackSource struct {
	dec *msgpack.Decoder
}

func (s msgpackSource) HumanReadable() bool { return false }

func (s msgpackSource) Bool() (bool, error) { return s.dec.DecodeBool() }

func (s msgpackSource) Int(bits int) (int64, error) {
	switch bits {
	case 8:
		n, err := s.dec.DecodeInt8()
		return int64(n), err
	case 16:
		n, err := s.dec.DecodeInt16()
		return int64(n), err
	case 32:
		n, err := s.dec.DecodeInt32()
		return int64(n), err
	}
	return s.dec.DecodeInt64()
}

func (s msgpackSource) Uint(bits int) (uint64, error) {
	switch bits {
	case 8:
		n, err := s.dec.DecodeUint8()
		return uint64(n), err
	case 16:
		n, err := s.dec.DecodeUint16()
		return uint64(n), err
	case 32:
		n, err := s.dec.DecodeUint32()
		return uint64(n), err
	}
	return s.dec.DecodeUint64()
}

func (s msgpackSource) Float(bits int) (float64, error) {
	if bits == 32 {
		f, err := s.dec.DecodeFloat32()
		return float64(f), err
	}
	return s.dec.DecodeFloat64()
}

func (s msgpackSource) Text() ([]byte, error) {
	str, err := s.dec.DecodeString()
	if err != nil {
		return nil, err
	}
	return []byte(str), nil
}

func (s msgpackSource) Blob() ([]byte, error) { return s.dec.DecodeBytes() }

func (s msgpackSource) BeginTuple(n int) error {
	got, err := s.dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if got != n {
		return fmt.Errorf("%w: want %d items, got %d", ErrLength, n, got)
	}
	return nil
}

func (s msgpackSource) EndTuple() error { return nil }

func decodeMsgpack(dec *msgpack.Decoder, v any) error {
	return decodeValue(msgpackSource{dec: dec}, reflect.ValueOf(v).Elem())
}

// Binary: fixed-width big-endian numbers, uvarint length-prefixed bytes,
// tuples as the concatenation of their items.

type binarySink struct {
	buf secretBuffer
}

func (s *binarySink) HumanReadable() bool { return false }

func (s *binarySink) Bool(v bool) error {
	s.buf.writeByte(byte(bit(v)))
	return nil
}

func (s *binarySink) Int(v int64, bits int) error { return s.Uint(uint64(v), bits) }

func (s *binarySink) Uint(v uint64, bits int) error {
	s.buf.grow(8)
	switch bits {
	case 8:
		s.buf.b = append(s.buf.b, byte(v))
	case 16:
		s.buf.b = binary.BigEndian.AppendUint16(s.buf.b, uint16(v))
	case 32:
		s.buf.b = binary.BigEndian.AppendUint32(s.buf.b, uint32(v))
	default:
		s.buf.b = binary.BigEndian.AppendUint64(s.buf.b, v)
	}
	return nil
}

func (s *binarySink) Float(v float64, bits int) error {
	if bits == 32 {
		return s.Uint(uint64(math.Float32bits(float32(v))), 32)
	}
	return s.Uint(math.Float64bits(v), 64)
}

func (s *binarySink) Text(b []byte) error { return s.Blob(b) }

func (s *binarySink) Blob(b []byte) error {
	s.buf.grow(binary.MaxVarintLen64 + len(b))
	s.buf.b = binary.AppendUvarint(s.buf.b, uint64(len(b)))
	s.buf.b = append(s.buf.b, b...)
	return nil
}

func (s *binarySink) BeginTuple(int) error { return nil }

func (s *binarySink) EndTuple() error { return nil }

type binarySource struct {
	b   []byte
	off int
}

func (s *binarySource) HumanReadable() bool { return false }

func (s *binarySource) take(n int) ([]byte, error) {
	if n < 0 || len(s.b)-s.off < n {
		return nil, io.ErrUnexpectedEOF
	}
	out := s.b[s.off : s.off+n]
	s.off += n
	return out, nil
}

func (s *binarySource) Bool() (bool, error) {
	b, err := s.take(1)
	if err != nil {
		return false, err
	}
	if b[0] > 1 {
		return false, errors.New("invalid bool byte")
	}
	return b[0] == 1, nil
}

func (s *binarySource) Uint(bits int) (uint64, error) {
	b, err := s.take(bits / 8)
	if err != nil {
		return 0, err
	}
	switch bits {
	case 8:
		return uint64(b[0]), nil
	case 16:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 32:
		return uint64(binary.BigEndian.Uint32(b)), nil
	}
	return binary.BigEndian.Uint64(b), nil
}

func (s *binarySource) Int(bits int) (int64, error) {
	u, err := s.Uint(bits)
	if err != nil {
		return 0, err
	}
	switch bits {
	case 8:
		return int64(int8(u)), nil
	case 16:
		return int64(int16(u)), nil
	case 32:
		return int64(int32(u)), nil
	}
	return int64(u), nil
}

func (s *binarySource) Float(bits int) (float64, error) {
	u, err := s.Uint(bits)
	if err != nil {
		return 0, err
	}
	if bits == 32 {
		return float64(math.Float32frombits(uint32(u))), nil
	}
	return math.Float64frombits(u), nil
}

func (s *binarySource) Text() ([]byte, error) { return s.Blob() }

func (s *binarySource) Blob() ([]byte, error) {
	n, k := binary.Uvarint(s.b[s.off:])
	if k <= 0 {
		return nil, errors.New("invalid length prefix")
	}
	s.off += k
	if n > uint64(len(s.b)-s.off) {
		return nil, io.ErrUnexpectedEOF
	}
	b, _ := s.take(int(n))
	return bytes.Clone(b), nil
}

func (s *binarySource) BeginTuple(int) error { return nil }

func (s *binarySource) EndTuple() error { return nil }

func encodeBinary(v reflect.Value) ([]byte, error) {
	s := &binarySink{}
	if err := encodeValue(s, v); err != nil {
		s.buf.wipe()
		return nil, err
	}
	if s.buf.b == nil {
		return []byte{}, nil
	}
	return s.buf.b, nil
}

func decodeBinary(b []byte, v any) error {
	src := &binarySource{b: b}
	if err := decodeValue(src, reflect.ValueOf(v).Elem()); err != nil {
		return err
	}
	if src.off != len(b) {
		return errors.New("trailing data after value")
	}
	return nil
}

// Text: strings as-is, byte sequences as lowercase hex, everything else in
// its JSON form.

func isByteSeq(t reflect.Type) bool {
	return (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && t.Elem().Kind() == reflect.Uint8
}

func encodeText(v reflect.Value) ([]byte, error) {
	t := v.Type()
	if !implements(t, serializerType) {
		switch {
		case t.Kind() == reflect.String:
			return []byte(v.String()), nil
		case isByteSeq(t):
			b := bytesOf(exposed(v))
			out := make([]byte, hex.EncodedLen(len(b)))
			hex.Encode(out, b)
			return out, nil
		}
	}
	return encodeJSON(v)
}

func decodeText(b []byte, v any) error {
	rv := exposed(reflect.ValueOf(v).Elem())
	t := rv.Type()
	if !reflect.PointerTo(t).Implements(deserializerType) {
		switch {
		case t.Kind() == reflect.String:
			rv.SetString(ownedString(b))
			return nil
		case t.Kind() == reflect.Array && isByteSeq(t):
			if len(b) != hex.EncodedLen(rv.Len()) {
				return fmt.Errorf("%w: want %d bytes, got %d hex digits", ErrLength, rv.Len(), len(b))
			}
			_, err := hex.Decode(bytesOf(rv), b)
			return err
		case isByteSeq(t):
			out := make([]byte, hex.DecodedLen(len(b)))
			if _, err := hex.Decode(out, b); err != nil {
				memguard.WipeBytes(out)
				return err
			}
			rv.SetBytes(out)
			return nil
		}
	}
	return decodeJSON(b, v)
}
