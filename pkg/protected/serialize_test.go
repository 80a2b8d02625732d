package protected_test

import (
	"encoding"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/systmms/vitaminc/pkg/protected"
)

func TestExportable_MarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		marshal func() ([]byte, error)
		want    string
	}{
		{
			name:    "byte array as hex",
			marshal: protected.ExportableOf([4]byte{0xde, 0xad, 0xbe, 0xef}).MarshalJSON,
			want:    `"deadbeef"`,
		},
		{
			name:    "byte slice as hex",
			marshal: protected.ExportableOf([]byte{0x01, 0xff}).MarshalJSON,
			want:    `"01ff"`,
		},
		{
			name:    "integer",
			marshal: protected.ExportableOf(uint8(42)).MarshalJSON,
			want:    `42`,
		},
		{
			name:    "negative integer",
			marshal: protected.ExportableOf(int32(-7)).MarshalJSON,
			want:    `-7`,
		},
		{
			name:    "string with escapes",
			marshal: protected.ExportableOf("a\"b\n").MarshalJSON,
			want:    `"a\"b\n"`,
		},
		{
			name:    "bool",
			marshal: protected.ExportableOf(true).MarshalJSON,
			want:    `true`,
		},
		{
			name:    "pair",
			marshal: protected.ExportableOf(protected.Pair[uint8, string]{First: 1, Second: "x"}).MarshalJSON,
			want:    `[1,"x"]`,
		},
		{
			name: "triple",
			marshal: protected.ExportableOf(protected.Triple[bool, [2]byte, uint16]{
				First: false, Second: [2]byte{0xab, 0xcd}, Third: 300,
			}).MarshalJSON,
			want: `[false,"abcd",300]`,
		},
		{
			name:    "array of numbers",
			marshal: protected.ExportableOf([3]uint16{1, 2, 3}).MarshalJSON,
			want:    `[1,2,3]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.marshal()
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestExportable_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	var key protected.Exportable[[4]byte]
	require.NoError(t, json.Unmarshal([]byte(`"deadbeef"`), &key))
	assert.Equal(t, [4]byte{0xde, 0xad, 0xbe, 0xef}, key.RiskyUnwrap())

	type envelope struct {
		Pin   *protected.Exportable[uint16]                             `json:"pin"`
		Label *protected.Exportable[protected.Pair[string, [2]byte]] `json:"label"`
	}
	in := envelope{
		Pin:   protected.ExportableOf(uint16(1234)),
		Label: protected.ExportableOf(protected.Pair[string, [2]byte]{First: "k", Second: [2]byte{1, 2}}),
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pin":1234,"label":["k","0102"]}`, string(raw))

	var out envelope
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, uint16(1234), out.Pin.RiskyUnwrap())
	assert.Equal(t, protected.Pair[string, [2]byte]{First: "k", Second: [2]byte{1, 2}}, out.Label.RiskyUnwrap())
}

func TestExportable_DecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{name: "hex too short", input: `"dead"`, wantErr: protected.ErrLength},
		{name: "not hex", input: `"zzzzzzzz"`, wantErr: protected.ErrDecode},
		{name: "wrong token", input: `12`, wantErr: protected.ErrDecode},
		{name: "trailing data", input: `"deadbeef" 1`, wantErr: protected.ErrDecode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var key protected.Exportable[[4]byte]
			err := key.UnmarshalJSON([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, protected.ErrDecode)
		})
	}
}

func TestExportable_MarshalJSON_InvalidUTF8(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		marshal func() ([]byte, error)
	}{
		{name: "string", marshal: protected.ExportableOf("ok\xff").MarshalJSON},
		{name: "nested in pair", marshal: protected.ExportableOf(protected.Pair[string, uint8]{First: "\xc3", Second: 1}).MarshalJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.marshal()
			assert.ErrorIs(t, err, protected.ErrUnsupportedType)
		})
	}

	// Valid multi-byte text still round trips.
	raw, err := protected.ExportableOf("héllo ✓").MarshalJSON()
	require.NoError(t, err)
	var back protected.Exportable[string]
	require.NoError(t, back.UnmarshalJSON(raw))
	assert.Equal(t, "héllo ✓", back.RiskyUnwrap())
}

func TestMarshal_RequiresExportableLayer(t *testing.T) {
	t.Parallel()

	_, err := json.Marshal(protected.New([2]byte{1, 2}))
	assert.ErrorIs(t, err, protected.ErrNotExportable)

	_, err = protected.EquatableOf(uint8(1)).MarshalBinary()
	assert.ErrorIs(t, err, protected.ErrNotExportable)

	_, err = yaml.Marshal(struct{ K *protected.Protected[uint8] }{K: protected.New(uint8(1))})
	assert.Error(t, err)

	_, err = msgpack.Marshal(protected.New(uint8(1)))
	assert.ErrorIs(t, err, protected.ErrNotExportable)

	err = json.Unmarshal([]byte(`"0102"`), protected.Zeroed[[2]byte]())
	assert.ErrorIs(t, err, protected.ErrNotExportable)
}

func TestMarshal_ExportableBelowOtherLayers(t *testing.T) {
	t.Parallel()

	c := protected.NewEquatable(protected.NewExportable(protected.New([2]byte{0x0a, 0x0b})))
	got, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `"0a0b"`, string(got))

	// Decoding into an existing chain keeps its layers.
	target := protected.NewEquatable(protected.NewExportable(protected.Zeroed[[2]byte]()))
	require.NoError(t, json.Unmarshal([]byte(`"0102"`), target))
	assert.True(t, target.Equal(protected.New([2]byte{1, 2})))
}

func TestExportable_YAMLRoundTrip(t *testing.T) {
	t.Parallel()

	type doc struct {
		Key  *protected.Exportable[[2]byte] `yaml:"key"`
		Rate *protected.Exportable[float64] `yaml:"rate"`
		Name *protected.Exportable[string]  `yaml:"name"`
	}
	in := doc{
		Key:  protected.ExportableOf([2]byte{0x12, 0x34}),
		Rate: protected.ExportableOf(0.5),
		Name: protected.ExportableOf("svc"),
	}
	raw, err := yaml.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "1234")

	var out doc
	require.NoError(t, yaml.Unmarshal(raw, &out))
	assert.Equal(t, [2]byte{0x12, 0x34}, out.Key.RiskyUnwrap())
	assert.Equal(t, 0.5, out.Rate.RiskyUnwrap())
	assert.Equal(t, "svc", out.Name.RiskyUnwrap())
}

func TestExportable_Msgpack(t *testing.T) {
	t.Parallel()

	raw, err := msgpack.Marshal(protected.ExportableOf([2]byte{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xc4, 0x02, 0x01, 0x02}, raw)

	var out protected.Exportable[[2]byte]
	require.NoError(t, msgpack.Unmarshal(raw, &out))
	assert.Equal(t, [2]byte{1, 2}, out.RiskyUnwrap())

	pair := protected.ExportableOf(protected.Pair[uint32, string]{First: 9, Second: "z"})
	raw, err = msgpack.Marshal(pair)
	require.NoError(t, err)

	var back protected.Exportable[protected.Pair[uint32, string]]
	require.NoError(t, msgpack.Unmarshal(raw, &back))
	assert.Equal(t, protected.Pair[uint32, string]{First: 9, Second: "z"}, back.RiskyUnwrap())
}

func TestExportable_Binary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		marshal func() ([]byte, error)
		want    []byte
	}{
		{name: "uint16 big endian", marshal: protected.ExportableOf(uint16(0x0102)).MarshalBinary, want: []byte{0x01, 0x02}},
		{name: "int8", marshal: protected.ExportableOf(int8(-1)).MarshalBinary, want: []byte{0xff}},
		{name: "length-prefixed array", marshal: protected.ExportableOf([3]byte{7, 8, 9}).MarshalBinary, want: []byte{3, 7, 8, 9}},
		{name: "length-prefixed string", marshal: protected.ExportableOf("hi").MarshalBinary, want: []byte{2, 'h', 'i'}},
		{name: "bool", marshal: protected.ExportableOf(true).MarshalBinary, want: []byte{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.marshal()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	var out protected.Exportable[protected.Pair[int16, [2]byte]]
	require.NoError(t, out.UnmarshalBinary([]byte{0xff, 0xfe, 2, 0xaa, 0xbb}))
	assert.Equal(t, protected.Pair[int16, [2]byte]{First: -2, Second: [2]byte{0xaa, 0xbb}}, out.RiskyUnwrap())

	var short protected.Exportable[uint32]
	assert.ErrorIs(t, short.UnmarshalBinary([]byte{1, 2}), protected.ErrDecode)
}

func TestExportable_Text(t *testing.T) {
	t.Parallel()

	got, err := protected.ExportableOf([2]byte{0xab, 0xcd}).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(got))

	got, err = protected.ExportableOf("plain").MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "plain", string(got))

	got, err = protected.ExportableOf(uint8(5)).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "5", string(got))

	var key protected.Exportable[[]byte]
	require.NoError(t, key.UnmarshalText([]byte("00ff")))
	assert.Equal(t, []byte{0x00, 0xff}, key.RiskyUnwrap())

	var n protected.Exportable[uint64]
	require.NoError(t, n.UnmarshalText([]byte("18446744073709551615")))
	assert.Equal(t, uint64(18446744073709551615), n.RiskyUnwrap())
}

func TestNewExportable_UnsupportedTypePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { protected.ExportableOf(struct{ A int }{}) })
	assert.Panics(t, func() { protected.ExportableOf([]uint16{1}) })
}

type chainFormat struct {
	name   string
	encode func(any) ([]byte, error)
	decode func([]byte, any) error
}

var chainFormats = []chainFormat{
	{name: "json", encode: json.Marshal, decode: json.Unmarshal},
	{name: "yaml", encode: yaml.Marshal, decode: yaml.Unmarshal},
	{name: "msgpack", encode: msgpack.Marshal, decode: msgpack.Unmarshal},
	{
		name:   "binary",
		encode: func(v any) ([]byte, error) { return v.(encoding.BinaryMarshaler).MarshalBinary() },
		decode: func(b []byte, v any) error { return v.(encoding.BinaryUnmarshaler).UnmarshalBinary(b) },
	},
}

// assertChainRoundTrips encodes v through both orders of Exportable and
// Equatable in every format and checks the decoded chain against v.
func assertChainRoundTrips[T any](t *testing.T, v T) {
	t.Helper()

	nestings := []struct {
		name string
		wrap func(protected.Controlled[T]) protected.Controlled[T]
	}{
		{
			name: "exportable(equatable)",
			wrap: func(c protected.Controlled[T]) protected.Controlled[T] {
				return protected.NewExportable(protected.NewEquatable(c))
			},
		},
		{
			name: "equatable(exportable)",
			wrap: func(c protected.Controlled[T]) protected.Controlled[T] {
				return protected.NewEquatable(protected.NewExportable(c))
			},
		},
	}

	for _, n := range nestings {
		for _, f := range chainFormats {
			t.Run(n.name+"/"+f.name, func(t *testing.T) {
				t.Parallel()
				raw, err := f.encode(n.wrap(protected.New(v)))
				require.NoError(t, err)

				got := n.wrap(protected.Zeroed[T]())
				require.NoError(t, f.decode(raw, got))
				assert.True(t, protected.EquatableOf(v).ConstantTimeEq(got))
			})
		}
	}
}

func TestChain_RoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("int", func(t *testing.T) {
		t.Parallel()
		assertChainRoundTrips(t, 42)
	})
	t.Run("zero byte array", func(t *testing.T) {
		t.Parallel()
		assertChainRoundTrips(t, [32]byte{})
	})
	t.Run("string", func(t *testing.T) {
		t.Parallel()
		assertChainRoundTrips(t, "Hello, World!")
	})
}
