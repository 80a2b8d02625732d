package password_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/vitaminc/pkg/password"
	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/pkg/random"
)

func seeded(b byte) *random.SafeRand {
	return random.FromSeed(protected.New([32]byte{b}))
}

func TestCharsets(t *testing.T) {
	t.Parallel()

	assert.Len(t, password.Standard, 94)
	assert.Len(t, password.AlphaNumeric, 62)
	assert.Len(t, password.Alpha, 52)

	seen := map[rune]bool{}
	for _, c := range password.Standard {
		assert.False(t, seen[c], "duplicate %q", c)
		assert.True(t, c > ' ' && c < 0x7f, "non-printable %q", c)
		seen[c] = true
	}
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	for _, cs := range []password.Charset{password.Standard, password.AlphaNumeric, password.Alpha} {
		pw, err := password.Generate(seeded(1), 64, cs)
		require.NoError(t, err)

		got := pw.RiskyUnwrap()
		assert.Len(t, got, 64)
		for _, c := range got {
			assert.True(t, strings.ContainsRune(string(cs), rune(c)), "%q not in charset", c)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := password.GenerateString(seeded(7), 32, password.Standard)
	require.NoError(t, err)
	b, err := password.GenerateString(seeded(7), 32, password.Standard)
	require.NoError(t, err)
	c, err := password.GenerateString(seeded(8), 32, password.Standard)
	require.NoError(t, err)

	first := a.RiskyUnwrap()
	assert.Equal(t, first, b.RiskyUnwrap())
	assert.NotEqual(t, first, c.RiskyUnwrap())
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()

	_, err := password.Generate(seeded(0), 0, password.Standard)
	assert.ErrorIs(t, err, password.ErrInvalidLength)

	_, err = password.Generate(seeded(0), -3, password.Standard)
	assert.ErrorIs(t, err, password.ErrInvalidLength)

	_, err = password.Generate(seeded(0), 8, "")
	assert.Error(t, err)
}

func TestParseCharset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    password.Charset
		wantErr bool
	}{
		{name: "", want: password.Standard},
		{name: "standard", want: password.Standard},
		{name: "alnum", want: password.AlphaNumeric},
		{name: "alphanumeric", want: password.AlphaNumeric},
		{name: "alpha", want: password.Alpha},
		{name: "emoji", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := password.ParseCharset(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
