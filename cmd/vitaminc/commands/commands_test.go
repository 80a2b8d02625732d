package commands_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/systmms/vitaminc/cmd/vitaminc/commands"
	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/internal/keystore"
	"github.com/systmms/vitaminc/pkg/aead"
	"github.com/systmms/vitaminc/pkg/kms"
	"github.com/systmms/vitaminc/pkg/password"
	"github.com/systmms/vitaminc/pkg/permutation"
	"github.com/systmms/vitaminc/pkg/protected"
	"github.com/systmms/vitaminc/pkg/random"
	"github.com/systmms/vitaminc/tests/fakes"
	"github.com/systmms/vitaminc/tests/testutil"
)

const testKeyID = "alias/test-mac"

var testMacKey = []byte("0123456789abcdef0123456789abcdef")

type harness struct {
	env      *commands.Env
	keychain *fakes.FakeKeychainClient
	kms      *fakes.FakeKMSClient
	config   string
	seed     byte
}

func newHarness(t *testing.T, configPath string) *harness {
	t.Helper()

	h := &harness{
		keychain: fakes.NewFakeKeychainClient(),
		kms:      fakes.NewFakeKMSClient(testKeyID, testMacKey),
		config:   configPath,
		seed:     1,
	}
	h.env = commands.NewEnv()
	h.env.OpenStore = func(context.Context) (keystore.Store, error) {
		return keystore.NewKeychainWithClient("vitaminc", h.keychain), nil
	}
	h.env.KMSClient = func(context.Context) (kms.Client, error) {
		return h.kms, nil
	}
	h.env.NewRand = func() (*random.SafeRand, error) {
		h.seed++
		return random.FromSeed(protected.New([32]byte{h.seed})), nil
	}
	t.Cleanup(func() { _ = h.env.Close() })
	return h
}

// freeAddr returns a loopback address nothing is listening on.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	root := commands.NewRootCommand(h.env, "test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", h.config, "--no-color"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) stored(name string) string {
	return h.keychain.Secrets["vitaminc"][name]
}

func TestKeygen(t *testing.T) {
	t.Parallel()

	t.Run("prints hex by default", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		out, err := h.run("", "keygen")
		require.NoError(t, err)
		key, err := hex.DecodeString(strings.TrimSpace(out))
		require.NoError(t, err)
		assert.Len(t, key, 32)
	})

	t.Run("size flag", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		out, err := h.run("", "keygen", "--size", "16")
		require.NoError(t, err)
		assert.Len(t, strings.TrimSpace(out), 32)
	})

	t.Run("stores named key without printing it", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		out, err := h.run("", "keygen", "app-key")
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Len(t, h.stored("app-key"), 64)
	})

	t.Run("fresh generator per run", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		first, err := h.run("", "keygen")
		require.NoError(t, err)
		second, err := h.run("", "keygen")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("rejects unsupported size", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("", "keygen", "--size", "7")
		var userErr vcerrors.UserError
		require.ErrorAs(t, err, &userErr)
		assert.Contains(t, userErr.Message, "Unsupported key size 7")
	})
}

func TestPassword(t *testing.T) {
	t.Parallel()

	t.Run("uses config defaults", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).WithPassword(12, "alpha").Write())

		out, err := h.run("", "password")
		require.NoError(t, err)
		pw := strings.TrimSpace(out)
		assert.Len(t, pw, 12)
		for _, c := range pw {
			assert.Contains(t, string(password.Alpha), string(c))
		}
	})

	t.Run("flags override config", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).WithPassword(12, "standard").Write())

		out, err := h.run("", "password", "--length", "40", "--charset", "alphanumeric")
		require.NoError(t, err)
		pw := strings.TrimSpace(out)
		assert.Len(t, pw, 40)
		for _, c := range pw {
			assert.Contains(t, string(password.AlphaNumeric), string(c))
		}
	})

	t.Run("store", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		out, err := h.run("", "password", "--store", "db-password")
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Len(t, h.stored("db-password"), 32)
	})

	t.Run("unknown charset", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("", "password", "--charset", "emoji")
		assert.ErrorContains(t, err, "unknown charset")
	})

	t.Run("zero length", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("", "password", "--length", "0")
		assert.ErrorIs(t, err, password.ErrInvalidLength)
	})
}

func TestDigest(t *testing.T) {
	t.Parallel()

	input := "the quick brown fox"
	sha256Sum := sha256.Sum256([]byte(input))
	sha384Sum := sha512.Sum384([]byte(input))
	sha512Sum := sha512.Sum512([]byte(input))
	blakeSum := blake2b.Sum256([]byte(input))

	tests := []struct {
		alg  string
		want []byte
	}{
		{"sha256", sha256Sum[:]},
		{"sha384", sha384Sum[:]},
		{"sha512", sha512Sum[:]},
		{"blake2b", blakeSum[:]},
	}

	for _, tt := range tests {
		t.Run(tt.alg, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, testutil.NewTestConfig(t).Write())

			out, err := h.run(input, "digest", "--alg", tt.alg)
			require.NoError(t, err)
			assert.Equal(t, hex.EncodeToString(tt.want)+"\n", out)
		})
	}

	t.Run("file argument", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		path := filepath.Join(t.TempDir(), "input")
		require.NoError(t, os.WriteFile(path, []byte(input), 0o600))

		out, err := h.run("", "digest", path)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(sha256Sum[:])+"\n", out)
	})

	t.Run("large input", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		big := strings.Repeat("x", 10000)
		sum := sha256.Sum256([]byte(big))

		out, err := h.run(big, "digest")
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(sum[:])+"\n", out)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run(input, "digest", "--alg", "md5")
		var userErr vcerrors.UserError
		assert.ErrorAs(t, err, &userErr)
	})
}

func TestSealOpen(t *testing.T) {
	t.Parallel()

	for _, cipher := range []string{"chacha20poly1305", "aes256gcm"} {
		t.Run(cipher, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, testutil.NewTestConfig(t).WithCipher(cipher).Write())
			_, err := h.run("", "keygen", "app-key")
			require.NoError(t, err)

			sealed, err := h.run("attack at dawn", "seal", "--key", "app-key", "--aad", "v1")
			require.NoError(t, err)
			assert.NotContains(t, sealed, hex.EncodeToString([]byte("attack at dawn")))

			opened, err := h.run(sealed, "open", "--key", "app-key", "--aad", "v1")
			require.NoError(t, err)
			assert.Equal(t, "attack at dawn", opened)

			opened, err = h.run("", "open", "--key", "app-key", "--aad", "v1", strings.TrimSpace(sealed))
			require.NoError(t, err)
			assert.Equal(t, "attack at dawn", opened)
		})
	}

	t.Run("wrong aad", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		_, err := h.run("", "keygen", "app-key")
		require.NoError(t, err)

		sealed, err := h.run("secret", "seal", "--key", "app-key", "--aad", "v1")
		require.NoError(t, err)

		_, err = h.run(sealed, "open", "--key", "app-key", "--aad", "v2")
		assert.ErrorIs(t, err, aead.ErrAuthentication)
	})

	t.Run("wrong key size", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		_, err := h.run("", "keygen", "short", "--size", "16")
		require.NoError(t, err)

		_, err = h.run("secret", "seal", "--key", "short")
		assert.ErrorIs(t, err, protected.ErrLength)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("secret", "seal", "--key", "nope")
		assert.ErrorIs(t, err, keystore.ErrNotFound)
	})

	t.Run("key flag required", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("secret", "seal")
		assert.ErrorContains(t, err, `required flag(s) "key" not set`)
	})

	t.Run("bad hex", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("zz", "open", "--key", "app-key")
		var userErr vcerrors.UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, "Ciphertext is not valid hex", userErr.Message)
	})
}

func TestHMAC(t *testing.T) {
	t.Parallel()

	expected := func(msg string) string {
		m := hmac.New(sha256.New, testMacKey)
		m.Write([]byte(msg))
		return hex.EncodeToString(m.Sum(nil))
	}

	t.Run("tag", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		out, err := h.run("payload", "hmac", "--key-id", testKeyID)
		require.NoError(t, err)
		assert.Equal(t, expected("payload")+"\n", out)
	})

	t.Run("info is appended", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		out, err := h.run("payload", "hmac", "--key-id", testKeyID, "--info", ":session")
		require.NoError(t, err)
		assert.Equal(t, expected("payload:session")+"\n", out)
		assert.Equal(t, [][]byte{[]byte("payload:session")}, h.kms.Messages)
	})

	t.Run("key id from config", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).WithKMSKey(testKeyID).Write())

		out, err := h.run("payload", "hmac")
		require.NoError(t, err)
		assert.Equal(t, expected("payload")+"\n", out)
	})

	t.Run("sha512", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		m := hmac.New(sha512.New, testMacKey)
		m.Write([]byte("payload"))

		out, err := h.run("payload", "hmac", "--key-id", testKeyID, "--alg", "sha512")
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(m.Sum(nil))+"\n", out)
	})

	t.Run("verify", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		out, err := h.run("payload", "hmac", "--key-id", testKeyID, "--verify", expected("payload"))
		require.NoError(t, err)
		assert.Equal(t, "OK\n", out)

		_, err = h.run("tampered", "hmac", "--key-id", testKeyID, "--verify", expected("payload"))
		var userErr vcerrors.UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, "MAC does not match", userErr.Message)
	})

	t.Run("verify rejects short tag", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("payload", "hmac", "--key-id", testKeyID, "--verify", "abcd")
		var userErr vcerrors.UserError
		require.ErrorAs(t, err, &userErr)
		assert.Empty(t, h.kms.Messages)
	})

	t.Run("no key", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("payload", "hmac")
		var userErr vcerrors.UserError
		require.ErrorAs(t, err, &userErr)
		assert.Equal(t, "No KMS key configured", userErr.Message)
	})

	t.Run("kms failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		h.kms.Err = errors.New("throttled")

		_, err := h.run("payload", "hmac", "--key-id", testKeyID)
		var kmsErr *kms.Error
		require.ErrorAs(t, err, &kmsErr)
		assert.Equal(t, "GenerateMac", kmsErr.Op)
	})
}

func TestPermute(t *testing.T) {
	t.Parallel()

	input := "000102030405060708090a0b0c0d0e0f"

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		_, err := h.run("", "permute", "keygen", "shuffle")
		require.NoError(t, err)
		assert.NotEmpty(t, h.stored("shuffle"))

		permuted, err := h.run("", "permute", "apply", "shuffle", input)
		require.NoError(t, err)
		permuted = strings.TrimSpace(permuted)
		assert.Len(t, permuted, len(input))
		assert.NotEqual(t, input, permuted)

		restored, err := h.run(permuted, "permute", "apply", "shuffle", "--inverse")
		require.NoError(t, err)
		assert.Equal(t, input+"\n", restored)
	})

	t.Run("size mismatch", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		_, err := h.run("", "permute", "keygen", "shuffle", "--size", "8")
		require.NoError(t, err)

		_, err = h.run("", "permute", "apply", "shuffle", input)
		assert.ErrorIs(t, err, permutation.ErrSizeMismatch)
	})

	t.Run("unsupported size", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("", "permute", "keygen", "shuffle", "--size", "10")
		var userErr vcerrors.UserError
		assert.ErrorAs(t, err, &userErr)
	})

	t.Run("corrupt stored key", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		h.keychain.Secrets["vitaminc"] = map[string]string{"shuffle": `"0000000000000000"`}

		_, err := h.run("", "permute", "apply", "shuffle", "0001020304050607")
		assert.ErrorIs(t, err, protected.ErrDecode)
	})
}

func TestRoot(t *testing.T) {
	t.Parallel()

	t.Run("completion", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		out, err := h.run("", "completion", "bash")
		require.NoError(t, err)
		assert.Contains(t, out, "vitaminc")
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.WriteTestConfig(t, "version: 0\ncipher: rot13\n"))

		_, err := h.run("", "keygen")
		var cfgErr vcerrors.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("missing explicit config", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		h.config = filepath.Join(t.TempDir(), "absent.yaml")

		_, err := h.run("", "keygen")
		var cfgErr vcerrors.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "path", cfgErr.Field)
	})

	t.Run("metrics server", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())

		_, err := h.run("", "keygen", "--metrics-addr", "127.0.0.1:0")
		require.NoError(t, err)
	})

	t.Run("metrics server stops after a failing command", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, testutil.NewTestConfig(t).Write())
		addr := freeAddr(t)

		_, err := h.run("secret", "seal", "--key", "nope", "--metrics-addr", addr)
		require.ErrorIs(t, err, keystore.ErrNotFound)

		// Post-run hooks were skipped, so the server is still up until Close.
		resp, err := http.Get("http://" + addr + "/health")
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		require.NoError(t, h.env.Close())
		ln, err := net.Listen("tcp", addr)
		require.NoError(t, err, "metrics listener is released")
		require.NoError(t, ln.Close())
	})
}
