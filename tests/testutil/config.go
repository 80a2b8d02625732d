// Package testutil provides test helpers shared by vitaminc packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/vitaminc/internal/config"
)

// TestConfigBuilder builds vitaminc.yaml files for tests.
//
// Example usage:
//
//	path := NewTestConfig(t).
//	    WithCipher("aes256gcm").
//	    WithPassword(12, "alpha").
//	    Write()
type TestConfigBuilder struct {
	config  *config.Definition
	tempDir string
	t       *testing.T
}

// NewTestConfig starts from the built-in defaults.
func NewTestConfig(t *testing.T) *TestConfigBuilder {
	t.Helper()

	return &TestConfigBuilder{
		config:  config.Default(),
		tempDir: t.TempDir(),
		t:       t,
	}
}

// WithCipher sets the seal/open cipher.
func (b *TestConfigBuilder) WithCipher(cipher string) *TestConfigBuilder {
	b.config.Cipher = cipher
	return b
}

// WithKeystore replaces the keystore section.
func (b *TestConfigBuilder) WithKeystore(ks config.KeystoreConfig) *TestConfigBuilder {
	b.config.Keystore = ks
	return b
}

// WithKMSKey sets the default HMAC key.
func (b *TestConfigBuilder) WithKMSKey(keyID string) *TestConfigBuilder {
	b.config.KMS.KeyID = keyID
	return b
}

// WithPassword sets the password command defaults.
func (b *TestConfigBuilder) WithPassword(length int, charset string) *TestConfigBuilder {
	b.config.Password = config.PasswordConfig{Length: length, Charset: charset}
	return b
}

// Build returns the in-memory definition.
func (b *TestConfigBuilder) Build() *config.Definition {
	return b.config
}

// Write writes the configuration to a temporary vitaminc.yaml and returns
// its path.
func (b *TestConfigBuilder) Write() string {
	b.t.Helper()

	data, err := yaml.Marshal(b.config)
	if err != nil {
		b.t.Fatalf("Failed to marshal test config: %v", err)
	}
	return writeFile(b.t, b.tempDir, data)
}

// WriteTestConfig writes hand-written YAML to a temporary vitaminc.yaml.
//
//	path := WriteTestConfig(t, `
//	version: 0
//	cipher: rot13
//	`)
func WriteTestConfig(t *testing.T, yamlContent string) string {
	t.Helper()

	return writeFile(t, t.TempDir(), []byte(yamlContent))
}

func writeFile(t *testing.T, dir string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, config.DefaultPath)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}
