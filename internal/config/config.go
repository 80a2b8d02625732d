package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/internal/logging"
)

// DefaultPath is the configuration file looked up when --config is unset.
const DefaultPath = "vitaminc.yaml"

// Config holds the runtime configuration.
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition mirrors vitaminc.yaml.
type Definition struct {
	Version  int            `yaml:"version"`
	Cipher   string         `yaml:"cipher,omitempty"`
	Keystore KeystoreConfig `yaml:"keystore"`
	KMS      KMSConfig      `yaml:"kms,omitempty"`
	Password PasswordConfig `yaml:"password,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
}

// KeystoreConfig selects and configures the backend that persists keys.
// Only the fields relevant to Type are read.
type KeystoreConfig struct {
	Type      string `yaml:"type"`
	TimeoutMs int    `yaml:"timeout_ms,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`

	// keychain
	Service string `yaml:"service,omitempty"`

	// aws-secretsmanager, aws-ssm
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	KMSKeyID string `yaml:"kms_key_id,omitempty"`

	// azure-keyvault
	VaultURL string `yaml:"vault_url,omitempty"`

	// gcp-secretmanager
	Project string `yaml:"project,omitempty"`

	// akeyless; the access key comes from AKEYLESS_ACCESS_KEY.
	AccessID   string `yaml:"access_id,omitempty"`
	GatewayURL string `yaml:"gateway_url,omitempty"`
}

// KMSConfig points the hmac command at an AWS KMS HMAC key.
type KMSConfig struct {
	KeyID    string `yaml:"key_id,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// PasswordConfig holds defaults for the password command.
type PasswordConfig struct {
	Length  int    `yaml:"length,omitempty"`
	Charset string `yaml:"charset,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Definition {
	def := &Definition{}
	def.applyDefaults()
	return def
}

func (d *Definition) applyDefaults() {
	if d.Cipher == "" {
		d.Cipher = "chacha20poly1305"
	}
	if d.Keystore.Type == "" {
		d.Keystore.Type = "keychain"
	}
	if d.Keystore.Type == "keychain" && d.Keystore.Service == "" {
		d.Keystore.Service = "vitaminc"
	}
	if d.Keystore.Region == "" {
		d.Keystore.Region = "us-east-1"
	}
	if d.KMS.Region == "" {
		d.KMS.Region = d.Keystore.Region
	}
	if d.Password.Length == 0 {
		d.Password.Length = 32
	}
	if d.Password.Charset == "" {
		d.Password.Charset = "standard"
	}
	if d.Metrics.Addr == "" {
		d.Metrics.Addr = ":9090"
	}
	if d.Metrics.Path == "" {
		d.Metrics.Path = "/metrics"
	}
}

// Load reads, validates and parses the configuration file. A missing file
// at the default path yields the defaults.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if c.Path == DefaultPath || c.Path == "" {
				if c.Logger != nil {
					c.Logger.Debug("No %s found, using defaults", DefaultPath)
				}
				c.Definition = Default()
				return nil
			}
			return vcerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config flag or remove it to use the defaults",
			}
		}
		return vcerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	def, err := Parse(data)
	if err != nil {
		return err
	}
	c.Definition = def
	return nil
}

// Parse validates raw YAML against the schema and decodes it.
func Parse(data []byte) (*Definition, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, vcerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	violations, err := validateSchema(doc)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, vcerrors.ConfigError{
			Message:    "schema validation failed:\n  - " + formatViolations(violations),
			Suggestion: "See the example vitaminc.yaml in the README",
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	def.applyDefaults()
	return &def, nil
}

// Timeout is the per-call deadline for key store requests.
func (k KeystoreConfig) Timeout() time.Duration {
	if k.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(k.TimeoutMs) * time.Millisecond
}
