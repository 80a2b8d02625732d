package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/internal/logging"
	"github.com/systmms/vitaminc/pkg/aead"
	"github.com/systmms/vitaminc/pkg/protected"
)

func TestUserErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.UserError{
		Message:    "Operation failed",
		Details:    "Connection timeout",
		Suggestion: "Check network connectivity",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "Operation failed")
	assert.Contains(t, errMsg, "Details: Connection timeout")
	assert.Contains(t, errMsg, "Try: Check network connectivity")
}

func TestUserErrorFallsBackToWrapped(t *testing.T) {
	t.Parallel()

	err := errors.UserError{Err: fmt.Errorf("base error")}
	assert.Equal(t, "base error", err.Error())
}

func TestConfigErrorFormatting(t *testing.T) {
	t.Parallel()

	err := errors.ConfigError{
		Field:      "keystore.type",
		Value:      "vault",
		Message:    "unknown key store",
		Suggestion: "Use one of: keychain, aws-secretsmanager, aws-ssm",
	}

	errMsg := err.Error()

	assert.Contains(t, errMsg, "in field 'keystore.type'")
	assert.Contains(t, errMsg, "(value: vault)")
	assert.Contains(t, errMsg, "unknown key store")
	assert.Contains(t, errMsg, "aws-ssm")
}

func TestBackendErrorSuggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		backend            string
		errorMsg           string
		expectedSuggestion string
	}{
		{name: "keychain_missing", backend: "keychain", errorMsg: "secret not found in keyring", expectedSuggestion: "vitaminc keygen"},
		{name: "keychain_dbus", backend: "keychain", errorMsg: "org.freedesktop.DBus.Error.ServiceUnknown", expectedSuggestion: "gnome-keyring"},
		{name: "aws_credentials", backend: "aws-secretsmanager", errorMsg: "no valid credentials", expectedSuggestion: "aws configure"},
		{name: "aws_denied", backend: "aws-ssm", errorMsg: "AccessDeniedException", expectedSuggestion: "IAM policy"},
		{name: "aws_not_found", backend: "aws-ssm", errorMsg: "ParameterNotFound", expectedSuggestion: "name and region"},
		{name: "kms_throttled", backend: "kms", errorMsg: "ThrottlingException", expectedSuggestion: "rate limit"},
		{name: "kms_disabled", backend: "kms", errorMsg: "KMSInvalidStateException", expectedSuggestion: "disabled"},
		{name: "azure_creds", backend: "azure-keyvault", errorMsg: "DefaultAzureCredential: failed", expectedSuggestion: "az login"},
		{name: "gcp_creds", backend: "gcp-secretmanager", errorMsg: "could not find default credentials", expectedSuggestion: "gcloud auth"},
		{name: "akeyless_auth", backend: "akeyless", errorMsg: "401 Unauthorized", expectedSuggestion: "AKEYLESS_ACCESS_KEY"},
		{name: "generic_timeout", backend: "keychain", errorMsg: "i/o timeout", expectedSuggestion: "timed out"},
		{name: "generic_refused", backend: "akeyless-unknown", errorMsg: "connection refused", expectedSuggestion: "endpoint configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			baseErr := stderrors.New(tt.errorMsg)
			err := errors.BackendError(tt.backend, "get", baseErr)

			assert.Contains(t, err.Error(), tt.backend+" error during get")
			assert.Contains(t, err.Error(), tt.expectedSuggestion)
			assert.ErrorIs(t, err, baseErr)
		})
	}
}

func TestBackendErrorRedactsSecrets(t *testing.T) {
	t.Parallel()

	secretValue := "api-key-super-secret-123"
	baseErr := fmt.Errorf("authentication failed with key: %s", logging.Secret(secretValue))

	errMsg := errors.BackendError("akeyless", "auth", baseErr).Error()

	assert.Contains(t, errMsg, "[REDACTED]")
	assert.NotContains(t, errMsg, secretValue)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		errorMsg  string
		retryable bool
	}{
		{"timeout", "operation timeout", true},
		{"rate_limit", "rate limit exceeded", true},
		{"throttling", "ThrottlingException", true},
		{"connection_reset", "connection reset by peer", true},
		{"broken_pipe", "broken pipe", true},
		{"not_found", "resource not found", false},
		{"invalid_config", "invalid configuration", false},
		{"nil_error", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var err error
			if tt.errorMsg != "" {
				err = stderrors.New(tt.errorMsg)
			}

			assert.Equal(t, tt.retryable, errors.IsRetryable(err))
		})
	}
}

func TestSimplifyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		inputError    error
		expectedType  string
		expectedInMsg string
	}{
		{
			name:          "yaml_error",
			inputError:    stderrors.New("yaml: line 5: mapping values are not allowed"),
			expectedType:  "ConfigError",
			expectedInMsg: "Invalid YAML",
		},
		{
			name:          "permission_denied",
			inputError:    fmt.Errorf("open vitaminc.yaml: %w", stderrors.New("permission denied")),
			expectedType:  "UserError",
			expectedInMsg: "Permission denied",
		},
		{
			name:          "file_not_found",
			inputError:    stderrors.New("no such file or directory"),
			expectedType:  "UserError",
			expectedInMsg: "not found",
		},
		{
			name:          "authentication",
			inputError:    fmt.Errorf("open: %w", aead.ErrAuthentication),
			expectedType:  "UserError",
			expectedInMsg: "Decryption failed",
		},
		{
			name:          "malformed",
			inputError:    aead.ErrMalformed,
			expectedType:  "UserError",
			expectedInMsg: "truncated",
		},
		{
			name:          "key_length",
			inputError:    fmt.Errorf("%w: %w", protected.ErrDecode, protected.ErrLength),
			expectedType:  "UserError",
			expectedInMsg: "wrong length",
		},
		{
			name:          "decode",
			inputError:    protected.ErrDecode,
			expectedType:  "UserError",
			expectedInMsg: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			simplified := errors.SimplifyError(tt.inputError)
			assert.Contains(t, simplified.Error(), tt.expectedInMsg)

			switch tt.expectedType {
			case "ConfigError":
				_, ok := simplified.(errors.ConfigError)
				assert.True(t, ok, "Should be ConfigError type")
			case "UserError":
				_, ok := simplified.(errors.UserError)
				assert.True(t, ok, "Should be UserError type")
			}
		})
	}
}

func TestSimplifyError_KeepsFriendlyErrors(t *testing.T) {
	t.Parallel()

	userErr := errors.UserError{Message: "already friendly"}
	assert.Equal(t, userErr, errors.SimplifyError(userErr))

	wrapped := fmt.Errorf("ctx: %w", errors.ConfigError{Message: "bad"})
	assert.Equal(t, wrapped, errors.SimplifyError(wrapped))

	plain := stderrors.New("something else")
	assert.Equal(t, plain, errors.SimplifyError(plain))
}

func TestUserErrorUnwrap(t *testing.T) {
	t.Parallel()

	baseErr := stderrors.New("base error")
	userErr := errors.UserError{Message: "wrapped error", Err: baseErr}

	assert.Equal(t, baseErr, userErr.Unwrap())
}

func TestNilErrorHandling(t *testing.T) {
	t.Parallel()

	assert.False(t, errors.IsRetryable(nil))
	assert.Nil(t, errors.SimplifyError(nil))
}
