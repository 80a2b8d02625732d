// Package errors formats failures for display by the vitaminc CLI.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/vitaminc/pkg/aead"
	"github.com/systmms/vitaminc/pkg/protected"
)

// UserError is an error shown to the user with context and a hint.
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError is a configuration problem tied to a field.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// BackendError wraps a failure from a key store or KMS backend with a
// backend-specific suggestion.
func BackendError(backend string, operation string, err error) error {
	return UserError{
		Message:    fmt.Sprintf("%s error during %s", backend, operation),
		Details:    err.Error(),
		Suggestion: backendSuggestion(backend, err),
		Err:        err,
	}
}

func backendSuggestion(backend string, err error) string {
	errStr := err.Error()

	switch backend {
	case "keychain":
		if strings.Contains(errStr, "not found") {
			return "Store the key first with 'vitaminc keygen --store <name>'"
		}
		if strings.Contains(errStr, "dbus") || strings.Contains(errStr, "org.freedesktop") {
			return "Start a Secret Service provider such as gnome-keyring"
		}

	case "aws-secretsmanager", "aws-ssm", "kms":
		if strings.Contains(errStr, "credentials") || strings.Contains(errStr, "authorization") {
			return "Configure AWS credentials: 'aws configure' or set AWS_PROFILE"
		}
		if strings.Contains(errStr, "AccessDenied") {
			return "Check the IAM policy for the key or secret"
		}
		if strings.Contains(errStr, "NotFound") || strings.Contains(errStr, "ParameterNotFound") {
			return "Verify the name and region"
		}
		if strings.Contains(errStr, "Throttling") {
			return "AWS rate limit exceeded. Wait a moment and try again"
		}
		if strings.Contains(errStr, "KMSInvalidStateException") {
			return "The KMS key is disabled or pending deletion"
		}

	case "azure-keyvault":
		if strings.Contains(errStr, "DefaultAzureCredential") {
			return "Run 'az login' or set AZURE_CLIENT_ID, AZURE_TENANT_ID and AZURE_CLIENT_SECRET"
		}
		if strings.Contains(errStr, "SecretNotFound") {
			return "Verify the secret name and vault_url"
		}

	case "gcp-secretmanager":
		if strings.Contains(errStr, "could not find default credentials") {
			return "Run 'gcloud auth application-default login'"
		}
		if strings.Contains(errStr, "PermissionDenied") {
			return "Grant roles/secretmanager.secretAccessor on the project"
		}

	case "akeyless":
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "auth") {
			return "Check keystore.access_id and the AKEYLESS_ACCESS_KEY environment variable"
		}
	}

	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return "Unable to connect. Check your network and endpoint configuration"
	}

	return ""
}

// IsRetryable reports whether err looks transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"temporary failure",
		"connection reset",
		"broken pipe",
		"rate limit",
		"throttling",
		"too many requests",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// SimplifyError rewrites common low-level failures as user errors.
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	var userErr UserError
	var configErr ConfigError
	if errors.As(err, &userErr) || errors.As(err, &configErr) {
		return err
	}

	switch {
	case errors.Is(err, aead.ErrAuthentication):
		return UserError{
			Message:    "Decryption failed",
			Suggestion: "Check that the key and associated data match the ones used to encrypt",
			Err:        err,
		}
	case errors.Is(err, aead.ErrMalformed):
		return UserError{
			Message:    "Ciphertext is truncated or corrupt",
			Suggestion: "Pass the complete hex output of 'vitaminc seal'",
			Err:        err,
		}
	case errors.Is(err, protected.ErrLength):
		return UserError{
			Message:    "Key has the wrong length",
			Suggestion: "Generate a fresh key with 'vitaminc keygen'",
			Err:        err,
		}
	case errors.Is(err, protected.ErrDecode):
		return UserError{
			Message:    "Could not decode the value",
			Suggestion: "Keys and ciphertexts are hex encoded",
			Err:        err,
		}
	}

	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}
	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
