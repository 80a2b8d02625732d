package fakes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/vitaminc/internal/keystore"
)

// FakeAzureKeyVaultClient is an in-memory Key Vault.
type FakeAzureKeyVaultClient struct {
	mu sync.Mutex
	// Secrets maps secret names to their versions, oldest first
	Secrets map[string][]*AzureSecretVersion
	// Errors maps secret names to errors to return
	Errors map[string]error
}

// AzureSecretVersion is one stored version of a secret.
type AzureSecretVersion struct {
	Value       *string
	ContentType *string
	Tags        map[string]*string
	Created     time.Time
}

// NewFakeAzureKeyVaultClient creates an empty fake.
func NewFakeAzureKeyVaultClient() *FakeAzureKeyVaultClient {
	return &FakeAzureKeyVaultClient{
		Secrets: make(map[string][]*AzureSecretVersion),
		Errors:  make(map[string]error),
	}
}

// AddSecretString seeds a secret version.
func (f *FakeAzureKeyVaultClient) AddSecretString(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = append(f.Secrets[name], &AzureSecretVersion{Value: to.Ptr(value), Created: time.Now()})
}

// AddError makes every call for name fail with err.
func (f *FakeAzureKeyVaultClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetSecret returns the latest version when version is empty, or the
// version with that 1-based index.
func (f *FakeAzureKeyVaultClient) GetSecret(_ context.Context, name string, version string, _ *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.Errors[name]; ok {
		return azsecrets.GetSecretResponse{}, err
	}
	versions := f.Secrets[name]
	if len(versions) == 0 {
		return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
	}

	idx := len(versions)
	if version != "" {
		if _, err := fmt.Sscanf(version, "%d", &idx); err != nil || idx < 1 || idx > len(versions) {
			return azsecrets.GetSecretResponse{}, AzureNotFoundError(name)
		}
	}
	v := versions[idx-1]
	id := azsecrets.ID(fmt.Sprintf("https://test-vault.vault.azure.net/secrets/%s/%d", name, idx))
	return azsecrets.GetSecretResponse{
		Secret: azsecrets.Secret{
			ID:          &id,
			Value:       v.Value,
			ContentType: v.ContentType,
			Tags:        v.Tags,
			Attributes: &azsecrets.SecretAttributes{
				Enabled: to.Ptr(true),
				Created: &v.Created,
			},
		},
	}, nil
}

// SetSecret appends a new version.
func (f *FakeAzureKeyVaultClient) SetSecret(_ context.Context, name string, parameters azsecrets.SetSecretParameters, _ *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.Errors[name]; ok {
		return azsecrets.SetSecretResponse{}, err
	}
	f.Secrets[name] = append(f.Secrets[name], &AzureSecretVersion{
		Value:       parameters.Value,
		ContentType: parameters.ContentType,
		Tags:        parameters.Tags,
		Created:     time.Now(),
	})
	return azsecrets.SetSecretResponse{
		Secret: azsecrets.Secret{Value: parameters.Value},
	}, nil
}

// AzureNotFoundError returns the error Key Vault sends for a missing
// secret.
func AzureNotFoundError(secretName string) error {
	return &azcore.ResponseError{
		StatusCode: 404,
		ErrorCode:  "SecretNotFound",
	}
}

// AzureForbiddenError returns a 403 response error.
func AzureForbiddenError() error {
	return &azcore.ResponseError{
		StatusCode: 403,
		ErrorCode:  "Forbidden",
	}
}

var _ keystore.AzureKeyVaultAPI = (*FakeAzureKeyVaultClient)(nil)
