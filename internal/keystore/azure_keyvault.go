package keystore

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	"github.com/systmms/vitaminc/pkg/protected"
)

// AzureKeyVaultAPI is the subset of the azsecrets client used by
// KeyVault.
type AzureKeyVaultAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
	SetSecret(ctx context.Context, name string, parameters azsecrets.SetSecretParameters, options *azsecrets.SetSecretOptions) (azsecrets.SetSecretResponse, error)
}

// KeyVault stores values as Azure Key Vault secrets.
type KeyVault struct {
	client AzureKeyVaultAPI
	prefix string
}

// NewKeyVault wraps client.
func NewKeyVault(client AzureKeyVaultAPI, prefix string) *KeyVault {
	return &KeyVault{client: client, prefix: prefix}
}

func (k *KeyVault) Name() string { return "azure-keyvault" }

// secretName maps a name onto Key Vault's alphabet of letters, digits
// and dashes.
func (k *KeyVault) secretName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '-'
	}, k.prefix+name)
}

func (k *KeyVault) Put(ctx context.Context, name string, value *protected.Protected[[]byte]) error {
	_, err := k.client.SetSecret(ctx, k.secretName(name), azsecrets.SetSecretParameters{
		Value:       to.Ptr(unwrapString(value)),
		ContentType: to.Ptr("text/plain"),
		Tags:        map[string]*string{"managed-by": to.Ptr("vitaminc")},
	}, nil)
	return err
}

func (k *KeyVault) Get(ctx context.Context, name string) (*protected.Protected[[]byte], error) {
	// An empty version selects the latest.
	resp, err := k.client.GetSecret(ctx, k.secretName(name), "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if resp.Value == nil {
		return nil, ErrNotFound
	}
	return stringOf(*resp.Value), nil
}
