package keystore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	"github.com/systmms/vitaminc/pkg/protected"
)

// DefaultAkeylessGateway is the public Akeyless API endpoint.
const DefaultAkeylessGateway = "https://api.akeyless.io"

// AkeylessClient abstracts the Akeyless API for testing.
type AkeylessClient interface {
	Authenticate(ctx context.Context) (token string, ttl time.Duration, err error)
	GetSecret(ctx context.Context, token, path string) (string, error)
	SetSecret(ctx context.Context, token, path, value string) error
}

// Akeyless stores values as Akeyless static secrets. Tokens are cached
// until shortly before they expire.
type Akeyless struct {
	client AkeylessClient
	prefix string
	tokens *TokenCache
}

// NewAkeyless wraps client.
func NewAkeyless(client AkeylessClient, prefix string) *Akeyless {
	return &Akeyless{client: client, prefix: prefix, tokens: NewTokenCache()}
}

func (a *Akeyless) Name() string { return "akeyless" }

func (a *Akeyless) token(ctx context.Context) (string, error) {
	if token, ok := a.tokens.Get(); ok {
		return token, nil
	}
	token, ttl, err := a.client.Authenticate(ctx)
	if err != nil {
		return "", fmt.Errorf("akeyless auth: %w", err)
	}
	a.tokens.Set(token, ttl)
	return token, nil
}

func (a *Akeyless) Put(ctx context.Context, name string, value *protected.Protected[[]byte]) error {
	token, err := a.token(ctx)
	if err != nil {
		_ = value.Close()
		return err
	}
	return a.client.SetSecret(ctx, token, a.prefix+name, unwrapString(value))
}

func (a *Akeyless) Get(ctx context.Context, name string) (*protected.Protected[[]byte], error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}
	secret, err := a.client.GetSecret(ctx, token, a.prefix+name)
	if err != nil {
		return nil, err
	}
	return stringOf(secret), nil
}

// akeylessSDKClient authenticates with an API key.
type akeylessSDKClient struct {
	api       *akeyless.APIClient
	accessID  string
	accessKey string
}

func newAkeylessSDKClient(gatewayURL, accessID, accessKey string) *akeylessSDKClient {
	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{{URL: gatewayURL}}
	return &akeylessSDKClient{
		api:       akeyless.NewAPIClient(configuration),
		accessID:  accessID,
		accessKey: accessKey,
	}
}

func (c *akeylessSDKClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	body := akeyless.NewAuthWithDefaults()
	body.SetAccessId(c.accessID)
	body.SetAccessKey(c.accessKey)

	res, _, err := c.api.V2Api.Auth(ctx).Body(*body).Execute()
	if err != nil {
		return "", 0, fmt.Errorf("api key authentication failed: %w", err)
	}
	// Tokens last 30 minutes.
	return res.GetToken(), 25 * time.Minute, nil
}

func (c *akeylessSDKClient) GetSecret(ctx context.Context, token, path string) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)

	res, httpRes, err := c.api.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		if httpRes != nil && httpRes.StatusCode == http.StatusNotFound {
			return "", ErrNotFound
		}
		return "", err
	}
	value, ok := res[path]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (c *akeylessSDKClient) SetSecret(ctx context.Context, token, path, value string) error {
	update := akeyless.NewUpdateSecretVal(path, value)
	update.SetToken(token)
	_, httpRes, err := c.api.V2Api.UpdateSecretVal(ctx).Body(*update).Execute()
	if err == nil {
		return nil
	}
	if httpRes == nil || httpRes.StatusCode != http.StatusNotFound {
		return err
	}

	create := akeyless.NewCreateSecret(path, value)
	create.SetToken(token)
	_, _, err = c.api.V2Api.CreateSecret(ctx).Body(*create).Execute()
	return err
}

var errNoAccessKey = errors.New("AKEYLESS_ACCESS_KEY is not set")
