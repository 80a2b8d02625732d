package keystore

import (
	"context"
	"fmt"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"google.golang.org/api/option"

	"github.com/systmms/vitaminc/internal/config"
	vcerrors "github.com/systmms/vitaminc/internal/errors"
	"github.com/systmms/vitaminc/internal/logging"
)

// Types lists the supported keystore.type values.
var Types = []string{"keychain", "aws-secretsmanager", "aws-ssm", "azure-keyvault", "gcp-secretmanager", "akeyless"}

// New builds the Store described by cfg, instrumented with its timeout.
func New(ctx context.Context, cfg config.KeystoreConfig, logger *logging.Logger) (Store, error) {
	store, err := newBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Debug("Using %s key store", store.Name())
	}
	return Instrument(store, cfg.Timeout()), nil
}

func newBackend(ctx context.Context, cfg config.KeystoreConfig) (Store, error) {
	switch cfg.Type {
	case "keychain":
		service := cfg.Service
		if service == "" {
			service = "vitaminc"
		}
		return NewKeychain(service), nil

	case "aws-secretsmanager":
		awsCfg, err := loadAWSConfig(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		client := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		return NewSecretsManager(client, cfg.Prefix, cfg.KMSKeyID), nil

	case "aws-ssm":
		awsCfg, err := loadAWSConfig(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		client := ssm.NewFromConfig(awsCfg, func(o *ssm.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
		})
		return NewParameterStore(client, cfg.Prefix, cfg.KMSKeyID), nil

	case "azure-keyvault":
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}
		client, err := azsecrets.NewClient(cfg.VaultURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		return NewKeyVault(client, cfg.Prefix), nil

	case "gcp-secretmanager":
		var opts []option.ClientOption
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(cfg.Endpoint))
		}
		client, err := secretmanager.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
		}
		return NewSecretManager(client, cfg.Project, cfg.Prefix), nil

	case "akeyless":
		accessKey := os.Getenv("AKEYLESS_ACCESS_KEY")
		if accessKey == "" {
			return nil, vcerrors.UserError{
				Message:    "Akeyless access key missing",
				Suggestion: "Export AKEYLESS_ACCESS_KEY for the configured access_id",
				Err:        errNoAccessKey,
			}
		}
		gateway := cfg.GatewayURL
		if gateway == "" {
			gateway = DefaultAkeylessGateway
		}
		return NewAkeyless(newAkeylessSDKClient(gateway, cfg.AccessID, accessKey), cfg.Prefix), nil
	}

	return nil, vcerrors.ConfigError{
		Field:      "keystore.type",
		Value:      cfg.Type,
		Message:    "unsupported key store",
		Suggestion: fmt.Sprintf("Use one of: %v", Types),
	}
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
