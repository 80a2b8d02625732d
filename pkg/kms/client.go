package kms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
)

// Client is the subset of the KMS API used for MACs. *kms.Client
// satisfies it; tests substitute a fake.
type Client interface {
	GenerateMac(ctx context.Context, params *awskms.GenerateMacInput, optFns ...func(*awskms.Options)) (*awskms.GenerateMacOutput, error)
	VerifyMac(ctx context.Context, params *awskms.VerifyMacInput, optFns ...func(*awskms.Options)) (*awskms.VerifyMacOutput, error)
}

// Config selects the KMS endpoint and credentials.
type Config struct {
	Region string
	// Endpoint overrides the service URL, for LocalStack or testing.
	Endpoint string
	// Static credentials, for LocalStack or testing. The default chain is
	// used when either is empty.
	AccessKeyID     string
	SecretAccessKey string
}

// NewClient builds a KMS client from the default AWS configuration chain.
func NewClient(ctx context.Context, cfg Config) (*awskms.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	configOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*awskms.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		clientOpts = append(clientOpts, func(o *awskms.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	return awskms.NewFromConfig(awsCfg, clientOpts...), nil
}
