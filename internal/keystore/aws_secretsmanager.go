package keystore

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/systmms/vitaminc/pkg/protected"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used by
// SecretsManager.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	PutSecretValue(ctx context.Context, params *secretsmanager.PutSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
}

// SecretsManager stores values as binary AWS Secrets Manager secrets.
type SecretsManager struct {
	client   SecretsManagerAPI
	prefix   string
	kmsKeyID string
}

// NewSecretsManager wraps client. Secrets are named prefix+name and
// created under kmsKeyID when it is set.
func NewSecretsManager(client SecretsManagerAPI, prefix, kmsKeyID string) *SecretsManager {
	return &SecretsManager{client: client, prefix: prefix, kmsKeyID: kmsKeyID}
}

func (s *SecretsManager) Name() string { return "aws-secretsmanager" }

func (s *SecretsManager) Put(ctx context.Context, name string, value *protected.Protected[[]byte]) error {
	payload := value.RiskyUnwrap()
	defer clear(payload)

	id := s.prefix + name
	_, err := s.client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(id),
		SecretBinary: payload,
	})
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return err
	}

	in := &secretsmanager.CreateSecretInput{
		Name:         aws.String(id),
		SecretBinary: payload,
		Description:  aws.String("managed by vitaminc"),
	}
	if s.kmsKeyID != "" {
		in.KmsKeyId = aws.String(s.kmsKeyID)
	}
	_, err = s.client.CreateSecret(ctx, in)
	return err
}

func (s *SecretsManager) Get(ctx context.Context, name string) (*protected.Protected[[]byte], error) {
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.prefix + name),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if out.SecretBinary != nil {
		return bytesOf(out.SecretBinary), nil
	}
	return stringOf(aws.ToString(out.SecretString)), nil
}
