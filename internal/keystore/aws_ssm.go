package keystore

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/vitaminc/pkg/protected"
)

// SSMAPI is the subset of the SSM client used by ParameterStore.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// ParameterStore stores values as SecureString SSM parameters.
type ParameterStore struct {
	client   SSMAPI
	prefix   string
	kmsKeyID string
}

// NewParameterStore wraps client. Parameters are named prefix+name and
// encrypted under kmsKeyID, or the account default key when empty.
func NewParameterStore(client SSMAPI, prefix, kmsKeyID string) *ParameterStore {
	return &ParameterStore{client: client, prefix: prefix, kmsKeyID: kmsKeyID}
}

func (p *ParameterStore) Name() string { return "aws-ssm" }

func (p *ParameterStore) Put(ctx context.Context, name string, value *protected.Protected[[]byte]) error {
	in := &ssm.PutParameterInput{
		Name:      aws.String(p.prefix + name),
		Value:     aws.String(unwrapString(value)),
		Type:      types.ParameterTypeSecureString,
		Overwrite: aws.Bool(true),
	}
	if p.kmsKeyID != "" {
		in.KeyId = aws.String(p.kmsKeyID)
	}
	_, err := p.client.PutParameter(ctx, in)
	return err
}

func (p *ParameterStore) Get(ctx context.Context, name string) (*protected.Protected[[]byte], error) {
	out, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(p.prefix + name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if out.Parameter == nil {
		return nil, ErrNotFound
	}
	return stringOf(aws.ToString(out.Parameter.Value)), nil
}
