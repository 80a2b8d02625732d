package fakes

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/vitaminc/internal/keystore"
)

// FakeSecretsManagerClient is an in-memory Secrets Manager.
type FakeSecretsManagerClient struct {
	mu sync.Mutex
	// Secrets maps secret names to their current data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors to return
	Errors map[string]error
	// Calls records the operations invoked, in order
	Calls []string
}

// SecretData holds the current version of a fake secret.
type SecretData struct {
	SecretString *string
	SecretBinary []byte
	KmsKeyId     *string
	Versions     int
}

// NewFakeSecretsManagerClient creates an empty fake.
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretString seeds a string secret.
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Secrets[name] = &SecretData{SecretString: aws.String(value), Versions: 1}
}

// AddError makes every call for name fail with err.
func (f *FakeSecretsManagerClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

func notFound(name string) error {
	return &types.ResourceNotFoundException{
		Message: aws.String(fmt.Sprintf("Secrets Manager can't find the specified secret: %s", name)),
	}
}

// GetSecretValue returns the current version.
func (f *FakeSecretsManagerClient) GetSecretValue(_ context.Context, params *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "GetSecretValue")

	name := aws.ToString(params.SecretId)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	data, ok := f.Secrets[name]
	if !ok {
		return nil, notFound(name)
	}
	return &secretsmanager.GetSecretValueOutput{
		Name:         params.SecretId,
		SecretString: data.SecretString,
		SecretBinary: append([]byte(nil), data.SecretBinary...),
		VersionId:    aws.String(fmt.Sprintf("v%d", data.Versions)),
	}, nil
}

// PutSecretValue adds a version to an existing secret.
func (f *FakeSecretsManagerClient) PutSecretValue(_ context.Context, params *secretsmanager.PutSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.PutSecretValueOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "PutSecretValue")

	name := aws.ToString(params.SecretId)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	data, ok := f.Secrets[name]
	if !ok {
		return nil, notFound(name)
	}
	data.SecretString = params.SecretString
	data.SecretBinary = append([]byte(nil), params.SecretBinary...)
	data.Versions++
	return &secretsmanager.PutSecretValueOutput{Name: params.SecretId}, nil
}

// CreateSecret creates a secret with its first version.
func (f *FakeSecretsManagerClient) CreateSecret(_ context.Context, params *secretsmanager.CreateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, "CreateSecret")

	name := aws.ToString(params.Name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	if _, ok := f.Secrets[name]; ok {
		return nil, &types.ResourceExistsException{Message: aws.String("secret already exists")}
	}
	f.Secrets[name] = &SecretData{
		SecretString: params.SecretString,
		SecretBinary: append([]byte(nil), params.SecretBinary...),
		KmsKeyId:     params.KmsKeyId,
		Versions:     1,
	}
	return &secretsmanager.CreateSecretOutput{Name: params.Name}, nil
}

// FakeSSMClient is an in-memory Parameter Store.
type FakeSSMClient struct {
	mu sync.Mutex
	// Parameters maps parameter names to their data
	Parameters map[string]*ParameterData
	// Errors maps parameter names to errors to return
	Errors map[string]error
}

// ParameterData holds a fake parameter.
type ParameterData struct {
	Value   string
	Type    ssmtypes.ParameterType
	KeyId   *string
	Version int64
}

// NewFakeSSMClient creates an empty fake.
func NewFakeSSMClient() *FakeSSMClient {
	return &FakeSSMClient{
		Parameters: make(map[string]*ParameterData),
		Errors:     make(map[string]error),
	}
}

// AddSecureStringParameter seeds a SecureString parameter.
func (f *FakeSSMClient) AddSecureStringParameter(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Parameters[name] = &ParameterData{Value: value, Type: ssmtypes.ParameterTypeSecureString, Version: 1}
}

// AddError makes every call for name fail with err.
func (f *FakeSSMClient) AddError(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[name] = err
}

// GetParameter returns a parameter. SecureString values are returned
// only with decryption requested.
func (f *FakeSSMClient) GetParameter(_ context.Context, params *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	data, ok := f.Parameters[name]
	if !ok {
		return nil, &ssmtypes.ParameterNotFound{Message: aws.String(fmt.Sprintf("Parameter %s not found", name))}
	}

	value := data.Value
	if data.Type == ssmtypes.ParameterTypeSecureString && !aws.ToBool(params.WithDecryption) {
		value = "AQICAHh-encrypted"
	}
	return &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{
			Name:    params.Name,
			Value:   aws.String(value),
			Type:    data.Type,
			Version: data.Version,
		},
	}, nil
}

// PutParameter creates or, with Overwrite, replaces a parameter.
func (f *FakeSSMClient) PutParameter(_ context.Context, params *ssm.PutParameterInput, _ ...func(*ssm.Options)) (*ssm.PutParameterOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	existing, ok := f.Parameters[name]
	if ok && !aws.ToBool(params.Overwrite) {
		return nil, &ssmtypes.ParameterAlreadyExists{Message: aws.String("parameter already exists")}
	}

	version := int64(1)
	if ok {
		version = existing.Version + 1
	}
	f.Parameters[name] = &ParameterData{
		Value:   aws.ToString(params.Value),
		Type:    params.Type,
		KeyId:   params.KeyId,
		Version: version,
	}
	return &ssm.PutParameterOutput{Version: version}, nil
}

var (
	_ keystore.SecretsManagerAPI = (*FakeSecretsManagerClient)(nil)
	_ keystore.SSMAPI            = (*FakeSSMClient)(nil)
)
