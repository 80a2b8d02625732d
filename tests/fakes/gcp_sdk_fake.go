package fakes

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/systmms/vitaminc/internal/keystore"
)

// FakeGCPSecretManagerClient is an in-memory Secret Manager.
type FakeGCPSecretManagerClient struct {
	mu sync.Mutex
	// Secrets maps projects/P/secrets/S to the secret
	Secrets map[string]*secretmanagerpb.Secret
	// Versions maps projects/P/secrets/S to payloads, oldest first
	Versions map[string][][]byte
	// Errors maps resource names to errors to return
	Errors map[string]error
}

// NewFakeGCPSecretManagerClient creates an empty fake.
func NewFakeGCPSecretManagerClient() *FakeGCPSecretManagerClient {
	return &FakeGCPSecretManagerClient{
		Secrets:  make(map[string]*secretmanagerpb.Secret),
		Versions: make(map[string][][]byte),
		Errors:   make(map[string]error),
	}
}

// AddSecretVersionData seeds a secret with one version.
func (f *FakeGCPSecretManagerClient) AddSecretVersionData(secretName string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.Secrets[secretName]; !ok {
		f.Secrets[secretName] = &secretmanagerpb.Secret{Name: secretName, CreateTime: timestamppb.Now()}
	}
	f.Versions[secretName] = append(f.Versions[secretName], append([]byte(nil), data...))
}

// AddError makes calls for resourceName fail with err.
func (f *FakeGCPSecretManagerClient) AddError(resourceName string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Errors[resourceName] = err
}

// AccessSecretVersion resolves versions/latest or versions/N.
func (f *FakeGCPSecretManagerClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.Errors[req.Name]; ok {
		return nil, err
	}
	secretName, version, found := strings.Cut(req.Name, "/versions/")
	if !found {
		return nil, status.Errorf(codes.InvalidArgument, "invalid version name %s", req.Name)
	}
	if err, ok := f.Errors[secretName]; ok {
		return nil, err
	}

	versions := f.Versions[secretName]
	idx := len(versions)
	if version != "latest" {
		if _, err := fmt.Sscanf(version, "%d", &idx); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid version %s", version)
		}
	}
	if idx < 1 || idx > len(versions) {
		return nil, status.Errorf(codes.NotFound, "Secret version %s not found", req.Name)
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    fmt.Sprintf("%s/versions/%d", secretName, idx),
		Payload: &secretmanagerpb.SecretPayload{Data: append([]byte(nil), versions[idx-1]...)},
	}, nil
}

// AddSecretVersion appends a version to an existing secret.
func (f *FakeGCPSecretManagerClient) AddSecretVersion(_ context.Context, req *secretmanagerpb.AddSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.SecretVersion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.Errors[req.Parent]; ok {
		return nil, err
	}
	if _, ok := f.Secrets[req.Parent]; !ok {
		return nil, status.Errorf(codes.NotFound, "Secret %s not found", req.Parent)
	}
	f.Versions[req.Parent] = append(f.Versions[req.Parent], append([]byte(nil), req.GetPayload().GetData()...))
	return &secretmanagerpb.SecretVersion{
		Name:       fmt.Sprintf("%s/versions/%d", req.Parent, len(f.Versions[req.Parent])),
		CreateTime: timestamppb.Now(),
		State:      secretmanagerpb.SecretVersion_ENABLED,
	}, nil
}

// CreateSecret creates an empty secret.
func (f *FakeGCPSecretManagerClient) CreateSecret(_ context.Context, req *secretmanagerpb.CreateSecretRequest, _ ...gax.CallOption) (*secretmanagerpb.Secret, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := req.Parent + "/secrets/" + req.SecretId
	if err, ok := f.Errors[name]; ok {
		return nil, err
	}
	if _, ok := f.Secrets[name]; ok {
		return nil, status.Errorf(codes.AlreadyExists, "Secret %s already exists", name)
	}
	secret := &secretmanagerpb.Secret{
		Name:        name,
		CreateTime:  timestamppb.Now(),
		Labels:      req.GetSecret().GetLabels(),
		Replication: req.GetSecret().GetReplication(),
	}
	f.Secrets[name] = secret
	return secret, nil
}

// GCPPermissionDeniedError returns a PermissionDenied status.
func GCPPermissionDeniedError(message string) error {
	return status.Error(codes.PermissionDenied, message)
}

var _ keystore.GCPSecretManagerAPI = (*FakeGCPSecretManagerClient)(nil)
