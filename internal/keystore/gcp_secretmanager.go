package keystore

import (
	"context"
	"fmt"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/vitaminc/pkg/protected"
)

// GCPSecretManagerAPI is the subset of the Secret Manager client used by
// SecretManager. *secretmanager.Client satisfies it.
type GCPSecretManagerAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	AddSecretVersion(ctx context.Context, req *secretmanagerpb.AddSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.SecretVersion, error)
	CreateSecret(ctx context.Context, req *secretmanagerpb.CreateSecretRequest, opts ...gax.CallOption) (*secretmanagerpb.Secret, error)
}

// SecretManager stores values as versions of GCP Secret Manager secrets.
type SecretManager struct {
	client  GCPSecretManagerAPI
	project string
	prefix  string
}

// NewSecretManager wraps client for secrets in project.
func NewSecretManager(client GCPSecretManagerAPI, project, prefix string) *SecretManager {
	return &SecretManager{client: client, project: project, prefix: prefix}
}

func (s *SecretManager) Name() string { return "gcp-secretmanager" }

func (s *SecretManager) secretPath(name string) string {
	return fmt.Sprintf("projects/%s/secrets/%s%s", s.project, s.prefix, name)
}

func (s *SecretManager) Put(ctx context.Context, name string, value *protected.Protected[[]byte]) error {
	payload := value.RiskyUnwrap()
	defer clear(payload)

	add := &secretmanagerpb.AddSecretVersionRequest{
		Parent:  s.secretPath(name),
		Payload: &secretmanagerpb.SecretPayload{Data: payload},
	}
	_, err := s.client.AddSecretVersion(ctx, add)
	if status.Code(err) != codes.NotFound {
		return err
	}

	_, err = s.client.CreateSecret(ctx, &secretmanagerpb.CreateSecretRequest{
		Parent:   "projects/" + s.project,
		SecretId: s.prefix + name,
		Secret: &secretmanagerpb.Secret{
			Labels: map[string]string{"managed-by": "vitaminc"},
			Replication: &secretmanagerpb.Replication{
				Replication: &secretmanagerpb.Replication_Automatic_{
					Automatic: &secretmanagerpb.Replication_Automatic{},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create secret: %w", err)
	}
	_, err = s.client.AddSecretVersion(ctx, add)
	return err
}

func (s *SecretManager) Get(ctx context.Context, name string) (*protected.Protected[[]byte], error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: s.secretPath(name) + "/versions/latest",
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return bytesOf(resp.GetPayload().GetData()), nil
}
