package secrets

import (
	"context"
	"fmt"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

// accessTimeout bounds a single secret lookup.
const accessTimeout = 30 * time.Second

// accessor is the subset of the Secret Manager client used here.
type accessor interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// GCPProvider reads the latest version of secrets from Secret Manager.
type GCPProvider struct {
	project string
	client  accessor
	closer  func() error
}

// NewGCPProvider creates a Secret Manager client for project using default credentials.
func NewGCPProvider(ctx context.Context, project string) (*GCPProvider, error) {
	project = strings.TrimSpace(project)
	if project == "" {
		return nil, fmt.Errorf("%w: gcp project is empty", domain.ErrSecretRetrieval)
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create secret manager client: %w", domain.ErrSecretRetrieval, err)
	}
	return &GCPProvider{project: project, client: client, closer: client.Close}, nil
}

// Get returns the payload of projects/<project>/secrets/<key>/versions/latest.
func (p *GCPProvider) Get(ctx context.Context, key string) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", p.project, strings.TrimSpace(key))
	ctx, cancel := context.WithTimeout(ctx, accessTimeout)
	defer cancel()
	resp, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("%w: access %s: %w", domain.ErrSecretRetrieval, key, err)
	}
	if resp.GetPayload() == nil {
		return "", fmt.Errorf("%w: secret %s has no payload", domain.ErrSecretRetrieval, key)
	}
	return string(resp.GetPayload().GetData()), nil
}

// Close releases the client.
func (p *GCPProvider) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
