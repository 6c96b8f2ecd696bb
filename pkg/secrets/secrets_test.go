package secrets

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("RSSOPINION_SECRET_TELEGRAM_TOKEN", "123:abc")
	p := NewEnvProvider("RSSOPINION_SECRET_")

	v, err := p.Get(context.Background(), "telegram_token")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", v)

	_, err = p.Get(context.Background(), "consumer_key")
	assert.ErrorIs(t, err, domain.ErrSecretRetrieval)
}

type countingProvider struct {
	calls int
	err   error
}

func (c *countingProvider) Get(_ context.Context, key string) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return "value-" + key, nil
}

func TestWithCache(t *testing.T) {
	inner := &countingProvider{}
	p := WithCache(inner)

	for i := 0; i < 3; i++ {
		v, err := p.Get(context.Background(), "k")
		require.NoError(t, err)
		assert.Equal(t, "value-k", v)
	}
	assert.Equal(t, 1, inner.calls)

	failing := &countingProvider{err: errors.New("unavailable")}
	p = WithCache(failing)
	_, _ = p.Get(context.Background(), "k")
	_, _ = p.Get(context.Background(), "k")
	assert.Equal(t, 2, failing.calls, "failures are not cached")
}

type fakeAccessor struct {
	name        string
	hadDeadline bool
	resp        *secretmanagerpb.AccessSecretVersionResponse
	err         error
}

func (f *fakeAccessor) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.name = req.GetName()
	_, f.hadDeadline = ctx.Deadline()
	return f.resp, f.err
}

func TestGCPProvider(t *testing.T) {
	fa := &fakeAccessor{resp: &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte("s3cr3t")},
	}}
	p := &GCPProvider{project: "rss-opinion", client: fa}

	v, err := p.Get(context.Background(), "oauth_token")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", v)
	assert.Equal(t, "projects/rss-opinion/secrets/oauth_token/versions/latest", fa.name)
	assert.True(t, fa.hadDeadline, "secret lookup must be bounded")
	assert.NoError(t, p.Close())

	fa.err = errors.New("permission denied")
	_, err = p.Get(context.Background(), "oauth_token")
	assert.ErrorIs(t, err, domain.ErrSecretRetrieval)
}
