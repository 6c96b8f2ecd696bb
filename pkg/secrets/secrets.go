// Package secrets resolves credentials by logical name.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

// Provider returns the secret stored under key.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
}

// envProvider reads secrets from environment variables named <prefix><KEY>.
type envProvider struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnvProvider reads RSSOPINION_SECRET_<KEY> style variables; the key is upper-cased.
func NewEnvProvider(prefix string) Provider {
	return &envProvider{prefix: prefix, lookup: os.LookupEnv}
}

func (p *envProvider) Get(_ context.Context, key string) (string, error) {
	name := p.prefix + strings.ToUpper(strings.TrimSpace(key))
	v, ok := p.lookup(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set", domain.ErrSecretRetrieval, name)
	}
	return v, nil
}

// cachedProvider memoizes successful lookups for the lifetime of one invocation.
type cachedProvider struct {
	next   Provider
	mu     sync.Mutex
	values map[string]string
}

// WithCache wraps p so each key is fetched at most once on success.
func WithCache(p Provider) Provider {
	return &cachedProvider{next: p, values: make(map[string]string)}
}

func (c *cachedProvider) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	v, ok := c.values[key]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := c.next.Get(ctx, key)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.values[key] = v
	c.mu.Unlock()
	return v, nil
}
