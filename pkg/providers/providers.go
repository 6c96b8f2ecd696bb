package providers

import (
	"context"

	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/logger"
	"github.com/samvad-hq/rss-opinion/pkg/httpclient"
)

// Fetcher retrieves a source's feed and parses stored documents with the same rules.
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source) (domain.Snapshot, error)
	Parse(src domain.Source, raw []byte) (domain.Snapshot, error)
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within providers.
type HTTPClient = httpclient.Client

// Logger aliases the shared structured logger.
type Logger = logger.Logger
