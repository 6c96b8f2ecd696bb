package providers

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/logger"
	"github.com/samvad-hq/rss-opinion/pkg/httpclient"
)

const defaultFetchTimeout = 180 * time.Second

// feedFetcher implements Fetcher for RSS, Atom and JSON feeds.
type feedFetcher struct {
	client    HTTPClient
	userAgent string
	log       Logger
}

// DefaultHTTPClient returns the resty client used for feed downloads.
func DefaultHTTPClient() HTTPClient { return httpclient.NewRestyClient(defaultFetchTimeout) }

// NewFeedFetcher builds a Fetcher. An empty userAgent falls back to a desktop browser string.
func NewFeedFetcher(client HTTPClient, userAgent string, log Logger) Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = defaultUserAgent
	}
	return &feedFetcher{
		client:    client,
		userAgent: userAgent,
		log:       logger.Ensure(log),
	}
}

// Fetch downloads the source's feed and parses it into a snapshot.
func (f *feedFetcher) Fetch(ctx context.Context, src domain.Source) (domain.Snapshot, error) {
	if strings.TrimSpace(src.FeedURL) == "" {
		return domain.Snapshot{}, &domain.FetchError{Source: src.Name, Err: fmt.Errorf("rss_link is empty")}
	}

	f.log.DebugObj("fetching feed", "fetch_start", map[string]any{
		"source": src.Name,
		"url":    src.FeedURL,
	})

	resp, err := f.client.Get(ctx, src.FeedURL, Headers(f.userAgent))
	if err != nil {
		return domain.Snapshot{}, &domain.FetchError{Source: src.Name, URL: src.FeedURL, Err: err}
	}

	body := resp.Body()
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return domain.Snapshot{}, &domain.FetchError{
			Source:     src.Name,
			URL:        src.FeedURL,
			StatusCode: code,
			Err:        fmt.Errorf("body: %s", responseSnippet(body)),
		}
	}

	snap, err := f.Parse(src, body)
	if err != nil {
		return domain.Snapshot{}, err
	}

	f.log.InfoObj("feed downloaded", "fetch_done", map[string]any{
		"source":  src.Name,
		"entries": len(snap.Entries),
		"bytes":   len(body),
	})
	return snap, nil
}

// Parse converts a raw feed document into a snapshot. Entries without a link are dropped.
func (f *feedFetcher) Parse(src domain.Source, raw []byte) (domain.Snapshot, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(raw))
	if err != nil {
		return domain.Snapshot{}, &domain.ParseError{Source: src.Name, Err: err}
	}

	entries := make([]domain.Entry, 0, len(feed.Items))
	for i, item := range feed.Items {
		if item == nil {
			continue
		}
		entry := entryFromItem(item)
		if entry.Link == "" {
			f.log.WarnObj("dropping feed entry without link", "entry_without_link", map[string]any{
				"source": src.Name,
				"index":  i,
				"title":  entry.Title,
			})
			continue
		}
		entries = append(entries, entry)
	}

	return domain.Snapshot{Entries: entries, Raw: raw}, nil
}
