package function

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/rss-opinion/internal/config"
	"github.com/samvad-hq/rss-opinion/internal/domain"
)

type item struct {
	link, author string
}

func rssDoc(items ...item) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/"><channel><title>Opinion</title>`)
	for _, it := range items {
		fmt.Fprintf(&b, "<item><title>On %s</title><link>%s</link><dc:creator>%s</dc:creator></item>", it.link, it.link, it.author)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

// upstream fakes the feeds, the Bot API, the tweet endpoint and a webhook.
type upstream struct {
	mu       sync.Mutex
	feeds    map[string]string
	telegram []map[string]string
	tweets   []string
	webhook  []map[string]any
	srv      *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{feeds: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/feeds/", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		defer u.mu.Unlock()
		_, _ = w.Write([]byte(u.feeds[r.URL.Path]))
	})
	mux.HandleFunc("/bottest-token/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.telegram = append(u.telegram, body)
		u.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	})
	mux.HandleFunc("/2/tweets", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.tweets = append(u.tweets, body["text"])
		u.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"99"}}`))
	})
	mux.HandleFunc("/hook", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		u.mu.Lock()
		u.webhook = append(u.webhook, body)
		u.mu.Unlock()
	})
	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func (u *upstream) setFeed(path string, items ...item) {
	u.mu.Lock()
	u.feeds[path] = rssDoc(items...)
	u.mu.Unlock()
}

func (u *upstream) telegramRecipients() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []string
	for _, m := range u.telegram {
		out = append(out, m["chat_id"])
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T, u *upstream) *config.Config {
	dir := t.TempDir()
	sources := writeFile(t, dir, "sources.json", fmt.Sprintf(`[
  {"name": "El ABC", "rss_link": "%[1]s/feeds/abc", "editorial": "right", "authors": ["Jones"]},
  {"name": "El Pais", "rss_link": "%[1]s/feeds/pais", "editorial": "left", "authors": ["Jones"]}
]`, u.srv.URL))
	sinks := writeFile(t, dir, "sinks.yaml", fmt.Sprintf(`sinks:
  - id: audit
    kind: webhook
    webhook:
      url: %s/hook
      timeout_seconds: 5
  - id: right-only
    kind: webhook
    editorial: right
    webhook:
      url: %s/hook
`, u.srv.URL, u.srv.URL))

	t.Setenv(EnvSecretPrefix+"TELEGRAM_TOKEN", "test-token")
	for _, k := range []string{"CONSUMER_KEY", "CONSUMER_SECRET", "OAUTH_TOKEN", "OAUTH_TOKEN_SECRET"} {
		t.Setenv(EnvSecretPrefix+k, strings.ToLower(k)+"-value")
	}

	return &config.Config{
		Log:        config.LogConfig{Level: "debug", Format: "json"},
		Sources:    config.SourcesConfig{File: sources},
		Sinks:      config.SinksConfig{File: sinks},
		Secrets:    config.SecretsConfig{Backend: config.SecretsBackendEnv},
		Storage:    config.StorageConfig{Backend: config.StorageBackendBolt, BoltPath: filepath.Join(dir, "snapshots.db")},
		Fetch:      config.FetchConfig{Timeout: 5 * time.Second, UserAgent: config.DefaultUserAgent},
		Dispatch:   config.DispatchConfig{Timeout: 5 * time.Second},
		Pipeline:   config.PipelineConfig{Workers: 2},
		Telegram: config.TelegramConfig{
			APIBaseURL:  u.srv.URL,
			TokenSecret: "telegram_token",
			Channels:    map[string]string{"right": "@opderecha", "left": "@opizquierda"},
		},
		Twitter: config.TwitterConfig{
			APIBaseURL: u.srv.URL,
			Accounts: map[string]config.TwitterAccount{
				"right": {ConsumerKey: "consumer_key", ConsumerSecret: "consumer_secret", AccessToken: "oauth_token", AccessTokenSecret: "oauth_token_secret"},
				"left":  {},
			},
		},
	}
}

func TestInvokeEndToEnd(t *testing.T) {
	u := newUpstream(t)
	cfg := testConfig(t, u)
	ctx := context.Background()

	u.setFeed("/feeds/abc", item{"https://abc.es/1", "Jones"})
	u.setFeed("/feeds/pais", item{"https://elpais.com/1", "Smith"})

	first, err := InvokeWith(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Processed())
	for _, s := range first.Sources {
		assert.Equal(t, domain.OutcomeBootstrapped, s.Outcome)
	}
	assert.Empty(t, u.telegramRecipients(), "bootstrap notifies nothing")

	u.setFeed("/feeds/abc",
		item{"https://abc.es/3", "Jones"},
		item{"https://abc.es/2", "Smith"},
		item{"https://abc.es/1", "Jones"},
	)
	u.setFeed("/feeds/pais", item{"https://elpais.com/2", "Jones"}, item{"https://elpais.com/1", "Smith"})

	second, err := InvokeWith(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Failed())
	assert.Equal(t, 3, second.NewEntries())

	assert.ElementsMatch(t, []string{"@opderecha", "@opderecha", "@opizquierda"}, u.telegramRecipients())
	require.Len(t, u.tweets, 1, "only the allow-listed right-leaning entry is tweeted")
	assert.Equal(t, "New article by Jones in El ABC: On https://abc.es/3\nhttps://abc.es/3", u.tweets[0])
	assert.Len(t, u.webhook, 5, "audit gets all three entries, right-only the two El ABC ones")

	pais := second.Sources[1]
	require.Equal(t, "El Pais", pais.Source)
	tw := pais.Dispatch.For("https://elpais.com/2", domain.ChannelTwitter)
	require.Len(t, tw, 1)
	assert.Equal(t, domain.ReasonTwitterDisabled, tw[0].Reason)

	third, err := InvokeWith(ctx, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, third.NewEntries())
	assert.Len(t, u.telegramRecipients(), 3, "re-run notifies nothing")
}

func TestMissingChannelSecretsDisableOnlyThatChannel(t *testing.T) {
	u := newUpstream(t)
	cfg := testConfig(t, u)
	cfg.Sinks.File = ""
	t.Setenv(EnvSecretPrefix+"TELEGRAM_TOKEN", "")

	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	u.setFeed("/feeds/abc", item{"https://abc.es/1", "Jones"})
	u.setFeed("/feeds/pais", item{"https://elpais.com/1", "Jones"})
	app.Run(context.Background())

	u.setFeed("/feeds/abc", item{"https://abc.es/2", "Jones"}, item{"https://abc.es/1", "Jones"})
	rep := app.Run(context.Background())

	abc := rep.Sources[0]
	tg := abc.Dispatch.For("https://abc.es/2", domain.ChannelTelegram)
	require.Len(t, tg, 1)
	assert.Equal(t, domain.ReasonTelegramUnavailable, tg[0].Reason)
	assert.Len(t, u.tweets, 1)
	assert.Equal(t, domain.OutcomeNewEntries, abc.Outcome)
}

func TestBuildFatalErrors(t *testing.T) {
	u := newUpstream(t)

	t.Run("invalid sources file", func(t *testing.T) {
		cfg := testConfig(t, u)
		cfg.Sources.File = writeFile(t, t.TempDir(), "sources.json", `[{"name": "X", "rss_link": "ftp://x", "editorial": "right"}]`)
		_, err := Build(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})

	t.Run("storage credentials unavailable", func(t *testing.T) {
		cfg := testConfig(t, u)
		cfg.Storage = config.StorageConfig{Backend: config.StorageBackendGCS, Bucket: "rss-feed_opinion", CredentialsSecret: "GCP_API_TOKEN"}
		_, err := Build(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, domain.ErrSecretRetrieval)
	})

	t.Run("invalid sinks file", func(t *testing.T) {
		cfg := testConfig(t, u)
		cfg.Sinks.File = writeFile(t, t.TempDir(), "sinks.yaml", "sinks:\n  - id: x\n    kind: carrier-pigeon\n")
		_, err := Build(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, domain.ErrConfiguration)
	})
}
