package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "resources/newspapers.json", cfg.Sources.File)
	assert.Equal(t, StorageBackendGCS, cfg.Storage.Backend)
	assert.Equal(t, "rss-feed_opinion", cfg.Storage.Bucket)
	assert.Equal(t, 180*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, map[domain.Stance]string{
		domain.StanceRight: "@opderecha",
		domain.StanceLeft:  "@opizquierda",
	}, cfg.Telegram.TelegramChannels())
	assert.True(t, cfg.Twitter.Accounts["right"].Configured())
	assert.False(t, cfg.Twitter.Accounts["left"].Configured())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RSSOPINION_STORAGE_BACKEND", "BOLT")
	t.Setenv("RSSOPINION_FETCH_TIMEOUT", "45s")
	t.Setenv("RSSOPINION_TELEGRAM_CHANNELS_LEFT", "@left_test")
	t.Setenv("RSSOPINION_SECRETS_BACKEND", "env")

	cfg, err := load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, StorageBackendBolt, cfg.Storage.Backend)
	assert.Equal(t, 45*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, SecretsBackendEnv, cfg.Secrets.Backend)
	assert.Equal(t, "@left_test", cfg.Telegram.TelegramChannels()[domain.StanceLeft])
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
pipeline:
  workers: 2
twitter:
  api_base_url: "http://localhost:9999/"
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, "http://localhost:9999", cfg.Twitter.APIBaseURL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown storage backend", map[string]string{"RSSOPINION_STORAGE_BACKEND": "s3"}},
		{"unknown secrets backend", map[string]string{"RSSOPINION_SECRETS_BACKEND": "vault"}},
		{"zero workers", map[string]string{"RSSOPINION_PIPELINE_WORKERS": "0"}},
		{"empty bucket", map[string]string{"RSSOPINION_STORAGE_BUCKET": " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New(), "")
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}
