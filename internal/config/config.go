// Package config loads runtime settings from the environment, an optional
// .env file and an optional config file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

const (
	envPrefix     = "RSSOPINION"
	envConfigFile = "RSSOPINION_CONFIG"

	SecretsBackendGCP = "gcp"
	SecretsBackendEnv = "env"

	StorageBackendGCS  = "gcs"
	StorageBackendBolt = "bolt"

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/85.0.4183.121 Safari/537.36"
)

// Config is the resolved runtime configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Sinks      SinksConfig      `mapstructure:"sinks"`
	GCP        GCPConfig        `mapstructure:"gcp"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Dispatch   DispatchConfig   `mapstructure:"dispatch"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Twitter    TwitterConfig    `mapstructure:"twitter"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SourcesConfig struct {
	File string `mapstructure:"file"`
}

// SinksConfig points at the optional event sink declarations.
type SinksConfig struct {
	File string `mapstructure:"file"`
}

type GCPConfig struct {
	ProjectID string `mapstructure:"project_id"`
}

type SecretsConfig struct {
	Backend string `mapstructure:"backend"`
}

type StorageConfig struct {
	Backend           string `mapstructure:"backend"`
	Bucket            string `mapstructure:"bucket"`
	BoltPath          string `mapstructure:"bolt_path"`
	CredentialsSecret string `mapstructure:"credentials_secret"`
}

type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type DispatchConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

type TelegramConfig struct {
	APIBaseURL  string `mapstructure:"api_base_url"`
	TokenSecret string `mapstructure:"token_secret"`
	// Channels maps editorial stance to the channel identifier.
	Channels map[string]string `mapstructure:"channels"`
}

type TwitterConfig struct {
	APIBaseURL string `mapstructure:"api_base_url"`
	// Accounts maps editorial stance to the secret names holding its OAuth1 keys.
	Accounts map[string]TwitterAccount `mapstructure:"accounts"`
}

// TwitterAccount holds secret names, not secret values.
type TwitterAccount struct {
	ConsumerKey       string `mapstructure:"consumer_key"`
	ConsumerSecret    string `mapstructure:"consumer_secret"`
	AccessToken       string `mapstructure:"access_token"`
	AccessTokenSecret string `mapstructure:"access_token_secret"`
}

// Configured reports whether every secret name is set.
func (a TwitterAccount) Configured() bool {
	return a.ConsumerKey != "" && a.ConsumerSecret != "" && a.AccessToken != "" && a.AccessTokenSecret != ""
}

// TelegramChannels returns the channel mapping keyed by stance.
func (c TelegramConfig) TelegramChannels() map[domain.Stance]string {
	out := make(map[domain.Stance]string, len(c.Channels))
	for k, v := range c.Channels {
		if v = strings.TrimSpace(v); v != "" {
			out[domain.Stance(strings.ToLower(k))] = v
		}
	}
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("sources.file", "resources/newspapers.json")
	v.SetDefault("sinks.file", "")
	v.SetDefault("gcp.project_id", "rss-opinion")
	v.SetDefault("secrets.backend", SecretsBackendGCP)
	v.SetDefault("storage.backend", StorageBackendGCS)
	v.SetDefault("storage.bucket", "rss-feed_opinion")
	v.SetDefault("storage.bolt_path", "/tmp/rss-opinion.db")
	v.SetDefault("storage.credentials_secret", "GCP_API_TOKEN")
	v.SetDefault("fetch.timeout", 180*time.Second)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("dispatch.timeout", 30*time.Second)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("telegram.api_base_url", "https://api.telegram.org")
	v.SetDefault("telegram.token_secret", "telegram_token")
	v.SetDefault("telegram.channels.right", "@opderecha")
	v.SetDefault("telegram.channels.left", "@opizquierda")
	v.SetDefault("twitter.api_base_url", "https://api.twitter.com")
	v.SetDefault("twitter.accounts.right.consumer_key", "consumer_key")
	v.SetDefault("twitter.accounts.right.consumer_secret", "consumer_secret")
	v.SetDefault("twitter.accounts.right.access_token", "oauth_token")
	v.SetDefault("twitter.accounts.right.access_token_secret", "oauth_token_secret")
	v.SetDefault("twitter.accounts.left.consumer_key", "")
	v.SetDefault("twitter.accounts.left.consumer_secret", "")
	v.SetDefault("twitter.accounts.left.access_token", "")
	v.SetDefault("twitter.accounts.left.access_token_secret", "")
}

// Load reads .env (if present), the optional config file named by
// RSSOPINION_CONFIG and RSSOPINION_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(viper.New(), os.Getenv(envConfigFile))
}

func load(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file = strings.TrimSpace(file); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	sanitize(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return &cfg, nil
}

func sanitize(cfg *Config) {
	cfg.Secrets.Backend = strings.ToLower(strings.TrimSpace(cfg.Secrets.Backend))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Storage.Bucket = strings.TrimSpace(cfg.Storage.Bucket)
	cfg.Sources.File = strings.TrimSpace(cfg.Sources.File)
	cfg.Sinks.File = strings.TrimSpace(cfg.Sinks.File)
	cfg.Telegram.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Telegram.APIBaseURL), "/")
	cfg.Twitter.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Twitter.APIBaseURL), "/")
}

func validate(cfg *Config) error {
	if cfg.Sources.File == "" {
		return errors.New("sources.file is required")
	}
	switch cfg.Secrets.Backend {
	case SecretsBackendGCP:
		if strings.TrimSpace(cfg.GCP.ProjectID) == "" {
			return errors.New("gcp.project_id is required for the gcp secrets backend")
		}
	case SecretsBackendEnv:
	default:
		return fmt.Errorf("secrets.backend %q not supported", cfg.Secrets.Backend)
	}
	switch cfg.Storage.Backend {
	case StorageBackendGCS:
		if cfg.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the gcs backend")
		}
	case StorageBackendBolt:
		if strings.TrimSpace(cfg.Storage.BoltPath) == "" {
			return errors.New("storage.bolt_path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("storage.backend %q not supported", cfg.Storage.Backend)
	}
	if cfg.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be positive")
	}
	if cfg.Dispatch.Timeout <= 0 {
		return errors.New("dispatch.timeout must be positive")
	}
	if cfg.Pipeline.Workers <= 0 {
		return errors.New("pipeline.workers must be positive")
	}
	return nil
}
