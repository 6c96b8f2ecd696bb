// Package function wires configuration, secrets, storage and channels into a
// single invocation of the pipeline.
package function

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samvad-hq/rss-opinion/internal/config"
	"github.com/samvad-hq/rss-opinion/internal/dispatch"
	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/logger"
	"github.com/samvad-hq/rss-opinion/internal/pipeline"
	"github.com/samvad-hq/rss-opinion/pkg/httpclient"
	"github.com/samvad-hq/rss-opinion/pkg/providers"
	"github.com/samvad-hq/rss-opinion/pkg/publishers"
	"github.com/samvad-hq/rss-opinion/pkg/secrets"
	"github.com/samvad-hq/rss-opinion/pkg/snapshots"
)

// EnvSecretPrefix prefixes secret names for the env secrets backend.
const EnvSecretPrefix = "RSSOPINION_SECRET_"

// App holds everything one invocation needs. Build a new App per invocation.
type App struct {
	Sources  *providers.Registry
	pipeline *pipeline.Pipeline
	closers  []io.Closer
	log      logger.Logger
}

// Option overrides a collaborator normally built from configuration.
type Option func(*buildOptions)

type buildOptions struct {
	secrets secrets.Provider
	store   snapshots.Store
}

// WithSecrets replaces the configured secret backend.
func WithSecrets(p secrets.Provider) Option {
	return func(o *buildOptions) { o.secrets = p }
}

// WithStore replaces the configured snapshot store.
func WithStore(s snapshots.Store) Option {
	return func(o *buildOptions) { o.store = s }
}

// Build resolves every collaborator. Errors returned here are fatal for the
// invocation; missing channel credentials only disable that channel.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, opts ...Option) (app *App, err error) {
	log = logger.Ensure(log)
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	app = &App{log: log}
	defer func() {
		if err != nil {
			_ = app.Close()
			app = nil
		}
	}()

	app.Sources, err = providers.LoadRegistry(cfg.Sources.File)
	if err != nil {
		return app, fmt.Errorf("load sources: %w", err)
	}

	sec := bo.secrets
	if sec == nil {
		if sec, err = app.secretProvider(ctx, cfg); err != nil {
			return app, err
		}
	}
	sec = secrets.WithCache(sec)

	store := bo.store
	if store == nil {
		if store, err = app.snapshotStore(ctx, cfg, sec); err != nil {
			return app, err
		}
		app.closers = append(app.closers, store)
	}

	sinks, err := app.eventSinks(ctx, cfg)
	if err != nil {
		return app, err
	}

	d := dispatch.New(dispatch.Options{
		Telegram:         app.telegram(ctx, cfg, sec),
		Twitter:          app.twitter(ctx, cfg, sec),
		Sinks:            sinks,
		TelegramChannels: cfg.Telegram.TelegramChannels(),
		Timeout:          cfg.Dispatch.Timeout,
		Log:              log,
	})
	fetcher := providers.NewFeedFetcher(httpclient.NewRestyClient(cfg.Fetch.Timeout), cfg.Fetch.UserAgent, log)
	app.pipeline = pipeline.New(fetcher, store, d, cfg.Pipeline.Workers, log)

	log.InfoObj("invocation ready", "app_ready", map[string]any{
		"sources": app.Sources.Len(),
		"sinks":   len(sinks),
		"storage": cfg.Storage.Backend,
		"secrets": cfg.Secrets.Backend,
	})
	return app, nil
}

// Run processes sources, or every configured source when none are given.
func (a *App) Run(ctx context.Context, sources ...domain.Source) domain.InvocationReport {
	if len(sources) == 0 {
		sources = a.Sources.All()
	}
	return a.pipeline.Run(ctx, sources)
}

// Close releases clients opened by Build.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (c closerFunc) Close() error { return c() }

func (a *App) secretProvider(ctx context.Context, cfg *config.Config) (secrets.Provider, error) {
	switch cfg.Secrets.Backend {
	case config.SecretsBackendEnv:
		return secrets.NewEnvProvider(EnvSecretPrefix), nil
	default:
		p, err := secrets.NewGCPProvider(ctx, cfg.GCP.ProjectID)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p)
		return p, nil
	}
}

func (a *App) snapshotStore(ctx context.Context, cfg *config.Config, sec secrets.Provider) (snapshots.Store, error) {
	if cfg.Storage.Backend == config.StorageBackendBolt {
		return snapshots.NewBoltStore(cfg.Storage.BoltPath, a.log)
	}

	var creds []byte
	if name := cfg.Storage.CredentialsSecret; name != "" {
		v, err := sec.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("storage credentials: %w", err)
		}
		creds = []byte(v)
	}
	return snapshots.NewGCSStore(ctx, cfg.Storage.Bucket, creds, a.log)
}

func (a *App) eventSinks(ctx context.Context, cfg *config.Config) ([]publishers.Publisher, error) {
	if cfg.Sinks.File == "" {
		return nil, nil
	}
	set, err := publishers.LoadSinks(cfg.Sinks.File)
	if err != nil {
		return nil, fmt.Errorf("load sinks: %w", err)
	}
	sinks, err := publishers.BuildSinks(ctx, publishers.DefaultBuilders(), set.Enabled(), a.log)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	a.closers = append(a.closers, closerFunc(func() error { return publishers.CloseAll(sinks) }))
	return sinks, nil
}

// telegram returns nil when the bot token cannot be resolved.
func (a *App) telegram(ctx context.Context, cfg *config.Config, sec secrets.Provider) publishers.Publisher {
	token, err := sec.Get(ctx, cfg.Telegram.TokenSecret)
	if err != nil {
		a.log.ErrorObj("telegram token unavailable, telegram disabled", "secret_error", map[string]any{
			"channel": string(domain.ChannelTelegram),
			"secret":  cfg.Telegram.TokenSecret,
			"error":   err.Error(),
		})
		return nil
	}
	pub, err := publishers.NewTelegramPublisher(publishers.TelegramConfig{
		BaseURL: cfg.Telegram.APIBaseURL,
		Token:   token,
		Timeout: cfg.Dispatch.Timeout,
	}, nil, a.log)
	if err != nil {
		a.log.ErrorObj("telegram publisher unavailable", "publisher_error", map[string]any{
			"channel": string(domain.ChannelTelegram),
			"error":   err.Error(),
		})
		return nil
	}
	return pub
}

// twitter builds one publisher per stance whose account resolves completely.
func (a *App) twitter(ctx context.Context, cfg *config.Config, sec secrets.Provider) map[domain.Stance]publishers.Publisher {
	out := make(map[domain.Stance]publishers.Publisher)
	for stance, acct := range cfg.Twitter.Accounts {
		if !acct.Configured() {
			continue
		}
		keys, err := resolveAccount(ctx, sec, acct)
		if err != nil {
			a.log.WarnObj("twitter credentials unavailable, twitter disabled for stance", "secret_error", map[string]any{
				"channel":   string(domain.ChannelTwitter),
				"editorial": stance,
				"error":     err.Error(),
			})
			continue
		}
		keys.BaseURL = cfg.Twitter.APIBaseURL
		keys.Timeout = cfg.Dispatch.Timeout
		pub, err := publishers.NewTwitterPublisher(ctx, keys, a.log)
		if err != nil {
			a.log.WarnObj("twitter publisher unavailable", "publisher_error", map[string]any{
				"channel":   string(domain.ChannelTwitter),
				"editorial": stance,
				"error":     err.Error(),
			})
			continue
		}
		out[domain.Stance(stance)] = pub
	}
	return out
}

func resolveAccount(ctx context.Context, sec secrets.Provider, acct config.TwitterAccount) (publishers.TwitterConfig, error) {
	var keys publishers.TwitterConfig
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{acct.ConsumerKey, &keys.ConsumerKey},
		{acct.ConsumerSecret, &keys.ConsumerSecret},
		{acct.AccessToken, &keys.AccessToken},
		{acct.AccessTokenSecret, &keys.AccessTokenSecret},
	} {
		v, err := sec.Get(ctx, f.name)
		if err != nil {
			return keys, err
		}
		*f.dst = v
	}
	return keys, nil
}
