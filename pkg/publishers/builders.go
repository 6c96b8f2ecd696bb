package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// SinkBuilder creates the publisher for one sink declaration.
type SinkBuilder func(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error)

// Builders maps sink kinds to their builders.
type Builders map[string]SinkBuilder

// DefaultBuilders knows every sink kind a sinks file may declare.
func DefaultBuilders() Builders {
	return Builders{
		KindQueue:   newQueueSink,
		KindWebhook: newWebhookSink,
	}
}

// Build creates the publisher for cfg. Sinks with filters are wrapped so the
// dispatcher can ask them whether an event applies.
func (b Builders) Build(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	build, ok := b[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("no builder registered for sink kind %q", cfg.Kind)
	}
	pub, err := build(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if len(cfg.Sources) == 0 && cfg.Editorial == "" {
		return pub, nil
	}
	return &filteredSink{Publisher: pub, cfg: cfg}, nil
}

// BuildSinks builds every enabled sink. On error, sinks already built are closed.
func BuildSinks(ctx context.Context, b Builders, cfgs []SinkConfig, log Logger) ([]Publisher, error) {
	log = ensureLogger(log)

	var out []Publisher
	for _, cfg := range cfgs {
		if !cfg.IsEnabled() {
			log.InfoObj("event sink disabled, skipping", "sink_disabled", map[string]any{"sink_id": cfg.ID})
			continue
		}
		pub, err := b.Build(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("build sink %q: %w", cfg.ID, err), CloseAll(out))
		}
		log.InfoObj("event sink ready", "sink_ready", map[string]any{
			"sink_id": cfg.ID,
			"kind":    cfg.Kind,
		})
		out = append(out, pub)
	}
	return out, nil
}

// CloseAll closes every publisher that holds resources.
func CloseAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sink %q: %w", p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Filter is implemented by sinks that only want some events.
type Filter interface {
	Accepts(evt Event) bool
}

type filteredSink struct {
	Publisher
	cfg SinkConfig
}

func (f *filteredSink) Accepts(evt Event) bool { return f.cfg.Accepts(evt) }

func (f *filteredSink) Close() error {
	if c, ok := f.Publisher.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
