package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/pkg/httpclient"
)

const maxErrorBodyBytes = 1024

// webhookSink sends each event as a JSON request.
type webhookSink struct {
	id      string
	url     string
	method  string
	headers map[string]string
	client  httpclient.Client
	log     Logger
}

func newWebhookSink(_ context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	w := cfg.Webhook
	if w == nil {
		return nil, fmt.Errorf("sink %q has no webhook section", cfg.ID)
	}
	return &webhookSink{
		id:      cfg.ID,
		url:     w.URL,
		method:  w.Method,
		headers: w.Headers,
		client:  httpclient.NewRestyClient(time.Duration(w.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (w *webhookSink) ID() string   { return w.id }
func (w *webhookSink) Type() string { return KindWebhook }

// Publish treats any non-2xx status as a failure.
func (w *webhookSink) Publish(ctx context.Context, evt Event) error {
	resp, err := w.client.SendJSON(ctx, w.method, w.url, w.headers, evt)
	if err != nil {
		return &domain.DispatchError{Channel: domain.Channel(w.id), Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return &domain.DispatchError{Channel: domain.Channel(w.id), StatusCode: code, Body: truncate(resp.Body())}
	}

	w.log.DebugObj("event delivered to webhook", "sink_webhook_delivery", map[string]any{
		"sink_id": w.id,
		"status":  resp.StatusCode(),
		"source":  evt.Source,
		"entry":   evt.Link,
	})
	return nil
}

// truncate trims body and caps it for error reports.
func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBodyBytes {
		return s[:maxErrorBodyBytes]
	}
	return s
}
