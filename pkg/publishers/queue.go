package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// transport delivers an encoded event to a broker and returns its message id.
type transport interface {
	Deliver(ctx context.Context, body []byte, attrs map[string]string) (string, error)
}

// queueSink encodes events as JSON and hands them to a broker transport.
type queueSink struct {
	id       string
	provider string
	out      transport
	log      Logger
}

func newQueueSink(ctx context.Context, cfg SinkConfig, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("sink %q has no queue section", cfg.ID)
	}

	var (
		out transport
		err error
	)
	switch q := cfg.Queue; q.Provider {
	case ProviderSQS:
		out, err = newSQSTransport(ctx, q.SQS)
	case ProviderSNS:
		out, err = newSNSTransport(ctx, q.SNS)
	case ProviderPubSub:
		out, err = newPubSubTransport(ctx, q.PubSub)
	default:
		err = fmt.Errorf("queue provider %q not supported", q.Provider)
	}
	if err != nil {
		return nil, err
	}

	return &queueSink{id: cfg.ID, provider: cfg.Queue.Provider, out: out, log: ensureLogger(log)}, nil
}

func (q *queueSink) ID() string   { return q.id }
func (q *queueSink) Type() string { return KindQueue }

// Publish sends evt with source and editorial attributes so subscribers can
// filter without decoding the body.
func (q *queueSink) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msgID, err := q.out.Deliver(ctx, body, eventAttributes(evt))
	if err != nil {
		return fmt.Errorf("%s sink %q: %w", q.provider, q.id, err)
	}

	q.log.DebugObj("event delivered to queue", "sink_queue_delivery", map[string]any{
		"sink_id":    q.id,
		"provider":   q.provider,
		"message_id": msgID,
		"source":     evt.Source,
		"entry":      evt.Link,
	})
	return nil
}

func (q *queueSink) Close() error {
	if c, ok := q.out.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func eventAttributes(evt Event) map[string]string {
	return map[string]string{
		"source":    evt.Source,
		"editorial": evt.Editorial,
	}
}
