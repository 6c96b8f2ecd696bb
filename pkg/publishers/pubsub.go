package publishers

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

type pubsubTransport struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

func newPubSubTransport(ctx context.Context, t *PubSubTarget) (transport, error) {
	if t == nil {
		return nil, errors.New("pubsub target is missing")
	}
	var opts []option.ClientOption
	if t.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(t.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, t.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &pubsubTransport{client: client, topic: client.Topic(t.Topic)}, nil
}

// Deliver blocks until the server acknowledges the message.
func (p *pubsubTransport) Deliver(ctx context.Context, body []byte, attrs map[string]string) (string, error) {
	return p.topic.Publish(ctx, &pubsub.Message{Data: body, Attributes: attrs}).Get(ctx)
}

// Close flushes pending messages before releasing the client.
func (p *pubsubTransport) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
