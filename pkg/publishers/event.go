// Package publishers delivers new-article notifications to Telegram, Twitter
// and optional event sinks (cloud queues and HTTP webhooks).
package publishers

import (
	"context"
	"time"

	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/logger"
)

// Channel publisher types.
const (
	TypeTelegram = "telegram"
	TypeTwitter  = "twitter"
)

// Event is the payload handed to every publisher for one new entry.
type Event struct {
	Source      string     `json:"source"`
	Editorial   string     `json:"editorial"`
	Recipient   string     `json:"recipient,omitempty"`
	Text        string     `json:"text"`
	Link        string     `json:"link"`
	Title       string     `json:"title"`
	Author      string     `json:"author,omitempty"`
	Description string     `json:"description,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewEvent builds the event for an entry of src.
func NewEvent(src domain.Source, e domain.Entry, recipient, text string) Event {
	return Event{
		Source:      src.Name,
		Editorial:   string(src.Editorial),
		Recipient:   recipient,
		Text:        text,
		Link:        e.Link,
		Title:       e.Title,
		Author:      e.Author,
		Description: e.Description,
		PublishedAt: e.PublishedAt,
	}
}

// Publisher delivers an event to one destination.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Logger aliases the shared structured logger.
type Logger = logger.Logger

func ensureLogger(log Logger) Logger { return logger.Ensure(log) }
