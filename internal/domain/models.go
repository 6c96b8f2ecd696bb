package domain

import (
	"strings"
	"time"
)

// Domain contains core models and interfaces.

// Stance is the editorial leaning of a source.
type Stance string

const (
	StanceLeft  Stance = "left"
	StanceRight Stance = "right"
)

// Valid reports whether the stance is one of the known values.
func (s Stance) Valid() bool {
	return s == StanceLeft || s == StanceRight
}

// Source is one configured newspaper feed. Values are resolved once at load time.
type Source struct {
	Name      string
	Key       string // storage prefix, e.g. "elabc"
	FeedURL   string
	Editorial Stance
	Authors   []string

	TelegramFiltersByAuthor bool
	IncludeDescription      bool
	TwitterEnabled          bool
}

// HasAllowList reports whether the source restricts authors.
func (s Source) HasAllowList() bool {
	return len(s.Authors) > 0
}

// AllowsAuthor reports whether author is on the allow-list. Matching is exact.
func (s Source) AllowsAuthor(author string) bool {
	for _, a := range s.Authors {
		if a == author {
			return true
		}
	}
	return false
}

// SourceKey derives the storage prefix for a source name.
func SourceKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}

// Entry is one article parsed from a feed document. Link is the dedup key.
type Entry struct {
	Link        string
	Title       string
	Author      string
	Description string
	PublishedAt *time.Time
}

// Snapshot is the parsed content of one feed document plus its raw bytes.
type Snapshot struct {
	Entries []Entry
	Raw     []byte
}

// Channel names a notification destination.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelTwitter  Channel = "twitter"
)

// NotificationTarget is a resolved publish request for one entry.
type NotificationTarget struct {
	Channel   Channel
	Recipient string
	Text      string
}
