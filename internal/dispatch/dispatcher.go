// Package dispatch routes new feed entries to notification channels.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/internal/logger"
	"github.com/samvad-hq/rss-opinion/pkg/publishers"
)

const defaultPublishTimeout = 30 * time.Second

// Options wires the dispatcher's channels. A nil Telegram publisher or a
// missing Twitter entry means that channel's credentials were unavailable.
type Options struct {
	Telegram         publishers.Publisher
	Twitter          map[domain.Stance]publishers.Publisher
	Sinks            []publishers.Publisher
	TelegramChannels map[domain.Stance]string
	Timeout          time.Duration
	Log              logger.Logger
}

// Dispatcher publishes notifications for new entries.
type Dispatcher struct {
	telegram publishers.Publisher
	twitter  map[domain.Stance]publishers.Publisher
	sinks    []publishers.Publisher
	channels map[domain.Stance]string
	timeout  time.Duration
	log      logger.Logger
}

// New builds a Dispatcher.
func New(opts Options) *Dispatcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	return &Dispatcher{
		telegram: opts.Telegram,
		twitter:  opts.Twitter,
		sinks:    opts.Sinks,
		channels: opts.TelegramChannels,
		timeout:  timeout,
		log:      logger.Ensure(opts.Log),
	}
}

// PostsToTelegram reports whether e goes to the source's Telegram channel.
// Only sources flagged TelegramFiltersByAuthor with a non-empty allow-list filter.
func PostsToTelegram(src domain.Source, e domain.Entry) bool {
	if src.TelegramFiltersByAuthor && src.HasAllowList() {
		return src.AllowsAuthor(e.Author)
	}
	return true
}

// WantsTwitter reports whether e qualifies for Twitter by author. Whether the
// source can actually tweet is decided by Source.TwitterEnabled.
func WantsTwitter(src domain.Source, e domain.Entry) bool {
	return src.AllowsAuthor(e.Author)
}

// Dispatch publishes every entry to its channels. Failures are recorded in the
// report and never stop later channels or entries.
func (d *Dispatcher) Dispatch(ctx context.Context, src domain.Source, entries []domain.Entry) domain.DispatchReport {
	var rep domain.DispatchReport
	for _, e := range entries {
		d.toTelegram(ctx, src, e, &rep)
		d.toTwitter(ctx, src, e, &rep)
		d.toSinks(ctx, src, e, &rep)
	}

	d.log.InfoObj("dispatch finished", "dispatch_done", map[string]any{
		"source":  src.Name,
		"entries": len(entries),
		"sent":    rep.Count(domain.DispatchSent),
		"failed":  rep.Count(domain.DispatchFailed),
		"skipped": rep.Count(domain.DispatchSkipped),
	})
	return rep
}

func (d *Dispatcher) toTelegram(ctx context.Context, src domain.Source, e domain.Entry, rep *domain.DispatchReport) {
	if !PostsToTelegram(src, e) {
		return
	}

	chatID := d.channels[src.Editorial]
	if chatID == "" {
		d.log.ErrorObj("no telegram channel configured for editorial stance", "telegram_no_channel", map[string]any{
			"source":    src.Name,
			"editorial": string(src.Editorial),
			"entry":     e.Link,
		})
		rep.Skipped(domain.ChannelTelegram, e.Link, domain.ReasonNoChannel)
		return
	}
	if d.telegram == nil {
		d.log.WarnObj("telegram unavailable, skipping entry", "telegram_unavailable", map[string]any{
			"source": src.Name,
			"entry":  e.Link,
		})
		rep.Skipped(domain.ChannelTelegram, e.Link, domain.ReasonTelegramUnavailable)
		return
	}

	target := domain.NotificationTarget{Channel: domain.ChannelTelegram, Recipient: chatID, Text: MessageText(src, e)}
	d.publish(ctx, d.telegram, target, src, e, rep)
}

func (d *Dispatcher) toTwitter(ctx context.Context, src domain.Source, e domain.Entry, rep *domain.DispatchReport) {
	if !WantsTwitter(src, e) {
		return
	}

	if !src.TwitterEnabled {
		d.log.WarnObj("twitter posting not implemented for source", "twitter_disabled", map[string]any{
			"source":    src.Name,
			"editorial": string(src.Editorial),
			"entry":     e.Link,
		})
		rep.Skipped(domain.ChannelTwitter, e.Link, domain.ReasonTwitterDisabled)
		return
	}

	pub := d.twitter[src.Editorial]
	if pub == nil {
		d.log.WarnObj("no twitter account available for editorial stance", "twitter_unavailable", map[string]any{
			"source":    src.Name,
			"editorial": string(src.Editorial),
			"entry":     e.Link,
		})
		rep.Skipped(domain.ChannelTwitter, e.Link, domain.ReasonTwitterUnavailable)
		return
	}

	target := domain.NotificationTarget{Channel: domain.ChannelTwitter, Text: TweetText(src, e)}
	d.publish(ctx, pub, target, src, e, rep)
}

func (d *Dispatcher) toSinks(ctx context.Context, src domain.Source, e domain.Entry, rep *domain.DispatchReport) {
	if len(d.sinks) == 0 {
		return
	}
	text := MessageText(src, e)
	for _, sink := range d.sinks {
		if f, ok := sink.(publishers.Filter); ok && !f.Accepts(publishers.NewEvent(src, e, "", text)) {
			continue
		}
		target := domain.NotificationTarget{Channel: domain.Channel(sink.ID()), Text: text}
		d.publish(ctx, sink, target, src, e, rep)
	}
}

// publish runs one channel publish under its own timeout.
func (d *Dispatcher) publish(ctx context.Context, pub publishers.Publisher, target domain.NotificationTarget, src domain.Source, e domain.Entry, rep *domain.DispatchReport) {
	err := d.call(ctx, pub, publishers.NewEvent(src, e, target.Recipient, target.Text))
	if err != nil {
		d.log.ErrorObj("publish failed", "dispatch_error", map[string]any{
			"source":    src.Name,
			"channel":   string(target.Channel),
			"recipient": target.Recipient,
			"entry":     e.Link,
			"error":     err.Error(),
		})
		rep.Failed(target, e.Link, err)
		return
	}
	rep.Sent(target, e.Link)
}

func (d *Dispatcher) call(ctx context.Context, pub publishers.Publisher, evt publishers.Event) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: publisher %s panicked: %v", domain.ErrDispatch, pub.ID(), r)
		}
	}()
	return pub.Publish(ctx, evt)
}
