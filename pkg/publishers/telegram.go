package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/pkg/httpclient"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramConfig configures the Bot API publisher.
type TelegramConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type telegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

// telegramPublisher sends messages through the Telegram Bot API.
type telegramPublisher struct {
	endpoint string
	client   httpclient.Client
	log      Logger
}

// NewTelegramPublisher builds a publisher that sends evt.Text to evt.Recipient.
func NewTelegramPublisher(cfg TelegramConfig, client httpclient.Client, log Logger) (Publisher, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("telegram bot token is empty")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultTelegramBaseURL
	}
	if client == nil {
		client = httpclient.NewRestyClient(cfg.Timeout)
	}
	return &telegramPublisher{
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", base, token),
		client:   client,
		log:      ensureLogger(log),
	}, nil
}

func (p *telegramPublisher) ID() string   { return TypeTelegram }
func (p *telegramPublisher) Type() string { return TypeTelegram }

// Publish sends the event text to the chat named by evt.Recipient.
func (p *telegramPublisher) Publish(ctx context.Context, evt Event) error {
	if strings.TrimSpace(evt.Recipient) == "" {
		return &domain.DispatchError{Channel: domain.ChannelTelegram, Err: errors.New("chat id is empty")}
	}

	resp, err := p.client.PostJSON(ctx, p.endpoint, nil, telegramSendRequest{ChatID: evt.Recipient, Text: evt.Text})
	if err != nil {
		// The request URL carries the bot token; never surface it.
		return &domain.DispatchError{Channel: domain.ChannelTelegram, Err: errors.New(redact(err.Error(), p.endpoint))}
	}

	var out telegramSendResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)
	if resp.StatusCode() != http.StatusOK || decodeErr != nil || !out.OK {
		return &domain.DispatchError{
			Channel:    domain.ChannelTelegram,
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.Body()),
		}
	}

	p.log.InfoObj("telegram message posted", "telegram_posted", map[string]any{
		"source":     evt.Source,
		"chat_id":    evt.Recipient,
		"message_id": out.Result.MessageID,
	})
	return nil
}

func redact(msg, endpoint string) string {
	return strings.ReplaceAll(msg, endpoint, "<telegram-endpoint>")
}
