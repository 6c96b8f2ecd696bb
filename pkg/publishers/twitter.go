package publishers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/samvad-hq/rss-opinion/internal/domain"
	"github.com/samvad-hq/rss-opinion/pkg/httpclient"
)

const defaultTwitterBaseURL = "https://api.twitter.com"

// TwitterConfig holds OAuth1 user-context credentials for one account.
type TwitterConfig struct {
	BaseURL           string
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string
	Timeout           time.Duration
}

func (c TwitterConfig) validate() error {
	switch {
	case strings.TrimSpace(c.ConsumerKey) == "":
		return errors.New("twitter consumer key is empty")
	case strings.TrimSpace(c.ConsumerSecret) == "":
		return errors.New("twitter consumer secret is empty")
	case strings.TrimSpace(c.AccessToken) == "":
		return errors.New("twitter access token is empty")
	case strings.TrimSpace(c.AccessTokenSecret) == "":
		return errors.New("twitter access token secret is empty")
	}
	return nil
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

// twitterPublisher creates tweets through the v2 API.
type twitterPublisher struct {
	endpoint string
	client   httpclient.Client
	log      Logger
}

// NewTwitterPublisher builds a publisher whose requests are OAuth1-signed.
func NewTwitterPublisher(ctx context.Context, cfg TwitterConfig, log Logger) (Publisher, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	signer := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)

	return newTwitterPublisher(cfg.BaseURL, httpclient.NewRestyClientWith(signer.Client(ctx, token), cfg.Timeout), log), nil
}

func newTwitterPublisher(baseURL string, client httpclient.Client, log Logger) *twitterPublisher {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultTwitterBaseURL
	}
	return &twitterPublisher{
		endpoint: base + "/2/tweets",
		client:   client,
		log:      ensureLogger(log),
	}
}

func (p *twitterPublisher) ID() string   { return TypeTwitter }
func (p *twitterPublisher) Type() string { return TypeTwitter }

// Publish posts evt.Text as a tweet. Only 201 Created counts as success.
func (p *twitterPublisher) Publish(ctx context.Context, evt Event) error {
	resp, err := p.client.PostJSON(ctx, p.endpoint, nil, tweetRequest{Text: evt.Text})
	if err != nil {
		return &domain.DispatchError{Channel: domain.ChannelTwitter, Err: err}
	}
	if resp.StatusCode() != http.StatusCreated {
		return &domain.DispatchError{
			Channel:    domain.ChannelTwitter,
			StatusCode: resp.StatusCode(),
			Body:       truncate(resp.Body()),
		}
	}

	var out tweetResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		p.log.WarnObj("tweet created but response was unreadable", "twitter_response_decode", map[string]any{
			"source": evt.Source,
			"error":  err.Error(),
		})
	}
	p.log.InfoObj("tweet posted", "twitter_posted", map[string]any{
		"source":   evt.Source,
		"tweet_id": out.Data.ID,
	})
	return nil
}
