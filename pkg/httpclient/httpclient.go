// Package httpclient wraps resty behind a small interface shared by fetchers and publishers.
package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client is the HTTP surface used across the module.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error)
	PostJSON(ctx context.Context, url string, headers map[string]string, body any) (*resty.Response, error)
	SendJSON(ctx context.Context, method, url string, headers map[string]string, body any) (*resty.Response, error)
}

type restyClient struct {
	r *resty.Client
}

// NewRestyClient returns a Client with the given request timeout.
func NewRestyClient(timeout time.Duration) Client {
	return wrap(resty.New(), timeout)
}

// NewRestyClientWith builds a Client on top of an existing http.Client,
// e.g. one whose transport signs requests.
func NewRestyClientWith(hc *http.Client, timeout time.Duration) Client {
	if hc == nil {
		return NewRestyClient(timeout)
	}
	return wrap(resty.NewWithClient(hc), timeout)
}

func wrap(r *resty.Client, timeout time.Duration) Client {
	if timeout > 0 {
		r.SetTimeout(timeout)
	}
	return &restyClient{r: r}
}

// Get issues a GET request.
func (c *restyClient) Get(ctx context.Context, url string, headers map[string]string) (*resty.Response, error) {
	return c.r.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
}

// PostJSON issues a POST request with body encoded as JSON.
func (c *restyClient) PostJSON(ctx context.Context, url string, headers map[string]string, body any) (*resty.Response, error) {
	return c.SendJSON(ctx, resty.MethodPost, url, headers, body)
}

// SendJSON issues a request with the given method and a JSON body.
func (c *restyClient) SendJSON(ctx context.Context, method, url string, headers map[string]string, body any) (*resty.Response, error) {
	return c.r.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(headers).
		SetBody(body).
		Execute(method, url)
}
