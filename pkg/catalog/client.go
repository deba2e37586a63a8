package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

type listResponse[T any] struct {
	Items []T `json:"items"`
}

// Client fetches catalogs from the CMS snippet API.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json")
	return &Client{http: http, logger: logger}
}

func (c *Client) Schemes(ctx context.Context) ([]Scheme, error) {
	return fetch[Scheme](ctx, c, "/api/v2/catalog/schemes/")
}

func (c *Client) Districts(ctx context.Context) ([]District, error) {
	return fetch[District](ctx, c, "/api/v2/catalog/districts/")
}

func (c *Client) Mandals(ctx context.Context) ([]Mandal, error) {
	return fetch[Mandal](ctx, c, "/api/v2/catalog/mandals/")
}

func fetch[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out listResponse[T]
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).Get(path)
	if err != nil {
		return nil, fmt.Errorf("cms %s: %w", path, err)
	}
	if resp.IsError() {
		c.logger.Warn("cms returned error", zap.String("path", path), zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("cms %s: status %d", path, resp.StatusCode())
	}
	return out.Items, nil
}
