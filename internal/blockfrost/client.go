// Package blockfrost talks to the Blockfrost Cardano API and assembles the
// staking snapshot of a stake key.
package blockfrost

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"stakefetcher/internal/fetcher"
	"stakefetcher/internal/ratelimit"
)

// Getter issues a GET against the API and decodes the JSON response into out.
type Getter interface {
	Get(ctx context.Context, path string, params map[string]string, out any) error
}

// Client is a thin wrapper around a resty client. It does not interpret
// response structure and never retries.
type Client struct {
	http    *resty.Client
	limiter *ratelimit.Limiter
}

// NewClient creates a Client. http should come from fetcher.NewHTTPClient so
// that the base URL and project credential are set. limiter may be nil.
func NewClient(http *resty.Client, limiter *ratelimit.Limiter) *Client {
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &Client{
		http:    http,
		limiter: limiter,
	}
}

// Get fetches path, substituting {name} placeholders from params, and
// decodes the body into out. Errors are *fetcher.FetchError values.
func (c *Client) Get(ctx context.Context, path string, params map[string]string, out any) error {
	if err := c.limiter.Wait(ctx, ratelimit.APIBlockfrost); err != nil {
		return fetcher.NewNetworkError(err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(params).
		SetResult(out).
		Get(path)

	if err != nil {
		// A response that arrived but could not be decoded is the API's
		// fault, not the network's.
		if resp != nil && resp.IsSuccess() {
			return fetcher.NewMalformedError(fmt.Sprintf("decode %s: %v", path, err))
		}
		return fetcher.NewNetworkError(err)
	}

	if !resp.IsSuccess() {
		return fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	return nil
}
