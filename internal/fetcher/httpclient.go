package fetcher

import (
	"time"

	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// HeaderProjectID carries the Blockfrost project credential.
const HeaderProjectID = "project_id"

// NewHTTPClient creates a resty client for the upstream API. Every request
// carries the project credential. Retries are disabled: a failed call
// fails the whole fetch cycle and the user re-triggers it.
func NewHTTPClient(baseURL, projectID string, timeout time.Duration) *resty.Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader(HeaderProjectID, projectID).
		SetRetryCount(0).
		AddResponseMiddleware(logResponse)

	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return client
}

// logResponse traces every upstream exchange
func logResponse(_ *resty.Client, r *resty.Response) error {
	logrus.WithFields(logrus.Fields{
		"module": "fetcher",
		"url":    r.Request.URL,
		"status": r.StatusCode(),
	}).Trace("upstream response")
	return nil
}
