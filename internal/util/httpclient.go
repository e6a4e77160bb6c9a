package util

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// HTTPClient wraps http.Client with token-bucket rate limiting and
// exponential-backoff retries. All outbound feed and provider traffic goes
// through one of these so upstream rate limits are respected process-wide.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	maxWait time.Duration
}

// HTTPClientOptions configures an HTTPClient. Zero values get defaults.
type HTTPClientOptions struct {
	Timeout         time.Duration // per-request timeout
	RequestsPerSec  int           // sustained outbound request rate
	MaxRetryElapsed time.Duration // total time budget across retries
}

// NewHTTPClient creates a rate-limited, retrying HTTP client.
func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}
	if opts.MaxRetryElapsed == 0 {
		opts.MaxRetryElapsed = 30 * time.Second
	}
	return &HTTPClient{
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		maxWait: opts.MaxRetryElapsed,
	}
}

// Do executes the request built by buildReq, retrying server-side failures
// with exponential backoff. buildReq runs once per attempt because request
// bodies are consumed on send.
func (c *HTTPClient) Do(ctx context.Context, buildReq func() (*http.Request, error)) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp *http.Response
	operation := func() error {
		req, err := buildReq()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err = c.client.Do(req.WithContext(ctx))
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			return &HTTPStatusError{StatusCode: resp.StatusCode}
		}
		return nil
	}

	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = c.maxWait

	if err := backoff.Retry(operation, backoff.WithContext(strategy, ctx)); err != nil {
		return nil, err
	}
	return resp, nil
}

// HTTPStatusError reports a retryable non-2xx status code.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return "unexpected status: " + http.StatusText(e.StatusCode)
}
