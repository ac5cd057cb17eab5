package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mandi/internal/common"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when no source-specific agent is configured
const DefaultUserAgent = "Mozilla/5.0"

// maxBodyBytes caps how much of a response body is read into memory
const maxBodyBytes = 16 << 20

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// StatusError is a non-2xx response
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// Client fetches remote documents with pacing, per-request timeouts and retries.
// Every external source (official API, web portal, weather, news) goes through one.
type Client struct {
	source     string
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     *RetryPolicy
	userAgent  string
	logger     arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRetryPolicy overrides the policy derived from config.
func WithRetryPolicy(policy *RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient creates a client for one named source using its retry settings.
// RequestDelay becomes the minimum spacing between outbound requests.
func NewClient(source string, config common.RetryConfig, logger arbor.ILogger, opts ...ClientOption) *Client {
	limit := rate.Inf
	if config.RequestDelay > 0 {
		limit = rate.Every(config.RequestDelay)
	}

	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		source:     source,
		httpClient: NewDefaultHTTPClient(timeout),
		limiter:    rate.NewLimiter(limit, 1),
		policy:     NewRetryPolicy(config),
		userAgent:  DefaultUserAgent,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Source returns the name used in logs and errors
func (c *Client) Source() string {
	return c.source
}

// Get fetches rawURL with params and returns the body. Transient failures are
// retried; exhausting the retries yields a *models.TransientFetchError.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	reqURL := rawURL
	if len(params) > 0 {
		reqURL = rawURL + "?" + params.Encode()
	}

	var body []byte
	err := c.policy.Execute(ctx, c.logger, c.source, func(ctx context.Context) (int, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, URL: rawURL, Body: string(data)}
		}

		body = data
		return resp.StatusCode, nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().Str("source", c.source).Str("url", rawURL).Int("bytes", len(body)).Msg("Fetched")
	return body, nil
}
