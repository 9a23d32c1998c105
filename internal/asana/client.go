// Package asana is a typed client for the Asana REST API. It handles
// bearer authentication, offset-cursor pagination, and rate-limit
// backoff. The client holds no persistent state; the API token is
// resolved from a Source just-in-time for each request and never
// cached in cleartext.
package asana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avanrossum/asana-list/internal/clock"
)

// defaultBaseURL is the public Asana API root.
const defaultBaseURL = "https://app.asana.com/api/1.0"

// pageSize bounds per-request latency while keeping round trips low.
const pageSize = 100

// maxRetryAfter caps the honored Retry-After value so a hostile or
// confused server cannot stall a poll indefinitely.
const maxRetryAfter = 120 * time.Second

// maxAttempts is the total request ceiling for a rate-limited call.
// The third consecutive 429 fails the call rather than retrying again.
const maxAttempts = 3

// Source supplies the decrypted API token at request time. Token
// returns ErrNoCredential when no token is configured.
type Source interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a Source wrapping a fixed token. Used in tests and by
// the -verify path before a token has been persisted.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", ErrNoCredential
	}
	return string(t), nil
}

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL overrides the API root. Defaults to the public API.
	BaseURL string

	// Credential supplies the API token. Required.
	Credential Source

	// HTTPClient is used for all requests. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations for backoff waits. Defaults to
	// clock.Real(). Inject a fake in tests.
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client issues authenticated, paginated requests against the Asana API.
type Client struct {
	baseURL    string
	credential Source
	httpClient *http.Client
	clock      clock.Clock
	logger     *slog.Logger
}

// NewClient creates a Client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Credential == nil {
		return nil, fmt.Errorf("asana: Credential is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("asana: invalid base URL %q: %w", baseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		credential: cfg.Credential,
		httpClient: httpClient,
		clock:      clk,
		logger:     logger,
	}, nil
}

// do executes an authenticated GET against a fully built URL. On 429 it
// honors Retry-After (clamped to maxRetryAfter) and retries up to
// maxAttempts total requests; any other non-2xx status is terminal for
// the call. Returns the raw response body.
func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	token, err := c.credential.Token(ctx)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, status, header, err := c.doOnce(ctx, rawURL, token)
		if err != nil {
			return nil, err
		}
		if status >= 200 && status < 300 {
			return body, nil
		}

		apiErr := parseAPIError(status, body)
		if status != http.StatusTooManyRequests {
			return nil, apiErr
		}
		lastErr = apiErr
		if attempt == maxAttempts {
			break
		}

		wait := retryDelay(header, attempt)
		c.logger.Info("rate limited, backing off",
			"wait", wait,
			"attempt", attempt,
		)
		select {
		case <-c.clock.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, rawURL, token string) ([]byte, int, http.Header, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("asana: creating request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+token)
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("asana: GET %s: %w", request.URL.Path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("asana: reading response body: %w", err)
	}
	return body, response.StatusCode, response.Header, nil
}

// retryDelay computes the backoff before the next attempt. Retry-After
// (seconds) wins when present; otherwise an explicit doubling backoff
// starting at one second. Either way the result is clamped.
func retryDelay(header http.Header, attempt int) time.Duration {
	delay := time.Second << (attempt - 1)
	if s := header.Get("Retry-After"); s != "" {
		if seconds, err := strconv.Atoi(s); err == nil && seconds > 0 {
			delay = time.Duration(seconds) * time.Second
		}
	}
	if delay > maxRetryAfter {
		delay = maxRetryAfter
	}
	return delay
}

// getOne fetches a single object endpoint and decodes the "data"
// envelope into out.
func (c *Client) getOne(ctx context.Context, path string, query url.Values, out any) error {
	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}
	body, err := c.do(ctx, rawURL)
	if err != nil {
		return err
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("asana: parsing response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("asana: parsing response data: %w", err)
	}
	return nil
}

// parseAPIError builds an *APIError from a non-2xx response body.
// Asana wraps errors as {"errors": [{"message": "..."}]}.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}

	var wireError struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil && len(wireError.Errors) > 0 {
		apiErr.Message = wireError.Errors[0].Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
