// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/backoffice-tui/internal/logging"
)

// Configuration constants for the identity service.
const (
	// DefaultBaseURL is the hosted admin identity service.
	DefaultBaseURL = "https://click2eat-backend-admin-service.onrender.com/api"

	// DefaultTimeout is the default timeout for a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retries for transient errors.
	DefaultMaxRetries = 2

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff delay.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 1 << 20 // 1 MiB

	userAgent = "backoffice/1.0"
)

// Client talks to the identity service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	log        *logging.Logger
}

// NewClient creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		maxRetries: DefaultMaxRetries,
		backoff:    retryBaseDelay,
		log:        logging.Discard(),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries >= 0 {
		c.maxRetries = maxRetries
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithBackoff sets the base retry delay.
func (c *Client) WithBackoff(base time.Duration) *Client {
	c.backoff = base
	return c
}

// WithLogger sets the logger for request/response lines.
func (c *Client) WithLogger(l *logging.Logger) *Client {
	if l != nil {
		c.log = l.WithComponent("identity")
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Login exchanges credentials for a token and the user record.
// A 4xx response is returned as *APIError (see IsClientError).
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	const op = "login"

	body, err := json.Marshal(Credentials{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	status, data, err := c.do(ctx, op, http.MethodPost, "/admins/login", body, "", true)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, apiError(op, status, data)
	}

	var resp LoginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%s: %w: missing token", op, ErrMalformedResponse)
	}
	return &resp, nil
}

// Register creates a staff account. Service-side rejections come back as
// RegisterResponse{Success: false}; only transport failures return an error.
func (c *Client) Register(ctx context.Context, form RegisterForm) (*RegisterResponse, error) {
	const op = "register"

	body, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	status, data, err := c.do(ctx, op, http.MethodPost, "/admins/register", body, "", false)
	if err != nil {
		return nil, err
	}

	var env envelope
	_ = json.Unmarshal(data, &env)

	if status < 200 || status > 299 {
		return &RegisterResponse{Success: false, Message: env.message()}, nil
	}
	if env.Success != nil && !*env.Success {
		return &RegisterResponse{Success: false, Message: env.message()}, nil
	}

	doc := map[string]interface{}{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
		}
	}
	return &RegisterResponse{Success: true, Message: env.Message, Data: doc}, nil
}

// ListAdmins returns the staff directory using a bearer token.
func (c *Client) ListAdmins(ctx context.Context, token string) ([]UserRecord, error) {
	const op = "list admins"

	status, data, err := c.do(ctx, op, http.MethodGet, "/admins/profile", nil, token, true)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, apiError(op, status, data)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
	}
	if env.Success != nil && !*env.Success {
		msg := env.message()
		if msg == "" {
			msg = "Failed to fetch admins"
		}
		return nil, &APIError{Op: op, Status: status, Message: msg}
	}

	users := []UserRecord{}
	if len(env.Data) > 0 && !bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		if err := json.Unmarshal(env.Data, &users); err != nil {
			return nil, fmt.Errorf("%s: %w: %v", op, ErrMalformedResponse, err)
		}
	}
	return users, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do sends one logical request, retrying transport errors and 5xx responses
// when retry is set. It returns the final status and the size-limited body.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte, token string, retry bool) (int, []byte, error) {
	attempts := 1
	if retry {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt - 1)
			c.log.Debug("retrying request", "op", op, "attempt", attempt, "delay", delay.String())
			select {
			case <-ctx.Done():
				return 0, nil, &NetworkError{Op: op, Err: ctx.Err()}
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return 0, nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgent)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		c.logRequest(req)
		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = &NetworkError{Op: op, Err: err}
			if ctx.Err() != nil {
				return 0, nil, &NetworkError{Op: op, Err: ctx.Err()}
			}
			continue
		}

		data, readErr := readResponse(resp)
		resp.Body.Close()
		c.logResponse(op, resp.StatusCode, time.Since(start))

		if readErr != nil {
			if errors.Is(readErr, ErrResponseTooLarge) {
				return resp.StatusCode, nil, fmt.Errorf("%s: %w", op, readErr)
			}
			lastErr = &NetworkError{Op: op, Err: readErr}
			continue
		}

		if resp.StatusCode >= 500 && attempt < attempts-1 {
			lastErr = apiError(op, resp.StatusCode, data)
			continue
		}
		return resp.StatusCode, data, nil
	}
	return 0, nil, lastErr
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("%w of %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

// apiError builds an APIError using the service's message when present.
func apiError(op string, status int, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		return &APIError{Op: op, Status: status, Message: env.message()}
	}
	return &APIError{Op: op, Status: status}
}

// calculateBackoff returns the delay before retry number attempt (0-based).
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := c.backoff * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// logRequest logs method and path only; headers carry the bearer token.
func (c *Client) logRequest(req *http.Request) {
	c.log.Debug("identity request", "method", req.Method, "path", req.URL.Path)
}

func (c *Client) logResponse(op string, status int, duration time.Duration) {
	c.log.Debug("identity response", "op", op, "status", status, "duration_ms", duration.Milliseconds())
}
