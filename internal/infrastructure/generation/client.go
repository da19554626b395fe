// Package generation implements the lesson generation API client.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/learnsphere/learnsphere-backend/internal/domain/learningpath"
	"github.com/learnsphere/learnsphere-backend/pkg/circuitbreaker"
	"github.com/learnsphere/learnsphere-backend/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the generation API client.
type ClientConfig struct {
	// BaseURL is the generation service base URL
	BaseURL string

	// APIKey is the API key for authentication (if applicable)
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the lesson generation API client. It implements
// learningpath.Generator; callers get their fallback behavior from the
// domain, so every error path here just surfaces the error.
type Client struct {
	config         ClientConfig
	httpClient     *http.Client
	logger         *slog.Logger
	retrier        *retry.Retrier
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a new generation API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  config.Logger,
		retrier: retry.GeneratorRetrier(),
	}

	c.circuitBreaker = circuitbreaker.GeneratorBreaker(func(name string, from, to circuitbreaker.State) {
		c.logger.Warn("circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	})

	return c
}

// GenerateLesson requests a lesson body for a module from the
// generation service.
func (c *Client) GenerateLesson(ctx context.Context, module learningpath.Module, pathTitle string) (*learningpath.LessonContent, error) {
	reqDTO := lessonRequestFrom(module, pathTitle)

	var respDTO LessonResponseDTO
	err := c.circuitBreaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doSingleRequest(ctx, http.MethodPost, "/v1/lessons", reqDTO, &respDTO)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("generate lesson for module %q: %w", module.Title, err)
	}

	return lessonContentFrom(&respDTO, module)
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doSingleRequest performs a single HTTP request. Retryable failures
// are wrapped for the retrier; everything else is permanent.
func (c *Client) doSingleRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	fullURL := c.config.BaseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	if c.config.Debug {
		c.logger.Debug("generation api request", "method", method, "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isNetworkRetryable(err) {
			return retry.Retryable(fmt.Errorf("http request: %w", err))
		}
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	// Handle error responses
	if resp.StatusCode >= 400 {
		var apiErr APIErrorDTO
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Message != "" {
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return retry.Retryable(&apiErr)
			}
			return &apiErr
		}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return retry.Retryable(fmt.Errorf("api error: status %d", resp.StatusCode))
		}
		return fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	// Unmarshal response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// isNetworkRetryable checks if a transport error is worth retrying.
func isNetworkRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	errStr := err.Error()
	for _, sub := range []string{"timeout", "connection refused", "temporary", "reset", "EOF"} {
		if strings.Contains(errStr, sub) {
			return true
		}
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// IsHealthy checks if the generation service is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	err := c.doSingleRequest(ctx, http.MethodGet, "/health", nil, nil)
	return err == nil
}

// Reset resets the circuit breaker.
func (c *Client) Reset() {
	c.circuitBreaker.Reset()
}
