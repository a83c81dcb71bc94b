package eform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/garyjia/trash-inspection/internal/application/port"
	"github.com/garyjia/trash-inspection/internal/domain/entity"
)

// Config holds connection settings for the eForm API
type Config struct {
	BaseURL         string
	APIKey          string
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// Client implements port.FormClient over the eForm HTTP/JSON API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cfg        Config
	logger     *zap.Logger
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("eform %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

var errNotFound = errors.New("eform case not found")

// NewClient creates a new eForm client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("eform base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid eform base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = 30 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// ReadCase fetches a completed case
// Implements port.FormClient interface
func (c *Client) ReadCase(ctx context.Context, sdkCaseID string) (*entity.CompletedForm, bool, error) {
	var form entity.CompletedForm
	err := c.withRetry(ctx, "read case", func() error {
		return c.do(ctx, http.MethodGet, casePath(sdkCaseID), &form)
	})
	if errors.Is(err, errNotFound) {
		c.logger.Info("Case not found in form system", zap.String("sdk_case_id", sdkCaseID))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read case %s: %w", sdkCaseID, err)
	}

	if form.CaseID == "" {
		form.CaseID = sdkCaseID
	}
	return &form, true, nil
}

// DeleteCase removes a case from the form system. Deleting an unknown case succeeds.
// Implements port.FormClient interface
func (c *Client) DeleteCase(ctx context.Context, sdkCaseID string) error {
	err := c.withRetry(ctx, "delete case", func() error {
		return c.do(ctx, http.MethodDelete, casePath(sdkCaseID), nil)
	})
	if errors.Is(err, errNotFound) {
		c.logger.Info("Case already absent from form system", zap.String("sdk_case_id", sdkCaseID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete case %s: %w", sdkCaseID, err)
	}
	return nil
}

func casePath(sdkCaseID string) string {
	return "/api/cases/" + url.PathEscape(sdkCaseID)
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxElapsedTime = c.cfg.MaxElapsedTime
	return backoff.WithContext(bo, ctx)
}

// withRetry retries transient failures; 4xx responses stop immediately
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if isPermanentError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, c.newBackOff(ctx), func(err error, wait time.Duration) {
		c.logger.Info("Retrying eform request",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err))
	})
}

func isPermanentError(err error) bool {
	if errors.Is(err, errNotFound) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return !statusErr.Temporary()
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

var _ port.FormClient = (*Client)(nil)
