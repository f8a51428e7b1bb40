// Package ingest provides the resilient HTTP client for the judicial-portal
// ingest service.  The service scrapes the external portal and exposes one
// normalized snapshot endpoint per source.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/logging"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/monitoring/prometheus"
	"github.com/1128026Go/Arconte-sub000/pkg/errors"
)

// apiKeyHeader carries the ingest service credential.
const apiKeyHeader = "X-API-Key"

// Config holds the ingest client parameters.
type Config struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	Source        string        `mapstructure:"source"`
	Timeout       time.Duration `mapstructure:"timeout"`
	HealthTimeout time.Duration `mapstructure:"health_timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// Client fetches normalized case snapshots.  Safe for concurrent use.
//
// FetchNormalized blocks its caller for up to timeout*(retries+1); invoke it
// from a worker, not a request-serving goroutine.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logging.Logger
	metrics    *prometheus.Metrics
}

// NewClient constructs an ingest Client, applying defaults for unset fields:
// source "ramajud", timeout 15s, health timeout 3s, 2 retries, 500ms backoff.
func NewClient(cfg Config, log logging.Logger, metrics *prometheus.Metrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewValidation("ingest base url cannot be empty")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, errors.NewValidation("ingest base url must be http or https").
			WithDetail("base_url=" + cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Source == "" {
		cfg.Source = "ramajud"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HealthTimeout == 0 {
		cfg.HealthTimeout = 3 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.Named("ingest"),
		metrics:    metrics,
	}, nil
}

// FetchNormalized retrieves the normalized snapshot for one case number.
//
// Only connection failures and 5xx upstream responses are retried, with a
// fixed backoff between attempts.  Auth failures (401/403) and unknown cases
// (404) fail immediately; exhausted 502/503 retries surface as a transient
// ErrCodeIngestUnavailable.
func (c *Client) FetchNormalized(ctx context.Context, caseNumber string) (*Snapshot, error) {
	endpoint := fmt.Sprintf("%s/ingest/%s-normalized/%s",
		c.cfg.BaseURL, c.cfg.Source, url.PathEscape(caseNumber))

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if c.metrics != nil {
				c.metrics.IngestRetriesTotal.Inc()
			}
			select {
			case <-time.After(c.cfg.RetryBackoff):
			case <-ctx.Done():
				return nil, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "ingest fetch cancelled")
			}
		}

		snap, retry, err := c.fetchOnce(ctx, endpoint, caseNumber)
		if err == nil {
			c.observe("ok")
			return snap, nil
		}
		lastErr = err
		if !retry {
			c.observe("fatal")
			return nil, err
		}
		c.logger.Warn("ingest fetch failed, will retry",
			logging.String("case_number", caseNumber),
			logging.Int("attempt", attempt+1),
			logging.Err(err),
		)
	}

	c.observe("exhausted")
	return nil, lastErr
}

// fetchOnce performs a single attempt.  The middle return value reports
// whether the failure may be retried: connection failures and 5xx responses
// are; everything else fails fast.
func (c *Client) fetchOnce(ctx context.Context, endpoint, caseNumber string) (*Snapshot, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeIngestUnexpected, "failed to build ingest request")
	}
	req.Header.Set(apiKeyHeader, c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrCodeIngestUnavailable, "ingest unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode >= 500, c.statusError(resp, caseNumber)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, errors.Wrap(err, errors.ErrCodeIngestUnavailable, "failed to read ingest response")
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeIngestUnexpected, "ingest response is not valid JSON")
	}
	return &snap, false, nil
}

// statusError maps an upstream HTTP status to the ingest error taxonomy.
func (c *Client) statusError(resp *http.Response, caseNumber string) error {
	detail := fmt.Sprintf("status=%d case_number=%s", resp.StatusCode, caseNumber)
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.New(errors.ErrCodeIngestAuth, "ingest rejected api key").WithDetail(detail)
	case resp.StatusCode == http.StatusNotFound:
		return errors.New(errors.ErrCodeCaseNotFound, "case not found in the judicial portal").WithDetail(detail)
	case resp.StatusCode == http.StatusBadGateway || resp.StatusCode == http.StatusServiceUnavailable:
		return errors.New(errors.ErrCodeIngestUnavailable, "ingest upstream unavailable").WithDetail(detail)
	default:
		return errors.New(errors.ErrCodeIngestUnexpected, "unexpected ingest response").WithDetail(detail)
	}
}

// Health performs a short-timeout liveness probe against the ingest service.
// All errors collapse to false; the probe never disturbs callers.
func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *Client) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.IngestRequestsTotal.WithLabelValues(outcome).Inc()
	}
}
