// Package n9e provides a client for the N9E (Nightingale) API, used as the
// remote device registry.
package n9e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"msp-toolkit/internal/config"
	"msp-toolkit/internal/model"
)

// DefaultClientTag is the target tag carrying the owning client id.
const DefaultClientTag = "client"

// Client is a client for the N9E API.
type Client struct {
	endpoint   string
	timeout    time.Duration
	retry      config.RetryConfig
	query      string
	clientTag  string
	httpClient *resty.Client
	logger     zerolog.Logger
}

// NewClient creates a new N9E API client. token is the already resolved
// API token; cfg.Token may be a secret reference and is not used directly.
func NewClient(cfg *config.N9EConfig, token string, retryCfg *config.RetryConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retry := config.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
	}
	if retryCfg != nil {
		retry = *retryCfg
	}

	clientTag := cfg.ClientTag
	if clientTag == "" {
		clientTag = DefaultClientTag
	}

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("X-User-Token", token).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay * 8).
		AddRetryCondition(retryCondition)

	return &Client{
		endpoint:   cfg.Endpoint,
		timeout:    timeout,
		retry:      retry,
		query:      cfg.Query,
		clientTag:  clientTag,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "n9e-client").Logger(),
	}
}

// retryCondition retries transport failures and 5xx responses, never 4xx.
func retryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode() >= 500
}

// Name identifies the registry in logs and diagnostics.
func (c *Client) Name() string { return "n9e" }

// GetTargets retrieves the targets matching query, combined with the
// configured base query.
func (c *Client) GetTargets(ctx context.Context, query string) ([]TargetData, error) {
	finalQuery := strings.TrimSpace(strings.Join([]string{c.query, query}, " "))
	c.logger.Debug().Str("query", finalQuery).Msg("fetching targets from N9E")

	var result TargetsResponse

	queryParams := map[string]string{
		"limit": "10000",
		"p":     "1",
	}
	if finalQuery != "" {
		queryParams["query"] = finalQuery
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetQueryParams(queryParams).
		Get("/api/n9e/targets")

	if err != nil {
		c.logger.Error().Err(err).Msg("failed to fetch targets")
		return nil, fmt.Errorf("failed to fetch targets: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("body", string(resp.Body())).
			Msg("N9E API returned non-200 status")
		return nil, fmt.Errorf("N9E API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	if result.Err != "" {
		c.logger.Error().Str("api_error", result.Err).Msg("N9E API returned error")
		return nil, fmt.Errorf("N9E API error: %s", result.Err)
	}

	c.logger.Debug().Int("count", len(result.Dat.List)).Int("total", result.Dat.Total).Msg("fetched targets successfully")
	return result.Dat.List, nil
}

// ListDevicesFor returns the targets tagged with clientID. N9E does not know
// about clients, so an unknown client simply has no devices. Transport and
// API failures are returned as *model.IntegrationError.
func (c *Client) ListDevicesFor(ctx context.Context, clientID string) ([]model.DeviceRef, error) {
	targets, err := c.GetTargets(ctx, c.clientTag+"="+clientID)
	if err != nil {
		return nil, &model.IntegrationError{Integration: "n9e", Err: err}
	}

	refs := make([]model.DeviceRef, 0, len(targets))
	for i := range targets {
		// The query parameter is a fuzzy search; keep exact tag matches only.
		if v, ok := targets[i].TagValue(c.clientTag); !ok || v != clientID {
			continue
		}
		refs = append(refs, targets[i].ToDeviceRef())
	}

	c.logger.Debug().
		Str("client_id", clientID).
		Int("targets", len(targets)).
		Int("devices", len(refs)).
		Msg("resolved client devices")
	return refs, nil
}

// Ping verifies the endpoint and token with a minimal targets request.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"limit": "1", "p": "1"}).
		Get("/api/n9e/targets")
	if err != nil {
		return fmt.Errorf("failed to reach N9E: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("N9E API returned status %d", resp.StatusCode())
	}
	return nil
}
