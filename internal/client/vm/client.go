// Package vm provides a client for the VictoriaMetrics/Prometheus query API.
package vm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"msp-toolkit/internal/config"
)

// Client is a client for the VictoriaMetrics/Prometheus API.
type Client struct {
	endpoint   string
	timeout    time.Duration
	retry      config.RetryConfig
	httpClient *resty.Client
	logger     zerolog.Logger
}

// NewClient creates a new VictoriaMetrics/Prometheus API client.
func NewClient(cfg *config.VictoriaMetricsConfig, retryCfg *config.RetryConfig, logger zerolog.Logger) *Client {
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

	httpClient := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetRetryCount(retry.MaxRetries).
		SetRetryWaitTime(retry.BaseDelay).
		SetRetryMaxWaitTime(retry.BaseDelay * 8).
		AddRetryCondition(retryCondition)

	return &Client{
		endpoint:   cfg.Endpoint,
		timeout:    timeout,
		retry:      retry,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "vm-client").Logger(),
	}
}

// Endpoint returns the configured API base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// retryCondition retries transport failures and 5xx responses, never 4xx.
func retryCondition(resp *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp != nil && resp.StatusCode() >= 500
}

// Query executes an instant query at the /api/v1/query endpoint.
func (c *Client) Query(ctx context.Context, query string) (*QueryResponse, error) {
	return c.QueryWithLabels(ctx, query, nil)
}

// QueryWithLabels executes an instant query after adding an equality matcher
// for every entry of labels to each selector in query.
func (c *Client) QueryWithLabels(ctx context.Context, query string, labels map[string]string) (*QueryResponse, error) {
	finalQuery := InjectLabels(query, labels)

	c.logger.Debug().
		Str("query", finalQuery).
		Msg("executing PromQL query")

	var result QueryResponse

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("query", finalQuery).
		SetResult(&result).
		Get("/api/v1/query")

	if err != nil {
		c.logger.Error().Err(err).Str("query", finalQuery).Msg("failed to execute query")
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode()).
			Str("body", string(resp.Body())).
			Str("query", finalQuery).
			Msg("VM API returned non-200 status")
		return nil, fmt.Errorf("VM API returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	if !result.IsSuccess() {
		c.logger.Error().
			Str("error_type", result.ErrorType).
			Str("error", result.Error).
			Str("query", finalQuery).
			Msg("VM API returned error")
		return nil, fmt.Errorf("VM API error [%s]: %s", result.ErrorType, result.Error)
	}

	if len(result.Warnings) > 0 {
		c.logger.Warn().
			Strs("warnings", result.Warnings).
			Str("query", finalQuery).
			Msg("VM API returned warnings")
	}

	c.logger.Debug().
		Str("result_type", result.Data.ResultType).
		Int("result_count", len(result.Data.Result)).
		Msg("query executed successfully")

	return &result, nil
}

// QueryResults executes an instant query scoped by labels and returns the parsed vector.
func (c *Client) QueryResults(ctx context.Context, query string, labels map[string]string) ([]QueryResult, error) {
	resp, err := c.QueryWithLabels(ctx, query, labels)
	if err != nil {
		return nil, err
	}
	return ParseQueryResults(resp)
}

// Ping checks that the query API answers a trivial expression.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Query(ctx, "vector(1)")
	return err
}
