// Package service provides the business logic of the MSP toolkit: the
// health-check engine and the managers built around it.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"msp-toolkit/internal/metrics"
	"msp-toolkit/internal/model"
)

// Window lengths used by the engine's read path.
const (
	DefaultHistoryDays = 7
	SummaryWindowDays  = 1
)

// DeviceRegistry lists the devices of a client. Implementations return an
// empty slice for a known client without devices and a *model.NotFoundError
// when they own client existence and the client is unknown.
type DeviceRegistry interface {
	ListDevicesFor(ctx context.Context, clientID string) ([]model.DeviceRef, error)
	Name() string
}

// HistoryStore is the append-only log of check results.
type HistoryStore interface {
	// Append persists every result atomically.
	Append(ctx context.Context, results []*model.CheckResult) error
	// ListSince returns results with timestamp >= since, newest first.
	ListSince(ctx context.Context, clientID string, since time.Time) ([]*model.CheckResult, error)
}

// OverrideStore persists per-client check configuration.
type OverrideStore interface {
	Save(ctx context.Context, cfg *model.CheckConfig) error
	Get(ctx context.Context, clientID string) (*model.CheckConfig, error)
}

// Engine executes health checks, classifies and persists their results, and
// serves history and summary queries. It holds no state between calls.
type Engine struct {
	source     metrics.Source
	devices    DeviceRegistry
	history    HistoryStore
	overrides  OverrideStore
	thresholds model.ThresholdSet
	now        func() time.Time
	logger     zerolog.Logger
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithOverrides enables per-client threshold overrides.
func WithOverrides(store OverrideStore) EngineOption {
	return func(e *Engine) {
		e.overrides = store
	}
}

// WithClock replaces the wall clock used to stamp results and compute windows.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine with the given collaborators.
func NewEngine(
	source metrics.Source,
	devices DeviceRegistry,
	history HistoryStore,
	thresholds model.ThresholdSet,
	logger zerolog.Logger,
	opts ...EngineOption,
) (*Engine, error) {
	if source == nil {
		return nil, errors.New("metrics source is required")
	}
	if devices == nil {
		return nil, errors.New("device registry is required")
	}
	if history == nil {
		return nil, errors.New("history store is required")
	}

	e := &Engine{
		source:     source,
		devices:    devices,
		history:    history,
		thresholds: thresholds,
		now:        time.Now,
		logger:     logger.With().Str("component", "health-engine").Logger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// RunChecks normalizes kinds and runs them for clientID. Without kinds the
// default sequence [cpu, memory, disk, services, network] is used. An unknown
// kind fails the whole call before any check runs.
func (e *Engine) RunChecks(ctx context.Context, clientID string, kinds ...string) ([]*model.CheckResult, error) {
	if err := validateClientID(clientID); err != nil {
		return nil, err
	}
	parsed, err := model.ParseCheckKinds(kinds)
	if err != nil {
		return nil, err
	}
	return e.RunCheckKinds(ctx, clientID, parsed)
}

// RunCheckKinds runs one check per entry of kinds, in order and including
// repeats, then appends the whole batch to the history store in one
// transaction. Individual check failures become unknown results. A
// client-not-found signal from the device registry and storage failures
// abort the call and nothing is persisted.
func (e *Engine) RunCheckKinds(ctx context.Context, clientID string, kinds []model.CheckKind) ([]*model.CheckResult, error) {
	if err := validateClientID(clientID); err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		kinds = model.DefaultCheckKinds()
	}

	thresholds, err := e.Thresholds(ctx, clientID)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := e.logger.With().Str("client_id", clientID).Str("run_id", runID).Logger()
	logger.Debug().Int("checks", len(kinds)).Str("source", e.source.Name()).Msg("running health checks")

	results := make([]*model.CheckResult, 0, len(kinds))
	for _, kind := range kinds {
		result, err := e.runCheck(ctx, clientID, kind, thresholds)
		if err != nil {
			logger.Warn().Err(err).Str("kind", string(kind)).Msg("health check run aborted")
			return nil, err
		}
		result.RunID = runID
		results = append(results, result)
	}

	if err := e.history.Append(ctx, results); err != nil {
		logger.Error().Err(err).Msg("failed to persist health check results")
		return nil, err
	}

	summary := model.NewHealthSummary(clientID, results)
	logger.Info().
		Int("total", summary.TotalChecks).
		Int("healthy", summary.Healthy).
		Int("warnings", summary.Warnings).
		Int("unknown", summary.Unknown).
		Msg("health checks completed")

	return results, nil
}

// runCheck executes a single check. The only error it returns is a
// not-found signal from the device registry; every other failure, panics
// included, is reported as an unknown result.
func (e *Engine) runCheck(ctx context.Context, clientID string, kind model.CheckKind, thresholds model.ThresholdSet) (result *model.CheckResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("kind", string(kind)).Msg("health check panicked")
			result = e.degraded(clientID, kind, fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()

	switch {
	case kind.IsThresholdBased():
		return e.thresholdCheck(ctx, clientID, kind, thresholds), nil
	case kind == model.CheckKindServices:
		return e.servicesCheck(ctx, clientID)
	default:
		return e.newResult(clientID, kind, model.CheckStatusHealthy, PassThroughMessage(kind)), nil
	}
}

type percentReader func(ctx context.Context, clientID string) (float64, error)

func (e *Engine) readerFor(kind model.CheckKind) percentReader {
	switch kind {
	case model.CheckKindCPU:
		return e.source.CPUPercent
	case model.CheckKindMemory:
		return e.source.MemoryPercent
	}
	return e.source.DiskPercent
}

func (e *Engine) thresholdCheck(ctx context.Context, clientID string, kind model.CheckKind, thresholds model.ThresholdSet) *model.CheckResult {
	value, err := e.readerFor(kind)(ctx, clientID)
	if err != nil {
		return e.degraded(clientID, kind, err)
	}

	threshold, _ := thresholds.For(kind)
	result := e.newResult(clientID, kind, ClassifyThreshold(value, threshold), UsageMessage(kind, value))
	result.Value = &value
	result.Threshold = &threshold
	return result
}

func (e *Engine) servicesCheck(ctx context.Context, clientID string) (*model.CheckResult, error) {
	devices, err := e.devices.ListDevicesFor(ctx, clientID)
	if err != nil {
		if model.IsNotFound(err) {
			return nil, err
		}
		return e.degraded(clientID, model.CheckKindServices, err), nil
	}
	if devices == nil {
		devices = []model.DeviceRef{}
	}

	status := model.CheckStatusWarning
	if len(devices) > 0 {
		status = model.CheckStatusHealthy
	}

	result := e.newResult(clientID, model.CheckKindServices, status, ServicesMessage(len(devices)))
	result.Details = map[string]interface{}{
		"devices":      devices,
		"device_count": len(devices),
		"registry":     e.devices.Name(),
	}
	return result, nil
}

func (e *Engine) degraded(clientID string, kind model.CheckKind, err error) *model.CheckResult {
	e.logger.Warn().Err(err).Str("client_id", clientID).Str("kind", string(kind)).Msg("health check degraded")
	result := e.newResult(clientID, kind, model.CheckStatusUnknown, FailedMessage(kind, err))
	result.Details = map[string]interface{}{"error": err.Error()}
	if code := model.ErrorCode(err); code != model.CodeInternal {
		result.Details["error_code"] = code
	}
	return result
}

func (e *Engine) newResult(clientID string, kind model.CheckKind, status model.CheckStatus, message string) *model.CheckResult {
	return &model.CheckResult{
		ClientID:  clientID,
		Kind:      kind,
		Status:    status,
		Message:   message,
		Timestamp: e.now().UTC(),
	}
}

// GetHistory returns the results of clientID from the last days days, newest
// first. days=0 yields the results of the current second. An unknown client
// has an empty history.
func (e *Engine) GetHistory(ctx context.Context, clientID string, days int) ([]*model.CheckResult, error) {
	if err := validateClientID(clientID); err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, &model.ValidationError{
			Field:   "days",
			Value:   days,
			Message: fmt.Sprintf("days must be a non-negative integer, got %d", days),
		}
	}

	return e.history.ListSince(ctx, clientID, historyCutoff(e.now(), days))
}

// maxHistoryDays bounds the window arithmetic; longer windows start at the epoch.
const maxHistoryDays = 36500

var historyEpoch = time.Unix(0, 0).UTC()

// historyCutoff returns now minus days whole days, truncated to the second and
// never earlier than the Unix epoch.
func historyCutoff(now time.Time, days int) time.Time {
	if days > maxHistoryDays {
		return historyEpoch
	}
	since := now.UTC().AddDate(0, 0, -days).Truncate(time.Second)
	if since.Before(historyEpoch) {
		return historyEpoch
	}
	return since
}

// GetStatusSummary aggregates the trailing 24 hours of history.
func (e *Engine) GetStatusSummary(ctx context.Context, clientID string) (*model.HealthSummary, error) {
	results, err := e.GetHistory(ctx, clientID, SummaryWindowDays)
	if err != nil {
		return nil, err
	}
	return model.NewHealthSummary(clientID, results), nil
}

// Configure validates and stores a per-client configuration payload with the
// keys "thresholds" and "enabled_checks". Unknown keys are ignored. Without
// an override store the payload is validated and acknowledged only.
func (e *Engine) Configure(ctx context.Context, clientID string, payload map[string]interface{}) (bool, error) {
	if err := validateClientID(clientID); err != nil {
		return false, err
	}

	cfg, ignored, err := model.ParseCheckConfig(clientID, payload)
	if err != nil {
		return false, err
	}
	if len(ignored) > 0 {
		e.logger.Warn().Str("client_id", clientID).Strs("keys", ignored).Msg("ignoring unknown configuration keys")
	}

	if e.overrides == nil {
		e.logger.Info().Str("client_id", clientID).Msg("configuration acknowledged, overrides are not persisted")
		return true, nil
	}

	if err := e.overrides.Save(ctx, cfg); err != nil {
		return false, err
	}

	e.logger.Info().
		Str("client_id", clientID).
		Bool("thresholds", !cfg.Thresholds.IsEmpty()).
		Int("enabled_checks", len(cfg.EnabledChecks)).
		Msg("configuration saved")
	return true, nil
}

// Thresholds returns the configured thresholds merged with the stored
// override of clientID.
func (e *Engine) Thresholds(ctx context.Context, clientID string) (model.ThresholdSet, error) {
	if e.overrides == nil {
		return e.thresholds, nil
	}
	cfg, err := e.overrides.Get(ctx, clientID)
	if err != nil {
		return model.ThresholdSet{}, err
	}
	if cfg == nil {
		return e.thresholds, nil
	}
	return e.thresholds.Merge(cfg.Thresholds), nil
}

// EnabledChecks returns the stored enabled_checks of clientID, or nil when
// none are configured.
func (e *Engine) EnabledChecks(ctx context.Context, clientID string) ([]model.CheckKind, error) {
	if e.overrides == nil {
		return nil, nil
	}
	cfg, err := e.overrides.Get(ctx, clientID)
	if err != nil || cfg == nil {
		return nil, err
	}
	return cfg.EnabledChecks, nil
}

func validateClientID(clientID string) error {
	if clientID == "" {
		return &model.ValidationError{
			Field:   "client_id",
			Value:   clientID,
			Message: "client_id must not be empty",
		}
	}
	return nil
}
