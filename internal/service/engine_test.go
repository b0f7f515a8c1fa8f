package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"msp-toolkit/internal/metrics"
	"msp-toolkit/internal/model"
	"msp-toolkit/internal/storage"
)

// ============================================================================
// Test fixtures
// ============================================================================

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

func fixedClock() time.Time { return fixedNow }

type testEnv struct {
	db        *sql.DB
	clients   *storage.ClientStore
	devices   *storage.DeviceStore
	history   *storage.HistoryStore
	overrides *storage.OverrideStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	reg := storage.NewRegistry(zerolog.Nop())
	t.Cleanup(func() { reg.Close() })

	db, err := reg.Open(storage.BackendSQLite, filepath.Join(t.TempDir(), "msp.db"))
	require.NoError(t, err)

	return &testEnv{
		db:        db,
		clients:   storage.NewClientStore(db),
		devices:   storage.NewDeviceStore(db),
		history:   storage.NewHistoryStore(db),
		overrides: storage.NewOverrideStore(db),
	}
}

func (e *testEnv) addClient(t *testing.T, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.clients.Create(context.Background(), &model.Client{
		ID: id, Name: id, Tier: model.ClientTierBronze, Status: model.ClientStatusActive,
		CreatedAt: now, UpdatedAt: now,
	}))
}

func (e *testEnv) addDevice(t *testing.T, clientID, name string) {
	t.Helper()
	require.NoError(t, e.devices.Add(context.Background(), &model.Device{
		ClientID: clientID, Name: name, Type: model.DeviceTypeServer, CreatedAt: time.Now().UTC(),
	}))
}

func (e *testEnv) engine(t *testing.T, source metrics.Source, opts ...EngineOption) *Engine {
	t.Helper()
	opts = append([]EngineOption{WithClock(fixedClock)}, opts...)
	eng, err := NewEngine(source, e.devices, e.history, model.DefaultThresholds(), zerolog.Nop(), opts...)
	require.NoError(t, err)
	return eng
}

func (e *testEnv) historyCount(t *testing.T, clientID string) int {
	t.Helper()
	n, err := e.history.Count(context.Background(), clientID)
	require.NoError(t, err)
	return n
}

// fakeSource returns fixed readings, an error, or panics.
type fakeSource struct {
	cpu, memory, disk float64
	err               error
	panicOn           model.CheckKind
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) read(kind model.CheckKind, v float64) (float64, error) {
	if s.panicOn == kind {
		panic("sensor exploded")
	}
	if s.err != nil {
		return 0, s.err
	}
	return v, nil
}

func (s *fakeSource) CPUPercent(context.Context, string) (float64, error) {
	return s.read(model.CheckKindCPU, s.cpu)
}

func (s *fakeSource) MemoryPercent(context.Context, string) (float64, error) {
	return s.read(model.CheckKindMemory, s.memory)
}

func (s *fakeSource) DiskPercent(context.Context, string) (float64, error) {
	return s.read(model.CheckKindDisk, s.disk)
}

// fakeRegistry serves a fixed device list or error.
type fakeRegistry struct {
	devices []model.DeviceRef
	err     error
}

func (r *fakeRegistry) ListDevicesFor(context.Context, string) ([]model.DeviceRef, error) {
	return r.devices, r.err
}

func (r *fakeRegistry) Name() string { return "fake" }

// failingHistory rejects every append.
type failingHistory struct {
	HistoryStore
}

func (h *failingHistory) Append(context.Context, []*model.CheckResult) error {
	return &model.StorageError{Op: "insert health check", Err: errors.New("disk I/O error")}
}

func acmeSource() *fakeSource {
	return &fakeSource{cpu: 45.2, memory: 62.3, disk: 78.5}
}

func kindsOf(results []*model.CheckResult) []model.CheckKind {
	kinds := make([]model.CheckKind, len(results))
	for i, r := range results {
		kinds[i] = r.Kind
	}
	return kinds
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestNewEngine_RequiresCollaborators(t *testing.T) {
	env := newTestEnv(t)
	src := acmeSource()

	_, err := NewEngine(nil, env.devices, env.history, model.DefaultThresholds(), zerolog.Nop())
	assert.Error(t, err)
	_, err = NewEngine(src, nil, env.history, model.DefaultThresholds(), zerolog.Nop())
	assert.Error(t, err)
	_, err = NewEngine(src, env.devices, nil, model.DefaultThresholds(), zerolog.Nop())
	assert.Error(t, err)
}

// ============================================================================
// RunChecks Tests
// ============================================================================

func TestRunChecks_DefaultSequence(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	env.addDevice(t, "acme", "web-01")
	env.addDevice(t, "acme", "db-01")
	eng := env.engine(t, acmeSource())

	results, err := eng.RunChecks(context.Background(), "acme")
	require.NoError(t, err)

	require.Len(t, results, 5)
	assert.Equal(t, model.DefaultCheckKinds(), kindsOf(results))

	runID := results[0].RunID
	require.NotEmpty(t, runID)
	for _, r := range results {
		assert.Equal(t, "acme", r.ClientID)
		assert.Equal(t, runID, r.RunID, "one run id per batch")
		assert.Equal(t, fixedNow, r.Timestamp)
	}

	assert.Equal(t, model.CheckStatusHealthy, results[0].Status)
	assert.Equal(t, "CPU usage: 45.2%", results[0].Message)
	require.NotNil(t, results[0].Value)
	assert.Equal(t, 45.2, *results[0].Value)
	require.NotNil(t, results[0].Threshold)
	assert.Equal(t, 85.0, *results[0].Threshold)

	assert.Equal(t, "Memory usage: 62.3%", results[1].Message)
	assert.Equal(t, "Disk usage: 78.5%", results[2].Message)

	assert.Equal(t, model.CheckStatusHealthy, results[3].Status)
	assert.Equal(t, "2 device(s) registered", results[3].Message)
	assert.Equal(t, 2, results[3].Details["device_count"])
	assert.Equal(t, "local", results[3].Details["registry"])

	assert.Equal(t, model.CheckStatusHealthy, results[4].Status)
	assert.Equal(t, "network check passed.", results[4].Message)

	assert.Equal(t, 5, env.historyCount(t, "acme"))
}

func TestRunChecks_NoDevicesWarns(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng := env.engine(t, acmeSource())

	results, err := eng.RunChecks(context.Background(), "acme", "services")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, model.CheckStatusWarning, results[0].Status)
	assert.Equal(t, "0 device(s) registered", results[0].Message)
	assert.Equal(t, []model.DeviceRef{}, results[0].Details["devices"])
}

func TestRunChecks_KindNormalization(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng := env.engine(t, acmeSource())

	results, err := eng.RunChecks(context.Background(), "acme", " CPU ", "Custom", "cpu")
	require.NoError(t, err)

	assert.Equal(t, []model.CheckKind{model.CheckKindCPU, model.CheckKindCustom, model.CheckKindCPU}, kindsOf(results), "order and repeats are kept")
	assert.Equal(t, "custom check passed.", results[1].Message)
	assert.Equal(t, 3, env.historyCount(t, "acme"))
}

func TestRunChecks_InvalidKindPersistsNothing(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng := env.engine(t, acmeSource())

	results, err := eng.RunChecks(context.Background(), "acme", "cpu", "bogus")
	require.Error(t, err)
	assert.Nil(t, results)

	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "check_kinds", verr.Field)
	assert.Contains(t, err.Error(), "bogus")
	assert.Equal(t, 0, env.historyCount(t, "acme"))
}

func TestRunChecks_EmptyClientID(t *testing.T) {
	env := newTestEnv(t)
	eng := env.engine(t, acmeSource())

	_, err := eng.RunChecks(context.Background(), "")
	assert.True(t, model.IsValidation(err))
}

func TestRunChecks_ThresholdBoundaries(t *testing.T) {
	tests := []struct {
		name   string
		cpu    float64
		status model.CheckStatus
	}{
		{"below threshold", 84.9, model.CheckStatusHealthy},
		{"equal to threshold", 85, model.CheckStatusWarning},
		{"above threshold", 97.5, model.CheckStatusWarning},
		{"zero", 0, model.CheckStatusHealthy},
		{"full", 100, model.CheckStatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.addClient(t, "acme")
			eng := env.engine(t, &fakeSource{cpu: tt.cpu})

			results, err := eng.RunChecks(context.Background(), "acme", "cpu")
			require.NoError(t, err)
			assert.Equal(t, tt.status, results[0].Status)
		})
	}
}

// The classifier has two tiers only. Critical exists in the status set
// and in summaries but no check produces it, however far the reading is
// past the threshold.
func TestRunChecks_NeverProducesCritical(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng := env.engine(t, &fakeSource{cpu: 100, memory: 100, disk: 100})

	results, err := eng.RunChecks(context.Background(), "acme", "cpu", "memory", "disk")
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, model.CheckStatusWarning, r.Status, r.Kind)
	}

	summary, err := eng.GetStatusSummary(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Critical)
}

func TestRunChecks_SourceErrorDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	src := &fakeSource{err: &model.IntegrationError{Integration: "victoriametrics", Err: errors.New("connection refused")}}
	eng := env.engine(t, src)

	results, err := eng.RunChecks(context.Background(), "acme", "cpu", "network")
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, model.CheckStatusUnknown, results[0].Status)
	assert.True(t, results[0].IsDegraded())
	assert.Contains(t, results[0].Message, "CPU check failed:")
	assert.Contains(t, results[0].Message, "connection refused")
	assert.Nil(t, results[0].Value)
	assert.Equal(t, model.CodeIntegration, results[0].Details["error_code"])

	assert.Equal(t, model.CheckStatusHealthy, results[1].Status, "other checks still run")
	assert.Equal(t, 2, env.historyCount(t, "acme"))
}

func TestRunChecks_PanicDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	src := acmeSource()
	src.panicOn = model.CheckKindMemory
	eng := env.engine(t, src)

	results, err := eng.RunChecks(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, model.CheckStatusHealthy, results[0].Status)
	assert.Equal(t, model.CheckStatusUnknown, results[1].Status)
	assert.Contains(t, results[1].Message, "Memory check failed: panic: sensor exploded")
	assert.NotEmpty(t, results[1].RunID)
	assert.Equal(t, model.CheckStatusHealthy, results[2].Status)
}

func TestRunChecks_RegistryErrorDegrades(t *testing.T) {
	env := newTestEnv(t)
	reg := &fakeRegistry{err: &model.IntegrationError{Integration: "n9e", Err: errors.New("timeout")}}
	eng, err := NewEngine(acmeSource(), reg, env.history, model.DefaultThresholds(), zerolog.Nop(), WithClock(fixedClock))
	require.NoError(t, err)

	results, err := eng.RunChecks(context.Background(), "acme", "services")
	require.NoError(t, err)
	assert.Equal(t, model.CheckStatusUnknown, results[0].Status)
	assert.Contains(t, results[0].Message, "Services check failed:")
}

func TestRunChecks_UnknownClientPropagatesNotFound(t *testing.T) {
	env := newTestEnv(t)
	eng := env.engine(t, acmeSource())

	results, err := eng.RunChecks(context.Background(), "ghost")
	require.Error(t, err)
	assert.Nil(t, results)
	assert.True(t, model.IsNotFound(err))
	assert.Equal(t, model.CodeClientNotFound, model.ErrorCode(err))
	assert.Equal(t, 0, env.historyCount(t, "ghost"))
}

func TestRunChecks_UnknownClientWithoutServicesCheck(t *testing.T) {
	env := newTestEnv(t)
	eng := env.engine(t, acmeSource())

	results, err := eng.RunChecks(context.Background(), "ghost", "cpu")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRunChecks_AppendFailureIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng, err := NewEngine(acmeSource(), env.devices, &failingHistory{HistoryStore: env.history}, model.DefaultThresholds(), zerolog.Nop(), WithClock(fixedClock))
	require.NoError(t, err)

	results, err := eng.RunChecks(context.Background(), "acme")
	require.Error(t, err)
	assert.Nil(t, results)

	var serr *model.StorageError
	assert.True(t, errors.As(err, &serr))
	assert.Equal(t, 0, env.historyCount(t, "acme"))
}

// ============================================================================
// History and Summary Tests
// ============================================================================

func TestGetHistory_NewestFirstAndWindow(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")

	old := &model.CheckResult{ClientID: "acme", Kind: model.CheckKindCPU, Status: model.CheckStatusHealthy, Message: "old", Timestamp: fixedNow.Add(-10 * 24 * time.Hour)}
	mid := &model.CheckResult{ClientID: "acme", Kind: model.CheckKindCPU, Status: model.CheckStatusWarning, Message: "mid", Timestamp: fixedNow.Add(-3 * 24 * time.Hour)}
	recent := &model.CheckResult{ClientID: "acme", Kind: model.CheckKindCPU, Status: model.CheckStatusHealthy, Message: "recent", Timestamp: fixedNow.Add(-time.Hour)}
	require.NoError(t, env.history.Append(context.Background(), []*model.CheckResult{old, mid, recent}))

	eng := env.engine(t, acmeSource())

	week, err := eng.GetHistory(context.Background(), "acme", DefaultHistoryDays)
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, "recent", week[0].Message)
	assert.Equal(t, "mid", week[1].Message)

	all, err := eng.GetHistory(context.Background(), "acme", 30)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	day, err := eng.GetHistory(context.Background(), "acme", 1)
	require.NoError(t, err)
	assert.Len(t, day, 1)
}

func TestGetHistory_ZeroDaysReturnsCurrentSecond(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng := env.engine(t, acmeSource())

	_, err := eng.RunChecks(context.Background(), "acme", "cpu", "disk")
	require.NoError(t, err)

	results, err := eng.GetHistory(context.Background(), "acme", 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestGetHistory_LargeWindowsReturnEverything(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")

	ancient := &model.CheckResult{ClientID: "acme", Kind: model.CheckKindCPU, Status: model.CheckStatusHealthy, Message: "ancient", Timestamp: fixedNow.AddDate(-40, 0, 0)}
	require.NoError(t, env.history.Append(context.Background(), []*model.CheckResult{ancient}))

	eng := env.engine(t, acmeSource())
	_, err := eng.RunChecks(context.Background(), "acme")
	require.NoError(t, err)

	for _, days := range []int{365 * 50, 100000, 200000, math.MaxInt32, math.MaxInt} {
		results, err := eng.GetHistory(context.Background(), "acme", days)
		require.NoError(t, err)
		assert.Len(t, results, 6, "days=%d", days)
		assert.Equal(t, "ancient", results[len(results)-1].Message)
	}
}

func TestHistoryCutoff(t *testing.T) {
	tests := []struct {
		name string
		days int
		want time.Time
	}{
		{"zero", 0, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		{"week", 7, time.Date(2026, 2, 22, 12, 0, 0, 0, time.UTC)},
		{"before epoch", 30000, time.Unix(0, 0).UTC()},
		{"beyond bound", 200000, time.Unix(0, 0).UTC()},
		{"max int", math.MaxInt, time.Unix(0, 0).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(historyCutoff(fixedNow, tt.days)), "got %s", historyCutoff(fixedNow, tt.days))
		})
	}
}

func TestGetHistory_NegativeDays(t *testing.T) {
	env := newTestEnv(t)
	eng := env.engine(t, acmeSource())

	_, err := eng.GetHistory(context.Background(), "acme", -1)
	var verr *model.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "days", verr.Field)
}

func TestGetHistory_UnknownClientIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	eng := env.engine(t, acmeSource())

	results, err := eng.GetHistory(context.Background(), "ghost", 7)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetHistory_ReadsAreIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng := env.engine(t, acmeSource())

	_, err := eng.RunChecks(context.Background(), "acme")
	require.NoError(t, err)

	first, err := eng.GetHistory(context.Background(), "acme", 7)
	require.NoError(t, err)
	second, err := eng.GetHistory(context.Background(), "acme", 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	s1, err := eng.GetStatusSummary(context.Background(), "acme")
	require.NoError(t, err)
	s2, err := eng.GetStatusSummary(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, 5, env.historyCount(t, "acme"))
}

func TestGetStatusSummary(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng := env.engine(t, &fakeSource{cpu: 90, memory: 10, err: nil})

	// cpu warning, memory healthy, services warning (no devices), network healthy
	_, err := eng.RunChecks(context.Background(), "acme", "cpu", "memory", "services", "network")
	require.NoError(t, err)

	// Outside the 24h window.
	require.NoError(t, env.history.Append(context.Background(), []*model.CheckResult{
		{ClientID: "acme", Kind: model.CheckKindDisk, Status: model.CheckStatusWarning, Message: "stale", Timestamp: fixedNow.Add(-48 * time.Hour)},
	}))

	summary, err := eng.GetStatusSummary(context.Background(), "acme")
	require.NoError(t, err)

	assert.Equal(t, "acme", summary.ClientID)
	assert.Equal(t, 4, summary.TotalChecks)
	assert.Equal(t, 2, summary.Healthy)
	assert.Equal(t, 2, summary.Warnings)
	assert.Equal(t, 0, summary.Critical)
	assert.Equal(t, 0, summary.Unknown)
	assert.Equal(t, summary.TotalChecks, summary.Healthy+summary.Warnings+summary.Critical+summary.Unknown)
	require.NotNil(t, summary.LastCheckTime)
	assert.True(t, summary.LastCheckTime.Equal(fixedNow))
}

func TestGetStatusSummary_NoHistory(t *testing.T) {
	env := newTestEnv(t)
	eng := env.engine(t, acmeSource())

	summary, err := eng.GetStatusSummary(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalChecks)
	assert.Nil(t, summary.LastCheckTime)
}

// ============================================================================
// Configure Tests
// ============================================================================

func TestConfigure_OverridesThresholds(t *testing.T) {
	env := newTestEnv(t)
	env.addClient(t, "acme")
	eng := env.engine(t, acmeSource(), WithOverrides(env.overrides))

	ok, err := eng.Configure(context.Background(), "acme", map[string]interface{}{
		"thresholds":     map[string]interface{}{"cpu_percent": "40"},
		"enabled_checks": []interface{}{"cpu", "disk"},
		"unknown_key":    true,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	thresholds, err := eng.Thresholds(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 40.0, thresholds.CPUPercent)
	assert.Equal(t, model.DefaultMemoryPercent, thresholds.MemoryPercent)

	enabled, err := eng.EnabledChecks(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, []model.CheckKind{model.CheckKindCPU, model.CheckKindDisk}, enabled)

	results, err := eng.RunChecks(context.Background(), "acme", "cpu")
	require.NoError(t, err)
	assert.Equal(t, model.CheckStatusWarning, results[0].Status, "45.2 >= 40")
	assert.Equal(t, 40.0, *results[0].Threshold)

	// Other clients keep the configured defaults.
	other, err := eng.Thresholds(context.Background(), "globex")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultThresholds(), other)
}

func TestConfigure_Validation(t *testing.T) {
	env := newTestEnv(t)
	eng := env.engine(t, acmeSource(), WithOverrides(env.overrides))

	tests := []struct {
		name    string
		payload map[string]interface{}
		field   string
	}{
		{"non numeric", map[string]interface{}{"thresholds": map[string]interface{}{"cpu_percent": "high"}}, "thresholds.cpu_percent"},
		{"out of range", map[string]interface{}{"thresholds": map[string]interface{}{"disk_percent": 120}}, "thresholds.disk_percent"},
		{"nan string", map[string]interface{}{"thresholds": map[string]interface{}{"cpu_percent": "NaN"}}, "thresholds.cpu_percent"},
		{"infinite", map[string]interface{}{"thresholds": map[string]interface{}{"memory_percent": "+Inf"}}, "thresholds.memory_percent"},
		{"unknown threshold", map[string]interface{}{"thresholds": map[string]interface{}{"gpu_percent": 50}}, "thresholds.gpu_percent"},
		{"bad kind", map[string]interface{}{"enabled_checks": []interface{}{"cpu", "bogus"}}, "check_kinds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := eng.Configure(context.Background(), "acme", tt.payload)
			assert.False(t, ok)
			var verr *model.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)

			cfg, err := env.overrides.Get(context.Background(), "acme")
			require.NoError(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestConfigure_WithoutStoreAcknowledges(t *testing.T) {
	env := newTestEnv(t)
	eng := env.engine(t, acmeSource())

	ok, err := eng.Configure(context.Background(), "acme", map[string]interface{}{
		"thresholds": map[string]interface{}{"cpu_percent": 10},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	thresholds, err := eng.Thresholds(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultThresholds(), thresholds)
}
