package tools

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/observe"
	"msp-toolkit/internal/service"
)

// ============================================================================
// Fakes
// ============================================================================

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func pct(v float64) *float64 { return &v }

type fakeEngine struct {
	runClient string
	runKinds  []string
	history   []*model.CheckResult
	days      int
	summary   *model.HealthSummary
	payload   map[string]interface{}
	err       error
}

func (f *fakeEngine) RunChecks(_ context.Context, clientID string, kinds ...string) ([]*model.CheckResult, error) {
	f.runClient, f.runKinds = clientID, kinds
	if f.err != nil {
		return nil, f.err
	}
	return []*model.CheckResult{
		{ClientID: clientID, Kind: model.CheckKindCPU, Status: model.CheckStatusHealthy, Message: "CPU usage: 45.2%", Value: pct(45.2), Threshold: pct(85), Timestamp: testTime},
		{ClientID: clientID, Kind: model.CheckKindDisk, Status: model.CheckStatusWarning, Message: "Disk usage: 91.0%", Value: pct(91), Threshold: pct(90), Timestamp: testTime},
	}, nil
}

func (f *fakeEngine) GetHistory(_ context.Context, _ string, days int) ([]*model.CheckResult, error) {
	f.days = days
	return f.history, f.err
}

func (f *fakeEngine) GetStatusSummary(_ context.Context, clientID string) (*model.HealthSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.summary != nil {
		return f.summary, nil
	}
	return &model.HealthSummary{ClientID: clientID, TotalChecks: 2, Healthy: 1, Warnings: 1}, nil
}

func (f *fakeEngine) Configure(_ context.Context, _ string, payload map[string]interface{}) (bool, error) {
	f.payload = payload
	return f.err == nil, f.err
}

type fakeFleet struct {
	kinds   []model.CheckKind
	results []*service.FleetResult
}

func (f *fakeFleet) RunAll(_ context.Context, kinds []model.CheckKind) ([]*service.FleetResult, error) {
	f.kinds = kinds
	return f.results, nil
}

type fakeClients struct {
	clients  []*model.Client
	filter   model.ClientFilter
	created  *service.CreateClientInput
	template string
	err      error
}

func (f *fakeClients) Create(_ context.Context, in service.CreateClientInput) (*model.Client, error) {
	f.created = &in
	if f.err != nil {
		return nil, f.err
	}
	return &model.Client{ID: in.ID, Name: in.Name, Tier: in.Tier, Status: model.ClientStatusActive}, nil
}

func (f *fakeClients) List(_ context.Context, filter model.ClientFilter) ([]*model.Client, error) {
	f.filter = filter
	return f.clients, nil
}

func (f *fakeClients) Onboard(_ context.Context, id, template string) (*service.OnboardResult, error) {
	f.template = template
	if template == "" {
		template = service.OnboardTemplateStandardBusiness
	}
	return &service.OnboardResult{
		ClientID:       id,
		Template:       template,
		Status:         "completed",
		StepsCompleted: []string{"Client profile created"},
	}, nil
}

type fakeDevices struct {
	devices []*model.Device
	added   *service.AddDeviceInput
	deleted int64
	err     error
}

func (f *fakeDevices) List(context.Context, string) ([]*model.Device, error) {
	return f.devices, f.err
}

func (f *fakeDevices) Add(_ context.Context, in service.AddDeviceInput) (*model.Device, error) {
	f.added = &in
	if f.err != nil {
		return nil, f.err
	}
	return &model.Device{ID: 7, ClientID: in.ClientID, Name: in.Name, Type: in.Type}, nil
}

func (f *fakeDevices) Delete(_ context.Context, id int64) error {
	f.deleted = id
	return f.err
}

type fakeReports struct {
	template, format string
}

func (f *fakeReports) Generate(_ context.Context, clientID, template, format string) (*model.Report, error) {
	f.template, f.format = template, format
	return &model.Report{
		ID:          "r-1",
		ClientID:    clientID,
		Template:    template,
		Format:      model.ReportFormatHTML,
		FilePath:    "reports/" + clientID + "-" + template + ".html",
		GeneratedAt: testTime,
	}, nil
}

type fixture struct {
	engine  *fakeEngine
	fleet   *fakeFleet
	clients *fakeClients
	devices *fakeDevices
	reports *fakeReports
	d       *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		engine:  &fakeEngine{},
		fleet:   &fakeFleet{},
		clients: &fakeClients{},
		devices: &fakeDevices{},
		reports: &fakeReports{},
	}
	f.d = NewDispatcher(Services{
		Engine:  f.engine,
		Fleet:   f.fleet,
		Clients: f.clients,
		Devices: f.devices,
		Reports: f.reports,
	}, nil, zerolog.Nop())
	return f
}

// ============================================================================
// Dispatch
// ============================================================================

func TestSchemas(t *testing.T) {
	tools := Schemas()
	require.Len(t, tools, 10)

	seen := make(map[string]bool)
	for _, tool := range tools {
		assert.False(t, seen[tool.Name], "duplicate tool %s", tool.Name)
		seen[tool.Name] = true
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema["type"])
	}

	byName := make(map[string]Tool)
	for _, tool := range tools {
		byName[tool.Name] = tool
	}
	assert.Empty(t, byName[ToolHealthCheck].Required())
	assert.Equal(t, []string{"name", "tier"}, byName[ToolClientOnboard].Required())
	assert.Equal(t, []string{"client_id", "template"}, byName[ToolReportGenerate].Required())
}

func TestCall_UnknownTool(t *testing.T) {
	f := newFixture(t)

	_, err := f.d.Call(context.Background(), "drop_tables", nil)
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
	assert.Contains(t, err.Error(), "unknown tool: drop_tables")
}

func TestCall_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"nil args", ToolHealthSummary, nil, "client_id"},
		{"blank string", ToolHealthHistory, map[string]interface{}{"client_id": "  "}, "client_id"},
		{"several", ToolReportGenerate, map[string]interface{}{}, "client_id, template"},
		{"device id", ToolDeviceDelete, map[string]interface{}{}, "device_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.d.Call(context.Background(), tt.tool, tt.args)
			require.Error(t, err)
			assert.True(t, model.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCall_HealthCheckSingleClient(t *testing.T) {
	f := newFixture(t)

	out, err := f.d.Call(context.Background(), ToolHealthCheck, map[string]interface{}{
		"client_id":   "acme",
		"check_types": []interface{}{"cpu", "disk"},
	})
	require.NoError(t, err)

	assert.Equal(t, "acme", f.engine.runClient)
	assert.Equal(t, []string{"cpu", "disk"}, f.engine.runKinds)
	assert.Contains(t, out, "Health Check Results for 'acme'")
	assert.Contains(t, out, "✓ cpu: CPU usage: 45.2%")
	assert.Contains(t, out, "⚠ disk: Disk usage: 91.0%")
	assert.Contains(t, out, "Total Checks: 2")
}

func TestCall_HealthCheckFleet(t *testing.T) {
	f := newFixture(t)
	f.fleet.results = []*service.FleetResult{
		{ClientID: "acme", Results: []*model.CheckResult{{Kind: model.CheckKindCPU, Status: model.CheckStatusHealthy, Message: "CPU usage: 10.0%"}}},
		{ClientID: "globex", Error: "client 'globex' not found", Code: model.CodeClientNotFound},
	}

	out, err := f.d.Call(context.Background(), ToolHealthCheck, map[string]interface{}{"check_types": "CPU"})
	require.NoError(t, err)

	assert.Equal(t, []model.CheckKind{model.CheckKindCPU}, f.fleet.kinds)
	assert.Contains(t, out, "for 2 client(s)")
	assert.Contains(t, out, "[acme] healthy")
	assert.Contains(t, out, "[globex]\n✗ check run failed")
	assert.Contains(t, out, "CLIENT_NOT_FOUND")
	assert.Contains(t, out, "1 client(s) failed.")
}

func TestCall_HealthCheckFleetDefaults(t *testing.T) {
	f := newFixture(t)

	out, err := f.d.Call(context.Background(), ToolHealthCheck, nil)
	require.NoError(t, err)
	assert.Nil(t, f.fleet.kinds, "no check types means per-client defaults")
	assert.Equal(t, "No active clients to check.", out)
}

func TestCall_HealthCheckInvalidKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.d.Call(context.Background(), ToolHealthCheck, map[string]interface{}{"check_types": []string{"gpu"}})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestCall_HealthHistory(t *testing.T) {
	f := newFixture(t)
	f.engine.history = []*model.CheckResult{
		{Kind: model.CheckKindMemory, Status: model.CheckStatusHealthy, Message: "Memory usage: 62.3%", Timestamp: testTime},
	}

	out, err := f.d.Call(context.Background(), ToolHealthHistory, map[string]interface{}{"client_id": "acme"})
	require.NoError(t, err)
	assert.Equal(t, service.DefaultHistoryDays, f.engine.days)
	assert.Contains(t, out, "2026-03-01 12:00:00 ✓ memory: Memory usage: 62.3%")

	f.engine.history = nil
	out, err = f.d.Call(context.Background(), ToolHealthHistory, map[string]interface{}{"client_id": "acme", "days": float64(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, f.engine.days)
	assert.Contains(t, out, "No health checks recorded")
}

func TestCall_HealthHistoryRejectsFractionalDays(t *testing.T) {
	f := newFixture(t)
	f.engine.days = -1

	for _, days := range []interface{}{1.9, float64(0.5), "2.5", math.NaN()} {
		_, err := f.d.Call(context.Background(), ToolHealthHistory, map[string]interface{}{"client_id": "acme", "days": days})
		require.Error(t, err, "days=%v", days)
		assert.True(t, model.IsValidation(err), "days=%v", days)
	}
	assert.Equal(t, -1, f.engine.days, "engine must not be reached")

	_, err := f.d.Call(context.Background(), ToolHealthHistory, map[string]interface{}{"client_id": "acme", "days": "14"})
	require.NoError(t, err)
	assert.Equal(t, 14, f.engine.days)
}

func TestCall_HealthSummaryNotFound(t *testing.T) {
	f := newFixture(t)
	f.engine.err = model.NewClientNotFound("ghost")

	_, err := f.d.Call(context.Background(), ToolHealthSummary, map[string]interface{}{"client_id": "ghost"})
	require.Error(t, err)
	assert.True(t, model.IsNotFound(err))
}

func TestCall_HealthConfigure(t *testing.T) {
	f := newFixture(t)

	out, err := f.d.Call(context.Background(), ToolHealthConfigure, map[string]interface{}{
		"client_id":      "acme",
		"thresholds":     map[string]interface{}{"cpu_percent": 70.0},
		"enabled_checks": []interface{}{"cpu", "memory"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "configuration saved for 'acme'")
	assert.Equal(t, map[string]interface{}{"cpu_percent": 70.0}, f.engine.payload["thresholds"])
	assert.Equal(t, []string{"cpu", "memory"}, f.engine.payload["enabled_checks"])
}

func TestCall_ClientList(t *testing.T) {
	f := newFixture(t)
	f.clients.clients = []*model.Client{
		{ID: "acme", Name: "Acme Corp", Tier: model.ClientTierGold, Status: model.ClientStatusActive, ContactEmail: "ops@acme.test"},
	}

	out, err := f.d.Call(context.Background(), ToolClientList, map[string]interface{}{"tier": "GOLD", "search": "acme"})
	require.NoError(t, err)
	assert.Equal(t, model.ClientTierGold, f.clients.filter.Tier)
	assert.Equal(t, "acme", f.clients.filter.Search)
	assert.Contains(t, out, "Found 1 client(s)")
	assert.Contains(t, out, "Contact: ops@acme.test")

	f.clients.clients = nil
	out, err = f.d.Call(context.Background(), ToolClientList, nil)
	require.NoError(t, err)
	assert.Equal(t, "No clients found.", out)
}

func TestCall_ClientOnboard(t *testing.T) {
	f := newFixture(t)

	out, err := f.d.Call(context.Background(), ToolClientOnboard, map[string]interface{}{
		"name": "Acme Corp.",
		"tier": "gold",
	})
	require.NoError(t, err)
	require.NotNil(t, f.clients.created)
	assert.Equal(t, "acme-corp", f.clients.created.ID)
	assert.Equal(t, "", f.clients.template)
	assert.Contains(t, out, "✓ Client 'Acme Corp.' onboarded successfully")
	assert.Contains(t, out, "Template: standard-business")
	assert.Contains(t, out, "✓ Client profile created")
}

func TestCall_ClientOnboardCreateFails(t *testing.T) {
	f := newFixture(t)
	f.clients.err = &model.AlreadyExistsError{Resource: model.ResourceClient, ID: "acme"}

	_, err := f.d.Call(context.Background(), ToolClientOnboard, map[string]interface{}{"name": "Acme", "tier": "gold"})
	require.Error(t, err)
	assert.Equal(t, model.CodeClientAlreadyExists, model.ErrorCode(err))
}

func TestCall_Devices(t *testing.T) {
	f := newFixture(t)

	out, err := f.d.Call(context.Background(), ToolDeviceAdd, map[string]interface{}{
		"client_id": "acme", "name": "web-01", "type": "server", "rmm_device_id": "rmm-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.DeviceTypeServer, f.devices.added.Type)
	assert.Equal(t, "rmm-1", f.devices.added.RMMDeviceID)
	assert.Contains(t, out, "✓ Device registered")
	assert.Contains(t, out, "ID: 7")

	seen := testTime
	f.devices.devices = []*model.Device{{ID: 7, ClientID: "acme", Name: "web-01", Type: model.DeviceTypeServer, RMMDeviceID: "rmm-1", LastSeen: &seen}}
	out, err = f.d.Call(context.Background(), ToolDeviceList, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "• web-01 (ID: 7)")
	assert.Contains(t, out, "Last Seen: 2026-03-01 12:00:00")

	out, err = f.d.Call(context.Background(), ToolDeviceDelete, map[string]interface{}{"device_id": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.devices.deleted)
	assert.Equal(t, "✓ Device 7 removed", out)
}

func TestCall_DeviceDeleteBadID(t *testing.T) {
	f := newFixture(t)

	_, err := f.d.Call(context.Background(), ToolDeviceDelete, map[string]interface{}{"device_id": "seven"})
	require.Error(t, err)
	assert.True(t, model.IsValidation(err))
}

func TestCall_ReportGenerate(t *testing.T) {
	f := newFixture(t)

	out, err := f.d.Call(context.Background(), ToolReportGenerate, map[string]interface{}{
		"client_id": "acme", "template": "health-report",
	})
	require.NoError(t, err)
	assert.Equal(t, "health-report", f.reports.template)
	assert.Equal(t, "", f.reports.format, "empty format falls back to the configured default")
	assert.Contains(t, out, "File: reports/acme-health-report.html")
}

func TestCall_Middleware(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(rec))
	mw, err := observe.NewMiddleware(tp.Tracer("test"), metricnoop.NewMeterProvider().Meter("test"), zerolog.Nop())
	require.NoError(t, err)

	f := newFixture(t)
	d := NewDispatcher(Services{Engine: f.engine, Fleet: f.fleet, Clients: f.clients, Devices: f.devices, Reports: f.reports}, mw, zerolog.Nop())

	_, err = d.Call(context.Background(), ToolHealthSummary, map[string]interface{}{"client_id": "acme"})
	require.NoError(t, err)

	// Validation failures never reach the handler.
	_, err = d.Call(context.Background(), ToolHealthSummary, nil)
	require.Error(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "tool.exec.health_summary", spans[0].Name())
}
