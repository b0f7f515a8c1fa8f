package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"msp-toolkit/internal/model"
	"msp-toolkit/internal/observe"
	"msp-toolkit/internal/service"
)

// HealthEngine runs and queries health checks.
type HealthEngine interface {
	RunChecks(ctx context.Context, clientID string, kinds ...string) ([]*model.CheckResult, error)
	GetHistory(ctx context.Context, clientID string, days int) ([]*model.CheckResult, error)
	GetStatusSummary(ctx context.Context, clientID string) (*model.HealthSummary, error)
	Configure(ctx context.Context, clientID string, payload map[string]interface{}) (bool, error)
}

// FleetChecker runs health checks for every active client.
type FleetChecker interface {
	RunAll(ctx context.Context, kinds []model.CheckKind) ([]*service.FleetResult, error)
}

// ClientService manages clients.
type ClientService interface {
	Create(ctx context.Context, in service.CreateClientInput) (*model.Client, error)
	List(ctx context.Context, filter model.ClientFilter) ([]*model.Client, error)
	Onboard(ctx context.Context, id, template string) (*service.OnboardResult, error)
}

// DeviceService manages devices.
type DeviceService interface {
	List(ctx context.Context, clientID string) ([]*model.Device, error)
	Add(ctx context.Context, in service.AddDeviceInput) (*model.Device, error)
	Delete(ctx context.Context, id int64) error
}

// ReportService generates reports.
type ReportService interface {
	Generate(ctx context.Context, clientID, template, format string) (*model.Report, error)
}

// Services are the collaborators the tools call into.
type Services struct {
	Engine  HealthEngine
	Fleet   FleetChecker
	Clients ClientService
	Devices DeviceService
	Reports ReportService
}

type handlerFunc func(ctx context.Context, args map[string]interface{}) (string, error)

// Dispatcher routes tool calls by name.
type Dispatcher struct {
	svc      Services
	schemas  map[string]Tool
	handlers map[string]handlerFunc
	exec     observe.Handler
	logger   zerolog.Logger
}

// NewDispatcher creates a Dispatcher. When mw is non-nil every call is
// traced and counted through it.
func NewDispatcher(svc Services, mw *observe.Middleware, logger zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		svc:     svc,
		schemas: make(map[string]Tool),
		logger:  logger.With().Str("component", "tools").Logger(),
	}
	for _, t := range Schemas() {
		d.schemas[t.Name] = t
	}

	d.handlers = map[string]handlerFunc{
		ToolClientList:      d.clientList,
		ToolClientOnboard:   d.clientOnboard,
		ToolHealthCheck:     d.healthCheck,
		ToolHealthHistory:   d.healthHistory,
		ToolHealthSummary:   d.healthSummary,
		ToolHealthConfigure: d.healthConfigure,
		ToolReportGenerate:  d.reportGenerate,
		ToolDeviceList:      d.deviceList,
		ToolDeviceAdd:       d.deviceAdd,
		ToolDeviceDelete:    d.deviceDelete,
	}

	d.exec = d.execute
	if mw != nil {
		d.exec = mw.Wrap(d.execute)
	}
	return d
}

// Tools returns the schemas of the registered tools.
func (d *Dispatcher) Tools() []Tool {
	return Schemas()
}

// Call validates args against the required arguments of tool name and runs
// it. The result is the text shown to the agent.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	schema, ok := d.schemas[name]
	if !ok {
		return "", &model.ValidationError{
			Field:   "name",
			Value:   name,
			Message: fmt.Sprintf("unknown tool: %s", name),
		}
	}
	if args == nil {
		args = map[string]interface{}{}
	}

	var missing []string
	for _, key := range schema.Required() {
		if isBlank(args[key]) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", &model.ValidationError{
			Field:   missing[0],
			Message: fmt.Sprintf("missing required argument(s) for %s: %s", name, strings.Join(missing, ", ")),
		}
	}

	d.logger.Debug().Str("tool", name).Interface("arguments", args).Msg("tool called")

	out, err := d.exec(ctx, name, args)
	if err != nil {
		return "", err
	}
	text, _ := out.(string)
	return text, nil
}

func (d *Dispatcher) execute(ctx context.Context, tool string, args map[string]interface{}) (interface{}, error) {
	return d.handlers[tool](ctx, args)
}

func isBlank(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	}
	return false
}

// ============================================================================
// Argument helpers
// ============================================================================

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", &model.ValidationError{Field: key, Value: v, Message: fmt.Sprintf("%s must be a string", key)}
	}
	return strings.TrimSpace(s), nil
}

func intArg(args map[string]interface{}, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	notInt := &model.ValidationError{Field: key, Value: v, Message: fmt.Sprintf("%s must be an integer", key)}
	switch f := v.(type) {
	case float64:
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, notInt
		}
	case float32:
		if float64(f) != math.Trunc(float64(f)) || math.IsInf(float64(f), 0) {
			return 0, notInt
		}
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, notInt
	}
	return n, nil
}

func stringsArg(args map[string]interface{}, key string) ([]string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, isString := v.(string); isString {
		return splitList(s), nil
	}
	list, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, &model.ValidationError{Field: key, Value: v, Message: fmt.Sprintf("%s must be a list of strings", key)}
	}
	return list, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ============================================================================
// Handlers
// ============================================================================

func (d *Dispatcher) clientList(ctx context.Context, args map[string]interface{}) (string, error) {
	tier, err := stringArg(args, "tier")
	if err != nil {
		return "", err
	}
	status, err := stringArg(args, "status")
	if err != nil {
		return "", err
	}
	search, err := stringArg(args, "search")
	if err != nil {
		return "", err
	}

	clients, err := d.svc.Clients.List(ctx, model.ClientFilter{
		Tier:   model.ClientTier(strings.ToLower(tier)),
		Status: model.ClientStatus(strings.ToLower(status)),
		Search: search,
	})
	if err != nil {
		return "", err
	}
	return formatClients(clients), nil
}

func (d *Dispatcher) clientOnboard(ctx context.Context, args map[string]interface{}) (string, error) {
	name, err := stringArg(args, "name")
	if err != nil {
		return "", err
	}
	id, err := stringArg(args, "client_id")
	if err != nil {
		return "", err
	}
	if id == "" {
		id = model.SlugFromName(name)
	}
	email, err := stringArg(args, "contact_email")
	if err != nil {
		return "", err
	}
	tier, err := stringArg(args, "tier")
	if err != nil {
		return "", err
	}
	template, err := stringArg(args, "template")
	if err != nil {
		return "", err
	}

	client, err := d.svc.Clients.Create(ctx, service.CreateClientInput{
		ID:           id,
		Name:         name,
		ContactEmail: email,
		Tier:         model.ClientTier(tier),
	})
	if err != nil {
		return "", err
	}

	result, err := d.svc.Clients.Onboard(ctx, client.ID, template)
	if err != nil {
		return "", err
	}
	return formatOnboard(client, result), nil
}

func (d *Dispatcher) healthCheck(ctx context.Context, args map[string]interface{}) (string, error) {
	clientID, err := stringArg(args, "client_id")
	if err != nil {
		return "", err
	}
	kinds, err := stringsArg(args, "check_types")
	if err != nil {
		return "", err
	}

	if clientID == "" {
		parsed, err := model.ParseCheckKinds(kinds)
		if err != nil {
			return "", err
		}
		if len(kinds) == 0 {
			parsed = nil
		}
		results, err := d.svc.Fleet.RunAll(ctx, parsed)
		if err != nil {
			return "", err
		}
		return formatFleet(results), nil
	}

	results, err := d.svc.Engine.RunChecks(ctx, clientID, kinds...)
	if err != nil {
		return "", err
	}
	summary, err := d.svc.Engine.GetStatusSummary(ctx, clientID)
	if err != nil {
		return "", err
	}
	return formatHealthCheck(clientID, results, summary), nil
}

func (d *Dispatcher) healthHistory(ctx context.Context, args map[string]interface{}) (string, error) {
	clientID, err := stringArg(args, "client_id")
	if err != nil {
		return "", err
	}
	days, err := intArg(args, "days", service.DefaultHistoryDays)
	if err != nil {
		return "", err
	}

	results, err := d.svc.Engine.GetHistory(ctx, clientID, days)
	if err != nil {
		return "", err
	}
	return formatHistory(clientID, days, results), nil
}

func (d *Dispatcher) healthSummary(ctx context.Context, args map[string]interface{}) (string, error) {
	clientID, err := stringArg(args, "client_id")
	if err != nil {
		return "", err
	}
	summary, err := d.svc.Engine.GetStatusSummary(ctx, clientID)
	if err != nil {
		return "", err
	}
	return formatSummary(summary), nil
}

func (d *Dispatcher) healthConfigure(ctx context.Context, args map[string]interface{}) (string, error) {
	clientID, err := stringArg(args, "client_id")
	if err != nil {
		return "", err
	}

	payload := make(map[string]interface{})
	if v, ok := args["thresholds"]; ok && v != nil {
		payload["thresholds"] = v
	}
	if _, ok := args["enabled_checks"]; ok {
		checks, err := stringsArg(args, "enabled_checks")
		if err != nil {
			return "", err
		}
		payload["enabled_checks"] = checks
	}

	if _, err := d.svc.Engine.Configure(ctx, clientID, payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("✓ Health check configuration saved for '%s'", clientID), nil
}

func (d *Dispatcher) reportGenerate(ctx context.Context, args map[string]interface{}) (string, error) {
	clientID, err := stringArg(args, "client_id")
	if err != nil {
		return "", err
	}
	template, err := stringArg(args, "template")
	if err != nil {
		return "", err
	}
	format, err := stringArg(args, "format")
	if err != nil {
		return "", err
	}

	report, err := d.svc.Reports.Generate(ctx, clientID, template, format)
	if err != nil {
		return "", err
	}
	return formatReport(report), nil
}

func (d *Dispatcher) deviceList(ctx context.Context, args map[string]interface{}) (string, error) {
	clientID, err := stringArg(args, "client_id")
	if err != nil {
		return "", err
	}
	devices, err := d.svc.Devices.List(ctx, clientID)
	if err != nil {
		return "", err
	}
	return formatDevices(devices), nil
}

func (d *Dispatcher) deviceAdd(ctx context.Context, args map[string]interface{}) (string, error) {
	in := service.AddDeviceInput{}
	var err error
	if in.ClientID, err = stringArg(args, "client_id"); err != nil {
		return "", err
	}
	if in.Name, err = stringArg(args, "name"); err != nil {
		return "", err
	}
	deviceType, err := stringArg(args, "type")
	if err != nil {
		return "", err
	}
	in.Type = model.DeviceType(deviceType)
	if in.RMMDeviceID, err = stringArg(args, "rmm_device_id"); err != nil {
		return "", err
	}

	device, err := d.svc.Devices.Add(ctx, in)
	if err != nil {
		return "", err
	}
	return formatDeviceAdded(device), nil
}

func (d *Dispatcher) deviceDelete(ctx context.Context, args map[string]interface{}) (string, error) {
	id, err := intArg(args, "device_id", 0)
	if err != nil {
		return "", err
	}
	if err := d.svc.Devices.Delete(ctx, int64(id)); err != nil {
		return "", err
	}
	return fmt.Sprintf("✓ Device %d removed", id), nil
}
