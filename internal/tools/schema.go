// Package tools exposes the toolkit operations to AI agents as named tools
// with JSON input schemas, and serves them over a stdio JSON-RPC transport.
package tools

import (
	"msp-toolkit/internal/model"
	"msp-toolkit/internal/service"
)

// Tool names.
const (
	ToolClientList      = "client_list"
	ToolClientOnboard   = "client_onboard"
	ToolHealthCheck     = "health_check"
	ToolHealthHistory   = "health_history"
	ToolHealthSummary   = "health_summary"
	ToolHealthConfigure = "health_configure"
	ToolReportGenerate  = "report_generate"
	ToolDeviceList      = "device_list"
	ToolDeviceAdd       = "device_add"
	ToolDeviceDelete    = "device_delete"
)

// Schema is a JSON schema fragment.
type Schema map[string]interface{}

// Tool describes one callable tool.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"inputSchema"`
}

// Required returns the names of the required arguments of t.
func (t Tool) Required() []string {
	req, _ := t.InputSchema["required"].([]string)
	return req
}

func object(properties Schema, required ...string) Schema {
	s := Schema{"type": "object", "properties": properties}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func str(description string) Schema {
	return Schema{"type": "string", "description": description}
}

func enum(description string, values ...string) Schema {
	return Schema{"type": "string", "enum": values, "description": description}
}

func kindNames(kinds []model.CheckKind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

var (
	tiers          = []string{"bronze", "silver", "gold", "premium"}
	clientStatuses = []string{"active", "inactive", "suspended", "pending"}
	deviceTypes    = []string{"workstation", "server", "network", "mobile", "other"}
)

// Schemas returns the schema of every tool, in registration order.
func Schemas() []Tool {
	checkTypes := Schema{
		"type":        "array",
		"items":       Schema{"type": "string", "enum": kindNames(model.AllCheckKinds())},
		"description": "Check types to run, in order",
	}

	return []Tool{
		{
			Name:        ToolClientList,
			Description: "List MSP clients with optional filtering by tier, status, or name",
			InputSchema: object(Schema{
				"tier":   enum("Filter by client tier", tiers...),
				"status": enum("Filter by client status", clientStatuses...),
				"search": str("Search clients by id or name"),
			}),
		},
		{
			Name:        ToolClientOnboard,
			Description: "Onboard a new MSP client with automated setup",
			InputSchema: object(Schema{
				"name":          str("Client company name"),
				"client_id":     str("Client ID; derived from the name when omitted"),
				"contact_email": str("Primary contact email"),
				"tier":          enum("Service tier", tiers...),
				"template": Schema{
					"type":        "string",
					"enum":        service.OnboardTemplates(),
					"description": "Onboarding template",
					"default":     service.OnboardTemplateStandardBusiness,
				},
			}, "name", "tier"),
		},
		{
			Name:        ToolHealthCheck,
			Description: "Run health checks for one client, or for every active client when client_id is omitted",
			InputSchema: object(Schema{
				"client_id":   str("Specific client ID (omit for all active clients)"),
				"check_types": checkTypes,
			}),
		},
		{
			Name:        ToolHealthHistory,
			Description: "Show stored health check results of a client, newest first",
			InputSchema: object(Schema{
				"client_id": str("Client ID"),
				"days": Schema{
					"type":        "integer",
					"minimum":     0,
					"default":     service.DefaultHistoryDays,
					"description": "Number of days to look back",
				},
			}, "client_id"),
		},
		{
			Name:        ToolHealthSummary,
			Description: "Summarize the health checks of a client over the last 24 hours",
			InputSchema: object(Schema{
				"client_id": str("Client ID"),
			}, "client_id"),
		},
		{
			Name:        ToolHealthConfigure,
			Description: "Set per-client health thresholds and enabled checks",
			InputSchema: object(Schema{
				"client_id": str("Client ID"),
				"thresholds": Schema{
					"type": "object",
					"properties": Schema{
						"cpu_percent":    Schema{"type": "number", "minimum": 0, "maximum": 100},
						"memory_percent": Schema{"type": "number", "minimum": 0, "maximum": 100},
						"disk_percent":   Schema{"type": "number", "minimum": 0, "maximum": 100},
					},
					"description": "Warning thresholds in percent",
				},
				"enabled_checks": checkTypes,
			}, "client_id"),
		},
		{
			Name:        ToolReportGenerate,
			Description: "Generate a report for a client",
			InputSchema: object(Schema{
				"client_id": str("Client ID"),
				"template": enum("Report template",
					model.ReportTemplateMonthlySummary,
					model.ReportTemplateHealthReport,
					model.ReportTemplateSLACompliance,
					model.ReportTemplateIncidentSummary,
				),
				"format": enum("Output format", "html", "markdown", "excel", "pdf"),
			}, "client_id", "template"),
		},
		{
			Name:        ToolDeviceList,
			Description: "List devices, optionally filtered by client",
			InputSchema: object(Schema{
				"client_id": str("Client ID to filter devices"),
			}),
		},
		{
			Name:        ToolDeviceAdd,
			Description: "Register a device for a client",
			InputSchema: object(Schema{
				"client_id": str("Client ID"),
				"name":      str("Device name or hostname"),
				"type": Schema{
					"type":        "string",
					"enum":        deviceTypes,
					"default":     "workstation",
					"description": "Device type",
				},
				"rmm_device_id": str("RMM device identifier"),
			}, "client_id", "name"),
		},
		{
			Name:        ToolDeviceDelete,
			Description: "Remove a registered device",
			InputSchema: object(Schema{
				"device_id": Schema{"type": "integer", "description": "Device ID"},
			}, "device_id"),
		},
	}
}
