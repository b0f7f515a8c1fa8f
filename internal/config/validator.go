// Package config provides configuration management for the MSP toolkit.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"msp-toolkit/internal/model"
)

// ValidationError represents a single validation error with user-friendly message.
type ValidationError struct {
	Field   string      // Field path (e.g., "health_checks.thresholds.cpu_percent")
	Tag     string      // Validation tag that failed (e.g., "required", "numeric")
	Value   interface{} // Actual value that failed validation
	Message string      // User-friendly error message
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Code returns the stable error code shared with domain validation errors.
func (e *ValidationError) Code() string { return model.CodeValidation }

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Code returns the stable error code shared with domain validation errors.
func (e ValidationErrors) Code() string { return model.CodeValidation }

// Has reports whether any entry refers to field.
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// validate is the package-level validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("timezone", validateTimezone)
}

// Validate validates the configuration and returns user-friendly error messages.
func Validate(cfg *Config) error {
	var validationErrors ValidationErrors

	if err := validate.Struct(cfg); err != nil {
		if fieldErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrors {
				validationErrors = append(validationErrors, &ValidationError{
					Field:   formatFieldName(fe.Namespace()),
					Tag:     fe.Tag(),
					Value:   fe.Value(),
					Message: translateError(fe),
				})
			}
		}
	}

	if errs := validateIntegrations(cfg); len(errs) > 0 {
		validationErrors = append(validationErrors, errs...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

// validateTimezone is a custom validator for timezone strings.
func validateTimezone(fl validator.FieldLevel) bool {
	tz := fl.Field().String()
	if tz == "" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// validateIntegrations checks that the selected remote sources are reachable by config.
func validateIntegrations(cfg *Config) ValidationErrors {
	var errors ValidationErrors

	if cfg.HealthChecks.MetricsSource == "remote" && cfg.Integrations.VictoriaMetrics.Endpoint == "" {
		errors = append(errors, &ValidationError{
			Field:   "integrations.victoriametrics.endpoint",
			Tag:     "required_with_remote",
			Value:   "",
			Message: "endpoint is required when health_checks.metrics_source is remote",
		})
	}

	if cfg.HealthChecks.DeviceSource == "remote" {
		if cfg.Integrations.N9E.Endpoint == "" {
			errors = append(errors, &ValidationError{
				Field:   "integrations.n9e.endpoint",
				Tag:     "required_with_remote",
				Value:   "",
				Message: "endpoint is required when health_checks.device_source is remote",
			})
		}
		if cfg.Integrations.N9E.Token == "" {
			errors = append(errors, &ValidationError{
				Field:   "integrations.n9e.token",
				Tag:     "required_with_remote",
				Value:   "",
				Message: "token is required when health_checks.device_source is remote",
			})
		}
	}

	return errors
}

// formatFieldName converts the validator field namespace to a user-friendly format.
// Example: "Config.HealthChecks.Thresholds.CPUPercent" -> "health_checks.thresholds.cpu_percent"
func formatFieldName(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}

	for i, part := range parts {
		parts[i] = toSnake(part)
	}

	return strings.Join(parts, ".")
}

// toSnake converts a Go field name to its snake_case config key.
// Runs of capitals are kept together ("CPUPercent" -> "cpu_percent").
func toSnake(name string) string {
	if key, ok := fieldKeys[name]; ok {
		return key
	}
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		isUpper := r >= 'A' && r <= 'Z'
		if isUpper && i > 0 {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			prevUpper := runes[i-1] >= 'A' && runes[i-1] <= 'Z'
			if prevLower || (prevUpper && nextLower) {
				sb.WriteByte('_')
			}
		}
		sb.WriteRune(r)
	}
	return strings.ToLower(sb.String())
}

// fieldKeys covers field names whose key is not their snake_case form.
var fieldKeys = map[string]string{
	"VictoriaMetrics": "victoriametrics",
	"N9E":             "n9e",
	"HTTP":            "http",
	"SamplePct":       "sample_pct",
}

// translateError converts a validator.FieldError to a user-friendly message.
func translateError(fe validator.FieldError) string {
	field := formatFieldName(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return fmt.Sprintf("invalid URL format: %v", fe.Value())
	case "gte":
		return fmt.Sprintf("value must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("value must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", fe.Param())
	case "timezone":
		return fmt.Sprintf("invalid timezone: %v", fe.Value())
	default:
		return fmt.Sprintf("validation failed on '%s' tag for field '%s'", fe.Tag(), field)
	}
}
