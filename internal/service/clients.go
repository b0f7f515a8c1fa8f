package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"msp-toolkit/internal/model"
)

// Onboarding templates.
const (
	OnboardTemplateBasic            = "basic"
	OnboardTemplateStandardBusiness = "standard-business"
	OnboardTemplateEnterprise       = "enterprise"
)

// onboardSteps lists the steps each onboarding template reports, in order.
var onboardSteps = map[string][]string{
	OnboardTemplateBasic: {
		"Client record created",
		"Monitoring configured",
		"Initial health check performed",
	},
	OnboardTemplateStandardBusiness: {
		"Client record created",
		"RMM agent deployed",
		"Monitoring configured",
		"Initial health check performed",
	},
	OnboardTemplateEnterprise: {
		"Client record created",
		"RMM agent deployed",
		"Monitoring configured",
		"Backup verification scheduled",
		"Initial health check performed",
	},
}

// OnboardTemplates returns the supported onboarding template names.
func OnboardTemplates() []string {
	return []string{OnboardTemplateBasic, OnboardTemplateStandardBusiness, OnboardTemplateEnterprise}
}

// ClientStore is the persistence used by ClientManager.
type ClientStore interface {
	Create(ctx context.Context, c *model.Client) error
	Get(ctx context.Context, id string) (*model.Client, error)
	List(ctx context.Context, filter model.ClientFilter) ([]*model.Client, error)
	Update(ctx context.Context, c *model.Client) error
	Delete(ctx context.Context, id string) error
}

// CreateClientInput holds the fields accepted when creating a client.
type CreateClientInput struct {
	ID           string                 `validate:"required,client_id,max=64"`
	Name         string                 `validate:"required,max=200"`
	ContactEmail string                 `validate:"omitempty,email"`
	Tier         model.ClientTier       `validate:"omitempty,oneof=bronze silver gold premium"`
	Metadata     map[string]interface{} `validate:"-"`
}

// OnboardResult reports the outcome of an onboarding workflow.
type OnboardResult struct {
	ClientID       string               `json:"client_id"`
	Template       string               `json:"template"`
	Status         string               `json:"status"`
	Message        string               `json:"message"`
	StepsCompleted []string             `json:"steps_completed"`
	InitialChecks  []*model.CheckResult `json:"initial_checks,omitempty"`
}

// ClientManager manages the client lifecycle.
type ClientManager struct {
	store    ClientStore
	engine   *Engine
	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

// NewClientManager creates a ClientManager. engine may be nil, in which case
// onboarding skips the initial health check.
func NewClientManager(store ClientStore, engine *Engine, logger zerolog.Logger) *ClientManager {
	return &ClientManager{
		store:    store,
		engine:   engine,
		validate: newInputValidator(),
		now:      time.Now,
		logger:   logger.With().Str("component", "client-manager").Logger(),
	}
}

// Create validates in and stores a new active client.
func (m *ClientManager) Create(ctx context.Context, in CreateClientInput) (*model.Client, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	in.Tier = model.ClientTier(strings.ToLower(string(in.Tier)))
	if in.Tier == "" {
		in.Tier = model.ClientTierBronze
	}
	if err := m.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	now := m.now().UTC()
	client := &model.Client{
		ID:           in.ID,
		Name:         in.Name,
		ContactEmail: in.ContactEmail,
		Tier:         in.Tier,
		Status:       model.ClientStatusActive,
		Metadata:     in.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.Create(ctx, client); err != nil {
		return nil, err
	}

	m.logger.Info().Str("client_id", client.ID).Str("tier", string(client.Tier)).Msg("client created")
	return client, nil
}

// Get returns the client with id.
func (m *ClientManager) Get(ctx context.Context, id string) (*model.Client, error) {
	return m.store.Get(ctx, id)
}

// List returns the clients matching filter. Tier and status are matched
// case-insensitively and must be valid values.
func (m *ClientManager) List(ctx context.Context, filter model.ClientFilter) ([]*model.Client, error) {
	filter.Tier = model.ClientTier(strings.ToLower(string(filter.Tier)))
	filter.Status = model.ClientStatus(strings.ToLower(string(filter.Status)))
	if filter.Tier != "" {
		if err := m.validate.Var(string(filter.Tier), "oneof=bronze silver gold premium"); err != nil {
			return nil, invalidEnum("tier", filter.Tier)
		}
	}
	if filter.Status != "" {
		if err := m.validate.Var(string(filter.Status), "oneof=active inactive suspended pending"); err != nil {
			return nil, invalidEnum("status", filter.Status)
		}
	}

	clients, err := m.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().Int("count", len(clients)).Msg("listed clients")
	return clients, nil
}

// Update applies the non-nil fields of upd to the client with id.
func (m *ClientManager) Update(ctx context.Context, id string, upd model.ClientUpdate) (*model.Client, error) {
	client, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []string
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if err := m.validate.Var(name, "required,max=200"); err != nil {
			return nil, &model.ValidationError{Field: "name", Value: *upd.Name, Message: "name is required"}
		}
		client.Name = name
		changed = append(changed, "name")
	}
	if upd.ContactEmail != nil {
		if err := m.validate.Var(*upd.ContactEmail, "omitempty,email"); err != nil {
			return nil, &model.ValidationError{Field: "contact_email", Value: *upd.ContactEmail, Message: "contact_email must be a valid email address"}
		}
		client.ContactEmail = *upd.ContactEmail
		changed = append(changed, "contact_email")
	}
	if upd.Tier != nil {
		tier := model.ClientTier(strings.ToLower(string(*upd.Tier)))
		if err := m.validate.Var(string(tier), "oneof=bronze silver gold premium"); err != nil {
			return nil, invalidEnum("tier", *upd.Tier)
		}
		client.Tier = tier
		changed = append(changed, "tier")
	}
	if upd.Status != nil {
		status := model.ClientStatus(strings.ToLower(string(*upd.Status)))
		if err := m.validate.Var(string(status), "oneof=active inactive suspended pending"); err != nil {
			return nil, invalidEnum("status", *upd.Status)
		}
		client.Status = status
		changed = append(changed, "status")
	}
	if upd.Metadata != nil {
		client.Metadata = upd.Metadata
		changed = append(changed, "metadata")
	}

	client.UpdatedAt = m.now().UTC()
	if err := m.store.Update(ctx, client); err != nil {
		return nil, err
	}

	m.logger.Info().Str("client_id", id).Strs("updated", changed).Msg("client updated")
	return client, nil
}

// Delete removes the client and its devices.
func (m *ClientManager) Delete(ctx context.Context, id string) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info().Str("client_id", id).Msg("client deleted")
	return nil
}

// Onboard runs the onboarding workflow of template for an existing client.
// The final step runs the default health checks; a failure there is reported
// as an error since the client is then only partially onboarded.
func (m *ClientManager) Onboard(ctx context.Context, id, template string) (*OnboardResult, error) {
	if template == "" {
		template = OnboardTemplateStandardBusiness
	}
	steps, ok := onboardSteps[template]
	if !ok {
		return nil, &model.ValidationError{
			Field:   "template",
			Value:   template,
			Message: fmt.Sprintf("unknown onboarding template %q, supported templates: %s", template, strings.Join(OnboardTemplates(), ", ")),
		}
	}

	client, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	m.logger.Info().Str("client_id", id).Str("template", template).Msg("starting client onboarding")

	result := &OnboardResult{
		ClientID:       id,
		Template:       template,
		Status:         "completed",
		Message:        fmt.Sprintf("Client %s onboarded successfully", client.Name),
		StepsCompleted: append([]string(nil), steps...),
	}

	if m.engine != nil {
		checks, err := m.engine.RunChecks(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("initial health check failed: %w", err)
		}
		result.InitialChecks = checks
	}

	m.logger.Info().Str("client_id", id).Str("status", result.Status).Msg("client onboarding completed")
	return result, nil
}

func newInputValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("client_id", func(fl validator.FieldLevel) bool {
		return model.ClientIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// toValidationError converts the first validator field error into a
// *model.ValidationError.
func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	field := inputFieldName(fe.Field())
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", field)
	case "client_id":
		msg = fmt.Sprintf("%s must contain only lowercase letters, digits and hyphens", field)
	case "email":
		msg = fmt.Sprintf("%s must be a valid email address", field)
	case "oneof":
		msg = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		msg = fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
	return &model.ValidationError{Field: field, Value: fe.Value(), Message: msg}
}

func inputFieldName(name string) string {
	switch name {
	case "ID":
		return "client_id"
	case "ContactEmail":
		return "contact_email"
	case "ClientID":
		return "client_id"
	case "RMMDeviceID":
		return "rmm_device_id"
	}
	return strings.ToLower(name)
}

func invalidEnum(field string, value interface{}) error {
	return &model.ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("invalid %s '%v'", field, value),
	}
}
