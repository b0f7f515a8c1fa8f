package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"msp-toolkit/internal/model"
)

// DeviceStore is the persistence used by DeviceManager.
type DeviceStore interface {
	Add(ctx context.Context, d *model.Device) error
	List(ctx context.Context, clientID string) ([]*model.Device, error)
	Delete(ctx context.Context, id int64) error
}

// AddDeviceInput holds the fields accepted when registering a device.
type AddDeviceInput struct {
	ClientID    string                 `validate:"required"`
	Name        string                 `validate:"required,max=200"`
	Type        model.DeviceType       `validate:"omitempty,oneof=workstation server network mobile other"`
	RMMDeviceID string                 `validate:"max=200"`
	Metadata    map[string]interface{} `validate:"-"`
}

// DeviceManager manages the devices registered for clients.
type DeviceManager struct {
	store    DeviceStore
	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

// NewDeviceManager creates a DeviceManager.
func NewDeviceManager(store DeviceStore, logger zerolog.Logger) *DeviceManager {
	return &DeviceManager{
		store:    store,
		validate: newInputValidator(),
		now:      time.Now,
		logger:   logger.With().Str("component", "device-manager").Logger(),
	}
}

// List returns the devices of clientID, or all devices when clientID is empty.
func (m *DeviceManager) List(ctx context.Context, clientID string) ([]*model.Device, error) {
	return m.store.List(ctx, clientID)
}

// Add registers a device. The type defaults to workstation and the device is
// marked as seen now. An unknown client yields *model.NotFoundError.
func (m *DeviceManager) Add(ctx context.Context, in AddDeviceInput) (*model.Device, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Type = model.DeviceType(strings.ToLower(string(in.Type)))
	if in.Type == "" {
		in.Type = model.DeviceTypeWorkstation
	}
	if err := m.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	now := m.now().UTC()
	device := &model.Device{
		ClientID:    in.ClientID,
		Name:        in.Name,
		Type:        in.Type,
		RMMDeviceID: in.RMMDeviceID,
		LastSeen:    &now,
		Metadata:    in.Metadata,
		CreatedAt:   now,
	}
	if err := m.store.Add(ctx, device); err != nil {
		return nil, err
	}

	m.logger.Info().
		Str("client_id", device.ClientID).
		Int64("device_id", device.ID).
		Str("name", device.Name).
		Msg("device added")
	return device, nil
}

// Delete removes the device with id.
func (m *DeviceManager) Delete(ctx context.Context, id int64) error {
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info().Int64("device_id", id).Msg("device deleted")
	return nil
}

// ClientChecker reports whether a client is known.
type ClientChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// ScopedRegistry puts client existence in front of a registry that does not
// own clients, such as the N9E target list, so an unknown client surfaces as
// *model.NotFoundError instead of zero devices.
type ScopedRegistry struct {
	clients ClientChecker
	inner   DeviceRegistry
}

// NewScopedRegistry wraps inner with a client existence check.
func NewScopedRegistry(clients ClientChecker, inner DeviceRegistry) *ScopedRegistry {
	return &ScopedRegistry{clients: clients, inner: inner}
}

// ListDevicesFor implements DeviceRegistry.
func (r *ScopedRegistry) ListDevicesFor(ctx context.Context, clientID string) ([]model.DeviceRef, error) {
	ok, err := r.clients.Exists(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewClientNotFound(clientID)
	}
	return r.inner.ListDevicesFor(ctx, clientID)
}

// Name implements DeviceRegistry.
func (r *ScopedRegistry) Name() string { return r.inner.Name() }
