package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/mattn/go-sqlite3"

	"msp-toolkit/internal/model"
)

// DeviceStore persists devices and doubles as the local device registry.
type DeviceStore struct {
	db      *sql.DB
	clients *ClientStore
}

// NewDeviceStore creates a device store over db.
func NewDeviceStore(db *sql.DB) *DeviceStore {
	return &DeviceStore{db: db, clients: NewClientStore(db)}
}

const deviceColumns = `id, client_id, name, type, rmm_device_id, last_seen, metadata, created_at`

// Add inserts d and sets its id. The owning client must exist.
func (s *DeviceStore) Add(ctx context.Context, d *model.Device) error {
	metadata, err := encodeJSON(d.Metadata)
	if err != nil {
		return &model.StorageError{Op: "encode device metadata", Err: err}
	}

	var lastSeen sql.NullInt64
	if d.LastSeen != nil {
		lastSeen = sql.NullInt64{Int64: d.LastSeen.UTC().UnixNano(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO devices
		(client_id, name, type, rmm_device_id, last_seen, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ClientID, d.Name, string(d.Type), d.RMMDeviceID, lastSeen, metadata, d.CreatedAt.UTC().UnixNano())
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return model.NewClientNotFound(d.ClientID)
		}
		return &model.StorageError{Op: "insert device", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return &model.StorageError{Op: "insert device", Err: err}
	}
	d.ID = id
	return nil
}

// Get returns the device with id or a device *model.NotFoundError.
func (s *DeviceStore) Get(ctx context.Context, id int64) (*model.Device, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Resource: model.ResourceDevice, ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get device", Err: err}
	}
	return d, nil
}

// List returns the devices of clientID, or every device when clientID is empty.
func (s *DeviceStore) List(ctx context.Context, clientID string) ([]*model.Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices`
	var args []interface{}
	if clientID != "" {
		query += ` WHERE client_id = ?`
		args = append(args, clientID)
	}
	query += ` ORDER BY client_id, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &model.StorageError{Op: "list devices", Err: err}
	}
	defer rows.Close()

	devices := make([]*model.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, &model.StorageError{Op: "scan device", Err: err}
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "iterate devices", Err: err}
	}
	return devices, nil
}

// Delete removes the device with id.
func (s *DeviceStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return &model.StorageError{Op: "delete device", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &model.NotFoundError{Resource: model.ResourceDevice, ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

// ListDevicesFor returns the devices tracked for clientID. An unknown client
// yields *model.NotFoundError; a known client without devices yields an empty slice.
func (s *DeviceStore) ListDevicesFor(ctx context.Context, clientID string) ([]model.DeviceRef, error) {
	exists, err := s.clients.Exists(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, model.NewClientNotFound(clientID)
	}

	devices, err := s.List(ctx, clientID)
	if err != nil {
		return nil, err
	}

	refs := make([]model.DeviceRef, 0, len(devices))
	for _, d := range devices {
		refs = append(refs, d.Ref())
	}
	return refs, nil
}

// Name identifies the registry in logs and diagnostics.
func (s *DeviceStore) Name() string { return "local" }

func scanDevice(row rowScanner) (*model.Device, error) {
	var (
		d        model.Device
		typ      string
		lastSeen sql.NullInt64
		metadata sql.NullString
		created  int64
	)
	if err := row.Scan(&d.ID, &d.ClientID, &d.Name, &typ, &d.RMMDeviceID, &lastSeen, &metadata, &created); err != nil {
		return nil, err
	}
	d.Type = model.DeviceType(typ)
	d.CreatedAt = time.Unix(0, created).UTC()
	if lastSeen.Valid {
		ts := time.Unix(0, lastSeen.Int64).UTC()
		d.LastSeen = &ts
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &d.Metadata); err != nil {
			return nil, err
		}
	}
	return &d, nil
}
