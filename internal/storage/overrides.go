package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"msp-toolkit/internal/model"
)

// OverrideStore persists per-client health check configuration.
type OverrideStore struct {
	db *sql.DB
}

// NewOverrideStore creates an override store over db.
func NewOverrideStore(db *sql.DB) *OverrideStore {
	return &OverrideStore{db: db}
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Save upserts cfg. Fields left nil in cfg keep their stored value. The read
// and the write share one transaction so concurrent saves do not drop fields.
func (s *OverrideStore) Save(ctx context.Context, cfg *model.CheckConfig) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &model.StorageError{Op: "begin override save", Err: err}
	}
	defer tx.Rollback()

	existing, err := getOverride(ctx, tx, cfg.ClientID)
	if err != nil {
		return err
	}

	merged := &model.CheckConfig{ClientID: cfg.ClientID}
	if existing != nil {
		merged.Thresholds = existing.Thresholds
		merged.EnabledChecks = existing.EnabledChecks
	}
	if !cfg.Thresholds.IsEmpty() {
		merged.Thresholds = mergeOverride(merged.Thresholds, cfg.Thresholds)
	}
	if cfg.EnabledChecks != nil {
		merged.EnabledChecks = cfg.EnabledChecks
	}

	thresholds, err := encodeOptionalJSON(merged.Thresholds, !merged.Thresholds.IsEmpty())
	if err != nil {
		return &model.StorageError{Op: "encode threshold override", Err: err}
	}
	enabled, err := encodeOptionalJSON(merged.EnabledChecks, merged.EnabledChecks != nil)
	if err != nil {
		return &model.StorageError{Op: "encode enabled checks", Err: err}
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO health_check_overrides (client_id, thresholds, enabled_checks, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			thresholds = excluded.thresholds,
			enabled_checks = excluded.enabled_checks,
			updated_at = excluded.updated_at`,
		cfg.ClientID, thresholds, enabled, time.Now().UTC().UnixNano())
	if err != nil {
		return &model.StorageError{Op: "save override", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &model.StorageError{Op: "commit override save", Err: err}
	}
	return nil
}

// Get returns the stored configuration for clientID, or nil when none exists.
func (s *OverrideStore) Get(ctx context.Context, clientID string) (*model.CheckConfig, error) {
	return getOverride(ctx, s.db, clientID)
}

func getOverride(ctx context.Context, q rowQuerier, clientID string) (*model.CheckConfig, error) {
	var thresholds, enabled sql.NullString
	err := q.QueryRowContext(ctx, `SELECT thresholds, enabled_checks FROM health_check_overrides WHERE client_id = ?`, clientID).
		Scan(&thresholds, &enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get override", Err: err}
	}

	cfg := &model.CheckConfig{ClientID: clientID}
	if thresholds.Valid && thresholds.String != "" {
		cfg.Thresholds = &model.ThresholdOverride{}
		if err := json.Unmarshal([]byte(thresholds.String), cfg.Thresholds); err != nil {
			return nil, &model.StorageError{Op: "decode threshold override", Err: err}
		}
	}
	if enabled.Valid && enabled.String != "" {
		if err := json.Unmarshal([]byte(enabled.String), &cfg.EnabledChecks); err != nil {
			return nil, &model.StorageError{Op: "decode enabled checks", Err: err}
		}
	}
	return cfg, nil
}

func mergeOverride(base, update *model.ThresholdOverride) *model.ThresholdOverride {
	merged := &model.ThresholdOverride{}
	if base != nil {
		*merged = *base
	}
	if update.CPUPercent != nil {
		merged.CPUPercent = update.CPUPercent
	}
	if update.MemoryPercent != nil {
		merged.MemoryPercent = update.MemoryPercent
	}
	if update.DiskPercent != nil {
		merged.DiskPercent = update.DiskPercent
	}
	return merged
}

func encodeOptionalJSON(v interface{}, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
