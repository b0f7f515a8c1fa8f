package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"msp-toolkit/internal/model"
)

// HistoryStore is the append-only log of check results.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a history store over db.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append writes every result in a single transaction. Either all rows are
// committed or none are. Assigned row ids are written back into results.
func (s *HistoryStore) Append(ctx context.Context, results []*model.CheckResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &model.StorageError{Op: "begin history append", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO health_checks
		(run_id, client_id, check_kind, status, message, value, threshold, details, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return &model.StorageError{Op: "prepare history append", Err: err}
	}
	defer stmt.Close()

	ids := make([]int64, len(results))
	for i, r := range results {
		details, err := encodeJSON(r.Details)
		if err != nil {
			return &model.StorageError{Op: "encode check details", Err: err}
		}

		res, err := stmt.ExecContext(ctx,
			r.RunID,
			r.ClientID,
			string(r.Kind),
			string(r.Status),
			r.Message,
			nullFloat(r.Value),
			nullFloat(r.Threshold),
			details,
			r.Timestamp.UTC().UnixNano(),
		)
		if err != nil {
			return &model.StorageError{Op: "insert check result", Err: err}
		}
		if ids[i], err = res.LastInsertId(); err != nil {
			return &model.StorageError{Op: "insert check result", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &model.StorageError{Op: "commit history append", Err: err}
	}

	for i, r := range results {
		r.ID = ids[i]
	}
	return nil
}

// ListSince returns the results of clientID with timestamp >= since, newest first.
func (s *HistoryStore) ListSince(ctx context.Context, clientID string, since time.Time) ([]*model.CheckResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, client_id, check_kind, status, message, value, threshold, details, timestamp
		FROM health_checks
		WHERE client_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC, id DESC`,
		clientID, since.UTC().UnixNano())
	if err != nil {
		return nil, &model.StorageError{Op: "query history", Err: err}
	}
	defer rows.Close()

	results := make([]*model.CheckResult, 0)
	for rows.Next() {
		r, err := scanCheckResult(rows)
		if err != nil {
			return nil, &model.StorageError{Op: "scan history", Err: err}
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "iterate history", Err: err}
	}

	return results, nil
}

// Count returns the number of stored results for clientID.
func (s *HistoryStore) Count(ctx context.Context, clientID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM health_checks WHERE client_id = ?`, clientID).Scan(&n)
	if err != nil {
		return 0, &model.StorageError{Op: "count history", Err: err}
	}
	return n, nil
}

func scanCheckResult(rows *sql.Rows) (*model.CheckResult, error) {
	var (
		r                model.CheckResult
		kind, status     string
		value, threshold sql.NullFloat64
		details          sql.NullString
		ts               int64
	)

	if err := rows.Scan(&r.ID, &r.RunID, &r.ClientID, &kind, &status, &r.Message, &value, &threshold, &details, &ts); err != nil {
		return nil, err
	}

	var err error
	if r.Kind, err = model.ParseCheckKind(kind); err != nil {
		return nil, fmt.Errorf("result %d: %w", r.ID, err)
	}
	if r.Status, err = model.ParseCheckStatus(status); err != nil {
		return nil, fmt.Errorf("result %d: %w", r.ID, err)
	}
	r.Timestamp = time.Unix(0, ts).UTC()
	if value.Valid {
		v := value.Float64
		r.Value = &v
	}
	if threshold.Valid {
		t := threshold.Float64
		r.Threshold = &t
	}
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &r.Details); err != nil {
			return nil, fmt.Errorf("decode details of result %d: %w", r.ID, err)
		}
	}
	return &r, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func encodeJSON(v interface{}) (sql.NullString, error) {
	switch m := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case map[string]interface{}:
		if len(m) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
