package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"msp-toolkit/internal/model"
)

// ClientStore persists clients.
type ClientStore struct {
	db *sql.DB
}

// NewClientStore creates a client store over db.
func NewClientStore(db *sql.DB) *ClientStore {
	return &ClientStore{db: db}
}

// Create inserts c. A duplicate id yields *model.AlreadyExistsError.
func (s *ClientStore) Create(ctx context.Context, c *model.Client) error {
	metadata, err := encodeJSON(c.Metadata)
	if err != nil {
		return &model.StorageError{Op: "encode client metadata", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO clients
		(id, name, contact_email, tier, status, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.ContactEmail, string(c.Tier), string(c.Status), metadata,
		c.CreatedAt.UTC().UnixNano(), c.UpdatedAt.UTC().UnixNano())
	if err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
			return &model.AlreadyExistsError{Resource: model.ResourceClient, ID: c.ID}
		}
		return &model.StorageError{Op: "insert client", Err: err}
	}
	return nil
}

// Get returns the client with id or *model.NotFoundError.
func (s *ClientStore) Get(ctx context.Context, id string) (*model.Client, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, contact_email, tier, status, metadata, created_at, updated_at
		FROM clients WHERE id = ?`, id)

	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NewClientNotFound(id)
	}
	if err != nil {
		return nil, &model.StorageError{Op: "get client", Err: err}
	}
	return c, nil
}

// Exists reports whether a client with id is stored.
func (s *ClientStore) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM clients WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &model.StorageError{Op: "check client", Err: err}
	}
	return true, nil
}

// List returns the clients matching filter ordered by id.
func (s *ClientStore) List(ctx context.Context, filter model.ClientFilter) ([]*model.Client, error) {
	query := `SELECT id, name, contact_email, tier, status, metadata, created_at, updated_at FROM clients`
	var (
		conds []string
		args  []interface{}
	)
	if filter.Tier != "" {
		conds = append(conds, "tier = ?")
		args = append(args, string(filter.Tier))
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Search != "" {
		conds = append(conds, "(LOWER(id) LIKE ? OR LOWER(name) LIKE ?)")
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &model.StorageError{Op: "list clients", Err: err}
	}
	defer rows.Close()

	clients := make([]*model.Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, &model.StorageError{Op: "scan client", Err: err}
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StorageError{Op: "iterate clients", Err: err}
	}
	return clients, nil
}

// Update overwrites the mutable columns of c.
func (s *ClientStore) Update(ctx context.Context, c *model.Client) error {
	metadata, err := encodeJSON(c.Metadata)
	if err != nil {
		return &model.StorageError{Op: "encode client metadata", Err: err}
	}

	res, err := s.db.ExecContext(ctx, `UPDATE clients
		SET name = ?, contact_email = ?, tier = ?, status = ?, metadata = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.ContactEmail, string(c.Tier), string(c.Status), metadata, c.UpdatedAt.UTC().UnixNano(), c.ID)
	if err != nil {
		return &model.StorageError{Op: "update client", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewClientNotFound(c.ID)
	}
	return nil
}

// Delete removes the client and, through the foreign key, its devices.
func (s *ClientStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return &model.StorageError{Op: "delete client", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NewClientNotFound(id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row rowScanner) (*model.Client, error) {
	var (
		c                model.Client
		tier, status     string
		metadata         sql.NullString
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.ContactEmail, &tier, &status, &metadata, &created, &updated); err != nil {
		return nil, err
	}
	c.Tier = model.ClientTier(tier)
	c.Status = model.ClientStatus(status)
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &c.Metadata); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == code
	}
	return false
}
