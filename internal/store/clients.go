package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/your-org/gateway/internal/domain"
	gwerrors "github.com/your-org/gateway/pkg/errors"
)

const clientColumns = "id, client_id, client_secret_hash, description, is_enabled, last_used_at, created_at, updated_at"

func scanClient(row interface{ Scan(...any) error }) (*domain.ClientCredential, error) {
	var c domain.ClientCredential
	var enabled int
	var lastUsed sql.NullTime
	if err := row.Scan(&c.ID, &c.ClientID, &c.ClientSecretHash, &c.Description,
		&enabled, &lastUsed, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.IsEnabled = enabled != 0
	if lastUsed.Valid {
		t := lastUsed.Time
		c.LastUsedAt = &t
	}
	return &c, nil
}

// GetClient returns the client credential with the given client id.
func (s *Store) GetClient(ctx context.Context, clientID string) (*domain.ClientCredential, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+clientColumns+" FROM client_credentials WHERE client_id = ?", clientID)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, gwerrors.ErrClientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return c, nil
}

// ListClients returns all client credentials.
func (s *Store) ListClients(ctx context.Context) ([]*domain.ClientCredential, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+clientColumns+" FROM client_credentials ORDER BY client_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*domain.ClientCredential
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// CreateClient inserts a new client credential.
func (s *Store) CreateClient(ctx context.Context, c *domain.ClientCredential) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO client_credentials (client_id, client_secret_hash, description, is_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ClientID, c.ClientSecretHash, c.Description, boolToInt(c.IsEnabled), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return gwerrors.ErrClientExists
		}
		return fmt.Errorf("failed to create client: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

// UpdateClient updates mutable client fields by client id.
func (s *Store) UpdateClient(ctx context.Context, c *domain.ClientCredential) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE client_credentials SET client_secret_hash = ?, description = ?, is_enabled = ?, updated_at = ?
		 WHERE client_id = ?`,
		c.ClientSecretHash, c.Description, boolToInt(c.IsEnabled), now, c.ClientID)
	if err != nil {
		return fmt.Errorf("failed to update client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gwerrors.ErrClientNotFound
	}
	c.UpdatedAt = now
	return nil
}

// TouchClientUsed records a successful credential check.
func (s *Store) TouchClientUsed(ctx context.Context, clientID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE client_credentials SET last_used_at = ? WHERE client_id = ?", at.UTC(), clientID)
	return err
}

// DeleteClient removes a client credential.
func (s *Store) DeleteClient(ctx context.Context, clientID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM client_credentials WHERE client_id = ?", clientID)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return gwerrors.ErrClientNotFound
	}
	return nil
}
