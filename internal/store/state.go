package store

import (
	"context"
	"database/sql"
	"fmt"

	"spinloop-backend/internal/models"
)

// GetState reads a State row, returning ("", false, nil) if absent.
func (s *Store) GetState(ctx context.Context, key models.StateKey) (string, bool, error) {
	row := s.QueryRow(ctx, `SELECT value FROM state WHERE key = $1`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get state %q: %w", key, err)
	}
	return value, true, nil
}

// LockStateForUpdate row-locks a State row for the duration of the
// enclosing transaction, inserting an empty placeholder row first if one
// doesn't exist yet so the lock has something to hold. Used by the token
// cache's writer task (C7) to serialise concurrent token upserts.
func (s *Store) LockStateForUpdate(ctx context.Context, key models.StateKey) error {
	_, err := s.Exec(ctx, `
		INSERT INTO state (key, value) VALUES ($1, '')
		ON CONFLICT (key) DO NOTHING
	`, key)
	if err != nil {
		return fmt.Errorf("seed state row %q: %w", key, err)
	}

	_, err = s.Exec(ctx, `SELECT value FROM state WHERE key = $1 FOR UPDATE`, key)
	if err != nil {
		return fmt.Errorf("lock state %q: %w", key, err)
	}
	return nil
}

// UpsertState writes a State row's value, overwriting any prior value.
func (s *Store) UpsertState(ctx context.Context, key models.StateKey, value string) error {
	_, err := s.Exec(ctx, `
		INSERT INTO state (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert state %q: %w", key, err)
	}
	return nil
}
