package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spinloop-backend/internal/models"
)

// InsertPending records a new raw observation. Called by the station
// monitor in its own transaction, per spec.md §4.3.
func (s *Store) InsertPending(ctx context.Context, station int64, artist, title string, seenAt time.Time) error {
	_, err := s.Exec(ctx, `
		INSERT INTO pending (station, artist, title, seen_at, picked_at)
		VALUES ($1, $2, $3, $4, NULL)
	`, station, artist, title, seenAt)
	if err != nil {
		return fmt.Errorf("insert pending: %w", err)
	}
	return nil
}

// PickCandidate returns the oldest Pending row whose lease is free or
// expired (picked_at IS NULL OR picked_at <= now()-leaseTTL), ordered by
// seen_at ascending. Returns (nil, nil) if there is none.
func (s *Store) PickCandidate(ctx context.Context, leaseTTL time.Duration) (*models.Pending, error) {
	row := s.QueryRow(ctx, `
		SELECT id, station, artist, title, seen_at, picked_at
		FROM pending
		WHERE picked_at IS NULL OR picked_at <= now() - $1::interval
		ORDER BY seen_at ASC
		LIMIT 1
	`, leaseTTL.String())

	var p models.Pending
	if err := row.Scan(&p.ID, &p.Station, &p.Artist, &p.Title, &p.SeenAt, &p.PickedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("pick pending candidate: %w", err)
	}
	return &p, nil
}

// ClaimPending performs the lease-claiming compare-and-swap: it stamps
// picked_at to now() only if the row's current picked_at still matches what
// the caller observed when it picked the row. A rowsAffected of 0 means
// another worker raced us for this row.
func (s *Store) ClaimPending(ctx context.Context, id int64, observedPickedAt sql.NullTime) (bool, error) {
	var res sql.Result
	var err error
	if observedPickedAt.Valid {
		res, err = s.Exec(ctx, `
			UPDATE pending SET picked_at = now()
			WHERE id = $1 AND picked_at = $2
		`, id, observedPickedAt.Time)
	} else {
		res, err = s.Exec(ctx, `
			UPDATE pending SET picked_at = now()
			WHERE id = $1 AND picked_at IS NULL
		`, id)
	}
	if err != nil {
		return false, fmt.Errorf("claim pending %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim pending %d rows affected: %w", id, err)
	}
	return n == 1, nil
}

// DeletePending removes a Pending row, normally as the last step of
// committing (or declining to commit) its resolution.
func (s *Store) DeletePending(ctx context.Context, id int64) error {
	_, err := s.Exec(ctx, `DELETE FROM pending WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete pending %d: %w", id, err)
	}
	return nil
}
