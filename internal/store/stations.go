package store

import (
	"context"
	"fmt"

	"spinloop-backend/internal/models"
)

// UpsertStation overwrites name/url for an existing key, or inserts a new
// row, and returns the row's assigned ID. Grounded on the
// INSERT ... ON CONFLICT DO UPDATE idiom the splitter repo's db.go uses for
// its own upserts.
func (s *Store) UpsertStation(ctx context.Context, key, name, url string) (*models.Station, error) {
	row := s.QueryRow(ctx, `
		INSERT INTO stations (key, name, url)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			name = EXCLUDED.name,
			url  = EXCLUDED.url
		RETURNING id, key, name, url
	`, key, name, url)

	var st models.Station
	if err := row.Scan(&st.ID, &st.Key, &st.Name, &st.URL); err != nil {
		return nil, fmt.Errorf("upsert station %q: %w", key, err)
	}
	return &st, nil
}

func (s *Store) GetStation(ctx context.Context, id int64) (*models.Station, error) {
	row := s.QueryRow(ctx, `SELECT id, key, name, url FROM stations WHERE id = $1`, id)
	var st models.Station
	if err := row.Scan(&st.ID, &st.Key, &st.Name, &st.URL); err != nil {
		return nil, fmt.Errorf("get station %d: %w", id, err)
	}
	return &st, nil
}
