package store

import (
	"context"
	"database/sql"
	"fmt"

	"spinloop-backend/internal/models"
)

// EnsurePlaylist inserts a Playlist row for (station, type) if one doesn't
// exist yet; either way it returns the current row.
func (s *Store) EnsurePlaylist(ctx context.Context, station int64, typ models.PlaylistType) (*models.Playlist, error) {
	_, err := s.Exec(ctx, `
		INSERT INTO playlists (station, type, spotify_uri)
		VALUES ($1, $2, NULL)
		ON CONFLICT (station, type) DO NOTHING
	`, station, typ)
	if err != nil {
		return nil, fmt.Errorf("ensure playlist: %w", err)
	}
	return s.GetPlaylist(ctx, station, typ)
}

func (s *Store) GetPlaylist(ctx context.Context, station int64, typ models.PlaylistType) (*models.Playlist, error) {
	row := s.QueryRow(ctx, `
		SELECT id, station, type, spotify_uri FROM playlists WHERE station = $1 AND type = $2
	`, station, typ)
	var pl models.Playlist
	if err := row.Scan(&pl.ID, &pl.Station, &pl.Type, &pl.SpotifyURI); err != nil {
		return nil, fmt.Errorf("get playlist: %w", err)
	}
	return &pl, nil
}

// LockPlaylistForUpdate row-locks the Playlist so concurrent reconciler runs
// can't both decide to create the remote playlist. Must be called inside a
// transaction (see Store.Transact).
func (s *Store) LockPlaylistForUpdate(ctx context.Context, id int64) (*models.Playlist, error) {
	row := s.QueryRow(ctx, `
		SELECT id, station, type, spotify_uri FROM playlists WHERE id = $1 FOR UPDATE
	`, id)
	var pl models.Playlist
	if err := row.Scan(&pl.ID, &pl.Station, &pl.Type, &pl.SpotifyURI); err != nil {
		return nil, fmt.Errorf("lock playlist %d: %w", id, err)
	}
	return &pl, nil
}

// SetPlaylistURI stores the remote playlist URI. Callers must ensure they
// only do this once (spotify_uri is monotonic: null -> set, never cleared).
func (s *Store) SetPlaylistURI(ctx context.Context, id int64, uri string) error {
	_, err := s.Exec(ctx, `UPDATE playlists SET spotify_uri = $1 WHERE id = $2`, uri, id)
	if err != nil {
		return fmt.Errorf("set playlist %d uri: %w", id, err)
	}
	return nil
}

// TopPlayed computes the top-N Spotify URIs for a station over the trailing
// window, ordered by play count desc then most-recent-play desc, per
// spec.md §4.6/§8 property 6. Songs with no spotify_uri are skipped — they
// can't be written into a Spotify playlist.
func (s *Store) TopPlayed(ctx context.Context, station int64, days, limit int) ([]string, error) {
	if limit > 100 {
		limit = 100
	}
	rows, err := s.Query(ctx, `
		SELECT s.spotify_uri
		FROM plays p
		JOIN songs s ON s.id = p.song
		WHERE p.station = $1
		  AND p.at > now() - ($2 || ' days')::interval
		  AND s.spotify_uri IS NOT NULL
		GROUP BY s.id, s.spotify_uri
		ORDER BY count(p.id) DESC, max(p.at) DESC
		LIMIT $3
	`, station, days, limit)
	if err != nil {
		return nil, fmt.Errorf("top played for station %d: %w", station, err)
	}
	defer rows.Close()

	var uris []string
	for rows.Next() {
		var uri sql.NullString
		if err := rows.Scan(&uri); err != nil {
			return nil, fmt.Errorf("scan top played row: %w", err)
		}
		if uri.Valid {
			uris = append(uris, uri.String)
		}
	}
	return uris, rows.Err()
}
