package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"spinloop-backend/internal/models"
)

func (s *Store) GetSongByKey(ctx context.Context, key int64) (*models.Song, error) {
	return s.scanSong(s.QueryRow(ctx, `
		SELECT id, key, artist, title, spotify_uri FROM songs WHERE key = $1
	`, key))
}

func (s *Store) GetSongBySpotifyURI(ctx context.Context, uri string) (*models.Song, error) {
	return s.scanSong(s.QueryRow(ctx, `
		SELECT id, key, artist, title, spotify_uri FROM songs WHERE spotify_uri = $1
	`, uri))
}

func (s *Store) scanSong(row *sql.Row) (*models.Song, error) {
	var song models.Song
	if err := row.Scan(&song.ID, &song.Key, &song.Artist, &song.Title, &song.SpotifyURI); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan song: %w", err)
	}
	return &song, nil
}

// InsertSong creates a new canonical identity. Songs are never mutated after
// insert: re-resolution never updates an existing row, it only reuses it or
// inserts a fresh one.
func (s *Store) InsertSong(ctx context.Context, key int64, artist, title, spotifyURI string) (*models.Song, error) {
	row := s.QueryRow(ctx, `
		INSERT INTO songs (key, artist, title, spotify_uri)
		VALUES ($1, $2, $3, $4)
		RETURNING id, key, artist, title, spotify_uri
	`, key, artist, title, spotifyURI)

	song, err := s.scanSong(row)
	if err != nil {
		return nil, fmt.Errorf("insert song: %w", err)
	}
	return song, nil
}

// InsertPlay appends a play record. Plays are never updated or deleted.
func (s *Store) InsertPlay(ctx context.Context, station, song int64, at time.Time) error {
	_, err := s.Exec(ctx, `
		INSERT INTO plays (station, song, at) VALUES ($1, $2, $3)
	`, station, song, at)
	if err != nil {
		return fmt.Errorf("insert play: %w", err)
	}
	return nil
}
