package store

import "context"

// schema is applied idempotently at startup. There is no migration
// framework (schema migrations are an explicit non-goal) — this mirrors the
// splitter repo's InitDB, which runs CREATE TABLE IF NOT EXISTS directly
// against the connection it just opened.
const schema = `
CREATE TABLE IF NOT EXISTS stations (
	id   BIGSERIAL PRIMARY KEY,
	key  TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	url  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS pending (
	id         BIGSERIAL PRIMARY KEY,
	station    BIGINT NOT NULL REFERENCES stations(id),
	artist     TEXT NOT NULL,
	title      TEXT NOT NULL,
	seen_at    TIMESTAMPTZ NOT NULL,
	picked_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_pending_seen_at ON pending(seen_at);
CREATE INDEX IF NOT EXISTS idx_pending_picked_at ON pending(picked_at);

CREATE TABLE IF NOT EXISTS songs (
	id          BIGSERIAL PRIMARY KEY,
	key         BIGINT NOT NULL UNIQUE,
	artist      TEXT NOT NULL,
	title       TEXT NOT NULL,
	spotify_uri TEXT UNIQUE,
	UNIQUE (artist, title)
);

CREATE TABLE IF NOT EXISTS plays (
	id      BIGSERIAL PRIMARY KEY,
	station BIGINT NOT NULL REFERENCES stations(id),
	song    BIGINT NOT NULL REFERENCES songs(id),
	at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_plays_station_at ON plays(station, at);

CREATE TABLE IF NOT EXISTS playlists (
	id          BIGSERIAL PRIMARY KEY,
	station     BIGINT NOT NULL REFERENCES stations(id),
	type        TEXT NOT NULL,
	spotify_uri TEXT UNIQUE,
	UNIQUE (station, type)
);

CREATE TABLE IF NOT EXISTS state (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// EnsureSchema creates every table the service needs if it isn't already
// there. Safe to call on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
