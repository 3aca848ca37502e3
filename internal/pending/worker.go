// Package pending implements the pending worker (C4): the lease-based
// single-table job queue that resolves raw (artist, title) observations
// into canonical Songs and Play rows, via the fingerprint-or-Spotify-search
// pipeline. Structured after the channel-driven job loop in
// anyuan-chen-splitter/server/worker/manager.go, adapted from an in-memory
// channel queue to a polled SQL lease (the table itself is the queue; no
// in-process channel of work items is needed since only one worker per
// process claims rows, and the lease protocol stays correct even if an
// operator runs two).
package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"spinloop-backend/internal/canon"
	"spinloop-backend/internal/models"
	"spinloop-backend/internal/store"
)

const (
	leaseTTL = 5 * time.Minute
	idlePoll = 180 * time.Second
)

// pqUniqueViolation is the Postgres SQLSTATE for a unique constraint
// failure, raised when two workers race to insert the same spotify_uri.
const pqUniqueViolation = "23505"

// errNoSpotifyMatch distinguishes a Spotify search that legitimately
// returned zero results from an actual lookup/transport failure: both must
// still warn (spec's "Spotify search miss: warn, no Song/Play inserted"),
// but only this one does so without having actually failed anything.
var errNoSpotifyMatch = errors.New("no spotify match for search query")

// SpotifySearcher is the narrow surface the worker needs from the Spotify
// client: resolve a free-text query to the best-match track's artist,
// title and URI, or ("", "", "", nil) if nothing matched.
type SpotifySearcher interface {
	SearchTrack(ctx context.Context, query string) (artist, title, uri string, err error)
}

// StationConfigLookup resolves a Station's configured filters by its
// numeric row ID, since Pending rows only carry that ID.
type StationConfigLookup func(stationID int64) (models.StationFilters, bool)

// Worker runs the pick/claim/resolve/commit loop.
type Worker struct {
	store    *store.Store
	spotify  SpotifySearcher
	configOf StationConfigLookup
	log      zerolog.Logger
}

func New(st *store.Store, spotify SpotifySearcher, configOf StationConfigLookup, log zerolog.Logger) *Worker {
	return &Worker{store: st, spotify: spotify, configOf: configOf, log: log}
}

// Run loops until ctx is cancelled. Any resolve/commit error for a single
// candidate is logged and the loop continues — the lease simply expires and
// another pick will retry it, per spec's failure policy.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		candidate, err := w.store.PickCandidate(ctx, leaseTTL)
		if err != nil {
			return fmt.Errorf("pending worker: pick: %w", err)
		}
		if candidate == nil {
			if !sleep(ctx, idlePoll) {
				return ctx.Err()
			}
			continue
		}

		claimed, err := w.store.ClaimPending(ctx, candidate.ID, candidate.PickedAt)
		if err != nil {
			return fmt.Errorf("pending worker: claim %d: %w", candidate.ID, err)
		}
		if !claimed {
			continue
		}

		if err := w.resolve(ctx, candidate); err != nil {
			w.log.Warn().Err(err).Int64("pending_id", candidate.ID).Msg("failed to resolve pending candidate; lease will expire")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// resolve implements the filter/fingerprint/search/commit pipeline
// (spec.md §4.4 steps 1-5, Committing).
func (w *Worker) resolve(ctx context.Context, p *models.Pending) error {
	filters, _ := w.configOf(p.Station)

	if filters.Ignore != nil && filters.Ignore.MatchString(canon.SearchQuery(p.Artist, p.Title, nil)) {
		return w.store.Transact(ctx, func(ctx context.Context) error {
			return w.store.DeletePending(ctx, p.ID)
		})
	}

	normalised, key := canon.Fingerprint(p.Artist, p.Title, filters.Blank)
	query := canon.SearchQuery(p.Artist, p.Title, filters.Blank)

	song, err := w.resolveSong(ctx, query, key)
	if err != nil {
		if !errors.Is(err, errNoSpotifyMatch) {
			// A real lookup/transport failure: leave the row to its lease.
			return err
		}
		w.log.Warn().Err(err).Str("normalised", normalised).Msg("could not resolve song; committing with no play")
		song = nil
	}

	return w.store.Transact(ctx, func(ctx context.Context) error {
		if song != nil {
			if err := w.store.InsertPlay(ctx, p.Station, song.ID, p.SeenAt); err != nil {
				return err
			}
		}
		return w.store.DeletePending(ctx, p.ID)
	})
}

// resolveSong looks the fingerprint up first, then falls back to a Spotify
// search, reusing any Song a prior search already canonicalised under a
// different fingerprint (spec.md §4.4 step 4).
func (w *Worker) resolveSong(ctx context.Context, query string, key int64) (*models.Song, error) {
	song, err := w.store.GetSongByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("lookup song by key: %w", err)
	}
	if song != nil {
		return song, nil
	}

	artist, title, uri, err := w.spotify.SearchTrack(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}
	if uri == "" {
		return nil, errNoSpotifyMatch
	}

	song, err = w.store.GetSongBySpotifyURI(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("lookup song by spotify uri: %w", err)
	}
	if song != nil {
		return song, nil
	}

	var inserted *models.Song
	err = w.store.Transact(ctx, func(ctx context.Context) error {
		var txErr error
		inserted, txErr = w.store.InsertSong(ctx, key, artist, title, uri)
		return txErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			// Another worker resolved the same spotify_uri first; reuse its
			// row instead of surfacing a spurious failure.
			return w.store.GetSongBySpotifyURI(ctx, uri)
		}
		return nil, fmt.Errorf("insert song: %w", err)
	}
	return inserted, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
