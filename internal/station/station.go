// Package station implements the per-station monitor (C3): one long-lived
// task per configured station that upserts the Station row, subscribes to
// the stream dispatcher, and records a Pending row whenever the announced
// song changes. Grounded on the teacher's own ctx-threaded, one-goroutine-
// per-resource style (services/tracking.go used a single mutation path per
// incoming event; here that's generalised to one task per station).
package station

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"spinloop-backend/internal/models"
	"spinloop-backend/internal/store"
	"spinloop-backend/internal/stream"
)

// Monitor runs one station's lifecycle: upsert, subscribe, diff, record.
type Monitor struct {
	cfg   models.StationConfig
	store *store.Store
	log   zerolog.Logger
}

func New(cfg models.StationConfig, st *store.Store, log zerolog.Logger) *Monitor {
	return &Monitor{cfg: cfg, store: st, log: log.With().Str("station", cfg.Key).Logger()}
}

// Run upserts the Station row, then subscribes to the dispatcher and
// records a Pending row whenever the observed (artist, title) pair differs
// from the previous one.
// It returns when ctx is cancelled, or on the first error — the supervisor
// is responsible for restarting it, per spec: duplicate Pending rows from a
// restart are harmless, the resolver collapses them.
func (m *Monitor) Run(ctx context.Context) error {
	st, err := m.store.UpsertStation(ctx, m.cfg.Key, m.cfg.Name, m.cfg.URL)
	if err != nil {
		return fmt.Errorf("station %s: upsert: %w", m.cfg.Key, err)
	}

	songs := make(chan stream.SongInfo, 1)
	dispatchErr := make(chan error, 1)

	go func() {
		dispatchErr <- stream.Dispatch(ctx, m.cfg.URL, songs)
	}()

	var lastArtist, lastTitle string

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-dispatchErr:
			if err != nil {
				return fmt.Errorf("station %s: dispatcher: %w", m.cfg.Key, err)
			}
			return nil

		case info := <-songs:
			if !info.HasSong() {
				continue
			}
			if info.Artist == lastArtist && info.Title == lastTitle {
				continue
			}

			seenAt := time.Now()
			correlationID := uuid.NewString()
			err := m.store.Transact(ctx, func(ctx context.Context) error {
				return m.store.InsertPending(ctx, st.ID, info.Artist, info.Title, seenAt)
			})
			if err != nil {
				return fmt.Errorf("station %s: insert pending: %w", m.cfg.Key, err)
			}
			m.log.Debug().Str("correlation_id", correlationID).Str("artist", info.Artist).Str("title", info.Title).Msg("recorded pending observation")

			lastArtist, lastTitle = info.Artist, info.Title
		}
	}
}
