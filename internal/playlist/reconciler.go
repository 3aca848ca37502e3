// Package playlist implements the playlist reconciler (C6): for a
// (station, PlaylistConfig) pair, ensures the remote Spotify playlist
// exists, then replaces its contents with the current top-played
// aggregate. Grounded on the row-lock-then-conditional-create pattern
// already used by Store.LockPlaylistForUpdate / LockStateForUpdate
// (internal/store), applied here at the reconciler level rather than the
// store level since the decision of what to create belongs to this
// package, not the datastore adapter.
package playlist

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"spinloop-backend/internal/models"
	"spinloop-backend/internal/store"
)

// SpotifyPlaylistClient is the narrow surface the reconciler needs from the
// Spotify client.
type SpotifyPlaylistClient interface {
	CurrentUser(ctx context.Context) (userID string, err error)
	CreatePlaylist(ctx context.Context, userID, name, description string) (uri string, err error)
	ReplaceItems(ctx context.Context, playlistURI string, trackURIs []string) error
}

type Reconciler struct {
	store   *store.Store
	spotify SpotifyPlaylistClient
	log     zerolog.Logger
}

func New(st *store.Store, spotify SpotifyPlaylistClient, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: st, spotify: spotify, log: log}
}

// Reconcile runs the full sequence for one station's one playlist config:
// ensure row, lazily create the remote playlist, compute the top-played
// aggregate, and replace the remote playlist's items wholesale.
func (r *Reconciler) Reconcile(ctx context.Context, st *models.Station, cfg models.PlaylistConfig) error {
	pl, err := r.store.EnsurePlaylist(ctx, st.ID, cfg.Type)
	if err != nil {
		return fmt.Errorf("reconcile %s/%s: ensure playlist: %w", st.Key, cfg.Type, err)
	}

	var uri string
	err = r.store.Transact(ctx, func(ctx context.Context) error {
		locked, err := r.store.LockPlaylistForUpdate(ctx, pl.ID)
		if err != nil {
			return err
		}
		if locked.SpotifyURI.Valid {
			uri = locked.SpotifyURI.String
			return nil
		}

		userID, err := r.spotify.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("current user: %w", err)
		}

		name := fmt.Sprintf("%s most played", st.Name)
		description := fmt.Sprintf(
			"The most played songs on %s for the last %d days. Not official. Might have mistakes.",
			st.Name, cfg.Days,
		)
		created, err := r.spotify.CreatePlaylist(ctx, userID, name, description)
		if err != nil {
			return fmt.Errorf("create playlist: %w", err)
		}

		if err := r.store.SetPlaylistURI(ctx, pl.ID, created); err != nil {
			return err
		}
		uri = created
		return nil
	})
	if err != nil {
		return fmt.Errorf("reconcile %s/%s: create: %w", st.Key, cfg.Type, err)
	}

	uris, err := r.store.TopPlayed(ctx, st.ID, cfg.Days, cfg.Limit)
	if err != nil {
		return fmt.Errorf("reconcile %s/%s: top played: %w", st.Key, cfg.Type, err)
	}

	if err := r.spotify.ReplaceItems(ctx, uri, uris); err != nil {
		return fmt.Errorf("reconcile %s/%s: replace items: %w", st.Key, cfg.Type, err)
	}

	r.log.Info().Str("station", st.Key).Str("playlist", string(cfg.Type)).Int("tracks", len(uris)).Msg("reconciled playlist")
	return nil
}
