package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"spinloop-backend/internal/config"
	"spinloop-backend/internal/logging"
	"spinloop-backend/internal/models"
	"spinloop-backend/internal/playlist"
	"spinloop-backend/internal/spotify"
	"spinloop-backend/internal/store"
	"spinloop-backend/internal/tokencache"
)

func newUpdatePlaylistsCmd(stationsPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "update-playlists [STATION_KEY]",
		Short: "Run the playlist reconciler once for one station or all configured stations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var only string
			if len(args) == 1 {
				only = args[0]
			}
			return runUpdatePlaylists(*stationsPath, *debug, only)
		},
	}
}

func runUpdatePlaylists(stationsPath string, debug bool, only string) error {
	log := logging.New(debug)
	ctx := context.Background()

	cfg, err := config.Load(stationsPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.Database.ConnString, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	tokens := tokencache.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURL, st, log)
	if err := tokens.Seed(ctx, cfg.Spotify.TokenSeed); err != nil {
		return fmt.Errorf("seed token cache: %w", err)
	}

	auth := spotify.Authenticator(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
	})
	spotifyClient := spotify.New(ctx, auth, tokens)
	reconciler := playlist.New(st, spotifyClient, log)

	writerCtx, cancelWriter := context.WithCancel(ctx)
	writerDone := make(chan error, 1)
	go func() { writerDone <- tokens.RunWriter(writerCtx) }()

	var reconcileErr error
	for _, sc := range cfg.Stations {
		if only != "" && sc.Key != only {
			continue
		}

		row, err := st.UpsertStation(ctx, sc.Key, sc.Name, sc.URL)
		if err != nil {
			reconcileErr = fmt.Errorf("upsert station %s: %w", sc.Key, err)
			break
		}

		for _, plCfg := range sc.Playlists {
			if plCfg.Type == "" {
				plCfg.Type = models.PlaylistTop
			}
			if err := reconciler.Reconcile(ctx, row, plCfg); err != nil {
				reconcileErr = err
				break
			}
		}
		if reconcileErr != nil {
			break
		}
	}

	cancelWriter()
	<-writerDone

	return reconcileErr
}
