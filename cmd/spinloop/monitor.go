package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spinloop-backend/internal/config"
	"spinloop-backend/internal/logging"
	"spinloop-backend/internal/models"
	"spinloop-backend/internal/pending"
	"spinloop-backend/internal/spotify"
	"spinloop-backend/internal/station"
	"spinloop-backend/internal/store"
	"spinloop-backend/internal/supervisor"
	"spinloop-backend/internal/tokencache"
)

func newMonitorCmd(stationsPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run station monitors and the pending worker until killed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(*stationsPath, *debug)
		},
	}
}

func runMonitor(stationsPath string, debug bool) error {
	log := logging.New(debug)

	cfg, err := config.Load(stationsPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	// Upsert every station up front so Pending rows can be mapped back to
	// their configured filters by numeric ID before any monitor starts
	// producing them.
	filtersByStationID := make(map[int64]models.StationFilters, len(cfg.Stations))
	stationMonitors := make(map[string]supervisor.Runnable, len(cfg.Stations))

	for _, sc := range cfg.Stations {
		row, err := st.UpsertStation(ctx, sc.Key, sc.Name, sc.URL)
		if err != nil {
			return fmt.Errorf("upsert station %s: %w", sc.Key, err)
		}
		filtersByStationID[row.ID] = sc.Filters
		stationMonitors[sc.Key] = station.New(sc, st, log)
	}

	configOf := func(stationID int64) (models.StationFilters, bool) {
		filters, ok := filtersByStationID[stationID]
		return filters, ok
	}

	worker := pending.New(st, spotifyClient, configOf, log)

	writerCtx, cancelWriter := context.WithCancel(ctx)
	writerDone := make(chan error, 1)
	go func() { writerDone <- tokens.RunWriter(writerCtx) }()

	err = supervisor.Supervise(ctx, log, worker, stationMonitors)

	cancelWriter()
	<-writerDone

	return err
}
