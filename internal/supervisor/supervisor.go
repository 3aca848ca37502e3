// Package supervisor fans out one goroutine per station monitor plus the
// pending worker, restarting a station monitor on transient failure (a
// fresh stream dispatch, a fresh DB transaction) rather than bringing the
// whole process down, while still propagating a genuinely fatal error (the
// pending worker failing) to the caller.
// The restart-with-backoff shape is grounded on darthnorse-streammon's
// Poller, which retries failed operations up to a bounded count on a fixed
// interval (internal/poller/poller.go's retryQueue); golang.org/x/sync's
// errgroup supplies the fan-out/fan-in and first-error propagation the
// teacher's own goroutines don't need (it only ever ran one thing at a
// time).
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RestartBackoff is how long to wait before restarting a station monitor
// that exited with a transient error.
const RestartBackoff = 10 * time.Second

// Runnable is anything the supervisor can run and restart on failure.
type Runnable interface {
	Run(ctx context.Context) error
}

// Supervise runs the pending worker and every station monitor concurrently.
// Station monitors are restarted indefinitely on error (duplicates their
// restart may produce are harmless — the pending worker's resolution
// collapses them); the pending worker is not restarted, since its failure
// is treated as fatal to the whole process. Supervise returns when ctx is
// cancelled, or immediately if the pending worker itself fails.
func Supervise(ctx context.Context, log zerolog.Logger, pendingWorker Runnable, stationMonitors map[string]Runnable) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pendingWorker.Run(ctx)
	})

	for key, monitor := range stationMonitors {
		key, monitor := key, monitor
		g.Go(func() error {
			return superviseOne(ctx, log, key, monitor)
		})
	}

	return g.Wait()
}

// superviseOne restarts monitor.Run indefinitely until ctx is cancelled.
func superviseOne(ctx context.Context, log zerolog.Logger, key string, monitor Runnable) error {
	for {
		err := monitor.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.Error().Err(err).Str("station", key).Msg("station monitor exited; restarting")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(RestartBackoff):
		}
	}
}
