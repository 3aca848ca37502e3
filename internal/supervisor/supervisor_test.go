package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingRunnable struct {
	runs atomic.Int32
	err  error
}

func (r *countingRunnable) Run(ctx context.Context) error {
	r.runs.Add(1)
	return r.err
}

func TestSuperviseOneStopsOnContextCancelWithoutWaitingOutBackoff(t *testing.T) {
	r := &countingRunnable{err: errors.New("transient")}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- superviseOne(ctx, zerolog.Nop(), "station-a", r) }()

	// Give the first Run a moment to execute, then cancel well before the
	// 10s restart backoff would otherwise elapse.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancellation, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("superviseOne did not return promptly after ctx cancellation")
	}

	if r.runs.Load() < 1 {
		t.Fatal("expected monitor.Run to have been invoked at least once")
	}
}

func TestSupervisePropagatesPendingWorkerFailure(t *testing.T) {
	boom := errors.New("pending worker boom")
	worker := &countingRunnable{err: boom}

	monitor := &countingRunnable{err: nil}
	monitors := map[string]Runnable{"station-a": monitor}

	err := Supervise(context.Background(), zerolog.Nop(), worker, monitors)
	if !errors.Is(err, boom) {
		t.Fatalf("expected pending worker's error to propagate, got %v", err)
	}
}
