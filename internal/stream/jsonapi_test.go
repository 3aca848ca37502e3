package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
)

// TestJSONAPIRunPropagatesNonFormatFirstProbeErrorUnchanged exercises a real
// first-probe transport failure (connection refused) and confirms it is
// never reclassified as a FormatError — that would make the dispatcher
// permanently skip JSON-API for this station instead of surfacing the
// transient failure.
func TestJSONAPIRunPropagatesNonFormatFirstProbeErrorUnchanged(t *testing.T) {
	srv := httptest.NewServer(nil)
	deadURL := srv.URL
	srv.Close() // connections to this address are now refused

	p := NewJSONAPIParser()
	out := make(chan SongInfo, 1)

	err := p.Run(context.Background(), deadURL, out)
	if err == nil {
		t.Fatal("expected a connection error")
	}

	var fe *FormatError
	if errors.As(err, &fe) {
		t.Fatalf("expected a plain transport error, got FormatError: %v", fe)
	}
}
