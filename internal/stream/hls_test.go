package stream

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestSlidingWindowDedupesWithinCapacity(t *testing.T) {
	w := newSlidingWindow(3)

	if w.SeenOrAdd("a") {
		t.Fatal("a: expected not seen on first add")
	}
	if w.SeenOrAdd("b") {
		t.Fatal("b: expected not seen on first add")
	}
	if !w.SeenOrAdd("a") {
		t.Fatal("a: expected seen on second add within window")
	}
}

func TestSlidingWindowEvictsOldestPastCapacity(t *testing.T) {
	w := newSlidingWindow(2)

	w.SeenOrAdd("a")
	w.SeenOrAdd("b")
	w.SeenOrAdd("c") // evicts "a"

	if w.SeenOrAdd("a") {
		t.Fatal("a: expected not seen again, should have been evicted")
	}
	if !w.SeenOrAdd("c") {
		t.Fatal("c: expected still within window")
	}
}

func TestParseExtinfQuotedAttrsWithEscapedQuote(t *testing.T) {
	attrs := parseExtinf(`10.0,title="Foo \"Bar\" Baz",artist="Some Artist"`)

	if got, want := attrs["title"], `Foo "Bar" Baz`; got != want {
		t.Fatalf("title = %q, want %q", got, want)
	}
	if got, want := attrs["artist"], "Some Artist"; got != want {
		t.Fatalf("artist = %q, want %q", got, want)
	}
}

func TestParseExtinfUnquotedTrailingAttr(t *testing.T) {
	attrs := parseExtinf(`10.0,title=NoQuotes`)

	if got, want := attrs["title"], "NoQuotes"; got != want {
		t.Fatalf("title = %q, want %q", got, want)
	}
}

func TestParseExtinfNoAttrsReturnsEmptyMap(t *testing.T) {
	attrs := parseExtinf("10.0")
	if len(attrs) != 0 {
		t.Fatalf("expected no attrs, got %v", attrs)
	}
}

func TestResolveURLAbsoluteRefPassesThrough(t *testing.T) {
	got := resolveURL("https://example.com/live/base.m3u8", "https://cdn.example.com/seg.ts")
	if got != "https://cdn.example.com/seg.ts" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveURLRelativeRefJoinsAgainstBase(t *testing.T) {
	got := resolveURL("https://example.com/live/base.m3u8", "seg1.ts")
	if got != "https://example.com/live/seg1.ts" {
		t.Fatalf("got %q", got)
	}
}

// TestHLSRunPropagatesNonFormatFirstProbeErrorUnchanged exercises a real
// first-probe transport failure (connection refused) and confirms it is
// never reclassified as a FormatError — that would make the dispatcher
// permanently skip HLS for this station instead of surfacing the transient
// failure.
func TestHLSRunPropagatesNonFormatFirstProbeErrorUnchanged(t *testing.T) {
	srv := httptest.NewServer(nil)
	deadURL := srv.URL
	srv.Close() // connections to this address are now refused

	p := NewHLSParser()
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

func TestSplitLinesHandlesLongLines(t *testing.T) {
	// the scanner buffer must be large enough for an oversized single line
	// (e.g. a playlist tag with a very long attribute value).
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	body := "#EXTM3U\n" + string(long) + "\n#EXT-X-ENDLIST"

	lines := splitLines(body)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if len(lines[1]) != 2000 {
		t.Fatalf("long line truncated to %d bytes", len(lines[1]))
	}
}
