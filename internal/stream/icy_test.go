package stream

import (
	"context"
	"errors"
	"testing"
)

func TestSplitStreamTitleSplitsOnFirstDashSeparator(t *testing.T) {
	got := splitStreamTitle("Artist Name - Song Title - Live")
	want := SongInfo{Artist: "Artist Name", Title: "Song Title - Live"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSplitStreamTitleWithNoSeparatorIsTitleOnly(t *testing.T) {
	got := splitStreamTitle("Just A Title")
	want := SongInfo{Title: "Just A Title"}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

// TestICYRunPropagatesNonFormatFirstProbeErrorUnchanged exercises a real
// first-probe failure that isn't a FormatError (ffprobe missing, or erroring
// out on a bogus URL — either way a plain exec error, never unmarshal
// failure) and confirms Run propagates it as a transport error rather than
// silently reclassifying it as "wrong format", which would make the
// dispatcher permanently skip this parser instead of surfacing the failure.
func TestICYRunPropagatesNonFormatFirstProbeErrorUnchanged(t *testing.T) {
	p := NewICYParser()
	out := make(chan SongInfo, 1)

	err := p.Run(context.Background(), "http://example.invalid/stream", out)
	if err == nil {
		t.Fatal("expected an error probing a bogus URL")
	}

	var fe *FormatError
	if errors.As(err, &fe) {
		t.Fatalf("expected a plain transport error, got FormatError: %v", fe)
	}
}
