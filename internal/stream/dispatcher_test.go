package stream

import (
	"context"
	"errors"
	"testing"
)

type fakeParser struct {
	err error
}

func (f *fakeParser) Run(ctx context.Context, url string, out chan<- SongInfo) error {
	return f.err
}

func TestDispatchFallsThroughFormatErrorsInOrder(t *testing.T) {
	winner := &fakeParser{err: nil}
	parsers := []Parser{
		&fakeParser{err: &FormatError{Reason: "not hls"}},
		&fakeParser{err: &FormatError{Reason: "not icy"}},
		winner,
	}

	err := dispatch(context.Background(), "http://example.com/stream", make(chan SongInfo, 1), parsers)
	if err != nil {
		t.Fatalf("expected winning parser's nil return, got %v", err)
	}
}

func TestDispatchPropagatesNonFormatErrorImmediately(t *testing.T) {
	boom := errors.New("boom")
	parsers := []Parser{
		&fakeParser{err: boom},
		&fakeParser{err: nil}, // must never run
	}

	err := dispatch(context.Background(), "http://example.com/stream", make(chan SongInfo, 1), parsers)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to propagate, got %v", err)
	}
}

func TestDispatchReturnsFormatErrorWhenAllParsersReject(t *testing.T) {
	parsers := []Parser{
		&fakeParser{err: &FormatError{Reason: "not hls"}},
		&fakeParser{err: &FormatError{Reason: "not icy"}},
		&fakeParser{err: &FormatError{Reason: "not json"}},
	}

	err := dispatch(context.Background(), "http://example.com/stream", make(chan SongInfo, 1), parsers)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FormatError, got %v", err)
	}
}
