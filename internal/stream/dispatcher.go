package stream

import (
	"context"
	"errors"
	"fmt"
)

// Dispatch tries parsers in the fixed order HLS, ICY, JSON-API against url,
// forwarding the first one that emits without a first-probe FormatError.
// It blocks for the lifetime of the winning parser (or until ctx is
// cancelled); callers run it in its own goroutine.
func Dispatch(ctx context.Context, url string, out chan<- SongInfo) error {
	return dispatch(ctx, url, out, []Parser{NewHLSParser(), NewICYParser(), NewJSONAPIParser()})
}

func dispatch(ctx context.Context, url string, out chan<- SongInfo, parsers []Parser) error {
	for _, p := range parsers {
		err := p.Run(ctx, url, out)

		var fe *FormatError
		if errors.As(err, &fe) {
			continue
		}
		// Either nil or the context's error (the winning parser stopped on
		// cancellation) or a non-format error: all propagate as-is, since a
		// parser only returns once it has either rejected the stream or
		// stopped running altogether.
		return err
	}

	return formatErrorf("No compatible parser found for %s", url)
}
