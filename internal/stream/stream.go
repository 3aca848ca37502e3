// Package stream implements the now-playing parsers (C1) and the dispatcher
// that picks one for a given station URL (C2). A Parser turns a station's
// stream URL into an unbounded sequence of SongInfo values delivered on a
// channel; it owns its own polling loop and stops when its context is
// cancelled.
package stream

import (
	"context"
	"fmt"
)

// SongInfo is one now-playing observation. Title is always present when a
// parser emits at all; Artist and File are optional depending on source.
type SongInfo struct {
	Title  string
	Artist string
	File   string
}

// HasSong reports whether both Artist and Title are populated — the only
// shape the station monitor (C3) acts on.
func (s SongInfo) HasSong() bool {
	return s.Artist != "" && s.Title != ""
}

// FormatError means a parser determined, on its first probe, that the
// stream at this URL is not in the format it understands. It is not raised
// for transient I/O failures after a parser has already started emitting.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "stream: format error: " + e.Reason }

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// Parser reads song info from url, writing to out until ctx is cancelled or
// a non-FormatError failure occurs. It must return a *FormatError from the
// very first probe if the stream isn't in its format, never later.
type Parser interface {
	Run(ctx context.Context, url string, out chan<- SongInfo) error
}
