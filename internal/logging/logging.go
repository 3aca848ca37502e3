// Package logging builds the process-wide zerolog logger. The teacher logs
// via the standard library's log package; this swaps in zerolog for
// structured, leveled output since every long-running component here
// (station monitors, the pending worker, the token cache writer) benefits
// from fields (station key, pending id) a plain log.Printf can't carry.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console-friendly logger. debug enables Debug-level output;
// otherwise the floor is Info.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
