package stream

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
)

// JSONAPIParser polls a generic now-playing JSON endpoint shaped like
// {"nowPlaying": [{"name": "...", "artist": "..."}]}. The catch-all parser
// for stations that expose neither HLS nor ICY metadata.
type JSONAPIParser struct {
	client       *resty.Client
	pollInterval time.Duration
}

func NewJSONAPIParser() *JSONAPIParser {
	return &JSONAPIParser{
		client:       resty.New().SetTimeout(15 * time.Second),
		pollInterval: 120 * time.Second,
	}
}

type nowPlayingResponse struct {
	NowPlaying []struct {
		Name   string `json:"name"`
		Artist string `json:"artist"`
	} `json:"nowPlaying"`
}

func (p *JSONAPIParser) fetch(ctx context.Context, url string) (nowPlayingResponse, error) {
	var parsed nowPlayingResponse
	resp, err := p.client.R().SetContext(ctx).SetResult(&parsed).Get(url)
	if err != nil {
		return parsed, err
	}
	if resp.IsError() {
		return parsed, formatErrorf("json-api: %s returned status %d", url, resp.StatusCode())
	}
	if len(parsed.NowPlaying) == 0 {
		return parsed, &FormatError{Reason: "json-api: response missing nowPlaying[0]"}
	}
	return parsed, nil
}

// Run implements Parser.
func (p *JSONAPIParser) Run(ctx context.Context, url string, out chan<- SongInfo) error {
	var lastArtist, lastTitle string
	firstProbe := true

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		parsed, err := p.fetch(ctx, url)
		if err != nil {
			var fe *FormatError
			if errors.As(err, &fe) {
				if firstProbe {
					return fe
				}
				return errors.New(fe.Reason)
			}
			return err
		}
		firstProbe = false

		entry := parsed.NowPlaying[0]
		if entry.Name != lastTitle || entry.Artist != lastArtist {
			lastTitle, lastArtist = entry.Name, entry.Artist
			select {
			case out <- SongInfo{Artist: entry.Artist, Title: entry.Name}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
