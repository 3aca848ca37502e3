// Package spotify wraps github.com/zmb3/spotify/v2 behind the narrow
// surface the reconciler and pending worker actually need: search, resolve
// the authorised user, create a playlist, and replace its contents. Shaped
// after the zmb3/spotify/v2 client wrapper in
// Enteee-DJAlgoRhythm/internal/spotify/client.go, trimmed to the
// read/search/playlist-write operations this system performs (no playback
// control, no recommendations).
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Client wraps an authenticated spotify.Client. It is constructed once per
// process from a token source backed by the token cache (C7); the
// underlying oauth2 transport refreshes access tokens transparently and
// reports new tokens back through that source.
type Client struct {
	api *spotify.Client
}

// Config holds the registered application's OAuth2 client credentials and
// callback URL, read from the process configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Authenticator builds the spotifyauth.Authenticator used both for the
// one-time authorise flow and for refreshing cached tokens.
func Authenticator(cfg Config) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithRedirectURL(cfg.RedirectURL),
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
		),
	)
}

// New builds a Client whose HTTP transport pulls tokens from src and writes
// refreshed ones back through it. src is ordinarily the token cache (C7),
// which implements oauth2.TokenSource.
func New(ctx context.Context, auth *spotifyauth.Authenticator, src oauth2.TokenSource) *Client {
	httpClient := oauth2.NewClient(ctx, src)
	return &Client{api: spotify.New(httpClient)}
}

// CurrentUser returns the Spotify user ID the cached token authorises.
// The reconciler needs this once, to create playlists under that account.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("spotify current user: %w", err)
	}
	return string(user.ID), nil
}

// SearchTrack resolves a free-text query to the single best-matching
// track's artist, title and URI, or ("", "", "", nil) if Spotify returned
// no results. Used by the pending worker (C4) after a fingerprint miss.
func (c *Client) SearchTrack(ctx context.Context, query string) (artist, title, uri string, err error) {
	results, err := c.api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return "", "", "", fmt.Errorf("spotify search %q: %w", query, err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return "", "", "", nil
	}

	track := results.Tracks.Tracks[0]
	if len(track.Artists) == 0 {
		return "", "", "", fmt.Errorf("spotify search %q: track %s has no artists", query, track.ID)
	}
	return track.Artists[0].Name, track.Name, string(track.URI), nil
}

// CreatePlaylist creates a new playlist under userID and returns its URI.
// Called at most once per (station, type) — callers must hold the
// playlist's row lock so two reconciler runs can't both create one.
func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string) (string, error) {
	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, false, false)
	if err != nil {
		return "", fmt.Errorf("spotify create playlist %q: %w", name, err)
	}
	return string(playlist.URI), nil
}

// ReplaceItems overwrites a playlist's entire track list in one call, per
// spec: the reconciler never diffs, it always replaces wholesale.
func (c *Client) ReplaceItems(ctx context.Context, playlistURI string, trackURIs []string) error {
	id, err := idFromURI(playlistURI)
	if err != nil {
		return err
	}

	ids := make([]spotify.ID, len(trackURIs))
	for i, uri := range trackURIs {
		trackID, err := idFromURI(uri)
		if err != nil {
			return err
		}
		ids[i] = trackID
	}

	// The Web API caps a single replace call at 100 items; the store layer
	// already enforces that cap on TopPlayed, so this never has to chunk.
	if _, err := c.api.ReplacePlaylistTracks(ctx, id, ids...); err != nil {
		return fmt.Errorf("spotify replace playlist %s items: %w", playlistURI, err)
	}
	return nil
}

// idFromURI extracts the bare Spotify ID from a "spotify:TYPE:ID" URI.
func idFromURI(uri string) (spotify.ID, error) {
	for i := len(uri) - 1; i >= 0; i-- {
		if uri[i] == ':' {
			return spotify.ID(uri[i+1:]), nil
		}
	}
	return "", fmt.Errorf("malformed spotify uri %q", uri)
}
