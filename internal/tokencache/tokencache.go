// Package tokencache implements C7: a process-wide oauth2.Token holder that
// is durable across restarts via the State table, coalescing writes instead
// of persisting on every refresh. Built around Go's oauth2.TokenSource
// interface, the idiomatic stand-in for the spec's "cache handler with
// get/save callbacks" — the teacher's own auth.go builds oauth2.Config and
// oauth2.Token values the same way (services/auth.go), just without the
// persistence layer this component adds.
package tokencache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"

	"spinloop-backend/internal/models"
	"spinloop-backend/internal/store"

	"github.com/rs/zerolog"
)

// Cache holds the current token in memory and refreshes it through the
// wrapped oauth2.Config when expired. It implements oauth2.TokenSource.
type Cache struct {
	oauthConfig *oauth2.Config
	store       *store.Store
	log         zerolog.Logger

	mu        sync.Mutex
	token     *oauth2.Token
	needsSave bool
	wake      chan struct{}
}

// New builds a Cache for the given registered application credentials. Call
// Seed before first use to populate the initial token.
func New(clientID, clientSecret, redirectURL string, st *store.Store, log zerolog.Logger) *Cache {
	return &Cache{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"playlist-modify-public",
				"playlist-modify-private",
			},
			Endpoint: spotify.Endpoint,
		},
		store: st,
		log:   log,
		wake:  make(chan struct{}, 1),
	}
}

// Seed loads the starting token: from the State table if present, else from
// a base64-encoded JSON seed supplied by the operator (e.g. the output of
// the authorise subcommand, passed once via config or env at first boot).
// A token adopted from the operator seed is marked for saving, so the
// writer persists it to the State table.
func (c *Cache) Seed(ctx context.Context, operatorSeedB64 string) error {
	raw, ok, err := c.store.GetState(ctx, models.StateSpotifyAuth)
	if err != nil {
		return fmt.Errorf("load seeded token: %w", err)
	}
	fromOperatorSeed := !ok
	if !ok {
		if operatorSeedB64 == "" {
			return fmt.Errorf("no persisted token and no operator seed provided; run the authorise subcommand first")
		}
		decoded, err := base64.StdEncoding.DecodeString(operatorSeedB64)
		if err != nil {
			return fmt.Errorf("decode operator token seed: %w", err)
		}
		raw = string(decoded)
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return fmt.Errorf("unmarshal seeded token: %w", err)
	}

	c.mu.Lock()
	c.token = &tok
	if fromOperatorSeed {
		c.needsSave = true
	}
	c.mu.Unlock()

	if fromOperatorSeed {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Token implements oauth2.TokenSource. Refreshing the token transparently
// goes through AuthCodeURL's sibling TokenSource; callers of this method
// never see an expired token, only a flag that a new one needs saving.
func (c *Cache) Token() (*oauth2.Token, error) {
	c.mu.Lock()
	cur := c.token
	c.mu.Unlock()

	if cur == nil {
		return nil, fmt.Errorf("token cache not seeded")
	}

	src := c.oauthConfig.TokenSource(context.Background(), cur)
	fresh, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh spotify token: %w", err)
	}

	c.mu.Lock()
	changed := fresh.AccessToken != c.token.AccessToken
	if changed {
		c.token = fresh
		c.needsSave = true
	}
	c.mu.Unlock()

	if changed {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	return fresh, nil
}

// takeDirty returns the current token and clears the dirty flag if a save
// is pending, or (nil, false) if nothing has changed since the last save.
func (c *Cache) takeDirty() (*oauth2.Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.needsSave {
		return nil, false
	}
	c.needsSave = false
	return c.token, true
}

// RunWriter waits on the wake signal raised by Token whenever a refresh
// changes the access token (and by Seed when it adopts the operator seed),
// clears it, and persists once per wake —
// coalescing any refreshes that happened while a previous save was in
// flight. On cancellation it performs one final drain so a refresh that
// landed just before shutdown is not lost.
func (c *Cache) RunWriter(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.save(context.Background())
			return ctx.Err()
		case <-c.wake:
			c.save(ctx)
		}
	}
}

func (c *Cache) save(ctx context.Context) {
	tok, dirty := c.takeDirty()
	if !dirty {
		return
	}

	err := c.store.Transact(ctx, func(ctx context.Context) error {
		if err := c.store.LockStateForUpdate(ctx, models.StateSpotifyAuth); err != nil {
			return err
		}
		encoded, err := json.Marshal(tok)
		if err != nil {
			return fmt.Errorf("marshal token: %w", err)
		}
		return c.store.UpsertState(ctx, models.StateSpotifyAuth, string(encoded))
	})
	if err != nil {
		c.log.Error().Err(err).Msg("failed to persist refreshed spotify token")
		// Leave needsSave cleared regardless: the in-memory token is still
		// valid, and the next refresh will set the flag again.
	}
}
