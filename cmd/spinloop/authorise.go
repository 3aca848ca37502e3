package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"spinloop-backend/internal/config"
	"spinloop-backend/internal/spotify"
)

func newAuthoriseCmd(stationsPath *string, debug *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "authorise",
		Short: "Run a one-shot Spotify OAuth flow and print a base64 token seed to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthorise(*stationsPath)
		},
	}
}

// runAuthorise walks the operator through Spotify's authorization-code
// flow by hand: print the consent URL, read back the redirected code, and
// exchange it. The result is the seed the monitor/update-playlists
// commands read from RDB_SPOTIFY_TOKENSEED (or spotify.auth_seed) on a
// fresh database, per spec.md §6.
func runAuthorise(stationsPath string) error {
	cfg, err := config.Load(stationsPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	auth := spotify.Authenticator(spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
	})

	const state = "spinloop-authorise"
	fmt.Fprintln(os.Stderr, "Visit this URL, approve access, then paste the full redirect URL below:")
	fmt.Fprintln(os.Stderr, auth.AuthURL(state))
	fmt.Fprint(os.Stderr, "> ")

	reader := bufio.NewReader(os.Stdin)
	redirected, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("read redirect URL: %w", err)
	}

	code, err := extractCode(strings.TrimSpace(redirected))
	if err != nil {
		return err
	}

	ctx := context.Background()
	token, err := auth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	seed, err := encodeSeed(token)
	if err != nil {
		return err
	}

	fmt.Println(seed)
	return nil
}

func extractCode(redirectedURL string) (string, error) {
	idx := strings.Index(redirectedURL, "code=")
	if idx < 0 {
		return "", fmt.Errorf("no code= parameter found in %q", redirectedURL)
	}
	code := redirectedURL[idx+len("code="):]
	if amp := strings.IndexByte(code, '&'); amp >= 0 {
		code = code[:amp]
	}
	return code, nil
}

func encodeSeed(token *oauth2.Token) (string, error) {
	raw, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
