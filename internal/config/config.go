// Package config loads process configuration: a YAML file of station
// definitions plus environment-overridable Spotify/database settings. The
// teacher's own config.go is a flat os.Getenv struct (internal/config in
// the original musike-backend); this generalises that shape with viper so
// the richer station/playlist config can live in a YAML file while
// secrets still come from the environment, using the env-prefix
// conventions (RDB_DATABASE_*, RDB_SPOTIFY_*) the rest of the pack's
// viper-based CLIs (e.g. toozej-kmhd2spotify) follow.
package config

import (
	"fmt"
	"regexp"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"spinloop-backend/internal/models"
)

// Config is the fully resolved process configuration.
type Config struct {
	Database DatabaseConfig
	Spotify  SpotifyConfig
	Stations []models.StationConfig
}

type DatabaseConfig struct {
	ConnString string
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// TokenSeed is a base64-encoded JSON oauth2.Token, used only the first
	// time the process runs against a fresh database.
	TokenSeed string
}

// Playlist defaults applied when a station's YAML entry omits them.
const (
	defaultPlaylistDays  = 7
	defaultPlaylistLimit = 100
)

// stationFile is the YAML shape of the stations config file, decoded before
// its regex fields are compiled into models.StationConfig.
type stationFile struct {
	Stations []struct {
		Key     string `mapstructure:"key"`
		Name    string `mapstructure:"name"`
		URL     string `mapstructure:"url"`
		Filters struct {
			Ignore string `mapstructure:"ignore"`
			Blank  string `mapstructure:"blank"`
		} `mapstructure:"filters"`
		Playlists []struct {
			Type  string `mapstructure:"type"`
			Days  int    `mapstructure:"days"`
			Limit int    `mapstructure:"limit"`
		} `mapstructure:"playlists"`
	} `mapstructure:"stations"`
}

// Load reads stationsPath as YAML for the station/playlist layout and the
// database.connection_string / spotify.* settings, then lets environment
// variables (via a local .env file if present) under the RDB_DATABASE_ and
// RDB_SPOTIFY_ prefixes override those database and Spotify settings.
func Load(stationsPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(stationsPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read station config %s: %w", stationsPath, err)
	}

	var raw stationFile
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("parse station config %s: %w", stationsPath, err)
	}

	stations := make([]models.StationConfig, 0, len(raw.Stations))
	for _, s := range raw.Stations {
		sc := models.StationConfig{Key: s.Key, Name: s.Name, URL: s.URL}

		if s.Filters.Ignore != "" {
			re, err := regexp.Compile(s.Filters.Ignore)
			if err != nil {
				return nil, fmt.Errorf("station %s: compile ignore filter: %w", s.Key, err)
			}
			sc.Filters.Ignore = re
		}
		if s.Filters.Blank != "" {
			re, err := regexp.Compile(s.Filters.Blank)
			if err != nil {
				return nil, fmt.Errorf("station %s: compile blank filter: %w", s.Key, err)
			}
			sc.Filters.Blank = re
		}

		for _, pl := range s.Playlists {
			days, limit := pl.Days, pl.Limit
			if days == 0 {
				days = defaultPlaylistDays
			}
			if limit == 0 {
				limit = defaultPlaylistLimit
			}
			sc.Playlists = append(sc.Playlists, models.PlaylistConfig{
				Type:  models.PlaylistType(pl.Type),
				Days:  days,
				Limit: limit,
			})
		}

		stations = append(stations, sc)
	}

	env := viper.New()
	env.SetEnvPrefix("RDB")
	env.AutomaticEnv()
	env.SetDefault("database.connstring", v.GetString("database.connection_string"))
	env.SetDefault("spotify.clientid", v.GetString("spotify.client_id"))
	env.SetDefault("spotify.clientsecret", v.GetString("spotify.client_secret"))
	env.SetDefault("spotify.redirecturl", v.GetString("spotify.redirect_url"))
	env.SetDefault("spotify.tokenseed", v.GetString("spotify.auth_seed"))
	bindEnv(env, "database.connstring", "RDB_DATABASE_CONNSTRING")
	bindEnv(env, "spotify.clientid", "RDB_SPOTIFY_CLIENTID")
	bindEnv(env, "spotify.clientsecret", "RDB_SPOTIFY_CLIENTSECRET")
	bindEnv(env, "spotify.redirecturl", "RDB_SPOTIFY_REDIRECTURL")
	bindEnv(env, "spotify.tokenseed", "RDB_SPOTIFY_TOKENSEED")

	cfg := &Config{
		Database: DatabaseConfig{ConnString: env.GetString("database.connstring")},
		Spotify: SpotifyConfig{
			ClientID:     env.GetString("spotify.clientid"),
			ClientSecret: env.GetString("spotify.clientsecret"),
			RedirectURL:  env.GetString("spotify.redirecturl"),
			TokenSeed:    env.GetString("spotify.tokenseed"),
		},
		Stations: stations,
	}

	if cfg.Database.ConnString == "" {
		return nil, fmt.Errorf("database.connection_string (or RDB_DATABASE_CONNSTRING) is required")
	}
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return nil, fmt.Errorf("spotify.client_id and spotify.client_secret (or RDB_SPOTIFY_CLIENTID and RDB_SPOTIFY_CLIENTSECRET) are required")
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper, key, envVar string) {
	_ = v.BindEnv(key, envVar)
}
