// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Store    StoreConfig    `yaml:"store"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Resolver ResolverConfig `yaml:"resolver"`
	Messages MessagesConfig `yaml:"messages"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// APIConfig represents API access configuration.
type APIConfig struct {
	Token string `yaml:"token" validate:"required"`
}

// SessionConfig represents per-session operation settings.
type SessionConfig struct {
	OperationTimeoutMs int    `yaml:"operation_timeout_ms" default:"10000" validate:"gte=100,lte=60000"`
	LikedQuery         string `yaml:"liked_query" default:"liked songs"`
}

// OperationTimeout returns the operation timeout as a duration.
func (s SessionConfig) OperationTimeout() time.Duration {
	return time.Duration(s.OperationTimeoutMs) * time.Millisecond
}

// StoreConfig represents session store configuration.
type StoreConfig struct {
	Type     string         `yaml:"type" default:"memory" validate:"oneof=memory sqlite"`
	Settings map[string]any `yaml:"settings"`
}

// CatalogConfig represents catalog lookup configuration.
type CatalogConfig struct {
	Providers []ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single catalog provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=ytmusic spotify lastfm"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// ResolverConfig represents stream URL resolver configuration.
type ResolverConfig struct {
	Type     string         `yaml:"type" default:"ytdlp" validate:"oneof=ytdlp streamproxy"`
	Settings map[string]any `yaml:"settings"`
}

// MessagesConfig represents user-facing messages.
// {title} and {query} are replaced when the message is rendered.
type MessagesConfig struct {
	Starting  string `yaml:"starting" default:"Starting {title}"`
	NoResults string `yaml:"no_results" default:"Nothing found for {query}. Try again."`
	EndOfList string `yaml:"end_of_list" default:"This song list has reached the end."`
	Goodbye   string `yaml:"goodbye" default:"Goodbye!"`
}

// StartingText renders the announcement for a song that starts playing.
func (m MessagesConfig) StartingText(title string) string {
	return strings.ReplaceAll(m.Starting, "{title}", title)
}

// NoResultsText renders the message for a lookup that found nothing.
func (m MessagesConfig) NoResultsText(query string) string {
	return strings.ReplaceAll(m.NoResults, "{query}", query)
}

// SpotifyConfig represents Spotify API configuration.
// Credentials are only required when a spotify catalog provider is configured.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
	Market       string `yaml:"market" validate:"omitempty,len=2" default:"JP"`
}

// envOverrides holds secrets read from the environment.
type envOverrides struct {
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	SpotifyRefreshToken string `env:"SPOTIFY_REFRESH_TOKEN"`
	LastFmAPIKey        string `env:"LASTFM_API_KEY"`
	APIToken            string `env:"API_TOKEN"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses, completes and validates configuration data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	if err := cfg.overrideFromEnv(); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return err
	}

	if o.SpotifyClientID != "" {
		c.Spotify.ClientID = o.SpotifyClientID
	}
	if o.SpotifyClientSecret != "" {
		c.Spotify.ClientSecret = o.SpotifyClientSecret
	}
	if o.SpotifyRefreshToken != "" {
		c.Spotify.RefreshToken = o.SpotifyRefreshToken
	}
	if o.LastFmAPIKey != "" {
		for i := range c.Catalog.Providers {
			if c.Catalog.Providers[i].Type == "lastfm" {
				if c.Catalog.Providers[i].Settings == nil {
					c.Catalog.Providers[i].Settings = map[string]any{}
				}
				c.Catalog.Providers[i].Settings["api_key"] = o.LastFmAPIKey
				break
			}
		}
	}
	if o.APIToken != "" {
		c.API.Token = o.APIToken
	}
	return nil
}

// HasProvider reports whether a catalog provider of the given type is configured.
func (c *Config) HasProvider(providerType string) bool {
	for _, p := range c.Catalog.Providers {
		if p.Type == providerType {
			return true
		}
	}
	return false
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.HasProvider("spotify") {
		if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" || c.Spotify.RefreshToken == "" {
			return errors.New("spotify provider requires spotify.client_id, client_secret and refresh_token")
		}
	}

	return nil
}
