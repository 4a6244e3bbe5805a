package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/tubequeue/internal/domain/song"
	"github.com/osa030/tubequeue/internal/infra/lastfm"
)

// LastFmClient defines the interface for Last.fm operations.
type LastFmClient interface {
	GetTopTracks(ctx context.Context, tagName string, limit int) ([]lastfm.Track, error)
	GetSimilarTracks(ctx context.Context, trackName, artistName string, limit int) ([]lastfm.Track, error)
	SearchTrack(ctx context.Context, query string, limit int) ([]lastfm.Track, error)
}

type LastFmProviderConfig struct {
	APIKey           string `yaml:"api_key" mapstructure:"api_key" validate:"required"`
	MaxSongs         int    `yaml:"max_songs" mapstructure:"max_songs" default:"25" validate:"gte=1,lte=100"`
	MatchConcurrency int    `yaml:"match_concurrency" mapstructure:"match_concurrency" default:"4" validate:"gte=1,lte=16"`
}

// LastFmProvider treats a playlist name as a Last.fm tag (genre) and plays the
// tag's top tracks. A song lookup plays the song followed by similar tracks.
// Albums are not looked up; the chain falls through to the next provider.
type LastFmProvider struct {
	lastfm  LastFmClient
	matcher Matcher
	config  *LastFmProviderConfig
}

// DecodeLastFmSettings decodes, defaults and validates provider settings.
func DecodeLastFmSettings(settings map[string]any) (*LastFmProviderConfig, error) {
	if len(settings) == 0 {
		return nil, errors.New("settings are required")
	}

	var config LastFmProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}
	return &config, nil
}

// NewLastFmProvider creates a new LastFmProvider.
func NewLastFmProvider(client LastFmClient, matcher Matcher, config *LastFmProviderConfig) (*LastFmProvider, error) {
	if client == nil {
		return nil, errors.New("last.fm client is required")
	}
	if matcher == nil {
		return nil, errors.New("youtube matcher is required")
	}
	if config == nil {
		return nil, errors.New("last.fm provider config is required")
	}

	return &LastFmProvider{
		lastfm:  client,
		matcher: matcher,
		config:  config,
	}, nil
}

// ByAlbum is not supported by Last.fm lookups and always returns no songs.
func (p *LastFmProvider) ByAlbum(context.Context, string) ([]song.Ref, error) {
	return []song.Ref{}, nil
}

// ByPlaylistOrGenre returns the top tracks of the tag.
func (p *LastFmProvider) ByPlaylistOrGenre(ctx context.Context, name string) ([]song.Ref, error) {
	tracks, err := p.lastfm.GetTopTracks(ctx, name, p.config.MaxSongs)
	if err != nil {
		return nil, err
	}
	return p.match(ctx, tracks)
}

// BySongName returns the first matching track followed by similar tracks.
func (p *LastFmProvider) BySongName(ctx context.Context, name string) ([]song.Ref, error) {
	found, err := p.lastfm.SearchTrack(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return []song.Ref{}, nil
	}

	seed := found[0]
	tracks := []lastfm.Track{seed}
	if seed.Artist != "" && p.config.MaxSongs > 1 {
		similar, err := p.lastfm.GetSimilarTracks(ctx, seed.Name, seed.Artist, p.config.MaxSongs-1)
		if err == nil {
			tracks = append(tracks, similar...)
		}
	}
	return p.match(ctx, tracks)
}

func (p *LastFmProvider) match(ctx context.Context, tracks []lastfm.Track) ([]song.Ref, error) {
	if len(tracks) > p.config.MaxSongs {
		tracks = tracks[:p.config.MaxSongs]
	}

	items := make([]matchItem, 0, len(tracks))
	for _, t := range tracks {
		title := t.Name
		if t.Artist != "" {
			title = t.Name + " - " + t.Artist
		}
		items = append(items, matchItem{Query: t.Query(), Title: title})
	}
	return matchAll(ctx, p.matcher, items, p.config.MatchConcurrency)
}

// Name returns the provider name.
func (p *LastFmProvider) Name() string {
	return "lastfm"
}
