package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/domain/song"
	"github.com/osa030/tubequeue/internal/infra/spotify"
)

// SpotifyClient defines the Spotify operations used by SpotifyProvider.
type SpotifyClient interface {
	AlbumTracks(ctx context.Context, albumName string) ([]spotify.Track, error)
	PlaylistTracks(ctx context.Context, playlist string) ([]spotify.Track, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]spotify.Track, error)
}

type SpotifyProviderConfig struct {
	MaxSongs         int `yaml:"max_songs" mapstructure:"max_songs" default:"25" validate:"gte=1,lte=100"`
	MatchConcurrency int `yaml:"match_concurrency" mapstructure:"match_concurrency" default:"4" validate:"gte=1,lte=16"`
}

// SpotifyProvider looks songs up on Spotify and matches every track to a
// YouTube video, since Spotify IDs cannot be streamed.
type SpotifyProvider struct {
	spotify SpotifyClient
	matcher Matcher
	config  *SpotifyProviderConfig
}

// NewSpotifyProvider creates a new SpotifyProvider.
func NewSpotifyProvider(spotify SpotifyClient, matcher Matcher, settings map[string]any) (*SpotifyProvider, error) {
	if spotify == nil {
		return nil, errors.New("spotify client is required")
	}
	if matcher == nil {
		return nil, errors.New("youtube matcher is required")
	}

	var config SpotifyProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("spotify provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &SpotifyProvider{
		spotify: spotify,
		matcher: matcher,
		config:  &config,
	}, nil
}

// ByAlbum returns the tracks of the first matching album.
func (p *SpotifyProvider) ByAlbum(ctx context.Context, name string) ([]song.Ref, error) {
	tracks, err := p.spotify.AlbumTracks(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.match(ctx, tracks)
}

// ByPlaylistOrGenre returns the tracks of the first matching playlist.
func (p *SpotifyProvider) ByPlaylistOrGenre(ctx context.Context, name string) ([]song.Ref, error) {
	tracks, err := p.spotify.PlaylistTracks(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.match(ctx, tracks)
}

// BySongName returns the track search results, best match first.
func (p *SpotifyProvider) BySongName(ctx context.Context, name string) ([]song.Ref, error) {
	tracks, err := p.spotify.SearchTracks(ctx, name, p.config.MaxSongs)
	if err != nil {
		return nil, err
	}
	return p.match(ctx, tracks)
}

func (p *SpotifyProvider) match(ctx context.Context, tracks []spotify.Track) ([]song.Ref, error) {
	if len(tracks) > p.config.MaxSongs {
		tracks = tracks[:p.config.MaxSongs]
	}

	items := make([]matchItem, 0, len(tracks))
	for _, t := range tracks {
		items = append(items, matchItem{Query: t.Query(), Title: t.Title()})
	}
	return matchAll(ctx, p.matcher, items, p.config.MatchConcurrency)
}

// Name returns the provider name.
func (p *SpotifyProvider) Name() string {
	return "spotify"
}
