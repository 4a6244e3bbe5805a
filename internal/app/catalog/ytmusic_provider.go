package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/domain/song"
	"github.com/osa030/tubequeue/internal/infra/ytdlp"
	"github.com/osa030/tubequeue/internal/infra/ytmusic"
)

// MusicSearcher defines the YouTube Music search operations used by YTMusicProvider.
type MusicSearcher interface {
	Tracks(ctx context.Context, query string) ([]ytmusic.Result, error)
	Albums(ctx context.Context, query string) ([]ytmusic.Result, error)
	Playlists(ctx context.Context, query string) ([]ytmusic.Result, error)
}

// PlaylistLister lists the entries of an album, playlist or mix URL.
type PlaylistLister interface {
	ListPlaylist(ctx context.Context, playlistURL string, limit int) ([]ytdlp.Entry, error)
}

type YTMusicProviderConfig struct {
	MaxSongs int  `yaml:"max_songs" mapstructure:"max_songs" default:"50" validate:"gte=1,lte=200"`
	NoRadio  bool `yaml:"no_radio" mapstructure:"no_radio"`
}

// YTMusicProvider looks songs up on YouTube Music. Album and playlist contents
// are listed with yt-dlp; a song lookup plays the song followed by its radio mix.
type YTMusicProvider struct {
	search MusicSearcher
	lister PlaylistLister
	config *YTMusicProviderConfig
}

// NewYTMusicProvider creates a new YTMusicProvider.
func NewYTMusicProvider(search MusicSearcher, lister PlaylistLister, settings map[string]any) (*YTMusicProvider, error) {
	if search == nil || lister == nil {
		return nil, errors.New("ytmusic search and playlist lister are required")
	}

	var config YTMusicProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	zlog.Debug().Msgf("ytmusic provider config: %+v", config)
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &YTMusicProvider{
		search: search,
		lister: lister,
		config: &config,
	}, nil
}

// ByAlbum returns the tracks of the first matching album.
func (p *YTMusicProvider) ByAlbum(ctx context.Context, name string) ([]song.Ref, error) {
	albums, err := p.search.Albums(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(albums) == 0 {
		return []song.Ref{}, nil
	}
	return p.list(ctx, ytmusic.AlbumURL(albums[0].ID))
}

// ByPlaylistOrGenre returns the tracks of the first matching playlist.
func (p *YTMusicProvider) ByPlaylistOrGenre(ctx context.Context, name string) ([]song.Ref, error) {
	playlists, err := p.search.Playlists(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return []song.Ref{}, nil
	}
	return p.list(ctx, ytmusic.PlaylistURL(playlists[0].ID))
}

// BySongName returns the first matching song followed by its radio mix.
// Without a usable mix the remaining search results follow instead.
func (p *YTMusicProvider) BySongName(ctx context.Context, name string) ([]song.Ref, error) {
	tracks, err := p.search.Tracks(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return []song.Ref{}, nil
	}

	seed := song.Ref{ID: tracks[0].ID, Title: tracks[0].DisplayTitle()}
	songs := []song.Ref{seed}

	var related []song.Ref
	if !p.config.NoRadio {
		mix, err := p.list(ctx, ytmusic.RadioURL(seed.ID))
		if err != nil {
			zlog.Warn().Msgf("ytmusic: radio listing failed, using search results: song=%s error=%v", seed.ID, err)
		} else {
			related = mix
		}
	}
	if len(related) == 0 {
		for _, t := range tracks[1:] {
			related = append(related, song.Ref{ID: t.ID, Title: t.DisplayTitle()})
		}
	}

	songs = song.Dedupe(append(songs, related...))
	if len(songs) > p.config.MaxSongs {
		songs = songs[:p.config.MaxSongs]
	}
	return songs, nil
}

func (p *YTMusicProvider) list(ctx context.Context, url string) ([]song.Ref, error) {
	entries, err := p.lister.ListPlaylist(ctx, url, p.config.MaxSongs)
	if err != nil {
		return nil, err
	}

	songs := make([]song.Ref, 0, len(entries))
	for _, e := range entries {
		songs = append(songs, song.Ref{ID: e.VideoID, Title: e.DisplayTitle()})
	}
	return songs, nil
}

// Name returns the provider name.
func (p *YTMusicProvider) Name() string {
	return "ytmusic"
}
