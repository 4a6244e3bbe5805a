// Package catalog provides song-list lookups by album, playlist or genre, and
// song name, backed by interchangeable music catalogs.
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tubequeue/internal/domain/song"
)

// ErrInvalidSource is returned for an unknown source name.
var ErrInvalidSource = errors.New("invalid source")

// Source selects how a name is looked up.
type Source int

const (
	SourceAlbum    Source = iota // Tracks of the best matching album
	SourcePlaylist               // Tracks of the best matching playlist or genre
	SourceSong                   // The best matching song followed by related songs
)

// String returns the string representation of the source.
func (s Source) String() string {
	switch s {
	case SourceAlbum:
		return "album"
	case SourcePlaylist:
		return "playlist"
	case SourceSong:
		return "song"
	default:
		return "unknown"
	}
}

// ParseSource parses a source name.
func ParseSource(s string) (Source, error) {
	switch s {
	case "album":
		return SourceAlbum, nil
	case "playlist", "genre":
		return SourcePlaylist, nil
	case "song":
		return SourceSong, nil
	default:
		return 0, errors.Wrapf(ErrInvalidSource, "%q", s)
	}
}

// Provider is the interface for catalog providers.
// Every lookup returns an ordered list of playable songs, an empty slice when
// nothing matched, and an error only when the catalog could not be reached.
type Provider interface {
	ByAlbum(ctx context.Context, name string) ([]song.Ref, error)
	ByPlaylistOrGenre(ctx context.Context, name string) ([]song.Ref, error)
	BySongName(ctx context.Context, name string) ([]song.Ref, error)

	// Name returns the provider name (used in config).
	Name() string
}

// Lookup dispatches to the provider method for source.
func Lookup(ctx context.Context, p Provider, source Source, name string) ([]song.Ref, error) {
	switch source {
	case SourceAlbum:
		return p.ByAlbum(ctx, name)
	case SourcePlaylist:
		return p.ByPlaylistOrGenre(ctx, name)
	case SourceSong:
		return p.BySongName(ctx, name)
	default:
		return nil, errors.Wrapf(ErrInvalidSource, "%d", int(source))
	}
}

// Matcher finds the playable video for a free-text track query.
type Matcher interface {
	Match(ctx context.Context, query, title string) (song.Ref, bool, error)
}
