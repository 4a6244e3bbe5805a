// Package ytmusic provides a context-aware wrapper around the YouTube Music search API.
package ytmusic

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/raitonoberu/ytmusic"
	zlog "github.com/rs/zerolog/log"
)

// Result is a single search hit. ID is a video ID for tracks and a browse ID
// for albums and playlists.
type Result struct {
	ID     string
	Title  string
	Artist string
}

// DisplayTitle returns "Title - Artist", or just the title when the artist is unknown.
func (r Result) DisplayTitle() string {
	if r.Artist == "" {
		return r.Title
	}
	return r.Title + " - " + r.Artist
}

// Client searches YouTube Music.
type Client struct {
	// search runs one search page; replaced in tests.
	search func(query string, kind searchKind) ([]Result, error)
}

type searchKind int

const (
	kindTrack searchKind = iota
	kindAlbum
	kindPlaylist
)

// String returns the string representation of the search kind.
func (k searchKind) String() string {
	switch k {
	case kindAlbum:
		return "album"
	case kindPlaylist:
		return "playlist"
	default:
		return "track"
	}
}

// New creates a new YouTube Music client.
func New() *Client {
	return &Client{search: searchFirstPage}
}

func searchFirstPage(query string, kind searchKind) ([]Result, error) {
	switch kind {
	case kindAlbum:
		r, err := ytmusic.AlbumSearch(query).Next()
		if err != nil {
			return nil, err
		}
		results := make([]Result, 0, len(r.Albums))
		for _, a := range r.Albums {
			if a.BrowseID != "" {
				results = append(results, Result{ID: a.BrowseID, Title: a.Title})
			}
		}
		return results, nil

	case kindPlaylist:
		r, err := ytmusic.PlaylistSearch(query).Next()
		if err != nil {
			return nil, err
		}
		results := make([]Result, 0, len(r.Playlists))
		for _, p := range r.Playlists {
			if p.BrowseID != "" {
				results = append(results, Result{ID: p.BrowseID, Title: p.Title})
			}
		}
		return results, nil

	default:
		r, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			return nil, err
		}
		results := make([]Result, 0, len(r.Tracks))
		for _, t := range r.Tracks {
			if t.VideoID == "" {
				continue
			}
			artist := ""
			if len(t.Artists) > 0 {
				artist = t.Artists[0].Name
			}
			results = append(results, Result{ID: t.VideoID, Title: t.Title, Artist: artist})
		}
		return results, nil
	}
}

// Tracks searches songs. Results carry video IDs.
func (c *Client) Tracks(ctx context.Context, query string) ([]Result, error) {
	return c.run(ctx, query, kindTrack)
}

// Albums searches albums. Results carry browse IDs.
func (c *Client) Albums(ctx context.Context, query string) ([]Result, error) {
	return c.run(ctx, query, kindAlbum)
}

// Playlists searches playlists. Results carry browse IDs.
func (c *Client) Playlists(ctx context.Context, query string) ([]Result, error) {
	return c.run(ctx, query, kindPlaylist)
}

// run executes a search and gives up when ctx is done. The library call itself
// cannot be cancelled, so an abandoned search finishes in the background.
func (c *Client) run(ctx context.Context, query string, kind searchKind) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query is required")
	}

	type outcome struct {
		results []Result
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := c.search(query, kind)
		done <- outcome{results: r, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "ytmusic search abandoned: query=%q", query)
	case o := <-done:
		if o.err != nil {
			return nil, errors.Wrapf(o.err, "ytmusic search failed: query=%q kind=%s", query, kind)
		}
		zlog.Debug().Msgf("ytmusic: search done: query=%q kind=%s results=%d", query, kind, len(o.results))
		if o.results == nil {
			return []Result{}, nil
		}
		return o.results, nil
	}
}

// AlbumURL returns the URL yt-dlp lists album tracks from.
func AlbumURL(browseID string) string {
	return "https://music.youtube.com/browse/" + browseID
}

// PlaylistURL returns the URL yt-dlp lists playlist tracks from.
// Playlist browse IDs carry a "VL" prefix that the list parameter does not.
func PlaylistURL(browseID string) string {
	return "https://music.youtube.com/playlist?list=" + strings.TrimPrefix(browseID, "VL")
}

// RadioURL returns the URL of the automatic mix seeded by a video.
func RadioURL(videoID string) string {
	return "https://music.youtube.com/watch?v=" + videoID + "&list=RDAMVM" + videoID
}
