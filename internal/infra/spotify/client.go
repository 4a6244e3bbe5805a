// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// Track is a Spotify track reduced to what catalog matching needs.
type Track struct {
	ID       string
	Name     string
	Artists  []string
	Duration time.Duration
}

// Query returns a free-text search string for the track.
func (t Track) Query() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return t.Name + " " + t.Artists[0]
}

// Title returns a display title for the track.
func (t Track) Title() string {
	if len(t.Artists) == 0 {
		return t.Name
	}
	return t.Name + " - " + strings.Join(t.Artists, ", ")
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(spotifyauth.ScopePlaylistReadPrivate),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, token)
	return newWithClient(spotify.New(httpClient), cfg.Market), nil
}

func newWithClient(client *spotify.Client, market string) *Client {
	if market == "" {
		market = "JP"
	}
	return &Client{
		client:     client,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// SearchTracks searches for tracks on Spotify.
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]Track, error) {
	result, err := c.search(ctx, query, spotify.SearchTypeTrack, limit)
	if err != nil {
		return nil, err
	}
	if result.Tracks == nil {
		return []Track{}, nil
	}

	tracks := make([]Track, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		tracks = append(tracks, convertTrack(t.SimpleTrack))
	}
	return tracks, nil
}

// AlbumTracks finds the best matching album and returns its tracks in album order.
// An empty slice means no album matched.
func (c *Client) AlbumTracks(ctx context.Context, albumName string) ([]Track, error) {
	albumID := resolveID(albumName, "album")
	if albumID == "" {
		result, err := c.search(ctx, albumName, spotify.SearchTypeAlbum, 1)
		if err != nil {
			return nil, err
		}
		if result.Albums == nil || len(result.Albums.Albums) == 0 {
			return []Track{}, nil
		}
		albumID = string(result.Albums.Albums[0].ID)
	}

	var tracks []Track
	offset := 0
	limit := 50

	for {
		var page *spotify.SimpleTrackPage
		err := c.retry(func() error {
			p, err := c.client.GetAlbumTracks(ctx, spotify.ID(albumID),
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get album tracks")
		}

		for _, t := range page.Tracks {
			tracks = append(tracks, convertTrack(t))
		}

		if len(page.Tracks) < limit {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// PlaylistTracks resolves a playlist URL, URI or name and returns its tracks.
// Names are looked up with the search API. An empty slice means no playlist matched.
func (c *Client) PlaylistTracks(ctx context.Context, playlist string) ([]Track, error) {
	playlistID := resolveID(playlist, "playlist")
	if playlistID == "" {
		result, err := c.search(ctx, playlist, spotify.SearchTypePlaylist, 5)
		if err != nil {
			return nil, err
		}
		if result.Playlists != nil {
			for _, p := range result.Playlists.Playlists {
				if p.ID != "" {
					playlistID = string(p.ID)
					break
				}
			}
		}
		if playlistID == "" {
			return []Track{}, nil
		}
	}

	return c.GetPlaylistTracks(ctx, playlistID)
}

// GetPlaylistTracks retrieves all tracks from a playlist.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistURL string) ([]Track, error) {
	playlistID := extractPlaylistID(playlistURL)
	if playlistID == "" {
		return nil, errors.New("invalid playlist URL")
	}

	var tracks []Track
	offset := 0
	limit := 100

	for {
		var page *spotify.PlaylistItemPage
		err := c.retry(func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			// Only process tracks (exclude episodes)
			if item.Track.Track != nil && item.Track.Track.ID != "" {
				tracks = append(tracks, convertTrack(item.Track.Track.SimpleTrack))
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return tracks, nil
}

func (c *Client) search(ctx context.Context, query string, searchType spotify.SearchType, limit int) (*spotify.SearchResult, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	var result *spotify.SearchResult
	err := c.retry(func() error {
		r, err := c.client.Search(ctx, query, searchType, spotify.Limit(limit), spotify.Market(c.market))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}
	return result, nil
}

// convertTrack converts a Spotify SimpleTrack to a Track.
func convertTrack(t spotify.SimpleTrack) Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return Track{
		ID:       string(t.ID),
		Name:     t.Name,
		Artists:  artists,
		Duration: time.Duration(t.Duration) * time.Millisecond,
	}
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	return extractID(input, "playlist")
}

// resolveID returns the ID for a URL, URI or bare base62 ID of the given kind,
// or an empty string when input is a free-text name.
func resolveID(input, kind string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:"+kind+":") ||
		(strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/"+kind+"/")) {
		return extractID(input, kind)
	}
	if isBase62ID(input) {
		return input
	}
	return ""
}

// isBase62ID reports whether s has the shape of a Spotify ID.
func isBase62ID(s string) bool {
	if len(s) != 22 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// extractID handles "spotify:<kind>:ID" and "https://open.spotify.com/[intl-XX/]<kind>/ID".
// Anything else is returned as is.
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:"+kind+":") {
		return strings.TrimPrefix(input, "spotify:"+kind+":")
	}

	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/"+kind+"/") {
		parts := strings.Split(input, "/"+kind+"/")
		if len(parts) >= 2 {
			// Remove query parameters and trailing slashes
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	return input
}
