// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Client is a Last.fm API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// Cache for tag top tracks, keyed by "tag:limit"
	tagTracksCache map[string][]Track
	cacheMu        sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey string
}

// Track is a track name with its primary artist.
type Track struct {
	Name   string
	Artist string
}

// Query returns a free-text search string for the track.
func (t Track) Query() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Name + " " + t.Artist
}

type artistField struct {
	Name string `json:"name"`
}

// UnmarshalJSON accepts both the object form ({"name": ...}) and the
// plain string form used by track.search.
func (a *artistField) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Name = name
		return nil
	}
	type plain artistField
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	a.Name = p.Name
	return nil
}

type trackItem struct {
	Name   string      `json:"name"`
	Artist artistField `json:"artist"`
}

type topTracksResponse struct {
	Tracks struct {
		Track []trackItem `json:"track"`
	} `json:"tracks"`
}

type similarResponse struct {
	SimilarTracks struct {
		Track []trackItem `json:"track"`
	} `json:"similartracks"`
}

type searchResponse struct {
	Results struct {
		TrackMatches struct {
			Track []trackItem `json:"track"`
		} `json:"trackmatches"`
	} `json:"results"`
}

// apiError represents an error response from Last.fm API.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        "https://ws.audioscrobbler.com/2.0/",
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		tagTracksCache: make(map[string][]Track),
	}, nil
}

// GetTopTracks retrieves top tracks for a tag (genre) from Last.fm.
// Reference: https://www.last.fm/api/show/tag.getTopTracks
func (c *Client) GetTopTracks(ctx context.Context, tagName string, limit int) ([]Track, error) {
	if tagName == "" {
		return nil, errors.New("tag name is required")
	}
	limit = clampLimit(limit)

	cacheKey := fmt.Sprintf("%s:%d", tagName, limit)
	c.cacheMu.RLock()
	if cached, ok := c.tagTracksCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached top tracks for tag: %s", tagName)
		return cached, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "tag.getTopTracks")
	params.Set("tag", tagName)
	params.Set("limit", strconv.Itoa(limit))

	var response topTracksResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}
	tracks := toTracks(response.Tracks.Track)

	// Empty results are not cached so a later call can pick up a new tag.
	if len(tracks) > 0 {
		c.cacheMu.Lock()
		c.tagTracksCache[cacheKey] = tracks
		c.cacheMu.Unlock()
		zlog.Debug().Msgf("cached top tracks for tag: %s (count: %d)", tagName, len(tracks))
	}

	return tracks, nil
}

// GetSimilarTracks retrieves similar tracks from Last.fm based on track name and artist.
// Reference: https://www.last.fm/api/show/track.getSimilar
func (c *Client) GetSimilarTracks(ctx context.Context, trackName, artistName string, limit int) ([]Track, error) {
	if trackName == "" || artistName == "" {
		return nil, errors.New("track name and artist name are required")
	}

	params := url.Values{}
	params.Set("method", "track.getSimilar")
	params.Set("artist", artistName)
	params.Set("track", trackName)
	params.Set("autocorrect", "1")
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var response similarResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}
	return toTracks(response.SimilarTracks.Track), nil
}

// SearchTrack searches tracks by free text.
// Reference: https://www.last.fm/api/show/track.search
func (c *Client) SearchTrack(ctx context.Context, query string, limit int) ([]Track, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	params := url.Values{}
	params.Set("method", "track.search")
	params.Set("track", query)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var response searchResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}
	return toTracks(response.Results.TrackMatches.Track), nil
}

// get performs a GET request with the common parameters and decodes the body into out.
func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	params.Set("format", "json")
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}

	// Check for Last.fm API errors
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		return errors.Errorf("last.fm API error %d: %s", apiErr.Error, apiErr.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("last.fm API returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func toTracks(items []trackItem) []Track {
	tracks := make([]Track, 0, len(items))
	for _, t := range items {
		if t.Name == "" {
			continue
		}
		tracks = append(tracks, Track{Name: t.Name, Artist: t.Artist.Name})
	}
	return tracks
}
