// Package streamproxy resolves stream URLs through an HTTP proxy service that
// re-serves YouTube audio from a fixed location.
package streamproxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// Config represents stream proxy configuration.
type Config struct {
	// BaseURL receives the escaped watch URL appended to it,
	// e.g. "https://proxy.example.com/youtube/url?url=".
	BaseURL        string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	WatchURLPrefix string `yaml:"watch_url_prefix" mapstructure:"watch_url_prefix" default:"https://music.youtube.com/watch?v=" validate:"url"`
	TimeoutMs      int    `yaml:"timeout_ms" mapstructure:"timeout_ms" default:"8000" validate:"gte=100"`
}

// Client is a stream proxy client.
type Client struct {
	config     Config
	httpClient *http.Client
}

type resolveResponse struct {
	Results struct {
		Proxy string `json:"proxy"`
	} `json:"results"`
}

// New creates a new stream proxy client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("stream proxy base url is required")
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
	}, nil
}

// Resolve returns the proxied stream URL for a video ID.
func (c *Client) Resolve(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", errors.New("video id is required")
	}

	reqURL := c.config.BaseURL + url.QueryEscape(c.config.WatchURLPrefix+videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", errors.Newf("stream proxy returned status %d: %s", resp.StatusCode, string(body))
	}

	var response resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", errors.Wrap(err, "failed to parse response")
	}
	if response.Results.Proxy == "" {
		return "", errors.Newf("stream proxy returned no url: video=%s", videoID)
	}

	zlog.Debug().Msgf("streamproxy: resolved: video=%s", videoID)
	return response.Results.Proxy, nil
}
