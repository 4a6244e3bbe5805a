// Package ytdlp lists YouTube playlists and resolves stream URLs with yt-dlp.
package ytdlp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lrstanley/go-ytdlp"
	zlog "github.com/rs/zerolog/log"
)

// Config represents yt-dlp configuration.
type Config struct {
	Format         string `yaml:"format" mapstructure:"format" default:"bestaudio[ext=m4a]/bestaudio/best"`
	Proxy          string `yaml:"proxy" mapstructure:"proxy"`
	SocketTimeoutS int    `yaml:"socket_timeout_s" mapstructure:"socket_timeout_s" default:"15" validate:"gte=1"`
	WatchURLPrefix string `yaml:"watch_url_prefix" mapstructure:"watch_url_prefix" default:"https://music.youtube.com/watch?v=" validate:"url"`
}

// Entry is one flat playlist entry.
type Entry struct {
	VideoID  string
	Title    string
	Uploader string
}

// DisplayTitle returns "Title - Uploader", or just the title when the uploader is unknown.
func (e Entry) DisplayTitle() string {
	if e.Uploader == "" || e.Uploader == "NA" {
		return e.Title
	}
	return e.Title + " - " + e.Uploader
}

// Client runs yt-dlp.
type Client struct {
	config Config
	// run executes yt-dlp with a prepared command; replaced in tests.
	run func(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error)
}

// New creates a new yt-dlp client.
func New(cfg Config) *Client {
	return &Client{config: cfg, run: runCommand}
}

func runCommand(ctx context.Context, cmd *ytdlp.Command, args ...string) (string, error) {
	res, err := cmd.Run(ctx, args...)
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

func (c *Client) command() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings().
		IgnoreConfig()
	if c.config.Proxy != "" {
		cmd.Proxy(c.config.Proxy)
	}
	return cmd
}

func (c *Client) commonArgs() []string {
	return []string{
		"--no-check-certificates",
		"--socket-timeout", fmt.Sprintf("%d", c.config.SocketTimeoutS),
	}
}

// ListPlaylist returns up to limit entries of a playlist, album or mix URL.
func (c *Client) ListPlaylist(ctx context.Context, playlistURL string, limit int) ([]Entry, error) {
	if playlistURL == "" {
		return nil, errors.New("playlist url is required")
	}
	if limit <= 0 {
		limit = 50
	}

	start := time.Now()
	cmd := c.command().
		FlatPlaylist().
		Print("%(id)s\t%(title)s\t%(uploader)s").
		PlaylistItems(fmt.Sprintf("1-%d", limit))

	stdout, err := c.run(ctx, cmd, append(c.commonArgs(), playlistURL)...)
	if err != nil {
		return nil, errors.Wrapf(err, "yt-dlp playlist listing failed: url=%s", playlistURL)
	}

	entries := parseEntries(stdout)
	zlog.Debug().Msgf("ytdlp: playlist listed: url=%s entries=%d elapsed=%s", playlistURL, len(entries), time.Since(start))
	return entries, nil
}

// Resolve returns a direct stream URL for a video ID.
func (c *Client) Resolve(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", errors.New("video id is required")
	}

	cmd := c.command().
		Format(c.config.Format).
		Print("urls")

	args := append(c.commonArgs(), "--no-playlist", c.config.WatchURLPrefix+url.QueryEscape(videoID))
	stdout, err := c.run(ctx, cmd, args...)
	if err != nil {
		return "", errors.Wrapf(err, "yt-dlp stream resolution failed: video=%s", videoID)
	}

	streamURL := firstURL(stdout)
	if streamURL == "" {
		return "", errors.Newf("yt-dlp returned no stream url: video=%s", videoID)
	}
	return streamURL, nil
}

// parseEntries parses "id\ttitle\tuploader" lines. Lines without a usable
// video ID are skipped.
func parseEntries(stdout string) []Entry {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		parts := strings.Split(strings.TrimRight(line, "\r"), "\t")
		if len(parts) < 2 {
			continue
		}
		id := strings.TrimSpace(parts[0])
		title := strings.TrimSpace(parts[1])
		if !isVideoID(id) || title == "" || title == "NA" {
			continue
		}
		e := Entry{VideoID: id, Title: title}
		if len(parts) > 2 {
			e.Uploader = strings.TrimSpace(parts[2])
		}
		entries = append(entries, e)
	}
	return entries
}

// firstURL returns the first http(s) line of stdout. Formats with separate
// audio and video print one URL per line.
func firstURL(stdout string) string {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "https://") || strings.HasPrefix(line, "http://") {
			return line
		}
	}
	return ""
}

// isVideoID reports whether s looks like an 11 character YouTube video ID.
func isVideoID(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
