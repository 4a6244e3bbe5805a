// Package resolver selects the stream URL resolver backend.
package resolver

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/infra/streamproxy"
	"github.com/osa030/tubequeue/internal/infra/ytdlp"
)

// Resolver turns a video ID into a playable URL.
type Resolver interface {
	Resolve(ctx context.Context, videoID string) (string, error)
}

// YTDLPConfig returns the yt-dlp configuration. Settings apply only when
// yt-dlp is the resolver; otherwise yt-dlp runs with defaults for listing.
func YTDLPConfig(resolverType string, settings map[string]any) (ytdlp.Config, error) {
	var cfg ytdlp.Config
	if resolverType != "ytdlp" && resolverType != "" {
		settings = nil
	}
	if err := decode(settings, &cfg); err != nil {
		return ytdlp.Config{}, err
	}
	return cfg, nil
}

// New creates the resolver named by resolverType. The local yt-dlp client
// serves the "ytdlp" type.
func New(resolverType string, settings map[string]any, local *ytdlp.Client) (Resolver, error) {
	switch resolverType {
	case "ytdlp", "":
		if local == nil {
			return nil, errors.New("yt-dlp client is required")
		}
		zlog.Info().Msg("using yt-dlp stream resolver")
		return local, nil

	case "streamproxy":
		var cfg streamproxy.Config
		if err := decode(settings, &cfg); err != nil {
			return nil, err
		}
		zlog.Info().Msgf("using stream proxy resolver: base_url=%s", cfg.BaseURL)
		c, err := streamproxy.New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, errors.Newf("unsupported resolver type: %s", resolverType)
	}
}

func decode(settings map[string]any, out any) error {
	if err := mapstructure.Decode(settings, out); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(out); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(out); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	return nil
}
