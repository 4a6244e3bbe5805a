package catalog

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/infra/config"
	"github.com/osa030/tubequeue/internal/infra/lastfm"
)

// Deps holds the clients providers are built on. Spotify may be nil when no
// spotify provider is configured.
type Deps struct {
	YTMusic MusicSearcher
	Lister  PlaylistLister
	Spotify SpotifyClient
	Matcher Matcher
}

// NewChainFromConfig creates a provider chain from configuration.
func NewChainFromConfig(cfg config.CatalogConfig, deps Deps) (*Chain, error) {
	if len(cfg.Providers) == 0 {
		return nil, errors.New("no catalog providers configured")
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating catalog provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "ytmusic":
			provider, err = NewYTMusicProvider(deps.YTMusic, deps.Lister, pcfg.Settings)

		case "spotify":
			if deps.Spotify == nil {
				err = errors.New("spotify client is not configured")
				break
			}
			provider, err = NewSpotifyProvider(deps.Spotify, deps.Matcher, pcfg.Settings)

		case "lastfm":
			provider, err = newLastFmFromSettings(deps.Matcher, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: pcfg.DisplayName,
		})

		zlog.Info().Msgf("registered catalog provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, pcfg.DisplayName)
	}

	return NewChain(providers), nil
}

func newLastFmFromSettings(matcher Matcher, settings map[string]any) (*LastFmProvider, error) {
	providerCfg, err := DecodeLastFmSettings(settings)
	if err != nil {
		return nil, err
	}
	client, err := lastfm.New(lastfm.Config{APIKey: providerCfg.APIKey})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create last.fm client")
	}
	return NewLastFmProvider(client, matcher, providerCfg)
}
