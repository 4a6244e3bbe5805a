package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/domain/song"
)

// ProviderWithMetadata wraps a provider with its metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Result is a lookup result with its source provider info.
type Result struct {
	Songs       []song.Ref
	DisplayName string // Provider that answered; empty when nothing matched
}

// Chain tries multiple providers in order until one returns songs.
type Chain struct {
	providers []ProviderWithMetadata
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{
		providers: providers,
	}
}

// Search looks name up with each provider in turn and returns the first
// non-empty, de-duplicated result. A provider error falls through to the next
// provider. When every provider failed the combined error is returned; when at
// least one answered with nothing, the result is empty without error.
func (c *Chain) Search(ctx context.Context, source Source, name string) (Result, error) {
	if len(c.providers) == 0 {
		return Result{}, errors.New("no catalog providers configured")
	}

	var errs error
	answered := false

	for i, pm := range c.providers {
		if err := ctx.Err(); err != nil {
			return Result{}, errors.Wrap(err, "catalog search abandoned")
		}

		zlog.Debug().Msgf("trying provider: index=%d total=%d name=%s provider_type=%s source=%s",
			i+1, len(c.providers), pm.DisplayName, pm.Provider.Name(), source)

		songs, err := Lookup(ctx, pm.Provider, source, name)
		if err != nil {
			zlog.Warn().Msgf("provider failed, trying next: provider=%s error=%v", pm.DisplayName, err)
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "provider %s", pm.DisplayName))
			continue
		}
		answered = true

		songs = song.Dedupe(songs)
		if len(songs) == 0 {
			zlog.Debug().Msgf("provider returned no songs: provider=%s", pm.DisplayName)
			continue
		}

		zlog.Info().Msgf("provider returned songs: provider=%s source=%s query=%q count=%d",
			pm.DisplayName, source, name, len(songs))
		return Result{Songs: songs, DisplayName: pm.DisplayName}, nil
	}

	if !answered {
		return Result{}, errors.Wrap(errs, "all providers failed")
	}
	return Result{Songs: []song.Ref{}}, nil
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "provider_chain"
}
