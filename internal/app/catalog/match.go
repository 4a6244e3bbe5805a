package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/osa030/tubequeue/internal/domain/song"
)

// matchItem is a track from a foreign catalog awaiting a playable video.
type matchItem struct {
	Query string
	Title string
}

// matchAll matches items concurrently and returns the matched songs in item
// order. Unmatched items are dropped. It fails only when every lookup failed.
func matchAll(ctx context.Context, matcher Matcher, items []matchItem, concurrency int) ([]song.Ref, error) {
	if len(items) == 0 {
		return []song.Ref{}, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	refs := make([]song.Ref, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			ref, ok, err := matcher.Match(ctx, item.Query, item.Title)
			if err != nil {
				errs[i] = err
				return nil
			}
			if ok {
				refs[i] = ref
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := lo.Compact(errs)
	if len(failed) == len(items) {
		return nil, errors.Wrapf(failed[0], "all %d matches failed", len(items))
	}
	if len(failed) > 0 {
		zlog.Warn().Msgf("catalog: some matches failed: failed=%d total=%d first_error=%v", len(failed), len(items), failed[0])
	}

	return song.Dedupe(refs), nil
}
