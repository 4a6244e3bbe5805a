// Package youtube matches free-text track queries to YouTube videos.
package youtube

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/ppalone/ytsearch"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/domain/song"
)

// Hit is one video search result.
type Hit struct {
	VideoID string
	Title   string
}

// Matcher finds the YouTube video for a track query.
// Successful lookups, including misses, are cached by normalized query.
type Matcher struct {
	// search runs one video search; replaced in tests.
	search func(ctx context.Context, query string) ([]Hit, error)

	cache   map[string]song.Ref
	cacheMu sync.RWMutex
}

// NewMatcher creates a new Matcher backed by YouTube search.
func NewMatcher() *Matcher {
	client := ytsearch.NewClient(nil)
	return newMatcher(func(ctx context.Context, query string) ([]Hit, error) {
		res, err := client.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		hits := make([]Hit, 0, len(res.Results))
		for _, r := range res.Results {
			hits = append(hits, Hit{VideoID: r.VideoID, Title: r.Title})
		}
		return hits, nil
	})
}

func newMatcher(search func(ctx context.Context, query string) ([]Hit, error)) *Matcher {
	return &Matcher{
		search: search,
		cache:  make(map[string]song.Ref),
	}
}

// Match returns the first video for query, titled with title when it is set.
// ok is false when the search returned nothing usable.
func (m *Matcher) Match(ctx context.Context, query, title string) (song.Ref, bool, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if key == "" {
		return song.Ref{}, false, errors.New("match query is required")
	}

	m.cacheMu.RLock()
	cached, ok := m.cache[key]
	m.cacheMu.RUnlock()
	if ok {
		return withTitle(cached, title), !cached.IsZero(), nil
	}

	hits, err := m.search(ctx, query)
	if err != nil {
		return song.Ref{}, false, errors.Wrapf(err, "youtube search failed: query=%q", query)
	}

	var ref song.Ref
	for _, h := range hits {
		if h.VideoID != "" {
			ref = song.Ref{ID: h.VideoID, Title: h.Title}
			break
		}
	}

	m.cacheMu.Lock()
	m.cache[key] = ref
	m.cacheMu.Unlock()

	if ref.IsZero() {
		zlog.Debug().Msgf("youtube: no match: query=%q", query)
		return song.Ref{}, false, nil
	}
	return withTitle(ref, title), true, nil
}

func withTitle(ref song.Ref, title string) song.Ref {
	if ref.IsZero() || title == "" {
		return ref
	}
	ref.Title = title
	return ref
}
