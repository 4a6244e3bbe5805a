// Package store provides session store backends for queue state.
package store

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/domain/queue"
)

// Store loads and saves queue state by session key.
type Store interface {
	// Load returns the stored state, or queue.Default() when there is no
	// usable record. Errors are reserved for backend failures.
	Load(ctx context.Context, key string) (queue.State, error)
	// Save replaces the stored state for key as a whole.
	Save(ctx context.Context, key string, s queue.State) error
	// Close releases backend resources.
	Close() error
}

// ErrEmptyKey is returned when a session key is empty.
var ErrEmptyKey = errors.New("session key is required")

// encodeState serializes the state for storage.
func encodeState(s queue.State) ([]byte, error) {
	c := s.Clone()
	data, err := json.Marshal(&c)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode queue state")
	}
	return data, nil
}

// decodeState parses a stored record. Malformed records yield the default.
func decodeState(key string, data []byte) queue.State {
	var s queue.State
	if err := json.Unmarshal(data, &s); err != nil {
		zlog.Warn().Msgf("store: discarding undecodable record: key=%s error=%v", key, err)
		return queue.Default()
	}
	if !s.Valid() {
		zlog.Warn().Msgf("store: discarding inconsistent record: key=%s songs=%d current=%d played=%d",
			key, len(s.Songs), s.Current, len(s.Played))
		return queue.Default()
	}
	s.Normalize()
	return s
}
