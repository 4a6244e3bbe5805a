// Package playback provides the playback controller that advances a
// session's queue and produces playback directives.
package playback

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/domain/directive"
	"github.com/osa030/tubequeue/internal/domain/queue"
	"github.com/osa030/tubequeue/internal/domain/song"
)

// Errors
var (
	ErrStore          = errors.New("session store failure")
	ErrTransient      = errors.New("transient failure")
	ErrInvalidTrigger = errors.New("invalid trigger")
)

// Store loads and saves queue state by session key.
type Store interface {
	Load(ctx context.Context, key string) (queue.State, error)
	Save(ctx context.Context, key string, s queue.State) error
}

// StreamResolver turns a song ID into a playable URL.
type StreamResolver interface {
	Resolve(ctx context.Context, songID string) (string, error)
}

// Messages holds the texts carried by directives.
type Messages struct {
	EndOfList  string // Stop message when the playlist is exhausted
	Goodbye    string // Stop message for an explicit stop
	LikedQuery string // Query label used when the liked list is empty
}

// Config holds controller configuration.
type Config struct {
	Messages Messages
}

// Controller applies one event to one session's queue.
// It holds no per-session state; callers serialize operations per key.
type Controller struct {
	store     Store
	resolver  StreamResolver
	sequencer *queue.Sequencer
	config    Config
}

// NewController creates a new playback controller.
func NewController(store Store, resolver StreamResolver, sequencer *queue.Sequencer, config Config) *Controller {
	if sequencer == nil {
		sequencer = queue.NewSequencer(nil)
	}
	return &Controller{
		store:     store,
		resolver:  resolver,
		sequencer: sequencer,
		config:    config,
	}
}

// StartPlaylist replaces the session's playlist with songs and plays the first one.
// An empty songs list yields a NoResults directive and touches nothing.
func (c *Controller) StartPlaylist(ctx context.Context, key, query string, songs []song.Ref) (directive.Directive, error) {
	if len(songs) == 0 {
		zlog.Debug().Msgf("playback: no results: key=%s query=%q", key, query)
		return directive.NoResults(query), nil
	}

	st, err := c.load(ctx, key)
	if err != nil {
		return directive.Directive{}, err
	}
	return c.start(ctx, key, st, query, songs)
}

// SelectLikedPlaylist starts playback from the session's liked songs.
func (c *Controller) SelectLikedPlaylist(ctx context.Context, key string) (directive.Directive, error) {
	st, err := c.load(ctx, key)
	if err != nil {
		return directive.Directive{}, err
	}

	if len(st.Liked) == 0 {
		zlog.Debug().Msgf("playback: liked list is empty: key=%s", key)
		return directive.NoResults(c.config.Messages.LikedQuery), nil
	}
	return c.start(ctx, key, st, c.config.Messages.LikedQuery, st.Liked)
}

func (c *Controller) start(ctx context.Context, key string, st queue.State, query string, songs []song.Ref) (directive.Directive, error) {
	st.Restart(query, songs)
	first := st.Songs[0]

	url, err := c.resolve(ctx, first)
	if err != nil {
		return directive.Directive{}, err
	}
	if err := c.save(ctx, key, st); err != nil {
		return directive.Directive{}, err
	}

	zlog.Info().Msgf("playback: playlist started: key=%s query=%q songs=%d shuffle=%v first=%s",
		key, query, len(st.Songs), st.Shuffle, first.ID)
	return directive.ReplaceAndPlay(first, url, true), nil
}

// Advance moves the session to the next song. Every trigger shares the same
// state transition; the trigger only selects the directive shape.
func (c *Controller) Advance(ctx context.Context, key string, trigger Trigger) (directive.Directive, error) {
	if trigger.String() == "unknown" {
		return directive.Directive{}, errors.Wrapf(ErrInvalidTrigger, "%d", int(trigger))
	}

	st, err := c.load(ctx, key)
	if err != nil {
		return directive.Directive{}, err
	}

	previous, _ := st.CurrentSong()

	next, ok := c.sequencer.Next(st)
	if !ok {
		zlog.Info().Msgf("playback: playlist exhausted: key=%s trigger=%s songs=%d played=%d",
			key, trigger, len(st.Songs), len(st.Played))
		return directive.Stop(c.config.Messages.EndOfList), nil
	}

	st.MoveTo(next)
	target := st.Songs[next]

	url, err := c.resolve(ctx, target)
	if err != nil {
		return directive.Directive{}, err
	}
	if err := c.save(ctx, key, st); err != nil {
		return directive.Directive{}, err
	}

	zlog.Debug().Msgf("playback: advanced: key=%s trigger=%s from=%s to=%s index=%d played=%d/%d",
		key, trigger, previous.ID, target.ID, next, len(st.Played), len(st.Songs))

	switch trigger {
	case TriggerPlayerNearlyFinished:
		return directive.EnqueueAfter(target, url, previous.ID), nil
	case TriggerPlayerFailed:
		return directive.ReplaceAndPlay(target, url, false), nil
	default:
		return directive.ReplaceAndPlay(target, url, true), nil
	}
}

// ToggleShuffle sets the play-order policy.
func (c *Controller) ToggleShuffle(ctx context.Context, key string, on bool) (directive.Directive, error) {
	st, err := c.load(ctx, key)
	if err != nil {
		return directive.Directive{}, err
	}

	st.Shuffle = on
	if err := c.save(ctx, key, st); err != nil {
		return directive.Directive{}, err
	}

	zlog.Info().Msgf("playback: shuffle set: key=%s shuffle=%v", key, on)
	return directive.None(), nil
}

// Like adds the current song to the liked list once.
func (c *Controller) Like(ctx context.Context, key string) (directive.Directive, error) {
	st, err := c.load(ctx, key)
	if err != nil {
		return directive.Directive{}, err
	}

	current, ok := st.CurrentSong()
	if !ok {
		zlog.Debug().Msgf("playback: like ignored, nothing playing: key=%s", key)
		return directive.None(), nil
	}

	if !st.LikeCurrent() {
		zlog.Debug().Msgf("playback: already liked: key=%s song=%s", key, current.ID)
		return directive.None(), nil
	}
	if err := c.save(ctx, key, st); err != nil {
		return directive.Directive{}, err
	}

	zlog.Info().Msgf("playback: liked: key=%s song=%s liked=%d", key, current.ID, len(st.Liked))
	return directive.None(), nil
}

// Stop ends playback without touching the queue.
func (c *Controller) Stop(_ context.Context, key string) (directive.Directive, error) {
	zlog.Debug().Msgf("playback: stop requested: key=%s", key)
	return directive.Stop(c.config.Messages.Goodbye), nil
}

// Status returns the stored state of the session.
func (c *Controller) Status(ctx context.Context, key string) (queue.State, error) {
	return c.load(ctx, key)
}

func (c *Controller) load(ctx context.Context, key string) (queue.State, error) {
	st, err := c.store.Load(ctx, key)
	if err != nil {
		return queue.State{}, errors.Mark(errors.Wrapf(err, "failed to load session: key=%s", key), ErrStore)
	}
	return st, nil
}

func (c *Controller) save(ctx context.Context, key string, st queue.State) error {
	if err := c.store.Save(ctx, key, st); err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to save session: key=%s", key), ErrStore)
	}
	return nil
}

func (c *Controller) resolve(ctx context.Context, s song.Ref) (string, error) {
	url, err := c.resolver.Resolve(ctx, s.ID)
	if err != nil {
		return "", errors.Mark(errors.Wrapf(err, "failed to resolve stream: song=%s", s.ID), ErrTransient)
	}
	if url == "" {
		return "", errors.Mark(errors.Newf("empty stream url: song=%s", s.ID), ErrTransient)
	}
	return url, nil
}
