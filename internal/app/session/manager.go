// Package session provides the session manager that runs playback
// operations for many sessions, one operation per session at a time.
package session

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/app/catalog"
	"github.com/osa030/tubequeue/internal/app/notification"
	"github.com/osa030/tubequeue/internal/app/playback"
	"github.com/osa030/tubequeue/internal/domain/directive"
	"github.com/osa030/tubequeue/internal/domain/queue"
	"github.com/osa030/tubequeue/internal/domain/song"
	"github.com/osa030/tubequeue/internal/infra/config"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
)

// Catalog looks up songs for a source and name.
type Catalog interface {
	Search(ctx context.Context, source catalog.Source, name string) (catalog.Result, error)
}

// Config holds session manager configuration.
type Config struct {
	OperationTimeout time.Duration
	Messages         config.MessagesConfig
}

// Outcome is the result of one operation: the directive plus the text a
// voice front end speaks with it.
type Outcome struct {
	Directive directive.Directive
	Speech    string
	Provider  string // Display name of the catalog provider that found the songs
}

// Status describes a session's queue.
type Status struct {
	Key     string
	Phase   queue.Phase
	Query   string
	Current song.Ref
	Playing bool
	Played  int
	Total   int
	Shuffle bool
	Liked   []song.Ref
}

// Manager manages playback sessions.
type Manager struct {
	catalog      Catalog
	playback     *playback.Controller
	notification *notification.Manager
	locks        *keyedMutex
	config       Config
}

// NewManager creates a new session manager.
func NewManager(c Catalog, controller *playback.Controller, notif *notification.Manager, cfg Config) *Manager {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = 10 * time.Second
	}
	if notif == nil {
		notif = notification.NewManager()
	}
	return &Manager{
		catalog:      c,
		playback:     controller,
		notification: notif,
		locks:        newKeyedMutex(),
		config:       cfg,
	}
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Play looks songs up by source and name and starts them as the session's playlist.
func (m *Manager) Play(ctx context.Context, key string, source catalog.Source, name string) (Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Outcome{}, errors.Wrap(ErrInvalidRequest, "name is required")
	}

	var provider string
	out, err := m.run(ctx, key, "play_"+source.String(), func(ctx context.Context) (directive.Directive, error) {
		result, err := m.catalog.Search(ctx, source, name)
		if err != nil {
			return directive.Directive{}, errors.Mark(errors.Wrapf(err, "catalog lookup failed: source=%s name=%q", source, name), playback.ErrTransient)
		}
		provider = result.DisplayName
		return m.playback.StartPlaylist(ctx, key, name, result.Songs)
	})
	out.Provider = provider
	return out, err
}

// PlayLiked starts the session's liked songs as its playlist.
func (m *Manager) PlayLiked(ctx context.Context, key string) (Outcome, error) {
	return m.run(ctx, key, "play_liked", func(ctx context.Context) (directive.Directive, error) {
		return m.playback.SelectLikedPlaylist(ctx, key)
	})
}

// Advance moves the session to its next song.
func (m *Manager) Advance(ctx context.Context, key string, trigger playback.Trigger) (Outcome, error) {
	return m.run(ctx, key, "advance_"+trigger.String(), func(ctx context.Context) (directive.Directive, error) {
		return m.playback.Advance(ctx, key, trigger)
	})
}

// SetShuffle turns shuffle on or off.
func (m *Manager) SetShuffle(ctx context.Context, key string, on bool) (Outcome, error) {
	return m.run(ctx, key, "shuffle", func(ctx context.Context) (directive.Directive, error) {
		return m.playback.ToggleShuffle(ctx, key, on)
	})
}

// Like adds the song playing to the session's liked songs.
func (m *Manager) Like(ctx context.Context, key string) (Outcome, error) {
	return m.run(ctx, key, "like", func(ctx context.Context) (directive.Directive, error) {
		return m.playback.Like(ctx, key)
	})
}

// Stop ends playback.
func (m *Manager) Stop(ctx context.Context, key string) (Outcome, error) {
	return m.run(ctx, key, "stop", func(ctx context.Context) (directive.Directive, error) {
		return m.playback.Stop(ctx, key)
	})
}

// GetStatus returns the session's queue status.
func (m *Manager) GetStatus(ctx context.Context, key string) (*Status, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	unlock := m.locks.Lock(key)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, m.config.OperationTimeout)
	defer cancel()

	st, err := m.playback.Status(ctx, key)
	if err != nil {
		return nil, transient(err)
	}

	current, playing := st.CurrentSong()
	return &Status{
		Key:     key,
		Phase:   st.Phase(),
		Query:   st.Query,
		Current: current,
		Playing: playing,
		Played:  len(st.Played),
		Total:   len(st.Songs),
		Shuffle: st.Shuffle,
		Liked:   st.Liked,
	}, nil
}

// run executes op for key under the session lock and the operation timeout,
// then publishes the outcome to watchers.
func (m *Manager) run(ctx context.Context, key, operation string, op func(ctx context.Context) (directive.Directive, error)) (Outcome, error) {
	if err := validateKey(key); err != nil {
		return Outcome{}, err
	}

	unlock := m.locks.Lock(key)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, m.config.OperationTimeout)
	defer cancel()

	start := time.Now()
	d, err := op(ctx)
	if err != nil {
		err = transient(err)
		zlog.Warn().Msgf("session: operation failed: key=%s op=%s elapsed=%s error=%v", key, operation, time.Since(start), err)
		return Outcome{}, err
	}

	out := Outcome{Directive: d, Speech: m.speech(d)}
	zlog.Info().Msgf("session: operation done: key=%s op=%s directive=%s elapsed=%s", key, operation, d.Kind, time.Since(start))

	m.notification.Broadcast(notification.Event{
		SessionKey: key,
		Operation:  operation,
		Directive:  d,
		Speech:     out.Speech,
	})
	return out, nil
}

func (m *Manager) speech(d directive.Directive) string {
	switch d.Kind {
	case directive.KindReplaceAndPlay:
		if d.Announce {
			return m.config.Messages.StartingText(d.Title)
		}
	case directive.KindNoResults:
		return m.config.Messages.NoResultsText(d.Query)
	case directive.KindStop:
		return d.Message
	}
	return ""
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.Wrap(ErrInvalidRequest, "session key is required")
	}
	return nil
}

// transient marks context expiry as a transient failure.
func transient(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if !errors.Is(err, playback.ErrTransient) {
			return errors.Mark(err, playback.ErrTransient)
		}
	}
	return err
}
