package session

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tubequeue/internal/app/catalog"
	"github.com/osa030/tubequeue/internal/app/notification"
	"github.com/osa030/tubequeue/internal/app/playback"
	"github.com/osa030/tubequeue/internal/domain/directive"
	"github.com/osa030/tubequeue/internal/domain/queue"
	"github.com/osa030/tubequeue/internal/domain/song"
	"github.com/osa030/tubequeue/internal/infra/config"
	"github.com/osa030/tubequeue/internal/infra/store"
)

var (
	songA = song.Ref{ID: "aaaaaaaaaaa", Title: "One More Time"}
	songB = song.Ref{ID: "bbbbbbbbbbb", Title: "Aerodynamic"}
)

// Mock catalog
type mockCatalog struct {
	result catalog.Result
	err    error
	wait   bool
	calls  int32
}

func (m *mockCatalog) Search(ctx context.Context, _ catalog.Source, _ string) (catalog.Result, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.wait {
		<-ctx.Done()
		return catalog.Result{}, ctx.Err()
	}
	return m.result, m.err
}

type urlResolver struct{}

func (urlResolver) Resolve(_ context.Context, id string) (string, error) {
	return "https://stream.test/" + id, nil
}

type recorder struct {
	mu     sync.Mutex
	events []notification.Event
}

func (r *recorder) Send(e notification.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, 0, len(r.events))
	for _, e := range r.events {
		ops = append(ops, e.Operation)
	}
	return ops
}

var testMessages = config.MessagesConfig{
	Starting:  "Starting {title}",
	NoResults: "Nothing found for {query}. Try again.",
	EndOfList: "This song list has reached the end.",
	Goodbye:   "Goodbye!",
}

func newTestManager(t *testing.T, cat Catalog) (*Manager, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	controller := playback.NewController(mem, urlResolver{}, queue.NewSequencer(rand.New(rand.NewPCG(1, 2))), playback.Config{
		Messages: playback.Messages{
			EndOfList:  testMessages.EndOfList,
			Goodbye:    testMessages.Goodbye,
			LikedQuery: "liked songs",
		},
	})
	m := NewManager(cat, controller, notification.NewManager(), Config{
		OperationTimeout: time.Second,
		Messages:         testMessages,
	})
	return m, mem
}

func TestManager_Play(t *testing.T) {
	cat := &mockCatalog{result: catalog.Result{Songs: []song.Ref{songA, songB}, DisplayName: "YouTube Music"}}
	m, _ := newTestManager(t, cat)
	watcher := &recorder{}
	m.GetNotificationManager().Subscribe("echo-1", watcher)

	out, err := m.Play(context.Background(), "echo-1", catalog.SourceAlbum, " discovery ")
	require.NoError(t, err)

	assert.Equal(t, directive.KindReplaceAndPlay, out.Directive.Kind)
	assert.Equal(t, songA.ID, out.Directive.SongID)
	assert.Equal(t, "Starting One More Time", out.Speech)
	assert.Equal(t, "YouTube Music", out.Provider)
	assert.Equal(t, []string{"play_album"}, watcher.operations())

	status, err := m.GetStatus(context.Background(), "echo-1")
	require.NoError(t, err)
	assert.Equal(t, "discovery", status.Query)
	assert.Equal(t, queue.PhasePlaying, status.Phase)
	assert.Equal(t, songA, status.Current)
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, 1, status.Played)
}

func TestManager_Play_NoResults(t *testing.T) {
	m, mem := newTestManager(t, &mockCatalog{result: catalog.Result{Songs: []song.Ref{}}})

	out, err := m.Play(context.Background(), "echo-1", catalog.SourcePlaylist, "jazz")
	require.NoError(t, err)
	assert.Equal(t, directive.KindNoResults, out.Directive.Kind)
	assert.Equal(t, "Nothing found for jazz. Try again.", out.Speech)
	assert.Zero(t, mem.Count())
}

func TestManager_Play_CatalogFailureIsTransient(t *testing.T) {
	m, _ := newTestManager(t, &mockCatalog{err: errors.New("all providers failed")})

	_, err := m.Play(context.Background(), "echo-1", catalog.SourceSong, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, playback.ErrTransient))
}

func TestManager_Play_TimeoutIsTransient(t *testing.T) {
	m, _ := newTestManager(t, &mockCatalog{wait: true})
	m.config.OperationTimeout = 20 * time.Millisecond

	_, err := m.Play(context.Background(), "echo-1", catalog.SourceSong, "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, playback.ErrTransient))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestManager_InvalidRequest(t *testing.T) {
	cat := &mockCatalog{}
	m, _ := newTestManager(t, cat)

	_, err := m.Play(context.Background(), "", catalog.SourceAlbum, "x")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.Play(context.Background(), "k", catalog.SourceAlbum, "  ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = m.GetStatus(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Zero(t, atomic.LoadInt32(&cat.calls))
}

func TestManager_AdvanceToEnd(t *testing.T) {
	m, _ := newTestManager(t, &mockCatalog{result: catalog.Result{Songs: []song.Ref{songA, songB}}})
	ctx := context.Background()

	_, err := m.Play(ctx, "k", catalog.SourceAlbum, "discovery")
	require.NoError(t, err)

	out, err := m.Advance(ctx, "k", playback.TriggerPlayerNearlyFinished)
	require.NoError(t, err)
	assert.Equal(t, directive.KindEnqueueAfter, out.Directive.Kind)
	assert.Equal(t, songA.ID, out.Directive.ContinuationToken)
	assert.Empty(t, out.Speech)

	out, err = m.Advance(ctx, "k", playback.TriggerUserNext)
	require.NoError(t, err)
	assert.Equal(t, directive.KindStop, out.Directive.Kind)
	assert.Equal(t, "This song list has reached the end.", out.Speech)
}

func TestManager_LikeShuffleAndLiked(t *testing.T) {
	m, _ := newTestManager(t, &mockCatalog{result: catalog.Result{Songs: []song.Ref{songA, songB}}})
	ctx := context.Background()

	_, err := m.Play(ctx, "k", catalog.SourceAlbum, "discovery")
	require.NoError(t, err)

	out, err := m.Like(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, directive.KindNone, out.Directive.Kind)

	_, err = m.SetShuffle(ctx, "k", true)
	require.NoError(t, err)

	out, err = m.PlayLiked(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, songA.ID, out.Directive.SongID)

	status, err := m.GetStatus(ctx, "k")
	require.NoError(t, err)
	assert.True(t, status.Shuffle)
	assert.Equal(t, []song.Ref{songA}, status.Liked)
	assert.Equal(t, "liked songs", status.Query)
}

func TestManager_Stop(t *testing.T) {
	m, _ := newTestManager(t, &mockCatalog{})

	out, err := m.Stop(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, directive.KindStop, out.Directive.Kind)
	assert.Equal(t, "Goodbye!", out.Speech)
}

func TestManager_ConcurrentAdvancesNeverRepeat(t *testing.T) {
	songs := make([]song.Ref, 20)
	for i := range songs {
		songs[i] = song.Ref{ID: string(rune('a'+i)) + "0000000000"}
	}
	m, _ := newTestManager(t, &mockCatalog{result: catalog.Result{Songs: songs}})
	ctx := context.Background()

	_, err := m.Play(ctx, "k", catalog.SourcePlaylist, "mix")
	require.NoError(t, err)
	_, err = m.SetShuffle(ctx, "k", true)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := map[string]int{songs[0].ID: 1}
	var wg sync.WaitGroup
	for range len(songs) - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := m.Advance(ctx, "k", playback.TriggerUserNext)
			if err != nil || out.Directive.Kind != directive.KindReplaceAndPlay {
				return
			}
			mu.Lock()
			seen[out.Directive.SongID]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, len(songs))
	for id, n := range seen {
		assert.Equal(t, 1, n, "song %s played more than once", id)
	}
	assert.Zero(t, m.locks.size())
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlockA := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Equal(t, 2, k.size())

	acquired := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock on the same key must wait")
	case <-time.After(20 * time.Millisecond):
	}

	unlockA()
	<-acquired
	unlockB()
	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 5*time.Millisecond)
}
