package playback

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tubequeue/internal/domain/directive"
	"github.com/osa030/tubequeue/internal/domain/queue"
	"github.com/osa030/tubequeue/internal/domain/song"
)

// Mock store for testing
type mockStore struct {
	states  map[string]queue.State
	saves   int
	loadErr error
	saveErr error
}

func newMockStore() *mockStore {
	return &mockStore{states: make(map[string]queue.State)}
}

func (m *mockStore) Load(_ context.Context, key string) (queue.State, error) {
	if m.loadErr != nil {
		return queue.State{}, m.loadErr
	}
	st, ok := m.states[key]
	if !ok {
		return queue.Default(), nil
	}
	return st.Clone(), nil
}

func (m *mockStore) Save(_ context.Context, key string, s queue.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.states[key] = s.Clone()
	return nil
}

// Mock resolver for testing
type mockResolver struct {
	calls []string
	err   error
}

func (m *mockResolver) Resolve(_ context.Context, songID string) (string, error) {
	m.calls = append(m.calls, songID)
	if m.err != nil {
		return "", m.err
	}
	return "https://stream.test/" + songID, nil
}

var (
	songA = song.Ref{ID: "A", Title: "Song A"}
	songB = song.Ref{ID: "B", Title: "Song B"}
	songC = song.Ref{ID: "C", Title: "Song C"}
)

func testConfig() Config {
	return Config{Messages: Messages{
		EndOfList:  "This song list has reached the end.",
		Goodbye:    "Goodbye!",
		LikedQuery: "liked songs",
	}}
}

func newTestController(st *mockStore, res *mockResolver) *Controller {
	seq := queue.NewSequencer(rand.New(rand.NewPCG(7, 11)))
	return NewController(st, res, seq, testConfig())
}

func TestController_StartPlaylist(t *testing.T) {
	st := newMockStore()
	st.states["s1"] = queue.State{
		Songs:   []song.Ref{songC},
		Played:  []int{0},
		Shuffle: true,
		Liked:   []song.Ref{songC},
		Query:   "old",
	}
	res := &mockResolver{}
	c := newTestController(st, res)

	d, err := c.StartPlaylist(context.Background(), "s1", "abc", []song.Ref{songA, songB, songC})
	require.NoError(t, err)

	assert.Equal(t, directive.KindReplaceAndPlay, d.Kind)
	assert.Equal(t, "A", d.SongID)
	assert.Equal(t, "https://stream.test/A", d.URL)
	assert.Equal(t, int64(0), d.OffsetMs)
	assert.True(t, d.Announce)
	assert.Equal(t, []string{"A"}, res.calls)
	assert.Equal(t, 1, st.saves)

	saved := st.states["s1"]
	assert.Equal(t, []song.Ref{songA, songB, songC}, saved.Songs)
	assert.Equal(t, 0, saved.Current)
	assert.Equal(t, []int{0}, saved.Played)
	assert.True(t, saved.Shuffle, "shuffle is preserved")
	assert.Equal(t, []song.Ref{songC}, saved.Liked, "liked is preserved")
	assert.Equal(t, "abc", saved.Query)
}

func TestController_StartPlaylist_Empty(t *testing.T) {
	st := newMockStore()
	before := queue.State{Songs: []song.Ref{songA}, Played: []int{0}, Liked: []song.Ref{}}
	st.states["s1"] = before
	res := &mockResolver{}
	c := newTestController(st, res)

	d, err := c.StartPlaylist(context.Background(), "s1", "nothing here", nil)
	require.NoError(t, err)

	assert.Equal(t, directive.NoResults("nothing here"), d)
	assert.Equal(t, 0, st.saves)
	assert.Empty(t, res.calls)
	assert.Equal(t, before, st.states["s1"])
}

func TestController_Advance_UserNext(t *testing.T) {
	st := newMockStore()
	st.states["s1"] = queue.State{Songs: []song.Ref{songA, songB, songC}, Current: 0, Played: []int{0}, Liked: []song.Ref{}}
	c := newTestController(st, &mockResolver{})

	d, err := c.Advance(context.Background(), "s1", TriggerUserNext)
	require.NoError(t, err)

	assert.Equal(t, directive.ReplaceAndPlay(songB, "https://stream.test/B", true), d)
	assert.Equal(t, 1, st.states["s1"].Current)
	assert.Equal(t, []int{0, 1}, st.states["s1"].Played)
}

func TestController_Advance_NearlyFinished(t *testing.T) {
	st := newMockStore()
	st.states["s1"] = queue.State{Songs: []song.Ref{songA, songB, songC}, Current: 1, Played: []int{0, 1}, Liked: []song.Ref{}}
	c := newTestController(st, &mockResolver{})

	d, err := c.Advance(context.Background(), "s1", TriggerPlayerNearlyFinished)
	require.NoError(t, err)

	assert.Equal(t, directive.KindEnqueueAfter, d.Kind)
	assert.Equal(t, "C", d.SongID)
	assert.Equal(t, "B", d.ContinuationToken, "continuation token is the song audible before the call")
	assert.Equal(t, "https://stream.test/C", d.URL)
	assert.Equal(t, 2, st.states["s1"].Current)
	assert.Equal(t, []int{0, 1, 2}, st.states["s1"].Played)
}

func TestController_Advance_PlayerFailed(t *testing.T) {
	st := newMockStore()
	st.states["s1"] = queue.State{Songs: []song.Ref{songA, songB}, Current: 0, Played: []int{0}, Liked: []song.Ref{}}
	c := newTestController(st, &mockResolver{})

	d, err := c.Advance(context.Background(), "s1", TriggerPlayerFailed)
	require.NoError(t, err)

	assert.Equal(t, directive.ReplaceAndPlay(songB, "https://stream.test/B", false), d)
}

func TestController_Advance_TriggersShareTransition(t *testing.T) {
	initial := queue.State{Songs: []song.Ref{songA, songB, songC}, Current: 0, Played: []int{0}, Liked: []song.Ref{}}

	var results []queue.State
	for _, trigger := range []Trigger{TriggerUserNext, TriggerPlayerNearlyFinished, TriggerPlayerFailed} {
		st := newMockStore()
		st.states["s1"] = initial.Clone()
		c := newTestController(st, &mockResolver{})

		_, err := c.Advance(context.Background(), "s1", trigger)
		require.NoError(t, err)
		results = append(results, st.states["s1"])
	}

	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func TestController_Advance_Exhausted(t *testing.T) {
	for _, shuffle := range []bool{false, true} {
		st := newMockStore()
		before := queue.State{Songs: []song.Ref{songA, songB, songC}, Current: 1, Played: []int{2, 0, 1}, Shuffle: shuffle, Liked: []song.Ref{}}
		st.states["s1"] = before
		res := &mockResolver{}
		c := newTestController(st, res)

		d, err := c.Advance(context.Background(), "s1", TriggerPlayerNearlyFinished)
		require.NoError(t, err)

		assert.Equal(t, directive.Stop("This song list has reached the end."), d)
		assert.Equal(t, 0, st.saves, "exhaustion persists nothing")
		assert.Equal(t, before, st.states["s1"])
		assert.Empty(t, res.calls)
	}
}

func TestController_Advance_IdleSession(t *testing.T) {
	c := newTestController(newMockStore(), &mockResolver{})

	d, err := c.Advance(context.Background(), "new", TriggerUserNext)
	require.NoError(t, err)
	assert.Equal(t, directive.KindStop, d.Kind)
}

func TestController_Advance_InvalidTrigger(t *testing.T) {
	c := newTestController(newMockStore(), &mockResolver{})

	_, err := c.Advance(context.Background(), "s1", Trigger(42))
	assert.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestController_Advance_ResolverFailure(t *testing.T) {
	st := newMockStore()
	before := queue.State{Songs: []song.Ref{songA, songB}, Current: 0, Played: []int{0}, Liked: []song.Ref{}}
	st.states["s1"] = before
	c := newTestController(st, &mockResolver{err: errors.New("geo blocked")})

	_, err := c.Advance(context.Background(), "s1", TriggerUserNext)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransient))
	assert.False(t, errors.Is(err, ErrStore))
	assert.Equal(t, before, st.states["s1"], "failed operation persists nothing")
	assert.Equal(t, 0, st.saves)
}

func TestController_SaveFailure(t *testing.T) {
	st := newMockStore()
	st.states["s1"] = queue.State{Songs: []song.Ref{songA, songB}, Current: 0, Played: []int{0}, Liked: []song.Ref{}}
	st.saveErr = errors.New("disk full")
	c := newTestController(st, &mockResolver{})

	d, err := c.Advance(context.Background(), "s1", TriggerUserNext)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStore))
	assert.Equal(t, directive.Directive{}, d)

	_, err = c.StartPlaylist(context.Background(), "s1", "q", []song.Ref{songC})
	assert.True(t, errors.Is(err, ErrStore))

	_, err = c.ToggleShuffle(context.Background(), "s1", true)
	assert.True(t, errors.Is(err, ErrStore))
}

func TestController_LoadFailure(t *testing.T) {
	st := newMockStore()
	st.loadErr = errors.New("connection refused")
	c := newTestController(st, &mockResolver{})

	_, err := c.SelectLikedPlaylist(context.Background(), "s1")
	assert.True(t, errors.Is(err, ErrStore))

	_, err = c.Like(context.Background(), "s1")
	assert.True(t, errors.Is(err, ErrStore))

	_, err = c.Status(context.Background(), "s1")
	assert.True(t, errors.Is(err, ErrStore))
}

func TestController_ToggleShuffle(t *testing.T) {
	st := newMockStore()
	st.states["s1"] = queue.State{Songs: []song.Ref{songA, songB}, Current: 1, Played: []int{0, 1}, Liked: []song.Ref{}}
	c := newTestController(st, &mockResolver{})

	d, err := c.ToggleShuffle(context.Background(), "s1", true)
	require.NoError(t, err)
	assert.Equal(t, directive.None(), d)
	assert.True(t, st.states["s1"].Shuffle)
	assert.Equal(t, 1, st.states["s1"].Current)
	assert.Equal(t, []int{0, 1}, st.states["s1"].Played)

	_, err = c.ToggleShuffle(context.Background(), "s1", false)
	require.NoError(t, err)
	assert.False(t, st.states["s1"].Shuffle)
}

func TestController_Like_Idempotent(t *testing.T) {
	st := newMockStore()
	st.states["s1"] = queue.State{Songs: []song.Ref{songA, songB}, Current: 1, Played: []int{0, 1}, Liked: []song.Ref{}}
	c := newTestController(st, &mockResolver{})

	for i := 0; i < 2; i++ {
		d, err := c.Like(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, directive.None(), d)
	}

	assert.Equal(t, []song.Ref{songB}, st.states["s1"].Liked)
	assert.Equal(t, 1, st.saves, "liking an already liked song does not save")
}

func TestController_Like_NothingPlaying(t *testing.T) {
	st := newMockStore()
	c := newTestController(st, &mockResolver{})

	d, err := c.Like(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, directive.None(), d)
	assert.Equal(t, 0, st.saves)
}

func TestController_SelectLikedPlaylist(t *testing.T) {
	t.Run("empty liked list", func(t *testing.T) {
		st := newMockStore()
		before := queue.State{Songs: []song.Ref{songA}, Played: []int{0}, Liked: []song.Ref{}}
		st.states["s1"] = before
		c := newTestController(st, &mockResolver{})

		d, err := c.SelectLikedPlaylist(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, directive.NoResults("liked songs"), d)
		assert.Equal(t, 0, st.saves)
		assert.Equal(t, before, st.states["s1"])
	})

	t.Run("plays liked songs", func(t *testing.T) {
		st := newMockStore()
		st.states["s1"] = queue.State{
			Songs:   []song.Ref{songA, songB, songC},
			Current: 2,
			Played:  []int{0, 1, 2},
			Liked:   []song.Ref{songC, songA},
		}
		c := newTestController(st, &mockResolver{})

		d, err := c.SelectLikedPlaylist(context.Background(), "s1")
		require.NoError(t, err)
		assert.Equal(t, "C", d.SongID)

		saved := st.states["s1"]
		assert.Equal(t, []song.Ref{songC, songA}, saved.Songs)
		assert.Equal(t, []song.Ref{songC, songA}, saved.Liked)
		assert.Equal(t, []int{0}, saved.Played)
		assert.Equal(t, "liked songs", saved.Query)
	})
}

func TestController_Stop(t *testing.T) {
	st := newMockStore()
	c := newTestController(st, &mockResolver{})

	d, err := c.Stop(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, directive.Stop("Goodbye!"), d)
	assert.Equal(t, 0, st.saves)
}

func TestController_FullPassThenRestart(t *testing.T) {
	st := newMockStore()
	c := newTestController(st, &mockResolver{})
	ctx := context.Background()

	_, err := c.ToggleShuffle(ctx, "s1", true)
	require.NoError(t, err)

	_, err = c.StartPlaylist(ctx, "s1", "album", []song.Ref{songA, songB, songC})
	require.NoError(t, err)

	seen := map[string]bool{"A": true}
	for i := 0; i < 2; i++ {
		d, err := c.Advance(ctx, "s1", TriggerPlayerNearlyFinished)
		require.NoError(t, err)
		require.Equal(t, directive.KindEnqueueAfter, d.Kind)
		assert.False(t, seen[d.SongID])
		seen[d.SongID] = true
	}

	d, err := c.Advance(ctx, "s1", TriggerUserNext)
	require.NoError(t, err)
	assert.Equal(t, directive.KindStop, d.Kind)

	status, err := c.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, queue.PhaseExhausted, status.Phase())

	d, err = c.StartPlaylist(ctx, "s1", "again", []song.Ref{songB, songC})
	require.NoError(t, err)
	assert.Equal(t, "B", d.SongID)

	status, err = c.Status(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, queue.PhasePlaying, status.Phase())
	assert.True(t, status.Shuffle)
}

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		input    string
		expected Trigger
		wantErr  bool
	}{
		{input: "user_next", expected: TriggerUserNext},
		{input: "next", expected: TriggerUserNext},
		{input: "player_nearly_finished", expected: TriggerPlayerNearlyFinished},
		{input: "failed", expected: TriggerPlayerFailed},
		{input: "rewind", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTrigger(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTrigger)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
