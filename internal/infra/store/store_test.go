package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tubequeue/internal/domain/queue"
	"github.com/osa030/tubequeue/internal/domain/song"
)

func sampleState() queue.State {
	return queue.State{
		Songs:   []song.Ref{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"}},
		Current: 1,
		Played:  []int{0, 1},
		Shuffle: true,
		Liked:   []song.Ref{{ID: "a", Title: "A"}},
		Query:   "test album",
	}
}

func newSQLStore(t *testing.T) *SQL {
	t.Helper()
	s, err := NewSQL(SQLConfig{DSN: filepath.Join(t.TempDir(), "queue.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func backends(t *testing.T) map[string]Store {
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": newSQLStore(t),
	}
}

func TestStore_LoadMissingReturnsDefault(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			st, err := s.Load(context.Background(), "unknown")
			require.NoError(t, err)
			assert.Equal(t, queue.Default(), st)
		})
	}
}

func TestStore_SaveThenLoad(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, "session-1", sampleState()))

			st, err := s.Load(ctx, "session-1")
			require.NoError(t, err)
			assert.Equal(t, sampleState(), st)

			// A second save replaces the record as a whole.
			next := sampleState()
			next.Current = 2
			next.Played = []int{0, 1, 2}
			require.NoError(t, s.Save(ctx, "session-1", next))

			st, err = s.Load(ctx, "session-1")
			require.NoError(t, err)
			assert.Equal(t, next, st)
		})
	}
}

func TestStore_EmptyKey(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(context.Background(), "")
			assert.ErrorIs(t, err, ErrEmptyKey)
			assert.ErrorIs(t, s.Save(context.Background(), "", queue.Default()), ErrEmptyKey)
		})
	}
}

func TestMemory_LoadedStateIsDetached(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Save(ctx, "k", sampleState()))

	st, err := m.Load(ctx, "k")
	require.NoError(t, err)
	st.Songs[0].Title = "mutated"

	again, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Songs[0].Title)
	assert.Equal(t, 1, m.Count())
}

func TestMemory_MalformedRecordLoadsDefault(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "{{{"},
		{name: "cursor out of range", payload: `{"songs":[{"id":"a","title":"A"}],"current":4,"played":[0]}`},
		{name: "played out of range", payload: `{"songs":[{"id":"a","title":"A"}],"current":0,"played":[0,7]}`},
		{name: "cursor not in played", payload: `{"songs":[{"id":"a","title":"A"},{"id":"b","title":"B"}],"current":1,"played":[0]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			m.records["k"] = []byte(tt.payload)

			st, err := m.Load(context.Background(), "k")
			require.NoError(t, err)
			assert.Equal(t, queue.Default(), st)
		})
	}
}

func TestSQL_MalformedRecordLoadsDefault(t *testing.T) {
	s := newSQLStore(t)
	require.NoError(t, s.db.Create(&queueRecord{SessionKey: "k", Payload: "not-json"}).Error)

	st, err := s.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, queue.Default(), st)
}

func TestSQL_LoadFailsAfterClose(t *testing.T) {
	s, err := NewSQL(SQLConfig{DSN: filepath.Join(t.TempDir(), "closed.db")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Load(context.Background(), "k")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		storeType string
		settings  map[string]any
		wantErr   bool
	}{
		{name: "memory", storeType: "memory"},
		{name: "default is memory", storeType: ""},
		{name: "sqlite", storeType: "sqlite", settings: map[string]any{"dsn": filepath.Join(t.TempDir(), "f.db")}},
		{name: "unknown", storeType: "dynamo", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.storeType, tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, s.Close())
		})
	}
}
