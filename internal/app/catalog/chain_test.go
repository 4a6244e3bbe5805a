package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tubequeue/internal/domain/song"
)

// Mock provider for testing
type mockProvider struct {
	name  string
	songs []song.Ref
	err   error
	calls []string
}

func (m *mockProvider) lookup(kind, name string) ([]song.Ref, error) {
	m.calls = append(m.calls, kind+":"+name)
	return m.songs, m.err
}

func (m *mockProvider) ByAlbum(_ context.Context, name string) ([]song.Ref, error) {
	return m.lookup("album", name)
}

func (m *mockProvider) ByPlaylistOrGenre(_ context.Context, name string) ([]song.Ref, error) {
	return m.lookup("playlist", name)
}

func (m *mockProvider) BySongName(_ context.Context, name string) ([]song.Ref, error) {
	return m.lookup("song", name)
}

func (m *mockProvider) Name() string { return m.name }

func chainOf(providers ...*mockProvider) *Chain {
	var pm []ProviderWithMetadata
	for _, p := range providers {
		pm = append(pm, ProviderWithMetadata{Provider: p, DisplayName: p.name})
	}
	return NewChain(pm)
}

func TestChain_Search_FirstNonEmpty(t *testing.T) {
	first := &mockProvider{name: "first", songs: []song.Ref{}}
	second := &mockProvider{name: "second", songs: []song.Ref{{ID: "A", Title: "a"}, {ID: "A", Title: "dup"}, {ID: "B"}}}
	third := &mockProvider{name: "third", songs: []song.Ref{{ID: "C"}}}

	result, err := chainOf(first, second, third).Search(context.Background(), SourceAlbum, "discovery")
	require.NoError(t, err)

	assert.Equal(t, "second", result.DisplayName)
	assert.Equal(t, []string{"A", "B"}, song.IDs(result.Songs))
	assert.Equal(t, []string{"album:discovery"}, first.calls)
	assert.Empty(t, third.calls)
}

func TestChain_Search_ErrorFallsThrough(t *testing.T) {
	failing := &mockProvider{name: "failing", err: errors.New("timeout")}
	ok := &mockProvider{name: "ok", songs: []song.Ref{{ID: "A"}}}

	result, err := chainOf(failing, ok).Search(context.Background(), SourceSong, "x")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.DisplayName)
	assert.Equal(t, []string{"song:x"}, ok.calls)
}

func TestChain_Search_NoResults(t *testing.T) {
	failing := &mockProvider{name: "failing", err: errors.New("timeout")}
	empty := &mockProvider{name: "empty", songs: nil}

	result, err := chainOf(failing, empty).Search(context.Background(), SourcePlaylist, "nothing")
	require.NoError(t, err)
	assert.Empty(t, result.Songs)
	assert.NotNil(t, result.Songs)
	assert.Empty(t, result.DisplayName)
}

func TestChain_Search_AllFailed(t *testing.T) {
	a := &mockProvider{name: "a", err: errors.New("boom a")}
	b := &mockProvider{name: "b", err: errors.New("boom b")}

	_, err := chainOf(a, b).Search(context.Background(), SourcePlaylist, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
	assert.Contains(t, err.Error(), "boom a")
}

func TestChain_Search_Cancelled(t *testing.T) {
	p := &mockProvider{name: "p", songs: []song.Ref{{ID: "A"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chainOf(p).Search(ctx, SourceAlbum, "x")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, p.calls)
}

func TestChain_Search_NoProviders(t *testing.T) {
	_, err := NewChain(nil).Search(context.Background(), SourceAlbum, "x")
	assert.Error(t, err)
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		input    string
		expected Source
		wantErr  bool
	}{
		{input: "album", expected: SourceAlbum},
		{input: "playlist", expected: SourcePlaylist},
		{input: "genre", expected: SourcePlaylist},
		{input: "song", expected: SourceSong},
		{input: "artist", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSource(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSource)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
			assert.NotEqual(t, "unknown", got.String())
		})
	}
}

func TestLookup_InvalidSource(t *testing.T) {
	_, err := Lookup(context.Background(), &mockProvider{}, Source(9), "x")
	assert.ErrorIs(t, err, ErrInvalidSource)
}
