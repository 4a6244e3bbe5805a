// Package queue provides the per-session playback queue record and the
// sequencer that decides what plays next.
package queue

import (
	"slices"

	"github.com/samber/lo"

	"github.com/osa030/tubequeue/internal/domain/song"
)

// Phase represents the lifecycle phase of a session's queue.
type Phase int

const (
	PhaseIdle      Phase = iota // No songs loaded
	PhasePlaying                // Songs loaded, advancing
	PhaseExhausted              // Every song visited once
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePlaying:
		return "playing"
	case PhaseExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// State is the persisted queue record of one session.
// Values are copied in and out of the store; nothing else holds a reference.
type State struct {
	Songs   []song.Ref `json:"songs"`   // Active playlist
	Current int        `json:"current"` // Index of the song playing (or about to)
	Played  []int      `json:"played"`  // Indices advanced through, in order, no duplicates
	Shuffle bool       `json:"shuffle"` // Play-order policy
	Liked   []song.Ref `json:"liked"`   // Liked songs, unique by ID
	Query   string     `json:"query"`   // Last search string
}

// Default returns the state of a session with no record.
func Default() State {
	return State{
		Songs:  []song.Ref{},
		Played: []int{},
		Liked:  []song.Ref{},
	}
}

// Phase derives the lifecycle phase from the record.
func (s *State) Phase() Phase {
	if len(s.Songs) == 0 {
		return PhaseIdle
	}
	if !s.HasNext() {
		return PhaseExhausted
	}
	return PhasePlaying
}

// Candidates returns the indices the next advance may move to. Shuffle may
// pick any unplayed index; sequential order only takes the first unplayed
// index after the cursor and never wraps. Empty means exhausted.
func (s *State) Candidates() []int {
	if len(s.Songs) == 0 || len(s.Played) >= len(s.Songs) {
		return nil
	}
	if s.Shuffle {
		return lo.Filter(lo.Range(len(s.Songs)), func(i int, _ int) bool {
			return !s.HasPlayed(i)
		})
	}
	for i := s.Current + 1; i < len(s.Songs); i++ {
		if !s.HasPlayed(i) {
			return []int{i}
		}
	}
	return nil
}

// HasNext reports whether the next advance finds a song to play.
func (s *State) HasNext() bool {
	return len(s.Candidates()) > 0
}

// CurrentSong returns the song at the cursor.
func (s *State) CurrentSong() (song.Ref, bool) {
	if s.Current < 0 || s.Current >= len(s.Songs) {
		return song.Ref{}, false
	}
	return s.Songs[s.Current], true
}

// HasPlayed reports whether the index was already advanced through.
func (s *State) HasPlayed(index int) bool {
	return lo.Contains(s.Played, index)
}

// Restart replaces the playlist and resets the cursor and history.
// Shuffle and liked songs carry over.
func (s *State) Restart(query string, songs []song.Ref) {
	s.Songs = slices.Clone(songs)
	s.Current = 0
	s.Played = []int{0}
	s.Query = query
	if s.Liked == nil {
		s.Liked = []song.Ref{}
	}
}

// MoveTo sets the cursor to index and records it as played.
func (s *State) MoveTo(index int) {
	s.Current = index
	if !s.HasPlayed(index) {
		s.Played = append(s.Played, index)
	}
}

// LikeCurrent appends the current song to the liked list unless a song with
// the same ID is already there. Reports whether the list changed.
func (s *State) LikeCurrent() bool {
	current, ok := s.CurrentSong()
	if !ok {
		return false
	}
	if song.ContainsID(s.Liked, current.ID) {
		return false
	}
	s.Liked = append(s.Liked, current)
	return true
}

// Valid reports whether the record satisfies the cursor and history invariants.
func (s *State) Valid() bool {
	if len(s.Songs) == 0 {
		return true
	}
	if s.Current < 0 || s.Current >= len(s.Songs) {
		return false
	}
	for _, i := range s.Played {
		if i < 0 || i >= len(s.Songs) {
			return false
		}
	}
	if len(s.Played) > 0 && !s.HasPlayed(s.Current) {
		return false
	}
	return len(lo.Uniq(s.Played)) == len(s.Played)
}

// Normalize fills nil slices so encoded records are stable.
func (s *State) Normalize() {
	if s.Songs == nil {
		s.Songs = []song.Ref{}
	}
	if s.Played == nil {
		s.Played = []int{}
	}
	if s.Liked == nil {
		s.Liked = []song.Ref{}
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	c.Songs = slices.Clone(s.Songs)
	c.Played = slices.Clone(s.Played)
	c.Liked = slices.Clone(s.Liked)
	c.Normalize()
	return c
}
