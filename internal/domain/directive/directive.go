// Package directive provides the playback-control results rendered by an
// audio front end.
package directive

import "github.com/osa030/tubequeue/internal/domain/song"

// Kind represents the directive shape.
type Kind int

const (
	KindNone           Kind = iota // No playback change (silent end of interaction)
	KindReplaceAndPlay             // Replace whatever plays and start this song
	KindEnqueueAfter               // Queue this song after the audible one
	KindStop                       // Stop playback
	KindNoResults                  // Nothing to play for the query
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindReplaceAndPlay:
		return "replace_and_play"
	case KindEnqueueAfter:
		return "enqueue_after"
	case KindStop:
		return "stop"
	case KindNoResults:
		return "no_results"
	default:
		return "unknown"
	}
}

// Directive is the discriminated result of a playback operation.
// Only the fields relevant to Kind are set.
type Directive struct {
	Kind              Kind
	SongID            string // ReplaceAndPlay, EnqueueAfter
	Title             string // ReplaceAndPlay, EnqueueAfter
	URL               string // ReplaceAndPlay, EnqueueAfter
	OffsetMs          int64  // ReplaceAndPlay, EnqueueAfter (always 0)
	ContinuationToken string // EnqueueAfter: ID of the audible song
	Announce          bool   // ReplaceAndPlay: front end should speak the title
	Message           string // Stop
	Query             string // NoResults
}

// None returns a directive that changes nothing.
func None() Directive {
	return Directive{Kind: KindNone}
}

// ReplaceAndPlay returns a directive that starts s immediately.
func ReplaceAndPlay(s song.Ref, url string, announce bool) Directive {
	return Directive{
		Kind:     KindReplaceAndPlay,
		SongID:   s.ID,
		Title:    s.Title,
		URL:      url,
		Announce: announce,
	}
}

// EnqueueAfter returns a directive that plays s once the song identified by
// continuationToken finishes.
func EnqueueAfter(s song.Ref, url, continuationToken string) Directive {
	return Directive{
		Kind:              KindEnqueueAfter,
		SongID:            s.ID,
		Title:             s.Title,
		URL:               url,
		ContinuationToken: continuationToken,
	}
}

// Stop returns a directive that stops playback with a message.
func Stop(message string) Directive {
	return Directive{Kind: KindStop, Message: message}
}

// NoResults returns a directive reporting an empty selection for query.
func NoResults(query string) Directive {
	return Directive{Kind: KindNoResults, Query: query}
}
