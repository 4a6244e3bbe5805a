package connect

import (
	"time"

	"github.com/osa030/tubequeue/internal/app/notification"
	"github.com/osa030/tubequeue/internal/app/session"
	"github.com/osa030/tubequeue/internal/domain/directive"
	"github.com/osa030/tubequeue/internal/domain/song"
)

const (
	// PlaybackServiceName is the fully-qualified name of the playback service.
	PlaybackServiceName = "tubequeue.v1.PlaybackService"

	PlayProcedure      = "/" + PlaybackServiceName + "/Play"
	PlayLikedProcedure = "/" + PlaybackServiceName + "/PlayLiked"
	AdvanceProcedure   = "/" + PlaybackServiceName + "/Advance"
	ShuffleProcedure   = "/" + PlaybackServiceName + "/SetShuffle"
	LikeProcedure      = "/" + PlaybackServiceName + "/Like"
	StopProcedure      = "/" + PlaybackServiceName + "/Stop"
	StatusProcedure    = "/" + PlaybackServiceName + "/GetStatus"
	WatchProcedure     = "/" + PlaybackServiceName + "/Watch"
)

// PlayRequest selects a new playlist. Source is album, playlist, genre or song.
type PlayRequest struct {
	SessionKey string `json:"session_key"`
	Source     string `json:"source"`
	Name       string `json:"name"`
}

// SessionRequest addresses one session.
type SessionRequest struct {
	SessionKey string `json:"session_key"`
}

// AdvanceRequest advances a session. Trigger is next, nearly_finished or failed.
type AdvanceRequest struct {
	SessionKey string `json:"session_key"`
	Trigger    string `json:"trigger"`
}

// ShuffleRequest sets a session's shuffle mode.
type ShuffleRequest struct {
	SessionKey string `json:"session_key"`
	On         bool   `json:"on"`
}

// WatchRequest subscribes to a session's events; an empty key watches all sessions.
type WatchRequest struct {
	SessionKey string `json:"session_key,omitempty"`
}

// Directive is the wire form of a playback directive.
type Directive struct {
	Kind              string `json:"kind"`
	SongID            string `json:"song_id,omitempty"`
	Title             string `json:"title,omitempty"`
	URL               string `json:"url,omitempty"`
	OffsetMs          int64  `json:"offset_ms"`
	ContinuationToken string `json:"continuation_token,omitempty"`
	Announce          bool   `json:"announce,omitempty"`
	Message           string `json:"message,omitempty"`
	Query             string `json:"query,omitempty"`
}

// DirectiveResponse carries the result of a playback operation.
type DirectiveResponse struct {
	Directive Directive `json:"directive"`
	Speech    string    `json:"speech,omitempty"`
	Provider  string    `json:"provider,omitempty"`
}

// Song is the wire form of a song reference.
type Song struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// StatusResponse describes a session's queue.
type StatusResponse struct {
	SessionKey string `json:"session_key"`
	Phase      string `json:"phase"`
	Query      string `json:"query,omitempty"`
	Current    *Song  `json:"current,omitempty"`
	Played     int    `json:"played"`
	Total      int    `json:"total"`
	Shuffle    bool   `json:"shuffle"`
	Liked      []Song `json:"liked"`
}

// Event is one entry of the watch stream.
type Event struct {
	SequenceNo uint64    `json:"sequence_no"`
	SessionKey string    `json:"session_key"`
	Operation  string    `json:"operation"`
	Directive  Directive `json:"directive"`
	Speech     string    `json:"speech,omitempty"`
	Time       time.Time `json:"time"`
}

// OperationWatchStarted is the operation of the first event on every watch stream.
const OperationWatchStarted = "watch_started"

func toDirective(d directive.Directive) Directive {
	return Directive{
		Kind:              d.Kind.String(),
		SongID:            d.SongID,
		Title:             d.Title,
		URL:               d.URL,
		OffsetMs:          d.OffsetMs,
		ContinuationToken: d.ContinuationToken,
		Announce:          d.Announce,
		Message:           d.Message,
		Query:             d.Query,
	}
}

func toDirectiveResponse(out session.Outcome) *DirectiveResponse {
	return &DirectiveResponse{
		Directive: toDirective(out.Directive),
		Speech:    out.Speech,
		Provider:  out.Provider,
	}
}

func toSongs(refs []song.Ref) []Song {
	songs := make([]Song, 0, len(refs))
	for _, r := range refs {
		songs = append(songs, Song{ID: r.ID, Title: r.Title})
	}
	return songs
}

func toStatusResponse(st *session.Status) *StatusResponse {
	res := &StatusResponse{
		SessionKey: st.Key,
		Phase:      st.Phase.String(),
		Query:      st.Query,
		Played:     st.Played,
		Total:      st.Total,
		Shuffle:    st.Shuffle,
		Liked:      toSongs(st.Liked),
	}
	if st.Playing {
		res.Current = &Song{ID: st.Current.ID, Title: st.Current.Title}
	}
	return res
}

func toEvent(e notification.Event) *Event {
	return &Event{
		SequenceNo: e.SequenceNo,
		SessionKey: e.SessionKey,
		Operation:  e.Operation,
		Directive:  toDirective(e.Directive),
		Speech:     e.Speech,
		Time:       e.Time,
	}
}
