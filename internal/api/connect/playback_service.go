package connect

import (
	"context"
	"net/http"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tubequeue/internal/app/catalog"
	"github.com/osa030/tubequeue/internal/app/notification"
	"github.com/osa030/tubequeue/internal/app/playback"
	"github.com/osa030/tubequeue/internal/app/session"
)

// PlaybackService implements the PlaybackService RPC.
type PlaybackService struct {
	session *session.Manager
}

// NewPlaybackService creates a new PlaybackService.
func NewPlaybackService(session *session.Manager) *PlaybackService {
	return &PlaybackService{session: session}
}

// NewPlaybackServiceHandler builds an HTTP handler serving every procedure of
// the service. It returns the path to mount the handler on.
func NewPlaybackServiceHandler(svc *PlaybackService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec)}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PlayProcedure, connect.NewUnaryHandler(PlayProcedure, svc.Play, opts...))
	mux.Handle(PlayLikedProcedure, connect.NewUnaryHandler(PlayLikedProcedure, svc.PlayLiked, opts...))
	mux.Handle(AdvanceProcedure, connect.NewUnaryHandler(AdvanceProcedure, svc.Advance, opts...))
	mux.Handle(ShuffleProcedure, connect.NewUnaryHandler(ShuffleProcedure, svc.SetShuffle, opts...))
	mux.Handle(LikeProcedure, connect.NewUnaryHandler(LikeProcedure, svc.Like, opts...))
	mux.Handle(StopProcedure, connect.NewUnaryHandler(StopProcedure, svc.Stop, opts...))
	mux.Handle(StatusProcedure, connect.NewUnaryHandler(StatusProcedure, svc.GetStatus, opts...))
	mux.Handle(WatchProcedure, connect.NewServerStreamHandler(WatchProcedure, svc.Watch, opts...))
	return "/" + PlaybackServiceName + "/", mux
}

// Play handles playlist selection by album, playlist, genre or song.
func (s *PlaybackService) Play(
	ctx context.Context,
	req *connect.Request[PlayRequest],
) (*connect.Response[DirectiveResponse], error) {
	source, err := catalog.ParseSource(req.Msg.Source)
	if err != nil {
		return nil, toConnectError(err)
	}
	out, err := s.session.Play(ctx, req.Msg.SessionKey, source, req.Msg.Name)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toDirectiveResponse(out)), nil
}

// PlayLiked handles liked-songs playlist selection.
func (s *PlaybackService) PlayLiked(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[DirectiveResponse], error) {
	out, err := s.session.PlayLiked(ctx, req.Msg.SessionKey)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toDirectiveResponse(out)), nil
}

// Advance handles next-song requests from users and players.
func (s *PlaybackService) Advance(
	ctx context.Context,
	req *connect.Request[AdvanceRequest],
) (*connect.Response[DirectiveResponse], error) {
	trigger, err := playback.ParseTrigger(req.Msg.Trigger)
	if err != nil {
		return nil, toConnectError(err)
	}
	out, err := s.session.Advance(ctx, req.Msg.SessionKey, trigger)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toDirectiveResponse(out)), nil
}

// SetShuffle handles shuffle on/off requests.
func (s *PlaybackService) SetShuffle(
	ctx context.Context,
	req *connect.Request[ShuffleRequest],
) (*connect.Response[DirectiveResponse], error) {
	out, err := s.session.SetShuffle(ctx, req.Msg.SessionKey, req.Msg.On)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toDirectiveResponse(out)), nil
}

// Like handles like requests for the song playing.
func (s *PlaybackService) Like(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[DirectiveResponse], error) {
	out, err := s.session.Like(ctx, req.Msg.SessionKey)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toDirectiveResponse(out)), nil
}

// Stop handles stop, cancel and pause requests.
func (s *PlaybackService) Stop(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[DirectiveResponse], error) {
	out, err := s.session.Stop(ctx, req.Msg.SessionKey)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toDirectiveResponse(out)), nil
}

// GetStatus returns the session's queue status.
func (s *PlaybackService) GetStatus(
	ctx context.Context,
	req *connect.Request[SessionRequest],
) (*connect.Response[StatusResponse], error) {
	st, err := s.session.GetStatus(ctx, req.Msg.SessionKey)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(toStatusResponse(st)), nil
}

// Watch streams the events of one session, or of every session for an empty key.
func (s *PlaybackService) Watch(
	ctx context.Context,
	req *connect.Request[WatchRequest],
	stream *connect.ServerStream[Event],
) error {
	notifManager := s.session.GetNotificationManager()
	adapter := &notificationStreamAdapter{stream: stream}
	subscriptionID := notifManager.Subscribe(req.Msg.SessionKey, adapter)
	defer notifManager.Unsubscribe(subscriptionID)
	defer adapter.close()
	zlog.Info().Msgf("api: watch started: subscription=%s key=%s", subscriptionID, req.Msg.SessionKey)

	// Subscribed before the first message so callers can act on it.
	if err := adapter.send(&Event{SessionKey: req.Msg.SessionKey, Operation: OperationWatchStarted}); err != nil {
		return err
	}

	<-ctx.Done()

	zlog.Info().Msgf("api: watch ended: subscription=%s", subscriptionID)
	return nil
}

// errWatchClosed is returned for sends that arrive after Watch returned.
var errWatchClosed = errors.New("watch stream closed")

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Events of different sessions may be broadcast concurrently, and a timed out
// broadcast may still be sending when Watch returns.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[Event]
	closed bool
}

func (a *notificationStreamAdapter) Send(e notification.Event) error {
	return a.send(toEvent(e))
}

func (a *notificationStreamAdapter) send(e *Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errWatchClosed
	}
	return a.stream.Send(e)
}

func (a *notificationStreamAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

// toConnectError maps application errors to connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, catalog.ErrInvalidSource),
		errors.Is(err, playback.ErrInvalidTrigger):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, playback.ErrStore), errors.Is(err, playback.ErrTransient):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
