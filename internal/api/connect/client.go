package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// PlaybackClient is a client for the PlaybackService RPC.
type PlaybackClient struct {
	play      *connect.Client[PlayRequest, DirectiveResponse]
	playLiked *connect.Client[SessionRequest, DirectiveResponse]
	advance   *connect.Client[AdvanceRequest, DirectiveResponse]
	shuffle   *connect.Client[ShuffleRequest, DirectiveResponse]
	like      *connect.Client[SessionRequest, DirectiveResponse]
	stop      *connect.Client[SessionRequest, DirectiveResponse]
	status    *connect.Client[SessionRequest, StatusResponse]
	watch     *connect.Client[WatchRequest, Event]
}

// NewPlaybackClient creates a client for the service at baseURL.
func NewPlaybackClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *PlaybackClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec)}, opts...)

	return &PlaybackClient{
		play:      connect.NewClient[PlayRequest, DirectiveResponse](httpClient, baseURL+PlayProcedure, opts...),
		playLiked: connect.NewClient[SessionRequest, DirectiveResponse](httpClient, baseURL+PlayLikedProcedure, opts...),
		advance:   connect.NewClient[AdvanceRequest, DirectiveResponse](httpClient, baseURL+AdvanceProcedure, opts...),
		shuffle:   connect.NewClient[ShuffleRequest, DirectiveResponse](httpClient, baseURL+ShuffleProcedure, opts...),
		like:      connect.NewClient[SessionRequest, DirectiveResponse](httpClient, baseURL+LikeProcedure, opts...),
		stop:      connect.NewClient[SessionRequest, DirectiveResponse](httpClient, baseURL+StopProcedure, opts...),
		status:    connect.NewClient[SessionRequest, StatusResponse](httpClient, baseURL+StatusProcedure, opts...),
		watch:     connect.NewClient[WatchRequest, Event](httpClient, baseURL+WatchProcedure, opts...),
	}
}

// Play selects a new playlist.
func (c *PlaybackClient) Play(ctx context.Context, req *PlayRequest) (*DirectiveResponse, error) {
	return unary(ctx, c.play, req)
}

// PlayLiked selects the liked-songs playlist.
func (c *PlaybackClient) PlayLiked(ctx context.Context, req *SessionRequest) (*DirectiveResponse, error) {
	return unary(ctx, c.playLiked, req)
}

// Advance moves to the next song.
func (c *PlaybackClient) Advance(ctx context.Context, req *AdvanceRequest) (*DirectiveResponse, error) {
	return unary(ctx, c.advance, req)
}

// SetShuffle sets shuffle mode.
func (c *PlaybackClient) SetShuffle(ctx context.Context, req *ShuffleRequest) (*DirectiveResponse, error) {
	return unary(ctx, c.shuffle, req)
}

// Like likes the song playing.
func (c *PlaybackClient) Like(ctx context.Context, req *SessionRequest) (*DirectiveResponse, error) {
	return unary(ctx, c.like, req)
}

// Stop stops playback.
func (c *PlaybackClient) Stop(ctx context.Context, req *SessionRequest) (*DirectiveResponse, error) {
	return unary(ctx, c.stop, req)
}

// GetStatus returns a session's queue status.
func (c *PlaybackClient) GetStatus(ctx context.Context, req *SessionRequest) (*StatusResponse, error) {
	return unary(ctx, c.status, req)
}

// Watch opens the event stream for a session.
func (c *PlaybackClient) Watch(ctx context.Context, req *WatchRequest) (*connect.ServerStreamForClient[Event], error) {
	return c.watch.CallServerStream(ctx, connect.NewRequest(req))
}

func unary[Req, Res any](ctx context.Context, client *connect.Client[Req, Res], req *Req) (*Res, error) {
	res, err := client.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}
