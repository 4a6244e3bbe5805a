package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const (
	// APITokenHeader is the header name for API authentication token.
	APITokenHeader = "X-Api-Token"
)

// tokenInterceptor validates the API token on unary and streaming calls.
type tokenInterceptor struct {
	token string
}

// NewTokenInterceptor creates an interceptor that validates API tokens from
// request metadata. Clients built with the same interceptor attach the token.
func NewTokenInterceptor(token string) connect.Interceptor {
	return &tokenInterceptor{token: token}
}

func (i *tokenInterceptor) check(procedure, token string) error {
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(i.token)) != 1 {
		zlog.Warn().Msgf("api: unauthenticated call rejected: procedure=%s", procedure)
		return connect.NewError(connect.CodeUnauthenticated, errors.New("invalid api token"))
	}
	return nil
}

func (i *tokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			req.Header().Set(APITokenHeader, i.token)
			return next(ctx, req)
		}
		if err := i.check(req.Spec().Procedure, req.Header().Get(APITokenHeader)); err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *tokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		conn.RequestHeader().Set(APITokenHeader, i.token)
		return conn
	}
}

func (i *tokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if err := i.check(conn.Spec().Procedure, conn.RequestHeader().Get(APITokenHeader)); err != nil {
			return err
		}
		return next(ctx, conn)
	}
}
