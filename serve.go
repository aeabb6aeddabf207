package websocket

import (
	"context"
	"errors"
	"net/http"

	"cdr.dev/slog"
)

// Handler serves a single accepted connection.
// Returning a *CloseError (see ErrClosed) is the normal way for a
// handler to end once the peer goes away.
type Handler func(ctx context.Context, c *Conn, r *http.Request) error

// Server adapts a Handler to net/http.
//
// Upgrade requests are accepted and handed to Handler. Once Handler
// returns, the connection is closed exactly once on a best effort basis.
// Other requests are passed to Fallback, or answered with 404 when
// Fallback is nil.
type Server struct {
	Handler  Handler
	Fallback http.Handler
	Options  *AcceptOptions
}

var _ http.Handler = (*Server)(nil)

// Serve returns a Server running h for every accepted connection.
func Serve(h Handler, opts *AcceptOptions) *Server {
	return &Server{
		Handler: h,
		Options: opts,
	}
}

func (s *Server) logger() slog.Logger {
	if s.Options == nil {
		return slog.Logger{}
	}
	return s.Options.Logger.Named("websocket")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := s.logger().With(
		slog.F("path", r.URL.Path),
		slog.F("remote_addr", r.RemoteAddr),
	)

	c, err := Accept(w, r, s.Options)
	if errors.Is(err, ErrNotUpgrade) {
		log.Debug(ctx, "declined request", slog.F("method", r.Method))
		if s.Fallback != nil {
			s.Fallback.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Warn(ctx, "handshake failed", slog.Error(err))
		return
	}

	err = s.Handler(ctx, c, r)
	terminated := errors.Is(err, ErrClosed)
	switch {
	case err == nil:
	case terminated:
		log.Debug(ctx, "connection terminated", slog.Error(err))
	default:
		log.Error(ctx, "handler failed", slog.Error(err))
	}

	err = c.Close()
	if err != nil {
		// Expected when the peer or the stream already went away.
		if terminated {
			log.Debug(ctx, "best effort close failed", slog.Error(err))
			return
		}
		log.Warn(ctx, "failed to close connection", slog.Error(err))
	}
}
