package main

import (
	"context"
	"net/http"
	"time"

	"cdr.dev/slog"
	"golang.org/x/time/rate"
	"golang.org/x/xerrors"

	"serac.dev/websocket"
)

// idleTimeout bounds how long a single echo may take, including
// waiting for the client's next message.
const idleTimeout = time.Minute

// echoServer echoes every message back to the client, at most one
// message every `every` with bursts of `burst`.
type echoServer struct {
	log   slog.Logger
	every time.Duration
	burst int
}

func (es echoServer) serve(ctx context.Context, c *websocket.Conn, r *http.Request) error {
	l := rate.NewLimiter(rate.Every(es.every), es.burst)
	for {
		err := echo(ctx, c, l)
		if err != nil {
			return xerrors.Errorf("failed to echo with %v: %w", r.RemoteAddr, err)
		}
	}
}

// echo reads a message from c and writes it back.
// The whole exchange has idleTimeout to complete.
func echo(ctx context.Context, c *websocket.Conn, l *rate.Limiter) error {
	ctx, cancel := context.WithTimeout(ctx, idleTimeout)
	defer cancel()

	err := l.Wait(ctx)
	if err != nil {
		return err
	}

	typ, p, err := c.Read(ctx)
	if err != nil {
		return err
	}
	return c.Write(ctx, typ, p)
}
