package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/xerrors"
)

// Grace enables graceful shutdown of accepted WebSocket connections.
//
// Use Handler to wrap the handlers that call Accept or Serve so accepted
// connections are recorded, then use Close or Shutdown to close them.
//
// Grace is intended to be used in harmony with net/http.Server's Shutdown and Close methods.
type Grace struct {
	mu      sync.Mutex
	closing bool
	conns   map[*Conn]struct{}
}

// Handler returns a handler that wraps around h to record
// all WebSocket connections accepted.
func (g *Grace) Handler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), gracefulContextKey{}, g)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

type gracefulContextKey struct{}

func graceFromRequest(r *http.Request) *Grace {
	g, _ := r.Context().Value(gracefulContextKey{}).(*Grace)
	return g
}

var errShuttingDown = errors.New("server shutting down")

func (g *Grace) addConn(c *Conn) error {
	g.mu.Lock()
	if g.closing {
		g.mu.Unlock()
		c.Close()
		return errShuttingDown
	}
	if g.conns == nil {
		g.conns = make(map[*Conn]struct{})
	}
	g.conns[c] = struct{}{}
	c.g = g
	g.mu.Unlock()
	return nil
}

func (g *Grace) delConn(c *Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, c)
}

// Close prevents the acceptance of new connections and closes
// all accepted connections.
func (g *Grace) Close() error {
	g.mu.Lock()
	g.closing = true
	conns := make([]*Conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()
			c.Close()
		}(c)
	}
	wg.Wait()

	return nil
}

// Shutdown prevents the acceptance of new connections and waits until
// all connections close. If the context is cancelled before that, it
// calls Close to close all connections immediately.
func (g *Grace) Shutdown(ctx context.Context) error {
	defer g.Close()

	g.mu.Lock()
	g.closing = true
	g.mu.Unlock()

	// Same poll period used by net/http.
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		if g.zeroConns() {
			return nil
		}

		select {
		case <-t.C:
		case <-ctx.Done():
			return xerrors.Errorf("failed to shutdown WebSockets: %w", ctx.Err())
		}
	}
}

func (g *Grace) zeroConns() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns) == 0
}
