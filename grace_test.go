package websocket

import (
	"context"
	"net/http"
	"testing"

	"serac.dev/websocket/internal/test/assert"
	"serac.dev/websocket/internal/test/wstest"
)

// acceptVia runs Accept behind g and returns the result.
func acceptVia(g *Grace, s *wstest.Stream) (*Conn, error) {
	var c *Conn
	var err error
	h := g.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err = Accept(w, r, nil)
	}))
	h.ServeHTTP(wstest.NewRecorder(s), wstest.UpgradeRequest("/"))
	return c, err
}

func TestGrace(t *testing.T) {
	t.Parallel()

	t.Run("close", func(t *testing.T) {
		t.Parallel()

		var g Grace
		s1, s2 := wstest.NewStream(), wstest.NewStream()
		_, err := acceptVia(&g, s1)
		assert.Success(t, err)
		_, err = acceptVia(&g, s2)
		assert.Success(t, err)
		assert.Equal(t, "zeroConns", false, g.zeroConns())

		assert.Success(t, g.Close())
		assert.Equal(t, "zeroConns", true, g.zeroConns())
		assert.Equal(t, "closes", 1, s1.Closes())
		assert.Equal(t, "closes", 1, s2.Closes())

		s3 := wstest.NewStream()
		_, err = acceptVia(&g, s3)
		assert.ErrorIs(t, errShuttingDown, err)
		assert.Equal(t, "closes", 1, s3.Closes())
		assert.Equal(t, "zeroConns", true, g.zeroConns())
	})

	t.Run("connClose", func(t *testing.T) {
		t.Parallel()

		var g Grace
		c, err := acceptVia(&g, wstest.NewStream())
		assert.Success(t, err)

		assert.Success(t, c.Close())
		assert.Equal(t, "zeroConns", true, g.zeroConns())
		assert.Success(t, g.Shutdown(context.Background()))
	})

	t.Run("shutdownTimeout", func(t *testing.T) {
		t.Parallel()

		var g Grace
		s := wstest.NewStream()
		_, err := acceptVia(&g, s)
		assert.Success(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err = g.Shutdown(ctx)
		assert.ErrorIs(t, context.Canceled, err)
		assert.Equal(t, "closes", 1, s.Closes())
	})

	t.Run("untracked", func(t *testing.T) {
		t.Parallel()

		c, err := Accept(wstest.NewRecorder(wstest.NewStream()), wstest.UpgradeRequest("/"), nil)
		assert.Success(t, err)
		assert.Equal(t, "tracked", false, c.g != nil)
		assert.Success(t, c.Close())
	})
}
