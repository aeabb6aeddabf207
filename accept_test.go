package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gobwas/ws"

	"serac.dev/websocket/internal/test/assert"
	"serac.dev/websocket/internal/test/wstest"
)

func TestAccept(t *testing.T) {
	t.Parallel()

	t.Run("declined", func(t *testing.T) {
		t.Parallel()

		testCases := []struct {
			name       string
			method     string
			connection string
		}{
			{
				name:       "post",
				method:     http.MethodPost,
				connection: "Upgrade",
			},
			{
				name:   "noConnection",
				method: http.MethodGet,
			},
			{
				name:       "tokenList",
				method:     http.MethodGet,
				connection: "keep-alive, Upgrade",
			},
			{
				name:       "lowercase",
				method:     http.MethodGet,
				connection: "upgrade",
			},
		}

		for _, tc := range testCases {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				r := wstest.UpgradeRequest("/")
				r.Method = tc.method
				r.Header.Set("Connection", tc.connection)
				w := wstest.NewRecorder(wstest.NewStream())

				_, err := Accept(w, r, nil)
				assert.ErrorIs(t, ErrNotUpgrade, err)
				assert.Equal(t, "hijacked", false, w.Hijacked())
				assert.Equal(t, "body", "", w.Body.String())
			})
		}
	})

	t.Run("missingKey", func(t *testing.T) {
		t.Parallel()

		r := wstest.UpgradeRequest("/")
		r.Header.Del("Sec-WebSocket-Key")
		w := wstest.NewRecorder(wstest.NewStream())

		_, err := Accept(w, r, nil)
		assert.Contains(t, err, "Sec-WebSocket-Key")
		assert.Equal(t, "code", http.StatusBadRequest, w.Code)
		assert.Equal(t, "hijacked", false, w.Hijacked())
	})

	t.Run("requireHijacker", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		_, err := Accept(w, wstest.UpgradeRequest("/"), nil)
		assert.ErrorIs(t, http.ErrNotSupported, err)
		assert.Equal(t, "code", http.StatusInternalServerError, w.Code)
	})

	t.Run("response", func(t *testing.T) {
		t.Parallel()

		s := wstest.NewStream()
		w := wstest.NewRecorder(s)

		c, err := Accept(w, wstest.UpgradeRequest("/"), nil)
		assert.Success(t, err)
		assert.Equal(t, "subprotocol", "", c.Subprotocol())

		resp, frames, err := wstest.ReadResponse(s.Written())
		assert.Success(t, err)
		assert.Equal(t, "status", http.StatusSwitchingProtocols, resp.StatusCode)
		assert.Equal(t, "upgrade", "websocket", resp.Header.Get("Upgrade"))
		assert.Equal(t, "connection", "Upgrade", resp.Header.Get("Connection"))
		assert.Equal(t, "accept", "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", resp.Header.Get("Sec-WebSocket-Accept"))
		assert.Equal(t, "protocol", []string(nil), resp.Header.Values("Sec-WebSocket-Protocol"))
		assert.Equal(t, "frames", 0, len(frames))
	})

	t.Run("subprotocol", func(t *testing.T) {
		t.Parallel()

		r := wstest.UpgradeRequest("/")
		r.Header.Set("Sec-WebSocket-Protocol", "chat, superchat")
		s := wstest.NewStream()

		c, err := Accept(wstest.NewRecorder(s), r, nil)
		assert.Success(t, err)
		assert.Equal(t, "subprotocol", "chat, superchat", c.Subprotocol())

		resp, _, err := wstest.ReadResponse(s.Written())
		assert.Success(t, err)
		assert.Equal(t, "protocol", "chat, superchat", resp.Header.Get("Sec-WebSocket-Protocol"))
	})

	t.Run("invalidSubprotocol", func(t *testing.T) {
		t.Parallel()

		r := wstest.UpgradeRequest("/")
		r.Header.Set("Sec-WebSocket-Protocol", "chat\x00")
		w := wstest.NewRecorder(wstest.NewStream())

		_, err := Accept(w, r, nil)
		assert.Contains(t, err, "Sec-WebSocket-Protocol")
		assert.Equal(t, "code", http.StatusBadRequest, w.Code)
	})

	t.Run("conn", func(t *testing.T) {
		t.Parallel()

		var disconnects []bool
		s := wstest.NewStream(wstest.ClientFrame(true, ws.OpText, []byte("hello")))
		c, err := Accept(wstest.NewRecorder(s), wstest.UpgradeRequest("/"), &AcceptOptions{
			OnDisconnect: func(clientInitiated bool) {
				disconnects = append(disconnects, clientInitiated)
			},
		})
		assert.Success(t, err)

		msg, err := c.ReadText(context.Background())
		assert.Success(t, err)
		assert.Equal(t, "msg", "hello", msg)

		assert.Success(t, c.Close())
		assert.Equal(t, "disconnects", []bool{false}, disconnects)

		_, frames, err := wstest.ReadResponse(s.Written())
		assert.Success(t, err)
		assert.Equal(t, "frames", 1, len(frames))
		assert.Equal(t, "opcode", ws.OpClose, frames[0].Header.OpCode)
	})
}

func Test_acceptKey(t *testing.T) {
	t.Parallel()

	// https://tools.ietf.org/html/rfc6455#section-1.3
	assert.Equal(t, "accept", "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", acceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}
