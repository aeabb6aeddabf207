package wstest

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
)

// Recorder is an httptest.ResponseRecorder that can be hijacked.
// Hijack hands out Conn.
type Recorder struct {
	*httptest.ResponseRecorder
	Conn net.Conn

	hijacked bool
}

var _ http.Hijacker = (*Recorder)(nil)

// NewRecorder returns a Recorder hijacking to c.
func NewRecorder(c net.Conn) *Recorder {
	return &Recorder{
		ResponseRecorder: httptest.NewRecorder(),
		Conn:             c,
	}
}

func (r *Recorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.hijacked = true
	return r.Conn, bufio.NewReadWriter(bufio.NewReader(r.Conn), bufio.NewWriter(r.Conn)), nil
}

// Hijacked reports whether Hijack was called.
func (r *Recorder) Hijacked() bool {
	return r.hijacked
}

// UpgradeRequest returns a GET request carrying the headers a client
// sends to open a WebSocket. The key is the sample nonce from RFC 6455.
func UpgradeRequest(target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Sec-WebSocket-Version", "13")
	r.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return r
}
