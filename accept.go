package websocket

import (
	"bufio"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/http"

	"cdr.dev/slog"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/xerrors"

	"serac.dev/websocket/internal/errd"
)

// ErrNotUpgrade is returned by Accept when the request is not a
// WebSocket upgrade. Nothing has been written to the response then,
// so the request may be routed elsewhere.
var ErrNotUpgrade = errors.New("websocket: not an upgrade request")

// AcceptOptions represents Accept's options.
type AcceptOptions struct {
	// OnDisconnect is called exactly once when the connection closes.
	// clientInitiated is true if the peer sent a close frame first.
	OnDisconnect func(clientInitiated bool)

	// Logger receives connection lifecycle logs.
	// The zero value discards them.
	Logger slog.Logger
}

// isUpgradeRequest matches only GET requests whose Connection header
// is exactly "Upgrade". Token lists such as "keep-alive, Upgrade" are
// not recognised.
func isUpgradeRequest(r *http.Request) bool {
	return r.Method == http.MethodGet && r.Header.Get("Connection") == "Upgrade"
}

// Accept accepts a WebSocket handshake from a client and upgrades the
// the connection to WebSocket.
//
// Requests that are not upgrades are declined with ErrNotUpgrade.
// A requested Sec-WebSocket-Protocol is echoed back as is.
func Accept(w http.ResponseWriter, r *http.Request, opts *AcceptOptions) (_ *Conn, err error) {
	defer errd.Wrap(&err, "failed to accept WebSocket connection")

	if opts == nil {
		opts = &AcceptOptions{}
	}

	if !isUpgradeRequest(r) {
		return nil, ErrNotUpgrade
	}

	key := r.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		err = xerrors.New("protocol violation: missing Sec-WebSocket-Key")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	subprotocol := r.Header.Get("Sec-WebSocket-Protocol")
	if !httpguts.ValidHeaderFieldValue(subprotocol) {
		err = xerrors.Errorf("invalid Sec-WebSocket-Protocol %q", subprotocol)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, err
	}

	netConn, brw, err := http.NewResponseController(w).Hijack()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return nil, xerrors.Errorf("failed to hijack connection: %w", err)
	}

	err = writeSwitchingProtocols(brw.Writer, acceptKey(key), subprotocol)
	if err != nil {
		netConn.Close()
		return nil, err
	}

	c := newConn(connConfig{
		subprotocol:  subprotocol,
		rwc:          netConn,
		br:           brw.Reader,
		bw:           brw.Writer,
		log:          opts.Logger.Named("websocket").With(slog.F("remote_addr", netConn.RemoteAddr().String())),
		onDisconnect: opts.OnDisconnect,
	})

	g := graceFromRequest(r)
	if g != nil {
		err = g.addConn(c)
		if err != nil {
			return nil, err
		}
	}

	c.log.Debug(r.Context(), "accepted connection", slog.F("subprotocol", subprotocol))
	return c, nil
}

var keyGUID = []byte("258EAFA5-E914-47DA-95CA-C5AB0DC85B11")

func acceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write(keyGUID)

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// writeSwitchingProtocols writes the 101 response directly on the
// hijacked stream.
func writeSwitchingProtocols(w *bufio.Writer, accept, subprotocol string) (err error) {
	defer errd.Wrap(&err, "failed to write handshake response")

	p := w.AvailableBuffer()
	p = append(p, "HTTP/1.1 101 Switching Protocols\r\n"...)
	p = append(p, "Upgrade: websocket\r\n"...)
	p = append(p, "Connection: Upgrade\r\n"...)
	p = append(p, "Sec-WebSocket-Accept: "...)
	p = append(p, accept...)
	p = append(p, "\r\n"...)
	if subprotocol != "" {
		p = append(p, "Sec-WebSocket-Protocol: "...)
		p = append(p, subprotocol...)
		p = append(p, "\r\n"...)
	}
	p = append(p, "\r\n"...)

	_, err = w.Write(p)
	if err != nil {
		return err
	}
	return w.Flush()
}
