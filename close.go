package websocket

import (
	"context"
	"errors"
	"fmt"

	"cdr.dev/slog"
	"golang.org/x/xerrors"
)

// ErrClosed matches every termination result via errors.Is.
var ErrClosed = errors.New("websocket: connection closed")

// CloseError is the termination result of a connection. It is returned
// by reads and writes once the peer sent a close frame, the connection
// was closed locally, the stream failed or a context aborted the
// connection.
//
// errors.Is(err, ErrClosed) reports whether err is a CloseError.
type CloseError struct {
	// ClientInitiated is true if the peer sent a close frame.
	ClientInitiated bool
	// Err is the underlying cause, nil for a close handshake.
	Err error
}

func (ce *CloseError) Error() string {
	switch {
	case ce.Err != nil:
		return fmt.Sprintf("websocket closed: %v", ce.Err)
	case ce.ClientInitiated:
		return "websocket closed by peer"
	default:
		return "websocket closed"
	}
}

func (ce *CloseError) Unwrap() error {
	return ce.Err
}

// Is makes errors.Is(err, ErrClosed) hold.
func (ce *CloseError) Is(target error) bool {
	return target == ErrClosed
}

// Close sends a close frame, invokes the disconnect callback and
// releases the stream. If another goroutine is in the middle of writing
// a message, no close frame is sent and releasing the stream aborts
// that write.
//
// The connection can only be closed once. Additional calls to Close
// are no-ops that never touch the released stream.
// Reads and writes after Close return a *CloseError.
func (c *Conn) Close() error {
	return c.close(nil, true)
}

func (c *Conn) close(cause error, handshake bool) error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	clientInitiated := c.clientInitiatedClose
	c.closeErr = &CloseError{
		ClientInitiated: clientInitiated,
		Err:             cause,
	}
	c.closeMu.Unlock()

	// writeMu may be held by a writer stuck on a peer that stopped
	// reading. Closing rwc below unblocks it.
	var err error
	if handshake {
		if c.writeMu.TryLock() {
			err = writeFrame(c.bw, true, OpClose, nil)
			c.writeMu.Unlock()
		} else {
			handshake = false
		}
	}

	c.log.Debug(context.Background(), "connection closed",
		slog.F("client_initiated", clientInitiated),
		slog.F("handshake", handshake),
	)
	if c.onDisconnect != nil {
		c.onDisconnect(clientInitiated)
	}
	if c.g != nil {
		c.g.delConn(c)
	}

	cerr := c.rwc.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		return xerrors.Errorf("failed to close WebSocket: %w", err)
	}
	return nil
}

// closeResult returns the termination result if the connection
// can no longer be read from.
func (c *Conn) closeResult() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	switch {
	case c.closed:
		return c.closeErr
	case c.clientInitiatedClose:
		return &CloseError{ClientInitiated: true}
	}
	return nil
}

func (c *Conn) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}
