package websocket

import (
	"bufio"
	"context"
	"io"
	"sync"

	"cdr.dev/slog"
	"golang.org/x/xerrors"
)

// Conn represents a server side WebSocket connection.
//
// Only one goroutine may read from the connection at a time.
// Writes may be called concurrently: every message is written
// while holding a per connection lock so frames of different
// messages never interleave.
//
// Ping frames from the peer are answered automatically while reading.
// Be sure to call Close on the connection when you are finished with it
// to release the underlying stream.
type Conn struct {
	subprotocol  string
	rwc          io.ReadWriteCloser
	br           *bufio.Reader
	bw           *bufio.Writer
	log          slog.Logger
	onDisconnect func(clientInitiated bool)
	g            *Grace

	writeMu sync.Mutex

	closeMu              sync.Mutex
	closed               bool
	clientInitiatedClose bool
	closeErr             *CloseError
}

type connConfig struct {
	subprotocol  string
	rwc          io.ReadWriteCloser
	br           *bufio.Reader
	bw           *bufio.Writer
	log          slog.Logger
	onDisconnect func(clientInitiated bool)
}

func newConn(cfg connConfig) *Conn {
	c := &Conn{
		subprotocol:  cfg.subprotocol,
		rwc:          cfg.rwc,
		br:           cfg.br,
		bw:           cfg.bw,
		log:          cfg.log,
		onDisconnect: cfg.onDisconnect,
	}
	if c.br == nil {
		c.br = bufio.NewReader(c.rwc)
	}
	if c.bw == nil {
		c.bw = bufio.NewWriter(c.rwc)
	}
	return c
}

// Subprotocol returns the subprotocol echoed during the handshake.
// An empty string means none was requested.
func (c *Conn) Subprotocol() string {
	return c.subprotocol
}

// watch aborts the connection once ctx is done.
// The returned func stops watching.
func (c *Conn) watch(ctx context.Context) func() bool {
	if ctx.Done() == nil {
		return func() bool { return true }
	}
	return context.AfterFunc(ctx, func() {
		c.close(xerrors.Errorf("context done: %w", ctx.Err()), false)
	})
}

// terminated converts a stream failure into the termination result.
// If the connection was closed in the meantime, that result wins.
func (c *Conn) terminated(err error) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return c.closeErr
	}
	return &CloseError{
		ClientInitiated: c.clientInitiatedClose,
		Err:             err,
	}
}
