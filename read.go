package websocket

import (
	"context"
	"strings"

	"golang.org/x/xerrors"

	"serac.dev/websocket/internal/errd"
)

// Read reads a single message from the connection, reassembling
// fragmented messages. Ping frames are answered and skipped.
// The message type is taken from the first frame of the message.
//
// Read blocks until a whole message arrived. If ctx is done first,
// the connection is aborted.
func (c *Conn) Read(ctx context.Context) (_ MessageType, _ []byte, err error) {
	defer errd.Wrap(&err, "failed to read message")

	stop := c.watch(ctx)
	defer stop()

	f, err := c.readLoop()
	if err != nil {
		return 0, nil, err
	}
	typ := MessageType(f.Opcode)
	b := f.Payload

	for !f.Fin {
		f, err = c.readLoop()
		if err != nil {
			return 0, nil, err
		}
		b = append(b, f.Payload...)
	}
	return typ, b, nil
}

// ReadText reads a message and decodes it as UTF-8.
// Decoding happens after reassembly so code points split across
// frames survive. Invalid sequences are replaced with U+FFFD.
func (c *Conn) ReadText(ctx context.Context) (string, error) {
	_, b, err := c.Read(ctx)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(b), "\uFFFD"), nil
}

// ReadBinary reads a message and returns its raw bytes.
func (c *Conn) ReadBinary(ctx context.Context) ([]byte, error) {
	_, b, err := c.Read(ctx)
	return b, err
}

// readLoop reads frames until one that is not serviced by the
// connection itself arrives.
//
// Close frames end the connection, pings are answered with a pong
// carrying the same payload. Pongs are handed to the caller.
func (c *Conn) readLoop() (Frame, error) {
	for {
		err := c.closeResult()
		if err != nil {
			return Frame{}, err
		}

		f, err := readFrame(c.br)
		if err != nil {
			if xerrors.Is(err, ErrOverflow) {
				return Frame{}, err
			}
			return Frame{}, c.terminated(err)
		}

		switch f.Opcode {
		case OpClose:
			c.closeMu.Lock()
			c.clientInitiatedClose = true
			c.closeMu.Unlock()
			return Frame{}, &CloseError{ClientInitiated: true}
		case OpPing:
			err = c.writeControl(OpPong, f.Payload)
			if err != nil {
				return Frame{}, err
			}
			continue
		}
		return f, nil
	}
}
