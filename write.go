package websocket

import (
	"context"

	"serac.dev/websocket/internal/errd"
)

// writeChunkSize bounds the payload of every data frame written.
// It must stay at or below 65535 because writeFrame only emits the
// 7 and 16 bit length forms.
const writeChunkSize = 32768

// Write writes a message to the connection, split into frames of at
// most 32768 bytes. The first frame carries the message type, the rest
// are continuation frames and the last one has FIN set. An empty
// message is sent as a single empty frame.
//
// The whole message is written under the connection's write lock so
// concurrent writers never interleave their frames.
// If ctx is done before the message is flushed, the connection is aborted.
func (c *Conn) Write(ctx context.Context, typ MessageType, p []byte) (err error) {
	defer errd.Wrap(&err, "failed to write %v", typ)

	stop := c.watch(ctx)
	defer stop()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return c.terminated(nil)
	}

	op := Opcode(typ)
	for {
		n := min(len(p), writeChunkSize)
		fin := n == len(p)
		err = writeFrame(c.bw, fin, op, p[:n])
		if err != nil {
			return c.terminated(err)
		}
		if fin {
			return nil
		}
		p = p[n:]
		op = OpContinuation
	}
}

// WriteText writes s as a text message.
func (c *Conn) WriteText(ctx context.Context, s string) error {
	return c.Write(ctx, MessageText, []byte(s))
}

// WriteBinary writes p as a binary message.
func (c *Conn) WriteBinary(ctx context.Context, p []byte) error {
	return c.Write(ctx, MessageBinary, p)
}

// writeControl writes a single control frame.
func (c *Conn) writeControl(op Opcode, p []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.isClosed() {
		return c.terminated(nil)
	}

	err := writeFrame(c.bw, true, op, p)
	if err != nil {
		return c.terminated(err)
	}
	return nil
}
