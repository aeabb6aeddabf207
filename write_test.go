package websocket

import (
	"bytes"
	"strconv"
	"sync"
	"testing"

	"github.com/gobwas/ws"

	"serac.dev/websocket/internal/test/assert"
	"serac.dev/websocket/internal/test/xrand"
)

func TestConn_Write(t *testing.T) {
	t.Parallel()

	t.Run("roundTrip", func(t *testing.T) {
		t.Parallel()

		sizes := []int{0, 1, 32767, 32768, 32769, 65536, 100000}
		for _, n := range sizes {
			n := n
			for _, typ := range []MessageType{MessageText, MessageBinary} {
				typ := typ
				t.Run(typ.String()+"/"+strconv.Itoa(n), func(t *testing.T) {
					tt := newTest(t)

					p := xrand.Bytes(n)
					if typ == MessageText {
						p = []byte(xrand.String(n))
					}

					w, ws1 := tt.stream()
					err := w.Write(tt.ctx, typ, p)
					assert.Success(t, err)

					frames := tt.written(ws1)
					expFrames := (n + writeChunkSize - 1) / writeChunkSize
					if expFrames == 0 {
						expFrames = 1
					}
					assert.Equal(t, "frames", expFrames, len(frames))
					for i, f := range frames {
						expOp := ws.OpContinuation
						if i == 0 {
							expOp = ws.OpCode(typ)
						}
						assert.Equal(t, "opcode", expOp, f.Header.OpCode)
						assert.Equal(t, "fin", i == len(frames)-1, f.Header.Fin)
						assert.Equal(t, "masked", false, f.Header.Masked)
						if f.Header.Length > writeChunkSize {
							t.Fatalf("frame %d is %d bytes", i, f.Header.Length)
						}
					}

					r, _ := tt.stream(ws1.Written())
					typ2, p2, err := r.Read(tt.ctx)
					assert.Success(t, err)
					assert.Equal(t, "type", typ, typ2)
					assert.Equal(t, "payload", true, bytes.Equal(p, p2))
				})
			}
		}
	})

	t.Run("text", func(t *testing.T) {
		tt := newTest(t)

		c, s := tt.stream()
		err := c.WriteText(tt.ctx, "héllo")
		assert.Success(t, err)
		err = c.WriteBinary(tt.ctx, []byte{0xff})
		assert.Success(t, err)

		frames := tt.written(s)
		assert.Equal(t, "frames", 2, len(frames))
		assert.Equal(t, "opcode", ws.OpText, frames[0].Header.OpCode)
		assert.Equal(t, "payload", "héllo", string(frames[0].Payload))
		assert.Equal(t, "opcode", ws.OpBinary, frames[1].Header.OpCode)
		assert.Equal(t, "payload", []byte{0xff}, frames[1].Payload)
	})

	t.Run("concurrent", func(t *testing.T) {
		tt := newTest(t)

		c, s := tt.stream()

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(b byte) {
				defer wg.Done()
				errs <- c.WriteBinary(tt.ctx, bytes.Repeat([]byte{b}, writeChunkSize*2+10))
			}(byte(i))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.Success(t, err)
		}

		frames := tt.written(s)
		assert.Equal(t, "frames", writers*3, len(frames))

		// Every message must be contiguous on the wire.
		seen := make(map[byte]bool)
		for i := 0; i < len(frames); i += 3 {
			b := frames[i].Payload[0]
			if seen[b] {
				t.Fatalf("message %d written twice", b)
			}
			seen[b] = true

			assert.Equal(t, "opcode", ws.OpBinary, frames[i].Header.OpCode)
			for j, f := range frames[i : i+3] {
				if j > 0 {
					assert.Equal(t, "opcode", ws.OpContinuation, f.Header.OpCode)
				}
				assert.Equal(t, "fin", j == 2, f.Header.Fin)
				if len(bytes.Trim(f.Payload, string([]byte{b}))) != 0 {
					t.Fatalf("frame %d of message %d carries foreign bytes", j, b)
				}
			}
		}
	})

	t.Run("closed", func(t *testing.T) {
		tt := newTest(t)

		c, s := tt.stream()
		assert.Success(t, c.Close())
		n := len(s.Written())

		err := c.WriteText(tt.ctx, "late")
		assertCloseError(t, false, err)
		assert.Equal(t, "written", n, len(s.Written()))
	})
}
