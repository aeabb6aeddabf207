package websocket

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"math"

	"golang.org/x/xerrors"

	"serac.dev/websocket/internal/errd"
)

// Frame is a single WebSocket frame as read from the wire.
// See https://tools.ietf.org/html/rfc6455#section-5.2
type Frame struct {
	Fin     bool
	Opcode  Opcode
	Masked  bool
	MaskKey [4]byte
	Payload []byte
}

// ErrOverflow is returned when a frame declares a payload length that
// does not fit in a signed 31 bit integer. No payload is read.
// The connection stays open.
var ErrOverflow = errors.New("websocket: frame payload length overflows int32")

var errFrameTooLarge = errors.New("websocket: frame payload exceeds the 16 bit length form")

// maxPayloadLength bounds the declared length of a received frame.
const maxPayloadLength = math.MaxInt32

// readFrame reads one frame from r and unmasks its payload.
// Control frames are returned like any other; servicing them is
// the caller's job.
func readFrame(r io.Reader) (_ Frame, err error) {
	defer errd.Wrap(&err, "failed to read frame")

	var b [8]byte
	_, err = io.ReadFull(r, b[:2])
	if err != nil {
		return Frame{}, err
	}

	var f Frame
	f.Fin = b[0]&(1<<7) != 0
	f.Opcode = Opcode(b[0] & 0xf)
	f.Masked = b[1]&(1<<7) != 0

	var length uint64
	switch l := b[1] &^ (1 << 7); l {
	case 126:
		_, err = io.ReadFull(r, b[:2])
		length = uint64(binary.BigEndian.Uint16(b[:2]))
	case 127:
		_, err = io.ReadFull(r, b[:8])
		length = binary.BigEndian.Uint64(b[:8])
	default:
		length = uint64(l)
	}
	if err != nil {
		return Frame{}, err
	}
	if length > maxPayloadLength {
		return Frame{}, xerrors.Errorf("declared length %d: %w", length, ErrOverflow)
	}

	if f.Masked {
		_, err = io.ReadFull(r, f.MaskKey[:])
		if err != nil {
			return Frame{}, err
		}
	}

	f.Payload = make([]byte, length)
	_, err = io.ReadFull(r, f.Payload)
	if err != nil {
		return Frame{}, xerrors.Errorf("failed to read payload: %w", err)
	}

	if f.Masked {
		mask(binary.LittleEndian.Uint32(f.MaskKey[:]), f.Payload)
	}

	return f, nil
}

// writeFrame writes an unmasked frame to w and flushes it.
//
// Only the 7 bit and 16 bit length forms are written so p may not exceed
// 65535 bytes. readFrame accepts the 64 bit form as well.
func writeFrame(w *bufio.Writer, fin bool, op Opcode, p []byte) (err error) {
	defer errd.Wrap(&err, "failed to write %v frame", op)

	if len(p) > math.MaxUint16 {
		return errFrameTooLarge
	}

	b := byte(op)
	if fin {
		b |= 1 << 7
	}
	err = w.WriteByte(b)
	if err != nil {
		return err
	}

	if len(p) < 126 {
		err = w.WriteByte(byte(len(p)))
	} else {
		var ext [3]byte
		ext[0] = 126
		binary.BigEndian.PutUint16(ext[1:], uint16(len(p)))
		_, err = w.Write(ext[:])
	}
	if err != nil {
		return err
	}

	_, err = w.Write(p)
	if err != nil {
		return err
	}

	return w.Flush()
}
