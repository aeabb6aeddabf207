package wstest

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gobwas/ws"
	"golang.org/x/xerrors"

	"serac.dev/websocket/internal/test/xrand"
)

// ClientFrame encodes a frame the way a client sends it, masked with
// a random key. p is not modified.
func ClientFrame(fin bool, op ws.OpCode, p []byte) []byte {
	return ClientFrameWith(fin, op, xrand.MaskKey(), p)
}

// ClientFrameWith encodes a frame masked with key. p is not modified.
func ClientFrameWith(fin bool, op ws.OpCode, key [4]byte, p []byte) []byte {
	f := ws.NewFrame(op, fin, bytes.Clone(p))
	f = ws.MaskFrameInPlaceWith(f, key)
	return compile(f)
}

// UnmaskedFrame encodes a frame without a masking key.
func UnmaskedFrame(fin bool, op ws.OpCode, p []byte) []byte {
	return compile(ws.NewFrame(op, fin, p))
}

func compile(f ws.Frame) []byte {
	b, err := ws.CompileFrame(f)
	if err != nil {
		panic(xerrors.Errorf("failed to compile frame: %w", err))
	}
	return b
}

// ReadFrames decodes every frame in b. Masked payloads are unmasked.
func ReadFrames(b []byte) ([]ws.Frame, error) {
	return readFrames(bytes.NewReader(b))
}

func readFrames(r io.Reader) ([]ws.Frame, error) {
	var frames []ws.Frame
	for {
		f, err := ws.ReadFrame(r)
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, xerrors.Errorf("failed to read frame %d: %w", len(frames), err)
		}
		if f.Header.Masked {
			ws.Cipher(f.Payload, f.Header.Mask, 0)
		}
		frames = append(frames, f)
	}
}

// ReadResponse decodes the handshake response at the start of b and
// every frame following it.
func ReadResponse(b []byte) (*http.Response, []ws.Frame, error) {
	br := bufio.NewReader(bytes.NewReader(b))
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to read handshake response: %w", err)
	}
	frames, err := readFrames(br)
	if err != nil {
		return nil, nil, err
	}
	return resp, frames, nil
}
