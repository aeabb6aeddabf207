// Package wstest provides in memory streams and raw frame helpers for
// testing the server side of a WebSocket connection without a network.
package wstest

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// Stream is an in memory net.Conn. Reads are served from a fixed input,
// writes are recorded. Once closed, reads and writes fail with
// net.ErrClosed.
type Stream struct {
	mu     sync.Mutex
	r      io.Reader
	w      bytes.Buffer
	closes int
	reads  int
}

var _ net.Conn = (*Stream)(nil)

// NewStream returns a Stream whose reads yield in followed by io.EOF.
func NewStream(in ...[]byte) *Stream {
	return &Stream{
		r: bytes.NewReader(bytes.Join(in, nil)),
	}
}

// NewStreamReader returns a Stream whose reads are served by r.
func NewStreamReader(r io.Reader) *Stream {
	return &Stream{
		r: r,
	}
}

func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	if s.closes > 0 {
		s.mu.Unlock()
		return 0, net.ErrClosed
	}
	s.reads++
	r := s.r
	s.mu.Unlock()

	return r.Read(p)
}

func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closes > 0 {
		return 0, net.ErrClosed
	}
	return s.w.Write(p)
}

// Close records the call. Only the first one releases the stream.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

// Closes returns how many times Close was called.
func (s *Stream) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Written returns a copy of everything written so far.
func (s *Stream) Written() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.w.Bytes())
}

func (s *Stream) LocalAddr() net.Addr                { return addr{} }
func (s *Stream) RemoteAddr() net.Addr               { return addr{} }
func (s *Stream) SetDeadline(t time.Time) error      { return nil }
func (s *Stream) SetReadDeadline(t time.Time) error  { return nil }
func (s *Stream) SetWriteDeadline(t time.Time) error { return nil }

type addr struct{}

func (addr) Network() string { return "memory" }
func (addr) String() string  { return "memory" }
