// Package bpool pools the buffers messages are encoded into before
// they are written.
package bpool

import (
	"bytes"
	"sync"
)

var pool sync.Pool

// Get returns an empty buffer from the pool or a new one.
func Get() *bytes.Buffer {
	b, ok := pool.Get().(*bytes.Buffer)
	if !ok {
		return &bytes.Buffer{}
	}
	return b
}

// Put resets b and returns it to the pool.
// b must not be used afterwards.
func Put(b *bytes.Buffer) {
	b.Reset()
	pool.Put(b)
}
