// Package xrand generates random test payloads.
package xrand

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Bytes generates random bytes with length n.
func Bytes(n int) []byte {
	b := make([]byte, n)
	_, err := rand.Reader.Read(b)
	if err != nil {
		panic(fmt.Sprintf("failed to generate rand bytes: %v", err))
	}
	return b
}

// String generates a random valid UTF-8 string of exactly n bytes.
func String(n int) string {
	s := strings.ToValidUTF8(string(Bytes(n)), "_")
	s = strings.ReplaceAll(s, "\x00", "_")
	if len(s) > n {
		s = strings.ToValidUTF8(s[:n], "_")
	}
	if len(s) < n {
		// Pad with =
		s += strings.Repeat("=", n-len(s))
	}
	return s
}

// MaskKey returns a random non zero masking key.
func MaskKey() [4]byte {
	for {
		var k [4]byte
		copy(k[:], Bytes(4))
		if k != [4]byte{} {
			return k
		}
	}
}
