// Package wsjson provides helpers for reading and writing JSON messages.
package wsjson

import (
	"bytes"
	"context"
	"encoding/json"

	"golang.org/x/xerrors"

	"serac.dev/websocket"
	"serac.dev/websocket/internal/bpool"
)

// Read reads a JSON text message from c into v.
func Read(ctx context.Context, c *websocket.Conn, v interface{}) error {
	err := read(ctx, c, v)
	if err != nil {
		return xerrors.Errorf("failed to read json: %w", err)
	}
	return nil
}

func read(ctx context.Context, c *websocket.Conn, v interface{}) error {
	typ, b, err := c.Read(ctx)
	if err != nil {
		return err
	}

	if typ != websocket.MessageText {
		return xerrors.Errorf("unexpected frame type for json (expected %v): %v", websocket.MessageText, typ)
	}

	err = json.Unmarshal(b, v)
	if err != nil {
		return xerrors.Errorf("failed to unmarshal json: %w", err)
	}
	return nil
}

// Write writes the JSON encoding of v to c as a text message.
func Write(ctx context.Context, c *websocket.Conn, v interface{}) error {
	err := write(ctx, c, v)
	if err != nil {
		return xerrors.Errorf("failed to write json: %w", err)
	}
	return nil
}

func write(ctx context.Context, c *websocket.Conn, v interface{}) error {
	b := bpool.Get()
	defer bpool.Put(b)

	err := json.NewEncoder(b).Encode(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal json: %w", err)
	}

	// Drop the newline Encode appends.
	return c.Write(ctx, websocket.MessageText, bytes.TrimSuffix(b.Bytes(), []byte("\n")))
}
