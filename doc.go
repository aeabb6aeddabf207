// Package websocket implements the server side of the WebSocket protocol.
//
// It decodes and encodes frames, reassembles fragmented messages,
// answers pings and performs the close handshake. Upgrading is done
// with Accept, or with Serve which also takes care of closing the
// connection once the handler returns.
//
// Frames written by this package are never masked and are at most
// 32768 bytes long. Received frames may use any length form; lengths
// above math.MaxInt32 fail the read with ErrOverflow.
//
// See https://tools.ietf.org/html/rfc6455
package websocket
