// Package transport provides TCP connections and length-prefixed framing
// for the remote probe protocol.
//
// Every message travels as one frame:
//
//	┌──────────────────────┬─────────────────────────┐
//	│ length (4 B, BE u32) │ CBOR payload (length B) │
//	└──────────────────────┴─────────────────────────┘
//
// Empty frames and frames above the configured maximum are rejected on
// both ends. Readers and writers can emit one transport-layer trace event
// per frame.
//
// Server accepts connections and hands each received frame to an
// OnMessage callback on the connection's read goroutine. Dial opens a
// ClientConn; callers bound each exchange with SetDeadline.
package transport
