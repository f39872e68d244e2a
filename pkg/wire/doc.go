// Package wire defines the CBOR wire format of the remote probe protocol.
//
// Messages are CBOR (RFC 8949) maps with integer keys, carried in
// length-prefixed frames over TCP (see package transport).
//
// # Message Types
//
// There are two message types:
//   - Request: client to probe server (Hello, Read32, Write32, Flush)
//   - Response: probe server to client, echoing the request ID
//
// A session starts with a Hello request carrying the client's protocol
// version. The server answers StatusUnsupportedVersion when the major
// versions differ, and closes the connection.
package wire
