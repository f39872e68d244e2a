// Package remote exposes a probe.Session over TCP and consumes one.
//
// Server owns a local session (a debug probe driver, or the simulated
// target) and serves the framed CBOR protocol of package wire. Client
// implements probe.Session against a Server.
//
// A client connection starts with a Hello carrying the client's protocol
// version; the server rejects an incompatible major version and closes the
// connection. Only one connection owns the probe at a time: the first to
// complete a Hello, until it disconnects.
//
// Every client operation is bounded by the I/O timeout. A timed out or
// broken exchange drops the connection, and the operation fails with
// probe.ErrSessionLost. A target access error reported by the server
// (StatusIOError) fails only that operation.
package remote
