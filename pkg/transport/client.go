package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/log"
)

// DefaultConnectTimeout bounds Dial when the context has no deadline.
const DefaultConnectTimeout = 5 * time.Second

// ClientConfig configures a probe transport client.
type ClientConfig struct {
	// MaxMessageSize is the maximum message size (default: 4KB).
	MaxMessageSize uint32

	// ConnectTimeout is the dial timeout when ctx has no deadline (default: 5s).
	ConnectTimeout time.Duration

	// Trace receives frame events (optional).
	Trace log.Logger

	// RunID tags traced frames.
	RunID string
}

// Dial establishes a TCP connection to a probe server.
func Dial(ctx context.Context, address string, config ClientConfig) (*ClientConn, error) {
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.ConnectTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		// Every request is a few bytes and waits for its response.
		tcp.SetNoDelay(true)
	}

	framer := NewFramerWithMaxSize(conn, config.MaxMessageSize)
	if config.Trace != nil {
		framer.SetLogger(config.Trace, config.RunID)
	}

	return &ClientConn{
		conn:    conn,
		framer:  framer,
		closeCh: make(chan struct{}),
	}, nil
}

// ClientConn represents a connection from client to probe server.
type ClientConn struct {
	conn    net.Conn
	framer  *Framer
	closeCh chan struct{}

	closeOnce sync.Once
	writeMu   sync.Mutex
	readMu    sync.Mutex
}

// LocalAddr returns the local network address.
func (c *ClientConn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (c *ClientConn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadline of the connection.
// A zero value clears it.
func (c *ClientConn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// Send sends a message to the server.
func (c *ClientConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closeCh:
		return ErrConnectionClosed
	default:
	}

	return c.framer.WriteFrame(data)
}

// Receive receives the next message from the server.
func (c *ClientConn) Receive() ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	select {
	case <-c.closeCh:
		return nil, ErrConnectionClosed
	default:
	}

	return c.framer.ReadFrame()
}

// Close closes the connection.
func (c *ClientConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}
