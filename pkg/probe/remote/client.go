package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/imxrt-tools/ccmobs-go/pkg/connection"
	"github.com/imxrt-tools/ccmobs-go/pkg/log"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/transport"
	"github.com/imxrt-tools/ccmobs-go/pkg/version"
	"github.com/imxrt-tools/ccmobs-go/pkg/wire"
)

// DefaultIOTimeout bounds one request/response exchange.
const DefaultIOTimeout = 2 * time.Second

// ClientConfig configures a remote probe client.
type ClientConfig struct {
	// Address of the probe server ("host:port").
	Address string

	// IOTimeout bounds every exchange (default: 2s).
	IOTimeout time.Duration

	// MaxAttempts bounds connect attempts. Zero retries until the
	// Connect context is done.
	MaxAttempts int

	// Backoff configures the delay between connect attempts.
	Backoff connection.Backoff

	// Trace receives transport frame events (optional).
	Trace log.Logger

	// RunID tags traced frames.
	RunID string

	// Logger for debug logging. Nil disables logging.
	Logger *slog.Logger
}

// Client is a probe.Session served by a remote Server.
type Client struct {
	config ClientConfig

	mu     sync.Mutex
	conn   *transport.ClientConn
	nextID uint32
	lost   bool
	server version.SpecVersion
}

// NewClient creates a client. It does not connect.
func NewClient(config ClientConfig) *Client {
	if config.IOTimeout <= 0 {
		config.IOTimeout = DefaultIOTimeout
	}
	if config.Backoff == (connection.Backoff{}) {
		config.Backoff = connection.DefaultBackoff()
	}
	return &Client{config: config}
}

func (c *Client) debugLog(msg string, args ...any) {
	if c.config.Logger != nil {
		c.config.Logger.Debug(msg, args...)
	}
}

// ServerVersion returns the protocol version the server announced.
func (c *Client) ServerVersion() version.SpecVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.server
}

// Connect dials the server and performs the hello exchange, retrying with
// backoff until ctx is done. It is a no-op on a connected client.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	err := connection.Retry(ctx, connection.RetryConfig{
		Backoff:     c.config.Backoff,
		MaxAttempts: c.config.MaxAttempts,
		Logger:      c.config.Logger,
	}, c.dialAndHello)
	if err != nil {
		return &probe.Error{Op: probe.OpConnect, Err: err}
	}

	c.lost = false
	c.debugLog("remote probe connected", "addr", c.config.Address, "server_version", c.server.String())
	return nil
}

// dialAndHello makes one connect attempt. Must hold mu.
func (c *Client) dialAndHello(ctx context.Context) error {
	conn, err := transport.Dial(ctx, c.config.Address, transport.ClientConfig{
		Trace: c.config.Trace,
		RunID: c.config.RunID,
	})
	if err != nil {
		return err
	}
	c.conn = conn

	resp, err := c.exchange(ctx, &wire.Request{
		Op:      wire.OpHello,
		Version: version.MustCurrent().Protocol(),
	})
	if err != nil {
		c.drop()
		return err
	}

	switch resp.Status {
	case wire.StatusOK:
	case wire.StatusUnsupportedVersion:
		c.drop()
		return connection.Permanent(fmt.Errorf("%w: server speaks %s", ErrUnsupportedVersion, resp.Message))
	default:
		c.drop()
		if resp.Status == wire.StatusBadRequest && strings.Contains(resp.Message, ErrProbeBusy.Error()) {
			return fmt.Errorf("%w: %w", ErrProbeBusy, resp.Err())
		}
		return resp.Err()
	}

	server, err := version.ParseProtocol(resp.Message)
	if err != nil {
		c.drop()
		return connection.Permanent(fmt.Errorf("%w: bad hello version: %w", ErrProtocol, err))
	}
	c.server = server
	return nil
}

// Read32 reads a register through the server.
func (c *Client) Read32(ctx context.Context, addr uint64) (uint32, error) {
	resp, err := c.call(ctx, probe.OpRead32, &wire.Request{Op: wire.OpRead32, Addr: addr})
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// Write32 writes a register through the server.
func (c *Client) Write32(ctx context.Context, addr uint64, value uint32) error {
	_, err := c.call(ctx, probe.OpWrite32, &wire.Request{Op: wire.OpWrite32, Addr: addr, Value: value})
	return err
}

// Flush returns once the server has completed all earlier writes.
func (c *Client) Flush(ctx context.Context) error {
	_, err := c.call(ctx, probe.OpFlush, &wire.Request{Op: wire.OpFlush})
	return err
}

// Close closes the connection to the server.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) call(ctx context.Context, op probe.Op, req *wire.Request) (*wire.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fail := func(err error) (*wire.Response, error) {
		return nil, &probe.Error{Op: op, Addr: req.Addr, Err: err}
	}

	if c.lost {
		return fail(probe.ErrSessionLost)
	}
	if c.conn == nil {
		return fail(probe.ErrNotConnected)
	}

	resp, err := c.exchange(ctx, req)
	if err != nil {
		c.drop()
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		c.lost = true
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fail(fmt.Errorf("%w: %w", probe.ErrSessionLost, probe.ErrTimeout))
		}
		return fail(fmt.Errorf("%w: %w", probe.ErrSessionLost, err))
	}
	if err := resp.Err(); err != nil {
		return fail(err)
	}
	return resp, nil
}

// exchange sends one request and waits for its response. Must hold mu.
func (c *Client) exchange(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	c.nextID++
	if c.nextID == 0 {
		c.nextID = 1
	}
	req.ID = c.nextID

	deadline := time.Now().Add(c.config.IOTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn := c.conn
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		// Unblock the pending read or write.
		conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := conn.Send(data); err != nil {
		return nil, err
	}

	payload, err := conn.Receive()
	if err != nil {
		return nil, err
	}
	resp, err := wire.DecodeResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("%w: response id %d for request %d", ErrProtocol, resp.ID, req.ID)
	}
	return resp, nil
}

// drop closes the connection. Must hold mu.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Compile-time interface satisfaction checks.
var (
	_ probe.Session = (*Client)(nil)
	_ probe.Flusher = (*Client)(nil)
)
