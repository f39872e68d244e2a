package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imxrt-tools/ccmobs-go/pkg/log"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/transport"
	"github.com/imxrt-tools/ccmobs-go/pkg/version"
	"github.com/imxrt-tools/ccmobs-go/pkg/wire"
)

// DefaultOpTimeout bounds one operation on the served session.
const DefaultOpTimeout = 2 * time.Second

// ServerConfig configures a probe server.
type ServerConfig struct {
	// Session is the probe served to clients. Required.
	Session probe.Session

	// Address to listen on (default ":4770").
	Address string

	// ID identifies this server in discovery records. Defaults to a UUID.
	ID string

	// OpTimeout bounds every session operation (default: 2s).
	OpTimeout time.Duration

	// Trace receives transport events (optional).
	Trace log.Logger

	// Logger for operational logging. Nil disables logging.
	Logger *slog.Logger
}

// Server serves a probe.Session to remote clients.
type Server struct {
	config    ServerConfig
	transport *transport.Server
	ctx       context.Context

	mu    sync.Mutex
	owner *transport.ServerConn
}

// NewServer creates a probe server.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Session == nil {
		return nil, errors.New("remote: session is required")
	}
	if config.ID == "" {
		config.ID = uuid.New().String()
	}
	if config.OpTimeout <= 0 {
		config.OpTimeout = DefaultOpTimeout
	}
	return &Server{config: config}, nil
}

func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

// ID returns the server identifier.
func (s *Server) ID() string {
	return s.config.ID
}

// Start starts listening. The server stops when ctx is cancelled or Stop
// is called.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	s.transport = transport.NewServer(transport.ServerConfig{
		Address:      s.config.Address,
		Trace:        s.config.Trace,
		Logger:       s.config.Logger,
		OnMessage:    s.handleMessage,
		OnDisconnect: s.handleDisconnect,
		OnError: func(conn *transport.ServerConn, err error) {
			if s.config.Logger != nil {
				s.config.Logger.Warn("probe server connection error", slog.String("error", err.Error()))
			}
		},
	})
	if err := s.transport.Start(ctx); err != nil {
		return err
	}
	if s.config.Logger != nil {
		s.config.Logger.Info("probe server listening",
			slog.String("addr", s.transport.Addr().String()),
			slog.String("id", s.config.ID),
			slog.String("protocol", version.MustCurrent().Protocol()))
	}
	return nil
}

// Stop closes the listener and all connections.
func (s *Server) Stop() error {
	if s.transport == nil {
		return nil
	}
	return s.transport.Stop()
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	if s.transport == nil {
		return nil
	}
	return s.transport.Addr()
}

// Port returns the TCP port the server listens on.
func (s *Server) Port() int {
	if s.transport == nil {
		return 0
	}
	return s.transport.Port()
}

func (s *Server) handleDisconnect(conn *transport.ServerConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner == conn {
		s.owner = nil
		s.debugLog("probe released", "conn_id", conn.ConnID())
	}
}

func (s *Server) handleMessage(conn *transport.ServerConn, data []byte) {
	req, err := wire.DecodeRequest(data)
	if err != nil {
		id, ok := wire.PeekID(data)
		if !ok {
			s.debugLog("undecodable request, closing", "conn_id", conn.ConnID(), "error", err)
			conn.Close()
			return
		}
		s.send(conn, wire.NewErrorResponse(id, wire.StatusBadRequest, err.Error()))
		return
	}

	resp := s.dispatch(conn, req)
	if resp == nil {
		conn.Close()
		return
	}
	s.send(conn, resp)
	if resp.Status == wire.StatusUnsupportedVersion {
		conn.Close()
	}
}

func (s *Server) send(conn *transport.ServerConn, resp *wire.Response) {
	data, err := wire.EncodeResponse(resp)
	if err != nil {
		s.debugLog("encode response failed", "error", err)
		conn.Close()
		return
	}
	if err := conn.Send(data); err != nil {
		s.debugLog("send response failed", "conn_id", conn.ConnID(), "error", err)
	}
}

// dispatch executes one request. A nil response means the served session
// was lost and the connection must be closed without a reply.
func (s *Server) dispatch(conn *transport.ServerConn, req *wire.Request) *wire.Response {
	if req.Op == wire.OpHello {
		return s.hello(conn, req)
	}
	if !s.owns(conn) {
		return wire.NewErrorResponse(req.ID, wire.StatusBadRequest, "hello required")
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.OpTimeout)
	defer cancel()

	resp := &wire.Response{ID: req.ID, Status: wire.StatusOK}
	var err error
	switch req.Op {
	case wire.OpRead32:
		resp.Value, err = s.config.Session.Read32(ctx, req.Addr)
	case wire.OpWrite32:
		err = s.config.Session.Write32(ctx, req.Addr, req.Value)
	case wire.OpFlush:
		err = probe.Flush(ctx, s.config.Session)
	}

	if err != nil {
		if probe.IsSessionLost(err) || errors.Is(err, context.DeadlineExceeded) {
			s.debugLog("served session lost", "op", req.Op.String(), "error", err)
			return nil
		}
		return wire.NewErrorResponse(req.ID, wire.StatusIOError, err.Error())
	}
	return resp
}

func (s *Server) hello(conn *transport.ServerConn, req *wire.Request) *wire.Response {
	current := version.MustCurrent()
	if _, err := version.Negotiate(req.Version); err != nil {
		s.debugLog("hello rejected", "conn_id", conn.ConnID(), "peer", req.Version)
		return wire.NewErrorResponse(req.ID, wire.StatusUnsupportedVersion, current.Protocol())
	}

	s.mu.Lock()
	if s.owner != nil && s.owner != conn {
		s.mu.Unlock()
		return wire.NewErrorResponse(req.ID, wire.StatusBadRequest, ErrProbeBusy.Error())
	}
	s.owner = conn
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(s.ctx, s.config.OpTimeout)
	defer cancel()
	if err := s.config.Session.Connect(ctx); err != nil {
		s.mu.Lock()
		s.owner = nil
		s.mu.Unlock()
		return wire.NewErrorResponse(req.ID, wire.StatusIOError, fmt.Sprintf("target connect: %v", err))
	}

	s.debugLog("probe acquired", "conn_id", conn.ConnID(), "peer", req.Version)
	return &wire.Response{ID: req.ID, Status: wire.StatusOK, Message: current.Protocol()}
}

func (s *Server) owns(conn *transport.ServerConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner == conn
}
