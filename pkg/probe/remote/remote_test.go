package remote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imxrt-tools/ccmobs-go/pkg/connection"
	"github.com/imxrt-tools/ccmobs-go/pkg/observe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/mocks"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/remote"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/sim"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
	"github.com/imxrt-tools/ccmobs-go/pkg/transport"
	"github.com/imxrt-tools/ccmobs-go/pkg/wire"
)

const scratch = 0x20000000

func startServer(t *testing.T, session probe.Session) *remote.Server {
	t.Helper()

	srv, err := remote.NewServer(remote.ServerConfig{
		Session: session,
		Address: "127.0.0.1:0",
	})
	require.NoError(t, err)
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(func() { srv.Stop() })
	return srv
}

func newSimTarget(t *testing.T) (*sim.Target, registry.Registry) {
	t.Helper()

	reg, err := registry.ForVariant(registry.IMXRT1170)
	require.NoError(t, err)
	target, err := sim.NewTarget(sim.Config{Registry: reg})
	require.NoError(t, err)
	return target, reg
}

func newClient(t *testing.T, srv *remote.Server, cfg remote.ClientConfig) *remote.Client {
	t.Helper()

	cfg.Address = srv.Addr().String()
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 1
	}
	c := remote.NewClient(cfg)
	t.Cleanup(func() { c.Close() })
	return c
}

func connect(t *testing.T, c *remote.Client) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
}

func TestClientReadWrite(t *testing.T) {
	target, _ := newSimTarget(t)
	srv := startServer(t, target)
	c := newClient(t, srv, remote.ClientConfig{})
	connect(t, c)

	ctx := context.Background()
	require.NoError(t, c.Write32(ctx, scratch, 0xCAFEF00D))
	require.NoError(t, c.Flush(ctx))

	v, err := c.Read32(ctx, scratch)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xCAFEF00D), v)
	assert.Equal(t, uint16(1), c.ServerVersion().Major)

	// Connect on a connected client is a no-op.
	connect(t, c)
}

func TestClientNotConnected(t *testing.T) {
	target, _ := newSimTarget(t)
	srv := startServer(t, target)
	c := newClient(t, srv, remote.ClientConfig{})

	_, err := c.Read32(context.Background(), scratch)
	assert.ErrorIs(t, err, probe.ErrNotConnected)
}

func TestMeasureOverRemote(t *testing.T) {
	target, reg := newSimTarget(t)
	srv := startServer(t, target)
	c := newClient(t, srv, remote.ClientConfig{})

	cfg := observe.DefaultConfig()
	cfg.Settle = observe.MinSettle
	cfg.Window = 50 * time.Millisecond
	cfg.Samples = 2

	set, err := observe.Measure(context.Background(), c, reg, []string{"bus"}, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, set.Measured())

	bus, err := reg.Lookup("bus")
	require.NoError(t, err)
	row := set.Rows()[0]
	assert.Equal(t, "BUS_CLK_ROOT", row.Name())
	assert.InEpsilon(t, float64(bus.NominalHz), float64(row.Measurement.Current), 0.1)
}

func TestServerIOErrorIsNotFatal(t *testing.T) {
	target, _ := newSimTarget(t)
	target.InjectFault(sim.Fault{Op: probe.OpRead32, Addr: scratch})
	srv := startServer(t, target)
	c := newClient(t, srv, remote.ClientConfig{})
	connect(t, c)

	_, err := c.Read32(context.Background(), scratch)
	require.Error(t, err)
	assert.False(t, probe.IsSessionLost(err))

	var statusErr *wire.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, wire.StatusIOError, statusErr.Status)

	// The session stays usable.
	_, err = c.Read32(context.Background(), scratch)
	assert.NoError(t, err)
}

func TestServedSessionLost(t *testing.T) {
	target, _ := newSimTarget(t)
	target.InjectFault(sim.Fault{Op: probe.OpRead32, Disconnect: true})
	srv := startServer(t, target)
	c := newClient(t, srv, remote.ClientConfig{})
	connect(t, c)

	_, err := c.Read32(context.Background(), scratch)
	assert.True(t, probe.IsSessionLost(err), "got %v", err)

	err = c.Write32(context.Background(), scratch, 1)
	assert.True(t, probe.IsSessionLost(err), "got %v", err)
}

func TestIOTimeoutDropsSession(t *testing.T) {
	session := mocks.NewMockSession(t)
	session.EXPECT().Connect(mock.Anything).Return(nil)
	session.EXPECT().Read32(mock.Anything, uint64(scratch)).RunAndReturn(func(ctx context.Context, _ uint64) (uint32, error) {
		time.Sleep(200 * time.Millisecond)
		return 0, nil
	}).Once()

	srv := startServer(t, session)
	c := newClient(t, srv, remote.ClientConfig{IOTimeout: 50 * time.Millisecond})
	connect(t, c)

	_, err := c.Read32(context.Background(), scratch)
	assert.ErrorIs(t, err, probe.ErrTimeout)
	assert.True(t, probe.IsSessionLost(err))

	var perr *probe.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, probe.OpRead32, perr.Op)
	assert.Equal(t, uint64(scratch), perr.Addr)
}

func TestContextCancelInterruptsExchange(t *testing.T) {
	session := mocks.NewMockSession(t)
	session.EXPECT().Connect(mock.Anything).Return(nil)
	session.EXPECT().Read32(mock.Anything, uint64(scratch)).RunAndReturn(func(ctx context.Context, _ uint64) (uint32, error) {
		time.Sleep(200 * time.Millisecond)
		return 0, nil
	}).Once()

	srv := startServer(t, session)
	c := newClient(t, srv, remote.ClientConfig{})
	connect(t, c)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := c.Read32(ctx, scratch)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, probe.IsSessionLost(err))
}

func TestProbeOwnedByOneClient(t *testing.T) {
	target, _ := newSimTarget(t)
	srv := startServer(t, target)

	first := newClient(t, srv, remote.ClientConfig{})
	connect(t, first)

	second := newClient(t, srv, remote.ClientConfig{})
	err := second.Connect(context.Background())
	assert.ErrorIs(t, err, remote.ErrProbeBusy)

	require.NoError(t, first.Close())

	// Ownership is released when the owner disconnects.
	retrying := newClient(t, srv, remote.ClientConfig{
		MaxAttempts: 20,
		Backoff:     connection.Backoff{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond},
	})
	connect(t, retrying)
}

func TestTargetConnectFailure(t *testing.T) {
	session := mocks.NewMockSession(t)
	session.EXPECT().Connect(mock.Anything).Return(errors.New("no target voltage"))

	srv := startServer(t, session)
	c := newClient(t, srv, remote.ClientConfig{MaxAttempts: 2, Backoff: connection.Backoff{Initial: time.Millisecond}})

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target voltage")

	var perr *probe.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, probe.OpConnect, perr.Op)
}

// rawExchange sends one request on a bare transport connection.
func rawExchange(t *testing.T, conn *transport.ClientConn, req *wire.Request) *wire.Response {
	t.Helper()

	data, err := wire.EncodeRequest(req)
	require.NoError(t, err)
	require.NoError(t, conn.Send(data))

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	payload, err := conn.Receive()
	require.NoError(t, err)
	resp, err := wire.DecodeResponse(payload)
	require.NoError(t, err)
	return resp
}

func dialRaw(t *testing.T, srv *remote.Server) *transport.ClientConn {
	t.Helper()

	conn, err := transport.Dial(context.Background(), srv.Addr().String(), transport.ClientConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerRejectsIncompatibleVersion(t *testing.T) {
	target, _ := newSimTarget(t)
	srv := startServer(t, target)
	conn := dialRaw(t, srv)

	resp := rawExchange(t, conn, &wire.Request{ID: 1, Op: wire.OpHello, Version: "ccmobs/2.0"})
	assert.Equal(t, wire.StatusUnsupportedVersion, resp.Status)
	assert.Equal(t, "ccmobs/1.0", resp.Message)

	// The server closes the connection after rejecting.
	_, err := conn.Receive()
	assert.Error(t, err)
}

func TestServerRequiresHello(t *testing.T) {
	target, _ := newSimTarget(t)
	srv := startServer(t, target)
	conn := dialRaw(t, srv)

	resp := rawExchange(t, conn, &wire.Request{ID: 9, Op: wire.OpRead32, Addr: scratch})
	assert.Equal(t, uint32(9), resp.ID)
	assert.Equal(t, wire.StatusBadRequest, resp.Status)

	resp = rawExchange(t, conn, &wire.Request{ID: 10, Op: wire.OpHello, Version: "ccmobs/1"})
	assert.Equal(t, wire.StatusOK, resp.Status)

	resp = rawExchange(t, conn, &wire.Request{ID: 11, Op: wire.OpRead32, Addr: scratch})
	assert.Equal(t, wire.StatusOK, resp.Status)
}

func TestServerBadRequest(t *testing.T) {
	target, _ := newSimTarget(t)
	srv := startServer(t, target)
	conn := dialRaw(t, srv)

	data, err := wire.Marshal(map[int]any{wire.KeyID: 5, wire.KeyOp: 77})
	require.NoError(t, err)
	require.NoError(t, conn.Send(data))

	conn.SetDeadline(time.Now().Add(2 * time.Second))
	payload, err := conn.Receive()
	require.NoError(t, err)
	resp, err := wire.DecodeResponse(payload)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), resp.ID)
	assert.Equal(t, wire.StatusBadRequest, resp.Status)
}

func TestNewServerRequiresSession(t *testing.T) {
	_, err := remote.NewServer(remote.ServerConfig{})
	assert.Error(t, err)
}
