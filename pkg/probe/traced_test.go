package probe_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imxrt-tools/ccmobs-go/pkg/log"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/mocks"
)

type captureLogger struct {
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) { c.events = append(c.events, e) }

func TestTracedRecordsOperations(t *testing.T) {
	ctx := context.Background()
	inner := mocks.NewMockSession(t)
	inner.EXPECT().Connect(mock.Anything).Return(nil).Once()
	inner.EXPECT().Write32(mock.Anything, uint64(0x40150000), uint32(1<<24)).Return(nil).Once()
	inner.EXPECT().Read32(mock.Anything, uint64(0x40150040)).Return(uint32(1234), nil).Once()

	rec := &captureLogger{}
	s := probe.NewTraced(inner, rec, "run-1")

	require.NoError(t, s.Connect(ctx))
	require.NoError(t, s.Write32(ctx, 0x40150000, 1<<24))
	v, err := s.Read32(ctx, 0x40150040)
	require.NoError(t, err)
	assert.Equal(t, uint32(1234), v)

	// MockSession does not implement Flusher; Flush is a no-op and unrecorded.
	require.NoError(t, s.Flush(ctx))

	require.Len(t, rec.events, 3)
	ops := []log.ProbeOp{log.ProbeOpConnect, log.ProbeOpWrite32, log.ProbeOpRead32}
	for i, e := range rec.events {
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, log.LayerProbe, e.Layer)
		assert.Equal(t, log.CategoryIO, e.Category)
		require.NotNil(t, e.Probe)
		assert.Equal(t, ops[i], e.Probe.Op)
	}
	assert.Equal(t, uint32(1234), rec.events[2].Probe.Value)
	assert.Equal(t, uint64(0x40150040), rec.events[2].Probe.Address)
}

func TestTracedRecordsErrors(t *testing.T) {
	inner := mocks.NewMockSession(t)
	lost := &probe.Error{Op: probe.OpRead32, Addr: 0x40150040, Err: probe.ErrSessionLost}
	inner.EXPECT().Read32(mock.Anything, uint64(0x40150040)).Return(uint32(0), lost).Once()

	rec := &captureLogger{}
	s := probe.NewTraced(inner, rec, "run-2")

	_, err := s.Read32(context.Background(), 0x40150040)
	require.Error(t, err)
	assert.True(t, probe.IsSessionLost(err))

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, log.CategoryError, e.Category)
	require.NotNil(t, e.Error)
	assert.True(t, e.Error.Fatal)
	assert.Equal(t, "READ32", e.Error.Context)
}

func TestTracedNilLogger(t *testing.T) {
	inner := mocks.NewMockSession(t)
	inner.EXPECT().Connect(mock.Anything).Return(nil).Once()

	s := probe.NewTraced(inner, nil, "")
	assert.NoError(t, s.Connect(context.Background()))
	assert.Same(t, inner, s.Unwrap())
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		err  *probe.Error
		want string
	}{
		{&probe.Error{Op: probe.OpRead32, Addr: 0x40150240, Err: probe.ErrTimeout}, "probe read32 0x40150240: probe operation timed out"},
		{&probe.Error{Op: probe.OpConnect, Err: errors.New("refused")}, "probe connect: refused"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestIsSessionLost(t *testing.T) {
	wrapped := fmt.Errorf("sample: %w", &probe.Error{Op: probe.OpRead32, Err: fmt.Errorf("%w: %w", probe.ErrSessionLost, probe.ErrTimeout)})
	assert.True(t, probe.IsSessionLost(wrapped))
	assert.True(t, errors.Is(wrapped, probe.ErrTimeout))
	assert.False(t, probe.IsSessionLost(&probe.Error{Op: probe.OpRead32, Err: errors.New("fault")}))
	assert.False(t, probe.IsSessionLost(nil))
}
