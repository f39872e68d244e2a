package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imxrt-tools/ccmobs-go/pkg/observe"
	"github.com/imxrt-tools/ccmobs-go/pkg/probe/remote"
	"github.com/imxrt-tools/ccmobs-go/pkg/registry"
)

// syncBuffer is a bytes.Buffer safe for the server's log goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// startDaemon runs the command in the background and returns its address.
func startDaemon(t *testing.T, args ...string) (string, *syncBuffer) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	var stderr syncBuffer
	addrCh := make(chan net.Addr, 1)
	done := make(chan int, 1)

	go func() {
		done <- run(ctx, args, &stderr, func(a net.Addr) { addrCh <- a })
	}()

	select {
	case addr := <-addrCh:
		t.Cleanup(func() {
			cancel()
			assert.Equal(t, exitOK, <-done)
		})
		return addr.String(), &stderr
	case code := <-done:
		cancel()
		t.Fatalf("daemon exited with %d: %s", code, stderr.String())
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("daemon did not start")
	}
	return "", nil
}

func TestServeAndMeasure(t *testing.T) {
	addr, stderr := startDaemon(t, "-listen", "127.0.0.1:0", "-variant", "imxrt1180", "-advertise=false", "-log-level", "debug")

	reg, err := registry.ForVariant(registry.IMXRT1180)
	require.NoError(t, err)

	client := remote.NewClient(remote.ClientConfig{Address: addr, MaxAttempts: 1})
	defer client.Close()

	cfg := observe.DefaultConfig()
	cfg.Settle = observe.MinSettle
	cfg.Window = 20 * time.Millisecond
	cfg.Samples = 2

	set, err := observe.Measure(context.Background(), client, reg, []string{"osc_24m"}, cfg)
	require.NoError(t, err)
	require.Equal(t, 1, set.Measured())

	d, err := reg.Lookup("osc_24m")
	require.NoError(t, err)
	assert.InEpsilon(t, d.NominalHz, set.Rows()[0].Measurement.Current, 0.2)
	assert.Contains(t, stderr.String(), "serving simulated target")
}

func TestJitterFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sim:\n  jitter_ppm: 40\n  seed: 9\n"), 0o600))

	_, stderr := startDaemon(t, "-listen", "127.0.0.1:0", "-config", path, "-advertise=false")
	assert.Contains(t, stderr.String(), "jitter_ppm=40")
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown variant", []string{"-variant", "imxrt1060"}, "unknown MCU variant"},
		{"bad log level", []string{"-log-level", "loud"}, "invalid log level"},
		{"extra args", []string{"serve"}, "unexpected arguments"},
		{"missing config", []string{"-config", "/nonexistent.yaml"}, "failed to read file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			code := run(context.Background(), tt.args, &stderr, nil)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}
