package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eternalApril/moonkv/internal/config"
	"github.com/eternalApril/moonkv/internal/metrics"
	"github.com/eternalApril/moonkv/internal/server"
	"github.com/eternalApril/moonkv/internal/storage"
)

type serveFixture struct {
	srv       *server.Server
	ln        net.Listener
	metricsLn net.Listener
	m         *metrics.Registry
}

func newServeFixture(t *testing.T) *serveFixture {
	t.Helper()

	cfg := &config.Config{
		Storage: config.StorageConfig{Shards: 1, Scope: config.ScopeShared},
		GC:      config.DefaultGCConfig(),
	}

	m := metrics.New()
	engine, err := server.NewEngine(storage.NewMapStorage(), cfg, zap.NewNop(), m)
	require.NoError(t, err)
	t.Cleanup(engine.Shutdown)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	metricsLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	return &serveFixture{
		srv:       server.NewServer(engine, cfg, zap.NewNop(), m),
		ln:        ln,
		metricsLn: metricsLn,
		m:         m,
	}
}

func (f *serveFixture) start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, f.srv, f.ln, f.m, f.metricsLn)
	}()
	return done
}

func waitServe(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("serve did not return")
		return nil
	}
}

func metricsReachable(addr string) bool {
	client := http.Client{Timeout: 200 * time.Millisecond}
	resp, err := client.Get("http://" + addr + "/metrics")
	if err != nil {
		return false
	}
	resp.Body.Close() //nolint:errcheck
	return resp.StatusCode == http.StatusOK
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	f := newServeFixture(t)
	addr := f.metricsLn.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := f.start(ctx)

	assert.Eventually(t, func() bool { return metricsReachable(addr) }, time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, waitServe(t, done))
	assert.False(t, metricsReachable(addr))
}

func TestServe_ListenerClosedStopsMetrics(t *testing.T) {
	f := newServeFixture(t)
	addr := f.metricsLn.Addr().String()

	done := f.start(context.Background())
	assert.Eventually(t, func() bool { return metricsReachable(addr) }, time.Second, 20*time.Millisecond)

	// nothing cancels the context; the RESP listener going away alone must end serve
	require.NoError(t, f.ln.Close())

	assert.NoError(t, waitServe(t, done))
	assert.False(t, metricsReachable(addr))
}
