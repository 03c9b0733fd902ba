package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"regbot/cmd/internal/platform"
	"regbot/cmd/internal/platform/platformtest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	*platformtest.Fake
	bound   atomic.Bool
	opened  chan struct{}
	closed  atomic.Bool
	openErr error
}

func (g *fakeGateway) Bind(_ context.Context, _ platform.EventHandler) { g.bound.Store(true) }

func (g *fakeGateway) Open() error {
	if g.openErr != nil {
		return g.openErr
	}
	close(g.opened)
	return nil
}

func (g *fakeGateway) Close() error {
	g.closed.Store(true)
	return nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buckets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("buckets:\n  - {type: A, min: 1, max: 50, category_id: c1}\n"), 0o600))
	return Config{
		HTTPAddr:          "127.0.0.1:0",
		InviteChannelID:   "rules",
		RegisterChannelID: "bot-cmd",
		BucketsFile:       path,
		Store:             StoreMemory,
		JanitorInterval:   time.Hour,
		HandlerTimeout:    time.Second,
		MailWorkers:       1,
	}
}

func discardLogger() Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestApp_RunLifecycle(t *testing.T) {
	t.Parallel()

	gw := &fakeGateway{Fake: platformtest.NewFake("bot", "g1"), opened: make(chan struct{})}
	a, err := newApp(context.Background(), testConfig(t), discardLogger(), gw)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-gw.opened:
	case <-time.After(5 * time.Second):
		t.Fatal("gateway was not opened")
	}
	assert.True(t, gw.bound.Load(), "handler bound before open")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, gw.closed.Load())
}

func TestApp_RunFailsWhenGatewayFails(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	gw := &fakeGateway{Fake: platformtest.NewFake("bot"), opened: make(chan struct{}), openErr: boom}
	a, err := newApp(context.Background(), testConfig(t), discardLogger(), gw)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestNewApp_RejectsBadBucketTable(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.BucketsFile, []byte("buckets:\n  - {type: a, min: 0, max: 5, category_id: c}\n"), 0o600))

	_, err := newApp(context.Background(), cfg, discardLogger(), &fakeGateway{Fake: platformtest.NewFake("bot")})
	require.Error(t, err)
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestRegisterHTTP(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "regbot_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	var ready atomic.Bool
	st := &pinger{}
	mux := http.NewServeMux()
	registerHTTP(mux, discardLogger(), st, ready.Load, reg)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	assert.Equal(t, http.StatusOK, get("/healthz").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)

	ready.Store(true)
	assert.Equal(t, http.StatusOK, get("/readyz").Code)

	st.err = errors.New("db down")
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz").Code)

	m := get("/metrics")
	assert.Equal(t, http.StatusOK, m.Code)
	assert.True(t, strings.Contains(m.Body.String(), "regbot_test_total 1"))
}
