package integration

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bader/internal/clock"
	"bader/internal/config"
	"bader/internal/evictor"
	"bader/internal/server"
	"bader/internal/storage"
	"bader/pkg/client"
)

type testServer struct {
	srv   *server.Server
	ev    *evictor.Evictor
	store *storage.Store
}

func setupTestServer(t *testing.T, frequencyMs int) (*testServer, string) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.FrequencyMs = frequencyMs

	clk := clock.New()
	store := storage.New(clk, nil)
	ev := evictor.New(store, clk, cfg.SampleSize, cfg.Threshold, cfg.Frequency(), nil)
	go ev.Run()

	srv := server.New(cfg, store)
	go srv.Start()

	require.Eventually(t, func() bool {
		return srv.Addr() != cfg.ListenAddr
	}, time.Second, time.Millisecond)

	t.Cleanup(func() {
		ev.Stop()
		srv.Shutdown()
	})

	return &testServer{srv: srv, ev: ev, store: store}, srv.Addr()
}

func TestIntegration_BasicSetGet(t *testing.T) {
	_, addr := setupTestServer(t, 100)

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping())

	require.NoError(t, c.Set("hello", []byte("world")))

	value, ok, err := c.Get("hello")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "world", string(value))
}

func TestIntegration_MissingKey(t *testing.T) {
	_, addr := setupTestServer(t, 100)

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("never-set")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntegration_PXExpiryThenGetAndExists(t *testing.T) {
	_, addr := setupTestServer(t, 100)

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetPx("session", []byte("token"), 50))

	exists, err := c.Exists("session")
	require.NoError(t, err)
	assert.True(t, exists)

	time.Sleep(80 * time.Millisecond)

	_, ok, err := c.Get("session")
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err = c.Exists("session")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIntegration_ReplaceResetsExpiry(t *testing.T) {
	_, addr := setupTestServer(t, 100)

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SetPx("k", []byte("v1"), 50))
	require.NoError(t, c.Set("k", []byte("v2"))) // no TTL, replaces the entry

	time.Sleep(80 * time.Millisecond)

	value, ok, err := c.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", string(value))
}

func TestIntegration_Delete(t *testing.T) {
	_, addr := setupTestServer(t, 100)

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set("k", []byte("v")))

	deleted, err := c.Del("k")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = c.Del("k")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestIntegration_ActiveEvictionUnderLoad(t *testing.T) {
	ts, addr := setupTestServer(t, 20)

	c, err := client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	const n = 5000
	for i := 0; i < n; i++ {
		ttl := int64(1 + i%500)
		require.NoError(t, c.SetPx(fmt.Sprintf("k%d", i), []byte("v"), ttl))
	}

	require.Eventually(t, func() bool {
		return ts.srv != nil && ts.store.Len() == 0 && storeLenViaGet(t, c, n) == 0
	}, 2*time.Second, 20*time.Millisecond)
}

// storeLenViaGet counts how many of a sparse sample of keys are still
// reachable through the wire protocol. GET hides (and removes) expired
// entries on its own, so this shows expiry as clients see it; the
// Store.Len() check beside it is what shows the evictor reaped the rest.
func storeLenViaGet(t *testing.T, c *client.Client, n int) int {
	t.Helper()
	remaining := 0
	for i := 0; i < n; i += 137 { // sparse sample, avoid scanning all 5000 every poll
		_, ok, err := c.Get(fmt.Sprintf("k%d", i))
		require.NoError(t, err)
		if ok {
			remaining++
		}
	}
	return remaining
}
