package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goforj/swrcache"
	"github.com/goforj/swrcache/swrfake"
)

func TestRunStartsAndStops(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "swrcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: "127.0.0.1:0"
log_level: error
sources:
  - key: greeting
    ttl: 1m
    command: ["sh", "-c", "printf hi"]
    warm: true
`), 0o600))

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	assert.NoError(t, run(ctx, path))
}

func TestRunRejectsMissingConfig(t *testing.T) {
	err := run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWaitRefreshes(t *testing.T) {
	clock := swrfake.NewClock(time.Unix(0, 0))
	c := swrcache.New[[]byte](swrcache.WithClock(clock))
	require.NoError(t, waitRefreshes(context.Background(), c))

	require.NoError(t, c.Set("k", []byte("v"), time.Second))
	clock.Advance(2 * time.Second)
	release := make(chan struct{})
	_, _ = c.CachedCtx(context.Background(), "k", time.Minute, func(context.Context) ([]byte, error) {
		<-release
		return []byte("v2"), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, waitRefreshes(ctx, c), context.DeadlineExceeded)

	close(release)
	require.NoError(t, waitRefreshes(context.Background(), c))
}
