package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_EvictsOnSpecWrite(t *testing.T) {
	root := t.TempDir()
	writeChainFixture(t, root)

	reg := New(root, "chains", osRootSource{root})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watchDone := make(chan error, 1)
	go func() { watchDone <- reg.Watch(ctx) }()

	// Let the watcher attach before mutating the directory.
	time.Sleep(100 * time.Millisecond)

	first, err := reg.Resolve(ctx, "echo")
	require.NoError(t, err)

	// Rewriting the chain file triggers eviction; the next lookup
	// recompiles.
	specPath := filepath.Join(root, "chains", "echo.yaml")
	data, err := os.ReadFile(specPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(specPath, data, 0o644))

	assert.Eventually(t, func() bool {
		chain, err := reg.Resolve(ctx, "echo")
		return err == nil && chain != first
	}, 2*time.Second, 20*time.Millisecond, "rewrite must evict the cached chain")

	cancel()
	require.ErrorIs(t, <-watchDone, context.Canceled)
}

func TestWatch_MissingDirectoryFails(t *testing.T) {
	reg := New(t.TempDir(), "chains", osRootSource{""})
	err := reg.Watch(context.Background())
	require.Error(t, err)
}
