package hazard

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hazard_zones.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644))

	reloads := make(chan LoadResult, 4)
	w, err := NewWatcher(path, 0, func(res LoadResult, err error) {
		if err == nil {
			reloads <- res
		}
	})
	require.NoError(t, err)
	w.SetQuietPeriod(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	// Give the watcher a moment to enter its loop before the change we care about.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(hazardsJSON), 0o644))

	select {
	case res := <-reloads:
		assert.Len(t, res.Polygons, 4)
	case <-time.After(5 * time.Second):
		t.Fatal("hazard file change was not picked up")
	}
}
