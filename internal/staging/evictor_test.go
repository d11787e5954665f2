package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdulahad-2/Sage-video-downloader/internal/metrics"
	"github.com/abdulahad-2/Sage-video-downloader/internal/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvictor(t *testing.T, config staging.Config) (*staging.Store, *staging.Evictor) {
	t.Helper()

	config.DirPath = t.TempDir()
	store, err := staging.New(config)
	require.NoError(t, err)

	return store, staging.NewEvictor(store, config, metrics.Noop{})
}

func TestSchedule_DeletesAfterDelay(t *testing.T) {
	store, evictor := newTestEvictor(t, staging.Config{})
	stageFile(t, store, "artifact.mp4", []byte("media"))

	evictor.Schedule("artifact.mp4", time.Millisecond*50)

	// The artifact must survive until the delay elapses.
	assert.True(t, store.Exists("artifact.mp4"))
	assert.Eventually(t, func() bool {
		return !store.Exists("artifact.mp4")
	}, time.Second*2, time.Millisecond*10)
}

func TestSchedule_ZeroDelayStillDefers(t *testing.T) {
	store, evictor := newTestEvictor(t, staging.Config{})
	stageFile(t, store, "artifact.mp4", []byte("media"))

	evictor.Schedule("artifact.mp4", 0)

	assert.Eventually(t, func() bool {
		return !store.Exists("artifact.mp4")
	}, time.Second*2, time.Millisecond*10)
}

func TestSchedule_NegativeDelayClampedToZero(t *testing.T) {
	store, evictor := newTestEvictor(t, staging.Config{})
	stageFile(t, store, "artifact.mp4", []byte("media"))

	evictor.Schedule("artifact.mp4", -time.Minute)

	assert.Eventually(t, func() bool {
		return !store.Exists("artifact.mp4")
	}, time.Second*2, time.Millisecond*10)
}

func TestSchedule_ReplacementShortensOutstandingDelay(t *testing.T) {
	store, evictor := newTestEvictor(t, staging.Config{})
	stageFile(t, store, "artifact.mp4", []byte("media"))

	evictor.Schedule("artifact.mp4", time.Hour)
	evictor.Schedule("artifact.mp4", time.Millisecond*50)

	assert.Eventually(t, func() bool {
		return !store.Exists("artifact.mp4")
	}, time.Second*2, time.Millisecond*10)
}

func TestSchedule_MissingArtifactIsSwallowed(t *testing.T) {
	store, evictor := newTestEvictor(t, staging.Config{})

	evictor.Schedule("never-existed.mp4", time.Millisecond*10)

	// Nothing to assert beyond the absence of a panic; the eviction
	// task logs and terminates without propagating anywhere.
	time.Sleep(time.Millisecond * 100)
	assert.False(t, store.Exists("never-existed.mp4"))
}

func TestCancel_StopsOutstandingSchedule(t *testing.T) {
	store, evictor := newTestEvictor(t, staging.Config{})
	stageFile(t, store, "artifact.mp4", []byte("media"))

	evictor.Schedule("artifact.mp4", time.Millisecond*50)
	evictor.Cancel("artifact.mp4")

	time.Sleep(time.Millisecond * 200)
	assert.True(t, store.Exists("artifact.mp4"))
}

func TestRun_StartupSweepRemovesOrphans(t *testing.T) {
	config := staging.Config{EvictionSeconds: 60, SweepSchedule: "@every 1h"}
	store, evictor := newTestEvictor(t, config)

	stageFile(t, store, "orphan.mp4", []byte("media"))
	stale := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(store.Root(), "orphan.mp4"), stale, stale))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- evictor.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return !store.Exists("orphan.mp4")
	}, time.Second*2, time.Millisecond*10)

	cancel()
	require.NoError(t, <-done)
}
