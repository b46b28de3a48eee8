package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tracker.Close()
	tracker.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }
	tracker.saveDelay = time.Hour

	ctx := WithRequestID(WithSurface(context.Background(), "tui"), "req-1")
	tracker.Track(ctx, "gemini-2.5-flash", OpSuggest, 10, 5)
	tracker.Track(ctx, "gemini-2.5-flash", OpSuggest, 2, 3)
	tracker.TrackFailure(ctx, "imagen-4.0-generate-001", OpImage)

	stats := tracker.Stats()
	if stats.Total.Input != 12 || stats.Total.Output != 8 || stats.Total.Total != 20 {
		t.Fatalf("Total=%+v, want input=12 output=8 total=20", stats.Total)
	}
	assert.Equal(t, int64(3), stats.Total.Calls)
	assert.Equal(t, int64(1), stats.Total.Failures)
	assert.Equal(t, int64(20), stats.ByModel["gemini-2.5-flash"].Total)
	assert.Equal(t, int64(1), stats.ByOperation[OpImage].Failures)
	assert.Equal(t, int64(3), stats.BySurface["tui"].Calls)
	assert.Equal(t, int64(3), stats.ByDay["2026-03-14"].Calls)

	recent := tracker.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "req-1", recent[0].RequestID)
	assert.True(t, recent[1].Failed)

	if err := tracker.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ws, ".lista", "usage.json"))
	if err != nil {
		t.Fatalf("read usage.json: %v", err)
	}
	var persisted UsageData
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal usage.json: %v", err)
	}
	if persisted.Aggregate.Total.Total != 20 {
		t.Fatalf("persisted total=%d, want 20", persisted.Aggregate.Total.Total)
	}

	reopened, err := NewTracker(ws)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, stats.Total, reopened.Stats().Total)
}

func TestTracker_CloseFlushesPendingSave(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	require.NoError(t, err)
	tracker.saveDelay = time.Hour

	tracker.Track(context.Background(), "gemini-2.5-flash", OpCompare, 100, 40)
	_, err = os.Stat(tracker.Path())
	assert.True(t, os.IsNotExist(err), "nothing written before the autosave fires")

	require.NoError(t, tracker.Close())
	_, err = os.Stat(tracker.Path())
	assert.NoError(t, err)

	// Closed trackers keep counting but schedule no further saves.
	tracker.Track(context.Background(), "gemini-2.5-flash", OpCompare, 1, 1)
	assert.Equal(t, int64(2), tracker.Stats().Total.Calls)
}

func TestTracker_AutosaveFires(t *testing.T) {
	tracker, err := NewTracker(t.TempDir())
	require.NoError(t, err)
	defer tracker.Close()
	tracker.saveDelay = 10 * time.Millisecond

	tracker.Track(context.Background(), "m", OpSuggest, 1, 1)
	require.Eventually(t, func() bool {
		_, err := os.Stat(tracker.Path())
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestTracker_EventsAreBounded(t *testing.T) {
	tracker, err := NewTracker(t.TempDir())
	require.NoError(t, err)
	defer tracker.Close()
	tracker.saveDelay = time.Hour

	for i := 0; i < maxEvents+25; i++ {
		tracker.Track(context.Background(), "m", OpImage, 1, 0)
	}
	assert.Len(t, tracker.Recent(0), maxEvents)
	assert.Equal(t, int64(maxEvents+25), tracker.Stats().Total.Calls)
}

func TestTracker_CorruptFileStartsFresh(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(ws, ".lista"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".lista", "usage.json"), []byte("{not json"), 0644))

	tracker, err := NewTracker(ws)
	require.NoError(t, err)
	defer tracker.Close()
	assert.Zero(t, tracker.Stats().Total.Calls)
	assert.NotNil(t, tracker.Stats().ByModel)
}

func TestTracker_ContextHelpers(t *testing.T) {
	ws := t.TempDir()
	tracker, err := NewTracker(ws)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	defer tracker.Close()

	ctx := NewContext(context.Background(), tracker)
	if got := FromContext(ctx); got != tracker {
		t.Fatalf("FromContext mismatch")
	}
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("FromContext on bare context = %v, want nil", got)
	}
	assert.Equal(t, "unknown", SurfaceFromContext(context.Background()))
	assert.Equal(t, "http", SurfaceFromContext(WithSurface(ctx, "http")))
	assert.Empty(t, RequestIDFromContext(ctx))
}

func TestTracker_NilIsSafe(t *testing.T) {
	var tracker *Tracker
	tracker.Track(context.Background(), "m", OpSuggest, 1, 1)
	tracker.TrackFailure(context.Background(), "m", OpSuggest)
}
