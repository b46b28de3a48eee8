package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"listacerta/internal/logging"
)

type (
	trackerKey   struct{}
	surfaceKey   struct{}
	requestIDKey struct{}
)

// DefaultSaveDelay is how long Track waits before flushing to disk.
const DefaultSaveDelay = 5 * time.Second

// Tracker records Gemini token usage and persists aggregates to usage.json.
type Tracker struct {
	mu        sync.Mutex
	data      UsageData
	filePath  string
	dirty     bool
	saveDelay time.Duration
	saveTimer *time.Timer
	closed    bool
	now       func() time.Time
}

// NewTracker creates a tracker persisting under <workspace>/.lista.
func NewTracker(workspacePath string) (*Tracker, error) {
	dir := filepath.Join(workspacePath, ".lista")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .lista dir: %w", err)
	}

	t := &Tracker{
		filePath:  filepath.Join(dir, "usage.json"),
		saveDelay: DefaultSaveDelay,
		now:       time.Now,
		data: UsageData{
			Version:   "1.0",
			Aggregate: newAggregate(),
		},
	}

	if err := t.Load(); err != nil {
		logging.Get(logging.CategoryUsage).Warn("Usage file unreadable, starting fresh: %v", err)
	}
	return t, nil
}

// Path returns the persistence file.
func (t *Tracker) Path() string { return t.filePath }

// Load reads usage data from disk. A missing file is not an error.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	raw, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var data UsageData
	if err := json.Unmarshal(raw, &data); err != nil {
		return err
	}

	agg := newAggregate()
	agg.Total = data.Aggregate.Total
	mergeInto(agg.ByModel, data.Aggregate.ByModel)
	mergeInto(agg.ByOperation, data.Aggregate.ByOperation)
	mergeInto(agg.BySurface, data.Aggregate.BySurface)
	mergeInto(agg.ByDay, data.Aggregate.ByDay)
	data.Aggregate = agg
	if data.Version == "" {
		data.Version = "1.0"
	}
	t.data = data
	return nil
}

// Save writes usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.filePath, raw, 0644); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Track records a successful call.
func (t *Tracker) Track(ctx context.Context, model, operation string, input, output int) {
	t.record(ctx, model, operation, input, output, false)
}

// TrackFailure records a call that returned an error.
func (t *Tracker) TrackFailure(ctx context.Context, model, operation string) {
	t.record(ctx, model, operation, 0, 0, true)
}

func (t *Tracker) record(ctx context.Context, model, operation string, input, output int, failed bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	surface := SurfaceFromContext(ctx)
	ev := UsageEvent{
		Timestamp:    now,
		Model:        model,
		Operation:    operation,
		Surface:      surface,
		RequestID:    RequestIDFromContext(ctx),
		InputTokens:  input,
		OutputTokens: output,
		Failed:       failed,
	}
	t.data.Events = append(t.data.Events, ev)
	if over := len(t.data.Events) - maxEvents; over > 0 {
		t.data.Events = append([]UsageEvent(nil), t.data.Events[over:]...)
	}

	agg := &t.data.Aggregate
	agg.Total.Add(input, output, failed)
	addToMap(agg.ByModel, model, input, output, failed)
	addToMap(agg.ByOperation, operation, input, output, failed)
	addToMap(agg.BySurface, surface, input, output, failed)
	addToMap(agg.ByDay, now.Format("2006-01-02"), input, output, failed)

	logging.Get(logging.CategoryUsage).Debug("%s %s in=%d out=%d failed=%v", operation, model, input, output, failed)

	// Debounced auto-save
	if !t.dirty && !t.closed {
		t.dirty = true
		t.saveTimer = time.AfterFunc(t.saveDelay, func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if !t.dirty {
				return
			}
			if err := t.saveLocked(); err != nil {
				logging.Get(logging.CategoryUsage).Error("Usage autosave failed: %v", err)
			}
		})
	}
}

// Close cancels the pending autosave and writes outstanding changes.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.saveTimer != nil {
		t.saveTimer.Stop()
		t.saveTimer = nil
	}
	if !t.dirty {
		return nil
	}
	return t.saveLocked()
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByOperation = copyTokenCountsMap(stats.ByOperation)
	stats.BySurface = copyTokenCountsMap(stats.BySurface)
	stats.ByDay = copyTokenCountsMap(stats.ByDay)
	return stats
}

// Recent returns up to n of the latest events, newest last.
func (t *Tracker) Recent(n int) []UsageEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	events := t.data.Events
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return append([]UsageEvent(nil), events...)
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func mergeInto(dst, src map[string]TokenCounts) {
	for k, v := range src {
		dst[k] = v
	}
}

func addToMap(m map[string]TokenCounts, key string, input, output int, failed bool) {
	entry := m[key]
	entry.Add(input, output, failed)
	m[key] = entry
}

// Context Helpers

// NewContext returns a new context carrying the tracker.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// FromContext retrieves the tracker from the context.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}

// WithSurface tags calls made under ctx with the surface that triggered them.
func WithSurface(ctx context.Context, surface string) context.Context {
	return context.WithValue(ctx, surfaceKey{}, surface)
}

// SurfaceFromContext returns the surface tag, or "unknown".
func SurfaceFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(surfaceKey{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// WithRequestID tags calls made under ctx with a request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id, if any.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
