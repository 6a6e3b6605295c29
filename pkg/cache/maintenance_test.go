package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestMaintainer(t *testing.T) (*Maintainer, *Store, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	store := NewStore(backend, StoreConfig{BaseTTL: 100 * 24 * time.Hour}, zerolog.Nop())
	tracker := NewPopularityTracker(backend, zerolog.Nop())
	maintainer := NewMaintainer(backend, store, tracker, zerolog.Nop())
	return maintainer, store, backend
}

// putStats writes a stats record directly, bypassing the store's clock.
func putStats(t *testing.T, backend *MemoryBackend, fingerprint string, stats ProcessingStats) {
	t.Helper()
	data, err := json.Marshal(&stats)
	if err != nil {
		t.Fatalf("marshal stats: %v", err)
	}
	if err := backend.Set(context.Background(), statsKey(fingerprint), data, 0); err != nil {
		t.Fatalf("set stats: %v", err)
	}
}

func TestOptimize_RemovesStaleLowTraffic(t *testing.T) {
	maintainer, store, backend := newTestMaintainer(t)
	ctx := context.Background()

	store.Set(ctx, "stale", []byte("payload"), CostProfile{})
	putStats(t, backend, "stale", ProcessingStats{
		LastAccessed: time.Now().Add(-10 * 24 * time.Hour),
		AccessCount:  1,
	})

	report, err := maintainer.Optimize(ctx)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if report.Removed != 1 || report.Optimized != 0 {
		t.Errorf("report = %+v, want removed=1 optimized=0", report)
	}

	if _, ok := store.Get(ctx, "stale"); ok {
		t.Error("stale entry still present after sweep")
	}
	if _, err := store.GetStats(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Errorf("stats for evicted entry: err = %v, want ErrNotFound", err)
	}
}

func TestOptimize_RetainsRecentlyAccessed(t *testing.T) {
	maintainer, store, backend := newTestMaintainer(t)
	ctx := context.Background()

	store.Set(ctx, "fresh", []byte("payload"), CostProfile{})
	putStats(t, backend, "fresh", ProcessingStats{
		LastAccessed: time.Now().Add(-24 * time.Hour),
		AccessCount:  5,
	})

	report, err := maintainer.Optimize(ctx)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if report.Removed != 0 || report.Optimized != 1 {
		t.Errorf("report = %+v, want removed=0 optimized=1", report)
	}
	if _, ok := store.Get(ctx, "fresh"); !ok {
		t.Error("fresh entry removed by sweep")
	}
}

func TestOptimize_RetainsPopularDespiteAge(t *testing.T) {
	maintainer, store, backend := newTestMaintainer(t)
	ctx := context.Background()

	// Old but popular: the access count keeps it alive.
	store.Set(ctx, "popular", []byte("payload"), CostProfile{})
	putStats(t, backend, "popular", ProcessingStats{
		LastAccessed: time.Now().Add(-10 * 24 * time.Hour),
		AccessCount:  50,
	})

	report, err := maintainer.Optimize(ctx)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if report.Removed != 0 || report.Optimized != 1 {
		t.Errorf("report = %+v, want removed=0 optimized=1", report)
	}
}

func TestOptimize_MissingStatsMeansStale(t *testing.T) {
	maintainer, store, _ := newTestMaintainer(t)
	ctx := context.Background()

	store.Set(ctx, "untracked", []byte("payload"), CostProfile{})

	report, err := maintainer.Optimize(ctx)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if report.Removed != 1 {
		t.Errorf("report.Removed = %d, want 1", report.Removed)
	}
	if _, ok := store.Get(ctx, "untracked"); ok {
		t.Error("entry without stats survived the sweep")
	}
}

func TestOptimize_RemovesOrphanStats(t *testing.T) {
	maintainer, store, backend := newTestMaintainer(t)
	ctx := context.Background()

	// Stats record with no corresponding cache entry.
	putStats(t, backend, "ghost", ProcessingStats{
		LastAccessed: time.Now(),
		AccessCount:  10,
	})

	if _, err := maintainer.Optimize(ctx); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	if _, err := store.GetStats(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("orphan stats: err = %v, want ErrNotFound", err)
	}
}

func TestPerformMaintenance_PrunesPopularity(t *testing.T) {
	maintainer, _, _ := newTestMaintainer(t)
	ctx := context.Background()

	clock := &tickingClock{t: time.Now().Add(-40 * 24 * time.Hour)}
	maintainer.tracker.now = clock.now
	maintainer.tracker.Record(ctx, "ancient", nil)
	maintainer.tracker.now = time.Now

	if err := maintainer.PerformMaintenance(ctx); err != nil {
		t.Fatalf("PerformMaintenance failed: %v", err)
	}

	count, _ := maintainer.tracker.Count(ctx)
	if count != 0 {
		t.Errorf("popularity count after maintenance = %d, want 0", count)
	}
}
