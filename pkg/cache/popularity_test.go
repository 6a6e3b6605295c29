package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// tickingClock hands out strictly increasing timestamps.
type tickingClock struct {
	t time.Time
}

func (c *tickingClock) now() time.Time {
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func newTestTracker() (*PopularityTracker, *tickingClock) {
	tracker := NewPopularityTracker(NewMemoryBackend(), zerolog.Nop())
	clock := &tickingClock{t: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)}
	tracker.now = clock.now
	return tracker, clock
}

func TestTracker_CapAt100(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		tracker.Record(ctx, fmt.Sprintf("fp%03d", i), nil)
	}

	count, err := tracker.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 100 {
		t.Errorf("Count = %d, want 100", count)
	}

	// The survivors must be the 100 most recent inserts (fp050..fp149).
	candidates, err := tracker.Candidates(ctx, 100)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(candidates) != 100 {
		t.Fatalf("len(candidates) = %d, want 100", len(candidates))
	}
	if candidates[0] != "fp149" {
		t.Errorf("top candidate = %s, want fp149", candidates[0])
	}
	for _, fp := range candidates {
		var i int
		fmt.Sscanf(fp, "fp%03d", &i)
		if i < 50 {
			t.Errorf("evicted fingerprint %s still present", fp)
		}
	}
}

func TestTracker_CandidatesOrderedMostRecentFirst(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	tracker.Record(ctx, "old", nil)
	tracker.Record(ctx, "middle", nil)
	tracker.Record(ctx, "new", nil)

	candidates, err := tracker.Candidates(ctx, 2)
	if err != nil {
		t.Fatalf("Candidates failed: %v", err)
	}
	if len(candidates) != 2 || candidates[0] != "new" || candidates[1] != "middle" {
		t.Errorf("candidates = %v, want [new middle]", candidates)
	}
}

func TestTracker_PruneOlderThan(t *testing.T) {
	tracker, clock := newTestTracker()
	ctx := context.Background()

	tracker.Record(ctx, "ancient", nil)

	// Everything recorded after this point is within the window.
	clock.t = clock.t.Add(40 * 24 * time.Hour)
	tracker.Record(ctx, "fresh", nil)

	removed, err := tracker.PruneOlderThan(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("PruneOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	candidates, _ := tracker.Candidates(ctx, 10)
	if len(candidates) != 1 || candidates[0] != "fresh" {
		t.Errorf("candidates after prune = %v, want [fresh]", candidates)
	}
}

func TestTracker_Metadata(t *testing.T) {
	tracker, _ := newTestTracker()
	ctx := context.Background()

	tracker.Record(ctx, "fp1", []byte(`{"word_count":42}`))

	meta, err := tracker.Metadata(ctx, "fp1")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if string(meta) != `{"word_count":42}` {
		t.Errorf("metadata = %s", meta)
	}
}

func TestTracker_RecordFailSoft(t *testing.T) {
	tracker := NewPopularityTracker(&brokenBackend{}, zerolog.Nop())

	// Must not panic or surface the backend error.
	tracker.Record(context.Background(), "fp1", []byte("meta"))
}
