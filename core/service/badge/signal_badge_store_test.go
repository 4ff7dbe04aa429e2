package badge

import (
	"context"
	"sync"
	"testing"
	"time"

	"signal_server/adapter/out/kv"
	"signal_server/core/domain"
	"signal_server/core/port/out"
	"signal_server/pkg/logger"
)

// fakeClock drives time by hand so debounce behavior is deterministic.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	deadline time.Time
	fn       func()
	stopped  bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock and fires due timers.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	due := []*fakeTimer{}
	remaining := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.deadline.After(c.now) {
			due = append(due, t)
		} else if !t.stopped {
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// countingKV counts Set calls to observe persistence.
type countingKV struct {
	*kv.MemoryKV
	mu   sync.Mutex
	sets int
}

func newCountingKV() *countingKV {
	return &countingKV{MemoryKV: kv.NewMemoryKV()}
}

func (c *countingKV) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.MemoryKV.Set(ctx, key, value)
}

func (c *countingKV) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

func newTestStore(t *testing.T, cfg Config) (*Store, *countingKV, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	backing := newCountingKV()
	store := NewStoreWithClock(backing, cfg, clock, logger.New(logger.Config{Level: "error"}))
	store.Init(context.Background())
	return store, backing, clock
}

func floatPtr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }

func TestSetAndGetBadgeData(t *testing.T) {
	store, _, _ := newTestStore(t, DefaultConfig())

	store.SetBadgeData("job-1", domain.BadgePatch{Age: floatPtr(2.5)})

	entry, ok := store.GetBadgeData("job-1")
	if !ok {
		t.Fatal("expected entry for job-1")
	}
	if entry.Age == nil || *entry.Age != 2.5 {
		t.Errorf("Age = %v, want 2.5", entry.Age)
	}
	if entry.ListingID != "job-1" {
		t.Errorf("ListingID = %q, want job-1", entry.ListingID)
	}

	if _, ok := store.GetBadgeData("missing"); ok {
		t.Error("expected no entry for unknown listing")
	}
}

func TestShallowMergePreservesOtherFields(t *testing.T) {
	store, _, _ := newTestStore(t, DefaultConfig())

	store.SetBadgeData("job-1", domain.BadgePatch{GhostScore: intPtr(85)})
	store.SetBadgeData("job-1", domain.BadgePatch{Age: floatPtr(1)})

	entry, ok := store.GetBadgeData("job-1")
	if !ok {
		t.Fatal("expected entry")
	}
	if entry.GhostScore == nil || *entry.GhostScore != 85 {
		t.Errorf("GhostScore = %v, want 85 preserved across merge", entry.GhostScore)
	}
	if entry.GhostCategory != domain.GhostLikelyGhost {
		t.Errorf("GhostCategory = %q, want %q derived from score", entry.GhostCategory, domain.GhostLikelyGhost)
	}
	if entry.Age == nil || *entry.Age != 1 {
		t.Errorf("Age = %v, want 1", entry.Age)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	store, _, _ := newTestStore(t, DefaultConfig())

	store.SetBadgeData("job-1", domain.BadgePatch{Benefits: []string{"401k"}})

	entry, _ := store.GetBadgeData("job-1")
	entry.Benefits[0] = "mutated"

	fresh, _ := store.GetBadgeData("job-1")
	if fresh.Benefits[0] != "401k" {
		t.Errorf("store entry mutated through returned copy: %v", fresh.Benefits)
	}
}

func TestTTLExpiry(t *testing.T) {
	cfg := DefaultConfig()
	store, _, clock := newTestStore(t, cfg)

	store.SetBadgeData("job-1", domain.BadgePatch{Age: floatPtr(1)})

	clock.Advance(cfg.TTL)
	if _, ok := store.GetBadgeData("job-1"); !ok {
		t.Fatal("entry at exactly TTL should still be fresh")
	}

	clock.Advance(time.Second)
	if _, ok := store.GetBadgeData("job-1"); ok {
		t.Fatal("entry past TTL should be evicted on access")
	}
	if stats := store.Stats(); stats.Total != 0 {
		t.Errorf("Total = %d, want 0 after eviction", stats.Total)
	}
}

func TestCapacityEvictsOldest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEntries = 3
	store, _, clock := newTestStore(t, cfg)

	for _, id := range []string{"a", "b", "c"} {
		store.SetBadgeData(id, domain.BadgePatch{Age: floatPtr(1)})
		clock.Advance(time.Minute)
	}

	// At capacity: nothing evicted yet.
	if stats := store.Stats(); stats.Total != 3 {
		t.Fatalf("Total = %d, want 3", stats.Total)
	}

	store.SetBadgeData("d", domain.BadgePatch{Age: floatPtr(1)})

	if stats := store.Stats(); stats.Total != 3 {
		t.Fatalf("Total = %d, want 3 after eviction", stats.Total)
	}
	if _, ok := store.GetBadgeData("a"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok := store.GetBadgeData("d"); !ok {
		t.Error("newest entry should have been retained")
	}
}

func TestRenderedDedup(t *testing.T) {
	store, _, _ := newTestStore(t, DefaultConfig())

	store.SetBadgeData("job-1", domain.BadgePatch{GhostScore: intPtr(50)})

	if store.IsRendered("job-1", domain.BadgeGhost) {
		t.Fatal("badge should not be rendered before MarkRendered")
	}
	store.MarkRendered("job-1", domain.BadgeGhost)
	if !store.IsRendered("job-1", domain.BadgeGhost) {
		t.Fatal("badge should be rendered after MarkRendered")
	}
	if store.IsRendered("job-1", domain.BadgeAge) {
		t.Error("rendered flags are per badge type")
	}

	store.ClearRenderedStatus("job-1")
	if store.IsRendered("job-1", domain.BadgeGhost) {
		t.Error("rendered flags should be cleared")
	}
	// Data survives the rendered reset.
	if entry, ok := store.GetBadgeData("job-1"); !ok || entry.GhostScore == nil {
		t.Error("badge data should survive ClearRenderedStatus")
	}
}

func TestIsRenderedEvictsExpired(t *testing.T) {
	cfg := DefaultConfig()
	store, _, clock := newTestStore(t, cfg)

	store.SetBadgeData("job-1", domain.BadgePatch{Age: floatPtr(1)})
	store.MarkRendered("job-1", domain.BadgeGhost)

	clock.Advance(cfg.TTL + time.Second)

	if store.IsRendered("job-1", domain.BadgeGhost) {
		t.Fatal("expired entry should not report rendered")
	}
	if stats := store.Stats(); stats.Total != 0 {
		t.Errorf("Total = %d, want 0 after eviction on access", stats.Total)
	}
}

func TestDebouncedPersist(t *testing.T) {
	cfg := DefaultConfig()
	store, backing, clock := newTestStore(t, cfg)

	for i := 0; i < 10; i++ {
		store.SetBadgeData("job-1", domain.BadgePatch{GhostScore: intPtr(i * 10)})
		clock.Advance(cfg.PersistDebounce / 2)
	}
	if got := backing.setCount(); got != 0 {
		t.Fatalf("persisted %d times during write burst, want 0", got)
	}

	clock.Advance(cfg.PersistDebounce)
	if got := backing.setCount(); got != 1 {
		t.Fatalf("persisted %d times after burst settled, want 1", got)
	}
}

func TestFlushCancelsPendingPersist(t *testing.T) {
	cfg := DefaultConfig()
	store, backing, clock := newTestStore(t, cfg)

	store.SetBadgeData("job-1", domain.BadgePatch{Age: floatPtr(1)})
	if err := store.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := backing.setCount(); got != 1 {
		t.Fatalf("persisted %d times after Flush, want 1", got)
	}

	clock.Advance(cfg.PersistDebounce * 2)
	if got := backing.setCount(); got != 1 {
		t.Errorf("debounced persist fired after eager Flush, sets = %d", got)
	}
}

func TestInitRestoresPersistedState(t *testing.T) {
	cfg := DefaultConfig()
	store, backing, clock := newTestStore(t, cfg)

	store.SetBadgeData("job-1", domain.BadgePatch{GhostScore: intPtr(70)})
	if err := store.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	restored := NewStoreWithClock(backing, cfg, clock, logger.New(logger.Config{Level: "error"}))
	restored.Init(context.Background())

	entry, ok := restored.GetBadgeData("job-1")
	if !ok {
		t.Fatal("expected persisted entry after restart")
	}
	if entry.GhostScore == nil || *entry.GhostScore != 70 {
		t.Errorf("GhostScore = %v, want 70", entry.GhostScore)
	}
}

func TestInitToleratesCorruptBlob(t *testing.T) {
	backing := newCountingKV()
	if err := backing.Set(context.Background(), out.KeyBadgeState, []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	store := NewStoreWithClock(backing, DefaultConfig(), newFakeClock(), logger.New(logger.Config{Level: "error"}))
	store.Init(context.Background())

	if stats := store.Stats(); stats.Total != 0 || !stats.Initialized {
		t.Errorf("Stats = %+v, want empty initialized store", stats)
	}
}

func TestStats(t *testing.T) {
	store, _, _ := newTestStore(t, DefaultConfig())

	store.SetBadgeData("a", domain.BadgePatch{Age: floatPtr(1)})
	store.SetBadgeData("b", domain.BadgePatch{GhostScore: intPtr(80)})
	store.SetBadgeData("c", domain.BadgePatch{
		StaffingScore: floatPtr(0.9),
		Benefits:      []string{"health"},
	})

	stats := store.Stats()
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.WithAge != 1 || stats.WithGhost != 1 || stats.WithStaffing != 1 || stats.WithBenefits != 1 {
		t.Errorf("family counts = %+v", stats)
	}
}

func TestClear(t *testing.T) {
	store, backing, _ := newTestStore(t, DefaultConfig())

	store.SetBadgeData("a", domain.BadgePatch{Age: floatPtr(1)})
	if err := store.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(context.Background()); err != nil {
		t.Fatal(err)
	}

	if stats := store.Stats(); stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if _, found, _ := backing.Get(context.Background(), out.KeyBadgeState); found {
		t.Error("persisted blob should be deleted by Clear")
	}
}
