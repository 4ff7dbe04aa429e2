package badge

import (
	"context"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"signal_server/core/domain"
	"signal_server/core/port/out"
)

// Store defaults.
const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 500
	DefaultDebounce   = 500 * time.Millisecond
)

// Config tunes the badge store cache behavior.
type Config struct {
	TTL             time.Duration
	MaxEntries      int
	PersistDebounce time.Duration
}

// DefaultConfig returns the production cache settings.
func DefaultConfig() Config {
	return Config{
		TTL:             DefaultTTL,
		MaxEntries:      DefaultMaxEntries,
		PersistDebounce: DefaultDebounce,
	}
}

// Store is the in-memory badge state cache, persisted as a single blob in the
// durable KV store. Reads and writes go through the in-memory map; the blob is
// loaded once on Init and flushed back on a debounce after writes.
type Store struct {
	mu          sync.Mutex
	cfg         Config
	kv          out.KVStore
	clock       Clock
	log         zerolog.Logger
	entries     map[string]*domain.BadgeEntry
	initialized bool
	sched       *flushScheduler
}

// NewStore creates a badge store over the given durable KV backend.
func NewStore(kv out.KVStore, cfg Config, log zerolog.Logger) *Store {
	return NewStoreWithClock(kv, cfg, RealClock(), log)
}

// NewStoreWithClock creates a badge store with an injected clock.
func NewStoreWithClock(kv out.KVStore, cfg Config, clock Clock, log zerolog.Logger) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	if cfg.PersistDebounce <= 0 {
		cfg.PersistDebounce = DefaultDebounce
	}

	s := &Store{
		cfg:     cfg,
		kv:      kv,
		clock:   clock,
		log:     log.With().Str("component", "badge_store").Logger(),
		entries: make(map[string]*domain.BadgeEntry),
	}
	s.sched = newFlushScheduler(clock, cfg.PersistDebounce, s.persistDeferred)
	return s
}

// Init loads persisted badge state into memory. Idempotent: repeat calls are
// no-ops. A missing, unreadable or corrupt blob yields an empty store, never
// an error, so one bad persisted blob cannot wedge startup.
func (s *Store) Init(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		return
	}
	s.initialized = true

	raw, found, err := s.kv.Get(ctx, out.KeyBadgeState)
	if err != nil {
		s.log.Warn().Err(err).Msg("badge state load failed, starting empty")
		return
	}
	if !found {
		return
	}

	var stored map[string]*domain.BadgeEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.log.Warn().Err(err).Msg("badge state blob corrupt, starting empty")
		return
	}

	now := s.clock.Now()
	loaded := 0
	for id, entry := range stored {
		if entry == nil || s.expired(entry, now) {
			continue
		}
		entry.ListingID = id
		s.entries[id] = entry
		loaded++
	}

	s.log.Debug().Int("entries", loaded).Msg("badge state loaded")
}

// SetBadgeData merges a partial update into the listing's entry, creating it
// if absent. Every call bumps the entry timestamp and schedules a debounced
// persist. Capacity is enforced after the write by evicting oldest entries.
func (s *Store) SetBadgeData(listingID string, patch domain.BadgePatch) {
	if listingID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[listingID]
	if !ok {
		entry = &domain.BadgeEntry{ListingID: listingID}
		s.entries[listingID] = entry
	}

	if patch.Age != nil {
		entry.Age = patch.Age
	}
	if patch.GhostScore != nil {
		entry.GhostScore = patch.GhostScore
		if patch.GhostCategory.Valid() {
			entry.GhostCategory = patch.GhostCategory
		} else {
			entry.GhostCategory = domain.GhostCategoryFromScore(*patch.GhostScore)
		}
	}
	if patch.StaffingScore != nil {
		entry.StaffingScore = patch.StaffingScore
		entry.StaffingReason = patch.StaffingReason
	}
	if patch.Benefits != nil {
		entry.Benefits = append([]string(nil), patch.Benefits...)
	}
	entry.Timestamp = s.clock.Now()

	s.evictOverCapacityLocked()
	s.sched.Schedule()
}

// GetBadgeData returns a copy of the listing's entry. An expired entry is
// evicted on access and reported as absent.
func (s *Store) GetBadgeData(listingID string) (domain.BadgeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[listingID]
	if !ok {
		return domain.BadgeEntry{}, false
	}
	if s.expired(entry, s.clock.Now()) {
		delete(s.entries, listingID)
		return domain.BadgeEntry{}, false
	}
	return copyEntry(entry), true
}

// HasBadge reports whether fresh data backing the badge type exists.
func (s *Store) HasBadge(listingID string, badgeType domain.BadgeType) bool {
	entry, ok := s.GetBadgeData(listingID)
	if !ok {
		return false
	}
	return entry.HasBadge(badgeType)
}

// MarkRendered records that the badge was inserted into the current
// presentation. Rendered state rides on the entry but does not bump its
// data timestamp, so render bookkeeping never extends data freshness.
func (s *Store) MarkRendered(listingID string, badgeType domain.BadgeType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[listingID]
	if !ok {
		entry = &domain.BadgeEntry{
			ListingID: listingID,
			Timestamp: s.clock.Now(),
		}
		s.entries[listingID] = entry
	}
	if entry.Rendered == nil {
		entry.Rendered = make(map[domain.BadgeType]time.Time)
	}
	entry.Rendered[badgeType] = s.clock.Now()

	s.evictOverCapacityLocked()
	s.sched.Schedule()
}

// IsRendered reports whether the badge is already present in the current
// presentation. Used to dedupe insertion.
func (s *Store) IsRendered(listingID string, badgeType domain.BadgeType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[listingID]
	if !ok {
		return false
	}
	if s.expired(entry, s.clock.Now()) {
		delete(s.entries, listingID)
		return false
	}
	_, rendered := entry.Rendered[badgeType]
	return rendered
}

// ClearRenderedStatus drops all rendered flags for the listing, keeping the
// badge data itself. Called when the host page destroys its nodes.
func (s *Store) ClearRenderedStatus(listingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[listingID]
	if !ok {
		return
	}
	entry.Rendered = nil
	s.sched.Schedule()
}

// Flush persists the current state immediately, cancelling any pending
// debounced persist.
func (s *Store) Flush(ctx context.Context) error {
	s.sched.Cancel()
	return s.persist(ctx)
}

// Clear empties the store in memory and durably.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*domain.BadgeEntry)
	s.mu.Unlock()

	s.sched.Cancel()
	return s.kv.Delete(ctx, out.KeyBadgeState)
}

// Stats returns per-family entry counts.
func (s *Store) Stats() domain.BadgeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.BadgeStats{
		Total:       len(s.entries),
		Initialized: s.initialized,
	}
	for _, entry := range s.entries {
		if entry.HasBadge(domain.BadgeAge) {
			stats.WithAge++
		}
		if entry.HasBadge(domain.BadgeGhost) {
			stats.WithGhost++
		}
		if entry.HasBadge(domain.BadgeStaffing) {
			stats.WithStaffing++
		}
		if entry.HasBadge(domain.BadgeBenefits) {
			stats.WithBenefits++
		}
	}
	return stats
}

func (s *Store) expired(entry *domain.BadgeEntry, now time.Time) bool {
	return now.Sub(entry.Timestamp) > s.cfg.TTL
}

// evictOverCapacityLocked removes oldest-by-timestamp entries until the map
// fits MaxEntries. Caller holds s.mu.
func (s *Store) evictOverCapacityLocked() {
	for len(s.entries) > s.cfg.MaxEntries {
		oldestID := ""
		var oldestTS time.Time
		for id, entry := range s.entries {
			if oldestID == "" || entry.Timestamp.Before(oldestTS) {
				oldestID = id
				oldestTS = entry.Timestamp
			}
		}
		delete(s.entries, oldestID)
	}
}

func (s *Store) persistDeferred() {
	if err := s.persist(context.Background()); err != nil {
		s.log.Warn().Err(err).Msg("deferred badge persist failed")
	}
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	raw, err := json.Marshal(s.entries)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, out.KeyBadgeState, raw)
}

func copyEntry(entry *domain.BadgeEntry) domain.BadgeEntry {
	cp := *entry
	if entry.Age != nil {
		v := *entry.Age
		cp.Age = &v
	}
	if entry.GhostScore != nil {
		v := *entry.GhostScore
		cp.GhostScore = &v
	}
	if entry.StaffingScore != nil {
		v := *entry.StaffingScore
		cp.StaffingScore = &v
	}
	if entry.Benefits != nil {
		cp.Benefits = append([]string(nil), entry.Benefits...)
	}
	if entry.Rendered != nil {
		cp.Rendered = make(map[domain.BadgeType]time.Time, len(entry.Rendered))
		for k, v := range entry.Rendered {
			cp.Rendered[k] = v
		}
	}
	return cp
}
