package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"signal_server/adapter/out/kv"
	"signal_server/core/domain"
	"signal_server/core/port/out"
	"signal_server/pkg/apperr"
	"signal_server/pkg/logger"
)

// stubAuthority scripts remote behavior per test.
type stubAuthority struct {
	authenticated bool

	isPro          bool
	entitlementErr error
	entitlementHit int

	blocklist    []domain.BlocklistEntry
	blocklistErr error
	blocklistHit int

	pushErr        error
	pushedSettings []domain.FilterSettings
	pulled         *domain.FilterSettings
	pullErr        error
	pushedKeywords []string
}

func (s *stubAuthority) Authenticated(context.Context) bool { return s.authenticated }

func (s *stubAuthority) CheckEntitlement(context.Context) (bool, error) {
	s.entitlementHit++
	return s.isPro, s.entitlementErr
}

func (s *stubAuthority) FetchBlocklist(context.Context) ([]domain.BlocklistEntry, error) {
	s.blocklistHit++
	return s.blocklist, s.blocklistErr
}

func (s *stubAuthority) PushSettings(_ context.Context, settings domain.FilterSettings) error {
	if s.pushErr != nil {
		return s.pushErr
	}
	s.pushedSettings = append(s.pushedSettings, settings)
	return nil
}

func (s *stubAuthority) PullSettings(context.Context) (*domain.FilterSettings, error) {
	return s.pulled, s.pullErr
}

func (s *stubAuthority) PushIncludeKeyword(_ context.Context, keyword string) error {
	s.pushedKeywords = append(s.pushedKeywords, keyword)
	return nil
}

func newTestStore(t *testing.T, auth *stubAuthority) (*Store, *kv.MemoryKV, *time.Time) {
	t.Helper()

	backing := kv.NewMemoryKV()
	store := NewStore(backing, auth, DefaultConfig(), logger.New(logger.Config{Level: "error"}))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.WithNow(func() time.Time { return now })
	return store, backing, &now
}

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }

func TestGetSettingsDefaults(t *testing.T) {
	store, _, _ := newTestStore(t, &stubAuthority{})

	got, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := domain.DefaultFilterSettings()
	if got != want {
		t.Errorf("GetSettings = %+v, want defaults %+v", got, want)
	}
}

func TestUpdateSettingsMergesOverDefaults(t *testing.T) {
	store, _, _ := newTestStore(t, &stubAuthority{})
	ctx := context.Background()

	updated, outcome, err := store.UpdateSettings(ctx, domain.SettingsPatch{
		HideGhostJobs:       boolPtr(false),
		PostingAgeThreshold: intPtr(14),
	})
	if err != nil {
		t.Fatal(err)
	}
	if outcome != SyncSkipped {
		t.Errorf("outcome = %q, want skipped for unauthenticated store", outcome)
	}
	if updated.HideGhostJobs {
		t.Error("HideGhostJobs should be false after patch")
	}
	if updated.PostingAgeThreshold != 14 {
		t.Errorf("PostingAgeThreshold = %d, want 14", updated.PostingAgeThreshold)
	}
	// Untouched fields keep their defaults.
	if !updated.HideStaffingFirms {
		t.Error("HideStaffingFirms should keep its default")
	}
	if updated.IncludeKeywordsMatch != domain.MatchAny {
		t.Errorf("IncludeKeywordsMatch = %q, want default", updated.IncludeKeywordsMatch)
	}

	// Reload from storage merges again.
	reloaded, err := store.GetSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded != updated {
		t.Errorf("reloaded = %+v, want %+v", reloaded, updated)
	}
}

func TestUpdateSettingsSyncOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		auth        *stubAuthority
		wantOutcome SyncOutcome
	}{
		{name: "unauthenticated skips", auth: &stubAuthority{}, wantOutcome: SyncSkipped},
		{name: "authenticated syncs", auth: &stubAuthority{authenticated: true}, wantOutcome: SyncSynced},
		{
			name:        "push failure reported but local write kept",
			auth:        &stubAuthority{authenticated: true, pushErr: errors.New("boom")},
			wantOutcome: SyncFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, _ := newTestStore(t, tt.auth)
			ctx := context.Background()

			updated, outcome, err := store.UpdateSettings(ctx, domain.SettingsPatch{
				VerifyTrueRemote: boolPtr(true),
			})
			if err != nil {
				t.Fatal(err)
			}
			if outcome != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", outcome, tt.wantOutcome)
			}
			if !updated.VerifyTrueRemote {
				t.Error("local write must succeed regardless of sync outcome")
			}

			reloaded, _ := store.GetSettings(ctx)
			if !reloaded.VerifyTrueRemote {
				t.Error("local write must persist regardless of sync outcome")
			}
		})
	}
}

func TestSyncFromRemote(t *testing.T) {
	remote := domain.FilterSettings{
		HideGhostJobs:        false,
		HideStaffingFirms:    false,
		VerifyTrueRemote:     true,
		PostingAgeThreshold:  7,
		IncludeKeywordsMatch: domain.MatchAll,
	}
	store, _, _ := newTestStore(t, &stubAuthority{authenticated: true, pulled: &remote})
	ctx := context.Background()

	got, outcome, err := store.SyncFromRemote(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != SyncSynced {
		t.Errorf("outcome = %q, want synced", outcome)
	}
	if got != remote {
		t.Errorf("settings = %+v, want remote copy %+v", got, remote)
	}

	reloaded, _ := store.GetSettings(ctx)
	if reloaded != remote {
		t.Errorf("reloaded = %+v, want remote copy persisted", reloaded)
	}
}

func TestCheckEntitlementCaching(t *testing.T) {
	auth := &stubAuthority{authenticated: true, isPro: true}
	store, _, now := newTestStore(t, auth)
	ctx := context.Background()

	if !store.CheckEntitlement(ctx) {
		t.Fatal("expected pro")
	}
	if auth.entitlementHit != 1 {
		t.Fatalf("entitlementHit = %d, want 1", auth.entitlementHit)
	}

	// Within TTL: served from cache.
	*now = now.Add(DefaultEntitlementTTL - time.Second)
	if !store.CheckEntitlement(ctx) {
		t.Fatal("expected cached pro")
	}
	if auth.entitlementHit != 1 {
		t.Errorf("entitlementHit = %d, want 1 (cached)", auth.entitlementHit)
	}

	// Past TTL: refetched.
	*now = now.Add(2 * time.Second)
	store.CheckEntitlement(ctx)
	if auth.entitlementHit != 2 {
		t.Errorf("entitlementHit = %d, want 2 after TTL expiry", auth.entitlementHit)
	}
}

func TestCheckEntitlementFailsClosed(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		store, _, _ := newTestStore(t, &stubAuthority{authenticated: false, isPro: true})
		if store.CheckEntitlement(context.Background()) {
			t.Error("entitlement must fail closed without a session")
		}
	})

	t.Run("authority error", func(t *testing.T) {
		store, _, _ := newTestStore(t, &stubAuthority{
			authenticated:  true,
			entitlementErr: errors.New("unreachable"),
		})
		if store.CheckEntitlement(context.Background()) {
			t.Error("entitlement must fail closed on authority error")
		}
	})

	t.Run("expired cache not served", func(t *testing.T) {
		auth := &stubAuthority{authenticated: true, isPro: true}
		store, _, now := newTestStore(t, auth)
		ctx := context.Background()

		store.CheckEntitlement(ctx) // caches is_pro=true

		*now = now.Add(DefaultEntitlementTTL + time.Second)
		auth.entitlementErr = errors.New("unreachable")
		if store.CheckEntitlement(ctx) {
			t.Error("stale cached pro must not be served past TTL")
		}
	})
}

func TestExcludeKeywordQuota(t *testing.T) {
	store, _, _ := newTestStore(t, &stubAuthority{})
	ctx := context.Background()

	for _, kw := range []string{"crypto", "mlm", "door-to-door"} {
		if err := store.AddExcludeKeyword(ctx, kw); err != nil {
			t.Fatalf("AddExcludeKeyword(%q): %v", kw, err)
		}
	}

	err := store.AddExcludeKeyword(ctx, "commission-only")
	if !apperr.IsQuotaExceeded(err) {
		t.Fatalf("4th keyword: err = %v, want quota exceeded", err)
	}

	// Duplicates never consume quota.
	if err := store.AddExcludeKeyword(ctx, "CRYPTO"); err != nil {
		t.Errorf("duplicate add should be a no-op, got %v", err)
	}

	// Removal frees a slot; removal itself is never gated.
	if err := store.RemoveExcludeKeyword(ctx, "mlm"); err != nil {
		t.Fatal(err)
	}
	if err := store.AddExcludeKeyword(ctx, "commission-only"); err != nil {
		t.Errorf("add after removal should succeed, got %v", err)
	}
}

func TestExcludeKeywordQuotaBypassedForPro(t *testing.T) {
	store, _, _ := newTestStore(t, &stubAuthority{authenticated: true, isPro: true})
	ctx := context.Background()

	for _, kw := range []string{"one", "two", "three", "four", "five"} {
		if err := store.AddExcludeKeyword(ctx, kw); err != nil {
			t.Fatalf("AddExcludeKeyword(%q): %v", kw, err)
		}
	}
}

func TestExcludeCompanyQuotaAndNormalization(t *testing.T) {
	store, _, _ := newTestStore(t, &stubAuthority{})
	ctx := context.Background()

	if err := store.AddExcludeCompany(ctx, "Acme, Inc."); err != nil {
		t.Fatal(err)
	}

	// Same company under a different suffix is a duplicate, not a quota hit.
	if err := store.AddExcludeCompany(ctx, "ACME LLC"); err != nil {
		t.Errorf("normalized duplicate should be a no-op, got %v", err)
	}

	err := store.AddExcludeCompany(ctx, "Globex")
	if !apperr.IsQuotaExceeded(err) {
		t.Fatalf("2nd company: err = %v, want quota exceeded", err)
	}

	list, _ := store.GetExcludeCompanies(ctx)
	if len(list) != 1 || list[0] != "acme" {
		t.Errorf("list = %v, want [acme]", list)
	}
}

func TestIncludeKeywordsProGated(t *testing.T) {
	t.Run("free tier rejected", func(t *testing.T) {
		store, _, _ := newTestStore(t, &stubAuthority{})
		err := store.AddIncludeKeyword(context.Background(), "remote")
		if !apperr.IsEntitlementRequired(err) {
			t.Fatalf("err = %v, want entitlement required", err)
		}
	})

	t.Run("pro add mirrors to authority", func(t *testing.T) {
		auth := &stubAuthority{authenticated: true, isPro: true}
		store, _, _ := newTestStore(t, auth)
		ctx := context.Background()

		if err := store.AddIncludeKeyword(ctx, "Remote"); err != nil {
			t.Fatal(err)
		}
		list, _ := store.GetIncludeKeywords(ctx)
		if len(list) != 1 || list[0] != "remote" {
			t.Errorf("list = %v, want [remote]", list)
		}
		if len(auth.pushedKeywords) != 1 || auth.pushedKeywords[0] != "remote" {
			t.Errorf("pushedKeywords = %v, want [remote]", auth.pushedKeywords)
		}
	})

	t.Run("removal never gated", func(t *testing.T) {
		auth := &stubAuthority{authenticated: true, isPro: true}
		store, _, _ := newTestStore(t, auth)
		ctx := context.Background()

		if err := store.AddIncludeKeyword(ctx, "remote"); err != nil {
			t.Fatal(err)
		}

		// Subscription lapses; the keyword can still be removed.
		auth.isPro = false
		store.ClearCache(ctx)
		if err := store.RemoveIncludeKeyword(ctx, "remote"); err != nil {
			t.Errorf("removal should never be gated, got %v", err)
		}
		list, _ := store.GetIncludeKeywords(ctx)
		if len(list) != 0 {
			t.Errorf("list = %v, want empty", list)
		}
	})
}

func TestBlocklistCachingAndStaleServe(t *testing.T) {
	entries := []domain.BlocklistEntry{
		{CompanyName: "Shady Staffing", CompanyNameNormalized: "shady", Category: domain.BlocklistStaffing},
	}
	auth := &stubAuthority{authenticated: true, blocklist: entries}
	store, _, now := newTestStore(t, auth)
	ctx := context.Background()

	got, err := store.GetCommunityBlocklist(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || auth.blocklistHit != 1 {
		t.Fatalf("entries = %v hits = %d", got, auth.blocklistHit)
	}

	// Fresh cache: no refetch.
	*now = now.Add(DefaultBlocklistTTL - time.Minute)
	if _, err := store.GetCommunityBlocklist(ctx); err != nil {
		t.Fatal(err)
	}
	if auth.blocklistHit != 1 {
		t.Errorf("blocklistHit = %d, want 1 (cached)", auth.blocklistHit)
	}

	// Stale cache plus failing authority: stale copy served.
	*now = now.Add(2 * time.Minute)
	auth.blocklistErr = errors.New("unreachable")
	got, err = store.GetCommunityBlocklist(ctx)
	if err != nil {
		t.Fatalf("stale serve should not error, got %v", err)
	}
	if len(got) != 1 || got[0].CompanyNameNormalized != "shady" {
		t.Errorf("stale entries = %v", got)
	}
}

func TestMatchBlocklist(t *testing.T) {
	auth := &stubAuthority{
		authenticated: true,
		blocklist: []domain.BlocklistEntry{
			{
				CompanyName:           "Shady Staffing Inc.",
				CompanyNameNormalized: "shady",
				Aliases:               []string{"shady group"},
				Category:              domain.BlocklistStaffing,
				Verified:              true,
			},
		},
	}
	store, _, _ := newTestStore(t, auth)
	ctx := context.Background()

	tests := []struct {
		name    string
		company string
		wantHit bool
	}{
		{name: "normalized match", company: "SHADY, LLC", wantHit: true},
		{name: "alias match", company: "Shady Group", wantHit: true},
		{name: "no match", company: "Honest Hiring Co", wantHit: false},
		{name: "empty name", company: "", wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := store.MatchBlocklist(ctx, tt.company)
			if (entry != nil) != tt.wantHit {
				t.Errorf("MatchBlocklist(%q) = %v, wantHit %v", tt.company, entry, tt.wantHit)
			}
			if entry != nil && !entry.Verified {
				t.Error("expected the verified entry")
			}
		})
	}
}

func TestBlocklistEmptyWithoutCache(t *testing.T) {
	auth := &stubAuthority{authenticated: true, blocklistErr: errors.New("unreachable")}
	store, backing, _ := newTestStore(t, auth)
	ctx := context.Background()

	entries, err := store.GetCommunityBlocklist(ctx)
	if err != nil {
		t.Fatalf("GetCommunityBlocklist: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %v, want empty with no cached copy", entries)
	}
	if _, found, _ := backing.Get(ctx, out.KeyBlocklist); found {
		t.Error("empty fallback should not be cached")
	}

	// Once the authority recovers, the next call fetches normally.
	auth.blocklistErr = nil
	auth.blocklist = []domain.BlocklistEntry{{CompanyName: "Shady", Category: domain.BlocklistStaffing}}
	entries, err = store.GetCommunityBlocklist(ctx)
	if err != nil || len(entries) != 1 {
		t.Fatalf("GetCommunityBlocklist after recovery = %v, %v", entries, err)
	}
}

func TestClearCacheKeepsUserData(t *testing.T) {
	auth := &stubAuthority{
		authenticated: true,
		isPro:         true,
		blocklist:     []domain.BlocklistEntry{{CompanyName: "Shady"}},
	}
	store, backing, _ := newTestStore(t, auth)
	ctx := context.Background()

	if _, _, err := store.UpdateSettings(ctx, domain.SettingsPatch{VerifyTrueRemote: boolPtr(true)}); err != nil {
		t.Fatal(err)
	}
	if err := store.AddExcludeKeyword(ctx, "crypto"); err != nil {
		t.Fatal(err)
	}
	store.CheckEntitlement(ctx)
	if _, err := store.GetCommunityBlocklist(ctx); err != nil {
		t.Fatal(err)
	}

	if err := store.ClearCache(ctx); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{out.KeyEntitlement, out.KeyBlocklist, out.KeyBlocklistFetchedAt} {
		if _, found, _ := backing.Get(ctx, key); found {
			t.Errorf("key %q should be dropped by ClearCache", key)
		}
	}
	for _, key := range []string{out.KeySettings, out.KeyExcludeKeywords} {
		if _, found, _ := backing.Get(ctx, key); !found {
			t.Errorf("key %q must survive ClearCache", key)
		}
	}
}
