// Package settings implements the hybrid settings and entitlement store:
// local durable storage is authoritative for reads, the remote authority is
// advisory and consulted best-effort for sync, entitlement and the community
// blocklist.
package settings

import (
	"context"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"signal_server/core/domain"
	"signal_server/core/port/out"
	"signal_server/pkg/apperr"
	"signal_server/pkg/normalize"
)

// Cache TTL defaults.
const (
	DefaultEntitlementTTL = 5 * time.Minute
	DefaultBlocklistTTL   = time.Hour
)

// SyncOutcome reports what happened to the remote mirror of a local write.
// The local write itself always succeeds independently of the outcome.
type SyncOutcome string

const (
	SyncSynced  SyncOutcome = "synced"
	SyncSkipped SyncOutcome = "skipped"
	SyncFailed  SyncOutcome = "failed"
)

// Config tunes cache TTLs and free-tier quotas.
type Config struct {
	EntitlementTTL time.Duration
	BlocklistTTL   time.Duration
	Limits         domain.FreeTierLimits
}

// DefaultConfig returns the production settings-store configuration.
func DefaultConfig() Config {
	return Config{
		EntitlementTTL: DefaultEntitlementTTL,
		BlocklistTTL:   DefaultBlocklistTTL,
		Limits:         domain.DefaultFreeTierLimits(),
	}
}

// Store is the hybrid settings and entitlement store.
type Store struct {
	cfg       Config
	kv        out.KVStore
	authority out.Authority
	log       zerolog.Logger
	now       func() time.Time
}

// NewStore creates a settings store over the given KV backend and authority.
func NewStore(kv out.KVStore, authority out.Authority, cfg Config, log zerolog.Logger) *Store {
	if cfg.EntitlementTTL <= 0 {
		cfg.EntitlementTTL = DefaultEntitlementTTL
	}
	if cfg.BlocklistTTL <= 0 {
		cfg.BlocklistTTL = DefaultBlocklistTTL
	}
	if cfg.Limits.ExcludeKeywords <= 0 && cfg.Limits.ExcludeCompanies <= 0 {
		cfg.Limits = domain.DefaultFreeTierLimits()
	}
	return &Store{
		cfg:       cfg,
		kv:        kv,
		authority: authority,
		log:       log.With().Str("component", "settings_store").Logger(),
		now:       time.Now,
	}
}

// WithNow overrides the clock. Test hook.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.now = now
	return s
}

// GetSettings returns the effective filter settings: stored overrides merged
// over defaults, so fields added after the user last saved still carry their
// default instead of a zero value.
func (s *Store) GetSettings(ctx context.Context) (domain.FilterSettings, error) {
	effective := domain.DefaultFilterSettings()

	raw, found, err := s.kv.Get(ctx, out.KeySettings)
	if err != nil {
		return effective, apperr.StorageError("read settings", err)
	}
	if !found {
		return effective, nil
	}

	var stored domain.SettingsPatch
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.log.Warn().Err(err).Msg("stored settings corrupt, serving defaults")
		return effective, nil
	}
	return stored.Apply(effective), nil
}

// UpdateSettings merges a patch into the local settings and persists them,
// then best-effort mirrors the result to the authority. The local write is
// never blocked or rolled back by the remote outcome.
func (s *Store) UpdateSettings(ctx context.Context, patch domain.SettingsPatch) (domain.FilterSettings, SyncOutcome, error) {
	current, err := s.GetSettings(ctx)
	if err != nil {
		return current, SyncSkipped, err
	}

	updated := patch.Apply(current)
	raw, err := json.Marshal(updated)
	if err != nil {
		return current, SyncSkipped, apperr.StorageError("encode settings", err)
	}
	if err := s.kv.Set(ctx, out.KeySettings, raw); err != nil {
		return current, SyncSkipped, apperr.StorageError("write settings", err)
	}

	if !s.authority.Authenticated(ctx) {
		return updated, SyncSkipped, nil
	}
	if err := s.authority.PushSettings(ctx, updated); err != nil {
		s.log.Warn().Err(err).Msg("settings push failed")
		return updated, SyncFailed, nil
	}
	return updated, SyncSynced, nil
}

// SyncFromRemote pulls the authority's settings copy and, when present,
// overwrites local storage with it. Pull is explicit: normal reads never
// consult the authority.
func (s *Store) SyncFromRemote(ctx context.Context) (domain.FilterSettings, SyncOutcome, error) {
	local, err := s.GetSettings(ctx)
	if err != nil {
		return local, SyncSkipped, err
	}
	if !s.authority.Authenticated(ctx) {
		return local, SyncSkipped, nil
	}

	remote, err := s.authority.PullSettings(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("settings pull failed")
		return local, SyncFailed, nil
	}
	if remote == nil {
		return local, SyncSkipped, nil
	}

	raw, err := json.Marshal(*remote)
	if err != nil {
		return local, SyncFailed, apperr.StorageError("encode settings", err)
	}
	if err := s.kv.Set(ctx, out.KeySettings, raw); err != nil {
		return local, SyncFailed, apperr.StorageError("write settings", err)
	}
	return *remote, SyncSynced, nil
}

// CheckEntitlement returns the paid-tier flag, cached for a short TTL.
// Fail closed: no session, unreachable authority or storage trouble all
// report free tier. A stale cached value is never served.
func (s *Store) CheckEntitlement(ctx context.Context) bool {
	raw, found, err := s.kv.Get(ctx, out.KeyEntitlement)
	if err == nil && found {
		var cached domain.EntitlementStatus
		if err := json.Unmarshal(raw, &cached); err == nil {
			if s.now().Sub(cached.CachedAt) < s.cfg.EntitlementTTL {
				return cached.IsPro
			}
		}
	}

	if !s.authority.Authenticated(ctx) {
		return false
	}
	isPro, err := s.authority.CheckEntitlement(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("entitlement check failed, treating as free tier")
		return false
	}

	status := domain.EntitlementStatus{IsPro: isPro, CachedAt: s.now()}
	if raw, err := json.Marshal(status); err == nil {
		if err := s.kv.Set(ctx, out.KeyEntitlement, raw); err != nil {
			s.log.Warn().Err(err).Msg("entitlement cache write failed")
		}
	}
	return isPro
}

// GetIncludeKeywords returns the pro include-keyword list. Reading is never
// gated: a lapsed subscription keeps its data visible.
func (s *Store) GetIncludeKeywords(ctx context.Context) ([]string, error) {
	return s.readList(ctx, out.KeyIncludeKeywords)
}

// AddIncludeKeyword appends a keyword to the pro-only include list.
// The whole feature is entitlement-gated, not quota-gated.
func (s *Store) AddIncludeKeyword(ctx context.Context, keyword string) error {
	kw := normalize.Keyword(keyword)
	if kw == "" {
		return apperr.InvalidInput("keyword", "empty")
	}
	if !s.CheckEntitlement(ctx) {
		return apperr.EntitlementRequired("include keywords")
	}

	added, err := s.appendToList(ctx, out.KeyIncludeKeywords, kw)
	if err != nil || !added {
		return err
	}
	if s.authority.Authenticated(ctx) {
		if err := s.authority.PushIncludeKeyword(ctx, kw); err != nil {
			s.log.Warn().Err(err).Str("keyword", kw).Msg("include keyword push failed")
		}
	}
	return nil
}

// RemoveIncludeKeyword removes a keyword. Removal is never gated.
func (s *Store) RemoveIncludeKeyword(ctx context.Context, keyword string) error {
	return s.removeFromList(ctx, out.KeyIncludeKeywords, normalize.Keyword(keyword))
}

// GetExcludeKeywords returns the exclude-keyword list.
func (s *Store) GetExcludeKeywords(ctx context.Context) ([]string, error) {
	return s.readList(ctx, out.KeyExcludeKeywords)
}

// AddExcludeKeyword appends an exclude keyword, enforcing the free-tier cap
// for non-entitled users. Duplicates are ignored and never consume quota.
func (s *Store) AddExcludeKeyword(ctx context.Context, keyword string) error {
	kw := normalize.Keyword(keyword)
	if kw == "" {
		return apperr.InvalidInput("keyword", "empty")
	}

	list, err := s.readList(ctx, out.KeyExcludeKeywords)
	if err != nil {
		return err
	}
	if contains(list, kw) {
		return nil
	}
	if len(list) >= s.cfg.Limits.ExcludeKeywords && !s.CheckEntitlement(ctx) {
		return apperr.QuotaExceeded("exclude keywords", s.cfg.Limits.ExcludeKeywords)
	}
	return s.writeList(ctx, out.KeyExcludeKeywords, append(list, kw))
}

// RemoveExcludeKeyword removes an exclude keyword. Removal is never gated.
func (s *Store) RemoveExcludeKeyword(ctx context.Context, keyword string) error {
	return s.removeFromList(ctx, out.KeyExcludeKeywords, normalize.Keyword(keyword))
}

// GetExcludeCompanies returns the excluded company list in normalized form.
func (s *Store) GetExcludeCompanies(ctx context.Context) ([]string, error) {
	return s.readList(ctx, out.KeyExcludeCompanies)
}

// AddExcludeCompany appends a company (stored normalized), enforcing the
// free-tier cap for non-entitled users.
func (s *Store) AddExcludeCompany(ctx context.Context, name string) error {
	company := normalize.CompanyName(name)
	if company == "" {
		return apperr.InvalidInput("company", "empty")
	}

	list, err := s.readList(ctx, out.KeyExcludeCompanies)
	if err != nil {
		return err
	}
	if contains(list, company) {
		return nil
	}
	if len(list) >= s.cfg.Limits.ExcludeCompanies && !s.CheckEntitlement(ctx) {
		return apperr.QuotaExceeded("excluded companies", s.cfg.Limits.ExcludeCompanies)
	}
	return s.writeList(ctx, out.KeyExcludeCompanies, append(list, company))
}

// RemoveExcludeCompany removes a company. Removal is never gated.
func (s *Store) RemoveExcludeCompany(ctx context.Context, name string) error {
	return s.removeFromList(ctx, out.KeyExcludeCompanies, normalize.CompanyName(name))
}

// GetCommunityBlocklist returns the community blocklist, refreshed from the
// authority when the cached copy is older than the TTL. A failed refresh
// serves the stale copy when there is one, and an empty list when there is
// not; authority failures never surface as errors here. The empty result is
// not cached, so the next call retries the fetch.
func (s *Store) GetCommunityBlocklist(ctx context.Context) ([]domain.BlocklistEntry, error) {
	cached, fetchedAt := s.readBlocklistCache(ctx)
	if cached != nil && s.now().Sub(fetchedAt) < s.cfg.BlocklistTTL {
		return cached, nil
	}

	fresh, err := s.authority.FetchBlocklist(ctx)
	if err != nil {
		if cached != nil {
			s.log.Warn().Err(err).Msg("blocklist refresh failed, serving stale copy")
			return cached, nil
		}
		s.log.Warn().Err(err).Msg("blocklist unavailable with no cached copy")
		return []domain.BlocklistEntry{}, nil
	}

	for i := range fresh {
		if fresh[i].CompanyNameNormalized == "" {
			fresh[i].CompanyNameNormalized = normalize.CompanyName(fresh[i].CompanyName)
		}
	}
	s.writeBlocklistCache(ctx, fresh)
	return fresh, nil
}

// MatchBlocklist reports the blocklist entry matching a company name, if any.
// Matching is on the normalized name and known aliases. A degraded blocklist
// read yields no match rather than an error.
func (s *Store) MatchBlocklist(ctx context.Context, companyName string) *domain.BlocklistEntry {
	needle := normalize.CompanyName(companyName)
	if needle == "" {
		return nil
	}

	entries, err := s.GetCommunityBlocklist(ctx)
	if err != nil {
		return nil
	}
	for i := range entries {
		if entries[i].CompanyNameNormalized == needle {
			return &entries[i]
		}
		for _, alias := range entries[i].Aliases {
			if alias == needle {
				return &entries[i]
			}
		}
	}
	return nil
}

// ClearCache drops the entitlement and blocklist caches. Settings and user
// lists are data, not cache, and are left untouched.
func (s *Store) ClearCache(ctx context.Context) error {
	for _, key := range []string{out.KeyEntitlement, out.KeyBlocklist, out.KeyBlocklistFetchedAt} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return apperr.StorageError("clear cache", err)
		}
	}
	return nil
}

func (s *Store) readBlocklistCache(ctx context.Context) ([]domain.BlocklistEntry, time.Time) {
	raw, found, err := s.kv.Get(ctx, out.KeyBlocklist)
	if err != nil || !found {
		return nil, time.Time{}
	}
	var entries []domain.BlocklistEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, time.Time{}
	}

	tsRaw, found, err := s.kv.Get(ctx, out.KeyBlocklistFetchedAt)
	if err != nil || !found {
		return entries, time.Time{}
	}
	var fetchedAt time.Time
	if err := json.Unmarshal(tsRaw, &fetchedAt); err != nil {
		return entries, time.Time{}
	}
	return entries, fetchedAt
}

func (s *Store) writeBlocklistCache(ctx context.Context, entries []domain.BlocklistEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.kv.Set(ctx, out.KeyBlocklist, raw); err != nil {
		s.log.Warn().Err(err).Msg("blocklist cache write failed")
		return
	}
	if tsRaw, err := json.Marshal(s.now()); err == nil {
		if err := s.kv.Set(ctx, out.KeyBlocklistFetchedAt, tsRaw); err != nil {
			s.log.Warn().Err(err).Msg("blocklist timestamp write failed")
		}
	}
}

func (s *Store) readList(ctx context.Context, key string) ([]string, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, apperr.StorageError("read list", err)
	}
	if !found {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("stored list corrupt, serving empty")
		return nil, nil
	}
	return list, nil
}

func (s *Store) writeList(ctx context.Context, key string, list []string) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return apperr.StorageError("encode list", err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return apperr.StorageError("write list", err)
	}
	return nil
}

func (s *Store) appendToList(ctx context.Context, key, value string) (bool, error) {
	list, err := s.readList(ctx, key)
	if err != nil {
		return false, err
	}
	if contains(list, value) {
		return false, nil
	}
	return true, s.writeList(ctx, key, append(list, value))
}

func (s *Store) removeFromList(ctx context.Context, key, value string) error {
	list, err := s.readList(ctx, key)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, v := range list {
		if v != value {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(list) {
		return nil
	}
	return s.writeList(ctx, key, kept)
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
