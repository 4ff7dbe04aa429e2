package domain

import (
	"time"
)

// MatchMode controls how include keywords combine.
type MatchMode string

const (
	MatchAny MatchMode = "any"
	MatchAll MatchMode = "all"
)

// FilterSettings is the flat, fixed-key filtering configuration.
// The local durable store is authoritative for reads; the remote authority
// is advisory and only overwrites on explicit sync.
type FilterSettings struct {
	HideGhostJobs        bool      `json:"hide_ghost_jobs"`
	HideStaffingFirms    bool      `json:"hide_staffing_firms"`
	VerifyTrueRemote     bool      `json:"verify_true_remote"`
	PostingAgeThreshold  int       `json:"posting_age_threshold"` // days
	IncludeKeywordsMatch MatchMode `json:"include_keywords_match_mode"`
}

// DefaultFilterSettings returns the defaults merged underneath stored overrides.
func DefaultFilterSettings() FilterSettings {
	return FilterSettings{
		HideGhostJobs:        true,
		HideStaffingFirms:    true,
		VerifyTrueRemote:     false,
		PostingAgeThreshold:  30,
		IncludeKeywordsMatch: MatchAny,
	}
}

// SettingsPatch carries a partial settings update. Nil fields are untouched.
type SettingsPatch struct {
	HideGhostJobs        *bool      `json:"hide_ghost_jobs,omitempty"`
	HideStaffingFirms    *bool      `json:"hide_staffing_firms,omitempty"`
	VerifyTrueRemote     *bool      `json:"verify_true_remote,omitempty"`
	PostingAgeThreshold  *int       `json:"posting_age_threshold,omitempty"`
	IncludeKeywordsMatch *MatchMode `json:"include_keywords_match_mode,omitempty"`
}

// Apply merges the patch over s, field-level last-write-wins.
func (p *SettingsPatch) Apply(s FilterSettings) FilterSettings {
	if p.HideGhostJobs != nil {
		s.HideGhostJobs = *p.HideGhostJobs
	}
	if p.HideStaffingFirms != nil {
		s.HideStaffingFirms = *p.HideStaffingFirms
	}
	if p.VerifyTrueRemote != nil {
		s.VerifyTrueRemote = *p.VerifyTrueRemote
	}
	if p.PostingAgeThreshold != nil {
		s.PostingAgeThreshold = *p.PostingAgeThreshold
	}
	if p.IncludeKeywordsMatch != nil {
		s.IncludeKeywordsMatch = *p.IncludeKeywordsMatch
	}
	return s
}

// EntitlementStatus is the short-TTL cached view of the paid-tier flag.
// Defaults to false whenever the remote authority is unreachable.
type EntitlementStatus struct {
	IsPro    bool      `json:"is_pro"`
	CachedAt time.Time `json:"cached_at"`
}

// BlocklistCategory tags why a company is on the community blocklist.
type BlocklistCategory string

const (
	BlocklistStaffing    BlocklistCategory = "staffing"
	BlocklistGhostPoster BlocklistCategory = "ghost_poster"
	BlocklistScam        BlocklistCategory = "scam"
	BlocklistOther       BlocklistCategory = "other"
)

// BlocklistEntry is one row of the community-maintained blocklist.
type BlocklistEntry struct {
	CompanyName           string            `json:"company_name"`
	CompanyNameNormalized string            `json:"company_name_normalized"`
	Aliases               []string          `json:"aliases,omitempty"` // known alternate names, normalized
	Category              BlocklistCategory `json:"category"`
	Source                string            `json:"source"` // always "community"
	Verified              bool              `json:"verified"`
	SubmittedCount        int               `json:"submitted_count"`
}

// FreeTierLimits caps mutable lists for non-entitled users.
// Additions beyond the cap are rejected; removals are never gated.
type FreeTierLimits struct {
	ExcludeKeywords  int
	ExcludeCompanies int
}

// DefaultFreeTierLimits returns the fixed free-tier quotas.
func DefaultFreeTierLimits() FreeTierLimits {
	return FreeTierLimits{
		ExcludeKeywords:  3,
		ExcludeCompanies: 1,
	}
}
