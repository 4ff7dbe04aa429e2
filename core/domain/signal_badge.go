package domain

import (
	"time"
)

// BadgeType identifies the kind of visual badge derived from cached signal data.
type BadgeType string

const (
	BadgeAge      BadgeType = "age"
	BadgeGhost    BadgeType = "ghost"
	BadgeStaffing BadgeType = "staffing"
	BadgeBenefits BadgeType = "benefits"
)

// AllBadgeTypes lists every badge type in display order.
func AllBadgeTypes() []BadgeType {
	return []BadgeType{BadgeAge, BadgeGhost, BadgeStaffing, BadgeBenefits}
}

// GhostCategory is the closed set of posting-risk bands.
type GhostCategory string

const (
	GhostSafe        GhostCategory = "safe"
	GhostLowRisk     GhostCategory = "low_risk"
	GhostMediumRisk  GhostCategory = "medium_risk"
	GhostHighRisk    GhostCategory = "high_risk"
	GhostLikelyGhost GhostCategory = "likely_ghost"
)

// GhostCategoryFromScore maps a 0-100 ghost score to its risk band.
func GhostCategoryFromScore(score int) GhostCategory {
	switch {
	case score >= 80:
		return GhostLikelyGhost
	case score >= 60:
		return GhostHighRisk
	case score >= 40:
		return GhostMediumRisk
	case score >= 20:
		return GhostLowRisk
	default:
		return GhostSafe
	}
}

// Valid reports whether the category is one of the known bands.
func (c GhostCategory) Valid() bool {
	switch c {
	case GhostSafe, GhostLowRisk, GhostMediumRisk, GhostHighRisk, GhostLikelyGhost:
		return true
	}
	return false
}

// BadgeEntry holds all cached badge state for one listing.
// Owned exclusively by the badge store; callers receive copies.
type BadgeEntry struct {
	ListingID string `json:"listing_id"`

	// Age in days since posting (fractional).
	Age *float64 `json:"age,omitempty"`

	// Ghost-posting risk.
	GhostScore    *int          `json:"ghost_score,omitempty"`
	GhostCategory GhostCategory `json:"ghost_category,omitempty"`

	// Staffing-agency likelihood.
	StaffingScore  *float64 `json:"staffing_score,omitempty"`
	StaffingReason string   `json:"staffing_reason,omitempty"`

	// Detected benefits.
	Benefits []string `json:"benefits,omitempty"`

	// Rendered tracks per-badge insertion into the current presentation.
	// Independent of data freshness: the host page can destroy nodes
	// without the underlying data changing.
	Rendered map[BadgeType]time.Time `json:"rendered,omitempty"`

	// Timestamp is the last-write time. An entry with a zero or stale
	// timestamp is treated as absent.
	Timestamp time.Time `json:"timestamp"`
}

// HasBadge reports whether the fields backing the given badge type are set.
func (e *BadgeEntry) HasBadge(badgeType BadgeType) bool {
	switch badgeType {
	case BadgeAge:
		return e.Age != nil
	case BadgeGhost:
		return e.GhostScore != nil
	case BadgeStaffing:
		return e.StaffingScore != nil
	case BadgeBenefits:
		return len(e.Benefits) > 0
	}
	return false
}

// BadgePatch carries a partial badge update. Nil fields are left untouched;
// the merge is shallow and field-level last-write-wins.
type BadgePatch struct {
	Age            *float64
	GhostScore     *int
	GhostCategory  GhostCategory
	StaffingScore  *float64
	StaffingReason string
	Benefits       []string
}

// BadgeStats aggregates per-family counts for observability.
type BadgeStats struct {
	Total        int  `json:"total"`
	WithAge      int  `json:"with_age"`
	WithGhost    int  `json:"with_ghost"`
	WithStaffing int  `json:"with_staffing"`
	WithBenefits int  `json:"with_benefits"`
	Initialized  bool `json:"initialized"`
}
