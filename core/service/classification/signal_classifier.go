// Package classification implements the deterministic trust-signal classifier.
//
// Classification is pure pattern matching over free-form listing text: no
// network, no storage, no clock. Identical input and mode always yield
// identical output. Pattern tables are tiered so that low-specificity phrases
// ("apply now") can never dilute high-precision signals, and so conservative
// mode is strictly more precise than permissive mode, never more
// recall-generous.
package classification

import (
	"strings"
)

// Mode selects the precision/recall trade for a classification call.
type Mode string

const (
	ModeConservative Mode = "conservative"
	ModePermissive   Mode = "permissive"
)

// Decision thresholds per mode. Policy constants, not computed.
const (
	ConservativeThreshold = 70
	PermissiveThreshold   = 50
)

// Input below this length short-circuits to the zero result.
const minTextLength = 5

// Result is a fresh, immutable classification outcome.
// Confidence is the maximum among matched patterns, not a sum, which avoids
// inflation from pattern redundancy. MatchedSignalIDs records every matching
// pattern in table order, deduplicated, regardless of which one set the final
// confidence.
type Result struct {
	Confidence       int      `json:"confidence"`
	MatchedSignalIDs []string `json:"matched_signal_ids"`
}

// Zero reports whether no pattern matched.
func (r Result) Zero() bool {
	return r.Confidence == 0 && len(r.MatchedSignalIDs) == 0
}

// Classifier evaluates one signal family's tiered pattern tables.
type Classifier struct {
	set PatternSet
}

// NewClassifier creates a classifier over the given pattern set.
func NewClassifier(set PatternSet) *Classifier {
	return &Classifier{set: set}
}

// NewEarlyApplicantClassifier detects early-applicant opportunity signals.
func NewEarlyApplicantClassifier() *Classifier {
	return NewClassifier(EarlyApplicantPatterns())
}

// NewStaffingClassifier detects staffing-agency likelihood signals.
func NewStaffingClassifier() *Classifier {
	return NewClassifier(StaffingPatterns())
}

// NewGhostClassifier detects ghost-posting risk signals.
func NewGhostClassifier() *Classifier {
	return NewClassifier(GhostPatterns())
}

// Family returns the signal family name.
func (c *Classifier) Family() string {
	return c.set.Family
}

// Classify evaluates text against the tiered tables. Never fails: degenerate
// input yields the zero result.
//
// Tier gating: high is always checked. Medium is checked when mode is
// permissive or no high pattern matched. Low is checked only in permissive
// mode and only when nothing higher matched.
func (c *Classifier) Classify(text string, mode Mode) Result {
	result := Result{}

	if len(text) < minTextLength {
		return result
	}

	lower := strings.ToLower(text)
	seen := make(map[string]struct{})

	match := func(patterns []Pattern) {
		for _, p := range patterns {
			if !p.re.MatchString(lower) {
				continue
			}
			if p.Confidence > result.Confidence {
				result.Confidence = p.Confidence
			}
			if _, ok := seen[p.SignalID]; !ok {
				seen[p.SignalID] = struct{}{}
				result.MatchedSignalIDs = append(result.MatchedSignalIDs, p.SignalID)
			}
		}
	}

	match(c.set.High)

	if mode == ModePermissive || result.Confidence == 0 {
		match(c.set.Medium)
	}

	if mode == ModePermissive && result.Confidence == 0 {
		match(c.set.Low)
	}

	return result
}

// Detected applies the fixed per-mode decision threshold to a result.
func Detected(r Result, mode Mode) bool {
	if mode == ModeConservative {
		return r.Confidence >= ConservativeThreshold
	}
	return r.Confidence >= PermissiveThreshold
}
