package classification

import (
	"regexp"
)

// Pattern is one immutable text matcher with its confidence and stable name.
type Pattern struct {
	re         *regexp.Regexp
	Confidence int
	SignalID   string
}

func pat(expr string, confidence int, signalID string) Pattern {
	return Pattern{
		re:         regexp.MustCompile(`(?i)` + expr),
		Confidence: confidence,
		SignalID:   signalID,
	}
}

// PatternSet groups one signal family's patterns by tier.
// High-tier patterns (85-100) are always evaluated. Medium (60-84) and low
// (40-59) tiers are gated by mode and prior matches, so low-specificity
// phrases never dilute high-precision signals.
type PatternSet struct {
	Family string
	High   []Pattern
	Medium []Pattern
	Low    []Pattern
}

// Signal family names, used for stats and badge mapping.
const (
	FamilyEarlyApplicant = "early-applicant"
	FamilyStaffing       = "staffing"
	FamilyGhost          = "ghost"
)

// EarlyApplicantPatterns detects "early applicant opportunity" phrasing.
func EarlyApplicantPatterns() PatternSet {
	return PatternSet{
		Family: FamilyEarlyApplicant,
		High: []Pattern{
			pat(`be among the first \d+ applicants?`, 100, "be-among-first-n"),
			pat(`be one of the first \d+ applicants?`, 100, "be-one-of-first-n"),
			pat(`be among the first to apply`, 95, "be-among-first-apply"),
			pat(`early applicant opportunity`, 95, "early-applicant-opportunity"),
			pat(`fewer than \d+ applicants?`, 90, "fewer-than-n"),
			pat(`less than \d+ applicants?`, 90, "less-than-n"),
			pat(`under \d+ applicants?`, 88, "under-n"),
		},
		Medium: []Pattern{
			pat(`only \d+ applicants?`, 80, "only-n"),
			pat(`\d+ applicants? so far`, 75, "n-applicants-so-far"),
			pat(`just posted`, 70, "just-posted"),
			pat(`posted today`, 70, "posted-today"),
		},
		Low: []Pattern{
			pat(`few applicants?`, 55, "few-applicants"),
			pat(`low applicant`, 50, "low-applicant"),
			pat(`apply now`, 40, "apply-now"),
		},
	}
}

// StaffingPatterns detects staffing-agency phrasing in company names and
// job descriptions.
func StaffingPatterns() PatternSet {
	return PatternSet{
		Family: FamilyStaffing,
		High: []Pattern{
			pat(`\b(our|a) client (is )?(seeking|looking|hiring)`, 92, "client-seeking"),
			pat(`on behalf of (our|a) client`, 92, "on-behalf-of-client"),
			pat(`right to represent`, 92, "right-to-represent"),
			pat(`bill rate`, 90, "bill-rate"),
			pat(`contract.to.(hire|perm)`, 90, "contract-to-hire"),
			pat(`\bc2c\b|corp.to.corp`, 90, "corp-to-corp"),
			pat(`w2 (contract|position)`, 88, "w2-contract"),
			pat(`confidential client`, 85, "confidential-client"),
		},
		Medium: []Pattern{
			pat(`\bstaffing\b`, 78, "name-staffing"),
			pat(`\btemp (agency|services?|staffing)\b`, 78, "temp-agency"),
			pat(`\bpersonnel (services?|solutions?|agency)\b`, 75, "personnel-services"),
			pat(`\bplacement (services?|agency|firm)\b`, 75, "placement-services"),
			pat(`\brecruiting\b|\brecruitment\b`, 72, "name-recruiting"),
			pat(`\btalent (solutions?|acquisition|partners?|agency)\b`, 70, "talent-solutions"),
			pat(`\bworkforce (solutions?|management|partners?)\b`, 70, "workforce-solutions"),
			pat(`\bemployment (agency|services?)\b`, 70, "employment-agency"),
			pat(`submit(ted)? (your )?(resume|profile)`, 65, "submit-resume"),
		},
		Low: []Pattern{
			pat(`\bheadhunter`, 58, "headhunter"),
			pat(`\bexecutive search\b`, 52, "executive-search"),
			pat(`\bjob placement\b`, 50, "job-placement"),
		},
	}
}

// GhostPatterns detects vague, evergreen or scam-adjacent posting language.
func GhostPatterns() PatternSet {
	return PatternSet{
		Family: FamilyGhost,
		High: []Pattern{
			pat(`entry[- ]level.{0,30}(5|6|7|8|9|10)\+?\s*years?`, 98, "entry-level-senior-reqs"),
			pat(`always looking for talented`, 95, "always-looking-for-talented"),
			pat(`unlimited earning potential`, 95, "unlimited-earning-potential"),
			pat(`re-?post(ed|ing)?`, 92, "repost"),
			pat(`perfect candidate`, 90, "perfect-candidate"),
			pat(`endless possibilities`, 88, "endless-possibilities"),
			pat(`work hard[,\s]+play hard`, 88, "work-hard-play-hard"),
			pat(`immediate need`, 85, "immediate-need"),
		},
		Medium: []Pattern{
			pat(`rock\s?star|ninja|guru|wizard|unicorn`, 78, "buzzword-title"),
			pat(`still (looking|searching|hiring)`, 75, "still-searching"),
			pat(`wear many hats`, 72, "wear-many-hats"),
			pat(`competitive (salary|compensation|pay)`, 70, "competitive-salary"),
			pat(`salary (commensurate|depending|based|negotiable)`, 70, "salary-undisclosed"),
			pat(`various (responsibilities|duties|tasks)`, 68, "vague-duties"),
			pat(`growing team`, 65, "growing-team"),
			pat(`other duties as assigned`, 65, "other-duties-as-assigned"),
			pat(`hit the ground running`, 65, "hit-the-ground-running"),
			pat(`make an impact`, 60, "make-an-impact"),
		},
		Low: []Pattern{
			pat(`fast[- ]paced environment`, 50, "fast-paced-environment"),
			pat(`dynamic (environment|team|company)`, 50, "dynamic-environment"),
			pat(`self[- ]starter`, 48, "self-starter"),
			pat(`motivated individual`, 48, "motivated-individual"),
			pat(`results[- ]driven`, 45, "results-driven"),
			pat(`team player`, 42, "team-player"),
			pat(`passionate about`, 42, "passionate-about"),
		},
	}
}
