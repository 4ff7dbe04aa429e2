package classification

import (
	"regexp"
	"strconv"
	"strings"
)

// Posting-age day thresholds for ghost-risk banding.
const (
	AgeHighRiskDays   = 60
	AgeMediumRiskDays = 30
	AgeLowRiskDays    = 14
)

var (
	agoRe  = regexp.MustCompile(`(\d+)\s*(minute|hour|day|week|month)s?\s*ago`)
	plusRe = regexp.MustCompile(`(\d+)\+`)
)

// ParsePostedDays extracts a posting age in days from a relative date string
// like "3 days ago", "Posted today" or "30+ days ago". Returns ok=false when
// no age can be extracted.
func ParsePostedDays(dateStr string) (days int, ok bool) {
	text := strings.ToLower(strings.TrimSpace(dateStr))
	if text == "" {
		return 0, false
	}

	if m := agoRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		switch m[2] {
		case "minute", "hour":
			return 0, true
		case "day":
			return n, true
		case "week":
			return n * 7, true
		case "month":
			return n * 30, true
		}
	}

	if strings.Contains(text, "today") || strings.Contains(text, "just now") {
		return 0, true
	}
	if strings.Contains(text, "yesterday") {
		return 1, true
	}

	// "30+ days ago" style
	if m := plusRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	}

	return 0, false
}

// AgeRiskScore maps posting age to a 0-100 risk contribution.
func AgeRiskScore(days int) int {
	switch {
	case days >= AgeHighRiskDays:
		return 80
	case days >= AgeMediumRiskDays:
		return 50
	case days >= AgeLowRiskDays:
		return 25
	default:
		return 0
	}
}
