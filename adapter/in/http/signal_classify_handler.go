package http

import (
	"github.com/gofiber/fiber/v2"

	"signal_server/core/domain"
	"signal_server/core/service/classification"
	"signal_server/core/service/settings"
	"signal_server/pkg/apperr"
	"signal_server/pkg/response"
)

// Community-blocklist staffing confidences.
const (
	blocklistVerifiedConfidence   = 95
	blocklistUnverifiedConfidence = 90
)

// ClassifyHandler runs the deterministic trust-signal classifiers.
// Pattern classification itself is pure; the optional blocklist check layers
// community knowledge on top of the staffing result.
type ClassifyHandler struct {
	earlyApplicant *classification.Classifier
	staffing       *classification.Classifier
	ghost          *classification.Classifier
	settings       *settings.Store
}

func NewClassifyHandler(settingsStore *settings.Store) *ClassifyHandler {
	return &ClassifyHandler{
		earlyApplicant: classification.NewEarlyApplicantClassifier(),
		staffing:       classification.NewStaffingClassifier(),
		ghost:          classification.NewGhostClassifier(),
		settings:       settingsStore,
	}
}

func (h *ClassifyHandler) Register(api fiber.Router) {
	api.Post("/classify", h.Classify)
}

type classifyRequest struct {
	Description string `json:"description"`
	CompanyName string `json:"company_name"`
	PostedDate  string `json:"posted_date"`
	Mode        string `json:"mode"` // conservative (default) or permissive
}

type familyResult struct {
	Confidence       int      `json:"confidence"`
	MatchedSignalIDs []string `json:"matched_signal_ids"`
	Detected         bool     `json:"detected"`
}

type classifyResponse struct {
	Mode           string       `json:"mode"`
	EarlyApplicant familyResult `json:"early_applicant"`
	Staffing       familyResult `json:"staffing"`
	Ghost          familyResult `json:"ghost"`

	AgeDays      *int   `json:"age_days,omitempty"`
	AgeRiskScore int    `json:"age_risk_score"`
	GhostScore   int    `json:"ghost_score"`
	GhostBand    string `json:"ghost_category"`
}

// Classify evaluates one listing against every signal family.
func (h *ClassifyHandler) Classify(c *fiber.Ctx) error {
	var req classifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	// Degenerate input is not an error: the classifiers return the zero
	// result for anything too short to carry a signal.
	mode := classification.ModeConservative
	if req.Mode == string(classification.ModePermissive) {
		mode = classification.ModePermissive
	}

	early := h.earlyApplicant.Classify(req.Description, mode)

	// Staffing phrasing shows up in both the company name and the body.
	staffing := h.staffing.Classify(req.CompanyName+" "+req.Description, mode)

	// A community blocklist hit outranks pattern evidence.
	if h.settings != nil && req.CompanyName != "" {
		if entry := h.settings.MatchBlocklist(c.Context(), req.CompanyName); entry != nil && entry.Category == domain.BlocklistStaffing {
			confidence := blocklistUnverifiedConfidence
			signalID := "community-blocklist"
			if entry.Verified {
				confidence = blocklistVerifiedConfidence
				signalID = "community-blocklist-verified"
			}
			if confidence > staffing.Confidence {
				staffing.Confidence = confidence
			}
			staffing.MatchedSignalIDs = append(staffing.MatchedSignalIDs, signalID)
		}
	}

	ghost := h.ghost.Classify(req.Description, mode)

	resp := classifyResponse{
		Mode:           string(mode),
		EarlyApplicant: toFamilyResult(early, mode),
		Staffing:       toFamilyResult(staffing, mode),
		Ghost:          toFamilyResult(ghost, mode),
		GhostScore:     ghost.Confidence,
	}

	if days, ok := classification.ParsePostedDays(req.PostedDate); ok {
		resp.AgeDays = &days
		resp.AgeRiskScore = classification.AgeRiskScore(days)
		if resp.AgeRiskScore > resp.GhostScore {
			resp.GhostScore = resp.AgeRiskScore
		}
	}
	resp.GhostBand = string(domain.GhostCategoryFromScore(resp.GhostScore))

	return response.OK(c, resp)
}

func toFamilyResult(r classification.Result, mode classification.Mode) familyResult {
	ids := r.MatchedSignalIDs
	if ids == nil {
		ids = []string{}
	}
	return familyResult{
		Confidence:       r.Confidence,
		MatchedSignalIDs: ids,
		Detected:         classification.Detected(r, mode),
	}
}
