package http

import (
	"github.com/gofiber/fiber/v2"

	"signal_server/core/domain"
	"signal_server/core/service/badge"
	"signal_server/pkg/apperr"
	"signal_server/pkg/response"
)

// BadgeHandler exposes the badge state store.
type BadgeHandler struct {
	store *badge.Store
}

func NewBadgeHandler(store *badge.Store) *BadgeHandler {
	return &BadgeHandler{store: store}
}

func (h *BadgeHandler) Register(api fiber.Router) {
	api.Get("/badges/stats", h.Stats)
	api.Post("/badges/flush", h.Flush)
	api.Delete("/badges", h.Clear)
	api.Get("/badges/:listingID", h.Get)
	api.Patch("/badges/:listingID", h.Update)
	api.Post("/badges/:listingID/rendered/:badgeType", h.MarkRendered)
	api.Delete("/badges/:listingID/rendered", h.ClearRendered)
}

type badgePatchRequest struct {
	Age            *float64 `json:"age"`
	GhostScore     *int     `json:"ghost_score"`
	GhostCategory  string   `json:"ghost_category"`
	StaffingScore  *float64 `json:"staffing_score"`
	StaffingReason string   `json:"staffing_reason"`
	Benefits       []string `json:"benefits"`
}

// Get returns the cached badge entry for a listing.
func (h *BadgeHandler) Get(c *fiber.Ctx) error {
	listingID := c.Params("listingID")

	entry, ok := h.store.GetBadgeData(listingID)
	if !ok {
		return response.NotFound(c, "no badge data for listing")
	}
	return response.OK(c, entry)
}

// Update merges a partial badge update into the listing's entry.
func (h *BadgeHandler) Update(c *fiber.Ctx) error {
	listingID := c.Params("listingID")

	var req badgePatchRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}

	category := domain.GhostCategory(req.GhostCategory)
	if req.GhostCategory != "" && !category.Valid() {
		return apperr.InvalidInput("ghost_category", "unknown category")
	}

	h.store.SetBadgeData(listingID, domain.BadgePatch{
		Age:            req.Age,
		GhostScore:     req.GhostScore,
		GhostCategory:  category,
		StaffingScore:  req.StaffingScore,
		StaffingReason: req.StaffingReason,
		Benefits:       req.Benefits,
	})

	entry, _ := h.store.GetBadgeData(listingID)
	return response.OK(c, entry)
}

// MarkRendered records a badge insertion for dedup.
func (h *BadgeHandler) MarkRendered(c *fiber.Ctx) error {
	listingID := c.Params("listingID")
	badgeType := domain.BadgeType(c.Params("badgeType"))

	known := false
	for _, t := range domain.AllBadgeTypes() {
		if t == badgeType {
			known = true
			break
		}
	}
	if !known {
		return apperr.InvalidInput("badgeType", "unknown badge type")
	}

	if h.store.IsRendered(listingID, badgeType) {
		return response.OK(c, fiber.Map{"rendered": true, "duplicate": true})
	}
	h.store.MarkRendered(listingID, badgeType)
	return response.OK(c, fiber.Map{"rendered": true, "duplicate": false})
}

// ClearRendered drops all rendered flags for a listing.
func (h *BadgeHandler) ClearRendered(c *fiber.Ctx) error {
	h.store.ClearRenderedStatus(c.Params("listingID"))
	return response.NoContent(c)
}

// Stats returns per-family badge counts.
func (h *BadgeHandler) Stats(c *fiber.Ctx) error {
	return response.OK(c, h.store.Stats())
}

// Flush persists badge state immediately.
func (h *BadgeHandler) Flush(c *fiber.Ctx) error {
	if err := h.store.Flush(c.Context()); err != nil {
		return apperr.StorageError("flush badge state", err)
	}
	return response.NoContent(c)
}

// Clear empties the badge store.
func (h *BadgeHandler) Clear(c *fiber.Ctx) error {
	if err := h.store.Clear(c.Context()); err != nil {
		return apperr.StorageError("clear badge state", err)
	}
	return response.NoContent(c)
}
