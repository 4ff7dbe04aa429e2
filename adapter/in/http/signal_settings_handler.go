package http

import (
	"github.com/gofiber/fiber/v2"

	"signal_server/core/domain"
	"signal_server/core/service/settings"
	"signal_server/pkg/apperr"
	"signal_server/pkg/response"
)

// SettingsHandler exposes the hybrid settings and entitlement store.
type SettingsHandler struct {
	store *settings.Store
}

func NewSettingsHandler(store *settings.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

func (h *SettingsHandler) Register(api fiber.Router) {
	api.Get("/settings", h.Get)
	api.Patch("/settings", h.Update)
	api.Post("/settings/sync", h.Sync)

	api.Get("/keywords/include", h.GetIncludeKeywords)
	api.Post("/keywords/include", h.AddIncludeKeyword)
	api.Delete("/keywords/include/:keyword", h.RemoveIncludeKeyword)

	api.Get("/keywords/exclude", h.GetExcludeKeywords)
	api.Post("/keywords/exclude", h.AddExcludeKeyword)
	api.Delete("/keywords/exclude/:keyword", h.RemoveExcludeKeyword)

	api.Get("/companies/exclude", h.GetExcludeCompanies)
	api.Post("/companies/exclude", h.AddExcludeCompany)
	api.Delete("/companies/exclude/:name", h.RemoveExcludeCompany)

	api.Get("/entitlement", h.Entitlement)
	api.Get("/blocklist", h.Blocklist)
	api.Delete("/cache", h.ClearCache)
}

// Get returns the effective filter settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	current, err := h.store.GetSettings(c.Context())
	if err != nil {
		return err
	}
	return response.OK(c, current)
}

type settingsUpdateResponse struct {
	Settings domain.FilterSettings `json:"settings"`
	Sync     string                `json:"sync"`
}

// Update merges a settings patch, persists locally and reports the remote
// sync outcome alongside the new settings.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var patch domain.SettingsPatch
	if err := c.BodyParser(&patch); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if patch.IncludeKeywordsMatch != nil {
		m := *patch.IncludeKeywordsMatch
		if m != domain.MatchAny && m != domain.MatchAll {
			return apperr.InvalidInput("include_keywords_match_mode", "must be any or all")
		}
	}

	updated, outcome, err := h.store.UpdateSettings(c.Context(), patch)
	if err != nil {
		return err
	}
	return response.OK(c, settingsUpdateResponse{
		Settings: updated,
		Sync:     string(outcome),
	})
}

// Sync pulls the authority's settings copy over the local one.
func (h *SettingsHandler) Sync(c *fiber.Ctx) error {
	current, outcome, err := h.store.SyncFromRemote(c.Context())
	if err != nil {
		return err
	}
	return response.OK(c, settingsUpdateResponse{
		Settings: current,
		Sync:     string(outcome),
	})
}

type keywordRequest struct {
	Keyword string `json:"keyword"`
}

type companyRequest struct {
	Name string `json:"name"`
}

func (h *SettingsHandler) GetIncludeKeywords(c *fiber.Ctx) error {
	list, err := h.store.GetIncludeKeywords(c.Context())
	if err != nil {
		return err
	}
	return response.OK(c, orEmpty(list))
}

func (h *SettingsHandler) AddIncludeKeyword(c *fiber.Ctx) error {
	var req keywordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := h.store.AddIncludeKeyword(c.Context(), req.Keyword); err != nil {
		return err
	}
	return response.Created(c, fiber.Map{"keyword": req.Keyword})
}

func (h *SettingsHandler) RemoveIncludeKeyword(c *fiber.Ctx) error {
	if err := h.store.RemoveIncludeKeyword(c.Context(), c.Params("keyword")); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *SettingsHandler) GetExcludeKeywords(c *fiber.Ctx) error {
	list, err := h.store.GetExcludeKeywords(c.Context())
	if err != nil {
		return err
	}
	return response.OK(c, orEmpty(list))
}

func (h *SettingsHandler) AddExcludeKeyword(c *fiber.Ctx) error {
	var req keywordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := h.store.AddExcludeKeyword(c.Context(), req.Keyword); err != nil {
		return err
	}
	return response.Created(c, fiber.Map{"keyword": req.Keyword})
}

func (h *SettingsHandler) RemoveExcludeKeyword(c *fiber.Ctx) error {
	if err := h.store.RemoveExcludeKeyword(c.Context(), c.Params("keyword")); err != nil {
		return err
	}
	return response.NoContent(c)
}

func (h *SettingsHandler) GetExcludeCompanies(c *fiber.Ctx) error {
	list, err := h.store.GetExcludeCompanies(c.Context())
	if err != nil {
		return err
	}
	return response.OK(c, orEmpty(list))
}

func (h *SettingsHandler) AddExcludeCompany(c *fiber.Ctx) error {
	var req companyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := h.store.AddExcludeCompany(c.Context(), req.Name); err != nil {
		return err
	}
	return response.Created(c, fiber.Map{"name": req.Name})
}

func (h *SettingsHandler) RemoveExcludeCompany(c *fiber.Ctx) error {
	if err := h.store.RemoveExcludeCompany(c.Context(), c.Params("name")); err != nil {
		return err
	}
	return response.NoContent(c)
}

// Entitlement returns the cached paid-tier flag.
func (h *SettingsHandler) Entitlement(c *fiber.Ctx) error {
	return response.OK(c, fiber.Map{
		"is_pro": h.store.CheckEntitlement(c.Context()),
	})
}

// Blocklist returns the community blocklist, refreshing it when stale.
func (h *SettingsHandler) Blocklist(c *fiber.Ctx) error {
	entries, err := h.store.GetCommunityBlocklist(c.Context())
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []domain.BlocklistEntry{}
	}
	return response.OK(c, entries)
}

// ClearCache drops the entitlement and blocklist caches.
func (h *SettingsHandler) ClearCache(c *fiber.Ctx) error {
	if err := h.store.ClearCache(c.Context()); err != nil {
		return err
	}
	return response.NoContent(c)
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
