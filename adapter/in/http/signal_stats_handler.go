package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"signal_server/core/service/badge"
	"signal_server/infra/database"
	"signal_server/pkg/response"
)

// StatsHandler reports runtime statistics.
type StatsHandler struct {
	badges *badge.Store
	redis  *redis.Client
}

func NewStatsHandler(badges *badge.Store, redis *redis.Client) *StatsHandler {
	return &StatsHandler{badges: badges, redis: redis}
}

func (h *StatsHandler) Register(api fiber.Router) {
	api.Get("/stats", h.Stats)
}

func (h *StatsHandler) Stats(c *fiber.Ctx) error {
	stats := fiber.Map{
		"badges": h.badges.Stats(),
	}
	if h.redis != nil {
		stats["redis_pool"] = database.GetRedisStats(h.redis)
	}
	return response.OK(c, stats)
}
