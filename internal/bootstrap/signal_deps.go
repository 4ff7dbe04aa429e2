package bootstrap

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"signal_server/adapter/out/authority"
	"signal_server/adapter/out/kv"
	"signal_server/adapter/out/persistence"
	"signal_server/config"
	"signal_server/core/port/out"
	"signal_server/core/service/badge"
	"signal_server/core/service/settings"
	"signal_server/infra/database"
	"signal_server/pkg/logger"
)

// Dependencies carries every wired component.
type Dependencies struct {
	Config *config.Config
	Redis  *redis.Client
	SQLDB  *sqlx.DB

	KV        out.KVStore
	Authority out.Authority

	BadgeStore    *badge.Store
	SettingsStore *settings.Store
}

// NewDependencies wires storage, the authority and the core stores.
// Redis backs the KV store in production; without a Redis URL the process
// falls back to in-memory state, which suits development only.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	log := logger.Default()

	deps := &Dependencies{Config: cfg}
	cleanups := []func(){}

	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		deps.Redis = redisClient
		deps.KV = kv.NewRedisKV(redisClient)
		cleanups = append(cleanups, func() { _ = redisClient.Close() })
	} else {
		log.Warn().Msg("no REDIS_URL configured, using in-memory state")
		deps.KV = kv.NewMemoryKV()
	}

	if cfg.DatabaseURL != "" {
		sqlDB, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		deps.SQLDB = sqlDB
		cleanups = append(cleanups, func() { _ = sqlDB.Close() })
	}

	deps.Authority = buildAuthority(cfg, deps, *log)

	deps.BadgeStore = badge.NewStore(deps.KV, badge.Config{
		TTL:             cfg.BadgeTTL,
		MaxEntries:      cfg.BadgeMaxEntries,
		PersistDebounce: cfg.BadgeDebounce,
	}, *log)
	deps.BadgeStore.Init(context.Background())

	deps.SettingsStore = settings.NewStore(deps.KV, deps.Authority, settings.Config{
		EntitlementTTL: cfg.EntitlementTTL,
		BlocklistTTL:   cfg.BlocklistTTL,
		Limits:         cfg.FreeTierLimits(),
	}, *log)

	cleanup := func() {
		if err := deps.BadgeStore.Flush(context.Background()); err != nil {
			log.Warn().Err(err).Msg("final badge flush failed")
		}
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return deps, cleanup, nil
}

func buildAuthority(cfg *config.Config, deps *Dependencies, log zerolog.Logger) out.Authority {
	if cfg.AuthorityURL == "" {
		log.Warn().Msg("no AUTHORITY_URL configured, entitlement fails closed")
		return authority.NewNoopAuthority()
	}

	httpAuthority := authority.NewHTTPAuthority(authority.Config{
		BaseURL:   cfg.AuthorityURL,
		JWTSecret: cfg.JWTSecret,
	}, deps.KV, log)

	// Self-hosted deployments serve the blocklist straight from Postgres.
	if deps.SQLDB != nil {
		httpAuthority.SetBlocklistSource(persistence.NewBlocklistAdapter(deps.SQLDB))
	}
	return httpAuthority
}
