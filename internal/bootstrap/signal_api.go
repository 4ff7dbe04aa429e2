// Package bootstrap wires configuration, storage and handlers into the app.
package bootstrap

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"signal_server/adapter/in/http"
	"signal_server/config"
	"signal_server/infra/middleware"
	"signal_server/pkg/logger"
)

func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	logLevel := cfg.LogLevel
	if cfg.IsDevelopment() && logLevel == "" {
		logLevel = "debug"
	}
	logger.Init(logger.Config{
		Level:   logLevel,
		Service: "jobtrust-api",
		Pretty:  cfg.IsDevelopment(),
	})

	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		logger.Error("failed to initialize dependencies: %v", err)
		return nil, nil, err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(),
		DisableStartupMessage: cfg.IsProduction(),

		ReadBufferSize:  16384,
		WriteBufferSize: 16384,

		// go-json, faster than encoding/json for the badge blobs
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,

		BodyLimit: 1 * 1024 * 1024,
	})

	// Global middleware stack (order matters)
	app.Use(middleware.Recover())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	healthHandler := http.NewHealthHandler(deps.SQLDB, deps.Redis)
	healthHandler.Register(app)

	api := app.Group("/api/v1")

	http.NewClassifyHandler(deps.SettingsStore).Register(api)
	http.NewBadgeHandler(deps.BadgeStore).Register(api)
	http.NewSettingsHandler(deps.SettingsStore).Register(api)
	http.NewStatsHandler(deps.BadgeStore, deps.Redis).Register(api)

	logger.Info("API server initialized")

	return app, cleanup, nil
}
