// ABOUTME: Fiber application wiring for the HTTP API
// ABOUTME: Middleware, health check, and route registration live here
package server

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/hypelens/hypelens/internal/intent"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/pipeline"
	"github.com/hypelens/hypelens/internal/search"
	"github.com/hypelens/hypelens/internal/vectorindex"
)

// Deps are the services the API serves.
type Deps struct {
	Engine   *search.Engine
	Pipeline *pipeline.Pipeline
	Parser   *intent.Parser
	Store    *metadata.Store
	Index    vectorindex.Index
}

// New builds the Fiber application with all routes registered.
func New(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "hypelens",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy", "app": "hypelens"})
	})

	api := app.Group("/api")

	searchHandler := NewSearchHandler(deps.Engine)
	searchHandler.Register(api)

	chatHandler := NewChatHandler(deps.Engine, deps.Parser)
	chatHandler.Register(api)

	ingestHandler := NewIngestHandler(deps.Pipeline)
	ingestHandler.Register(api)

	statusHandler := NewStatusHandler(deps.Store, deps.Index)
	statusHandler.Register(api)

	return app
}
