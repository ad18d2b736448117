package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"

	"github.com/fathima-sithara/relay-service/internal/hub"
	"github.com/fathima-sithara/relay-service/internal/ws"
)

func NewServer(h *hub.Hub, wsrv *ws.Server) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(logger.New())

	api := app.Group("/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		users, rooms := h.Stats()
		return c.JSON(fiber.Map{"status": "ok", "users": users, "rooms": rooms})
	})

	api.Get("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws", websocket.New(wsrv.Handler()))

	// Browser clients dial the bare base URL, so the socket endpoint
	// also answers at the root.
	app.Get("/", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/", websocket.New(wsrv.Handler()))

	return app
}
