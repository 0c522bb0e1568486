package tracking

import "github.com/gofiber/fiber/v2"

// RegisterRoutes exposes the snapshot and the start/stop/reset intents.
// Intent outcomes, including failures, are reported in the returned snapshot.
func RegisterRoutes(r fiber.Router, engine *Engine, controlMiddleware fiber.Handler) {
	r.Get("/snapshot", func(c *fiber.Ctx) error {
		return c.JSON(engine.Snapshot())
	})

	r.Post("/start", controlMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(engine.Start(c.UserContext()))
	})

	r.Post("/stop", controlMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(engine.Stop())
	})

	r.Post("/reset", controlMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(engine.Reset())
	})
}
