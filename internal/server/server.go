package server

import (
	"encoding/json"
	"log"

	"github.com/DeivisonJohnny/velocimetro/internal/auth"
	"github.com/DeivisonJohnny/velocimetro/internal/config"
	"github.com/DeivisonJohnny/velocimetro/internal/location"
	"github.com/DeivisonJohnny/velocimetro/internal/stream"
	"github.com/DeivisonJohnny/velocimetro/internal/tracking"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	Engine *tracking.Engine
	Feed   *location.Feed
	Stream *stream.Hub
}

// NewServer wires the engine to the HTTP surface. feed may be nil when the
// location source is not push-based.
func NewServer(cfg config.Config, engine *tracking.Engine, feed *location.Feed, hub *stream.Hub) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		Engine: engine,
		Feed:   feed,
		Stream: hub,
	}

	engine.OnChange(func(snap tracking.Snapshot) {
		payload, err := json.Marshal(snap)
		if err != nil {
			log.Printf("snapshot encode error: %v", err)
			return
		}
		hub.Broadcast(cfg.DeviceID, payload)
	})

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	controlMiddleware := auth.ControlMiddleware(s.Cfg.ControlSecret)

	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Engine, controlMiddleware)
	if s.Feed != nil {
		location.RegisterRoutes(s.App.Group("/location"), s.Feed)
	}
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, s.latestSnapshot)
}

func (s *Server) latestSnapshot(deviceID string) []byte {
	if deviceID != s.Cfg.DeviceID {
		return nil
	}
	payload, err := json.Marshal(s.Engine.Snapshot())
	if err != nil {
		return nil
	}
	return payload
}
