package location

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type fixRequest struct {
	Lat        *float64  `json:"lat"`
	Lng        *float64  `json:"lng"`
	SpeedMps   *float64  `json:"speed_mps"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RegisterRoutes mounts the ingest side of a Feed: the device owning the
// sensor posts its fixes, read errors and permission changes here.
func RegisterRoutes(r fiber.Router, feed *Feed) {
	r.Post("/fixes", func(c *fiber.Ctx) error {
		var req fixRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Lat == nil || req.Lng == nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lng required")
		}
		if *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
			return fiber.NewError(fiber.StatusBadRequest, "lat/lng out of range")
		}
		feed.Push(Sample{
			Lat:        *req.Lat,
			Lng:        *req.Lng,
			SpeedMps:   req.SpeedMps,
			RecordedAt: req.RecordedAt,
		})
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Post("/errors", func(c *fiber.Ctx) error {
		var req struct {
			Kind string `json:"kind"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		err := ErrorForKind(req.Kind)
		if err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "unknown error kind")
		}
		feed.Fail(err)
		return c.SendStatus(fiber.StatusAccepted)
	})

	r.Put("/permission", func(c *fiber.Ctx) error {
		var req struct {
			State string `json:"state"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		state, ok := ParsePermissionState(req.State)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "unknown permission state")
		}
		feed.SetPermission(state)
		return c.SendStatus(fiber.StatusNoContent)
	})
}
