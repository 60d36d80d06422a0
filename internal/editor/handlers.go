package editor

import (
	"github.com/Sakeerin/GoBuddy/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:tripID/items/reorder", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Day     int      `json:"day"`
			ItemIDs []string `json:"item_ids"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		items, err := svc.Reorder(c.Context(), c.Params("tripID"), req.Day, req.ItemIDs)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"items": items})
	})

	r.Post("/:tripID/items/:itemID/pin", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Pinned bool `json:"pinned"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		item, err := svc.TogglePin(c.Context(), c.Params("tripID"), c.Params("itemID"), req.Pinned)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(item)
	})

	r.Post("/:tripID/items/:itemID/start-time", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			StartTime string `json:"start_time"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		items, err := svc.SetStartTime(c.Context(), c.Params("tripID"), c.Params("itemID"), req.StartTime)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"items": items})
	})

	r.Delete("/:tripID/items/:itemID", authMiddleware, func(c *fiber.Ctx) error {
		items, err := svc.Remove(c.Context(), c.Params("tripID"), c.Params("itemID"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"items": items})
	})

	r.Post("/:tripID/items", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Day       int    `json:"day"`
			POIID     string `json:"poi_id"`
			StartTime string `json:"start_time,omitempty"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		items, err := svc.Add(c.Context(), c.Params("tripID"), req.Day, req.POIID, req.StartTime)
		if err != nil {
			return writeErr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"items": items})
	})

	r.Get("/:tripID/validate", authMiddleware, func(c *fiber.Ctx) error {
		result, err := svc.Validate(c.Context(), c.Params("tripID"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(result)
	})
}

func writeErr(c *fiber.Ctx, err error) error {
	e, ok := apperr.As(err)
	if !ok {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	status := fiber.StatusInternalServerError
	switch e.Code {
	case apperr.CodeValidation:
		status = fiber.StatusBadRequest
	case apperr.CodeNotFound:
		status = fiber.StatusNotFound
	case apperr.CodeConflict:
		status = fiber.StatusConflict
	case apperr.CodeStorageUnavailable:
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"code": e.Code, "message": e.Message})
}
