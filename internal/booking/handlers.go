package booking

import (
	"github.com/Sakeerin/GoBuddy/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		b, err := svc.Create(c.Context(), req)
		if err != nil {
			return writeErr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(b)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		b, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(b)
	})

	r.Post("/:id/retry", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		b, err := svc.Retry(c.Context(), c.Params("id"), req)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(b)
	})

	r.Post("/:id/cancel", authMiddleware, func(c *fiber.Ctx) error {
		b, err := svc.Cancel(c.Context(), c.Params("id"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(b)
	})

	r.Post("/webhooks/:provider", func(c *fiber.Ctx) error {
		b, err := svc.HandleWebhook(c.Context(), c.Params("provider"), c.Body())
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(b)
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
	case apperr.CodeConflict, apperr.CodeIdempotencyConflict:
		status = fiber.StatusConflict
	case apperr.CodeBookingFailed, apperr.CodeProviderError:
		status = fiber.StatusBadGateway
	case apperr.CodeStorageUnavailable:
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"code": e.Code, "message": e.Message, "details": e.Details})
}
