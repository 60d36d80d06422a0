package event

import (
	"github.com/Sakeerin/GoBuddy/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req IngestInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		signal, trigger, err := svc.Ingest(c.Context(), req)
		if err != nil {
			return writeErr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"signal": signal, "trigger": trigger})
	})

	r.Post("/weather-check", authMiddleware, func(c *fiber.Ctx) error {
		var req WeatherCheckInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		signal, trigger, err := svc.CheckWeather(c.Context(), req)
		if err != nil {
			return writeErr(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"signal": signal, "trigger": trigger})
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
	case apperr.CodeStorageUnavailable:
		status = fiber.StatusServiceUnavailable
	case apperr.CodeProviderError:
		status = fiber.StatusBadGateway
	}
	return c.Status(status).JSON(fiber.Map{"code": e.Code, "message": e.Message})
}
