package replan

import (
	"github.com/Sakeerin/GoBuddy/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/triggers/:triggerID/propose", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			MaxProposals int `json:"max_proposals"`
		}
		_ = c.BodyParser(&req)
		proposals, err := svc.ProposeForTrigger(c.Context(), c.Params("triggerID"), req.MaxProposals)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"proposals": proposals})
	})

	r.Post("/proposals/:proposalID/apply", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			IdempotencyKey string `json:"idempotency_key"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		application, err := svc.Apply(c.Context(), c.Params("proposalID"), req.IdempotencyKey)
		if err != nil {
			return writeErr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(application)
	})

	r.Post("/applications/:applicationID/rollback", authMiddleware, func(c *fiber.Ctx) error {
		application, err := svc.Rollback(c.Context(), c.Params("applicationID"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(application)
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
	case apperr.CodeRollbackExpired:
		status = fiber.StatusGone
	case apperr.CodeReplanFailed:
		status = fiber.StatusUnprocessableEntity
	case apperr.CodeStorageUnavailable:
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"code": e.Code, "message": e.Message})
}
