package trip

import (
	"errors"
	"strings"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"

	"github.com/gofiber/fiber/v2"
)

// Identity resolves either a bearer access token or a guest-session
// token into an owner id, without this package needing to import
// internal/auth. *auth.Service satisfies this directly.
type Identity interface {
	ValidateAccessToken(token string) (string, error)
	ValidateGuestToken(token string) (string, error)
}

// RegisterRoutes wires up trip CRUD. POST / accepts ownership from
// either a bearer JWT or the X-Guest-Token header, resolved through
// identity, enforcing that exactly one is present.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler, identity Identity) {
	r.Post("/", func(c *fiber.Ctx) error {
		var req CreateTripInput
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ownerKind, ownerID, err := resolveOwner(c, identity)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		req.OwnerKind = ownerKind
		req.OwnerID = ownerID

		t, err := svc.CreateTrip(c.Context(), req)
		if err != nil {
			return writeErr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(t)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		t, err := svc.GetTrip(c.Context(), c.Params("id"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(t)
	})

	r.Delete("/:id", authMiddleware, func(c *fiber.Ctx) error {
		if err := svc.DeleteTrip(c.Context(), c.Params("id")); err != nil {
			return writeErr(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	r.Get("/:id/preferences", func(c *fiber.Ctx) error {
		p, err := svc.GetPreferences(c.Context(), c.Params("id"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(p)
	})

	r.Put("/:id/preferences", authMiddleware, func(c *fiber.Ctx) error {
		var req TripPreferences
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		p, err := svc.UpdatePreferences(c.Context(), c.Params("id"), req)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(p)
	})

	r.Post("/:id/status", authMiddleware, func(c *fiber.Ctx) error {
		var body struct {
			Status planmodel.TripStatus `json:"status"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		t, err := svc.TransitionStatus(c.Context(), c.Params("id"), body.Status)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(t)
	})
}

func resolveOwner(c *fiber.Ctx, identity Identity) (planmodel.OwnerKind, string, error) {
	if bearer := bearerToken(c.Get("Authorization")); bearer != "" {
		userID, err := identity.ValidateAccessToken(bearer)
		if err != nil {
			return "", "", err
		}
		return planmodel.OwnerUser, userID, nil
	}
	if guestToken := c.Get("X-Guest-Token"); guestToken != "" {
		guestID, err := identity.ValidateGuestToken(guestToken)
		if err != nil {
			return "", "", err
		}
		return planmodel.OwnerGuest, guestID, nil
	}
	return "", "", errors.New("bearer token or X-Guest-Token header required")
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
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
	case apperr.CodeStorageUnavailable:
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"code": e.Code, "message": e.Message, "details": e.Details})
}
