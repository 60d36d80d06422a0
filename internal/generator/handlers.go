package generator

import (
	"context"
	"strconv"

	"github.com/Sakeerin/GoBuddy/internal/apperr"
	"github.com/Sakeerin/GoBuddy/internal/itinerary"
	"github.com/Sakeerin/GoBuddy/internal/planmodel"

	"github.com/gofiber/fiber/v2"
)

// TripSource supplies the trip and its preferences without generator
// needing to import the trip package. *trip.Service satisfies this.
type TripSource interface {
	GetTrip(ctx context.Context, id string) (planmodel.Trip, error)
	GetPreferences(ctx context.Context, tripID string) (planmodel.TripPreferences, error)
}

// Handler exposes itinerary generation and read access over HTTP, backed
// by a Generator for writes and a Store for reads.
type Handler struct {
	gen   *Generator
	store *itinerary.Store
	trips TripSource
}

func NewHandler(gen *Generator, store *itinerary.Store, trips TripSource) *Handler {
	return &Handler{gen: gen, store: store, trips: trips}
}

func RegisterRoutes(r fiber.Router, h *Handler, authMiddleware fiber.Handler) {
	r.Post("/:tripID/itinerary/generate", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			POIIDs         []string `json:"poi_ids"`
			PreservePinned bool     `json:"preserve_pinned"`
			RegenerateMode string   `json:"regenerate_mode"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		tripID := c.Params("tripID")
		trip, err := h.trips.GetTrip(c.Context(), tripID)
		if err != nil {
			return writeErr(c, err)
		}
		prefs, err := h.trips.GetPreferences(c.Context(), tripID)
		if err != nil {
			return writeErr(c, err)
		}

		days, version, err := h.gen.Generate(c.Context(), Input{
			Trip:           trip,
			Preferences:    prefs,
			POIIDs:         req.POIIDs,
			PreservePinned: req.PreservePinned,
			RegenerateMode: req.RegenerateMode,
			ChangedBy:      trip.OwnerID,
		})
		if err != nil {
			return writeErr(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"version": version, "days": days})
	})

	r.Get("/:tripID/itinerary", func(c *fiber.Ctx) error {
		items, err := h.store.Items(c.Context(), c.Params("tripID"))
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(fiber.Map{"days": itinerary.Snapshot(items)})
	})

	r.Get("/:tripID/itinerary/versions/:version", func(c *fiber.Ctx) error {
		version, err := strconv.Atoi(c.Params("version"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "version must be a number")
		}
		v, err := h.store.VersionSnapshot(c.Context(), c.Params("tripID"), version)
		if err != nil {
			return writeErr(c, err)
		}
		return c.JSON(v)
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
	case apperr.CodeStorageUnavailable:
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{"code": e.Code, "message": e.Message})
}
