package presence

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tsfopeneyes/center-management-sub001/internal/directory"
)

func RegisterRoutes(r fiber.Router, svc *Service, dir *directory.Service, authMiddleware fiber.Handler) {
	r.Post("/identify", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Code       string `json:"code"`
			SubjectID  string `json:"subject_id"`
			LocationID string `json:"location_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		locationID := req.LocationID
		if locationID == "" {
			// Terminal tokens carry the kiosk's bound location.
			locationID, _ = c.Locals("terminal_location_id").(string)
		}
		if locationID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "location_id required")
		}

		subjectID := req.SubjectID
		if subjectID == "" {
			if req.Code == "" {
				return fiber.NewError(fiber.StatusBadRequest, "code or subject_id required")
			}
			matches, err := dir.LookupCode(c.Context(), req.Code)
			if err != nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
			}
			switch len(matches) {
			case 0:
				return fiber.NewError(fiber.StatusNotFound, ErrUnknownSubject.Error())
			case 1:
				subjectID = matches[0].ID
			default:
				// Kiosk shows the candidates and retries with subject_id.
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error":      ErrAmbiguousSubject.Error(),
					"candidates": matches,
				})
			}
		}

		res, err := svc.Identify(c.Context(), subjectID, locationID)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	r.Post("/guests", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			LocationID string `json:"location_id"`
			Note       string `json:"note"`
		}
		if err := c.BodyParser(&req); err != nil || req.LocationID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "location_id required")
		}
		ev, err := svc.RecordGuest(c.Context(), req.LocationID, req.Note)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(ev)
	})

	r.Get("/occupancy", func(c *fiber.Ctx) error {
		occupancy, err := svc.Occupancy(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(occupancy)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownSubject):
		return fiber.StatusNotFound
	case errors.Is(err, ErrAmbiguousSubject), errors.Is(err, ErrTransitionConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrStoreUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadRequest
	}
}
