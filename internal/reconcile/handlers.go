package reconcile

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tsfopeneyes/center-management-sub001/internal/shared/calweek"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/run", authMiddleware, func(c *fiber.Ctx) error {
		var req struct {
			Date   string `json:"date"`
			Cutoff string `json:"cutoff"`
		}
		// Empty body means "today at the configured closing time".
		_ = c.BodyParser(&req)

		day := time.Now().In(svc.Timezone())
		if req.Date != "" {
			parsed, err := time.ParseInLocation("2006-01-02", req.Date, svc.Timezone())
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			day = parsed
		}

		clock := req.Cutoff
		if clock == "" {
			clock = svc.ClosingTime()
		}
		cutoff, err := calweek.At(day, clock, svc.Timezone())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := svc.ReconcileDay(c.Context(), day, cutoff)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.JSON(res)
	})
}
