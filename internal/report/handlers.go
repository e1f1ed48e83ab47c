package report

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/sessions", authMiddleware, func(c *fiber.Ctx) error {
		from, err := parseDay(c.Query("from"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
		}
		to, err := parseDay(c.Query("to"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
		}
		if from.IsZero() || to.IsZero() || to.Before(from) {
			return fiber.NewError(fiber.StatusBadRequest, "from and to required, to not before from")
		}

		sessions, dropped, err := svc.Sessions(c.Context(), Filter{
			SubjectID: c.Query("subject_id"),
			From:      from,
			To:        to.AddDate(0, 0, 1), // inclusive end day
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if sessions == nil {
			sessions = []VisitSession{}
		}
		return c.JSON(fiber.Map{
			"sessions":      sessions,
			"dropped_count": dropped,
		})
	})
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
