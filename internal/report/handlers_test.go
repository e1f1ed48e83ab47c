package report

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/tsfopeneyes/center-management-sub001/internal/presence"
)

func newReportApp(t *testing.T) (*fiber.App, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := newMock(t)

	app := fiber.New()
	RegisterRoutes(app.Group("/reports"), NewService(mock, nil, nil), func(c *fiber.Ctx) error { return c.Next() })
	return app, mock
}

func TestSessionsHandler(t *testing.T) {
	app, mock := newReportApp(t)

	mock.ExpectQuery(`SELECT id, subject_id, location_id, kind, occurred_at, duration_min`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(eventRows(
			presence.VisitEvent{ID: "e1", SubjectID: subj("s1"), LocationID: "loc-a", Kind: presence.KindCheckIn, OccurredAt: at(9, 0)},
			presence.VisitEvent{ID: "e2", SubjectID: subj("s1"), LocationID: "loc-a", Kind: presence.KindCheckOut, OccurredAt: at(10, 0)},
		))

	req := httptest.NewRequest(http.MethodGet, "/reports/sessions?from=2026-08-31&to=2026-08-31", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("sessions status: %v %d", err, resp.StatusCode)
	}

	var body struct {
		Sessions     []VisitSession `json:"sessions"`
		DroppedCount int            `json:"dropped_count"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 1 || body.DroppedCount != 0 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Sessions[0].DurationMinutes != 60 {
		t.Fatalf("unexpected duration: %d", body.Sessions[0].DurationMinutes)
	}
}

func TestSessionsHandlerSubjectFilter(t *testing.T) {
	app, mock := newReportApp(t)

	mock.ExpectQuery(`WHERE subject_id = \$3`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "s7").
		WillReturnRows(eventRows())

	req := httptest.NewRequest(http.MethodGet, "/reports/sessions?from=2026-08-30&to=2026-08-31&subject_id=s7", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("sessions status: %v %d", err, resp.StatusCode)
	}

	var body struct {
		Sessions []VisitSession `json:"sessions"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Sessions == nil || len(body.Sessions) != 0 {
		t.Fatalf("expected empty but present sessions array")
	}
}

func TestSessionsHandlerValidation(t *testing.T) {
	app, _ := newReportApp(t)

	for _, target := range []string{
		"/reports/sessions",
		"/reports/sessions?from=2026-08-31",
		"/reports/sessions?from=bad&to=2026-08-31",
		"/reports/sessions?from=2026-08-31&to=2026-08-30",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, resp.StatusCode)
		}
	}
}
