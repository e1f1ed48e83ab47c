package program

import (
	"context"
	"time"

	"github.com/tsfopeneyes/center-management-sub001/internal/db"
)

type Service struct {
	db db.Querier
}

func NewService(querier db.Querier) *Service {
	return &Service{db: querier}
}

// MarkToday flags the subject's registrations for programs running on the
// given day as attended. Called on check-in; already-marked rows are left
// alone so repeated check-ins count nothing twice.
func (s *Service) MarkToday(ctx context.Context, subjectID string, at time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE program_registrations pr
		SET attended = TRUE, attended_at = $2
		FROM programs p
		WHERE p.id = pr.program_id
		  AND pr.subject_id = $1
		  AND pr.attended = FALSE
		  AND p.session_date = $3
	`, subjectID, at, at.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Registrations lists a subject's registrations for one day, for the kiosk
// greeting screen.
func (s *Service) Registrations(ctx context.Context, subjectID string, day time.Time) ([]Registration, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.name, pr.subject_id, p.session_date, pr.attended, pr.attended_at
		FROM program_registrations pr
		JOIN programs p ON p.id = pr.program_id
		WHERE pr.subject_id = $1 AND p.session_date = $2
		ORDER BY p.name
	`, subjectID, day.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.ProgramID, &reg.ProgramName, &reg.SubjectID, &reg.SessionDate, &reg.Attended, &reg.AttendedAt); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, nil
}
