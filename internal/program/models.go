package program

import "time"

// Registration ties a subject to one program session day.
type Registration struct {
	ProgramID   string     `json:"program_id"`
	ProgramName string     `json:"program_name"`
	SubjectID   string     `json:"subject_id"`
	SessionDate string     `json:"session_date"`
	Attended    bool       `json:"attended"`
	AttendedAt  *time.Time `json:"attended_at,omitempty"`
}
