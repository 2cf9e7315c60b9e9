package models

import (
	"sort"
	"time"

	"github.com/lib/pq"
)

// EnrollmentStatus is derived from dates, never stored.
type EnrollmentStatus string

// Derived lifecycle states.
const (
	EnrollmentStatusScheduled   EnrollmentStatus = "SCHEDULED"
	EnrollmentStatusActive      EnrollmentStatus = "ACTIVE"
	EnrollmentStatusEnded       EnrollmentStatus = "ENDED"
	EnrollmentStatusTransferred EnrollmentStatus = "TRANSFERRED"
)

// Enrollment is one student's membership record in one class session,
// referencing the session by (subject, className) value. At most one
// membership per (student, subject, className) may be current, i.e.
// carry no end date. SessionID records which session opened the
// membership so records a crashed rename left under a stale class name
// can still be found.
type Enrollment struct {
	ID             string         `db:"id" json:"id"`
	SessionID      string         `db:"session_id" json:"session_id"`
	StudentID      string         `db:"student_id" json:"student_id"`
	Subject        Subject        `db:"subject" json:"subject"`
	ClassName      string         `db:"class_name" json:"class_name"`
	StartDate      time.Time      `db:"start_date" json:"start_date"`
	EndDate        *time.Time     `db:"end_date" json:"end_date,omitempty"`
	AttendanceDays pq.StringArray `db:"attendance_days" json:"attendance_days,omitempty"`
	Assistant      bool           `db:"assistant" json:"assistant"`
	Highlighted    bool           `db:"highlighted" json:"highlighted"`
	TransferTarget *string        `db:"transfer_target" json:"transfer_target,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// Current reports whether the membership is still open.
func (e *Enrollment) Current() bool {
	return e.EndDate == nil
}

// StatusOn derives the lifecycle state for the given day.
func (e *Enrollment) StatusOn(today time.Time) EnrollmentStatus {
	if e.EndDate != nil {
		if e.TransferTarget != nil && *e.TransferTarget != "" {
			return EnrollmentStatusTransferred
		}
		return EnrollmentStatusEnded
	}
	if DateOnly(e.StartDate).After(DateOnly(today)) {
		return EnrollmentStatusScheduled
	}
	return EnrollmentStatusActive
}

// AttendanceException applies the display rule for a student's declared
// attendance-day subset against the class's meeting days. An empty
// subset, or one equal (as a set) to the full day-set, is not an
// exception and yields nothing. Anything else is returned in weekday
// display order.
func (e *Enrollment) AttendanceException(classDays []string) ([]string, bool) {
	if len(e.AttendanceDays) == 0 {
		return nil, false
	}
	classSet := make(map[string]struct{}, len(classDays))
	for _, d := range classDays {
		classSet[d] = struct{}{}
	}
	studentSet := make(map[string]struct{}, len(e.AttendanceDays))
	for _, d := range e.AttendanceDays {
		studentSet[d] = struct{}{}
	}
	if len(studentSet) == len(classSet) {
		same := true
		for d := range studentSet {
			if _, ok := classSet[d]; !ok {
				same = false
				break
			}
		}
		if same {
			return nil, false
		}
	}
	days := make([]string, 0, len(studentSet))
	for d := range studentSet {
		days = append(days, d)
	}
	sort.SliceStable(days, func(i, j int) bool {
		return WeekdayIndex(days[i]) < WeekdayIndex(days[j])
	})
	return days, true
}

// NormalizeAttendanceDays collapses "attends every class day" to the
// empty state so that empty always means no exception.
func (e *Enrollment) NormalizeAttendanceDays(classDays []string) {
	if _, exception := e.AttendanceException(classDays); !exception {
		e.AttendanceDays = nil
	}
}

// DateOnly truncates a timestamp to its calendar date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, raw, time.UTC)
}

// EnrollmentFilter narrows enrollment scans.
type EnrollmentFilter struct {
	StudentID   string
	Subject     Subject
	ClassName   string
	CurrentOnly bool
}
