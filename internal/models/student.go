package models

import "time"

// Student is the profile record consulted for roster enrichment. The
// engine never mutates students; they belong to the surrounding system.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	School    string    `db:"school" json:"school,omitempty"`
	Grade     string    `db:"grade" json:"grade,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RosterMember is one deduplicated student row in a class roster.
type RosterMember struct {
	StudentID      string           `json:"student_id"`
	Name           string           `json:"name"`
	School         string           `json:"school,omitempty"`
	Grade          string           `json:"grade,omitempty"`
	EnrollmentID   string           `json:"enrollment_id"`
	Status         EnrollmentStatus `json:"status"`
	AttendanceDays []string         `json:"attendance_days,omitempty"`
	Assistant      bool             `json:"assistant"`
	Highlighted    bool             `json:"highlighted"`
}

// Roster is the aggregated answer to "who is in this class". Count
// tallies the members attending as of today; future-dated memberships
// stay listed as scheduled without inflating it.
type Roster struct {
	Subject   Subject        `json:"subject,omitempty"`
	ClassName string         `json:"class_name,omitempty"`
	Members   []RosterMember `json:"members"`
	Count     int            `json:"count"`
}

// RosterSummary is one class in the catalog rolled up from membership
// records alone.
type RosterSummary struct {
	Subject   Subject `json:"subject"`
	ClassName string  `json:"class_name"`
	Count     int     `json:"count"`
}
