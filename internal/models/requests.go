package models

// CreateSessionRequest defines the payload for opening a new class
// session.
type CreateSessionRequest struct {
	Subject      Subject           `json:"subject" validate:"required"`
	ClassName    string            `json:"class_name" validate:"required,max=120"`
	Teacher      string            `json:"teacher" validate:"max=60"`
	Room         string            `json:"room" validate:"max=60"`
	Note         string            `json:"note" validate:"max=500"`
	Slots        []Slot            `json:"slots" validate:"dive"`
	SlotTeachers map[string]string `json:"slot_teachers"`
	SlotRooms    map[string]string `json:"slot_rooms"`
}

// UpdateScheduleRequest replaces a session's grid occupancy and
// per-slot overrides in one write.
type UpdateScheduleRequest struct {
	Slots        []Slot            `json:"slots" validate:"dive"`
	SlotTeachers map[string]string `json:"slot_teachers"`
	SlotRooms    map[string]string `json:"slot_rooms"`
}

// UpdateStaffingRequest changes a session's default teacher, room and
// note.
type UpdateStaffingRequest struct {
	Teacher string `json:"teacher" validate:"max=60"`
	Room    string `json:"room" validate:"max=60"`
	Note    string `json:"note" validate:"max=500"`
}

// RenameSessionRequest changes the class name, fanning the new name
// out to every membership record.
type RenameSessionRequest struct {
	NewClassName string `json:"new_class_name" validate:"required,max=120"`
}

// ConflictCheckRequest asks whether a tentative schedule collides with
// other sessions' teachers.
type ConflictCheckRequest struct {
	SessionID string `json:"session_id"`
	Teacher   string `json:"teacher"`
	Slots     []Slot `json:"slots" validate:"required,min=1,dive"`
}

// ScheduleResult returns the updated session together with the
// advisory conflicts detected for its new grid.
type ScheduleResult struct {
	Session   *ClassSession  `json:"session"`
	Conflicts []SlotConflict `json:"conflicts,omitempty"`
}

// RenameResult returns the renamed session and the membership fan-out
// outcome.
type RenameResult struct {
	Session *ClassSession `json:"session"`
	FanOut  FanOutReport  `json:"fan_out"`
}

// AssignRequest enrolls a student into a class session. An omitted
// StartDate defaults to today.
type AssignRequest struct {
	StudentID      string   `json:"student_id" validate:"required"`
	Subject        Subject  `json:"subject" validate:"required"`
	ClassName      string   `json:"class_name" validate:"required"`
	StartDate      string   `json:"start_date"`
	AttendanceDays []string `json:"attendance_days"`
	Assistant      bool     `json:"assistant"`
	Highlighted    bool     `json:"highlighted"`
}

// WithdrawRequest closes a current membership as of the given date.
// An omitted EndDate defaults to today.
type WithdrawRequest struct {
	EndDate string `json:"end_date"`
}

// TransferRequest moves a student to another class within the same
// subject: the source membership closes the day before StartDate and a
// new one opens in the target class.
type TransferRequest struct {
	TargetClassName string `json:"target_class_name" validate:"required"`
	StartDate       string `json:"start_date" validate:"required"`
}

// TransferResult returns both sides of a completed transfer.
type TransferResult struct {
	Closed *Enrollment `json:"closed"`
	Opened *Enrollment `json:"opened"`
}

// AttendanceDaysRequest replaces a membership's partial-attendance
// day set. An empty list restores full attendance.
type AttendanceDaysRequest struct {
	Days []string `json:"days"`
}

// FlagsRequest updates a membership's display flags.
type FlagsRequest struct {
	Assistant   bool `json:"assistant"`
	Highlighted bool `json:"highlighted"`
}

// StudentScheduleEntry is one class a student belongs to, with the
// session's resolved meeting details.
type StudentScheduleEntry struct {
	Enrollment Enrollment       `json:"enrollment"`
	Status     EnrollmentStatus `json:"status"`
	Session    *ClassSession    `json:"session,omitempty"`
}
