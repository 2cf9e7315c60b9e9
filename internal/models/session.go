package models

import "time"

// Subject is the enumerated class category.
type Subject string

// Known subjects.
const (
	SubjectMath    Subject = "math"
	SubjectEnglish Subject = "english"
	SubjectScience Subject = "science"
	SubjectKorean  Subject = "korean"
	SubjectOther   Subject = "other"
)

// Valid reports whether the subject is a known category.
func (s Subject) Valid() bool {
	switch s {
	case SubjectMath, SubjectEnglish, SubjectScience, SubjectKorean, SubjectOther:
		return true
	}
	return false
}

// ClassSession is one scheduled recurring group offering. Identity is
// (subject, className); enrollments reference it by value, so renames
// fan out to every membership record.
type ClassSession struct {
	ID           string          `db:"id" json:"id"`
	Subject      Subject         `db:"subject" json:"subject"`
	ClassName    string          `db:"class_name" json:"class_name"`
	Teacher      string          `db:"teacher" json:"teacher"`
	Slots        SlotList        `db:"slots" json:"slots"`
	SlotTeachers SlotOverrideMap `db:"slot_teachers" json:"slot_teachers,omitempty"`
	SlotRooms    SlotOverrideMap `db:"slot_rooms" json:"slot_rooms,omitempty"`
	Room         string          `db:"room" json:"room,omitempty"`
	Note         string          `db:"note" json:"note,omitempty"`
	Active       bool            `db:"active" json:"active"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// HasSlot reports whether the session meets in the given slot.
func (c *ClassSession) HasSlot(slot Slot) bool {
	return c.Slots.Contains(slot)
}

// ToggleSlot adds the slot when absent, otherwise removes it together
// with any overrides keyed to it. Overrides never outlive their slot.
func (c *ClassSession) ToggleSlot(day, periodID string) {
	slot := NewSlot(day, periodID)
	for i, s := range c.Slots {
		if s.Equal(slot) {
			c.Slots = append(c.Slots[:i], c.Slots[i+1:]...)
			c.SlotTeachers.Set(slot, "")
			c.SlotRooms.Set(slot, "")
			return
		}
	}
	c.Slots = append(c.Slots, slot)
	SortSlots(c.Slots)
}

// ResolveTeacher returns the slot's effective teacher: a non-empty
// per-slot override wins, otherwise the session's primary teacher.
func (c *ClassSession) ResolveTeacher(slot Slot) string {
	if t, ok := c.SlotTeachers.Get(slot); ok {
		return t
	}
	return c.Teacher
}

// ResolveRoom returns the slot's effective room, falling back to the
// session default.
func (c *ClassSession) ResolveRoom(slot Slot) string {
	if r, ok := c.SlotRooms.Get(slot); ok {
		return r
	}
	return c.Room
}

// PruneOverrides drops override entries whose slot is no longer part of
// the schedule, restoring the keys-subset-of-slots invariant.
func (c *ClassSession) PruneOverrides() {
	for key := range c.SlotTeachers {
		slot, err := ParseSlotKey(key)
		if err != nil || !c.Slots.Contains(slot) {
			delete(c.SlotTeachers, key)
		}
	}
	for key := range c.SlotRooms {
		slot, err := ParseSlotKey(key)
		if err != nil || !c.Slots.Contains(slot) {
			delete(c.SlotRooms, key)
		}
	}
}

// MeetingDays returns the distinct meeting days in weekday order.
func (c *ClassSession) MeetingDays() []string {
	return c.Slots.Days()
}

// SlotConflict reports another session occupying the same
// (day, period, teacher) cell. Advisory only: callers decide whether to
// proceed.
type SlotConflict struct {
	Slot      Slot   `json:"slot"`
	ClassName string `json:"class_name"`
	Teacher   string `json:"teacher"`
}

// FanOutReport summarises a best-effort multi-record write batch.
type FanOutReport struct {
	Updated   int      `json:"updated"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}
