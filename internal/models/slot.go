package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Weekdays lists the seven weekday labels in display order.
var Weekdays = []string{"월", "화", "수", "목", "금", "토", "일"}

var weekdayOrder = func() map[string]int {
	m := make(map[string]int, len(Weekdays))
	for i, d := range Weekdays {
		m[d] = i
	}
	return m
}()

// WeekdayIndex returns the display position of a weekday label.
// Unknown labels sort after every known one.
func WeekdayIndex(day string) int {
	if i, ok := weekdayOrder[day]; ok {
		return i
	}
	return len(Weekdays)
}

// IsWeekday reports whether day is one of the seven known labels.
func IsWeekday(day string) bool {
	_, ok := weekdayOrder[day]
	return ok
}

// legacyPeriodIDs maps the pre-unification paired numbering to the
// current flat numbering. Only the math grid ever used the paired form.
var legacyPeriodIDs = map[string]string{
	"1-1": "1", "1-2": "2",
	"2-1": "3", "2-2": "4",
	"3-1": "5", "3-2": "6",
	"4-1": "7", "4-2": "8",
}

// NormalizePeriodID converts a legacy period identifier to the unified
// numbering. Already-normalized and unknown identifiers pass through
// unchanged, so the function is idempotent.
func NormalizePeriodID(id string) string {
	if unified, ok := legacyPeriodIDs[id]; ok {
		return unified
	}
	return id
}

// Slot is one cell of the weekly day x period grid.
type Slot struct {
	Day      string `json:"day"`
	PeriodID string `json:"period_id"`
}

// NewSlot builds a slot with its period identifier normalized.
func NewSlot(day, periodID string) Slot {
	return Slot{Day: day, PeriodID: NormalizePeriodID(periodID)}
}

// Normalize returns the slot with its period identifier normalized.
func (s Slot) Normalize() Slot {
	s.PeriodID = NormalizePeriodID(s.PeriodID)
	return s
}

// Key returns the canonical string key "{day}-{periodId}".
func (s Slot) Key() string {
	n := s.Normalize()
	return n.Day + "-" + n.PeriodID
}

// Equal compares two slots after normalization.
func (s Slot) Equal(other Slot) bool {
	a, b := s.Normalize(), other.Normalize()
	return a.Day == b.Day && a.PeriodID == b.PeriodID
}

// ParseSlotKey parses a canonical slot key back into a slot. Legacy
// period identifiers inside the key are normalized.
func ParseSlotKey(key string) (Slot, error) {
	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Slot{}, fmt.Errorf("malformed slot key %q", key)
	}
	return NewSlot(parts[0], parts[1]), nil
}

// periodOrder sorts numeric period IDs numerically and pushes
// non-numeric ones behind them.
func periodOrder(id string) (int, string) {
	if n, err := strconv.Atoi(id); err == nil {
		return n, ""
	}
	return 1 << 20, id
}

// SortSlots orders slots for display: weekday order first, then period.
func SortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i].Normalize(), slots[j].Normalize()
		if a.Day != b.Day {
			return WeekdayIndex(a.Day) < WeekdayIndex(b.Day)
		}
		an, as := periodOrder(a.PeriodID)
		bn, bs := periodOrder(b.PeriodID)
		if an != bn {
			return an < bn
		}
		return as < bs
	})
}

// SlotList is a set of slots persisted as a JSONB column.
type SlotList []Slot

// Contains reports membership after normalization.
func (l SlotList) Contains(slot Slot) bool {
	for _, s := range l {
		if s.Equal(slot) {
			return true
		}
	}
	return false
}

// Days returns the distinct meeting days in weekday order.
func (l SlotList) Days() []string {
	seen := make(map[string]struct{}, len(l))
	var days []string
	for _, s := range l {
		if _, ok := seen[s.Day]; ok {
			continue
		}
		seen[s.Day] = struct{}{}
		days = append(days, s.Day)
	}
	sort.SliceStable(days, func(i, j int) bool {
		return WeekdayIndex(days[i]) < WeekdayIndex(days[j])
	})
	return days
}

// Value implements driver.Valuer for JSONB storage.
func (l SlotList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage.
func (l *SlotList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported slot list source %T", src)
	}
	return json.Unmarshal(raw, l)
}

// SlotOverrideMap maps canonical slot keys to an override value
// (teacher name or room), persisted as a JSONB column. Absent or empty
// entries inherit the session default.
type SlotOverrideMap map[string]string

// Get returns the override for a slot, if set and non-empty.
func (m SlotOverrideMap) Get(slot Slot) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[slot.Key()]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Set stores an override under the canonical key. Empty values delete.
func (m SlotOverrideMap) Set(slot Slot, value string) {
	if m == nil {
		return
	}
	if value == "" {
		delete(m, slot.Key())
		return
	}
	m[slot.Key()] = value
}

// Normalized returns a copy re-keyed through legacy normalization.
func (m SlotOverrideMap) Normalized() SlotOverrideMap {
	if m == nil {
		return nil
	}
	out := make(SlotOverrideMap, len(m))
	for key, v := range m {
		slot, err := ParseSlotKey(key)
		if err != nil {
			continue
		}
		out[slot.Key()] = v
	}
	return out
}

// Value implements driver.Valuer for JSONB storage.
func (m SlotOverrideMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage.
func (m *SlotOverrideMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported override map source %T", src)
	}
	return json.Unmarshal(raw, m)
}
