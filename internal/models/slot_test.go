package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePeriodIDMapsLegacyIdentifiers(t *testing.T) {
	cases := map[string]string{
		"1-1": "1",
		"1-2": "2",
		"2-1": "3",
		"2-2": "4",
		"3-1": "5",
		"3-2": "6",
		"4-1": "7",
		"4-2": "8",
		"5":   "5",
		"x":   "x",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePeriodID(in), "input %q", in)
	}
}

func TestNormalizePeriodIDIsIdempotent(t *testing.T) {
	for _, id := range []string{"1-1", "3-2", "7", "extra"} {
		once := NormalizePeriodID(id)
		assert.Equal(t, once, NormalizePeriodID(once))
	}
}

func TestSlotKeyAndParseRoundTrip(t *testing.T) {
	slot := NewSlot("월", "2-1")
	assert.Equal(t, "월-3", slot.Key())

	parsed, err := ParseSlotKey(slot.Key())
	require.NoError(t, err)
	assert.True(t, slot.Equal(parsed))

	_, err = ParseSlotKey("nodash")
	assert.Error(t, err)
}

func TestSlotEqualAcrossLegacyIdentifiers(t *testing.T) {
	assert.True(t, NewSlot("화", "1-2").Equal(Slot{Day: "화", PeriodID: "2"}))
	assert.False(t, NewSlot("화", "1-2").Equal(Slot{Day: "수", PeriodID: "2"}))
}

func TestSortSlotsFollowsWeekdayThenPeriod(t *testing.T) {
	slots := []Slot{
		{Day: "일", PeriodID: "1"},
		{Day: "월", PeriodID: "10"},
		{Day: "월", PeriodID: "2"},
		{Day: "수", PeriodID: "1"},
		{Day: "월", PeriodID: "간식"},
	}
	SortSlots(slots)

	want := []Slot{
		{Day: "월", PeriodID: "2"},
		{Day: "월", PeriodID: "10"},
		{Day: "월", PeriodID: "간식"},
		{Day: "수", PeriodID: "1"},
		{Day: "일", PeriodID: "1"},
	}
	assert.Equal(t, want, slots)
}

func TestSlotListDaysAreDistinctAndOrdered(t *testing.T) {
	list := SlotList{
		{Day: "금", PeriodID: "1"},
		{Day: "월", PeriodID: "1"},
		{Day: "금", PeriodID: "2"},
	}
	assert.Equal(t, []string{"월", "금"}, list.Days())
}

func TestSlotOverrideMapGetIgnoresEmptyValues(t *testing.T) {
	m := SlotOverrideMap{"월-1": "김선생", "화-2": ""}

	teacher, ok := m.Get(Slot{Day: "월", PeriodID: "1"})
	assert.True(t, ok)
	assert.Equal(t, "김선생", teacher)

	_, ok = m.Get(Slot{Day: "화", PeriodID: "2"})
	assert.False(t, ok)
}

func TestSlotOverrideMapSetDeletesOnEmpty(t *testing.T) {
	m := SlotOverrideMap{}
	slot := NewSlot("목", "3")

	m.Set(slot, "이선생")
	assert.Len(t, m, 1)

	m.Set(slot, "")
	assert.Empty(t, m)
}

func TestSlotOverrideMapNormalizedRekeysLegacyEntries(t *testing.T) {
	m := SlotOverrideMap{"월-1-1": "김선생", "화-2": "박선생"}
	n := m.Normalized()

	teacher, ok := n.Get(NewSlot("월", "1-1"))
	assert.True(t, ok)
	assert.Equal(t, "김선생", teacher)

	teacher, ok = n.Get(Slot{Day: "화", PeriodID: "2"})
	assert.True(t, ok)
	assert.Equal(t, "박선생", teacher)
}
