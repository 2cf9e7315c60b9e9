package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseDateIsStrict(t *testing.T) {
	parsed, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), parsed)

	for _, raw := range []string{"2024/03/01", "2024-3-1", "03-01-2024", "2024-03-01T00:00:00Z", ""} {
		_, err := ParseDate(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestEnrollmentStatusDerivation(t *testing.T) {
	today := date("2024-05-15")
	target := "B반"
	ended := date("2024-04-30")

	cases := []struct {
		name string
		e    Enrollment
		want EnrollmentStatus
	}{
		{"active", Enrollment{StartDate: date("2024-03-01")}, EnrollmentStatusActive},
		{"starts today", Enrollment{StartDate: today}, EnrollmentStatusActive},
		{"scheduled", Enrollment{StartDate: date("2024-06-01")}, EnrollmentStatusScheduled},
		{"ended", Enrollment{StartDate: date("2024-03-01"), EndDate: &ended}, EnrollmentStatusEnded},
		{"transferred", Enrollment{StartDate: date("2024-03-01"), EndDate: &ended, TransferTarget: &target}, EnrollmentStatusTransferred},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.e.StatusOn(today))
		})
	}
}

func TestAttendanceExceptionEmptyMeansFullAttendance(t *testing.T) {
	e := Enrollment{}
	days, exception := e.AttendanceException([]string{"월", "수", "금"})
	assert.False(t, exception)
	assert.Nil(t, days)
}

func TestAttendanceExceptionFullSetIsNotAnException(t *testing.T) {
	e := Enrollment{AttendanceDays: []string{"금", "월", "수"}}
	_, exception := e.AttendanceException([]string{"월", "수", "금"})
	assert.False(t, exception)
}

func TestAttendanceExceptionSubsetIsSortedForDisplay(t *testing.T) {
	e := Enrollment{AttendanceDays: []string{"금", "월"}}
	days, exception := e.AttendanceException([]string{"월", "수", "금"})
	assert.True(t, exception)
	assert.Equal(t, []string{"월", "금"}, days)
}

func TestAttendanceExceptionExtraDayCountsAsException(t *testing.T) {
	// A declared day outside the class schedule still differs from the
	// class day-set, so it surfaces.
	e := Enrollment{AttendanceDays: []string{"월", "토"}}
	days, exception := e.AttendanceException([]string{"월", "수"})
	assert.True(t, exception)
	assert.Equal(t, []string{"월", "토"}, days)
}

func TestNormalizeAttendanceDaysCollapsesFullSet(t *testing.T) {
	e := Enrollment{AttendanceDays: []string{"수", "월"}}
	e.NormalizeAttendanceDays([]string{"월", "수"})
	assert.Empty(t, e.AttendanceDays)

	e = Enrollment{AttendanceDays: []string{"월"}}
	e.NormalizeAttendanceDays([]string{"월", "수"})
	assert.Equal(t, []string{"월"}, []string(e.AttendanceDays))
}

func TestCurrentReflectsEndDate(t *testing.T) {
	e := Enrollment{}
	assert.True(t, e.Current())

	ended := date("2024-01-31")
	e.EndDate = &ended
	assert.False(t, e.Current())
}
