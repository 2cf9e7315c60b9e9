package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakplan/roster-api/internal/models"
	"github.com/hakplan/roster-api/internal/repository"
	appErrors "github.com/hakplan/roster-api/pkg/errors"
)

type enrollmentStoreStub struct {
	records map[string]*models.Enrollment
	current *models.Enrollment

	createErr   error
	created     []*models.Enrollment
	closeCalls  []closeCall
	closeResult bool
	closeErr    error
	reinstated  bool
	purged      bool
}

type closeCall struct {
	id             string
	endDate        time.Time
	transferTarget *string
}

func (s *enrollmentStoreStub) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := s.records[id]; ok {
		copied := *e
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enrollmentStoreStub) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range s.records {
		out = append(out, *e)
	}
	return out, nil
}

func (s *enrollmentStoreStub) FindCurrent(ctx context.Context, studentID string, subject models.Subject, className string) (*models.Enrollment, error) {
	if s.current != nil && s.current.StudentID == studentID && s.current.Subject == subject && s.current.ClassName == className {
		copied := *s.current
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *enrollmentStoreStub) CreateCurrent(ctx context.Context, enrollment *models.Enrollment) error {
	if s.createErr != nil {
		return s.createErr
	}
	enrollment.ID = "new-enrollment"
	s.created = append(s.created, enrollment)
	return nil
}

func (s *enrollmentStoreStub) Close(ctx context.Context, id string, endDate time.Time, transferTarget *string) (bool, error) {
	s.closeCalls = append(s.closeCalls, closeCall{id: id, endDate: endDate, transferTarget: transferTarget})
	return s.closeResult, s.closeErr
}

func (s *enrollmentStoreStub) Reinstate(ctx context.Context, id string) (bool, error) {
	return s.reinstated, nil
}

func (s *enrollmentStoreStub) UpdateAttendanceDays(ctx context.Context, id string, days []string) error {
	return nil
}

func (s *enrollmentStoreStub) UpdateFlags(ctx context.Context, id string, assistant, highlighted bool) error {
	return nil
}

func (s *enrollmentStoreStub) Purge(ctx context.Context, id string) (bool, error) {
	return s.purged, nil
}

type sessionFinderStub struct {
	sessions map[string]*models.ClassSession
}

func sessionKey(subject models.Subject, className string) string {
	return string(subject) + "/" + className
}

func (s sessionFinderStub) FindActiveByName(ctx context.Context, subject models.Subject, className string) (*models.ClassSession, error) {
	if sess, ok := s.sessions[sessionKey(subject, className)]; ok {
		return sess, nil
	}
	return nil, sql.ErrNoRows
}

type studentFinderStub struct {
	students map[string]*models.Student
}

func (s studentFinderStub) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if st, ok := s.students[id]; ok {
		return st, nil
	}
	return nil, sql.ErrNoRows
}

type invalidatorStub struct {
	calls int
}

func (s *invalidatorStub) InvalidateRosters(ctx context.Context) { s.calls++ }

func newEnrollmentServiceForTest(store *enrollmentStoreStub, sessions sessionFinderStub, students studentFinderStub) (*EnrollmentService, *invalidatorStub) {
	inv := &invalidatorStub{}
	svc := NewEnrollmentService(store, sessions, students, inv, nil, nil)
	svc.now = func() time.Time { return mustDate("2024-05-15") }
	return svc, inv
}

func mathSession(className string, days ...string) *models.ClassSession {
	slots := make(models.SlotList, 0, len(days))
	for _, d := range days {
		slots = append(slots, models.Slot{Day: d, PeriodID: "1"})
	}
	return &models.ClassSession{
		ID:        "sess-" + className,
		Subject:   models.SubjectMath,
		ClassName: className,
		Teacher:   "김선생",
		Slots:     slots,
		Active:    true,
	}
}

func TestAssignCreatesCurrentMembership(t *testing.T) {
	store := &enrollmentStoreStub{records: map[string]*models.Enrollment{}}
	sessions := sessionFinderStub{sessions: map[string]*models.ClassSession{
		sessionKey(models.SubjectMath, "A반"): mathSession("A반", "월", "수"),
	}}
	students := studentFinderStub{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", Name: "홍길동"},
	}}
	svc, inv := newEnrollmentServiceForTest(store, sessions, students)

	enrollment, err := svc.Assign(context.Background(), models.AssignRequest{
		StudentID: "stu-1",
		Subject:   models.SubjectMath,
		ClassName: "A반",
		StartDate: "2024-05-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-enrollment", enrollment.ID)
	assert.Equal(t, "sess-A반", enrollment.SessionID)
	assert.True(t, enrollment.Current())
	assert.Equal(t, 1, inv.calls)
}

func TestAssignDefaultsStartDateToToday(t *testing.T) {
	store := &enrollmentStoreStub{}
	sessions := sessionFinderStub{sessions: map[string]*models.ClassSession{
		sessionKey(models.SubjectMath, "A반"): mathSession("A반", "월"),
	}}
	students := studentFinderStub{students: map[string]*models.Student{"stu-1": {ID: "stu-1"}}}
	svc, _ := newEnrollmentServiceForTest(store, sessions, students)

	enrollment, err := svc.Assign(context.Background(), models.AssignRequest{
		StudentID: "stu-1",
		Subject:   models.SubjectMath,
		ClassName: "A반",
	})
	require.NoError(t, err)
	assert.Equal(t, mustDate("2024-05-15"), enrollment.StartDate)
}

func TestAssignRejectsMalformedDate(t *testing.T) {
	svc, _ := newEnrollmentServiceForTest(&enrollmentStoreStub{}, sessionFinderStub{}, studentFinderStub{})

	_, err := svc.Assign(context.Background(), models.AssignRequest{
		StudentID: "stu-1",
		Subject:   models.SubjectMath,
		ClassName: "A반",
		StartDate: "2024/05/01",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrMalformedDate.Code, appErr.Code)
}

func TestAssignRejectsUnavailableSession(t *testing.T) {
	students := studentFinderStub{students: map[string]*models.Student{"stu-1": {ID: "stu-1"}}}
	svc, _ := newEnrollmentServiceForTest(&enrollmentStoreStub{}, sessionFinderStub{}, students)

	_, err := svc.Assign(context.Background(), models.AssignRequest{
		StudentID: "stu-1",
		Subject:   models.SubjectMath,
		ClassName: "없는반",
		StartDate: "2024-05-01",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSessionUnavailable.Code, appErr.Code)
}

func TestAssignMapsDuplicateCurrentToAlreadyEnrolled(t *testing.T) {
	store := &enrollmentStoreStub{createErr: repository.ErrDuplicateCurrent}
	sessions := sessionFinderStub{sessions: map[string]*models.ClassSession{
		sessionKey(models.SubjectMath, "A반"): mathSession("A반", "월"),
	}}
	students := studentFinderStub{students: map[string]*models.Student{"stu-1": {ID: "stu-1"}}}
	svc, _ := newEnrollmentServiceForTest(store, sessions, students)

	_, err := svc.Assign(context.Background(), models.AssignRequest{
		StudentID: "stu-1",
		Subject:   models.SubjectMath,
		ClassName: "A반",
		StartDate: "2024-05-01",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErr.Code)
}

func TestAssignNormalizesFullAttendanceToEmpty(t *testing.T) {
	store := &enrollmentStoreStub{}
	sessions := sessionFinderStub{sessions: map[string]*models.ClassSession{
		sessionKey(models.SubjectMath, "A반"): mathSession("A반", "월", "수"),
	}}
	students := studentFinderStub{students: map[string]*models.Student{"stu-1": {ID: "stu-1"}}}
	svc, _ := newEnrollmentServiceForTest(store, sessions, students)

	enrollment, err := svc.Assign(context.Background(), models.AssignRequest{
		StudentID:      "stu-1",
		Subject:        models.SubjectMath,
		ClassName:      "A반",
		StartDate:      "2024-05-01",
		AttendanceDays: []string{"수", "월"},
	})
	require.NoError(t, err)
	assert.Empty(t, enrollment.AttendanceDays)
}

func TestWithdrawClosesMembership(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-03-01")},
		},
		closeResult: true,
	}
	svc, inv := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	enrollment, err := svc.Withdraw(context.Background(), "enr-1", models.WithdrawRequest{EndDate: "2024-05-31"})
	require.NoError(t, err)
	require.NotNil(t, enrollment.EndDate)
	assert.Equal(t, mustDate("2024-05-31"), *enrollment.EndDate)
	require.Len(t, store.closeCalls, 1)
	assert.Nil(t, store.closeCalls[0].transferTarget)
	assert.Equal(t, 1, inv.calls)
}

func TestWithdrawDefaultsEndDateToToday(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-03-01")},
		},
		closeResult: true,
	}
	svc, _ := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	enrollment, err := svc.Withdraw(context.Background(), "enr-1", models.WithdrawRequest{})
	require.NoError(t, err)
	require.NotNil(t, enrollment.EndDate)
	assert.Equal(t, mustDate("2024-05-15"), *enrollment.EndDate)
	require.Len(t, store.closeCalls, 1)
	assert.Equal(t, mustDate("2024-05-15"), store.closeCalls[0].endDate)
}

func TestWithdrawRejectsEndBeforeStart(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StartDate: mustDate("2024-03-01")},
		},
	}
	svc, _ := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	_, err := svc.Withdraw(context.Background(), "enr-1", models.WithdrawRequest{EndDate: "2024-02-01"})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestReinstateRejectsCurrentMembership(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StartDate: mustDate("2024-03-01")},
		},
	}
	svc, _ := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	_, err := svc.Reinstate(context.Background(), "enr-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotEnded.Code, appErr.Code)
}

func TestReinstateRejectsWhenAnotherCurrentExists(t *testing.T) {
	ended := mustDate("2024-04-30")
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-03-01"), EndDate: &ended},
		},
		current: &models.Enrollment{ID: "enr-2", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반"},
	}
	svc, _ := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	_, err := svc.Reinstate(context.Background(), "enr-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrAlreadyEnrolled.Code, appErr.Code)
}

func TestReinstateReopensEndedMembership(t *testing.T) {
	ended := mustDate("2024-04-30")
	target := "B반"
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-03-01"), EndDate: &ended, TransferTarget: &target},
		},
		reinstated: true,
	}
	svc, inv := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	enrollment, err := svc.Reinstate(context.Background(), "enr-1")
	require.NoError(t, err)
	assert.Nil(t, enrollment.EndDate)
	assert.Nil(t, enrollment.TransferTarget)
	assert.Equal(t, 1, inv.calls)
}

func TestTransferClosesSourceDayBeforeTargetStart(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-01-10"), Highlighted: true},
		},
		closeResult: true,
	}
	sessions := sessionFinderStub{sessions: map[string]*models.ClassSession{
		sessionKey(models.SubjectMath, "B반"): mathSession("B반", "화", "목"),
	}}
	svc, inv := newEnrollmentServiceForTest(store, sessions, studentFinderStub{})

	result, err := svc.Transfer(context.Background(), "enr-1", models.TransferRequest{
		TargetClassName: "B반",
		StartDate:       "2024-03-01",
	})
	require.NoError(t, err)

	require.Len(t, store.closeCalls, 1)
	assert.Equal(t, mustDate("2024-02-29"), store.closeCalls[0].endDate)
	require.NotNil(t, store.closeCalls[0].transferTarget)
	assert.Equal(t, "B반", *store.closeCalls[0].transferTarget)

	require.NotNil(t, result.Opened)
	assert.Equal(t, "B반", result.Opened.ClassName)
	assert.Equal(t, mustDate("2024-03-01"), result.Opened.StartDate)
	assert.True(t, result.Opened.Highlighted)
	assert.Equal(t, models.EnrollmentStatusTransferred, result.Closed.StatusOn(mustDate("2024-05-15")))
	assert.Equal(t, 1, inv.calls)
}

func TestTransferRejectsSameClass(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-01-10")},
		},
	}
	svc, _ := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	_, err := svc.Transfer(context.Background(), "enr-1", models.TransferRequest{
		TargetClassName: "A반",
		StartDate:       "2024-03-01",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTransferResumesAfterDuplicateTarget(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-01-10")},
		},
		closeResult: true,
		createErr:   repository.ErrDuplicateCurrent,
		current:     &models.Enrollment{ID: "enr-2", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "B반"},
	}
	sessions := sessionFinderStub{sessions: map[string]*models.ClassSession{
		sessionKey(models.SubjectMath, "B반"): mathSession("B반", "화"),
	}}
	svc, _ := newEnrollmentServiceForTest(store, sessions, studentFinderStub{})

	result, err := svc.Transfer(context.Background(), "enr-1", models.TransferRequest{
		TargetClassName: "B반",
		StartDate:       "2024-03-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "enr-2", result.Opened.ID)
}

func TestTransferResumesClosedSourceTowardSameTarget(t *testing.T) {
	ended := mustDate("2024-02-29")
	target := "B반"
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-01-10"), EndDate: &ended, TransferTarget: &target},
		},
	}
	sessions := sessionFinderStub{sessions: map[string]*models.ClassSession{
		sessionKey(models.SubjectMath, "B반"): mathSession("B반", "화"),
	}}
	svc, inv := newEnrollmentServiceForTest(store, sessions, studentFinderStub{})

	result, err := svc.Transfer(context.Background(), "enr-1", models.TransferRequest{
		TargetClassName: "B반",
		StartDate:       "2024-03-01",
	})
	require.NoError(t, err)

	assert.Empty(t, store.closeCalls, "an already closed source must not be closed again")
	require.Len(t, store.created, 1)
	assert.Equal(t, "B반", result.Opened.ClassName)
	assert.Equal(t, "sess-B반", result.Opened.SessionID)
	assert.Equal(t, 1, inv.calls)
}

func TestTransferRejectsEndedSourceWithDifferentTarget(t *testing.T) {
	ended := mustDate("2024-02-29")
	target := "C반"
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-01-10"), EndDate: &ended, TransferTarget: &target},
		},
	}
	svc, _ := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	_, err := svc.Transfer(context.Background(), "enr-1", models.TransferRequest{
		TargetClassName: "B반",
		StartDate:       "2024-03-01",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotEnded.Code, appErr.Code)
}

func TestTransferReportsHalfCompletion(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StudentID: "stu-1", Subject: models.SubjectMath, ClassName: "A반", StartDate: mustDate("2024-01-10")},
		},
		closeResult: true,
		createErr:   errors.New("insert failed"),
	}
	sessions := sessionFinderStub{sessions: map[string]*models.ClassSession{
		sessionKey(models.SubjectMath, "B반"): mathSession("B반", "화"),
	}}
	svc, _ := newEnrollmentServiceForTest(store, sessions, studentFinderStub{})

	_, err := svc.Transfer(context.Background(), "enr-1", models.TransferRequest{
		TargetClassName: "B반",
		StartDate:       "2024-03-01",
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPartialFailure.Code, appErr.Code)
}

func TestPurgeRequiresAdmin(t *testing.T) {
	svc, _ := newEnrollmentServiceForTest(&enrollmentStoreStub{}, sessionFinderStub{}, studentFinderStub{})

	err := svc.Purge(context.Background(), "enr-1", models.RoleManager)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestPurgeRefusesCurrentMembership(t *testing.T) {
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StartDate: mustDate("2024-03-01")},
		},
	}
	svc, _ := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	err := svc.Purge(context.Background(), "enr-1", models.RoleAdmin)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotEnded.Code, appErr.Code)
}

func TestPurgeDeletesEndedMembership(t *testing.T) {
	ended := mustDate("2024-04-30")
	store := &enrollmentStoreStub{
		records: map[string]*models.Enrollment{
			"enr-1": {ID: "enr-1", StartDate: mustDate("2024-03-01"), EndDate: &ended},
		},
		purged: true,
	}
	svc, inv := newEnrollmentServiceForTest(store, sessionFinderStub{}, studentFinderStub{})

	require.NoError(t, svc.Purge(context.Background(), "enr-1", models.RoleAdmin))
	assert.Equal(t, 1, inv.calls)
}

func mustDate(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
