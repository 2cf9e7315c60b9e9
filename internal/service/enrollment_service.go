package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hakplan/roster-api/internal/models"
	"github.com/hakplan/roster-api/internal/repository"
	appErrors "github.com/hakplan/roster-api/pkg/errors"
)

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	FindCurrent(ctx context.Context, studentID string, subject models.Subject, className string) (*models.Enrollment, error)
	CreateCurrent(ctx context.Context, enrollment *models.Enrollment) error
	Close(ctx context.Context, id string, endDate time.Time, transferTarget *string) (bool, error)
	Reinstate(ctx context.Context, id string) (bool, error)
	UpdateAttendanceDays(ctx context.Context, id string, days []string) error
	UpdateFlags(ctx context.Context, id string, assistant, highlighted bool) error
	Purge(ctx context.Context, id string) (bool, error)
}

type enrollmentSessionStore interface {
	FindActiveByName(ctx context.Context, subject models.Subject, className string) (*models.ClassSession, error)
}

type enrollmentStudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// EnrollmentService manages membership lifecycle: assignment,
// withdrawal, reinstatement, transfer, and per-membership preferences.
type EnrollmentService struct {
	enrollments enrollmentStore
	sessions    enrollmentSessionStore
	students    enrollmentStudentStore
	cache       rosterInvalidator
	validator   *validator.Validate
	logger      *zap.Logger

	now func() time.Time
}

// NewEnrollmentService constructs the membership lifecycle service.
func NewEnrollmentService(enrollments enrollmentStore, sessions enrollmentSessionStore, students enrollmentStudentStore, cache rosterInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{
		enrollments: enrollments,
		sessions:    sessions,
		students:    students,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// dateOrToday parses a strict calendar date, defaulting to today when
// the field was omitted.
func (s *EnrollmentService) dateOrToday(raw string) (time.Time, error) {
	if raw == "" {
		return models.DateOnly(s.now()), nil
	}
	return models.ParseDate(raw)
}

// Assign opens a current membership for a student in an active class
// session. A second current membership in the same class is rejected,
// even under concurrent requests.
func (s *EnrollmentService) Assign(ctx context.Context, req models.AssignRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	startDate, err := s.dateOrToday(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedDate, "")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}

	session, err := s.sessions.FindActiveByName(ctx, req.Subject, req.ClassName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSessionUnavailable, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}

	enrollment := &models.Enrollment{
		SessionID:      session.ID,
		StudentID:      req.StudentID,
		Subject:        req.Subject,
		ClassName:      req.ClassName,
		StartDate:      startDate,
		AttendanceDays: validWeekdays(req.AttendanceDays),
		Assistant:      req.Assistant,
		Highlighted:    req.Highlighted,
	}
	enrollment.NormalizeAttendanceDays(session.MeetingDays())

	if err := s.enrollments.CreateCurrent(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicateCurrent) {
			return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create membership")
	}
	s.cache.InvalidateRosters(ctx)

	s.logger.Info("membership opened",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", req.StudentID),
		zap.String("subject", string(req.Subject)),
		zap.String("class_name", req.ClassName))
	return enrollment, nil
}

// Get returns one membership record.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "membership not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch membership")
	}
	return enrollment, nil
}

// Withdraw closes a current membership as of the given date. Closing
// an already-closed membership is a no-op.
func (s *EnrollmentService) Withdraw(ctx context.Context, id string, req models.WithdrawRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid withdrawal payload")
	}
	endDate, err := s.dateOrToday(req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedDate, "")
	}

	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if endDate.Before(models.DateOnly(enrollment.StartDate)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	closed, err := s.enrollments.Close(ctx, id, endDate, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close membership")
	}
	if closed {
		enrollment.EndDate = &endDate
		s.cache.InvalidateRosters(ctx)
		s.logger.Info("membership closed",
			zap.String("enrollment_id", id),
			zap.String("end_date", endDate.Format(time.DateOnly)))
	}
	return enrollment, nil
}

// Reinstate reopens an ended membership, clearing its end date and any
// transfer marker. The membership must be ended, and the student must
// not meanwhile hold another current membership in the same class.
func (s *EnrollmentService) Reinstate(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if enrollment.Current() {
		return nil, appErrors.Clone(appErrors.ErrNotEnded, "membership is already current")
	}

	existing, err := s.enrollments.FindCurrent(ctx, enrollment.StudentID, enrollment.Subject, enrollment.ClassName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check current membership")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrAlreadyEnrolled, "")
	}

	reopened, err := s.enrollments.Reinstate(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reinstate membership")
	}
	if !reopened {
		return nil, appErrors.Clone(appErrors.ErrNotEnded, "membership is already current")
	}
	enrollment.EndDate = nil
	enrollment.TransferTarget = nil
	s.cache.InvalidateRosters(ctx)
	s.logger.Info("membership reinstated", zap.String("enrollment_id", id))
	return enrollment, nil
}

// Transfer moves a student to another class of the same subject. The
// source membership closes the day before the target start date and
// records where the student went; a new current membership opens in
// the target class carrying the display flags over. A source already
// closed toward the same target resumes a half-completed transfer:
// the close is skipped and only the target membership is opened.
func (s *EnrollmentService) Transfer(ctx context.Context, id string, req models.TransferRequest) (*models.TransferResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transfer payload")
	}
	startDate, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedDate, "")
	}

	source, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	resuming := false
	if !source.Current() {
		if source.TransferTarget == nil || *source.TransferTarget != req.TargetClassName {
			return nil, appErrors.Clone(appErrors.ErrNotEnded, "cannot transfer an ended membership")
		}
		resuming = true
	}
	if req.TargetClassName == source.ClassName {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target class equals current class")
	}

	target, err := s.sessions.FindActiveByName(ctx, source.Subject, req.TargetClassName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSessionUnavailable, "target class does not exist or is inactive")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch target session")
	}

	targetName := req.TargetClassName
	if !resuming {
		endDate := startDate.AddDate(0, 0, -1)
		if endDate.Before(models.DateOnly(source.StartDate)) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "transfer date precedes membership start")
		}
		if _, err := s.enrollments.Close(ctx, id, endDate, &targetName); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close source membership")
		}
		source.EndDate = &endDate
		source.TransferTarget = &targetName
	}

	opened := &models.Enrollment{
		SessionID:      target.ID,
		StudentID:      source.StudentID,
		Subject:        source.Subject,
		ClassName:      targetName,
		StartDate:      startDate,
		AttendanceDays: append([]string(nil), source.AttendanceDays...),
		Assistant:      source.Assistant,
		Highlighted:    source.Highlighted,
	}
	opened.NormalizeAttendanceDays(target.MeetingDays())

	if err := s.enrollments.CreateCurrent(ctx, opened); err != nil {
		if errors.Is(err, repository.ErrDuplicateCurrent) {
			// A previous attempt already opened the target membership,
			// resume with the existing record.
			existing, findErr := s.enrollments.FindCurrent(ctx, source.StudentID, source.Subject, targetName)
			if findErr != nil {
				return nil, appErrors.Wrap(findErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resume transfer")
			}
			s.cache.InvalidateRosters(ctx)
			return &models.TransferResult{Closed: source, Opened: existing}, nil
		}
		// Source closed but target did not open. Report instead of
		// silently losing the student from both rosters.
		s.logger.Error("transfer half-completed",
			zap.String("enrollment_id", id),
			zap.String("target_class", targetName),
			zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrPartialFailure.Code, appErrors.ErrPartialFailure.Status, "source membership closed but target membership was not created")
	}
	s.cache.InvalidateRosters(ctx)

	s.logger.Info("membership transferred",
		zap.String("student_id", source.StudentID),
		zap.String("from_class", source.ClassName),
		zap.String("to_class", targetName),
		zap.String("start_date", startDate.Format(time.DateOnly)))
	return &models.TransferResult{Closed: source, Opened: opened}, nil
}

// SetAttendanceDays replaces the membership's declared attendance-day
// subset. Days matching the full class schedule collapse to empty.
func (s *EnrollmentService) SetAttendanceDays(ctx context.Context, id string, req models.AttendanceDaysRequest) (*models.Enrollment, error) {
	for _, day := range req.Days {
		if !models.IsWeekday(day) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday")
		}
	}

	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	enrollment.AttendanceDays = validWeekdays(req.Days)
	if session, err := s.sessions.FindActiveByName(ctx, enrollment.Subject, enrollment.ClassName); err == nil {
		enrollment.NormalizeAttendanceDays(session.MeetingDays())
	}

	if err := s.enrollments.UpdateAttendanceDays(ctx, id, enrollment.AttendanceDays); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance days")
	}
	s.cache.InvalidateRosters(ctx)
	return enrollment, nil
}

// SetFlags updates the assistant and highlight display flags.
func (s *EnrollmentService) SetFlags(ctx context.Context, id string, req models.FlagsRequest) (*models.Enrollment, error) {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.enrollments.UpdateFlags(ctx, id, req.Assistant, req.Highlighted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update flags")
	}
	enrollment.Assistant = req.Assistant
	enrollment.Highlighted = req.Highlighted
	s.cache.InvalidateRosters(ctx)
	return enrollment, nil
}

// Purge hard-deletes an ended membership. Only admins may purge, and
// current memberships are refused.
func (s *EnrollmentService) Purge(ctx context.Context, id string, role models.UserRole) error {
	if !role.CanPurge() {
		return appErrors.Clone(appErrors.ErrForbidden, "only admins may purge memberships")
	}

	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if enrollment.Current() {
		return appErrors.Clone(appErrors.ErrNotEnded, "")
	}

	purged, err := s.enrollments.Purge(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to purge membership")
	}
	if !purged {
		return appErrors.Clone(appErrors.ErrNotEnded, "")
	}
	s.cache.InvalidateRosters(ctx)
	s.logger.Info("membership purged", zap.String("enrollment_id", id))
	return nil
}

// validWeekdays filters the input down to recognised weekday names,
// dropping duplicates and preserving weekday order.
func validWeekdays(days []string) []string {
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, day := range days {
		if !models.IsWeekday(day) {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return models.WeekdayIndex(out[i]) < models.WeekdayIndex(out[j])
	})
	return out
}
