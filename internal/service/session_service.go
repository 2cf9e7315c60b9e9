package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hakplan/roster-api/internal/models"
	appErrors "github.com/hakplan/roster-api/pkg/errors"
	"github.com/hakplan/roster-api/pkg/jobs"
)

type sessionStore interface {
	FindByID(ctx context.Context, id string) (*models.ClassSession, error)
	ListActive(ctx context.Context, subject models.Subject) ([]models.ClassSession, error)
	ExistsName(ctx context.Context, subject models.Subject, className, excludeID string) (bool, error)
	Create(ctx context.Context, session *models.ClassSession) error
	UpdateSchedule(ctx context.Context, id string, slots models.SlotList, slotTeachers, slotRooms models.SlotOverrideMap) error
	UpdateStaffing(ctx context.Context, id, teacher, room, note string) error
	Rename(ctx context.Context, id, newClassName string) error
	Deactivate(ctx context.Context, id string) error
	Search(ctx context.Context, subject models.Subject, keyword string) ([]models.ClassSession, error)
}

type sessionMembershipStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
	ListIDsOutOfSync(ctx context.Context, sessionID, className string) ([]string, error)
	UpdateClassName(ctx context.Context, id, newClassName string) error
	Close(ctx context.Context, id string, endDate time.Time, transferTarget *string) (bool, error)
}

type rosterInvalidator interface {
	InvalidateRosters(ctx context.Context)
}

type conflictDetector interface {
	Detect(ctx context.Context, excludeSessionID string, candidate []models.Slot, teacher string) ([]models.SlotConflict, error)
}

type renameJobPayload struct {
	EnrollmentID string
	NewClassName string
}

// SessionService manages the class session catalog: creation, grid
// edits, renames with membership fan-out, and deactivation.
type SessionService struct {
	sessions    sessionStore
	memberships sessionMembershipStore
	conflicts   conflictDetector
	cache       rosterInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger

	concurrency int
	retry       *jobs.Queue
	now         func() time.Time
}

// SessionServiceConfig tunes fan-out behaviour.
type SessionServiceConfig struct {
	FanOutConcurrency int
	RetryWorkers      int
	RetryDelay        time.Duration
	MaxRetries        int
}

// NewSessionService wires the session catalog service, including its
// internal retry queue for failed rename fan-out writes.
func NewSessionService(sessions sessionStore, memberships sessionMembershipStore, conflicts conflictDetector, cache rosterInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SessionServiceConfig) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.FanOutConcurrency <= 0 {
		cfg.FanOutConcurrency = 8
	}

	s := &SessionService{
		sessions:    sessions,
		memberships: memberships,
		conflicts:   conflicts,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		concurrency: cfg.FanOutConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
	s.retry = jobs.NewQueue("rename-fanout", s.handleRenameRetry, jobs.QueueConfig{
		Workers:    cfg.RetryWorkers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the retry queue workers.
func (s *SessionService) Start(ctx context.Context) {
	s.retry.Start(ctx)
}

// Stop drains the retry queue workers.
func (s *SessionService) Stop() {
	s.retry.Stop()
}

// Create opens a new active class session. The class name must be
// unique among active sessions of the same subject.
func (s *SessionService) Create(ctx context.Context, req models.CreateSessionRequest) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if !req.Subject.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject")
	}

	exists, err := s.sessions.ExistsName(ctx, req.Subject, req.ClassName, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateName, "")
	}

	session := &models.ClassSession{
		Subject:      req.Subject,
		ClassName:    req.ClassName,
		Teacher:      req.Teacher,
		Room:         req.Room,
		Note:         req.Note,
		Slots:        normalizeSlots(req.Slots),
		SlotTeachers: models.SlotOverrideMap(req.SlotTeachers).Normalized(),
		SlotRooms:    models.SlotOverrideMap(req.SlotRooms).Normalized(),
		Active:       true,
	}
	session.PruneOverrides()

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("subject", string(session.Subject)),
		zap.String("class_name", session.ClassName))
	return session, nil
}

// Get returns one session by id.
func (s *SessionService) Get(ctx context.Context, id string) (*models.ClassSession, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}
	return session, nil
}

// List returns the active catalog, optionally filtered by subject or a
// name/teacher keyword.
func (s *SessionService) List(ctx context.Context, subject models.Subject, keyword string) ([]models.ClassSession, error) {
	if subject != "" && !subject.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject")
	}

	var (
		sessions []models.ClassSession
		err      error
	)
	if keyword != "" {
		sessions, err = s.sessions.Search(ctx, subject, keyword)
	} else {
		sessions, err = s.sessions.ListActive(ctx, subject)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// UpdateSchedule replaces the session's grid occupancy and overrides.
// Overrides keyed to removed slots are dropped. Conflicts with other
// sessions are detected and returned, never enforced.
func (s *SessionService) UpdateSchedule(ctx context.Context, id string, req models.UpdateScheduleRequest) (*models.ScheduleResult, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, appErrors.Clone(appErrors.ErrSessionUnavailable, "")
	}

	session.Slots = normalizeSlots(req.Slots)
	session.SlotTeachers = models.SlotOverrideMap(req.SlotTeachers).Normalized()
	session.SlotRooms = models.SlotOverrideMap(req.SlotRooms).Normalized()
	session.PruneOverrides()

	if err := s.sessions.UpdateSchedule(ctx, id, session.Slots, session.SlotTeachers, session.SlotRooms); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	s.cache.InvalidateRosters(ctx)

	conflicts, err := s.conflicts.Detect(ctx, id, session.Slots, session.Teacher)
	if err != nil {
		// Advisory only. The schedule write already succeeded.
		s.logger.Warn("conflict detection failed after schedule update", zap.String("session_id", id), zap.Error(err))
		conflicts = nil
	}
	s.metrics.ObserveConflictCheck(len(conflicts))

	return &models.ScheduleResult{Session: session, Conflicts: conflicts}, nil
}

// ToggleSlot flips a single grid cell on the session's schedule.
func (s *SessionService) ToggleSlot(ctx context.Context, id, day, periodID string) (*models.ScheduleResult, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, appErrors.Clone(appErrors.ErrSessionUnavailable, "")
	}
	if !models.IsWeekday(day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown weekday")
	}

	session.ToggleSlot(day, periodID)
	req := models.UpdateScheduleRequest{
		Slots:        session.Slots,
		SlotTeachers: session.SlotTeachers,
		SlotRooms:    session.SlotRooms,
	}
	return s.UpdateSchedule(ctx, id, req)
}

// UpdateStaffing changes the default teacher, room and note.
func (s *SessionService) UpdateStaffing(ctx context.Context, id string, req models.UpdateStaffingRequest) (*models.ClassSession, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid staffing payload")
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, appErrors.Clone(appErrors.ErrSessionUnavailable, "")
	}

	if err := s.sessions.UpdateStaffing(ctx, id, req.Teacher, req.Room, req.Note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update staffing")
	}
	session.Teacher = req.Teacher
	session.Room = req.Room
	session.Note = req.Note
	s.cache.InvalidateRosters(ctx)
	return session, nil
}

// Rename changes the class name and fans the new name out to every
// membership record referencing the old one. The session row is
// renamed first; membership rewrites are best effort, with failures
// reported and retried in the background. The fan-out batch is every
// membership whose stored class name disagrees with the target, so
// re-running the rename with the same name sweeps up records an
// interrupted fan-out left behind, and reports zero writes once all
// records agree.
func (s *SessionService) Rename(ctx context.Context, id string, req models.RenameSessionRequest) (*models.RenameResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rename payload")
	}

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, appErrors.Clone(appErrors.ErrSessionUnavailable, "")
	}

	oldName := session.ClassName
	if oldName != req.NewClassName {
		exists, err := s.sessions.ExistsName(ctx, session.Subject, req.NewClassName, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateName, "")
		}
	}

	ids, err := s.memberships.ListIDsOutOfSync(ctx, id, req.NewClassName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}

	if oldName != req.NewClassName {
		if err := s.sessions.Rename(ctx, id, req.NewClassName); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename session")
		}
		session.ClassName = req.NewClassName
	} else if len(ids) == 0 {
		// Session and memberships already agree, nothing to write.
		return &models.RenameResult{Session: session}, nil
	}

	started := s.now()
	report := fanOut(ctx, ids, s.concurrency, func(ctx context.Context, enrollmentID string) error {
		return s.memberships.UpdateClassName(ctx, enrollmentID, req.NewClassName)
	})
	s.metrics.ObserveFanOut(report.Updated, report.Failed, s.now().Sub(started))
	s.cache.InvalidateRosters(ctx)

	for _, failedID := range report.FailedIDs {
		job := jobs.Job{
			ID:      fmt.Sprintf("rename-%s-%s", id, failedID),
			Type:    "rename_membership",
			Payload: renameJobPayload{EnrollmentID: failedID, NewClassName: req.NewClassName},
		}
		if err := s.retry.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue rename retry", zap.String("enrollment_id", failedID), zap.Error(err))
		}
	}

	if report.Failed > 0 {
		s.logger.Warn("rename fan-out incomplete",
			zap.String("session_id", id),
			zap.String("old_name", oldName),
			zap.String("new_name", req.NewClassName),
			zap.Int("updated", report.Updated),
			zap.Int("failed", report.Failed))
	} else {
		s.logger.Info("session renamed",
			zap.String("session_id", id),
			zap.String("old_name", oldName),
			zap.String("new_name", req.NewClassName),
			zap.Int("updated", report.Updated))
	}
	return &models.RenameResult{Session: session, FanOut: report}, nil
}

func (s *SessionService) handleRenameRetry(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(renameJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	// The rewrite is idempotent, replaying an already-applied job is
	// harmless.
	if err := s.memberships.UpdateClassName(ctx, payload.EnrollmentID, payload.NewClassName); err != nil {
		return err
	}
	s.cache.InvalidateRosters(ctx)
	return nil
}

// Deactivate soft-deletes a session. A session with current members is
// refused unless cascade is set, in which case every current
// membership is closed as of today first.
func (s *SessionService) Deactivate(ctx context.Context, id string, cascade bool) (*models.FanOutReport, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return &models.FanOutReport{}, nil
	}

	current, err := s.memberships.List(ctx, models.EnrollmentFilter{
		Subject:     session.Subject,
		ClassName:   session.ClassName,
		CurrentOnly: true,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}

	var report models.FanOutReport
	if len(current) > 0 {
		if !cascade {
			return nil, appErrors.Clone(appErrors.ErrHasActiveMembers, "")
		}
		today := models.DateOnly(s.now())
		ids := make([]string, len(current))
		for i := range current {
			ids[i] = current[i].ID
		}
		report = fanOut(ctx, ids, s.concurrency, func(ctx context.Context, enrollmentID string) error {
			_, err := s.memberships.Close(ctx, enrollmentID, today, nil)
			return err
		})
		if report.Failed > 0 {
			return &report, appErrors.Clone(appErrors.ErrPartialFailure, "some memberships could not be closed")
		}
	}

	if err := s.sessions.Deactivate(ctx, id); err != nil {
		return &report, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate session")
	}
	s.cache.InvalidateRosters(ctx)
	s.logger.Info("session deactivated",
		zap.String("session_id", id),
		zap.Int("closed_memberships", report.Updated))
	return &report, nil
}

// CheckConflicts runs advisory conflict detection for a tentative
// schedule without writing anything.
func (s *SessionService) CheckConflicts(ctx context.Context, req models.ConflictCheckRequest) ([]models.SlotConflict, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	conflicts, err := s.conflicts.Detect(ctx, req.SessionID, req.Slots, req.Teacher)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveConflictCheck(len(conflicts))
	return conflicts, nil
}

// normalizeSlots canonicalises period ids, drops malformed and
// duplicate cells, and sorts the result into grid order.
func normalizeSlots(slots []models.Slot) models.SlotList {
	out := make(models.SlotList, 0, len(slots))
	for _, slot := range slots {
		n := slot.Normalize()
		if !models.IsWeekday(n.Day) || n.PeriodID == "" {
			continue
		}
		if out.Contains(n) {
			continue
		}
		out = append(out, n)
	}
	models.SortSlots(out)
	return out
}
