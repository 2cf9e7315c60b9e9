package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/hakplan/roster-api/internal/models"
	"github.com/hakplan/roster-api/internal/repository"
	appErrors "github.com/hakplan/roster-api/pkg/errors"
)

type rosterEnrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
}

type rosterStudentStore interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Student, error)
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RosterService answers "who is in this class" by scanning membership
// records and joining student profiles. Membership and counts always
// come from a fresh scan; only the profile join may be served from
// cache.
type RosterService struct {
	enrollments rosterEnrollmentStore
	sessions    enrollmentSessionStore
	students    rosterStudentStore
	cache       rosterCache
	metrics     *MetricsService
	logger      *zap.Logger

	cacheEnabled bool
	cacheTTL     time.Duration
	now          func() time.Time
}

// RosterServiceConfig tunes the profile cache.
type RosterServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewRosterService constructs the roster aggregation service.
func NewRosterService(enrollments rosterEnrollmentStore, sessions enrollmentSessionStore, students rosterStudentStore, cache rosterCache, metrics *MetricsService, logger *zap.Logger, cfg RosterServiceConfig) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &RosterService{
		enrollments:  enrollments,
		sessions:     sessions,
		students:     students,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		cacheEnabled: cfg.CacheEnabled,
		cacheTTL:     cfg.CacheTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// GetRoster aggregates the current members of one class. Each student
// appears once, memberships whose student record has disappeared are
// dropped, and the count tallies only members attending as of today;
// future-dated members stay listed as scheduled without inflating it.
// Names sort by Korean collation. Attendance days surface only when
// they are a genuine exception to the class schedule.
func (s *RosterService) GetRoster(ctx context.Context, subject models.Subject, className string) (*models.Roster, error) {
	if !subject.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject")
	}
	if className == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "class name required")
	}

	enrollments, err := s.enrollments.List(ctx, models.EnrollmentFilter{
		Subject:     subject,
		ClassName:   className,
		CurrentOnly: true,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}

	// One row per student. Duplicate current memberships should not
	// exist, but a roster must still render sanely if they do: the
	// earliest membership wins.
	byStudent := make(map[string]*models.Enrollment, len(enrollments))
	ids := make([]string, 0, len(enrollments))
	for i := range enrollments {
		e := &enrollments[i]
		if prev, ok := byStudent[e.StudentID]; ok {
			if e.StartDate.Before(prev.StartDate) {
				byStudent[e.StudentID] = e
			}
			continue
		}
		byStudent[e.StudentID] = e
		ids = append(ids, e.StudentID)
	}

	profiles, err := s.loadProfiles(ctx, subject, className, ids)
	if err != nil {
		return nil, err
	}

	var classDays []string
	if session, err := s.sessions.FindActiveByName(ctx, subject, className); err == nil {
		classDays = session.MeetingDays()
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
	}

	today := models.DateOnly(s.now())
	members := make([]models.RosterMember, 0, len(ids))
	attending := 0
	for _, studentID := range ids {
		student, ok := profiles[studentID]
		if !ok {
			// Orphaned membership, the student record is gone.
			continue
		}
		e := byStudent[studentID]
		member := models.RosterMember{
			StudentID:    studentID,
			Name:         student.Name,
			School:       student.School,
			Grade:        student.Grade,
			EnrollmentID: e.ID,
			Status:       e.StatusOn(today),
			Assistant:    e.Assistant,
			Highlighted:  e.Highlighted,
		}
		if member.Status == models.EnrollmentStatusActive {
			attending++
		}
		if days, exception := e.AttendanceException(classDays); exception {
			member.AttendanceDays = days
		}
		members = append(members, member)
	}

	c := collate.New(language.Korean)
	sort.SliceStable(members, func(i, j int) bool {
		return c.CompareString(members[i].Name, members[j].Name) < 0
	})

	return &models.Roster{
		Subject:   subject,
		ClassName: className,
		Members:   members,
		Count:     attending,
	}, nil
}

// ListRosters rolls current membership records up into a class
// catalog, optionally scoped to one subject. Classes come from the
// memberships themselves, so a class whose members are all
// future-dated still appears with a count of zero.
func (s *RosterService) ListRosters(ctx context.Context, subject models.Subject) ([]models.RosterSummary, error) {
	if subject != "" && !subject.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject")
	}

	enrollments, err := s.enrollments.List(ctx, models.EnrollmentFilter{
		Subject:     subject,
		CurrentOnly: true,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}

	type classKey struct {
		subject   models.Subject
		className string
	}
	byClass := make(map[classKey]map[string]*models.Enrollment)
	for i := range enrollments {
		e := &enrollments[i]
		key := classKey{e.Subject, e.ClassName}
		byStudent := byClass[key]
		if byStudent == nil {
			byStudent = make(map[string]*models.Enrollment)
			byClass[key] = byStudent
		}
		if prev, ok := byStudent[e.StudentID]; !ok || e.StartDate.Before(prev.StartDate) {
			byStudent[e.StudentID] = e
		}
	}

	today := models.DateOnly(s.now())
	summaries := make([]models.RosterSummary, 0, len(byClass))
	for key, byStudent := range byClass {
		count := 0
		for _, e := range byStudent {
			if e.StatusOn(today) == models.EnrollmentStatusActive {
				count++
			}
		}
		summaries = append(summaries, models.RosterSummary{
			Subject:   key.subject,
			ClassName: key.className,
			Count:     count,
		})
	}

	c := collate.New(language.Korean)
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Subject != summaries[j].Subject {
			return summaries[i].Subject < summaries[j].Subject
		}
		return c.CompareString(summaries[i].ClassName, summaries[j].ClassName) < 0
	})
	return summaries, nil
}

// loadProfiles joins student records for the roster, via cache when
// enabled. Cache failures fall through to the database.
func (s *RosterService) loadProfiles(ctx context.Context, subject models.Subject, className string, ids []string) (map[string]models.Student, error) {
	if len(ids) == 0 {
		return map[string]models.Student{}, nil
	}

	key := repository.RosterCacheKey(subject, className)
	if s.cacheEnabled {
		cached := make(map[string]models.Student)
		if err := s.cache.Get(ctx, key, &cached); err == nil && coversAll(cached, ids) {
			s.metrics.ObserveRosterCache(true)
			return cached, nil
		}
		s.metrics.ObserveRosterCache(false)
	}

	profiles, err := s.students.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch students")
	}

	if s.cacheEnabled {
		if err := s.cache.Set(ctx, key, profiles, s.cacheTTL); err != nil {
			s.logger.Debug("roster profile cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return profiles, nil
}

// coversAll reports whether the cached join still names every current
// member. A stale entry missing a newly assigned student forces a
// database read.
func coversAll(profiles map[string]models.Student, ids []string) bool {
	for _, id := range ids {
		if _, ok := profiles[id]; !ok {
			return false
		}
	}
	return true
}

// StudentSchedule lists a student's memberships with derived status
// and, for classes still on the catalog, the session's meeting
// details.
func (s *RosterService) StudentSchedule(ctx context.Context, studentID string, currentOnly bool) ([]models.StudentScheduleEntry, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}

	enrollments, err := s.enrollments.List(ctx, models.EnrollmentFilter{
		StudentID:   studentID,
		CurrentOnly: currentOnly,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}

	today := models.DateOnly(s.now())
	entries := make([]models.StudentScheduleEntry, 0, len(enrollments))
	for i := range enrollments {
		e := enrollments[i]
		entry := models.StudentScheduleEntry{
			Enrollment: e,
			Status:     e.StatusOn(today),
		}
		session, err := s.sessions.FindActiveByName(ctx, e.Subject, e.ClassName)
		switch {
		case err == nil:
			entry.Session = session
		case errors.Is(err, sql.ErrNoRows):
			// Ended membership in a retired class, still listed.
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch session")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
