package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hakplan/roster-api/internal/models"
)

// ErrDuplicateCurrent is returned when a conditional insert finds an
// existing current membership for the same (student, subject, class).
var ErrDuplicateCurrent = errors.New("current membership already exists")

// EnrollmentRepository handles persistence of membership records.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `id, session_id, student_id, subject, class_name, start_date, end_date, attendance_days, assistant, highlighted, transfer_target, created_at, updated_at`

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// List returns enrollments matching the filter.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE 1=1`, enrollmentColumns)
	var args []interface{}
	if filter.StudentID != "" {
		args = append(args, filter.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if filter.Subject != "" {
		args = append(args, filter.Subject)
		query += fmt.Sprintf(" AND subject = $%d", len(args))
	}
	if filter.ClassName != "" {
		args = append(args, filter.ClassName)
		query += fmt.Sprintf(" AND class_name = $%d", len(args))
	}
	if filter.CurrentOnly {
		query += " AND end_date IS NULL"
	}
	query += " ORDER BY created_at"
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// FindCurrent returns the open membership for the combination, if any.
func (r *EnrollmentRepository) FindCurrent(ctx context.Context, studentID string, subject models.Subject, className string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments WHERE student_id = $1 AND subject = $2 AND class_name = $3 AND end_date IS NULL`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, subject, className); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CreateCurrent inserts a new current membership guarded by a
// conditional insert: no row is written when another current membership
// exists for the same (student, subject, class). Under READ COMMITTED
// the subquery alone cannot stop two exactly simultaneous inserts, so
// the table backs it with a partial unique index on
// (student_id, subject, class_name) WHERE end_date IS NULL; a violation
// surfaces here as a duplicate as well.
func (r *EnrollmentRepository) CreateCurrent(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, session_id, student_id, subject, class_name, start_date, end_date, attendance_days, assistant, highlighted, transfer_target, created_at, updated_at)
        SELECT $1, $2, $3, $4, $5, $6, NULL, $7, $8, $9, NULL, $10, $10
        WHERE NOT EXISTS (
            SELECT 1 FROM enrollments
            WHERE student_id = $3 AND subject = $4 AND class_name = $5 AND end_date IS NULL
        )`
	res, err := r.db.ExecContext(ctx, query,
		enrollment.ID, enrollment.SessionID, enrollment.StudentID, enrollment.Subject,
		enrollment.ClassName, enrollment.StartDate, pq.StringArray(enrollment.AttendanceDays),
		enrollment.Assistant, enrollment.Highlighted, now)
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	if affected == 0 {
		return ErrDuplicateCurrent
	}
	return nil
}

// Close sets the end date and optional transfer target on a current
// membership. Closing an already-closed record is a no-op, reported by
// the boolean result.
func (r *EnrollmentRepository) Close(ctx context.Context, id string, endDate time.Time, transferTarget *string) (bool, error) {
	const query = `UPDATE enrollments SET end_date = $2, transfer_target = $3, updated_at = $4 WHERE id = $1 AND end_date IS NULL`
	res, err := r.db.ExecContext(ctx, query, id, endDate, transferTarget, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("close enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close enrollment: %w", err)
	}
	return affected > 0, nil
}

// Reinstate clears the end date on an ended membership, restoring its
// current status.
func (r *EnrollmentRepository) Reinstate(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE enrollments SET end_date = NULL, transfer_target = NULL, updated_at = $2 WHERE id = $1 AND end_date IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reinstate enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reinstate enrollment: %w", err)
	}
	return affected > 0, nil
}

// UpdateAttendanceDays replaces the per-student attendance-day subset.
// An empty slice clears the exception.
func (r *EnrollmentRepository) UpdateAttendanceDays(ctx context.Context, id string, days []string) error {
	const query = `UPDATE enrollments SET attendance_days = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, pq.StringArray(days), time.Now().UTC()); err != nil {
		return fmt.Errorf("update attendance days: %w", err)
	}
	return nil
}

// UpdateFlags sets the assistant-role and highlight markers.
func (r *EnrollmentRepository) UpdateFlags(ctx context.Context, id string, assistant, highlighted bool) error {
	const query = `UPDATE enrollments SET assistant = $2, highlighted = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, assistant, highlighted, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment flags: %w", err)
	}
	return nil
}

// UpdateClassName rewrites a single membership's class reference. Used
// by the rename fan-out; matching on the record ID keeps it idempotent.
func (r *EnrollmentRepository) UpdateClassName(ctx context.Context, id, newClassName string) error {
	const query = `UPDATE enrollments SET class_name = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, newClassName, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment class name: %w", err)
	}
	return nil
}

// ListIDsOutOfSync returns the IDs of the session's memberships whose
// stored class name does not match the given one, current and
// historical alike. It seeds rename fan-out batches, and because the
// scan keys on the session rather than the old name, a rerun still
// finds records a crashed fan-out left behind.
func (r *EnrollmentRepository) ListIDsOutOfSync(ctx context.Context, sessionID, className string) ([]string, error) {
	const query = `SELECT id FROM enrollments WHERE session_id = $1 AND class_name <> $2`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, sessionID, className); err != nil {
		return nil, fmt.Errorf("list enrollment ids: %w", err)
	}
	return ids, nil
}

// Purge hard-deletes an ended membership. Current memberships are never
// purged; the guard repeats the service-level check.
func (r *EnrollmentRepository) Purge(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM enrollments WHERE id = $1 AND end_date IS NOT NULL`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("purge enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("purge enrollment: %w", err)
	}
	return affected > 0, nil
}
