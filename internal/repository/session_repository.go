package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hakplan/roster-api/internal/models"
)

// SessionRepository handles persistence of class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, subject, class_name, teacher, slots, slot_teachers, slot_rooms, room, note, active, created_at, updated_at`

// FindByID returns a session by its ID regardless of active state.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE id = $1`, sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActiveByName returns the active session identified by value.
func (r *SessionRepository) FindActiveByName(ctx context.Context, subject models.Subject, className string) (*models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE subject = $1 AND class_name = $2 AND active`, sessionColumns)
	var session models.ClassSession
	if err := r.db.GetContext(ctx, &session, query, subject, className); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListActive returns the active catalog, optionally narrowed to one subject.
func (r *SessionRepository) ListActive(ctx context.Context, subject models.Subject) ([]models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE active`, sessionColumns)
	var args []interface{}
	if subject != "" {
		query += " AND subject = $1"
		args = append(args, subject)
	}
	query += " ORDER BY class_name"
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

// ExistsName checks whether an active session already claims the name
// within the subject, excluding the given session ID when non-empty.
func (r *SessionRepository) ExistsName(ctx context.Context, subject models.Subject, className, excludeID string) (bool, error) {
	query := `SELECT COUNT(*) FROM class_sessions WHERE subject = $1 AND class_name = $2 AND active`
	args := []interface{}{subject, className}
	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", len(args)+1)
		args = append(args, excludeID)
	}
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("check session name: %w", err)
	}
	return count > 0, nil
}

// Create persists a new class session.
func (r *SessionRepository) Create(ctx context.Context, session *models.ClassSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	const query = `INSERT INTO class_sessions (id, subject, class_name, teacher, slots, slot_teachers, slot_rooms, room, note, active, created_at, updated_at)
        VALUES (:id, :subject, :class_name, :teacher, :slots, :slot_teachers, :slot_rooms, :room, :note, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// UpdateSchedule replaces the slot set and override maps.
func (r *SessionRepository) UpdateSchedule(ctx context.Context, id string, slots models.SlotList, slotTeachers, slotRooms models.SlotOverrideMap) error {
	const query = `UPDATE class_sessions SET slots = $2, slot_teachers = $3, slot_rooms = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, slots, slotTeachers, slotRooms, time.Now().UTC()); err != nil {
		return fmt.Errorf("update session schedule: %w", err)
	}
	return nil
}

// UpdateStaffing changes the primary teacher, default room, and note.
func (r *SessionRepository) UpdateStaffing(ctx context.Context, id, teacher, room, note string) error {
	const query = `UPDATE class_sessions SET teacher = $2, room = $3, note = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, teacher, room, note, time.Now().UTC()); err != nil {
		return fmt.Errorf("update session staffing: %w", err)
	}
	return nil
}

// Rename updates the session's class name.
func (r *SessionRepository) Rename(ctx context.Context, id, newClassName string) error {
	const query = `UPDATE class_sessions SET class_name = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, newClassName, time.Now().UTC()); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a session; inactive sessions disappear from
// every catalog query but keep their row for history.
func (r *SessionRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE class_sessions SET active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// Search returns sessions whose class name matches the keyword,
// active ones only.
func (r *SessionRepository) Search(ctx context.Context, subject models.Subject, keyword string) ([]models.ClassSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM class_sessions WHERE active AND class_name ILIKE $1`, sessionColumns)
	args := []interface{}{"%" + strings.TrimSpace(keyword) + "%"}
	if subject != "" {
		query += " AND subject = $2"
		args = append(args, subject)
	}
	query += " ORDER BY class_name"
	var sessions []models.ClassSession
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("search sessions: %w", err)
	}
	return sessions, nil
}
