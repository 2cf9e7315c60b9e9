package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/hakplan/roster-api/internal/models"
	appErrors "github.com/hakplan/roster-api/pkg/errors"
)

type conflictCatalog interface {
	ListActive(ctx context.Context, subject models.Subject) ([]models.ClassSession, error)
}

// ConflictService finds teacher overlaps across the active session
// catalog. Results are advisory: the service never blocks a write, the
// caller decides whether to proceed after confirmation.
type ConflictService struct {
	sessions conflictCatalog
	logger   *zap.Logger
}

// NewConflictService constructs the detector.
func NewConflictService(sessions conflictCatalog, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{sessions: sessions, logger: logger}
}

// Detect reports every other active session occupying one of the
// candidate slots with the same effective teacher. The session being
// edited is excluded so it never conflicts with itself, and an empty
// target teacher yields no conflicts at all.
func (s *ConflictService) Detect(ctx context.Context, excludeSessionID string, candidate []models.Slot, teacher string) ([]models.SlotConflict, error) {
	if teacher == "" || len(candidate) == 0 {
		return nil, nil
	}

	sessions, err := s.sessions.ListActive(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session catalog")
	}

	// Index every occupied cell by slot key and resolved teacher. Slot
	// overrides participate, so a per-slot substitute teacher conflicts
	// under their own name, not the session default's.
	index := make(map[string][]models.SlotConflict)
	for i := range sessions {
		sess := &sessions[i]
		if sess.ID == excludeSessionID {
			continue
		}
		for _, slot := range sess.Slots {
			resolved := sess.ResolveTeacher(slot)
			if resolved == "" {
				continue
			}
			key := slot.Key() + "|" + resolved
			index[key] = append(index[key], models.SlotConflict{
				Slot:      slot.Normalize(),
				ClassName: sess.ClassName,
				Teacher:   resolved,
			})
		}
	}

	var conflicts []models.SlotConflict
	for _, slot := range candidate {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict detection cancelled")
		}
		conflicts = append(conflicts, index[slot.Normalize().Key()+"|"+teacher]...)
	}
	return conflicts, nil
}
