package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hakplan/roster-api/internal/models"
)

func TestSessionRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO class_sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	session := &models.ClassSession{
		Subject:   models.SubjectMath,
		ClassName: "중2 심화반",
		Teacher:   "김선생",
		Slots:     models.SlotList{{Day: "월", PeriodID: "1"}},
		Active:    true,
	}
	require.NoError(t, repo.Create(context.Background(), session))
	require.NotEmpty(t, session.ID)

	rows := sqlmock.NewRows([]string{"id", "subject", "class_name", "teacher", "slots", "slot_teachers", "slot_rooms", "room", "note", "active", "created_at", "updated_at"}).
		AddRow(session.ID, "math", "중2 심화반", "김선생", []byte(`[{"day":"월","period_id":"1"}]`), []byte(`{}`), []byte(`{}`), "", "", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, subject, class_name")).
		WithArgs(session.ID).
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, "중2 심화반", found.ClassName)
	assert.True(t, found.HasSlot(models.Slot{Day: "월", PeriodID: "1"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryExistsNameExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM class_sessions WHERE subject = \$1 AND class_name = \$2 AND active AND id <> \$3`).
		WithArgs("math", "A반", "sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	exists, err := repo.ExistsName(context.Background(), models.SubjectMath, "A반", "sess-1")
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE class_sessions SET active = FALSE")).
		WithArgs("sess-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "sess-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
