package services

import (
	"context"
	"testing"
	"time"

	"journal-workflow-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepository(t *testing.T) (*GormRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return NewGormRepository(db), mock
}

func sampleAggregate() *Aggregate {
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	return &Aggregate{
		Manuscript: &models.Manuscript{
			ID:          "m-1",
			Title:       "Test Paper",
			Abstract:    "Abstract",
			Status:      models.StatusUnderReview,
			SubmitterID: "author-1",
			Version:     3,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Assignments: []*models.ReviewAssignment{{
			ID:           "as-1",
			ManuscriptID: "m-1",
			ReviewerID:   "rev-a",
			AssignedBy:   "editor-1",
			AssignedDate: now,
			DueDate:      now.Add(14 * 24 * time.Hour),
			Status:       models.AssignmentPending,
			UpdatedAt:    now,
		}},
	}
}

func TestGormRepositorySaveBumpsVersion(t *testing.T) {
	repo, mock := newMockRepository(t)
	agg := sampleAggregate()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `manuscripts` SET .* WHERE id = \\? AND version = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `review_assignments`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), agg, 3))
	assert.Equal(t, int64(4), agg.Manuscript.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepositorySaveDetectsStaleVersion(t *testing.T) {
	repo, mock := newMockRepository(t)
	agg := sampleAggregate()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `manuscripts` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), agg, 2)
	assert.ErrorIs(t, err, ErrStaleAggregate)
	assert.Equal(t, int64(3), agg.Manuscript.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepositoryLoadMissingManuscript(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT \\* FROM `manuscripts` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepositoryLoadAggregate(t *testing.T) {
	repo, mock := newMockRepository(t)
	now := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `manuscripts` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "authors", "version"}).
			AddRow("m-1", "Test Paper", "under_review", []byte(`[{"name":"Ada","user_id":"author-1","is_corresponding":true}]`), int64(2)))
	mock.ExpectQuery("SELECT \\* FROM `review_assignments` WHERE manuscript_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "manuscript_id", "reviewer_id", "status", "assigned_date"}).
			AddRow("as-1", "m-1", "rev-a", "accepted", now))
	mock.ExpectQuery("SELECT \\* FROM `editorial_decisions` WHERE manuscript_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("SELECT \\* FROM `manuscript_status_history` WHERE manuscript_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"history_id", "manuscript_id", "new_status"}).
			AddRow("h-1", "m-1", "draft"))

	agg, err := repo.Load(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), agg.Manuscript.Version)
	assert.True(t, agg.Manuscript.IsAuthor("author-1"))
	require.Len(t, agg.Assignments, 1)
	assert.Equal(t, models.AssignmentAccepted, agg.Assignments[0].Status)
	assert.Empty(t, agg.Decisions)
	require.Len(t, agg.History, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepositoryManuscriptIDForAssignment(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery("SELECT manuscript_id FROM `review_assignments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"manuscript_id"}).AddRow("m-1"))
	mock.ExpectQuery("SELECT manuscript_id FROM `review_assignments` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"manuscript_id"}))

	id, err := repo.ManuscriptIDForAssignment(context.Background(), "as-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)

	_, err = repo.ManuscriptIDForAssignment(context.Background(), "as-missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepositoryCreateWritesHistory(t *testing.T) {
	repo, mock := newMockRepository(t)
	agg := sampleAggregate()
	agg.Assignments = nil
	agg.History = []*models.ManuscriptStatusHistory{{
		HistoryID:    "h-1",
		ManuscriptID: "m-1",
		NewStatus:    models.StatusDraft,
		ChangedBy:    "author-1",
	}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `manuscripts`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `manuscript_status_history`").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), agg))
	assert.Equal(t, int64(1), agg.Manuscript.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}
