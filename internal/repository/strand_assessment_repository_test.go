package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edufam/gradebook-api/internal/models"
)

func newStrandMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func strandColumns() []string {
	return []string{"id", "school_id", "student_id", "subject_id", "class_id", "teacher_id", "strand_name",
		"performance_level", "assessment_type", "term", "teacher_remarks", "assessment_date",
		"status", "submitted_at", "created_at", "updated_at"}
}

func TestStrandAssessmentRepositoryListByScope(t *testing.T) {
	db, mock, cleanup := newStrandMock(t)
	defer cleanup()
	repo := NewStrandAssessmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(strandColumns()).
		AddRow("sa-1", "sch-1", "stu-1", "sub-1", "cls-1", "tch-1", "Listening and Speaking",
			"PR", "midterm", "Term 1", "", "2026-03-10", "draft", nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM strand_assessments").
		WithArgs("sch-1", "cls-1", "Term 1", "Midterm", "tch-1").
		WillReturnRows(rows)

	scope := models.Scope{SchoolID: "sch-1", ClassID: "cls-1", Term: "Term 1", ExamType: "Midterm"}
	result, err := repo.ListByScope(context.Background(), scope, models.StrandFilter{TeacherID: "tch-1"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, models.LevelProficient, result[0].PerformanceLevel)
	assert.Equal(t, "Listening and Speaking", result[0].StrandName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStrandAssessmentRepositoryBulkUpsert(t *testing.T) {
	db, mock, cleanup := newStrandMock(t)
	defer cleanup()
	repo := NewStrandAssessmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO strand_assessments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows := []models.StrandAssessmentRow{{
		SchoolID: "sch-1", StudentID: "stu-1", SubjectID: "sub-1", ClassID: "cls-1", TeacherID: "tch-1",
		StrandName: "Number Work", PerformanceLevel: models.LevelExceeding, AssessmentType: "midterm",
		Term: "Term 1", AssessmentDate: "2026-03-10", Status: models.StatusDraft,
	}}
	err := repo.BulkUpsert(context.Background(), rows)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStrandAssessmentRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newStrandMock(t)
	defer cleanup()
	repo := NewStrandAssessmentRepository(db)

	mock.ExpectExec("UPDATE strand_assessments SET status").
		WithArgs("sch-1", "cls-1", "Term 1", "midterm", models.StatusApproved, sqlmock.AnyArg(), models.StatusSubmitted).
		WillReturnResult(sqlmock.NewResult(0, 40))

	scope := models.Scope{SchoolID: "sch-1", ClassID: "cls-1", Term: "Term 1", ExamType: "midterm"}
	affected, err := repo.UpdateStatus(context.Background(), scope, models.StatusSubmitted, models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, int64(40), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
