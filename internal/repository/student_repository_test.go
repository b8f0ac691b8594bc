package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryListActiveByClass(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	now := time.Now()
	adm := "ADM-001"
	rows := sqlmock.NewRows([]string{"id", "school_id", "class_id", "name", "admission_number", "roll_number", "active", "created_at", "updated_at"}).
		AddRow("stu-1", "sch-1", "cls-1", "Amina Odhiambo", adm, nil, true, now, now)
	mock.ExpectQuery("SELECT (.+) FROM students").
		WithArgs("sch-1", "cls-1").
		WillReturnRows(rows)

	students, err := repo.ListActiveByClass(context.Background(), "sch-1", "cls-1")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Amina Odhiambo", students[0].Name)
	require.NotNil(t, students[0].AdmissionNumber)
	assert.Equal(t, adm, *students[0].AdmissionNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListActiveByClassEmpty(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM students").
		WithArgs("sch-1", "cls-empty").
		WillReturnRows(sqlmock.NewRows([]string{"id", "school_id", "class_id", "name", "admission_number", "roll_number", "active", "created_at", "updated_at"}))

	students, err := repo.ListActiveByClass(context.Background(), "sch-1", "cls-empty")
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.NoError(t, mock.ExpectationsWereMet())
}
