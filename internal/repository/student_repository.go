package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edufam/gradebook-api/internal/models"
)

// StudentRepository provides read access to class rosters.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository creates a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListActiveByClass returns the active roster of a class ordered by name.
// An empty roster is a valid result, not an error.
func (r *StudentRepository) ListActiveByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	const query = `SELECT id, school_id, class_id, name, admission_number, roll_number, active, created_at, updated_at
        FROM students
        WHERE school_id = $1 AND class_id = $2 AND active = TRUE
        ORDER BY name ASC`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, schoolID, classID); err != nil {
		return nil, fmt.Errorf("list students by class: %w", err)
	}
	return students, nil
}
