package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edufam/gradebook-api/internal/models"
)

// ClassRepository provides read access to class records.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class scoped to the school. sql.ErrNoRows passes through
// untouched so callers can distinguish a missing class from a query failure.
func (r *ClassRepository) FindByID(ctx context.Context, schoolID, classID string) (*models.Class, error) {
	const query = `SELECT id, school_id, name, curriculum_type, created_at, updated_at
        FROM classes WHERE id = $1 AND school_id = $2 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, classID, schoolID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class by id: %w", err)
	}
	return &class, nil
}
