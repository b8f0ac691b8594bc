package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edufam/gradebook-api/internal/models"
)

// SubjectRepository resolves the subject columns of a grading sheet.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new subject repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByClass returns every active subject configured for a class, for
// principal-level actors who see the full sheet.
func (r *SubjectRepository) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Subject, error) {
	const query = `SELECT s.id, s.school_id, s.name, s.code, s.active, s.created_at, s.updated_at
        FROM subjects s
        JOIN class_subjects cs ON cs.subject_id = s.id
        WHERE cs.school_id = $1 AND cs.class_id = $2 AND s.active = TRUE
        ORDER BY s.name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, schoolID, classID); err != nil {
		return nil, fmt.Errorf("list subjects by class: %w", err)
	}
	return subjects, nil
}

// ListByTeacher narrows the class subjects to those the teacher is assigned
// to teach. DISTINCT guards against duplicate assignment rows.
func (r *SubjectRepository) ListByTeacher(ctx context.Context, schoolID, classID, teacherID string) ([]models.Subject, error) {
	const query = `SELECT DISTINCT s.id, s.school_id, s.name, s.code, s.active, s.created_at, s.updated_at
        FROM subjects s
        JOIN class_subjects cs ON cs.subject_id = s.id
        JOIN subject_teacher_assignments sta ON sta.subject_id = s.id AND sta.class_id = cs.class_id
        WHERE cs.school_id = $1 AND cs.class_id = $2 AND sta.teacher_id = $3 AND s.active = TRUE
        ORDER BY s.name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, schoolID, classID, teacherID); err != nil {
		return nil, fmt.Errorf("list subjects by teacher: %w", err)
	}
	return subjects, nil
}
