package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edufam/gradebook-api/internal/models"
)

// StrandAssessmentRepository persists per-strand competency assessments.
type StrandAssessmentRepository struct {
	db *sqlx.DB
}

// NewStrandAssessmentRepository creates a new strand assessment repository.
func NewStrandAssessmentRepository(db *sqlx.DB) *StrandAssessmentRepository {
	return &StrandAssessmentRepository{db: db}
}

// ListByScope returns strand assessments for a grading scope. The scope's
// exam type maps to assessment_type lowercased, matching how rows are written.
func (r *StrandAssessmentRepository) ListByScope(ctx context.Context, scope models.Scope, filter models.StrandFilter) ([]models.StrandAssessmentRow, error) {
	query := `SELECT id, school_id, student_id, subject_id, class_id, teacher_id, strand_name,
            performance_level, assessment_type, term, teacher_remarks, assessment_date,
            status, submitted_at, created_at, updated_at
        FROM strand_assessments
        WHERE school_id = $1 AND class_id = $2 AND term = $3 AND assessment_type = LOWER($4)`
	args := []interface{}{scope.SchoolID, scope.ClassID, scope.Term, scope.ExamType}
	if filter.TeacherID != "" {
		query += fmt.Sprintf(" AND teacher_id = $%d", len(args)+1)
		args = append(args, filter.TeacherID)
	}
	if len(filter.Statuses) > 0 {
		query += " AND status IN ("
		for i, status := range filter.Statuses {
			if i > 0 {
				query += ","
			}
			query += fmt.Sprintf("$%d", len(args)+1)
			args = append(args, status)
		}
		query += ")"
	}
	query += " ORDER BY created_at ASC"
	var rows []models.StrandAssessmentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list strand assessments by scope: %w", err)
	}
	return rows, nil
}

// BulkUpsert writes strand assessments in one transaction. Conflicts resolve
// on the per-strand identity tuple.
func (r *StrandAssessmentRepository) BulkUpsert(ctx context.Context, rows []models.StrandAssessmentRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin strand upsert: %w", err)
	}
	const query = `INSERT INTO strand_assessments (id, school_id, student_id, subject_id, class_id, teacher_id,
            strand_name, performance_level, assessment_type, term, teacher_remarks, assessment_date,
            status, submitted_at, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :subject_id, :class_id, :teacher_id,
            :strand_name, :performance_level, :assessment_type, :term, :teacher_remarks, :assessment_date,
            :status, :submitted_at, :created_at, :updated_at)
        ON CONFLICT (school_id, student_id, subject_id, class_id, term, assessment_type, strand_name, teacher_id)
        DO UPDATE SET performance_level = EXCLUDED.performance_level,
            teacher_remarks = EXCLUDED.teacher_remarks, assessment_date = EXCLUDED.assessment_date,
            status = EXCLUDED.status, submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at`
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		rows[i].UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, query, rows[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert strand assessment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit strand assessments: %w", err)
	}
	return nil
}

// UpdateStatus moves every strand assessment in the scope from one status to
// another and returns the affected row count.
func (r *StrandAssessmentRepository) UpdateStatus(ctx context.Context, scope models.Scope, from, to models.GradeStatus) (int64, error) {
	const query = `UPDATE strand_assessments SET status = $5, updated_at = $6
        WHERE school_id = $1 AND class_id = $2 AND term = $3 AND assessment_type = LOWER($4) AND status = $7`
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, query, scope.SchoolID, scope.ClassID, scope.Term, scope.ExamType, to, now, from)
	if err != nil {
		return 0, fmt.Errorf("update strand assessment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("strand status rows affected: %w", err)
	}
	return affected, nil
}
