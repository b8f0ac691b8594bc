package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edufam/gradebook-api/internal/models"
)

// GradeRepository persists grade rows for the standard and certificate
// curricula.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository creates a new grade repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// ListByScope returns grade rows for a grading scope.
func (r *GradeRepository) ListByScope(ctx context.Context, scope models.Scope, filter models.GradeFilter) ([]models.GradeRow, error) {
	query := `SELECT id, school_id, student_id, subject_id, class_id, term, exam_type, curriculum_type,
            score, max_score, percentage, letter_grade, coursework_score, exam_score, comments,
            status, submitted_by, submitted_at, approved_by, approved_at, released_at, principal_notes,
            created_at, updated_at
        FROM grades
        WHERE school_id = $1 AND class_id = $2 AND term = $3 AND exam_type = $4`
	args := []interface{}{scope.SchoolID, scope.ClassID, scope.Term, scope.ExamType}
	if filter.SubmittedBy != "" {
		query += fmt.Sprintf(" AND submitted_by = $%d", len(args)+1)
		args = append(args, filter.SubmittedBy)
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
	var rows []models.GradeRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list grades by scope: %w", err)
	}
	return rows, nil
}

// BulkUpsert writes grade rows in one transaction. Conflicts resolve on the
// natural identity tuple so re-saving the same sheet updates in place.
func (r *GradeRepository) BulkUpsert(ctx context.Context, rows []models.GradeRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin grade upsert: %w", err)
	}
	const query = `INSERT INTO grades (id, school_id, student_id, subject_id, class_id, term, exam_type, curriculum_type,
            score, max_score, percentage, letter_grade, coursework_score, exam_score, comments,
            status, submitted_by, submitted_at, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :subject_id, :class_id, :term, :exam_type, :curriculum_type,
            :score, :max_score, :percentage, :letter_grade, :coursework_score, :exam_score, :comments,
            :status, :submitted_by, :submitted_at, :created_at, :updated_at)
        ON CONFLICT (school_id, student_id, subject_id, class_id, term, exam_type, submitted_by)
        DO UPDATE SET score = EXCLUDED.score, max_score = EXCLUDED.max_score,
            percentage = EXCLUDED.percentage, letter_grade = EXCLUDED.letter_grade,
            coursework_score = EXCLUDED.coursework_score, exam_score = EXCLUDED.exam_score,
            comments = EXCLUDED.comments, status = EXCLUDED.status,
            submitted_at = EXCLUDED.submitted_at, updated_at = EXCLUDED.updated_at`
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
			return fmt.Errorf("bulk upsert grade: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grades: %w", err)
	}
	return nil
}

// UpdateStatus moves every row in the scope from one status to another. Only
// rows currently in the expected status are touched; the affected count lets
// the service detect a no-op transition.
func (r *GradeRepository) UpdateStatus(ctx context.Context, scope models.Scope, from, to models.GradeStatus, actorID string, notes *string) (int64, error) {
	query := `UPDATE grades SET status = $5, updated_at = $6`
	now := time.Now().UTC()
	args := []interface{}{scope.SchoolID, scope.ClassID, scope.Term, scope.ExamType, to, now}
	switch to {
	case models.StatusApproved:
		query += fmt.Sprintf(", approved_by = $%d, approved_at = $%d", len(args)+1, len(args)+2)
		args = append(args, actorID, now)
	case models.StatusReleased:
		query += fmt.Sprintf(", released_at = $%d", len(args)+1)
		args = append(args, now)
	case models.StatusRejected:
		query += fmt.Sprintf(", approved_by = $%d", len(args)+1)
		args = append(args, actorID)
	}
	if notes != nil {
		query += fmt.Sprintf(", principal_notes = $%d", len(args)+1)
		args = append(args, *notes)
	}
	query += fmt.Sprintf(" WHERE school_id = $1 AND class_id = $2 AND term = $3 AND exam_type = $4 AND status = $%d", len(args)+1)
	args = append(args, from)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update grade status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("grade status rows affected: %w", err)
	}
	return affected, nil
}
