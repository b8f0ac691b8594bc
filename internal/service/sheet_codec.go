package service

import (
	"context"
	"strings"
	"time"

	"github.com/edufam/gradebook-api/internal/models"
)

// normalizeAssessmentType maps the scope's exam type onto the lowercase
// assessment_type stored with competency rows.
func normalizeAssessmentType(examType string) string {
	return strings.ToLower(strings.TrimSpace(examType))
}

type gradeStore interface {
	ListByScope(ctx context.Context, scope models.Scope, filter models.GradeFilter) ([]models.GradeRow, error)
	BulkUpsert(ctx context.Context, rows []models.GradeRow) error
	UpdateStatus(ctx context.Context, scope models.Scope, from, to models.GradeStatus, actorID string, notes *string) (int64, error)
}

type strandStore interface {
	ListByScope(ctx context.Context, scope models.Scope, filter models.StrandFilter) ([]models.StrandAssessmentRow, error)
	BulkUpsert(ctx context.Context, rows []models.StrandAssessmentRow) error
	UpdateStatus(ctx context.Context, scope models.Scope, from, to models.GradeStatus) (int64, error)
}

// sheetCodec translates between staged grade cells and the storage shape of
// one curriculum. All three curricula share the batch-in, batch-out workflow;
// only the cell encoding differs, so the capture service is written once
// against this interface.
type sheetCodec interface {
	Curriculum() models.Curriculum
	// Usable reports whether the cell carries anything worth persisting for
	// this curriculum. Unusable cells are skipped silently, never rejected.
	Usable(cell models.GradeCell) bool
	// Load reads the rows visible to the actor and decodes them into a batch
	// plus the sheet status under the first-found convention.
	Load(ctx context.Context, scope models.Scope, actor models.Actor) (models.GradeBatch, models.SheetStatus, error)
	// Flush encodes the usable cells of the batch and writes them with the
	// given status, returning the number of rows written.
	Flush(ctx context.Context, scope models.Scope, actor models.Actor, batch models.GradeBatch, status models.GradeStatus) (int, error)
}

// codecFor selects the codec for a curriculum. An unknown curriculum is a
// programming error here: classification rejects it long before this point.
func codecFor(curriculum models.Curriculum, grades gradeStore, strands strandStore, maxScore float64) sheetCodec {
	switch curriculum {
	case models.CurriculumCompetency:
		return &competencyCodec{strands: strands}
	case models.CurriculumCertificate:
		return &certificateCodec{grades: grades}
	default:
		return &standardCodec{grades: grades, maxScore: maxScore}
	}
}

// gradeRowFilter builds the visibility filter for numeric-grade curricula:
// teachers see only their own rows, administrative roles see everything.
func gradeRowFilter(actor models.Actor) models.GradeFilter {
	if actor.Role == models.RoleTeacher {
		return models.GradeFilter{SubmittedBy: actor.UserID}
	}
	return models.GradeFilter{}
}

// standardCodec handles traditional numeric grading: one score per cell,
// percentage and letter derived on write.
type standardCodec struct {
	grades   gradeStore
	maxScore float64
}

func (c *standardCodec) Curriculum() models.Curriculum { return models.CurriculumStandard }

func (c *standardCodec) Usable(cell models.GradeCell) bool {
	return cell.Score != nil
}

func (c *standardCodec) Load(ctx context.Context, scope models.Scope, actor models.Actor) (models.GradeBatch, models.SheetStatus, error) {
	rows, err := c.grades.ListByScope(ctx, scope, gradeRowFilter(actor))
	if err != nil {
		return nil, models.SheetStatus{}, err
	}
	batch := make(models.GradeBatch)
	var status models.SheetStatus
	for i, row := range rows {
		if i == 0 {
			status = models.SheetStatus{Status: row.Status, SubmittedBy: row.SubmittedBy}
		}
		cell := models.GradeCell{
			Score:       row.Score,
			Percentage:  row.Percentage,
			LetterGrade: row.LetterGrade,
		}
		if row.Comments != nil {
			cell.TeacherRemarks = *row.Comments
		}
		batch.Put(row.StudentID, row.SubjectID, cell)
	}
	return batch, status, nil
}

func (c *standardCodec) Flush(ctx context.Context, scope models.Scope, actor models.Actor, batch models.GradeBatch, status models.GradeStatus) (int, error) {
	maxScore := c.maxScore
	if maxScore <= 0 {
		maxScore = 100
	}
	now := time.Now().UTC()
	var rows []models.GradeRow
	for studentID, subjects := range batch {
		for subjectID, cell := range subjects {
			if !c.Usable(cell) {
				continue
			}
			pct := *cell.Score / maxScore * 100
			letter := models.LetterFor(models.StandardBoundaries, pct)
			row := models.GradeRow{
				SchoolID:       scope.SchoolID,
				StudentID:      studentID,
				SubjectID:      subjectID,
				ClassID:        scope.ClassID,
				Term:           scope.Term,
				ExamType:       scope.ExamType,
				CurriculumType: models.CurriculumStandard,
				Score:          cell.Score,
				MaxScore:       maxScore,
				Percentage:     &pct,
				LetterGrade:    &letter,
				Status:         status,
				SubmittedBy:    actor.UserID,
				SubmittedAt:    now,
			}
			if cell.TeacherRemarks != "" {
				remarks := cell.TeacherRemarks
				row.Comments = &remarks
			}
			rows = append(rows, row)
		}
	}
	if err := c.grades.BulkUpsert(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// certificateCodec handles the coursework/exam split. The combined percentage
// is the mean of whichever components are present, so a half-entered cell
// still produces a provisional letter.
type certificateCodec struct {
	grades gradeStore
}

func (c *certificateCodec) Curriculum() models.Curriculum { return models.CurriculumCertificate }

func (c *certificateCodec) Usable(cell models.GradeCell) bool {
	return cell.CourseworkScore != nil || cell.ExamScore != nil
}

func (c *certificateCodec) Load(ctx context.Context, scope models.Scope, actor models.Actor) (models.GradeBatch, models.SheetStatus, error) {
	rows, err := c.grades.ListByScope(ctx, scope, gradeRowFilter(actor))
	if err != nil {
		return nil, models.SheetStatus{}, err
	}
	batch := make(models.GradeBatch)
	var status models.SheetStatus
	for i, row := range rows {
		if i == 0 {
			status = models.SheetStatus{Status: row.Status, SubmittedBy: row.SubmittedBy}
		}
		cell := models.GradeCell{
			CourseworkScore: row.CourseworkScore,
			ExamScore:       row.ExamScore,
			Percentage:      row.Percentage,
			LetterGrade:     row.LetterGrade,
		}
		if row.Comments != nil {
			cell.TeacherRemarks = *row.Comments
		}
		batch.Put(row.StudentID, row.SubjectID, cell)
	}
	return batch, status, nil
}

func (c *certificateCodec) Flush(ctx context.Context, scope models.Scope, actor models.Actor, batch models.GradeBatch, status models.GradeStatus) (int, error) {
	now := time.Now().UTC()
	var rows []models.GradeRow
	for studentID, subjects := range batch {
		for subjectID, cell := range subjects {
			if !c.Usable(cell) {
				continue
			}
			var sum float64
			var parts int
			if cell.CourseworkScore != nil {
				sum += *cell.CourseworkScore
				parts++
			}
			if cell.ExamScore != nil {
				sum += *cell.ExamScore
				parts++
			}
			pct := sum / float64(parts)
			letter := models.LetterFor(models.CertificateBoundaries, pct)
			row := models.GradeRow{
				SchoolID:        scope.SchoolID,
				StudentID:       studentID,
				SubjectID:       subjectID,
				ClassID:         scope.ClassID,
				Term:            scope.Term,
				ExamType:        scope.ExamType,
				CurriculumType:  models.CurriculumCertificate,
				CourseworkScore: cell.CourseworkScore,
				ExamScore:       cell.ExamScore,
				MaxScore:        100,
				Percentage:      &pct,
				LetterGrade:     &letter,
				Status:          status,
				SubmittedBy:     actor.UserID,
				SubmittedAt:     now,
			}
			if cell.TeacherRemarks != "" {
				remarks := cell.TeacherRemarks
				row.Comments = &remarks
			}
			rows = append(rows, row)
		}
	}
	if err := c.grades.BulkUpsert(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// competencyCodec handles strand-based assessment: one cell fans out into a
// row per assessed strand, and loading folds the rows back into a cell.
type competencyCodec struct {
	strands strandStore
}

func (c *competencyCodec) Curriculum() models.Curriculum { return models.CurriculumCompetency }

func (c *competencyCodec) Usable(cell models.GradeCell) bool {
	for _, level := range cell.StrandScores {
		if level.Valid() {
			return true
		}
	}
	return false
}

func (c *competencyCodec) Load(ctx context.Context, scope models.Scope, actor models.Actor) (models.GradeBatch, models.SheetStatus, error) {
	filter := models.StrandFilter{}
	if actor.Role == models.RoleTeacher {
		filter.TeacherID = actor.UserID
	}
	rows, err := c.strands.ListByScope(ctx, scope, filter)
	if err != nil {
		return nil, models.SheetStatus{}, err
	}
	batch := make(models.GradeBatch)
	var status models.SheetStatus
	for i, row := range rows {
		if i == 0 {
			status = models.SheetStatus{Status: row.Status, SubmittedBy: row.TeacherID}
		}
		cell, _ := batch.Cell(row.StudentID, row.SubjectID)
		if cell.StrandScores == nil {
			cell.StrandScores = make(map[string]models.PerformanceLevel)
		}
		cell.StrandScores[row.StrandName] = row.PerformanceLevel
		if row.TeacherRemarks != "" {
			cell.TeacherRemarks = row.TeacherRemarks
		}
		batch.Put(row.StudentID, row.SubjectID, cell)
	}
	return batch, status, nil
}

func (c *competencyCodec) Flush(ctx context.Context, scope models.Scope, actor models.Actor, batch models.GradeBatch, status models.GradeStatus) (int, error) {
	now := time.Now().UTC()
	var submittedAt *time.Time
	if status != models.StatusDraft {
		submittedAt = &now
	}
	var rows []models.StrandAssessmentRow
	for studentID, subjects := range batch {
		for subjectID, cell := range subjects {
			for strand, level := range cell.StrandScores {
				if !level.Valid() {
					continue
				}
				rows = append(rows, models.StrandAssessmentRow{
					SchoolID:         scope.SchoolID,
					StudentID:        studentID,
					SubjectID:        subjectID,
					ClassID:          scope.ClassID,
					TeacherID:        actor.UserID,
					StrandName:       strand,
					PerformanceLevel: level,
					AssessmentType:   normalizeAssessmentType(scope.ExamType),
					Term:             scope.Term,
					TeacherRemarks:   cell.TeacherRemarks,
					AssessmentDate:   now.Format("2006-01-02"),
					Status:           status,
					SubmittedAt:      submittedAt,
				})
			}
		}
	}
	if err := c.strands.BulkUpsert(ctx, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
