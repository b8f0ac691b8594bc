package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edufam/gradebook-api/internal/models"
	"github.com/edufam/gradebook-api/pkg/config"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
)

type fakeClassRepo struct {
	classes map[string]*models.Class
	err     error
}

func (f *fakeClassRepo) FindByID(ctx context.Context, schoolID, classID string) (*models.Class, error) {
	if f.err != nil {
		return nil, f.err
	}
	class, ok := f.classes[classID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

type fakeStudentRepo struct {
	students []models.Student
	failures int
	calls    int
}

func (f *fakeStudentRepo) ListActiveByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection reset")
	}
	return f.students, nil
}

type fakeSubjectRepo struct {
	byClass   []models.Subject
	byTeacher map[string][]models.Subject
}

func (f *fakeSubjectRepo) ListByClass(ctx context.Context, schoolID, classID string) ([]models.Subject, error) {
	return f.byClass, nil
}

func (f *fakeSubjectRepo) ListByTeacher(ctx context.Context, schoolID, classID, teacherID string) ([]models.Subject, error) {
	return f.byTeacher[teacherID], nil
}

// fakeGradeStore keys rows on the natural identity tuple so repeated flushes
// of the same cell update in place, mirroring the ON CONFLICT behavior.
type fakeGradeStore struct {
	rows    []models.GradeRow
	listErr error
	saveErr error
}

func gradeKey(r models.GradeRow) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s", r.SchoolID, r.StudentID, r.SubjectID, r.ClassID, r.Term, r.ExamType, r.SubmittedBy)
}

func (f *fakeGradeStore) ListByScope(ctx context.Context, scope models.Scope, filter models.GradeFilter) ([]models.GradeRow, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var result []models.GradeRow
	for _, r := range f.rows {
		if r.SchoolID != scope.SchoolID || r.ClassID != scope.ClassID || r.Term != scope.Term || r.ExamType != scope.ExamType {
			continue
		}
		if filter.SubmittedBy != "" && r.SubmittedBy != filter.SubmittedBy {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, s := range filter.Statuses {
				if r.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, r)
	}
	return result, nil
}

func (f *fakeGradeStore) BulkUpsert(ctx context.Context, rows []models.GradeRow) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	for _, row := range rows {
		replaced := false
		for i, existing := range f.rows {
			if gradeKey(existing) == gradeKey(row) {
				f.rows[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			f.rows = append(f.rows, row)
		}
	}
	return nil
}

func (f *fakeGradeStore) UpdateStatus(ctx context.Context, scope models.Scope, from, to models.GradeStatus, actorID string, notes *string) (int64, error) {
	var affected int64
	for i, r := range f.rows {
		if r.SchoolID != scope.SchoolID || r.ClassID != scope.ClassID || r.Term != scope.Term || r.ExamType != scope.ExamType {
			continue
		}
		if r.Status != from {
			continue
		}
		f.rows[i].Status = to
		if notes != nil {
			f.rows[i].PrincipalNotes = notes
		}
		affected++
	}
	return affected, nil
}

type fakeStrandStore struct {
	rows []models.StrandAssessmentRow
}

func strandKey(r models.StrandAssessmentRow) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s", r.SchoolID, r.StudentID, r.SubjectID, r.ClassID, r.Term, r.AssessmentType, r.StrandName, r.TeacherID)
}

func (f *fakeStrandStore) ListByScope(ctx context.Context, scope models.Scope, filter models.StrandFilter) ([]models.StrandAssessmentRow, error) {
	var result []models.StrandAssessmentRow
	for _, r := range f.rows {
		if r.SchoolID != scope.SchoolID || r.ClassID != scope.ClassID || r.Term != scope.Term {
			continue
		}
		if r.AssessmentType != normalizeAssessmentType(scope.ExamType) {
			continue
		}
		if filter.TeacherID != "" && r.TeacherID != filter.TeacherID {
			continue
		}
		result = append(result, r)
	}
	return result, nil
}

func (f *fakeStrandStore) BulkUpsert(ctx context.Context, rows []models.StrandAssessmentRow) error {
	for _, row := range rows {
		replaced := false
		for i, existing := range f.rows {
			if strandKey(existing) == strandKey(row) {
				f.rows[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			f.rows = append(f.rows, row)
		}
	}
	return nil
}

func (f *fakeStrandStore) UpdateStatus(ctx context.Context, scope models.Scope, from, to models.GradeStatus) (int64, error) {
	var affected int64
	for i, r := range f.rows {
		if r.SchoolID != scope.SchoolID || r.ClassID != scope.ClassID || r.Term != scope.Term {
			continue
		}
		if r.AssessmentType != normalizeAssessmentType(scope.ExamType) || r.Status != from {
			continue
		}
		f.rows[i].Status = to
		affected++
	}
	return affected, nil
}

type gradebookFixture struct {
	classes  *fakeClassRepo
	students *fakeStudentRepo
	subjects *fakeSubjectRepo
	grades   *fakeGradeStore
	strands  *fakeStrandStore
	svc      *GradebookService
}

func curriculumPtr(c string) *string { return &c }

func newGradebookFixture(curriculum string) *gradebookFixture {
	classes := &fakeClassRepo{classes: map[string]*models.Class{
		"cls-1": {ID: "cls-1", SchoolID: "sch-1", Name: "Grade 4 East", CurriculumType: curriculumPtr(curriculum)},
	}}
	students := &fakeStudentRepo{students: []models.Student{
		{ID: "stu-1", SchoolID: "sch-1", ClassID: "cls-1", Name: "Amina Odhiambo", Active: true},
		{ID: "stu-2", SchoolID: "sch-1", ClassID: "cls-1", Name: "Brian Mwangi", Active: true},
	}}
	subjects := &fakeSubjectRepo{
		byClass: []models.Subject{
			{ID: "sub-1", SchoolID: "sch-1", Name: "English", Active: true},
			{ID: "sub-2", SchoolID: "sch-1", Name: "Mathematics", Active: true},
		},
		byTeacher: map[string][]models.Subject{
			"tch-1": {{ID: "sub-1", SchoolID: "sch-1", Name: "English", Active: true}},
		},
	}
	grades := &fakeGradeStore{}
	strands := &fakeStrandStore{}

	cfg := testGradingConfig()
	cacheSvc := NewCacheService(nil, nil, 0, nil, false)
	curricula := NewCurriculumService(classes, nil)
	roster := NewRosterService(students, subjects, cacheSvc, cfg, nil)
	svc := NewGradebookService(curricula, roster, grades, strands, nil, cfg, nil, nil)
	return &gradebookFixture{classes: classes, students: students, subjects: subjects, grades: grades, strands: strands, svc: svc}
}

func testGradingConfig() config.GradingConfig {
	return config.GradingConfig{LoadRetries: 1, RetryBackoff: time.Millisecond, MaxScore: 100, CacheTTL: time.Minute}
}

func testScope() models.Scope {
	return models.Scope{SchoolID: "sch-1", ClassID: "cls-1", Term: "Term 1", ExamType: "midterm"}
}

func teacherActor() models.Actor {
	return models.Actor{UserID: "tch-1", Role: models.RoleTeacher}
}

func principalActor() models.Actor {
	return models.Actor{UserID: "pr-1", Role: models.RolePrincipal}
}

func TestSaveDraftStandardDerivesPercentageAndLetter(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 85.0
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &score})

	result, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsWritten)
	assert.Equal(t, models.StatusDraft, result.Status)

	require.Len(t, fx.grades.rows, 1)
	row := fx.grades.rows[0]
	require.NotNil(t, row.Percentage)
	assert.InDelta(t, 85.0, *row.Percentage, 0.001)
	require.NotNil(t, row.LetterGrade)
	assert.Equal(t, "A", *row.LetterGrade)
	assert.Equal(t, "tch-1", row.SubmittedBy)
}

func TestSaveDraftSkipsEmptyCells(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 64.0
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &score})
	batch.Put("stu-2", "sub-1", models.GradeCell{})

	result, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsWritten)
	require.Len(t, fx.grades.rows, 1)
	assert.Equal(t, "C", *fx.grades.rows[0].LetterGrade)
}

func TestSaveDraftIsIdempotentPerTuple(t *testing.T) {
	fx := newGradebookFixture("standard")
	first, second := 60.0, 75.0

	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &first})
	_, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)

	batch = models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &second})
	_, err = fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)

	require.Len(t, fx.grades.rows, 1)
	assert.InDelta(t, 75.0, *fx.grades.rows[0].Score, 0.001)
	assert.Equal(t, "B+", *fx.grades.rows[0].LetterGrade)
}

func TestSubmitMovesRowsToSubmitted(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 90.0
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &score})

	result, err := fx.svc.Submit(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, result.Status)
	require.Len(t, fx.grades.rows, 1)
	assert.Equal(t, models.StatusSubmitted, fx.grades.rows[0].Status)
}

func TestSaveDraftRejectedForForeignSubmittedSheet(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 50.0
	fx.grades.rows = []models.GradeRow{{
		SchoolID: "sch-1", StudentID: "stu-1", SubjectID: "sub-1", ClassID: "cls-1",
		Term: "Term 1", ExamType: "midterm", Score: &score, MaxScore: 100,
		Status: models.StatusDraft, SubmittedBy: "tch-other",
	}}

	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &score})
	// The teacher only sees their own rows, so the foreign draft does not
	// block them; their edits land under their own identity.
	result, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsWritten)
	assert.Len(t, fx.grades.rows, 2)
}

func TestSaveDraftBlockedAfterOwnSubmission(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 50.0
	fx.grades.rows = []models.GradeRow{{
		SchoolID: "sch-1", StudentID: "stu-1", SubjectID: "sub-1", ClassID: "cls-1",
		Term: "Term 1", ExamType: "midterm", Score: &score, MaxScore: 100,
		Status: models.StatusSubmitted, SubmittedBy: "tch-1",
	}}

	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &score})
	_, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrEditLocked.Code, appErr.Code)
	assert.Equal(t, ReasonSubmitted, appErr.Message)
}

func TestPrincipalCanEditSubmittedSheet(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 50.0
	fx.grades.rows = []models.GradeRow{{
		SchoolID: "sch-1", StudentID: "stu-1", SubjectID: "sub-1", ClassID: "cls-1",
		Term: "Term 1", ExamType: "midterm", Score: &score, MaxScore: 100,
		Status: models.StatusSubmitted, SubmittedBy: "tch-1",
	}}

	updated := 66.0
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &updated})
	result, err := fx.svc.SaveDraft(context.Background(), testScope(), principalActor(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowsWritten)
}

func TestPrincipalResubmitDoesNotAdvanceStatus(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 50.0
	fx.grades.rows = []models.GradeRow{{
		SchoolID: "sch-1", StudentID: "stu-1", SubjectID: "sub-1", ClassID: "cls-1",
		Term: "Term 1", ExamType: "midterm", Score: &score, MaxScore: 100,
		Status: models.StatusSubmitted, SubmittedBy: "tch-1",
	}}

	updated := 62.0
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &updated})
	result, err := fx.svc.Submit(context.Background(), testScope(), principalActor(), batch)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSubmitted, result.Status)
	for _, row := range fx.grades.rows {
		assert.Equal(t, models.StatusSubmitted, row.Status)
	}
}

func TestReleasedSheetIsTerminalForEveryone(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 50.0
	fx.grades.rows = []models.GradeRow{{
		SchoolID: "sch-1", StudentID: "stu-1", SubjectID: "sub-1", ClassID: "cls-1",
		Term: "Term 1", ExamType: "midterm", Score: &score, MaxScore: 100,
		Status: models.StatusReleased, SubmittedBy: "tch-1",
	}}

	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &score})
	_, err := fx.svc.SaveDraft(context.Background(), testScope(), principalActor(), batch)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrEditLocked.Code, appErr.Code)
	assert.Equal(t, ReasonReleased, appErr.Message)
}

func TestCompetencySaveFansOutPerStrand(t *testing.T) {
	fx := newGradebookFixture("cbc")
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{StrandScores: map[string]models.PerformanceLevel{
		"Listening and Speaking": models.LevelProficient,
		"Reading":                models.LevelExceeding,
	}})

	result, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowsWritten)
	require.Len(t, fx.strands.rows, 2)
	for _, row := range fx.strands.rows {
		assert.Equal(t, "midterm", row.AssessmentType)
		assert.Equal(t, "tch-1", row.TeacherID)
		assert.Equal(t, models.StatusDraft, row.Status)
	}
}

func TestCertificateCombinesCourseworkAndExam(t *testing.T) {
	fx := newGradebookFixture("igcse")
	coursework, exam := 80.0, 90.0
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{CourseworkScore: &coursework, ExamScore: &exam})

	_, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)
	require.Len(t, fx.grades.rows, 1)
	row := fx.grades.rows[0]
	require.NotNil(t, row.Percentage)
	assert.InDelta(t, 85.0, *row.Percentage, 0.001)
	assert.Equal(t, "A", *row.LetterGrade)
}

func TestCertificateSingleComponentIsProvisional(t *testing.T) {
	fx := newGradebookFixture("igcse")
	exam := 92.0
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{ExamScore: &exam})

	_, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.NoError(t, err)
	require.Len(t, fx.grades.rows, 1)
	assert.InDelta(t, 92.0, *fx.grades.rows[0].Percentage, 0.001)
	assert.Equal(t, "A*", *fx.grades.rows[0].LetterGrade)
}

func TestLoadSheetAssemblesAxesGradesAndVerdict(t *testing.T) {
	fx := newGradebookFixture("standard")
	score := 70.0
	fx.grades.rows = []models.GradeRow{{
		SchoolID: "sch-1", StudentID: "stu-1", SubjectID: "sub-1", ClassID: "cls-1",
		Term: "Term 1", ExamType: "midterm", Score: &score, MaxScore: 100,
		Status: models.StatusDraft, SubmittedBy: "tch-1",
	}}

	sheet, err := fx.svc.LoadSheet(context.Background(), testScope(), teacherActor())
	require.NoError(t, err)
	assert.Equal(t, models.CurriculumStandard, sheet.Curriculum)
	assert.Len(t, sheet.Students, 2)
	assert.Len(t, sheet.Subjects, 1) // narrowed to the teacher's assignment
	cell, ok := sheet.Grades.Cell("stu-1", "sub-1")
	require.True(t, ok)
	assert.InDelta(t, 70.0, *cell.Score, 0.001)
	assert.True(t, sheet.Edit.Allowed)
	assert.Empty(t, sheet.Warnings)
}

func TestLoadSheetWarnsOnEmptyRoster(t *testing.T) {
	fx := newGradebookFixture("standard")
	fx.students.students = nil

	sheet, err := fx.svc.LoadSheet(context.Background(), testScope(), teacherActor())
	require.NoError(t, err)
	assert.Contains(t, sheet.Warnings, WarnNoStudents)
}

func TestLoadSheetFailsWithoutCurriculum(t *testing.T) {
	fx := newGradebookFixture("standard")
	fx.classes.classes["cls-1"].CurriculumType = nil

	_, err := fx.svc.LoadSheet(context.Background(), testScope(), teacherActor())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrCurriculumConfig.Code, appErr.Code)
	// Classification failed before any grade query.
	assert.Empty(t, fx.grades.rows)
}

func TestLoadSheetNamesMissingScopeField(t *testing.T) {
	fx := newGradebookFixture("standard")
	scope := testScope()
	scope.ClassID = ""

	_, err := fx.svc.LoadSheet(context.Background(), scope, teacherActor())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "class_id is required", appErr.Message)
}

func TestLoadSheetWrapsStorageFailure(t *testing.T) {
	fx := newGradebookFixture("standard")
	fx.grades.listErr = errors.New("connection refused")

	_, err := fx.svc.LoadSheet(context.Background(), testScope(), teacherActor())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLoadFailed.Code, appErrors.FromError(err).Code)
}

func TestSaveDraftWrapsPersistenceFailure(t *testing.T) {
	fx := newGradebookFixture("standard")
	fx.grades.saveErr = errors.New("deadlock detected")
	score := 55.0
	batch := models.GradeBatch{}
	batch.Put("stu-1", "sub-1", models.GradeCell{Score: &score})

	_, err := fx.svc.SaveDraft(context.Background(), testScope(), teacherActor(), batch)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPersistence.Code, appErrors.FromError(err).Code)
}

func TestSubmitEmptyBatchWritesNothing(t *testing.T) {
	fx := newGradebookFixture("standard")

	result, err := fx.svc.Submit(context.Background(), testScope(), teacherActor(), models.GradeBatch{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.RowsWritten)
	assert.Empty(t, fx.grades.rows)
}
