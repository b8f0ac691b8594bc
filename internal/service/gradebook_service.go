package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edufam/gradebook-api/internal/models"
	"github.com/edufam/gradebook-api/pkg/config"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
)

// SheetView is the assembled grading sheet for one scope and actor: the
// curriculum, both axes, every visible grade and the actor's edit verdict.
type SheetView struct {
	Curriculum     models.Curriculum     `json:"curriculum"`
	CurriculumInfo models.CurriculumInfo `json:"curriculum_info"`
	Students       []models.Student      `json:"students"`
	Subjects       []models.Subject      `json:"subjects"`
	Grades         models.GradeBatch     `json:"grades"`
	Status         models.SheetStatus    `json:"status"`
	Edit           models.EditDecision   `json:"edit"`
	Warnings       []string              `json:"-"`
}

// SaveResult reports the outcome of a draft save or submission.
type SaveResult struct {
	RowsWritten int                `json:"rows_written"`
	Status      models.GradeStatus `json:"status"`
}

// GradebookService orchestrates the capture workflow: classify the class,
// resolve the sheet axes, decode stored grades, gate edits and flush batches.
type GradebookService struct {
	curricula *CurriculumService
	roster    *RosterService
	grades    gradeStore
	strands   strandStore
	metrics   *MetricsService
	cfg       config.GradingConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradebookService constructs a GradebookService.
func NewGradebookService(curricula *CurriculumService, roster *RosterService, grades gradeStore, strands strandStore, metrics *MetricsService, cfg config.GradingConfig, validate *validator.Validate, logger *zap.Logger) *GradebookService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradebookService{
		curricula: curricula,
		roster:    roster,
		grades:    grades,
		strands:   strands,
		metrics:   metrics,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// LoadSheet assembles the grading sheet for the scope as seen by the actor.
// Empty rosters and subject lists load successfully with warnings attached;
// only configuration and storage failures abort the load.
func (s *GradebookService) LoadSheet(ctx context.Context, scope models.Scope, actor models.Actor) (*SheetView, error) {
	if err := s.validateScope(scope, actor); err != nil {
		return nil, err
	}
	start := time.Now()
	curriculum, err := s.curricula.Classify(ctx, scope.SchoolID, scope.ClassID)
	if err != nil {
		return nil, err
	}
	students, err := s.roster.LoadRoster(ctx, scope)
	if err != nil {
		return nil, err
	}
	subjects, err := s.roster.LoadSubjects(ctx, scope, actor)
	if err != nil {
		return nil, err
	}
	codec := s.codec(curriculum)
	batch, status, err := codec.Load(ctx, scope, actor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLoadFailed.Code, appErrors.ErrLoadFailed.Status, "failed to load grades")
	}
	s.metrics.ObserveSheetLoad(curriculum, time.Since(start))

	return &SheetView{
		Curriculum:     curriculum,
		CurriculumInfo: curriculum.Info(),
		Students:       students,
		Subjects:       subjects,
		Grades:         batch,
		Status:         status,
		Edit:           EvaluateEdit(actor, status.Status, status.SubmittedBy),
		Warnings:       s.roster.Warnings(students, subjects, actor),
	}, nil
}

// SaveDraft persists the batch as a draft the actor can keep editing.
func (s *GradebookService) SaveDraft(ctx context.Context, scope models.Scope, actor models.Actor, batch models.GradeBatch) (*SaveResult, error) {
	return s.flush(ctx, scope, actor, batch, models.StatusDraft, models.AuditActionSaveDraft)
}

// Submit persists the batch and hands it to the approval workflow. The rows
// move to submitted; only administrative roles may touch them afterwards.
func (s *GradebookService) Submit(ctx context.Context, scope models.Scope, actor models.Actor, batch models.GradeBatch) (*SaveResult, error) {
	return s.flush(ctx, scope, actor, batch, models.StatusSubmitted, models.AuditActionSubmit)
}

func (s *GradebookService) flush(ctx context.Context, scope models.Scope, actor models.Actor, batch models.GradeBatch, status models.GradeStatus, action string) (*SaveResult, error) {
	if err := s.validateScope(scope, actor); err != nil {
		return nil, err
	}
	curriculum, err := s.curricula.Classify(ctx, scope.SchoolID, scope.ClassID)
	if err != nil {
		return nil, err
	}
	codec := s.codec(curriculum)

	// Re-read the stored status rather than trusting the client's copy; the
	// sheet may have been submitted or released since it was loaded.
	_, current, err := codec.Load(ctx, scope, actor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLoadFailed.Code, appErrors.ErrLoadFailed.Status, "failed to load current grade status")
	}
	decision := EvaluateEdit(actor, current.Status, current.SubmittedBy)
	if !decision.Allowed {
		return nil, appErrors.Clone(appErrors.ErrEditLocked, decision.Reason)
	}

	written, err := codec.Flush(ctx, scope, actor, batch, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to save grades")
	}
	if written > 0 {
		s.roster.Invalidate(ctx, scope)
		s.metrics.RecordGradeWrites(curriculum, action, written)
	}
	s.logger.Info("grades flushed",
		zap.String("class_id", scope.ClassID),
		zap.String("term", scope.Term),
		zap.String("exam_type", scope.ExamType),
		zap.String("curriculum", string(curriculum)),
		zap.String("status", string(status)),
		zap.Int("rows", written))
	return &SaveResult{RowsWritten: written, Status: status}, nil
}

func (s *GradebookService) codec(curriculum models.Curriculum) sheetCodec {
	return codecFor(curriculum, s.grades, s.strands, s.cfg.MaxScore)
}

// validateScope rejects incomplete scopes, naming the missing field so the
// client can surface it directly.
func (s *GradebookService) validateScope(scope models.Scope, actor models.Actor) error {
	if actor.UserID == "" {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing authenticated user")
	}
	if err := s.validator.Struct(scope); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", scopeFieldName(fieldErrs[0].Field())))
		}
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grading scope")
	}
	return nil
}

func scopeFieldName(field string) string {
	switch field {
	case "SchoolID":
		return "school_id"
	case "ClassID":
		return "class_id"
	case "Term":
		return "term"
	case "ExamType":
		return "exam_type"
	default:
		return field
	}
}
