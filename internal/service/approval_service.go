package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/edufam/gradebook-api/internal/models"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
)

// ApprovalResult reports the outcome of an approval-workflow transition.
type ApprovalResult struct {
	RowsAffected int64              `json:"rows_affected"`
	Status       models.GradeStatus `json:"status"`
}

// ApprovalService drives the principal-side lifecycle: approve or reject
// submitted grades, then release approved ones to students and parents.
type ApprovalService struct {
	curricula *CurriculumService
	roster    *RosterService
	grades    gradeStore
	strands   strandStore
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewApprovalService constructs an ApprovalService.
func NewApprovalService(curricula *CurriculumService, roster *RosterService, grades gradeStore, strands strandStore, metrics *MetricsService, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		curricula: curricula,
		roster:    roster,
		grades:    grades,
		strands:   strands,
		metrics:   metrics,
		logger:    logger,
	}
}

// Approve moves submitted grades in the scope to approved.
func (s *ApprovalService) Approve(ctx context.Context, scope models.Scope, actor models.Actor) (*ApprovalResult, error) {
	return s.transition(ctx, scope, actor, models.StatusSubmitted, models.StatusApproved, nil, models.AuditActionApprove)
}

// Reject sends submitted grades back to their author with the principal's
// notes. Rejected grades behave like drafts for the owning teacher.
func (s *ApprovalService) Reject(ctx context.Context, scope models.Scope, actor models.Actor, notes string) (*ApprovalResult, error) {
	var n *string
	if notes != "" {
		n = &notes
	}
	return s.transition(ctx, scope, actor, models.StatusSubmitted, models.StatusRejected, n, models.AuditActionReject)
}

// Release publishes approved grades. Released is terminal: no role can edit
// or re-route the rows afterwards.
func (s *ApprovalService) Release(ctx context.Context, scope models.Scope, actor models.Actor) (*ApprovalResult, error) {
	return s.transition(ctx, scope, actor, models.StatusApproved, models.StatusReleased, nil, models.AuditActionRelease)
}

func (s *ApprovalService) transition(ctx context.Context, scope models.Scope, actor models.Actor, from, to models.GradeStatus, notes *string, action string) (*ApprovalResult, error) {
	if !actor.Role.Administrative() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only principals can manage grade approval")
	}
	if !from.CanTransitionTo(to) {
		return nil, appErrors.Clone(appErrors.ErrBadTransition, "unsupported grade status transition")
	}
	curriculum, err := s.curricula.Classify(ctx, scope.SchoolID, scope.ClassID)
	if err != nil {
		return nil, err
	}

	var affected int64
	if curriculum == models.CurriculumCompetency {
		affected, err = s.strands.UpdateStatus(ctx, scope, from, to)
	} else {
		affected, err = s.grades.UpdateStatus(ctx, scope, from, to, actor.UserID, notes)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update grade status")
	}
	if affected == 0 {
		// Nothing in the expected state: either the scope is empty or another
		// principal already moved it.
		return nil, appErrors.Clone(appErrors.ErrBadTransition, "no grades in "+string(from)+" state for this scope")
	}

	s.roster.Invalidate(ctx, scope)
	s.metrics.RecordGradeWrites(curriculum, action, int(affected))
	s.logger.Info("grade status transition",
		zap.String("class_id", scope.ClassID),
		zap.String("term", scope.Term),
		zap.String("exam_type", scope.ExamType),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int64("rows", affected))
	return &ApprovalResult{RowsAffected: affected, Status: to}, nil
}
