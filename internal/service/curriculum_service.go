package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/edufam/gradebook-api/internal/models"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
)

type classReader interface {
	FindByID(ctx context.Context, schoolID, classID string) (*models.Class, error)
}

// CurriculumService classifies classes into grading curricula. Classification
// runs before any roster or grade query so a misconfigured class fails fast
// without touching grade storage.
type CurriculumService struct {
	classes classReader
	logger  *zap.Logger
}

// NewCurriculumService constructs a CurriculumService.
func NewCurriculumService(classes classReader, logger *zap.Logger) *CurriculumService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurriculumService{classes: classes, logger: logger}
}

// Classify resolves the curriculum for a class. Missing classes, unset
// curriculum fields and unknown values are distinct errors; none of them
// silently defaults to a scheme.
func (s *CurriculumService) Classify(ctx context.Context, schoolID, classID string) (models.Curriculum, error) {
	class, err := s.classes.FindByID(ctx, schoolID, classID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return "", appErrors.Wrap(err, appErrors.ErrLoadFailed.Code, appErrors.ErrLoadFailed.Status, "failed to load class")
	}
	if class.CurriculumType == nil || *class.CurriculumType == "" {
		s.logger.Warn("class has no curriculum configured", zap.String("class_id", classID))
		return "", appErrors.Clone(appErrors.ErrCurriculumConfig, "class has no curriculum type configured - contact your administrator")
	}
	curriculum, err := models.ParseCurriculum(*class.CurriculumType)
	if err != nil {
		s.logger.Warn("class curriculum not recognized",
			zap.String("class_id", classID),
			zap.String("curriculum_type", *class.CurriculumType))
		return "", appErrors.Clone(appErrors.ErrCurriculumInvalid, err.Error())
	}
	return curriculum, nil
}

// Describe returns display metadata for a class's curriculum.
func (s *CurriculumService) Describe(ctx context.Context, schoolID, classID string) (models.Curriculum, models.CurriculumInfo, error) {
	curriculum, err := s.Classify(ctx, schoolID, classID)
	if err != nil {
		return "", models.CurriculumInfo{}, err
	}
	return curriculum, curriculum.Info(), nil
}
