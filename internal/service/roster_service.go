package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edufam/gradebook-api/internal/models"
	"github.com/edufam/gradebook-api/pkg/config"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
)

type studentReader interface {
	ListActiveByClass(ctx context.Context, schoolID, classID string) ([]models.Student, error)
}

type subjectReader interface {
	ListByClass(ctx context.Context, schoolID, classID string) ([]models.Subject, error)
	ListByTeacher(ctx context.Context, schoolID, classID, teacherID string) ([]models.Subject, error)
}

// Warnings shown when a sheet has no rows or no columns. Empty results are
// usable states, not errors; the sheet renders empty with the warning.
const (
	WarnNoStudents        = "no students found in this class"
	WarnNoSubjectsTeacher = "no subjects assigned to you for this class"
	WarnNoSubjectsAdmin   = "no subjects configured for this class"
)

// RosterService resolves the axes of a grading sheet: the student roster and
// the role-scoped subject list. Results are cached per scope and reads retry
// on transient failure before surfacing a load error.
type RosterService struct {
	students studentReader
	subjects subjectReader
	cache    *CacheService
	cfg      config.GradingConfig
	logger   *zap.Logger
}

// NewRosterService constructs a RosterService.
func NewRosterService(students studentReader, subjects subjectReader, cache *CacheService, cfg config.GradingConfig, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{students: students, subjects: subjects, cache: cache, cfg: cfg, logger: logger}
}

// LoadRoster returns the active students of the scope's class, cached.
func (s *RosterService) LoadRoster(ctx context.Context, scope models.Scope) ([]models.Student, error) {
	key := scope.CacheKey("roster")
	var cached []models.Student
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	var students []models.Student
	err := s.withRetry(ctx, "load roster", func() error {
		var inner error
		students, inner = s.students.ListActiveByClass(ctx, scope.SchoolID, scope.ClassID)
		return inner
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLoadFailed.Code, appErrors.ErrLoadFailed.Status, "failed to load class roster")
	}
	if err := s.cache.Set(ctx, key, students, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("roster cache store failed", zap.Error(err))
	}
	return students, nil
}

// LoadSubjects returns the subject columns visible to the actor. Teachers see
// only subjects they are assigned to teach; administrative roles see every
// subject configured for the class.
func (s *RosterService) LoadSubjects(ctx context.Context, scope models.Scope, actor models.Actor) ([]models.Subject, error) {
	narrow := actor.Role == models.RoleTeacher
	keyExtra := "all"
	if narrow {
		keyExtra = actor.UserID
	}
	key := scope.CacheKey("subjects", keyExtra)
	var cached []models.Subject
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	var subjects []models.Subject
	err := s.withRetry(ctx, "load subjects", func() error {
		var inner error
		if narrow {
			subjects, inner = s.subjects.ListByTeacher(ctx, scope.SchoolID, scope.ClassID, actor.UserID)
		} else {
			subjects, inner = s.subjects.ListByClass(ctx, scope.SchoolID, scope.ClassID)
		}
		return inner
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLoadFailed.Code, appErrors.ErrLoadFailed.Status, "failed to load subjects")
	}
	if err := s.cache.Set(ctx, key, subjects, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("subject cache store failed", zap.Error(err))
	}
	return subjects, nil
}

// Warnings returns the advisory messages for an empty roster or subject list.
func (s *RosterService) Warnings(students []models.Student, subjects []models.Subject, actor models.Actor) []string {
	var warnings []string
	if len(students) == 0 {
		warnings = append(warnings, WarnNoStudents)
	}
	if len(subjects) == 0 {
		if actor.Role == models.RoleTeacher {
			warnings = append(warnings, WarnNoSubjectsTeacher)
		} else {
			warnings = append(warnings, WarnNoSubjectsAdmin)
		}
	}
	return warnings
}

// Invalidate drops every cached entry for the scope's class. Called when the
// grading scope changes or after any grade mutation.
func (s *RosterService) Invalidate(ctx context.Context, scope models.Scope) {
	if err := s.cache.Invalidate(ctx, scope.CachePattern()); err != nil {
		s.logger.Warn("scope cache invalidation failed", zap.Error(err))
	}
}

// withRetry retries read operations a bounded number of times with a fixed
// backoff. Only loads retry; writes never do.
func (s *RosterService) withRetry(ctx context.Context, label string, fn func() error) error {
	attempts := s.cfg.LoadRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		s.logger.Warn("retrying after transient failure",
			zap.String("operation", label),
			zap.Int("attempt", i+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RetryBackoff):
		}
	}
	return err
}
