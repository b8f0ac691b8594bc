package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edufam/gradebook-api/internal/models"
	"github.com/edufam/gradebook-api/pkg/config"
	appErrors "github.com/edufam/gradebook-api/pkg/errors"
)

func newRosterService(students *fakeStudentRepo, subjects *fakeSubjectRepo, retries int) *RosterService {
	cfg := config.GradingConfig{LoadRetries: retries, RetryBackoff: time.Millisecond, CacheTTL: time.Minute}
	return NewRosterService(students, subjects, NewCacheService(nil, nil, 0, nil, false), cfg, nil)
}

func TestLoadSubjectsNarrowsForTeachers(t *testing.T) {
	subjects := &fakeSubjectRepo{
		byClass: []models.Subject{{ID: "sub-1"}, {ID: "sub-2"}, {ID: "sub-3"}},
		byTeacher: map[string][]models.Subject{
			"tch-1": {{ID: "sub-2"}},
		},
	}
	svc := newRosterService(&fakeStudentRepo{}, subjects, 0)

	teacherView, err := svc.LoadSubjects(context.Background(), testScope(), teacherActor())
	require.NoError(t, err)
	require.Len(t, teacherView, 1)
	assert.Equal(t, "sub-2", teacherView[0].ID)

	principalView, err := svc.LoadSubjects(context.Background(), testScope(), principalActor())
	require.NoError(t, err)
	assert.Len(t, principalView, 3)
}

func TestLoadRosterRetriesTransientFailures(t *testing.T) {
	students := &fakeStudentRepo{
		students: []models.Student{{ID: "stu-1"}},
		failures: 2,
	}
	svc := newRosterService(students, &fakeSubjectRepo{}, 2)

	roster, err := svc.LoadRoster(context.Background(), testScope())
	require.NoError(t, err)
	assert.Len(t, roster, 1)
	assert.Equal(t, 3, students.calls)
}

func TestLoadRosterGivesUpAfterRetryBudget(t *testing.T) {
	students := &fakeStudentRepo{failures: 5}
	svc := newRosterService(students, &fakeSubjectRepo{}, 2)

	_, err := svc.LoadRoster(context.Background(), testScope())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLoadFailed.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 3, students.calls)
}

func TestWarningsAreRoleSpecific(t *testing.T) {
	svc := newRosterService(&fakeStudentRepo{}, &fakeSubjectRepo{}, 0)

	teacherWarnings := svc.Warnings(nil, nil, teacherActor())
	assert.Contains(t, teacherWarnings, WarnNoStudents)
	assert.Contains(t, teacherWarnings, WarnNoSubjectsTeacher)

	principalWarnings := svc.Warnings(nil, nil, principalActor())
	assert.Contains(t, principalWarnings, WarnNoSubjectsAdmin)
	assert.NotContains(t, principalWarnings, WarnNoSubjectsTeacher)

	none := svc.Warnings([]models.Student{{ID: "stu-1"}}, []models.Subject{{ID: "sub-1"}}, teacherActor())
	assert.Empty(t, none)
}
