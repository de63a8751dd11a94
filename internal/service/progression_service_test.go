package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sis-rollover-api/internal/models"
	appErrors "github.com/noah-isme/sis-rollover-api/pkg/errors"
)

type mockGradeReader struct {
	grades []models.GradeLevel
	err    error
	calls  int
}

func (m *mockGradeReader) ListActiveBySchool(ctx context.Context, schoolID string) ([]models.GradeLevel, error) {
	m.calls++
	return m.grades, m.err
}

func strPtr(s string) *string { return &s }

func linearGrades() []models.GradeLevel {
	return []models.GradeLevel{
		{ID: "g10", SchoolID: "sch-1", Name: "Grade 10", OrderIndex: 1, NextGradeID: strPtr("g11"), Active: true},
		{ID: "g11", SchoolID: "sch-1", Name: "Grade 11", OrderIndex: 2, NextGradeID: strPtr("g12"), Active: true},
		{ID: "g12", SchoolID: "sch-1", Name: "Grade 12", OrderIndex: 3, IsTerminal: true, Active: true},
	}
}

func TestProgressionServiceBuildGraph(t *testing.T) {
	svc := NewProgressionService(&mockGradeReader{grades: linearGrades()}, zap.NewNop())

	graph, err := svc.BuildGraph(context.Background(), "sch-1")
	require.NoError(t, err)

	next, terminal, err := graph.ResolveNext("g10")
	require.NoError(t, err)
	assert.False(t, terminal)
	require.NotNil(t, next)
	assert.Equal(t, "g11", *next)

	next, terminal, err = graph.ResolveNext("g12")
	require.NoError(t, err)
	assert.True(t, terminal)
	assert.Nil(t, next)
}

func TestProgressionServiceResolveUnknownGrade(t *testing.T) {
	svc := NewProgressionService(&mockGradeReader{grades: linearGrades()}, zap.NewNop())

	graph, err := svc.BuildGraph(context.Background(), "sch-1")
	require.NoError(t, err)

	_, _, err = graph.ResolveNext("g99")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrGradeGraphInvalid.Code, appErr.Code)
}

func TestProgressionServiceDetectsCycle(t *testing.T) {
	grades := []models.GradeLevel{
		{ID: "g1", SchoolID: "sch-1", Name: "Grade 1", OrderIndex: 1, NextGradeID: strPtr("g2"), Active: true},
		{ID: "g2", SchoolID: "sch-1", Name: "Grade 2", OrderIndex: 2, NextGradeID: strPtr("g1"), Active: true},
	}
	svc := NewProgressionService(&mockGradeReader{grades: grades}, zap.NewNop())

	_, err := svc.BuildGraph(context.Background(), "sch-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrGradeGraphInvalid.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "cycle")
}

func TestProgressionServiceRejectsMissingSuccessor(t *testing.T) {
	grades := []models.GradeLevel{
		{ID: "g1", SchoolID: "sch-1", Name: "Grade 1", OrderIndex: 1, NextGradeID: strPtr("gone"), Active: true},
	}
	svc := NewProgressionService(&mockGradeReader{grades: grades}, zap.NewNop())

	_, err := svc.BuildGraph(context.Background(), "sch-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrGradeGraphInvalid.Code, appErr.Code)
}

func TestProgressionServiceRejectsForeignSuccessor(t *testing.T) {
	grades := []models.GradeLevel{
		{ID: "g1", SchoolID: "sch-1", Name: "Grade 1", OrderIndex: 1, NextGradeID: strPtr("g2"), Active: true},
		{ID: "g2", SchoolID: "sch-2", Name: "Grade 2", OrderIndex: 2, Active: true},
	}
	svc := NewProgressionService(&mockGradeReader{grades: grades}, zap.NewNop())

	_, err := svc.BuildGraph(context.Background(), "sch-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrGradeGraphInvalid.Code, appErr.Code)
}

func TestGradeGraphItems(t *testing.T) {
	svc := NewProgressionService(&mockGradeReader{grades: linearGrades()}, zap.NewNop())

	graph, err := svc.BuildGraph(context.Background(), "sch-1")
	require.NoError(t, err)

	items := graph.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "g10", items[0].GradeLevelID)
	assert.False(t, items[0].IsTerminal)
	assert.True(t, items[2].IsTerminal)
}
