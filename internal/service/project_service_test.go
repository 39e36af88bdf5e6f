package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/useneurox-company/ERP--sub000/internal/domain"
)

func TestProjectService_CreateFurniture(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	project, err := e.projects.Create(ctx, &domain.CreateProjectRequest{Name: "Kitchen for Ivanov", ClientName: "Ivanov"}, actor)
	require.NoError(t, err)
	assert.Equal(t, "furniture", project.Template)
	assert.Equal(t, actor, project.CreatedByID)

	require.Len(t, project.Stages, 7)
	wantTypes := []domain.StageType{
		domain.StageTypeMeasurement,
		domain.StageTypeTechnicalSpecification,
		domain.StageTypeConstructorDocumentation,
		domain.StageTypeApproval,
		domain.StageTypeProcurement,
		domain.StageTypeProduction,
		domain.StageTypeInstallation,
	}
	for i, st := range project.Stages {
		assert.Equal(t, wantTypes[i], st.StageType)
		assert.Equal(t, domain.StageStatusPending, st.Status)
		assert.NotNil(t, st.TypeData)
		if i == 0 {
			assert.Empty(t, st.DependsOn)
			assert.False(t, st.Blocked)
			continue
		}
		assert.Equal(t, []uuid.UUID{project.Stages[i-1].ID}, st.DependsOn)
		assert.True(t, st.Blocked)
	}

	stages, err := e.projects.ListStages(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, stages, 7)
	assert.Equal(t, project.Stages[6].ID, stages[6].ID)
}

func TestProjectService_CreateEmptyAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	project, err := e.projects.Create(ctx, &domain.CreateProjectRequest{Name: "Wardrobe", Template: "empty"}, actor)
	require.NoError(t, err)
	assert.Empty(t, project.Stages)

	_, err = e.projects.Create(ctx, &domain.CreateProjectRequest{Name: "X", Template: "bathroom"}, actor)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = e.projects.Create(ctx, &domain.CreateProjectRequest{Name: "X"}, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProjectService_ListAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.projects.Create(ctx, &domain.CreateProjectRequest{Name: "First"}, actor)
	require.NoError(t, err)
	_, err = e.projects.Create(ctx, &domain.CreateProjectRequest{Name: "Second", Template: "empty"}, actor)
	require.NoError(t, err)

	page, err := e.projects.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Data, 1)

	require.NoError(t, e.projects.Delete(ctx, first.ID, actor))

	_, err = e.projects.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var edges int64
	require.NoError(t, e.db.Model(&domain.StageDependency{}).Where("project_id = ?", first.ID).Count(&edges).Error)
	assert.Zero(t, edges)

	err = e.projects.Delete(ctx, first.ID, actor)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
