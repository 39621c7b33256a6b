package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/icdev-br/pic-portal-api/internal/dto"
	"github.com/icdev-br/pic-portal-api/internal/middleware"
	"github.com/icdev-br/pic-portal-api/internal/models"
)

type stageServiceMock struct {
	getResp   *models.Project
	getErr    error
	listResp  []models.Project
	listQuery dto.ProjectQuery
	listErr   error
	bulkResp  *dto.BulkStageResult
	bulkErr   error
}

func (m *stageServiceMock) Get(ctx context.Context, projectID string) (*models.Project, error) {
	return m.getResp, m.getErr
}

func (m *stageServiceMock) List(ctx context.Context, query dto.ProjectQuery) ([]models.Project, *models.Pagination, error) {
	m.listQuery = query
	return m.listResp, &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: len(m.listResp)}, m.listErr
}

func (m *stageServiceMock) Override(ctx context.Context, projectID string, stage models.Stage, actorID string) (*models.Project, error) {
	return m.getResp, m.getErr
}

func (m *stageServiceMock) BulkOverride(ctx context.Context, req dto.BulkStageRequest, actorID string) (*dto.BulkStageResult, error) {
	return m.bulkResp, m.bulkErr
}

func TestProjectHandlerListScopesStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &stageServiceMock{listResp: []models.Project{{ID: "proj-1"}}}
	handler := NewProjectHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/projects", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "student-1", mockSvc.listQuery.StudentID)
	require.Empty(t, mockSvc.listQuery.AdvisorID)
}

func TestProjectHandlerListScopesAdvisor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &stageServiceMock{}
	handler := NewProjectHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/projects", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "advisor-1", Role: models.RoleAdvisor})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "advisor-1", mockSvc.listQuery.AdvisorID)
	require.Empty(t, mockSvc.listQuery.StudentID)
}

func TestProjectHandlerGetForbiddenForOtherStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &stageServiceMock{
		getResp: &models.Project{ID: "proj-1", StudentID: "student-2"},
	}
	handler := NewProjectHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/projects/proj-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "proj-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.Get(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestProjectHandlerGetCoordinatorSeesAll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &stageServiceMock{
		getResp: &models.Project{ID: "proj-1", StudentID: "student-2"},
	}
	handler := NewProjectHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/projects/proj-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "proj-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "coord-1", Role: models.RoleCoordinator})

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProjectHandlerBulkStage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &stageServiceMock{
		bulkResp: &dto.BulkStageResult{Applied: 2, Failed: []dto.BulkStageFailure{{ProjectID: "proj-3", Error: "project not found"}}},
	}
	handler := NewProjectHandler(mockSvc)

	payload, _ := json.Marshal(dto.BulkStageRequest{Stage: models.StageRelatorioMensal2, ProjectIDs: []string{"proj-1", "proj-2", "proj-3"}})
	c, w := newGinContext(http.MethodPatch, "/projects/stage/bulk", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "coord-1", Role: models.RoleCoordinator})

	handler.BulkStage(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.BulkStageResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 2, envelope.Data.Applied)
	require.Len(t, envelope.Data.Failed, 1)
}
