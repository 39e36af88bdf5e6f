package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/app"
	"github.com/useneurox-company/ERP--sub000/internal/config"
	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/http/handler"
	"github.com/useneurox-company/ERP--sub000/internal/http/middleware"
	"github.com/useneurox-company/ERP--sub000/internal/http/router"
	"github.com/useneurox-company/ERP--sub000/internal/testutil"
)

const actor = "user-1"

type testAPI struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T) (*testAPI, *app.Services) {
	t.Helper()
	logger := zap.NewNop()
	db := testutil.NewTestDB(t)

	cfg := &config.Config{
		App:       config.AppConfig{Environment: "development"},
		Storage:   config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir(), MaxUploadSizeMB: 1},
		Scorer:    config.ScorerConfig{Provider: "token", MinScore: 0.3},
		Autosave:  config.AutosaveConfig{DebounceMs: 50},
		RateLimit: config.RateLimitConfig{RequestsPerMinute: 100, RequestsPerMinuteActor: 100, UploadsPerMinute: 100},
	}
	services, err := app.NewServices(context.Background(), cfg, db, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = services.Close(context.Background()) })

	rt := router.NewRouter(
		cfg,
		logger,
		db,
		nil,
		middleware.NewRateLimiter(&cfg.RateLimit, logger),
		handler.NewProjectHandler(services.Project, services.Stage, logger),
		handler.NewStageHandler(services.Stage, logger),
		handler.NewStageDataHandler(services.StageData, logger),
		handler.NewComparisonHandler(services.Reconciliation, cfg.Storage.MaxUploadSizeMB, logger),
		handler.NewWarehouseHandler(services.Warehouse, logger),
		handler.NewNotificationHandler(services.Notification, logger),
	)
	return &testAPI{t: t, handler: rt.Setup()}, services
}

func (a *testAPI) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(a.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ActorHeader, actor)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testAPI) createProject(name string) domain.ProjectDTO {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/projects", domain.CreateProjectRequest{Name: name})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.ProjectDTO](a.t, w)
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	w := api.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = api.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/health/warehouse", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"disabled"`)
}

func TestProjects(t *testing.T) {
	api, _ := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/v1/projects", domain.CreateProjectRequest{Name: "Kitchen"}, middleware.ActorHeader, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[domain.APIError](t, w).Errors, "actor")

	w = api.do(http.MethodPost, "/api/v1/projects", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[domain.APIError](t, w).Errors, "name")

	w = api.do(http.MethodPost, "/api/v1/projects", `{"name":"x","unknown":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	project := api.createProject("Kitchen")
	assert.Len(t, project.Stages, 7)

	w = api.do(http.MethodGet, "/api/v1/projects/"+project.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/api/v1/projects/"+project.ID.String()+"/stages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stages := decode[[]domain.StageDTO](t, w)
	require.Len(t, stages, 7)
	assert.Equal(t, domain.StageTypeMeasurement, stages[0].StageType)

	w = api.do(http.MethodGet, "/api/v1/projects/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/v1/projects/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.ErrorTypeNotFound, decode[domain.APIError](t, w).Type)

	w = api.do(http.MethodDelete, "/api/v1/projects/"+project.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(http.MethodGet, "/api/v1/projects/"+project.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStageLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	project := api.createProject("Wardrobe")
	first, second := project.Stages[0], project.Stages[1]
	stagePath := func(id uuid.UUID, suffix string) string {
		return "/api/v1/stages/" + id.String() + suffix
	}

	// the second stage waits for the first
	w := api.do(http.MethodPost, stagePath(second.ID, "/start"), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	apiErr := decode[domain.APIError](t, w)
	assert.Equal(t, domain.ErrorTypeBlocked, apiErr.Type)
	assert.Equal(t, []uuid.UUID{first.ID}, apiErr.Blockers)

	w = api.do(http.MethodGet, stagePath(second.ID, "/blocked"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domain.BlockStateDTO](t, w).Blocked)

	w = api.do(http.MethodPost, stagePath(first.ID, "/complete"), nil)
	assert.Equal(t, http.StatusConflict, w.Code, "pending stage cannot complete")
	assert.Equal(t, domain.ErrorTypeInvalidTransition, decode[domain.APIError](t, w).Type)

	w = api.do(http.MethodPost, stagePath(first.ID, "/start"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StageStatusInProgress, decode[domain.StageDTO](t, w).Status)

	w = api.do(http.MethodPost, stagePath(first.ID, "/complete"), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[domain.CompletionResultDTO](t, w)
	assert.Equal(t, []uuid.UUID{second.ID}, result.Unblocked)

	w = api.do(http.MethodPost, stagePath(second.ID, "/start"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPost, stagePath(first.ID, "/reopen"), domain.ReopenStageRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPost, stagePath(first.ID, "/reopen"), domain.ReopenStageRequest{Reason: "client changed the layout"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.StageStatusInProgress, decode[domain.StageDTO](t, w).Status)

	w = api.do(http.MethodGet, stagePath(first.ID, "/history"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.StageTransitionDTO](t, w), 3)

	// the second stage already depends on the first
	w = api.do(http.MethodPost, stagePath(first.ID, "/dependencies"), domain.AddDependencyRequest{DependsOnID: second.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, domain.ErrorTypeCycleDetected, decode[domain.APIError](t, w).Type)
}

func TestStageData_PatchAndFlush(t *testing.T) {
	api, _ := newTestAPI(t)
	project := api.createProject("Bathroom")
	measurement := project.Stages[0]
	path := "/api/v1/stages/" + measurement.ID.String() + "/data"

	w := api.do(http.MethodPatch, path, `["not","an","object"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodPatch, path, `{"notes":"wall is not straight"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	w = api.do(http.MethodPost, path+"/flush", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "saved", decode[domain.SaveStateDTO](t, w).State)

	w = api.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Notes string `json:"notes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "wall is not straight", body.Data.Notes)
}

func TestComparisonUpload(t *testing.T) {
	api, _ := newTestAPI(t)
	project := api.createProject("Office")
	docs := project.Stages[2]

	w := api.do(http.MethodPost, "/api/v1/warehouse/items", map[string]interface{}{
		"name": "Hinge clip-on", "sku": "PH-100", "quantity": 50, "unit": "pcs", "price": "12.50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("stageId", docs.ID.String()))
	fw, err := mw.CreateFormFile("file", "hardware.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("name,sku,qty\nHinge clip-on,PH-100,20\nGlass shelf,,3\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/comparisons", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.ActorHeader, actor)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Location"))

	comparison := decode[domain.ComparisonDTO](t, rec)
	require.Len(t, comparison.Items, 2)
	assert.Equal(t, domain.ComparisonStatusInStock, comparison.Items[0].Status)
	assert.Equal(t, domain.ComparisonStatusMissing, comparison.Items[1].Status)

	w = api.do(http.MethodGet, "/api/v1/stages/"+docs.ID.String()+"/comparisons", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.ComparisonDTO](t, w), 1)

	glass := comparison.Items[1].ID
	w = api.do(http.MethodPut, "/api/v1/comparisons/"+comparison.ID.String()+"/items/"+glass.String()+"/order", map[string]bool{"include": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/comparisons/"+comparison.ID.String()+"/order.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())

	w = api.do(http.MethodGet, "/api/v1/comparisons/"+comparison.ID.String()+"/source", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "hardware.csv")
	assert.Equal(t, "name,sku,qty\nHinge clip-on,PH-100,20\nGlass shelf,,3\n", w.Body.String())
}

func TestComparisonUpload_RequiresFile(t *testing.T) {
	api, _ := newTestAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("stageId", uuid.NewString()))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/comparisons", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.ActorHeader, actor)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotifications(t *testing.T) {
	api, _ := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/v1/notifications/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":0}`, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/notifications", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodPut, "/api/v1/notifications/"+uuid.NewString()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
