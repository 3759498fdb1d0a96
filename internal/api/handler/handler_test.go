package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mgcam/npg-porch/internal/api/handler"
	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/logger"
	"github.com/mgcam/npg-porch/pkg/serrors"
	"github.com/mgcam/npg-porch/pkg/storage"
)

const (
	adminTokenValue    = "0123456789abcdef0123456789abcdef"
	pipelineTokenValue = "fedcba9876543210fedcba9876543210"
	revokedTokenValue  = "00000000000000000000000000000000"
)

var testPipeline = domain.Pipeline{
	ID:            1,
	Name:          "ptest",
	Version:       "0.1",
	RepositoryURI: "https://gitlab.example.com/ptest",
}

func testTokens() map[string]domain.Token {
	return map[string]domain.Token{
		adminTokenValue: {ID: 1, Description: "admin"},
		pipelineTokenValue: {
			ID:          2,
			Description: "runner",
			Pipeline:    &testPipeline,
		},
		revokedTokenValue: {ID: 3, Description: "old", RevokedAt: time.Now()},
	}
}

func newTestRouter(t *testing.T, service *mockPorch, store storage.Storage) *mux.Router {
	t.Helper()
	logger.Setup(logger.DevelopmentEnvironment)

	if store == nil {
		store = &stubStore{tokens: testTokens()}
	}

	router := mux.NewRouter()
	handler.New(
		handler.Deps{Service: service, Store: store},
		handler.Options{DefaultPageLimit: 20, MaxPageLimit: 100},
	).Register(router)

	return router
}

func doRequest(router *mux.Router, method, target, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestStatus(t *testing.T) {
	router := newTestRouter(t, &mockPorch{}, nil)

	rec := doRequest(router, http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatus_DatabaseDown(t *testing.T) {
	store := &stubStore{tokens: testTokens(), pingErr: errors.New("connection refused")}
	router := newTestRouter(t, &mockPorch{}, store)

	rec := doRequest(router, http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuth(t *testing.T) {
	service := &mockPorch{}
	service.On("Pipelines", mock.Anything, mock.Anything).Return([]domain.Pipeline{}, nil)
	router := newTestRouter(t, service, nil)

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{name: "missing token", token: "", status: http.StatusUnauthorized},
		{name: "unknown token", token: "deadbeef", status: http.StatusUnauthorized},
		{name: "revoked token", token: revokedTokenValue, status: http.StatusUnauthorized},
		{name: "valid token", token: adminTokenValue, status: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodGet, "/pipelines", tc.token, nil)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestListPipelines(t *testing.T) {
	service := &mockPorch{}
	service.On("Pipelines", mock.Anything, storage.PipelineFilter{Name: "ptest"}).
		Return([]domain.Pipeline{testPipeline}, nil)
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodGet, "/pipelines?pipeline_name=ptest", adminTokenValue, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var pipelines []domain.Pipeline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pipelines))
	require.Len(t, pipelines, 1)
	require.Equal(t, "ptest", pipelines[0].Name)
	service.AssertExpectations(t)
}

func TestGetPipeline_NotFound(t *testing.T) {
	service := &mockPorch{}
	service.On("PipelineVersions", mock.Anything, "nope").
		Return(nil, serrors.With(serrors.ErrNotFound, "pipeline %q not found", "nope"))
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodGet, "/pipelines/nope", adminTokenValue, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "not found")
}

func TestCreatePipeline(t *testing.T) {
	service := &mockPorch{}
	service.On("RegisterPipeline",
		mock.Anything,
		mock.MatchedBy(func(actor domain.Token) bool { return actor.Admin() }),
		mock.MatchedBy(func(p domain.Pipeline) bool { return p.Name == "ptest" })).
		Return(&testPipeline, nil)
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodPost, "/pipelines", adminTokenValue, testPipeline)
	require.Equal(t, http.StatusCreated, rec.Code)
	service.AssertExpectations(t)
}

func TestCreatePipeline_InvalidBody(t *testing.T) {
	router := newTestRouter(t, &mockPorch{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/pipelines", bytes.NewReader([]byte("not json")))
	req.Header.Set("Authorization", "Bearer "+adminTokenValue)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateToken(t *testing.T) {
	issued := domain.Token{
		ID:          7,
		Pipeline:    &testPipeline,
		Description: "new runner",
		Value:       domain.NewTokenValue(),
	}
	service := &mockPorch{}
	service.On("IssueToken", mock.Anything, mock.Anything, "ptest", "new runner").
		Return(&issued, nil)
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodPost, "/pipelines/ptest/token/new%20runner", adminTokenValue, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, issued.Value, body["token"])
	service.AssertExpectations(t)
}

func TestCreateTask(t *testing.T) {
	stored := domain.Task{
		ID:            11,
		Pipeline:      testPipeline,
		Definition:    json.RawMessage(`{"id_run":42}`),
		JobDescriptor: "abc",
		State:         domain.TaskStatePending,
	}

	tests := []struct {
		name   string
		isNew  bool
		status int
	}{
		{name: "new task", isNew: true, status: http.StatusCreated},
		{name: "existing task", isNew: false, status: http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := &mockPorch{}
			service.On("CreateTask", mock.Anything, mock.Anything, mock.Anything).
				Return(&stored, tc.isNew, nil)
			router := newTestRouter(t, service, nil)

			body := domain.Task{
				Pipeline:   testPipeline,
				Definition: json.RawMessage(`{"id_run":42}`),
			}
			rec := doRequest(router, http.MethodPost, "/tasks", pipelineTokenValue, body)
			require.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestUpdateTask_IllegalTransition(t *testing.T) {
	service := &mockPorch{}
	service.On("UpdateTask", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, serrors.With(serrors.ErrConflict, "cannot move task from PENDING to RUNNING"))
	router := newTestRouter(t, service, nil)

	body := domain.Task{
		Pipeline:      testPipeline,
		JobDescriptor: "abc",
		State:         domain.TaskStateRunning,
	}
	rec := doRequest(router, http.MethodPut, "/tasks", pipelineTokenValue, body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestClaimTasks(t *testing.T) {
	claimed := []domain.Task{
		{ID: 1, Pipeline: testPipeline, State: domain.TaskStateClaimed},
		{ID: 2, Pipeline: testPipeline, State: domain.TaskStateClaimed},
	}
	service := &mockPorch{}
	service.On("ClaimTasks", mock.Anything, mock.Anything, mock.Anything, uint(2)).
		Return(claimed, nil)
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodPost, "/tasks/claim?num_tasks=2", pipelineTokenValue, testPipeline)
	require.Equal(t, http.StatusOK, rec.Code)

	var tasks []domain.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tasks))
	require.Len(t, tasks, 2)
	service.AssertExpectations(t)
}

func TestClaimTasks_NothingPending(t *testing.T) {
	service := &mockPorch{}
	service.On("ClaimTasks", mock.Anything, mock.Anything, mock.Anything, uint(0)).
		Return(nil, nil)
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodPost, "/tasks/claim", pipelineTokenValue, testPipeline)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())
}

func TestClaimTasks_InvalidNumTasks(t *testing.T) {
	router := newTestRouter(t, &mockPorch{}, nil)

	rec := doRequest(router, http.MethodPost, "/tasks/claim?num_tasks=zero", pipelineTokenValue, testPipeline)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTasks(t *testing.T) {
	next := time.Now().UTC().Format(time.RFC3339Nano)
	service := &mockPorch{}
	service.On("Tasks", mock.Anything,
		storage.TaskFilter{PipelineName: "ptest", State: domain.TaskStatePending, Limit: 20}, "").
		Return([]domain.Task{{ID: 5, Pipeline: testPipeline, State: domain.TaskStatePending}}, next, nil)
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodGet,
		"/tasks?pipeline_name=ptest&status=PENDING", adminTokenValue, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tasks      []domain.Task `json:"tasks"`
		NextCursor string        `json:"next_cursor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Tasks, 1)
	require.Equal(t, next, body.NextCursor)
	service.AssertExpectations(t)
}

func TestListTasks_LimitClamped(t *testing.T) {
	service := &mockPorch{}
	service.On("Tasks", mock.Anything, storage.TaskFilter{Limit: 100}, "").
		Return([]domain.Task{}, "", nil)
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodGet, "/tasks?limit=4000000000", adminTokenValue, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestListTasks_UnknownStatus(t *testing.T) {
	router := newTestRouter(t, &mockPorch{}, nil)

	rec := doRequest(router, http.MethodGet, "/tasks?status=SLEEPING", adminTokenValue, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTask(t *testing.T) {
	task := domain.Task{
		ID:       9,
		Pipeline: testPipeline,
		State:    domain.TaskStateDone,
	}
	events := []domain.Event{
		{ID: 1, TaskID: 9, Change: domain.EventCreated, Time: time.Now()},
		{ID: 2, TaskID: 9, Change: domain.StateChange(domain.TaskStateRunning, domain.TaskStateDone), Time: time.Now()},
	}
	service := &mockPorch{}
	service.On("Task", mock.Anything, domain.TaskID(9)).Return(&task, events, nil)
	router := newTestRouter(t, service, nil)

	rec := doRequest(router, http.MethodGet, fmt.Sprintf("/tasks/%d", task.ID), adminTokenValue, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, string(domain.TaskStateDone), body["status"])
	require.Len(t, body["events"], 2)
	service.AssertExpectations(t)
}
