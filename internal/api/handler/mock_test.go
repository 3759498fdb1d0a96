package handler_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// mockPorch is a testify mock of the porch service interface.
type mockPorch struct {
	mock.Mock
}

func (m *mockPorch) RegisterPipeline(
	ctx context.Context,
	actor domain.Token,
	p domain.Pipeline) (*domain.Pipeline, error) {
	args := m.Called(ctx, actor, p)
	pipeline, _ := args.Get(0).(*domain.Pipeline)

	return pipeline, args.Error(1)
}

func (m *mockPorch) Pipelines(ctx context.Context, filter storage.PipelineFilter) ([]domain.Pipeline, error) {
	args := m.Called(ctx, filter)
	pipelines, _ := args.Get(0).([]domain.Pipeline)

	return pipelines, args.Error(1)
}

func (m *mockPorch) PipelineVersions(ctx context.Context, name string) ([]domain.Pipeline, error) {
	args := m.Called(ctx, name)
	pipelines, _ := args.Get(0).([]domain.Pipeline)

	return pipelines, args.Error(1)
}

func (m *mockPorch) IssueToken(
	ctx context.Context,
	actor domain.Token,
	pipelineName, description string) (*domain.Token, error) {
	args := m.Called(ctx, actor, pipelineName, description)
	token, _ := args.Get(0).(*domain.Token)

	return token, args.Error(1)
}

func (m *mockPorch) CreateTask(ctx context.Context, actor domain.Token, t domain.Task) (*domain.Task, bool, error) {
	args := m.Called(ctx, actor, t)
	task, _ := args.Get(0).(*domain.Task)

	return task, args.Bool(1), args.Error(2)
}

func (m *mockPorch) UpdateTask(ctx context.Context, actor domain.Token, t domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, actor, t)
	task, _ := args.Get(0).(*domain.Task)

	return task, args.Error(1)
}

func (m *mockPorch) ClaimTasks(
	ctx context.Context,
	actor domain.Token,
	pipeline domain.Pipeline,
	limit uint) ([]domain.Task, error) {
	args := m.Called(ctx, actor, pipeline, limit)
	tasks, _ := args.Get(0).([]domain.Task)

	return tasks, args.Error(1)
}

func (m *mockPorch) Tasks(
	ctx context.Context,
	filter storage.TaskFilter,
	cursor string) ([]domain.Task, string, error) {
	args := m.Called(ctx, filter, cursor)
	tasks, _ := args.Get(0).([]domain.Task)

	return tasks, args.String(1), args.Error(2)
}

func (m *mockPorch) Task(ctx context.Context, id domain.TaskID) (*domain.Task, []domain.Event, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*domain.Task)
	events, _ := args.Get(1).([]domain.Event)

	return task, events, args.Error(2)
}

func (m *mockPorch) ReleaseStaleClaims(ctx context.Context) (int, error) {
	args := m.Called(ctx)

	return args.Int(0), args.Error(1)
}

// stubStore implements the storage handle used by the auth middleware and
// the health endpoint. Tokens are looked up in a fixed map; everything else
// panics through the embedded nil interface.
type stubStore struct {
	storage.Storage

	tokens  map[string]domain.Token
	pingErr error
}

func (s *stubStore) TokenByValue(ctx context.Context, value string) (*domain.Token, error) {
	token, ok := s.tokens[value]
	if !ok {
		return nil, nil
	}

	return &token, nil
}

func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }
