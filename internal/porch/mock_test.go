package porch_test

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// mockStorage is a testify mock of the storage handle. WithTx runs the
// callback against the mock itself, so transactional expectations are set up
// the same way as non-transactional ones.
type mockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*mockStorage)(nil)

func (m *mockStorage) StorePipeline(ctx context.Context, p domain.Pipeline) (*domain.Pipeline, error) {
	args := m.Called(ctx, p)
	pipeline, _ := args.Get(0).(*domain.Pipeline)

	return pipeline, args.Error(1)
}

func (m *mockStorage) Pipelines(ctx context.Context, filter storage.PipelineFilter) ([]domain.Pipeline, error) {
	args := m.Called(ctx, filter)
	pipelines, _ := args.Get(0).([]domain.Pipeline)

	return pipelines, args.Error(1)
}

func (m *mockStorage) FindPipeline(ctx context.Context, name, version string) (*domain.Pipeline, error) {
	args := m.Called(ctx, name, version)
	pipeline, _ := args.Get(0).(*domain.Pipeline)

	return pipeline, args.Error(1)
}

func (m *mockStorage) StoreTask(ctx context.Context, t domain.Task) (*domain.Task, error) {
	args := m.Called(ctx, t)
	task, _ := args.Get(0).(*domain.Task)

	return task, args.Error(1)
}

func (m *mockStorage) TaskByID(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*domain.Task)

	return task, args.Error(1)
}

func (m *mockStorage) TaskByDescriptor(
	ctx context.Context,
	pipelineID domain.PipelineID,
	descriptor string) (*domain.Task, error) {
	args := m.Called(ctx, pipelineID, descriptor)
	task, _ := args.Get(0).(*domain.Task)

	return task, args.Error(1)
}

func (m *mockStorage) UpdateTaskByID(
	ctx context.Context,
	id domain.TaskID,
	updates storage.TaskUpdates) (*domain.Task, error) {
	args := m.Called(ctx, id, updates)
	task, _ := args.Get(0).(*domain.Task)

	return task, args.Error(1)
}

func (m *mockStorage) Tasks(ctx context.Context, filter storage.TaskFilter) (storage.TaskPage, error) {
	args := m.Called(ctx, filter)
	page, _ := args.Get(0).(storage.TaskPage)

	return page, args.Error(1)
}

func (m *mockStorage) ClaimTasks(
	ctx context.Context,
	pipelineID domain.PipelineID,
	tokenID domain.TokenID,
	limit uint) ([]domain.Task, error) {
	args := m.Called(ctx, pipelineID, tokenID, limit)
	tasks, _ := args.Get(0).([]domain.Task)

	return tasks, args.Error(1)
}

func (m *mockStorage) ReleaseStaleClaims(ctx context.Context, deadline time.Time) ([]domain.Task, error) {
	args := m.Called(ctx, deadline)
	tasks, _ := args.Get(0).([]domain.Task)

	return tasks, args.Error(1)
}

func (m *mockStorage) StoreEvent(ctx context.Context, e domain.Event) (*domain.Event, error) {
	args := m.Called(ctx, e)
	event, _ := args.Get(0).(*domain.Event)

	return event, args.Error(1)
}

func (m *mockStorage) TaskEvents(ctx context.Context, taskID domain.TaskID) ([]domain.Event, error) {
	args := m.Called(ctx, taskID)
	events, _ := args.Get(0).([]domain.Event)

	return events, args.Error(1)
}

func (m *mockStorage) StoreToken(ctx context.Context, t domain.Token) (*domain.Token, error) {
	args := m.Called(ctx, t)
	token, _ := args.Get(0).(*domain.Token)

	return token, args.Error(1)
}

func (m *mockStorage) TokenByValue(ctx context.Context, value string) (*domain.Token, error) {
	args := m.Called(ctx, value)
	token, _ := args.Get(0).(*domain.Token)

	return token, args.Error(1)
}

func (m *mockStorage) RevokeToken(ctx context.Context, id domain.TokenID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockStorage) Close() error { return nil }

func (m *mockStorage) Ping(ctx context.Context) error { return nil }

func (m *mockStorage) Begin(ctx context.Context) (storage.TxStorage, error) {
	return nil, errors.New("not supported by mock")
}

func (m *mockStorage) WithTx(ctx context.Context, cb func(storage.AllStorage) error) error {
	return cb(m)
}
