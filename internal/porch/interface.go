// Package porch implements the task tracking service: pipeline
// registration, task creation and updates, atomic claims, token issuance
// and the stale claim sweep. It coordinates the storage layer and enforces
// the task state machine; it never executes pipelines.
package porch

import (
	"context"

	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// Porch is the service interface consumed by the HTTP handlers and the
// background sweeper. The actor argument is the authenticated token of the
// caller; operations enforce what each class of token may do.
type Porch interface {
	// RegisterPipeline records a new pipeline version. Requires an admin
	// token.
	RegisterPipeline(ctx context.Context, actor domain.Token, p domain.Pipeline) (*domain.Pipeline, error)
	// Pipelines lists registered pipelines matching the filter.
	Pipelines(ctx context.Context, filter storage.PipelineFilter) ([]domain.Pipeline, error)
	// PipelineVersions lists all versions registered under a name, newest
	// first. Returns a not-found error when the name is unknown.
	PipelineVersions(ctx context.Context, name string) ([]domain.Pipeline, error)
	// IssueToken mints a token bound to the named pipeline. Requires an
	// admin token.
	IssueToken(ctx context.Context, actor domain.Token, pipelineName, description string) (*domain.Token, error)

	// CreateTask registers a task for its pipeline. The returned bool is
	// true when a new task was created and false when an identical
	// definition was already registered, in which case the existing task is
	// returned.
	CreateTask(ctx context.Context, actor domain.Token, t domain.Task) (*domain.Task, bool, error)
	// UpdateTask moves the task identified by pipeline and definition to
	// the requested state, recording an event.
	UpdateTask(ctx context.Context, actor domain.Token, t domain.Task) (*domain.Task, error)
	// ClaimTasks atomically hands out up to limit oldest pending tasks of
	// the pipeline to the actor.
	ClaimTasks(ctx context.Context, actor domain.Token, pipeline domain.Pipeline, limit uint) ([]domain.Task, error)
	// Tasks returns a page of tasks with an opaque cursor for the next
	// page, empty on the last one.
	Tasks(ctx context.Context, filter storage.TaskFilter, cursor string) ([]domain.Task, string, error)
	// Task fetches one task and its event trail.
	Task(ctx context.Context, id domain.TaskID) (*domain.Task, []domain.Event, error)

	// ReleaseStaleClaims returns tasks whose claim sat unchanged past the
	// configured TTL to the pending pool and reports how many were
	// released.
	ReleaseStaleClaims(ctx context.Context) (int, error)
}
