package storage

import (
	"context"
	"time"

	"github.com/mgcam/npg-porch/pkg/domain"
)

// TaskUpdates describes a set of optional fields applied to an existing
// task. Only non-nil fields are set; updated_at is always refreshed.
type TaskUpdates struct {
	// State is the new lifecycle state to set.
	State *domain.TaskState
	// FromState, when provided, makes the update conditional: the row is
	// only changed while it is still in this state. A task that moved on
	// since it was read is left untouched.
	FromState *domain.TaskState
	// ClaimedBy, when provided, sets the claiming token.
	ClaimedBy *domain.TokenID
	// ClearClaim releases the claim (claimed_by becomes NULL). It wins over
	// ClaimedBy when both are set.
	ClearClaim bool
}

// TaskFilter narrows a task listing. Zero-valued fields are ignored.
type TaskFilter struct {
	// PipelineName restricts results to tasks of pipelines with this name.
	PipelineName string
	// State restricts results to tasks in this state.
	State domain.TaskState
	// Cursor returns only tasks created strictly before this time.
	Cursor time.Time
	// Limit caps the number of returned tasks.
	Limit uint
}

// TaskPage groups a page of tasks with an optional cursor for the next page.
type TaskPage struct {
	// Tasks contains the current page, ordered by creation time descending.
	Tasks []domain.Task
	// NextCursor is the cursor for fetching the next page, nil on the last
	// page.
	NextCursor *time.Time
}

// TaskStorage defines persistence operations for tasks and their event
// trail.
type TaskStorage interface {
	// StoreTask inserts a new task and returns the stored row. A clash on
	// (pipeline, job descriptor) yields ErrDuplicate.
	StoreTask(ctx context.Context, t domain.Task) (*domain.Task, error)
	// TaskByID fetches one task with its pipeline. Returns nil when absent.
	TaskByID(ctx context.Context, id domain.TaskID) (*domain.Task, error)
	// TaskByDescriptor fetches one task of a pipeline by its job
	// descriptor. Returns nil when absent.
	TaskByDescriptor(ctx context.Context, pipelineID domain.PipelineID, descriptor string) (*domain.Task, error)
	// UpdateTaskByID applies updates to a single task and returns the
	// updated row. Returns nil when the task does not exist or no longer
	// matches updates.FromState.
	UpdateTaskByID(ctx context.Context, id domain.TaskID, updates TaskUpdates) (*domain.Task, error)
	// Tasks returns a page of tasks matching the filter.
	Tasks(ctx context.Context, filter TaskFilter) (TaskPage, error)

	// ClaimTasks atomically moves up to limit oldest pending tasks of the
	// pipeline to the CLAIMED state on behalf of the token, skipping rows
	// locked by concurrent claimers. The claimed tasks are returned oldest
	// first.
	ClaimTasks(ctx context.Context, pipelineID domain.PipelineID, tokenID domain.TokenID, limit uint) ([]domain.Task, error)
	// ReleaseStaleClaims returns tasks claimed before the deadline to the
	// pending pool, clearing their claim, and reports the released rows.
	ReleaseStaleClaims(ctx context.Context, deadline time.Time) ([]domain.Task, error)

	// StoreEvent appends an entry to a task's event trail.
	StoreEvent(ctx context.Context, e domain.Event) (*domain.Event, error)
	// TaskEvents lists the event trail of a task, oldest first.
	TaskEvents(ctx context.Context, taskID domain.TaskID) ([]domain.Event, error)
}
