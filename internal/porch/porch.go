package porch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mgcam/npg-porch/internal/config"
	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/logger"
	"github.com/mgcam/npg-porch/pkg/metrics"
	"github.com/mgcam/npg-porch/pkg/serrors"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// Options configure claim limits and the stale claim sweep.
type Options struct {
	// MaxClaimLimit caps the number of tasks a single claim request may
	// take.
	MaxClaimLimit uint
	// ClaimTTL is how long a claim may sit without a state change before
	// the sweeper releases it. Zero disables sweeping.
	ClaimTTL time.Duration
}

// NewOptions constructs an Options value from the application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxClaimLimit: cfg.Porch.MaxClaimLimit,
		ClaimTTL:      cfg.Porch.ClaimTTL,
	}
}

// porch is the concrete implementation of the Porch interface.
type porch struct {
	options Options
	storage storage.Storage
}

// New creates a Porch service backed by the provided storage.
func New(storage storage.Storage, options Options) Porch {
	return &porch{
		options: options,
		storage: storage,
	}
}

// requireAdmin rejects callers whose token is bound to a pipeline.
func requireAdmin(actor domain.Token) error {
	if !actor.Admin() {
		return serrors.With(serrors.ErrForbidden, "operation requires an admin token")
	}

	return nil
}

// requirePipelineAccess rejects pipeline-bound tokens operating on a
// different pipeline. Admin tokens may act on any pipeline.
func requirePipelineAccess(actor domain.Token, pipelineName string) error {
	if actor.Admin() || actor.Pipeline.Name == pipelineName {
		return nil
	}

	return serrors.With(serrors.ErrForbidden,
		"token is not valid for pipeline %q", pipelineName)
}

// RegisterPipeline records a new pipeline version.
func (p *porch) RegisterPipeline(
	ctx context.Context,
	actor domain.Token,
	pl domain.Pipeline) (*domain.Pipeline, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if pl.Name == "" || pl.Version == "" || pl.RepositoryURI == "" {
		return nil, serrors.With(serrors.ErrBadRequest,
			"pipeline name, version and uri are all required")
	}

	stored, err := p.storage.StorePipeline(ctx, pl)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, serrors.Wrap(serrors.ErrConflict, err,
				"pipeline %s version %s already exists", pl.Name, pl.Version)
		}

		return nil, fmt.Errorf("could not register pipeline: %w", err)
	}

	return stored, nil
}

// Pipelines lists registered pipelines matching the filter.
func (p *porch) Pipelines(ctx context.Context, filter storage.PipelineFilter) ([]domain.Pipeline, error) {
	pipelines, err := p.storage.Pipelines(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("could not list pipelines: %w", err)
	}

	return pipelines, nil
}

// PipelineVersions lists all versions registered under a name.
func (p *porch) PipelineVersions(ctx context.Context, name string) ([]domain.Pipeline, error) {
	pipelines, err := p.storage.Pipelines(ctx, storage.PipelineFilter{Name: name})
	if err != nil {
		return nil, fmt.Errorf("could not list pipeline versions: %w", err)
	}
	if len(pipelines) == 0 {
		return nil, serrors.With(serrors.ErrNotFound, "pipeline %q not found", name)
	}

	return pipelines, nil
}

// IssueToken mints a token bound to the latest version of the named
// pipeline.
func (p *porch) IssueToken(
	ctx context.Context,
	actor domain.Token,
	pipelineName, description string) (*domain.Token, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	pipeline, err := p.storage.FindPipeline(ctx, pipelineName, domain.LatestVersion)
	if err != nil {
		return nil, fmt.Errorf("could not resolve pipeline: %w", err)
	}
	if pipeline == nil {
		return nil, serrors.With(serrors.ErrNotFound, "pipeline %q not found", pipelineName)
	}

	token, err := p.storage.StoreToken(ctx, domain.Token{
		Pipeline:    pipeline,
		Description: description,
		Value:       domain.NewTokenValue(),
	})
	if err != nil {
		return nil, fmt.Errorf("could not issue token: %w", err)
	}

	return token, nil
}

// resolvePipeline maps a client-supplied pipeline reference to a stored
// row, treating an empty or "latest" version as the newest one.
func (p *porch) resolvePipeline(ctx context.Context, ref domain.Pipeline) (*domain.Pipeline, error) {
	if ref.Name == "" {
		return nil, serrors.With(serrors.ErrBadRequest, "pipeline name is required")
	}

	pipeline, err := p.storage.FindPipeline(ctx, ref.Name, ref.Version)
	if err != nil {
		return nil, fmt.Errorf("could not resolve pipeline: %w", err)
	}
	if pipeline == nil {
		return nil, serrors.With(serrors.ErrNotFound,
			"pipeline %q version %q not found", ref.Name, ref.Version)
	}

	return pipeline, nil
}

// CreateTask registers a task for its pipeline. Creation is idempotent on
// the task definition: registering an identical definition again returns
// the existing task.
func (p *porch) CreateTask(
	ctx context.Context,
	actor domain.Token,
	t domain.Task) (*domain.Task, bool, error) {
	if err := requirePipelineAccess(actor, t.Pipeline.Name); err != nil {
		return nil, false, err
	}
	if t.State != "" && t.State != domain.TaskStatePending {
		return nil, false, serrors.With(serrors.ErrBadRequest,
			"new tasks must be in state %s, got %s", domain.TaskStatePending, t.State)
	}
	if len(t.Definition) == 0 {
		return nil, false, serrors.With(serrors.ErrBadRequest, "task definition is required")
	}

	pipeline, err := p.resolvePipeline(ctx, t.Pipeline)
	if err != nil {
		return nil, false, err
	}

	descriptor, err := domain.JobDescriptor(t.Definition)
	if err != nil {
		return nil, false, serrors.Wrap(serrors.ErrBadRequest, err, "invalid task definition")
	}

	var stored *domain.Task
	err = p.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		var txErr error
		stored, txErr = tx.StoreTask(ctx, domain.Task{
			Pipeline:      *pipeline,
			Definition:    t.Definition,
			JobDescriptor: descriptor,
			State:         domain.TaskStatePending,
		})
		if txErr != nil {
			return txErr
		}

		_, txErr = tx.StoreEvent(ctx, domain.Event{
			TaskID:  stored.ID,
			TokenID: tokenID(actor),
			Change:  domain.EventCreated,
		})

		return txErr
	})
	if err == nil {
		return stored, true, nil
	}

	if !errors.Is(err, storage.ErrDuplicate) {
		return nil, false, fmt.Errorf("could not create task: %w", err)
	}

	// Same definition registered before: hand back the existing task.
	existing, err := p.storage.TaskByDescriptor(ctx, pipeline.ID, descriptor)
	if err != nil {
		return nil, false, fmt.Errorf("could not fetch existing task: %w", err)
	}
	if existing == nil {
		return nil, false, serrors.With(serrors.ErrConflict,
			"task for this definition exists but could not be retrieved")
	}

	return existing, false, nil
}

// UpdateTask moves a task to the requested state, enforcing the state
// machine and recording an event.
func (p *porch) UpdateTask(ctx context.Context, actor domain.Token, t domain.Task) (*domain.Task, error) {
	if err := requirePipelineAccess(actor, t.Pipeline.Name); err != nil {
		return nil, err
	}
	if !t.State.Valid() {
		return nil, serrors.With(serrors.ErrBadRequest, "unknown task state %q", t.State)
	}

	pipeline, err := p.resolvePipeline(ctx, t.Pipeline)
	if err != nil {
		return nil, err
	}

	descriptor := t.JobDescriptor
	if descriptor == "" {
		if len(t.Definition) == 0 {
			return nil, serrors.With(serrors.ErrBadRequest,
				"either a task definition or its descriptor is required")
		}
		if descriptor, err = domain.JobDescriptor(t.Definition); err != nil {
			return nil, serrors.Wrap(serrors.ErrBadRequest, err, "invalid task definition")
		}
	}

	current, err := p.storage.TaskByDescriptor(ctx, pipeline.ID, descriptor)
	if err != nil {
		return nil, fmt.Errorf("could not fetch task: %w", err)
	}
	if current == nil {
		return nil, serrors.With(serrors.ErrNotFound,
			"task not found for pipeline %q", pipeline.Name)
	}

	if current.State == t.State {
		return current, nil
	}
	if !current.State.CanTransitionTo(t.State) {
		return nil, serrors.With(serrors.ErrConflict,
			"cannot change task state from %s to %s", current.State, t.State)
	}

	var updated *domain.Task
	err = p.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		state := t.State
		from := current.State
		updates := storage.TaskUpdates{
			State: &state,
			// the transition was validated against this state; a row that
			// moved on since the read must not be overwritten
			FromState: &from,
			// a task returned to the pending pool loses its claim
			ClearClaim: state == domain.TaskStatePending,
		}

		var txErr error
		updated, txErr = tx.UpdateTaskByID(ctx, current.ID, updates)
		if txErr != nil {
			return txErr
		}
		if updated == nil {
			return serrors.With(serrors.ErrConflict,
				"task state changed concurrently, no longer %s", current.State)
		}

		_, txErr = tx.StoreEvent(ctx, domain.Event{
			TaskID:  current.ID,
			TokenID: tokenID(actor),
			Change:  domain.StateChange(current.State, state),
		})

		return txErr
	})
	if err != nil {
		return nil, fmt.Errorf("could not update task: %w", err)
	}

	return updated, nil
}

// ClaimTasks atomically hands out up to limit oldest pending tasks of the
// pipeline to the actor.
func (p *porch) ClaimTasks(
	ctx context.Context,
	actor domain.Token,
	ref domain.Pipeline,
	limit uint) ([]domain.Task, error) {
	if err := requirePipelineAccess(actor, ref.Name); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = 1
	}
	if p.options.MaxClaimLimit > 0 && limit > p.options.MaxClaimLimit {
		limit = p.options.MaxClaimLimit
	}

	pipeline, err := p.resolvePipeline(ctx, ref)
	if err != nil {
		return nil, err
	}

	var claimed []domain.Task
	err = p.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		var txErr error
		claimed, txErr = tx.ClaimTasks(ctx, pipeline.ID, actor.ID, limit)
		if txErr != nil {
			return txErr
		}

		for i := range claimed {
			if _, txErr = tx.StoreEvent(ctx, domain.Event{
				TaskID:  claimed[i].ID,
				TokenID: tokenID(actor),
				Change:  domain.EventClaimed,
			}); txErr != nil {
				return txErr
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not claim tasks: %w", err)
	}

	metrics.TasksClaimed.WithLabelValues(pipeline.Name).Add(float64(len(claimed)))

	return claimed, nil
}

// Tasks returns a page of tasks. The cursor is an RFC3339 timestamp issued
// by a previous call.
func (p *porch) Tasks(
	ctx context.Context,
	filter storage.TaskFilter,
	cursor string) ([]domain.Task, string, error) {
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor")
		}
		filter.Cursor = t
	}

	page, err := p.storage.Tasks(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("could not list tasks: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = page.NextCursor.Format(time.RFC3339Nano)
	}

	return page.Tasks, next, nil
}

// Task fetches one task and its event trail.
func (p *porch) Task(ctx context.Context, id domain.TaskID) (*domain.Task, []domain.Event, error) {
	task, err := p.storage.TaskByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("could not fetch task: %w", err)
	}
	if task == nil {
		return nil, nil, serrors.With(serrors.ErrNotFound, "task %d not found", id)
	}

	events, err := p.storage.TaskEvents(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("could not fetch task events: %w", err)
	}

	return task, events, nil
}

// ReleaseStaleClaims returns tasks whose claim sat unchanged past the TTL
// to the pending pool, recording an event per released task.
func (p *porch) ReleaseStaleClaims(ctx context.Context) (int, error) {
	if p.options.ClaimTTL <= 0 {
		return 0, nil
	}

	deadline := time.Now().Add(-p.options.ClaimTTL)

	var released []domain.Task
	err := p.storage.WithTx(ctx, func(tx storage.AllStorage) error {
		var txErr error
		released, txErr = tx.ReleaseStaleClaims(ctx, deadline)
		if txErr != nil {
			return txErr
		}

		for i := range released {
			if _, txErr = tx.StoreEvent(ctx, domain.Event{
				TaskID: released[i].ID,
				Change: domain.EventClaimExpired,
			}); txErr != nil {
				return txErr
			}
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("could not release stale claims: %w", err)
	}

	if len(released) > 0 {
		metrics.ClaimsExpired.Add(float64(len(released)))
		logger.Info(ctx, "released stale task claims",
			zap.Int("count", len(released)),
			zap.Duration("claimTTL", p.options.ClaimTTL))
	}

	return len(released), nil
}

// tokenID returns a pointer to the actor's token id for event records, nil
// for the zero token used by internal callers.
func tokenID(actor domain.Token) *domain.TokenID {
	if actor.ID == 0 {
		return nil
	}
	id := actor.ID

	return &id
}
