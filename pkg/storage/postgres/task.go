package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// StoreTask inserts a new task and returns the stored row with its pipeline
// attached.
func (p *PgSQL) StoreTask(ctx context.Context, d domain.Task) (*domain.Task, error) {
	var row PgTask
	row.FromDomain(d)

	var stored PgTask
	found, err := p.Builder.Insert(taskTable).
		Rows(row).
		Returning(&PgTask{}).
		Executor().ScanStructContext(ctx, &stored)
	if err != nil {
		return nil, fmt.Errorf("could not store task into pg: %w", mapUnique(err))
	}
	if !found {
		return nil, fmt.Errorf("could not store task into pg: no row returned")
	}

	return p.withPipeline(ctx, stored.ToDomain())
}

// TaskByID fetches one task with its pipeline. Returns nil when absent.
func (p *PgSQL) TaskByID(ctx context.Context, id domain.TaskID) (*domain.Task, error) {
	var row PgTask
	found, err := p.Builder.From(taskTable).
		Where(goqu.I("task_id").Eq(int64(id))).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch task by id from pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return p.withPipeline(ctx, row.ToDomain())
}

// TaskByDescriptor fetches one task of a pipeline by its job descriptor.
// Returns nil when absent.
func (p *PgSQL) TaskByDescriptor(
	ctx context.Context,
	pipelineID domain.PipelineID,
	descriptor string) (*domain.Task, error) {
	var row PgTask
	found, err := p.Builder.From(taskTable).
		Where(
			goqu.I("pipeline_id").Eq(int64(pipelineID)),
			goqu.I("job_descriptor").Eq(descriptor),
		).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not fetch task by descriptor from pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return p.withPipeline(ctx, row.ToDomain())
}

// UpdateTaskByID applies updates to a single task and returns the updated
// row. Returns nil when the task does not exist or, with FromState set, when
// a concurrent writer moved it out of the expected state first.
func (p *PgSQL) UpdateTaskByID(
	ctx context.Context,
	id domain.TaskID,
	updates storage.TaskUpdates) (*domain.Task, error) {
	rec := goqu.Record{
		"updated": goqu.L("CURRENT_TIMESTAMP"),
	}
	if updates.State != nil {
		rec["state"] = string(*updates.State)
	}
	switch {
	case updates.ClearClaim:
		rec["claimed_by"] = goqu.L("NULL")
	case updates.ClaimedBy != nil:
		rec["claimed_by"] = int64(*updates.ClaimedBy)
	}

	w := []goqu.Expression{goqu.I("task_id").Eq(int64(id))}
	if updates.FromState != nil {
		w = append(w, goqu.I("state").Eq(string(*updates.FromState)))
	}

	var row PgTask
	found, err := p.Builder.Update(taskTable).
		Set(rec).
		Where(w...).
		Returning(&PgTask{}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("could not update task in pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return p.withPipeline(ctx, row.ToDomain())
}

// Tasks returns a page of tasks matching the filter, ordered by creation
// time descending. One extra row is fetched to detect whether a next page
// exists.
func (p *PgSQL) Tasks(ctx context.Context, filter storage.TaskFilter) (storage.TaskPage, error) {
	w := []goqu.Expression{}
	if filter.PipelineName != "" {
		w = append(w, goqu.I("pipeline_id").In(
			goqu.From(pipelineTable).
				Select("pipeline_id").
				Where(goqu.I("name").Eq(filter.PipelineName)),
		))
	}
	if filter.State != "" {
		w = append(w, goqu.I("state").Eq(string(filter.State)))
	}
	if !filter.Cursor.IsZero() {
		w = append(w, goqu.I("created").Lt(filter.Cursor))
	}

	fetch := filter.Limit + 1
	ds := p.Builder.From(taskTable).
		Where(w...).
		Order(goqu.I("created").Desc(), goqu.I("task_id").Desc())
	if filter.Limit > 0 {
		ds = ds.Limit(fetch)
	}

	var rows []PgTask
	if err := ds.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return storage.TaskPage{}, fmt.Errorf("could not fetch tasks from pg: %w", err)
	}

	var nextCursor *time.Time
	if filter.Limit > 0 && uint(len(rows)) > filter.Limit {
		trimmed := rows[:filter.Limit]
		nextCursor = &trimmed[len(trimmed)-1].Created
		rows = trimmed
	}

	tasks, err := p.attachPipelines(ctx, pgTasksToDomain(rows))
	if err != nil {
		return storage.TaskPage{}, err
	}

	return storage.TaskPage{
		Tasks:      tasks,
		NextCursor: nextCursor,
	}, nil
}

// ClaimTasks atomically claims up to limit oldest pending tasks of the
// pipeline for the token. The inner select locks candidate rows with
// FOR UPDATE SKIP LOCKED so concurrent claimers never hand out the same
// task twice.
func (p *PgSQL) ClaimTasks(
	ctx context.Context,
	pipelineID domain.PipelineID,
	tokenID domain.TokenID,
	limit uint) ([]domain.Task, error) {
	if limit == 0 {
		return nil, nil
	}

	sub := goqu.From(taskTable).
		Select("task_id").
		Where(
			goqu.I("pipeline_id").Eq(int64(pipelineID)),
			goqu.I("state").Eq(string(domain.TaskStatePending)),
		).
		Order(goqu.I("created").Asc(), goqu.I("task_id").Asc()).
		Limit(limit).
		ForUpdate(exp.SkipLocked)

	var rows []PgTask
	if err := p.Builder.Update(taskTable).
		Set(goqu.Record{
			"state":      string(domain.TaskStateClaimed),
			"claimed_by": int64(tokenID),
			"updated":    goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(goqu.I("task_id").In(sub)).
		Returning(&PgTask{}).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not claim tasks in pg: %w", err)
	}

	// RETURNING has no defined order; hand tasks out oldest first.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Created.Equal(rows[j].Created) {
			return rows[i].TaskID < rows[j].TaskID
		}

		return rows[i].Created.Before(rows[j].Created)
	})

	return p.attachPipelines(ctx, pgTasksToDomain(rows))
}

// ReleaseStaleClaims returns tasks claimed before the deadline to the
// pending pool and reports the released rows.
func (p *PgSQL) ReleaseStaleClaims(ctx context.Context, deadline time.Time) ([]domain.Task, error) {
	var rows []PgTask
	if err := p.Builder.Update(taskTable).
		Set(goqu.Record{
			"state":      string(domain.TaskStatePending),
			"claimed_by": goqu.L("NULL"),
			"updated":    goqu.L("CURRENT_TIMESTAMP"),
		}).
		Where(
			goqu.I("state").Eq(string(domain.TaskStateClaimed)),
			goqu.I("updated").Lt(deadline),
		).
		Returning(&PgTask{}).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not release stale claims in pg: %w", err)
	}

	return p.attachPipelines(ctx, pgTasksToDomain(rows))
}

// StoreEvent appends an entry to a task's event trail.
func (p *PgSQL) StoreEvent(ctx context.Context, d domain.Event) (*domain.Event, error) {
	var row PgEvent
	row.FromDomain(d)

	var stored PgEvent
	found, err := p.Builder.Insert(eventTable).
		Rows(row).
		Returning(&PgEvent{}).
		Executor().ScanStructContext(ctx, &stored)
	if err != nil {
		return nil, fmt.Errorf("could not store event into pg: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("could not store event into pg: no row returned")
	}

	out := stored.ToDomain()

	return &out, nil
}

// TaskEvents lists the event trail of a task, oldest first.
func (p *PgSQL) TaskEvents(ctx context.Context, taskID domain.TaskID) ([]domain.Event, error) {
	var rows []PgEvent
	if err := p.Builder.From(eventTable).
		Where(goqu.I("task_id").Eq(int64(taskID))).
		Order(goqu.I("time").Asc(), goqu.I("event_id").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not fetch task events from pg: %w", err)
	}

	out := make([]domain.Event, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}

	return out, nil
}

// withPipeline attaches the pipeline row to a single task.
func (p *PgSQL) withPipeline(ctx context.Context, task domain.Task) (*domain.Task, error) {
	tasks, err := p.attachPipelines(ctx, []domain.Task{task})
	if err != nil {
		return nil, err
	}

	return &tasks[0], nil
}

// attachPipelines resolves the pipelines referenced by the tasks in one
// query and fills them in.
func (p *PgSQL) attachPipelines(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]int64, 0, len(tasks))
	seen := map[int64]bool{}
	for i := range tasks {
		id := int64(tasks[i].Pipeline.ID)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	pipelines, err := p.pipelinesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	for i := range tasks {
		if pl, ok := pipelines[int64(tasks[i].Pipeline.ID)]; ok {
			tasks[i].Pipeline = pl
		}
	}

	return tasks, nil
}
