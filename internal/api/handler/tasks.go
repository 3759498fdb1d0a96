package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/serrors"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// taskList is the response body of a task listing. NextCursor is empty on
// the last page.
type taskList struct {
	Tasks      []domain.Task `json:"tasks"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// taskDetail is the response body of a single task fetch, carrying the
// task's event trail alongside the task itself.
type taskDetail struct {
	domain.Task

	Events []domain.Event `json:"events"`
}

// ListTasks returns a page of tasks, optionally filtered by the
// pipeline_name and status query parameters. Pagination uses the opaque
// cursor returned with the previous page.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := storage.TaskFilter{
		PipelineName: query.Get("pipeline_name"),
		Limit:        h.opts.DefaultPageLimit,
	}
	if status := query.Get("status"); status != "" {
		state := domain.TaskState(status)
		if !state.Valid() {
			respondError(ctx, w, serrors.With(serrors.ErrBadRequest, "unknown task status %q", status))

			return
		}
		filter.State = state
	}
	if limit := query.Get("limit"); limit != "" {
		n, err := strconv.ParseUint(limit, 10, 32)
		if err != nil || n == 0 {
			respondError(ctx, w, serrors.With(serrors.ErrBadRequest, "invalid limit %q", limit))

			return
		}
		filter.Limit = uint(n)
	}
	if h.opts.MaxPageLimit > 0 && filter.Limit > h.opts.MaxPageLimit {
		filter.Limit = h.opts.MaxPageLimit
	}

	tasks, next, err := h.deps.Service.Tasks(ctx, filter, query.Get("cursor"))
	if err != nil {
		respondError(ctx, w, err)

		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	respondJSON(ctx, w, http.StatusOK, taskList{Tasks: tasks, NextCursor: next})
}

// GetTask returns one task together with its event trail.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["task_id"], 10, 64)
	if err != nil {
		respondError(ctx, w, serrors.Wrap(serrors.ErrBadRequest, err, "invalid task id"))

		return
	}

	task, events, err := h.deps.Service.Task(ctx, domain.TaskID(id))
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	respondJSON(ctx, w, http.StatusOK, taskDetail{Task: *task, Events: events})
}

// CreateTask registers a new task for a pipeline. Re-registering an
// identical definition is not an error: the existing task is returned with
// 200 instead of 201.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFromContext(ctx)

	var task domain.Task
	if err := decodeBody(r, &task); err != nil {
		respondError(ctx, w, err)

		return
	}

	created, isNew, err := h.deps.Service.CreateTask(ctx, actor, task)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	respondJSON(ctx, w, status, created)
}

// UpdateTask moves a task to the state named in the request body. The task
// is identified by its pipeline and job descriptor (or full definition).
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFromContext(ctx)

	var task domain.Task
	if err := decodeBody(r, &task); err != nil {
		respondError(ctx, w, err)

		return
	}

	updated, err := h.deps.Service.UpdateTask(ctx, actor, task)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	respondJSON(ctx, w, http.StatusOK, updated)
}

// ClaimTasks hands out up to num_tasks oldest pending tasks of the pipeline
// in the request body to the calling token.
func (h *Handler) ClaimTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFromContext(ctx)

	var limit uint
	if numTasks := r.URL.Query().Get("num_tasks"); numTasks != "" {
		n, err := strconv.ParseUint(numTasks, 10, 32)
		if err != nil || n == 0 {
			respondError(ctx, w, serrors.With(serrors.ErrBadRequest, "invalid num_tasks %q", numTasks))

			return
		}
		limit = uint(n)
	}

	var pipeline domain.Pipeline
	if err := decodeBody(r, &pipeline); err != nil {
		respondError(ctx, w, err)

		return
	}

	claimed, err := h.deps.Service.ClaimTasks(ctx, actor, pipeline, limit)
	if err != nil {
		respondError(ctx, w, err)

		return
	}
	if claimed == nil {
		claimed = []domain.Task{}
	}

	respondJSON(ctx, w, http.StatusOK, claimed)
}
