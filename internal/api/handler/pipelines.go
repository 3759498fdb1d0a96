package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// ListPipelines returns registered pipelines, optionally filtered by the
// pipeline_name, version and uri query parameters.
func (h *Handler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	pipelines, err := h.deps.Service.Pipelines(ctx, storage.PipelineFilter{
		Name:    query.Get("pipeline_name"),
		Version: query.Get("version"),
		URI:     query.Get("uri"),
	})
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	respondJSON(ctx, w, http.StatusOK, pipelines)
}

// GetPipeline returns all registered versions of one pipeline, newest first.
func (h *Handler) GetPipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	versions, err := h.deps.Service.PipelineVersions(ctx, mux.Vars(r)["pipeline_name"])
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	respondJSON(ctx, w, http.StatusOK, versions)
}

// CreatePipeline registers a new pipeline version.
func (h *Handler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFromContext(ctx)

	var pipeline domain.Pipeline
	if err := decodeBody(r, &pipeline); err != nil {
		respondError(ctx, w, err)

		return
	}

	created, err := h.deps.Service.RegisterPipeline(ctx, actor, pipeline)
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	respondJSON(ctx, w, http.StatusCreated, created)
}

// CreateToken issues a new token bound to the pipeline named in the path.
func (h *Handler) CreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := ActorFromContext(ctx)
	vars := mux.Vars(r)

	token, err := h.deps.Service.IssueToken(ctx, actor, vars["pipeline_name"], vars["token_desc"])
	if err != nil {
		respondError(ctx, w, err)

		return
	}

	respondJSON(ctx, w, http.StatusCreated, token)
}
