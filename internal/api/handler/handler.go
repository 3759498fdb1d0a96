// Package handler implements the HTTP endpoints of the porch API on top of
// the porch service. Handlers decode requests, delegate to the service and
// translate semantic errors to response status codes.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mgcam/npg-porch/internal/config"
	"github.com/mgcam/npg-porch/internal/porch"
	"github.com/mgcam/npg-porch/pkg/logger"
	"github.com/mgcam/npg-porch/pkg/serrors"
	"github.com/mgcam/npg-porch/pkg/storage"
)

// Options holds request handling settings derived from the application
// configuration.
type Options struct {
	// DefaultPageLimit is the task listing page size used when the client
	// does not pass a limit.
	DefaultPageLimit uint
	// MaxPageLimit caps the task listing page size a client may request.
	// Zero means no cap.
	MaxPageLimit uint
}

// NewOptions constructs an Options value from the provided application
// configuration.
func NewOptions(cfg *config.Config) Options {
	return Options{
		DefaultPageLimit: cfg.Porch.DefaultPageLimit,
		MaxPageLimit:     cfg.Porch.MaxPageLimit,
	}
}

// Deps groups the dependencies of the HTTP handlers.
type Deps struct {
	// Service implements the porch operations.
	Service porch.Porch
	// Store is used for authenticating bearer tokens and health checks.
	Store storage.Storage
}

// Handler carries the endpoint implementations for the porch API.
type Handler struct {
	deps Deps
	opts Options
}

// New constructs a Handler.
func New(deps Deps, opts Options) *Handler {
	return &Handler{deps: deps, opts: opts}
}

// Register mounts all porch endpoints on the router. Every route except
// /status requires a bearer token.
func (h *Handler) Register(router *mux.Router) {
	router.HandleFunc("/status", h.Status).Methods(http.MethodGet)

	authed := router.PathPrefix("/").Subrouter()
	authed.Use(h.WithAuth)

	authed.HandleFunc("/pipelines", h.ListPipelines).Methods(http.MethodGet)
	authed.HandleFunc("/pipelines", h.CreatePipeline).Methods(http.MethodPost)
	authed.HandleFunc("/pipelines/{pipeline_name}", h.GetPipeline).Methods(http.MethodGet)
	authed.HandleFunc("/pipelines/{pipeline_name}/token/{token_desc}", h.CreateToken).Methods(http.MethodPost)

	authed.HandleFunc("/tasks/claim", h.ClaimTasks).Methods(http.MethodPost)
	authed.HandleFunc("/tasks", h.ListTasks).Methods(http.MethodGet)
	authed.HandleFunc("/tasks", h.CreateTask).Methods(http.MethodPost)
	authed.HandleFunc("/tasks", h.UpdateTask).Methods(http.MethodPut)
	authed.HandleFunc("/tasks/{task_id:[0-9]+}", h.GetTask).Methods(http.MethodGet)
}

// errorResponse is the JSON body returned for all failed requests.
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error(ctx, "could not encode response body", zap.Error(err))
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := serrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(ctx, "request failed", zap.Error(err))
	} else {
		logger.Debug(ctx, "request rejected", zap.Error(err))
	}

	respondJSON(ctx, w, status, errorResponse{Error: err.Error()})
}

// decodeBody decodes a JSON request body into dst, translating decoding
// failures to bad request errors.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return serrors.Wrap(serrors.ErrBadRequest, err, "could not decode request body")
	}

	return nil
}
