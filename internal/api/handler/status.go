package handler

import (
	"net/http"

	"github.com/mgcam/npg-porch/pkg/serrors"
)

// statusResponse is the body of a health check response.
type statusResponse struct {
	Status string `json:"status"`
}

// Status reports service health. It fails when the database is unreachable.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.deps.Store.Ping(ctx); err != nil {
		respondError(ctx, w, serrors.Wrap(serrors.ErrInternal, err, "database unreachable"))

		return
	}

	respondJSON(ctx, w, http.StatusOK, statusResponse{Status: "ok"})
}
