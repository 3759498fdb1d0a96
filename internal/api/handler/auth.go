package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/mgcam/npg-porch/pkg/domain"
	"github.com/mgcam/npg-porch/pkg/serrors"
)

type ctxKey string

// actorKey is the context key under which the authenticated token is stored.
const actorKey ctxKey = "porchActor"

// ActorFromContext returns the authenticated token stored in the context by
// the auth middleware.
func ActorFromContext(ctx context.Context) (domain.Token, bool) {
	actor, ok := ctx.Value(actorKey).(domain.Token)

	return actor, ok
}

// WithActor returns a context carrying the given token as the authenticated
// caller. Used by the middleware and by handler tests.
func WithActor(ctx context.Context, actor domain.Token) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// WithAuth authenticates requests with a bearer token from the Authorization
// header. Unknown and revoked tokens are rejected with 401.
func (h *Handler) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		value, ok := bearerToken(r)
		if !ok {
			respondError(ctx, w, serrors.With(serrors.ErrUnauthorized, "missing bearer token"))

			return
		}

		token, err := h.deps.Store.TokenByValue(ctx, value)
		if err != nil {
			respondError(ctx, w, err)

			return
		}
		if token == nil || token.Revoked() {
			respondError(ctx, w, serrors.With(serrors.ErrUnauthorized, "invalid token"))

			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(ctx, *token)))
	})
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	scheme, value, found := strings.Cut(auth, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)

	return value, value != ""
}
