package serrors_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mgcam/npg-porch/pkg/serrors"
)

type customError struct{ msg string }

func (e customError) Error() string { return e.msg }

func TestDefaultKindsDistinct(t *testing.T) {
	kinds := []serrors.Kind{
		serrors.ErrNotFound,
		serrors.ErrUnauthorized,
		serrors.ErrForbidden,
		serrors.ErrBadRequest,
		serrors.ErrConflict,
		serrors.ErrInternal,
	}
	seen := map[serrors.Kind]bool{}
	for i, k := range kinds {
		require.NotNil(t, k, "kind at index %d is nil", i)
		require.False(t, seen[k], "kind at index %d is duplicate: %v", i, k)
		seen[k] = true
	}
}

func TestErrorFormatting(t *testing.T) {
	base := errors.New("db down")

	e1 := serrors.With(serrors.ErrNotFound, "task %d not found", 42)
	require.Equal(t, "task 42 not found", e1.Error())

	e2 := serrors.Wrap(serrors.ErrNotFound, base, "getting task")
	require.Equal(t, "getting task: db down", e2.Error())

	e3 := serrors.KindOnly(serrors.ErrNotFound)
	require.Equal(t, "NOT_FOUND", e3.Error())
}

func TestIsMatchesKindAndWrapped(t *testing.T) {
	base := customError{"root cause"}
	e := serrors.Wrap(serrors.ErrConflict, base, "updating")

	require.ErrorIs(t, e, serrors.ErrConflict)
	require.ErrorIs(t, e, base)
	require.NotErrorIs(t, e, serrors.ErrNotFound)
}

func TestAsMatchesWrapped(t *testing.T) {
	base := customError{"root cause"}
	e := serrors.Wrap(serrors.ErrBadRequest, base, "decoding")

	var got customError
	require.ErrorAs(t, e, &got)
	require.Equal(t, "root cause", got.msg)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{serrors.With(serrors.ErrNotFound, "missing"), http.StatusNotFound},
		{serrors.KindOnly(serrors.ErrUnauthorized), http.StatusUnauthorized},
		{serrors.KindOnly(serrors.ErrForbidden), http.StatusForbidden},
		{serrors.With(serrors.ErrBadRequest, "bad"), http.StatusBadRequest},
		{serrors.With(serrors.ErrConflict, "dup"), http.StatusConflict},
		{serrors.KindOnly(serrors.ErrInternal), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		require.Equal(t, c.status, serrors.HTTPStatus(c.err), "error %v", c.err)
	}
}
