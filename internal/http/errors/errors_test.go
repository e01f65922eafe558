package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-cookie-auth/internal/service"
)

func TestToHTTP_Mapping(t *testing.T) {
	t.Parallel()

	wrap := func(err error) error { return fmt.Errorf("service.op: %w", err) }

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"nil", nil, http.StatusInternalServerError, "internal"},
		{"validation", &service.ValidationError{}, http.StatusBadRequest, "invalid_argument"},
		{"malformed", wrap(ErrMalformedBody), http.StatusBadRequest, "invalid_argument"},
		{"email taken", wrap(service.ErrEmailTaken), http.StatusConflict, "already_exists"},
		{"credentials", wrap(service.ErrInvalidCredentials), http.StatusUnauthorized, "unauthenticated"},
		{"unauthorized", wrap(service.ErrUnauthorized), http.StatusUnauthorized, "unauthenticated"},
		{"not found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"method", ErrMethodNotAllowed, http.StatusMethodNotAllowed, "method_not_allowed"},
		{"canceled", wrap(context.Canceled), StatusClientClosedRequest, "canceled"},
		{"deadline", wrap(context.DeadlineExceeded), http.StatusGatewayTimeout, "deadline_exceeded"},
		{"other", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := ToHTTP(tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.code, resp.Error.Code)
			require.NotContains(t, resp.Error.Message, "pq:")
		})
	}
}

func TestToHTTP_CarriesFieldErrors(t *testing.T) {
	t.Parallel()

	verr := &service.ValidationError{Fields: []service.FieldError{
		{Field: "email", Message: "Please provide a valid email address"},
	}}

	_, resp := ToHTTP(fmt.Errorf("op: %w", verr))
	require.Equal(t, verr.Fields, resp.Error.Fields)
}

func TestWriteError_RequestIDAndEnvelope(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rr := httptest.NewRecorder()

	WriteError(rr, req, service.ErrUnauthorized)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "unauthenticated", body["error"]["code"])
	require.Equal(t, "rid-1", body["error"]["request_id"])
	require.NotContains(t, body["error"], "fields")
}
