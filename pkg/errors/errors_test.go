package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	err := NotFoundError("computer")

	assert.True(t, stderrors.Is(err, ErrNotFound))
	assert.False(t, stderrors.Is(err, ErrConflict))

	wrapped := fmt.Errorf("loading: %w", DecryptionFailed(io.ErrUnexpectedEOF))
	assert.True(t, stderrors.Is(wrapped, ErrDecryptionFailed))
	assert.True(t, stderrors.Is(wrapped, io.ErrUnexpectedEOF), "cause stays reachable")
}

func TestAsAppError(t *testing.T) {
	inner := ConflictError("computer 3 is already assigned").WithDetail("holder_id", 7)

	got, ok := AsAppError(fmt.Errorf("assign: %w", inner))
	require.True(t, ok)
	assert.Same(t, inner, got)
	assert.Equal(t, 7, got.Details["holder_id"])

	_, ok = AsAppError(io.EOF)
	assert.False(t, ok)
	_, ok = AsAppError(nil)
	assert.False(t, ok)
	assert.False(t, IsAppError(io.EOF))
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest},
		{"invalid json", InvalidJSONError(io.EOF), http.StatusBadRequest},
		{"malformed", MalformedData("short buffer"), http.StatusBadRequest},
		{"invalid identifier", InvalidIdentifier("employee", 0), http.StatusBadRequest},
		{"not found", NotFoundError("employee"), http.StatusNotFound},
		{"uniqueness", UniquenessViolation("serial_number", "SN-1"), http.StatusConflict},
		{"duplicate identifier", DuplicateIdentifier("computer", 4), http.StatusConflict},
		{"conflict", ConflictError("held"), http.StatusConflict},
		{"validation", ValidationFailed([]string{"a"}), http.StatusUnprocessableEntity},
		{"unauthorized", UnauthorizedError("no token"), http.StatusUnauthorized},
		{"decryption", DecryptionFailed(nil), http.StatusUnauthorized},
		{"io", IOFailure("write", io.ErrShortWrite), http.StatusInternalServerError},
		{"internal", InternalError("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.GetHTTPStatus())
		})
	}
}

func TestValidationFailed_ListsViolations(t *testing.T) {
	violations := []string{"employee 1: last_name is required", "computer 2: ram_size must be positive"}
	err := ValidationFailed(violations)
	violations[0] = "mutated"

	assert.Equal(t, "employee 1: last_name is required", err.Violations[0])
	assert.Contains(t, err.Error(), "\n- computer 2: ram_size must be positive")
}

func TestWrapError(t *testing.T) {
	app := UniquenessViolation("inventory_number", "INV-1")
	assert.Same(t, app, WrapError(fmt.Errorf("ctx: %w", app), "ignored"))

	wrapped := WrapError(io.ErrClosedPipe, "mirror failed")
	assert.Equal(t, ErrorCodeInternal, wrapped.Code)
	assert.Equal(t, "mirror failed", wrapped.Message)
	assert.ErrorIs(t, wrapped, io.ErrClosedPipe)
}

func TestToJSON(t *testing.T) {
	err := NotFoundError("computer").WithRequestID("req-1")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(err.ToJSON(), &body))
	assert.Equal(t, "computer not found", body["error"])
	assert.Equal(t, "NOT_FOUND", body["code"])
	assert.Equal(t, "req-1", body["request_id"])
	assert.NotContains(t, body, "StackTrace")
}
