package handler

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"computer-inventory/pkg/errors"

	"go.uber.org/zap"
)

// ErrorHandler provides centralized error handling functionality for handlers
type ErrorHandler struct {
	Logger *zap.Logger
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{
		Logger: logger,
	}
}

// SendErrorResponse sends a structured error response
func (e *ErrorHandler) SendErrorResponse(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		e.Logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// SendSuccessResponse sends a structured success response
func (e *ErrorHandler) SendSuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := SuccessResponse{
		Message: message,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		e.Logger.Error("Failed to encode success response", zap.Error(err))
	}
}

// SendJSONResponse sends a generic JSON response
func (e *ErrorHandler) SendJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		e.Logger.Error("Failed to encode JSON response", zap.Error(err))
		e.SendErrorResponse(w, http.StatusInternalServerError, ErrorResponse{Error: "Failed to encode response", Code: "ENCODING_ERROR"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(append(body, '\n'))
}

// HandleServiceError maps an inventory service error to an HTTP response.
// Client errors carry their message and violations; server errors are
// logged and answered with a generic message.
func (e *ErrorHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	requestID := requestIDFromRequest(r)

	if stderrors.Is(err, context.DeadlineExceeded) {
		e.Logger.Warn("Operation timed out", zap.String("operation", operation), zap.String("request_id", requestID))
		e.SendErrorResponse(w, http.StatusRequestTimeout, ErrorResponse{Error: "Operation timed out", Code: "TIMEOUT", RequestID: requestID})
		return
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.InternalError(fmt.Sprintf("Failed to %s", operation), err)
	}

	status := appErr.GetHTTPStatus()
	response := ErrorResponse{
		Error:      appErr.Message,
		Code:       string(appErr.Code),
		Details:    appErr.Details,
		Violations: appErr.Violations,
		RequestID:  requestID,
	}

	if status >= http.StatusInternalServerError {
		e.Logger.Error("Service error",
			zap.String("operation", operation),
			zap.String("code", string(appErr.Code)),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		response.Error = fmt.Sprintf("Failed to %s", operation)
		response.Details = nil
	} else {
		e.Logger.Info("Request rejected",
			zap.String("operation", operation),
			zap.String("code", string(appErr.Code)),
			zap.String("request_id", requestID),
		)
	}

	if len(response.Details) == 0 {
		response.Details = nil
	}
	e.SendErrorResponse(w, status, response)
}

// HandleJSONDecodeError handles JSON decoding errors
func (e *ErrorHandler) HandleJSONDecodeError(w http.ResponseWriter, err error) {
	e.Logger.Debug("JSON decode error", zap.Error(err))
	e.SendErrorResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON format", Code: string(errors.ErrorCodeInvalidJSON)})
}

// ParseAndValidateID parses a positive integer identifier from a path variable.
func (e *ErrorHandler) ParseAndValidateID(w http.ResponseWriter, raw, entity string) (int, bool) {
	if raw == "" {
		e.SendErrorResponse(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("%s id is required", entity), Code: "INVALID_ID"})
		return 0, false
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		e.SendErrorResponse(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("Invalid %s id: %s", entity, raw), Code: "INVALID_ID"})
		return 0, false
	}

	return id, true
}

// ParseIntQuery reads a required integer query parameter.
func (e *ErrorHandler) ParseIntQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		e.SendErrorResponse(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("query parameter %s is required", name), Code: string(errors.ErrorCodeBadRequest)})
		return 0, false
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		e.SendErrorResponse(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("query parameter %s must be an integer", name), Code: string(errors.ErrorCodeBadRequest)})
		return 0, false
	}

	return v, true
}

func requestIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if id, ok := r.Context().Value(RequestIDKey).(string); ok && id != "" {
		return id
	}
	return r.Header.Get(RequestIDHeader)
}
