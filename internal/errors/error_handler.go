// Package errors provides the error taxonomy shared by every platoon process and its
// mapping onto HTTP responses.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// Handler provides error handling functionality.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new error handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{
		logger: logger,
	}
}

// HandleError processes an error and writes an appropriate HTTP response.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-ID")

	var pe *PlatoonError
	if errors.As(err, &pe) {
		h.WriteErrorResponse(w, pe.HTTPStatus(), pe.Code, pe.Error(), requestID)
		return
	}
	h.WriteErrorResponse(w, http.StatusInternalServerError, ErrCodeInternal, err.Error(), requestID)
}

// WriteErrorResponse writes a formatted error response to the HTTP response writer.
func (h *Handler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode ErrorCode, message string, requestID string) {
	h.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", string(errorCode)),
		zap.String("message", message),
		zap.String("request_id", requestID),
	)

	resp := ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// WriteValidationError writes a validation error response.
func (h *Handler) WriteValidationError(w http.ResponseWriter, message string, requestID string) {
	h.WriteErrorResponse(w, http.StatusBadRequest, ErrCodeInvalidRequest, message, requestID)
}

// FromResponse rebuilds a PlatoonError from an error body returned by a peer.
func FromResponse(statusCode int, body []byte) *PlatoonError {
	var resp ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.ErrorCode == "" {
		return NewPlatoonError(ErrCodeInternal, http.StatusText(statusCode), nil).
			WithDetail("status_code", statusCode)
	}
	return NewPlatoonError(resp.ErrorCode, resp.Message, nil).
		WithDetail("status_code", statusCode)
}
