package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents application-specific error codes.
type ErrorCode string

const (
	// General errors
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeInternal       ErrorCode = "INTERNAL_ERROR"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"

	// Platoon errors
	ErrCodePeerUnreachable   ErrorCode = "PEER_UNREACHABLE"
	ErrCodeProtocolViolation ErrorCode = "PROTOCOL_VIOLATION"
	ErrCodeFatalLocalFailure ErrorCode = "FATAL_LOCAL_FAILURE"
	ErrCodeNotLeader         ErrorCode = "NOT_LEADER"
)

// PlatoonError represents a structured error with code and context
type PlatoonError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *PlatoonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *PlatoonError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to the status written on the wire.
func (e *PlatoonError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeProtocolViolation, ErrCodeNotLeader:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodePeerUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewPlatoonError creates a new PlatoonError
func NewPlatoonError(code ErrorCode, message string, cause error) *PlatoonError {
	return &PlatoonError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *PlatoonError) WithDetail(key string, value interface{}) *PlatoonError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func InvalidRequest(message string, cause error) *PlatoonError {
	return NewPlatoonError(ErrCodeInvalidRequest, message, cause)
}

func NotFound(message string) *PlatoonError {
	return NewPlatoonError(ErrCodeNotFound, message, nil)
}

func InternalError(message string, cause error) *PlatoonError {
	return NewPlatoonError(ErrCodeInternal, message, cause)
}

func PeerUnreachable(address, operation string, cause error) *PlatoonError {
	return NewPlatoonError(ErrCodePeerUnreachable, fmt.Sprintf("peer %s unreachable during %s", address, operation), cause).
		WithDetail("address", address).
		WithDetail("operation", operation)
}

func ProtocolViolation(message string) *PlatoonError {
	return NewPlatoonError(ErrCodeProtocolViolation, message, nil)
}

func FatalLocalFailure(address string, cause error) *PlatoonError {
	return NewPlatoonError(ErrCodeFatalLocalFailure, fmt.Sprintf("paired process %s is gone", address), cause).
		WithDetail("address", address)
}

func NotLeader(address string) *PlatoonError {
	return NewPlatoonError(ErrCodeNotLeader, fmt.Sprintf("node %s is not the platoon leader", address), nil).
		WithDetail("address", address)
}

// IsPlatoonError checks if an error is a PlatoonError
func IsPlatoonError(err error) bool {
	var pe *PlatoonError
	return errors.As(err, &pe)
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var pe *PlatoonError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}
