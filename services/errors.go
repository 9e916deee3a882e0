package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"file-approval-api/storage"
)

// Boundary error codes. Each has a single semantic meaning; controllers map the
// attached status straight onto the HTTP response.
const (
	CodeUnknownUser       = "UNKNOWN_USER"
	CodeNotFound          = "NOT_FOUND"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeForbidden         = "FORBIDDEN"
	CodeBadInput          = "BAD_INPUT"
	CodeStoreUnavailable  = "STORE_UNAVAILABLE"
	CodeCorrupt           = "CORRUPT"
	CodeDeadline          = "DEADLINE"
)

// ServiceError is the typed error returned across the engine boundary.
type ServiceError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code string, status int, message string) *ServiceError {
	return &ServiceError{Code: code, Status: status, Message: message}
}

func ErrUnknownUser(username string) *ServiceError {
	return newError(CodeUnknownUser, http.StatusUnauthorized, fmt.Sprintf("user %q not found", username))
}

func ErrNotFound(what string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, what+" not found")
}

func ErrIllegalTransition(current, requested string) *ServiceError {
	return newError(CodeIllegalTransition, http.StatusConflict,
		fmt.Sprintf("submission in state %s does not permit %s", current, requested))
}

func ErrForbidden(message string) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, message)
}

func ErrBadInput(message string) *ServiceError {
	return newError(CodeBadInput, http.StatusBadRequest, message)
}

func ErrStoreUnavailable(message string) *ServiceError {
	return newError(CodeStoreUnavailable, http.StatusServiceUnavailable, message)
}

func ErrCorrupt(message string) *ServiceError {
	return newError(CodeCorrupt, http.StatusInternalServerError, message)
}

func ErrDeadline() *ServiceError {
	return newError(CodeDeadline, http.StatusGatewayTimeout, "operation deadline exceeded")
}

// AsServiceError extracts the typed error, translating storage and context
// errors that bubbled up unwrapped.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ErrDeadline()
	case errors.Is(err, storage.ErrCorrupt):
		return ErrCorrupt(err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		return ErrStoreUnavailable(err.Error())
	}
	return newError(CodeStoreUnavailable, http.StatusInternalServerError, err.Error())
}

// retryable reports whether the caller-facing wrapper should re-attempt the
// operation. Authorization and state errors are final.
func retryable(err error) bool {
	svcErr := AsServiceError(err)
	return svcErr.Code == CodeStoreUnavailable
}
