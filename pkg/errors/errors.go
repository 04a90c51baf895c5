package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrEmptyCorpus         = errors.New("empty corpus")
	ErrIndexNotBuilt       = errors.New("index not built")
	ErrEmptyPopulation     = errors.New("empty calibration population")
	ErrInvalidScore        = errors.New("invalid score")
	ErrSampleTooLarge      = errors.New("sample size exceeds population")
	ErrInsufficientSamples = errors.New("insufficient samples")
	ErrSingleClass         = errors.New("only one class present")
	ErrIDMismatch          = errors.New("record id mismatch")
	ErrInvalidLabel        = errors.New("invalid ground-truth label")
	ErrInvalidInput        = errors.New("invalid input")
	ErrCollaborator        = errors.New("collaborator failure")
	ErrNotFound            = errors.New("not found")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error chain onto the status the HTTP surface
// reports. An AppError's explicit code wins over sentinel matching.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidScore),
		errors.Is(err, ErrEmptyPopulation),
		errors.Is(err, ErrSampleTooLarge),
		errors.Is(err, ErrInsufficientSamples),
		errors.Is(err, ErrSingleClass),
		errors.Is(err, ErrInvalidLabel),
		errors.Is(err, ErrIDMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexNotBuilt), errors.Is(err, ErrEmptyCorpus):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrCollaborator):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
