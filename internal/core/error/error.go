package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// GeneratorErrorMessage describes a failed call to the remote text generator.
	GeneratorErrorMessage = "text generator unavailable"
	// ReselectPersonaMessage is shown when a session points at a persona that no longer exists.
	ReselectPersonaMessage = "Извините, произошла ошибка. Попробуйте выбрать клиента заново."
)

var (
	// ErrSessionNotFound is returned when no conversation state exists for a session id.
	ErrSessionNotFound = New(errors.New("session not found"), http.StatusNotFound, "session not found")
	// ErrUnknownPersona is returned when a persona id is not present in the catalog.
	ErrUnknownPersona = New(errors.New("unknown persona"), http.StatusNotFound, ReselectPersonaMessage)
	// ErrTurnInProgress is returned when a session already has a pending turn.
	ErrTurnInProgress = New(errors.New("turn in progress"), http.StatusConflict, "previous message is still being answered")
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = New(errors.New("empty message"), http.StatusBadRequest, "message is empty")
	// ErrTurnDiscarded is returned when a reset dropped the turn being answered.
	ErrTurnDiscarded = New(errors.New("turn discarded"), http.StatusConflict, "conversation was reset")
	// ErrUnknownProduct is returned when a product id is not present in the catalog.
	ErrUnknownProduct = New(errors.New("unknown product"), http.StatusNotFound, "product not found")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapGenerator marks a remote generator failure. Callers recover from it locally.
func WrapGenerator(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, GeneratorErrorMessage)
}

// Is reports whether the target matches the AppError itself or the underlying error.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok && t == e {
		return true
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return errors.As(e.Err, target)
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not an AppError.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the safe message carried by err.
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return SystemErrorMessage
}
