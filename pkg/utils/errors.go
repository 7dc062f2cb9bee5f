package utils

import (
	"errors"
	"fmt"
)

var (
	ErrTeamNotFound       = errors.New("team not found")
	ErrUnsupportedMarket  = errors.New("market not in typical-odds map")
	ErrMarketBelowMinOdds = errors.New("market typical odds below minimum")
	ErrResolutionConflict = errors.New("resolution conflict")
	ErrResolvedImmutable  = errors.New("pick already resolved")
	ErrInvalidInput       = errors.New("invalid input")
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	cause   error
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WrapAppError attaches a cause so errors.Is still sees the sentinel.
func WrapAppError(code string, cause error, message string) *AppError {
	err := NewAppError(code, message)
	if cause != nil {
		err.Details = cause.Error()
		err.cause = cause
	}
	return err
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Common error codes
const (
	ErrCodeMissingData        = "MISSING_DATA"
	ErrCodeInsufficientSample = "INSUFFICIENT_SAMPLE"
	ErrCodeStaleData          = "STALE_DATA"
	ErrCodeInconsistentMarket = "INCONSISTENT_MARKET"
	ErrCodeResolutionConflict = "RESOLUTION_CONFLICT"
	ErrCodeIOFailure          = "IO_FAILURE"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// Status of a user-visible result.
type Status string

const (
	StatusOK      Status = "OK"
	StatusPartial Status = "PARTIAL"
	StatusSkip    Status = "SKIP"
	StatusError   Status = "ERROR"
)

// CLI exit codes
const (
	ExitOK          = 0
	ExitMissingData = 2
	ExitIOFailure   = 3
	ExitInvalidArgs = 4
)

// ExitCode maps an error onto the CLI exit code contract.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrTeamNotFound) {
		return ExitMissingData
	}
	if errors.Is(err, ErrInvalidInput) {
		return ExitInvalidArgs
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrCodeMissingData, ErrCodeNotFound:
			return ExitMissingData
		case ErrCodeValidation:
			return ExitInvalidArgs
		}
	}
	return ExitIOFailure
}
