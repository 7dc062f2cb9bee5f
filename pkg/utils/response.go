package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *AppError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

type Meta struct {
	Total    int64  `json:"total,omitempty"`
	Status   Status `json:"status,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SendSuccessWithMeta(c *gin.Context, data interface{}, meta *Meta) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func SendError(c *gin.Context, statusCode int, err *AppError) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   err,
	})
}

func SendValidationError(c *gin.Context, message string, details string) {
	SendError(c, http.StatusBadRequest, NewAppError(ErrCodeValidation, message, details))
}

// SendConflict answers 409 RESOLUTION_CONFLICT, carrying the conflicting records
// as data so callers can reconcile them.
func SendConflict(c *gin.Context, message string, details string, data interface{}) {
	c.JSON(http.StatusConflict, Response{
		Success: false,
		Data:    data,
		Error:   NewAppError(ErrCodeResolutionConflict, message, details),
	})
}

// SendAppError maps an error onto an HTTP status by its code.
func SendAppError(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		switch {
		case errors.Is(err, ErrTeamNotFound):
			appErr = NewAppError(ErrCodeMissingData, "team not found", err.Error())
		case errors.Is(err, ErrInvalidInput):
			appErr = NewAppError(ErrCodeValidation, "invalid input", err.Error())
		default:
			appErr = NewAppError(ErrCodeInternal, "internal error", err.Error())
		}
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case ErrCodeValidation, ErrCodeInconsistentMarket:
		status = http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeMissingData:
		status = http.StatusNotFound
	case ErrCodeResolutionConflict:
		status = http.StatusConflict
	case ErrCodeIOFailure:
		status = http.StatusBadGateway
	}
	SendError(c, status, appErr)
}
