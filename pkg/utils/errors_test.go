package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	err := NewAppError(ErrCodeMissingData, "no friction record")
	assert.Equal(t, "MISSING_DATA: no friction record", err.Error())

	err = NewAppError(ErrCodeValidation, "bad date", "from after to")
	assert.Equal(t, "VALIDATION_ERROR: bad date - from after to", err.Error())
}

func TestWrapAppErrorKeepsSentinel(t *testing.T) {
	err := WrapAppError(ErrCodeResolutionConflict, ErrResolutionConflict, "pick outcome differs")
	assert.True(t, errors.Is(err, ErrResolutionConflict))
	assert.Equal(t, ErrResolutionConflict.Error(), err.Details)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"team not found", fmt.Errorf("analyze: %w", ErrTeamNotFound), ExitMissingData},
		{"invalid input", fmt.Errorf("flag: %w", ErrInvalidInput), ExitInvalidArgs},
		{"validation app error", NewAppError(ErrCodeValidation, "bad"), ExitInvalidArgs},
		{"missing data app error", NewAppError(ErrCodeMissingData, "gone"), ExitMissingData},
		{"resolution conflict", WrapAppError(ErrCodeResolutionConflict, ErrResolutionConflict, "needs reconciliation"), ExitIOFailure},
		{"other", errors.New("connection refused"), ExitIOFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}
