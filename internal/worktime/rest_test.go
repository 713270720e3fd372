package worktime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

func TestValidateRestNoPriorDayPasses(t *testing.T) {
	result := ValidateRest(DefaultRules(), 1, day("2025-03-11"), models.NewTimeOfDay(9, 0), nil)
	assert.True(t, result.Valid)
}

func TestValidateRestExactMinimumPasses(t *testing.T) {
	// 22:00 to 09:00 next day is exactly eleven hours.
	result := ValidateRest(DefaultRules(), 1, day("2025-03-11"), models.NewTimeOfDay(9, 0), tod(22, 0))
	assert.True(t, result.Valid)
	assert.Empty(t, result.Conflicts)
}

func TestValidateRestTooShortFails(t *testing.T) {
	result := ValidateRest(DefaultRules(), 1, day("2025-03-11"), models.NewTimeOfDay(8, 59), tod(22, 0))
	assert.False(t, result.Valid)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictInsufficientRest, result.Conflicts[0].Type)
	assert.Equal(t, models.SeverityError, result.Conflicts[0].Severity)
	assert.Contains(t, result.Conflicts[0].Description, "10.98")
}
