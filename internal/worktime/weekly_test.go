package worktime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

func weekOf(employeeID int64, hoursPerDay, days int) []models.WorkInterval {
	dates := []string{"2025-03-10", "2025-03-11", "2025-03-12", "2025-03-13", "2025-03-14", "2025-03-15", "2025-03-16"}
	intervals := make([]models.WorkInterval, 0, days)
	for i := 0; i < days; i++ {
		intervals = append(intervals, timed(dates[i], employeeID, dates[i], tod(8, 0), tod(8+hoursPerDay, 0), 0, models.KindWork))
	}
	return intervals
}

func TestValidateWeeklyExactMaximumPasses(t *testing.T) {
	intervals := weekOf(1, 8, 6) // 48h

	result, err := ValidateWeekly(DefaultRules(), 1, day("2025-03-10"), intervals)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.InDelta(t, 48, result.TotalHours, 1e-9)
	assert.Empty(t, result.Conflicts)
}

func TestValidateWeeklyOverMaximumFails(t *testing.T) {
	intervals := weekOf(1, 8, 6)
	intervals = append(intervals, timed("extra", 1, "2025-03-16", tod(9, 0), tod(9, 30), 0, models.KindWork))

	result, err := ValidateWeekly(DefaultRules(), 1, day("2025-03-10"), intervals)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictMaxWeeklyHours, result.Conflicts[0].Type)
	assert.Equal(t, models.SeverityError, result.Conflicts[0].Severity)
	assert.InDelta(t, 48.5, result.TotalHours, 1e-9)
}

func TestValidateWeeklyBelowMinimumWarns(t *testing.T) {
	intervals := weekOf(1, 7, 4) // 28h

	result, err := ValidateWeekly(DefaultRules(), 1, day("2025-03-10"), intervals)
	require.NoError(t, err)
	// Warnings never invalidate.
	assert.True(t, result.Valid)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictBelowMinimumWeekly, result.Conflicts[0].Type)
	assert.Equal(t, models.SeverityWarning, result.Conflicts[0].Severity)
	assert.Contains(t, result.Conflicts[0].Suggestion, "35")
}

func TestValidateWeeklyIgnoresNeighbouringWeeks(t *testing.T) {
	intervals := weekOf(1, 8, 4) // 32h in week
	intervals = append(intervals, timed("next", 1, "2025-03-17", tod(8, 0), tod(18, 0), 0, models.KindWork))

	result, err := ValidateWeekly(DefaultRules(), 1, day("2025-03-10"), intervals)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.InDelta(t, 32, result.TotalHours, 1e-9)
}
