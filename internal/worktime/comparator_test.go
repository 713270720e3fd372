package worktime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

func TestComparePlanActualVarianceAndCompliance(t *testing.T) {
	dates := []string{"2025-03-10", "2025-03-11", "2025-03-12", "2025-03-13", "2025-03-14"}

	var planned []models.WorkInterval
	for _, d := range dates {
		planned = append(planned, timed("p-"+d, 1, d, tod(9, 0), tod(16, 0), 0, models.KindWork))
	}

	var actual []models.WorkInterval
	for _, d := range dates[:4] {
		actual = append(actual, timed("a-"+d, 1, d, tod(9, 0), tod(16, 0), 0, models.KindWork))
	}
	// Friday ran three hours over plan.
	actual = append(actual, timed("a-fri", 1, "2025-03-14", tod(9, 0), tod(19, 0), 0, models.KindWork))

	report, err := ComparePlanActual(DefaultRules(), 1, day("2025-03-10"), day("2025-03-14"), planned, actual)
	require.NoError(t, err)

	assert.InDelta(t, 35, report.TotalPlannedHours, 1e-9)
	assert.InDelta(t, 38, report.TotalActualHours, 1e-9)
	assert.InDelta(t, 3, report.TotalVariance, 1e-9)
	assert.Equal(t, 91, report.ComplianceRate)

	require.Len(t, report.Days, 5)
	friday := report.Days[4]
	assert.Equal(t, day("2025-03-14"), friday.Date)
	assert.InDelta(t, 3, friday.Variance, 1e-9)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, models.ConflictLargeVariance, report.Findings[0].Type)
	assert.Equal(t, models.SeverityWarning, report.Findings[0].Severity)
	require.NotNil(t, report.Findings[0].Date)
	assert.Equal(t, day("2025-03-14"), *report.Findings[0].Date)
}

func TestComparePlanActualVarianceWithinThreshold(t *testing.T) {
	planned := []models.WorkInterval{
		timed("p", 1, "2025-03-10", tod(9, 0), tod(17, 0), 0, models.KindWork),
	}
	actual := []models.WorkInterval{
		timed("a", 1, "2025-03-10", tod(9, 0), tod(19, 0), 0, models.KindWork),
	}

	report, err := ComparePlanActual(DefaultRules(), 1, day("2025-03-10"), day("2025-03-10"), planned, actual)
	require.NoError(t, err)

	// 2h over plan sits exactly on the threshold and stays silent.
	assert.InDelta(t, 2, report.TotalVariance, 1e-9)
	assert.Empty(t, report.Findings)
}

func TestComparePlanActualUnplannedWork(t *testing.T) {
	actual := []models.WorkInterval{
		timed("a", 1, "2025-03-15", tod(10, 0), tod(14, 0), 0, models.KindWork),
	}

	report, err := ComparePlanActual(DefaultRules(), 1, day("2025-03-10"), day("2025-03-16"), nil, actual)
	require.NoError(t, err)

	assert.Zero(t, report.TotalPlannedHours)
	assert.InDelta(t, 4, report.TotalActualHours, 1e-9)
	assert.Zero(t, report.ComplianceRate)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, models.ConflictNoPlanningMatch, report.Findings[0].Type)
	assert.Contains(t, report.Findings[0].Description, "4.00h")
}

func TestComparePlanActualAbsenceDaysExcluded(t *testing.T) {
	planned := []models.WorkInterval{
		timed("p", 1, "2025-03-10", tod(9, 0), tod(17, 0), 0, models.KindWork),
	}
	actual := []models.WorkInterval{
		timed("a", 1, "2025-03-10", nil, nil, 0, models.KindSick),
	}

	report, err := ComparePlanActual(DefaultRules(), 1, day("2025-03-10"), day("2025-03-10"), planned, actual)
	require.NoError(t, err)

	assert.InDelta(t, 8, report.TotalPlannedHours, 1e-9)
	assert.Zero(t, report.TotalActualHours)
	assert.InDelta(t, -8, report.TotalVariance, 1e-9)
}
