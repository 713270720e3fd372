package worktime

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

func TestDetectorFindsConflictsWithinBatch(t *testing.T) {
	// Two candidates that only conflict with each other, not with any
	// persisted data.
	intervals := []models.WorkInterval{
		timed("a", 1, "2025-03-10", tod(9, 0), tod(17, 0), 0, models.KindWork),
		timed("b", 1, "2025-03-10", tod(16, 0), tod(18, 0), 0, models.KindWork),
	}

	report, err := NewDetector(DefaultRules(), nil).Detect(intervals, day("2025-03-10"), day("2025-03-10"))
	require.NoError(t, err)

	var overlaps int
	for _, c := range report.Conflicts {
		if c.Type == models.ConflictOverlap {
			overlaps++
		}
	}
	assert.Equal(t, 1, overlaps)
	assert.Equal(t, 1, report.Summary.AffectedEmployees)
}

func TestDetectorWeeklyConflictReportedOncePerWeek(t *testing.T) {
	// 9h on six days is 54h, over the weekly cap every day of the range, but
	// the verdict must appear exactly once.
	dates := []string{"2025-03-10", "2025-03-11", "2025-03-12", "2025-03-13", "2025-03-14", "2025-03-15"}
	var intervals []models.WorkInterval
	for _, d := range dates {
		intervals = append(intervals, timed(d, 1, d, tod(8, 0), tod(17, 0), 0, models.KindWork))
	}

	report, err := NewDetector(DefaultRules(), nil).Detect(intervals, day("2025-03-10"), day("2025-03-16"))
	require.NoError(t, err)

	var weekly int
	for _, c := range report.Conflicts {
		if c.Type == models.ConflictMaxWeeklyHours {
			weekly++
		}
	}
	assert.Equal(t, 1, weekly)
	assert.Equal(t, report.Summary.Errors, weekly)
}

func TestDetectorRestViolationAcrossDays(t *testing.T) {
	intervals := []models.WorkInterval{
		timed("a", 1, "2025-03-10", tod(14, 0), tod(23, 0), 60, models.KindWork),
		timed("b", 1, "2025-03-11", tod(6, 0), tod(12, 0), 0, models.KindWork),
	}

	report, err := NewDetector(DefaultRules(), nil).Detect(intervals, day("2025-03-10"), day("2025-03-11"))
	require.NoError(t, err)

	var rest int
	for _, c := range report.Conflicts {
		if c.Type == models.ConflictInsufficientRest {
			rest++
			require.NotNil(t, c.Date)
			assert.Equal(t, day("2025-03-11"), *c.Date)
		}
	}
	assert.Equal(t, 1, rest)
}

func TestDetectorDeterministicUnderShuffledInput(t *testing.T) {
	var intervals []models.WorkInterval
	dates := []string{"2025-03-10", "2025-03-11", "2025-03-12"}
	for _, employee := range []int64{3, 1, 2} {
		for _, d := range dates {
			intervals = append(intervals,
				timed(d+"-a", employee, d, tod(8, 0), tod(18, 0), 0, models.KindWork),
				timed(d+"-b", employee, d, tod(17, 0), tod(19, 0), 0, models.KindWork),
			)
		}
	}

	detector := NewDetector(DefaultRules(), nil)
	baseline, err := detector.Detect(intervals, day("2025-03-10"), day("2025-03-12"))
	require.NoError(t, err)
	require.NotEmpty(t, baseline.Conflicts)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := make([]models.WorkInterval, len(intervals))
		copy(shuffled, intervals)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		report, err := detector.Detect(shuffled, day("2025-03-10"), day("2025-03-12"))
		require.NoError(t, err)
		assert.Equal(t, baseline.Conflicts, report.Conflicts)
	}
}

func TestDetectorOrdersErrorsBeforeWarnings(t *testing.T) {
	intervals := []models.WorkInterval{
		// Employee 1: short week, warning only.
		timed("a", 1, "2025-03-10", tod(9, 0), tod(13, 0), 0, models.KindWork),
		// Employee 2: overlapping pair on a later date, blocking error.
		timed("b", 2, "2025-03-12", tod(9, 0), tod(17, 0), 0, models.KindWork),
		timed("c", 2, "2025-03-12", tod(16, 0), tod(18, 0), 0, models.KindWork),
	}

	report, err := NewDetector(DefaultRules(), nil).Detect(intervals, day("2025-03-10"), day("2025-03-16"))
	require.NoError(t, err)
	require.NotEmpty(t, report.Conflicts)

	seenWarning := false
	for _, c := range report.Conflicts {
		if c.Severity == models.SeverityWarning {
			seenWarning = true
		}
		if seenWarning {
			assert.Equal(t, models.SeverityWarning, c.Severity)
		}
	}
	assert.Equal(t, models.SeverityError, report.Conflicts[0].Severity)
	assert.Equal(t, report.Summary.TotalConflicts, len(report.Conflicts))
	assert.Equal(t, 2, report.Summary.AffectedEmployees)
}

func TestDetectorRestContextFromDayBeforeRange(t *testing.T) {
	// The Sunday shift sits just before the range but must still feed the
	// rest check for Monday: 23:00 to 05:00 is only 6h.
	intervals := []models.WorkInterval{
		timed("a", 1, "2025-03-09", tod(14, 0), tod(23, 0), 60, models.KindWork),
		timed("b", 1, "2025-03-10", tod(5, 0), tod(11, 0), 0, models.KindWork),
	}

	report, err := NewDetector(DefaultRules(), nil).Detect(intervals, day("2025-03-10"), day("2025-03-16"))
	require.NoError(t, err)

	var rest int
	for _, c := range report.Conflicts {
		if c.Type == models.ConflictInsufficientRest {
			rest++
			require.NotNil(t, c.Date)
			assert.Equal(t, day("2025-03-10"), *c.Date)
		}
		// The context day itself must not surface in the report.
		if c.Date != nil {
			assert.False(t, c.Date.Before(day("2025-03-10")))
		}
	}
	assert.Equal(t, 1, rest)
}

func TestDetectorIgnoresIntervalsOutsideRange(t *testing.T) {
	intervals := []models.WorkInterval{
		timed("a", 1, "2025-03-03", tod(9, 0), tod(17, 0), 0, models.KindWork),
		timed("b", 1, "2025-03-03", tod(16, 0), tod(18, 0), 0, models.KindWork),
	}

	report, err := NewDetector(DefaultRules(), nil).Detect(intervals, day("2025-03-10"), day("2025-03-16"))
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
	assert.Zero(t, report.Summary.TotalConflicts)
}
