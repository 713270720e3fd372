package worktime

import (
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

// tolerance absorbs float noise when comparing fractional hours against the
// rule thresholds so that an exact limit still passes.
const tolerance = 1e-9

// ValidateDaily checks a candidate interval together with the other
// intervals recorded for the same employee and business date. It enforces
// the daily hour cap and pairwise overlap detection; the two checks are
// independent and may both fire. Only work and overtime kinds count.
func ValidateDaily(rules Rules, employeeID int64, date time.Time, candidate models.WorkInterval, existing []models.WorkInterval) (models.ValidationResult, error) {
	all := make([]models.WorkInterval, 0, len(existing)+1)
	for _, iv := range existing {
		if iv.SameDate(date) && iv.Kind.Countable() {
			all = append(all, iv)
		}
	}
	all = append(all, candidate)

	conflicts, err := dailyConflicts(rules, employeeID, date, all)
	if err != nil {
		return models.ValidationResult{}, err
	}
	return models.NewValidationResult(conflicts), nil
}

// dailyConflicts runs the per-day checks over an already-scoped interval
// set. Pairwise overlap is O(n²) per day, which is fine at realistic entry
// counts (typically below ten per employee per day).
func dailyConflicts(rules Rules, employeeID int64, date time.Time, intervals []models.WorkInterval) ([]models.ConflictDescriptor, error) {
	countable := make([]models.WorkInterval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Kind.Countable() {
			countable = append(countable, iv)
		}
	}
	// Canonical order keeps pair descriptions stable no matter how the
	// caller listed the intervals.
	sort.SliceStable(countable, func(i, j int) bool {
		a, b := countable[i], countable[j]
		if a.Timed() != b.Timed() {
			return a.Timed()
		}
		if !a.Timed() {
			return a.ID < b.ID
		}
		if a.StartTime.Minutes() != b.StartTime.Minutes() {
			return a.StartTime.Minutes() < b.StartTime.Minutes()
		}
		if a.EndTime.Minutes() != b.EndTime.Minutes() {
			return a.EndTime.Minutes() < b.EndTime.Minutes()
		}
		return a.ID < b.ID
	})

	total, err := TotalHours(countable)
	if err != nil {
		return nil, err
	}

	day := dateOnly(date)
	var conflicts []models.ConflictDescriptor

	if total-rules.MaxDailyHours > tolerance {
		conflicts = append(conflicts, models.ConflictDescriptor{
			Type:        models.ConflictMaxDailyHours,
			Severity:    models.SeverityError,
			EmployeeID:  employeeID,
			Date:        &day,
			Description: fmt.Sprintf("daily total of %.2fh on %s exceeds the %.0fh limit", roundHours(total), day.Format("2006-01-02"), rules.MaxDailyHours),
			Suggestion:  "shorten the entry or move hours to another day",
		})
	}

	for i := 0; i < len(countable); i++ {
		for j := i + 1; j < len(countable); j++ {
			if Overlaps(countable[i], countable[j]) {
				conflicts = append(conflicts, models.ConflictDescriptor{
					Type:        models.ConflictOverlap,
					Severity:    models.SeverityError,
					EmployeeID:  employeeID,
					Date:        &day,
					Description: fmt.Sprintf("interval %s overlaps interval %s on %s", countable[i].Range(), countable[j].Range(), day.Format("2006-01-02")),
					Suggestion:  "adjust one of the intervals so they no longer share time",
				})
			}
		}
	}

	return conflicts, nil
}
