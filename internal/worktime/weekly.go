package worktime

import (
	"fmt"
	"time"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

// WeeklyResult carries the validation verdict together with the raw weekly
// total so callers can report the aggregate even when it is within limits.
type WeeklyResult struct {
	Valid      bool                        `json:"valid"`
	TotalHours float64                     `json:"total_hours"`
	Conflicts  []models.ConflictDescriptor `json:"conflicts"`
}

// ValidateWeekly aggregates work and overtime hours for one employee over
// the ISO week starting at weekStart (a Monday). Exceeding the weekly cap
// is a blocking error; falling short of the weekly minimum is advisory only
// and never blocks a write.
func ValidateWeekly(rules Rules, employeeID int64, weekStart time.Time, intervals []models.WorkInterval) (WeeklyResult, error) {
	start := dateOnly(weekStart)
	end := start.AddDate(0, 0, 7)

	inWeek := make([]models.WorkInterval, 0, len(intervals))
	for _, iv := range intervals {
		day := dateOnly(iv.Date)
		if !day.Before(start) && day.Before(end) {
			inWeek = append(inWeek, iv)
		}
	}

	total, err := TotalHours(inWeek)
	if err != nil {
		return WeeklyResult{}, err
	}
	total = roundHours(total)

	var conflicts []models.ConflictDescriptor
	if total-rules.MaxWeeklyHours > tolerance {
		conflicts = append(conflicts, models.ConflictDescriptor{
			Type:        models.ConflictMaxWeeklyHours,
			Severity:    models.SeverityError,
			EmployeeID:  employeeID,
			WeekStart:   &start,
			Description: fmt.Sprintf("weekly total of %.2fh in week of %s exceeds the %.0fh limit", total, start.Format("2006-01-02"), rules.MaxWeeklyHours),
			Suggestion:  "redistribute hours to a neighbouring week",
		})
	}
	if rules.MinWeeklyHours-total > tolerance {
		conflicts = append(conflicts, models.ConflictDescriptor{
			Type:        models.ConflictBelowMinimumWeekly,
			Severity:    models.SeverityWarning,
			EmployeeID:  employeeID,
			WeekStart:   &start,
			Description: fmt.Sprintf("weekly total of %.2fh in week of %s is below the %.0fh minimum", total, start.Format("2006-01-02"), rules.MinWeeklyHours),
			Suggestion:  fmt.Sprintf("contract target is %.0fh per week", rules.TargetWeeklyHours),
		})
	}

	result := WeeklyResult{TotalHours: total, Conflicts: conflicts}
	result.Valid = models.NewValidationResult(conflicts).Valid
	return result, nil
}
