package worktime

import (
	"fmt"
	"time"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

// ValidateRest checks the minimum rest period between the end of the
// employee's latest prior-day interval and the start of the candidate. The
// check is one-directional: it looks at the time before the candidate only;
// re-validating the entry that follows the candidate is the caller's job
// when that neighbouring entry changes. A nil priorEnd means no prior-day
// entry exists and the check passes trivially.
func ValidateRest(rules Rules, employeeID int64, date time.Time, start models.TimeOfDay, priorEnd *models.TimeOfDay) models.ValidationResult {
	if priorEnd == nil {
		return models.ValidationResult{Valid: true}
	}

	restHours := (start.Hours() + 24) - priorEnd.Hours()
	if rules.MinRestHours-restHours <= tolerance {
		return models.ValidationResult{Valid: true}
	}

	day := dateOnly(date)
	conflicts := []models.ConflictDescriptor{{
		Type:        models.ConflictInsufficientRest,
		Severity:    models.SeverityError,
		EmployeeID:  employeeID,
		Date:        &day,
		Description: fmt.Sprintf("only %.2fh of rest before the shift starting %s on %s, minimum is %.0fh", roundHours(restHours), start.String(), day.Format("2006-01-02"), rules.MinRestHours),
		Suggestion:  "start the shift later or end the previous one earlier",
	}}
	return models.NewValidationResult(conflicts)
}
