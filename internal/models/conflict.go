package models

import "time"

// ConflictType identifies the rule or structural problem a conflict reports.
// The string values are serialized in API payloads and audit records and
// must remain stable.
type ConflictType string

const (
	ConflictOverlap            ConflictType = "overlap"
	ConflictMaxDailyHours      ConflictType = "max_daily_hours"
	ConflictMaxWeeklyHours     ConflictType = "max_weekly_hours"
	ConflictInsufficientRest   ConflictType = "insufficient_rest"
	ConflictBelowMinimumWeekly ConflictType = "below_minimum_weekly"
	ConflictNoPlanningMatch    ConflictType = "no_planning_match"
	ConflictLargeVariance      ConflictType = "large_variance"
)

// ConflictSeverity splits conflicts into blocking errors and advisory
// warnings. There is no third tier: infrastructure failures are surfaced as
// application errors, never as conflicts.
type ConflictSeverity string

const (
	SeverityError   ConflictSeverity = "error"
	SeverityWarning ConflictSeverity = "warning"
)

// ConflictDescriptor is the engine's output unit. Day-scoped conflicts set
// Date; week-scoped conflicts set WeekStart instead.
type ConflictDescriptor struct {
	Type        ConflictType     `json:"type"`
	Severity    ConflictSeverity `json:"severity"`
	EmployeeID  int64            `json:"employee_id"`
	Date        *time.Time       `json:"date,omitempty"`
	WeekStart   *time.Time       `json:"week_start,omitempty"`
	Description string           `json:"description"`
	Suggestion  string           `json:"suggestion,omitempty"`
}

// IsError reports whether the conflict blocks the associated write.
func (c ConflictDescriptor) IsError() bool {
	return c.Severity == SeverityError
}

// ValidationResult is returned by every validator. Valid is true iff no
// conflict carries error severity; warnings never flip it to false.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Conflicts []ConflictDescriptor `json:"conflicts"`
}

// NewValidationResult derives the Valid flag from the conflict list.
func NewValidationResult(conflicts []ConflictDescriptor) ValidationResult {
	for _, c := range conflicts {
		if c.IsError() {
			return ValidationResult{Valid: false, Conflicts: conflicts}
		}
	}
	return ValidationResult{Valid: true, Conflicts: conflicts}
}

// ConflictSummary aggregates a detection run.
type ConflictSummary struct {
	TotalConflicts    int `json:"total_conflicts"`
	Errors            int `json:"errors"`
	Warnings          int `json:"warnings"`
	AffectedEmployees int `json:"affected_employees"`
}

// ConflictRecord is a persisted audit copy of a detected conflict, written
// by callers of the engine for notification dispatch and compliance trails.
type ConflictRecord struct {
	ID          string           `db:"id" json:"id"`
	EmployeeID  int64            `db:"employee_id" json:"employee_id"`
	Type        ConflictType     `db:"type" json:"type"`
	Severity    ConflictSeverity `db:"severity" json:"severity"`
	Date        *time.Time       `db:"date" json:"date,omitempty"`
	WeekStart   *time.Time       `db:"week_start" json:"week_start,omitempty"`
	Description string           `db:"description" json:"description"`
	Suggestion  *string          `db:"suggestion" json:"suggestion,omitempty"`
	DetectedAt  time.Time        `db:"detected_at" json:"detected_at"`
	Notified    bool             `db:"notified" json:"notified"`
}
