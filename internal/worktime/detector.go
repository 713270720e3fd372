package worktime

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

// DetectionReport is the batch output: the full ordered conflict list plus
// aggregate counts.
type DetectionReport struct {
	Conflicts []models.ConflictDescriptor `json:"conflicts"`
	Summary   models.ConflictSummary      `json:"summary"`
}

// Detector orchestrates the daily, weekly and rest validators over a date
// range and employee set. It operates on the snapshot it is given and
// produces a deterministic result regardless of input order.
type Detector struct {
	rules  Rules
	logger *zap.Logger
}

// NewDetector constructs a detector with the provided rule set.
func NewDetector(rules Rules, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{rules: rules, logger: logger}
}

// Detect validates every interval in [from, to] (inclusive business dates)
// across all employees present in the snapshot. Callers validating a batch
// must pass existing intervals and batch candidates together so that
// candidates are checked against each other, not only against persisted
// data. Intervals dated the day before the range are retained as rest
// context for the first in-range day; they emit no conflicts of their own.
func (d *Detector) Detect(intervals []models.WorkInterval, from, to time.Time) (DetectionReport, error) {
	lo, hi := dateOnly(from), dateOnly(to)
	restContextLo := lo.AddDate(0, 0, -1)

	byEmployee := make(map[int64]map[time.Time][]models.WorkInterval)
	for _, iv := range intervals {
		day := dateOnly(iv.Date)
		if day.Before(restContextLo) || day.After(hi) {
			continue
		}
		days, ok := byEmployee[iv.EmployeeID]
		if !ok {
			days = make(map[time.Time][]models.WorkInterval)
			byEmployee[iv.EmployeeID] = days
		}
		days[day] = append(days[day], iv)
	}

	employees := make([]int64, 0, len(byEmployee))
	for id := range byEmployee {
		employees = append(employees, id)
	}
	sort.Slice(employees, func(i, j int) bool { return employees[i] < employees[j] })

	var conflicts []models.ConflictDescriptor
	for _, employeeID := range employees {
		days := byEmployee[employeeID]

		dates := make([]time.Time, 0, len(days))
		for day := range days {
			if day.Before(lo) {
				continue
			}
			dates = append(dates, day)
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

		weeks := make(map[time.Time][]models.WorkInterval)
		for _, day := range dates {
			dayIntervals := days[day]

			dayConflicts, err := dailyConflicts(d.rules, employeeID, day, dayIntervals)
			if err != nil {
				return DetectionReport{}, err
			}
			conflicts = append(conflicts, dayConflicts...)

			if priorEnd := latestEnd(days[day.AddDate(0, 0, -1)]); priorEnd != nil {
				if start := earliestStart(dayIntervals); start != nil {
					rest := ValidateRest(d.rules, employeeID, day, *start, priorEnd)
					conflicts = append(conflicts, rest.Conflicts...)
				}
			}

			week := WeekStart(day)
			weeks[week] = append(weeks[week], dayIntervals...)
		}

		// One weekly verdict per (employee, week) so a range covering the
		// same week on several days never double-reports it.
		weekStarts := make([]time.Time, 0, len(weeks))
		for week := range weeks {
			weekStarts = append(weekStarts, week)
		}
		sort.Slice(weekStarts, func(i, j int) bool { return weekStarts[i].Before(weekStarts[j]) })
		for _, week := range weekStarts {
			weekly, err := ValidateWeekly(d.rules, employeeID, week, weeks[week])
			if err != nil {
				return DetectionReport{}, err
			}
			conflicts = append(conflicts, weekly.Conflicts...)
		}
	}

	sortConflicts(conflicts)

	report := DetectionReport{Conflicts: conflicts, Summary: summarize(conflicts)}
	d.logger.Debug("conflict detection finished",
		zap.Time("from", lo),
		zap.Time("to", hi),
		zap.Int("employees", len(employees)),
		zap.Int("conflicts", len(conflicts)),
	)
	return report, nil
}

// sortConflicts orders errors before warnings, then by date ascending, then
// by employee id, then by type. The stable, deterministic ordering keeps
// test assertions reproducible and notification dispatch idempotent.
func sortConflicts(conflicts []models.ConflictDescriptor) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.IsError() != b.IsError() {
			return a.IsError()
		}
		da, db := conflictDate(a), conflictDate(b)
		if !da.Equal(db) {
			return da.Before(db)
		}
		if a.EmployeeID != b.EmployeeID {
			return a.EmployeeID < b.EmployeeID
		}
		return a.Type < b.Type
	})
}

func conflictDate(c models.ConflictDescriptor) time.Time {
	if c.Date != nil {
		return *c.Date
	}
	if c.WeekStart != nil {
		return *c.WeekStart
	}
	return time.Time{}
}

func summarize(conflicts []models.ConflictDescriptor) models.ConflictSummary {
	summary := models.ConflictSummary{TotalConflicts: len(conflicts)}
	affected := make(map[int64]struct{})
	for _, c := range conflicts {
		if c.IsError() {
			summary.Errors++
		} else {
			summary.Warnings++
		}
		affected[c.EmployeeID] = struct{}{}
	}
	summary.AffectedEmployees = len(affected)
	return summary
}

func latestEnd(intervals []models.WorkInterval) *models.TimeOfDay {
	var latest *models.TimeOfDay
	for _, iv := range intervals {
		if !iv.Kind.Countable() || !iv.Timed() {
			continue
		}
		if latest == nil || iv.EndTime.Minutes() > latest.Minutes() {
			end := *iv.EndTime
			latest = &end
		}
	}
	return latest
}

func earliestStart(intervals []models.WorkInterval) *models.TimeOfDay {
	var earliest *models.TimeOfDay
	for _, iv := range intervals {
		if !iv.Kind.Countable() || !iv.Timed() {
			continue
		}
		if earliest == nil || iv.StartTime.Minutes() < earliest.Minutes() {
			start := *iv.StartTime
			earliest = &start
		}
	}
	return earliest
}
