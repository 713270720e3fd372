package worktime

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

// DayComparison is the per-date reconciliation of planned against actual
// hours.
type DayComparison struct {
	Date         time.Time `json:"date"`
	PlannedHours float64   `json:"planned_hours"`
	ActualHours  float64   `json:"actual_hours"`
	Variance     float64   `json:"variance"`
}

// ComparisonReport summarises plan-vs-actual reconciliation over a date
// range. Findings are advisory (warning severity) and never block anything.
type ComparisonReport struct {
	EmployeeID        int64                       `json:"employee_id"`
	From              time.Time                   `json:"from"`
	To                time.Time                   `json:"to"`
	Days              []DayComparison             `json:"days"`
	TotalPlannedHours float64                     `json:"total_planned_hours"`
	TotalActualHours  float64                     `json:"total_actual_hours"`
	TotalVariance     float64                     `json:"total_variance"`
	ComplianceRate    int                         `json:"compliance_rate"`
	Findings          []models.ConflictDescriptor `json:"findings"`
}

// ComparePlanActual reconciles planned intervals against recorded intervals
// per day over the union of dates present in either set. The compliance
// rate is round((1 - |total variance| / total planned) * 100) when any
// hours were planned, else 0.
func ComparePlanActual(rules Rules, employeeID int64, from, to time.Time, planned, actual []models.WorkInterval) (ComparisonReport, error) {
	plannedByDay, err := hoursByDay(planned)
	if err != nil {
		return ComparisonReport{}, err
	}
	actualByDay, err := hoursByDay(actual)
	if err != nil {
		return ComparisonReport{}, err
	}

	dateSet := make(map[time.Time]struct{}, len(plannedByDay)+len(actualByDay))
	for day := range plannedByDay {
		dateSet[day] = struct{}{}
	}
	for day := range actualByDay {
		dateSet[day] = struct{}{}
	}
	dates := make([]time.Time, 0, len(dateSet))
	for day := range dateSet {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	report := ComparisonReport{
		EmployeeID: employeeID,
		From:       dateOnly(from),
		To:         dateOnly(to),
		Days:       make([]DayComparison, 0, len(dates)),
	}

	for _, day := range dates {
		day := day
		plannedHours := roundHours(plannedByDay[day])
		actualHours := roundHours(actualByDay[day])
		variance := roundHours(actualHours - plannedHours)

		report.Days = append(report.Days, DayComparison{
			Date:         day,
			PlannedHours: plannedHours,
			ActualHours:  actualHours,
			Variance:     variance,
		})
		report.TotalPlannedHours += plannedHours
		report.TotalActualHours += actualHours

		_, hasPlanning := plannedByDay[day]
		if !hasPlanning && actualHours > 0 {
			report.Findings = append(report.Findings, models.ConflictDescriptor{
				Type:        models.ConflictNoPlanningMatch,
				Severity:    models.SeverityWarning,
				EmployeeID:  employeeID,
				Date:        &day,
				Description: fmt.Sprintf("%.2fh recorded on %s without a planned shift", actualHours, day.Format("2006-01-02")),
				Suggestion:  "add a planning entry or confirm the unplanned work",
			})
		}
		if hasPlanning && math.Abs(variance)-rules.VarianceThreshold > tolerance {
			report.Findings = append(report.Findings, models.ConflictDescriptor{
				Type:        models.ConflictLargeVariance,
				Severity:    models.SeverityWarning,
				EmployeeID:  employeeID,
				Date:        &day,
				Description: fmt.Sprintf("recorded hours deviate %.2fh from plan on %s", variance, day.Format("2006-01-02")),
			})
		}
	}

	report.TotalPlannedHours = roundHours(report.TotalPlannedHours)
	report.TotalActualHours = roundHours(report.TotalActualHours)
	report.TotalVariance = roundHours(report.TotalActualHours - report.TotalPlannedHours)
	if report.TotalPlannedHours > 0 {
		report.ComplianceRate = int(math.Round((1 - math.Abs(report.TotalVariance)/report.TotalPlannedHours) * 100))
	}

	return report, nil
}

func hoursByDay(intervals []models.WorkInterval) (map[time.Time]float64, error) {
	byDay := make(map[time.Time]float64)
	for _, iv := range intervals {
		if !iv.Kind.Countable() {
			continue
		}
		hours, err := Duration(iv)
		if err != nil {
			return nil, err
		}
		byDay[dateOnly(iv.Date)] += hours
	}
	return byDay, nil
}
