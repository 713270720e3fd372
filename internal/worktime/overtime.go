package worktime

// HoursBreakdown splits a day's worked hours into regular and overtime for
// payroll classification.
type HoursBreakdown struct {
	RegularHours  float64 `json:"regular_hours"`
	OvertimeHours float64 `json:"overtime_hours"`
}

// SplitOvertime classifies a day's total against the daily and weekly
// thresholds. The two triggers are alternatives, not additive: the larger
// overtime quantity governs. weeklyHoursBefore is the validated total
// accumulated strictly before the day within the same ISO week;
// totalDailyHours already includes the candidate entry. The split is pure
// classification — it rejects nothing by itself.
func SplitOvertime(rules Rules, totalDailyHours, weeklyHoursBefore float64) HoursBreakdown {
	dailyOvertime := totalDailyHours - rules.MaxDailyHours
	if dailyOvertime < 0 {
		dailyOvertime = 0
	}

	weeklyOvertime := weeklyHoursBefore + totalDailyHours - rules.MaxWeeklyHours
	if weeklyOvertime < 0 {
		weeklyOvertime = 0
	}

	overtime := dailyOvertime
	if weeklyOvertime > overtime {
		overtime = weeklyOvertime
	}

	regular := totalDailyHours - overtime
	if regular < 0 {
		regular = 0
	}

	return HoursBreakdown{
		RegularHours:  roundHours(regular),
		OvertimeHours: roundHours(overtime),
	}
}
