// Package worktime implements the schedule-constraint validation and
// conflict-detection engine. Every function is pure: inputs arrive as
// arguments, results are returned fresh, and nothing here performs I/O or
// touches shared state, so the package is safe to call from concurrent
// request handlers.
package worktime

// Rules carries the working-time limits the validators enforce. Hours are
// fractional (8.5 = 8h30m).
type Rules struct {
	MaxDailyHours     float64
	MaxWeeklyHours    float64
	MinWeeklyHours    float64
	TargetWeeklyHours float64
	MinRestHours      float64
	VarianceThreshold float64
}

// DefaultRules returns the canonical rule set: 10h/day, 48h/week, 30h
// weekly minimum (35h advisory target), 11h inter-shift rest, 2h daily
// plan-vs-actual variance threshold.
func DefaultRules() Rules {
	return Rules{
		MaxDailyHours:     10,
		MaxWeeklyHours:    48,
		MinWeeklyHours:    30,
		TargetWeeklyHours: 35,
		MinRestHours:      11,
		VarianceThreshold: 2,
	}
}
