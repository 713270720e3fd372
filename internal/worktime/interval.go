package worktime

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

// Duration returns the net worked hours of an interval: clock span minus
// break, floored at zero. Untimed intervals (full-day leave and similar)
// contribute zero hours. An interval with only one clock time set, or an
// end at or before its start, is malformed caller input and returns an
// error — intervals never cross midnight; a night shift must be recorded as
// two same-day intervals with the rest check covering the seam.
func Duration(iv models.WorkInterval) (float64, error) {
	if iv.StartTime == nil && iv.EndTime == nil {
		return 0, nil
	}
	if iv.StartTime == nil || iv.EndTime == nil {
		return 0, fmt.Errorf("interval %s on %s: start and end must both be set", iv.ID, iv.Date.Format("2006-01-02"))
	}
	if iv.EndTime.Minutes() <= iv.StartTime.Minutes() {
		return 0, fmt.Errorf("interval %s on %s: must end after it starts within the business date", iv.ID, iv.Date.Format("2006-01-02"))
	}
	worked := iv.EndTime.Minutes() - iv.StartTime.Minutes() - iv.BreakMinutes
	if worked < 0 {
		worked = 0
	}
	return float64(worked) / 60, nil
}

// Overlaps reports whether two intervals on the same business date share
// clock time. Boundaries are half-open: an interval ending 12:00 does not
// overlap one starting 12:00. Untimed intervals never overlap anything.
func Overlaps(a, b models.WorkInterval) bool {
	if !a.SameDate(b.Date) || !a.Timed() || !b.Timed() {
		return false
	}
	return a.StartTime.Minutes() < b.EndTime.Minutes() && b.StartTime.Minutes() < a.EndTime.Minutes()
}

// TotalHours sums the net durations of all work and overtime intervals in
// the slice. Other kinds are ignored. A malformed countable interval aborts
// with an error.
func TotalHours(intervals []models.WorkInterval) (float64, error) {
	var total float64
	for _, iv := range intervals {
		if !iv.Kind.Countable() {
			continue
		}
		hours, err := Duration(iv)
		if err != nil {
			return 0, err
		}
		total += hours
	}
	return total, nil
}

// WeekStart returns the Monday of the ISO week containing the date, at
// midnight in the date's location.
func WeekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return dateOnly(date).AddDate(0, 0, -offset)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
