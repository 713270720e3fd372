package worktime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitOvertimeUnderBothThresholds(t *testing.T) {
	b := SplitOvertime(DefaultRules(), 8, 20)
	assert.InDelta(t, 8, b.RegularHours, 1e-9)
	assert.Zero(t, b.OvertimeHours)
}

func TestSplitOvertimeDailyTrigger(t *testing.T) {
	b := SplitOvertime(DefaultRules(), 11, 20)
	assert.InDelta(t, 10, b.RegularHours, 1e-9)
	assert.InDelta(t, 1, b.OvertimeHours, 1e-9)
}

func TestSplitOvertimeWeeklyTrigger(t *testing.T) {
	// 42h already worked this week; an 8h day crosses 48 by 2.
	b := SplitOvertime(DefaultRules(), 8, 42)
	assert.InDelta(t, 6, b.RegularHours, 1e-9)
	assert.InDelta(t, 2, b.OvertimeHours, 1e-9)
}

func TestSplitOvertimeLargerTriggerGoverns(t *testing.T) {
	// Daily overtime would be 1h, weekly overtime 5h: the split takes the max,
	// never the sum.
	b := SplitOvertime(DefaultRules(), 11, 42)
	assert.InDelta(t, 6, b.RegularHours, 1e-9)
	assert.InDelta(t, 5, b.OvertimeHours, 1e-9)
}

func TestSplitOvertimeWholeDayOvertime(t *testing.T) {
	// The week is already 2h over the cap, so the weekly trigger is
	// 50+6-48 = 8h: more than the day itself holds. Regular floors at zero
	// and the full trigger is reported as overtime.
	b := SplitOvertime(DefaultRules(), 6, 50)
	assert.Zero(t, b.RegularHours)
	assert.InDelta(t, 8, b.OvertimeHours, 1e-9)
}
