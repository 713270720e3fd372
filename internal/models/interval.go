package models

import "time"

// IntervalKind categorises a work interval.
type IntervalKind string

const (
	KindWork     IntervalKind = "work"
	KindOvertime IntervalKind = "overtime"
	KindVacation IntervalKind = "vacation"
	KindSick     IntervalKind = "sick"
	KindOther    IntervalKind = "other"
)

// Valid returns true when the kind is a supported value.
func (k IntervalKind) Valid() bool {
	switch k {
	case KindWork, KindOvertime, KindVacation, KindSick, KindOther:
		return true
	default:
		return false
	}
}

// Countable reports whether the kind contributes to worked-hour totals.
func (k IntervalKind) Countable() bool {
	return k == KindWork || k == KindOvertime
}

// IntervalStatus is the lifecycle state of an interval, independent of
// validation outcome.
type IntervalStatus string

const (
	StatusDraft     IntervalStatus = "draft"
	StatusSubmitted IntervalStatus = "submitted"
	StatusValidated IntervalStatus = "validated"
	StatusRejected  IntervalStatus = "rejected"
)

// Valid returns true when the status is a supported value.
func (s IntervalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusValidated, StatusRejected:
		return true
	default:
		return false
	}
}

// IntervalSource distinguishes planned shifts from recorded time entries.
// Both share the WorkInterval shape so the validators are reusable.
type IntervalSource string

const (
	SourcePlanning IntervalSource = "planning"
	SourceActual   IntervalSource = "actual"
)

// Valid returns true when the source is a supported value.
func (s IntervalSource) Valid() bool {
	return s == SourcePlanning || s == SourceActual
}

// WorkInterval is a single planned or actual work/leave record for one
// employee on one calendar date. Start and end times are nullable for
// non-timed categories such as full-day leave. Date is the local business
// date; an interval never crosses midnight (a night shift is stored as two
// same-day intervals).
type WorkInterval struct {
	ID           string         `db:"id" json:"id"`
	EmployeeID   int64          `db:"employee_id" json:"employee_id"`
	Date         time.Time      `db:"date" json:"date"`
	StartTime    *TimeOfDay     `db:"start_time" json:"start_time,omitempty"`
	EndTime      *TimeOfDay     `db:"end_time" json:"end_time,omitempty"`
	BreakMinutes int            `db:"break_minutes" json:"break_minutes"`
	Kind         IntervalKind   `db:"kind" json:"kind"`
	Status       IntervalStatus `db:"status" json:"status"`
	Source       IntervalSource `db:"source_kind" json:"source_kind"`
	Note         *string        `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Timed reports whether both clock times are present.
func (iv WorkInterval) Timed() bool {
	return iv.StartTime != nil && iv.EndTime != nil
}

// SameDate reports whether the interval falls on the given business date.
func (iv WorkInterval) SameDate(date time.Time) bool {
	y1, m1, d1 := iv.Date.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Range renders the "HH:MM-HH:MM" form used in conflict descriptions.
func (iv WorkInterval) Range() string {
	if !iv.Timed() {
		return "untimed"
	}
	return iv.StartTime.String() + "-" + iv.EndTime.String()
}

// IntervalFilter scopes interval listing queries.
type IntervalFilter struct {
	EmployeeID *int64
	Source     *IntervalSource
	Status     *IntervalStatus
	Kind       *IntervalKind
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
