package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/worktime"
)

type mockIntervalRepo struct {
	intervals       map[string]models.WorkInterval
	weeklyValidated float64
	created         []string
	updated         []string
	deleted         []string
	bulkCreated     [][]models.WorkInterval
	listRangeCalls  int
}

func newMockIntervalRepo(seed ...models.WorkInterval) *mockIntervalRepo {
	repo := &mockIntervalRepo{intervals: make(map[string]models.WorkInterval)}
	for _, iv := range seed {
		repo.intervals[iv.ID] = iv
	}
	return repo
}

func (m *mockIntervalRepo) List(ctx context.Context, filter models.IntervalFilter) ([]models.WorkInterval, int, error) {
	var out []models.WorkInterval
	for _, iv := range m.intervals {
		out = append(out, iv)
	}
	return out, len(out), nil
}

func (m *mockIntervalRepo) ListRange(ctx context.Context, employeeIDs []int64, from, to time.Time, source *models.IntervalSource) ([]models.WorkInterval, error) {
	m.listRangeCalls++
	allowed := make(map[int64]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		allowed[id] = true
	}
	var out []models.WorkInterval
	for _, iv := range m.intervals {
		if len(employeeIDs) > 0 && !allowed[iv.EmployeeID] {
			continue
		}
		if iv.Date.Before(from) || iv.Date.After(to) {
			continue
		}
		if source != nil && iv.Source != *source {
			continue
		}
		out = append(out, iv)
	}
	return out, nil
}

func (m *mockIntervalRepo) FindByID(ctx context.Context, id string) (*models.WorkInterval, error) {
	if iv, ok := m.intervals[id]; ok {
		return &iv, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIntervalRepo) LastEndingBefore(ctx context.Context, employeeID int64, date time.Time) (*models.WorkInterval, error) {
	priorDay := date.AddDate(0, 0, -1)
	var latest *models.WorkInterval
	for _, iv := range m.intervals {
		iv := iv
		if iv.EmployeeID != employeeID || !iv.SameDate(priorDay) || !iv.Kind.Countable() || !iv.Timed() {
			continue
		}
		if latest == nil || iv.EndTime.Minutes() > latest.EndTime.Minutes() {
			latest = &iv
		}
	}
	return latest, nil
}

func (m *mockIntervalRepo) ValidatedWeeklyHoursBefore(ctx context.Context, employeeID int64, weekStart, beforeDate time.Time) (float64, error) {
	return m.weeklyValidated, nil
}

func (m *mockIntervalRepo) Create(ctx context.Context, interval *models.WorkInterval) error {
	if interval.ID == "" {
		interval.ID = "generated"
	}
	m.intervals[interval.ID] = *interval
	m.created = append(m.created, interval.ID)
	return nil
}

func (m *mockIntervalRepo) BulkCreate(ctx context.Context, intervals []models.WorkInterval) error {
	for i := range intervals {
		if intervals[i].ID == "" {
			intervals[i].ID = "generated"
		}
		m.intervals[intervals[i].ID] = intervals[i]
	}
	m.bulkCreated = append(m.bulkCreated, intervals)
	return nil
}

func (m *mockIntervalRepo) Update(ctx context.Context, interval *models.WorkInterval) error {
	m.intervals[interval.ID] = *interval
	m.updated = append(m.updated, interval.ID)
	return nil
}

func (m *mockIntervalRepo) Delete(ctx context.Context, id string) error {
	delete(m.intervals, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockAudit struct {
	logs []models.AuditLog
}

func (m *mockAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func str(s string) *string { return &s }

func entry(id string, employeeID int64, date, start, end string, breakMinutes int, kind models.IntervalKind, source models.IntervalSource) models.WorkInterval {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	iv := models.WorkInterval{
		ID:           id,
		EmployeeID:   employeeID,
		Date:         day,
		BreakMinutes: breakMinutes,
		Kind:         kind,
		Status:       models.StatusSubmitted,
		Source:       source,
	}
	if start != "" {
		s, err := models.ParseTimeOfDay(start)
		if err != nil {
			panic(err)
		}
		e, err := models.ParseTimeOfDay(end)
		if err != nil {
			panic(err)
		}
		iv.StartTime = &s
		iv.EndTime = &e
	}
	return iv
}

func newTimeEntryService(repo *mockIntervalRepo, audit *mockAudit) *TimeEntryService {
	return NewTimeEntryService(repo, audit, nil, worktime.DefaultRules(), validator.New(), zap.NewNop())
}

func TestTimeEntryServiceCreate(t *testing.T) {
	repo := newMockIntervalRepo()
	audit := &mockAudit{}
	svc := newTimeEntryService(repo, audit)

	result, err := svc.Create(context.Background(), TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-10",
		StartTime:  str("09:00"),
		EndTime:    str("17:00"),
		Kind:       "work",
	}, "user-1")
	require.NoError(t, err)
	require.NotNil(t, result.Entry)
	assert.True(t, result.Validation.Valid)
	assert.Len(t, repo.created, 1)

	require.NotNil(t, result.Breakdown)
	assert.InDelta(t, 8, result.Breakdown.RegularHours, 1e-9)
	assert.Zero(t, result.Breakdown.OvertimeHours)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEntryCreate, audit.logs[0].Action)
}

func TestTimeEntryServiceCreateRefusedOnOverlap(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourceActual),
	)
	svc := newTimeEntryService(repo, &mockAudit{})

	result, err := svc.Create(context.Background(), TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-10",
		StartTime:  str("16:00"),
		EndTime:    str("18:00"),
		Kind:       "work",
	}, "user-1")
	// A refused write is not a transport error.
	require.NoError(t, err)
	assert.Nil(t, result.Entry)
	assert.False(t, result.Validation.Valid)
	assert.Empty(t, repo.created)

	var types []models.ConflictType
	for _, c := range result.Validation.Conflicts {
		types = append(types, c.Type)
	}
	assert.Contains(t, types, models.ConflictOverlap)
}

func TestTimeEntryServiceCreateRefusedOnShortRest(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "14:00", "23:00", 60, models.KindWork, models.SourceActual),
	)
	svc := newTimeEntryService(repo, &mockAudit{})

	result, err := svc.Create(context.Background(), TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-11",
		StartTime:  str("06:00"),
		EndTime:    str("12:00"),
		Kind:       "work",
	}, "")
	require.NoError(t, err)
	assert.False(t, result.Validation.Valid)

	var types []models.ConflictType
	for _, c := range result.Validation.Conflicts {
		types = append(types, c.Type)
	}
	assert.Contains(t, types, models.ConflictInsufficientRest)
}

func TestTimeEntryServiceCreateWeeklyOvertimeSplit(t *testing.T) {
	repo := newMockIntervalRepo()
	repo.weeklyValidated = 42
	svc := newTimeEntryService(repo, &mockAudit{})

	result, err := svc.Create(context.Background(), TimeEntryRequest{
		EmployeeID:   7,
		Date:         "2025-03-14",
		StartTime:    str("08:00"),
		EndTime:      str("19:00"),
		BreakMinutes: 60,
		Kind:         "work",
	}, "")
	require.NoError(t, err)
	require.NotNil(t, result.Entry)

	// 10h on the day, 42h validated earlier in the week: 4h overtime.
	require.NotNil(t, result.Breakdown)
	assert.InDelta(t, 6, result.Breakdown.RegularHours, 1e-9)
	assert.InDelta(t, 4, result.Breakdown.OvertimeHours, 1e-9)
}

func TestTimeEntryServiceCreateFullDayLeave(t *testing.T) {
	repo := newMockIntervalRepo()
	svc := newTimeEntryService(repo, &mockAudit{})

	result, err := svc.Create(context.Background(), TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-10",
		Kind:       "vacation",
	}, "")
	require.NoError(t, err)
	require.NotNil(t, result.Entry)
	assert.True(t, result.Validation.Valid)
	assert.Nil(t, result.Breakdown)
}

func TestTimeEntryServiceCreateRejectsEndBeforeStart(t *testing.T) {
	svc := newTimeEntryService(newMockIntervalRepo(), &mockAudit{})

	_, err := svc.Create(context.Background(), TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-10",
		StartTime:  str("22:00"),
		EndTime:    str("06:00"),
		Kind:       "work",
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "split night shifts")
}

func TestTimeEntryServiceCreateRejectsHalfTimedWork(t *testing.T) {
	svc := newTimeEntryService(newMockIntervalRepo(), &mockAudit{})

	_, err := svc.Create(context.Background(), TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-10",
		StartTime:  str("09:00"),
		Kind:       "work",
	}, "")
	require.Error(t, err)
}

func TestTimeEntryServiceUpdateExcludesReplacedEntry(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourceActual),
	)
	svc := newTimeEntryService(repo, &mockAudit{})

	// The new shape overlaps the old one; it must only be compared against
	// the rest of the schedule.
	result, err := svc.Update(context.Background(), "e1", TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-10",
		StartTime:  str("09:00"),
		EndTime:    str("18:00"),
		Kind:       "work",
	}, "user-1")
	require.NoError(t, err)
	assert.True(t, result.Validation.Valid)
	require.NotNil(t, result.Entry)
	assert.Equal(t, "e1", result.Entry.ID)
	assert.Len(t, repo.updated, 1)
}

func TestTimeEntryServiceUpdateNotFound(t *testing.T) {
	svc := newTimeEntryService(newMockIntervalRepo(), &mockAudit{})

	_, err := svc.Update(context.Background(), "missing", TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-10",
		StartTime:  str("09:00"),
		EndTime:    str("17:00"),
		Kind:       "work",
	}, "")
	require.Error(t, err)
}

func TestTimeEntryServiceValidateDoesNotPersist(t *testing.T) {
	repo := newMockIntervalRepo()
	svc := newTimeEntryService(repo, &mockAudit{})

	result, err := svc.Validate(context.Background(), TimeEntryRequest{
		EmployeeID: 7,
		Date:       "2025-03-10",
		StartTime:  str("09:00"),
		EndTime:    str("17:00"),
		Kind:       "work",
	})
	require.NoError(t, err)
	assert.True(t, result.Validation.Valid)
	assert.Nil(t, result.Entry)
	assert.Empty(t, repo.created)
}

func TestTimeEntryServiceDelete(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourceActual),
	)
	audit := &mockAudit{}
	svc := newTimeEntryService(repo, audit)

	require.NoError(t, svc.Delete(context.Background(), "e1", "user-1"))
	assert.Equal(t, []string{"e1"}, repo.deleted)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEntryDelete, audit.logs[0].Action)
}
