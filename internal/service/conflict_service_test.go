package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/worktime"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
	"github.com/noah-isme/wfm-time-api/pkg/jobs"
)

type mockEmployeeDirectory struct {
	employees map[int64]models.Employee
	byDept    map[int64][]int64
}

func (m *mockEmployeeDirectory) FindByID(ctx context.Context, id int64) (*models.Employee, error) {
	if e, ok := m.employees[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEmployeeDirectory) ActiveIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	for id, e := range m.employees {
		if e.Active {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockEmployeeDirectory) IDsByDepartment(ctx context.Context, departmentID int64) ([]int64, error) {
	return m.byDept[departmentID], nil
}

type mockConflictRecorder struct {
	recorded [][]models.ConflictDescriptor
	pending  []models.ConflictRecord
	notified []string
}

func (m *mockConflictRecorder) RecordMany(ctx context.Context, conflicts []models.ConflictDescriptor, detectedAt time.Time) error {
	m.recorded = append(m.recorded, conflicts)
	for i, c := range conflicts {
		m.pending = append(m.pending, models.ConflictRecord{
			ID:          fmt.Sprintf("rec-%d-%d", len(m.recorded), i),
			EmployeeID:  c.EmployeeID,
			Type:        c.Type,
			Severity:    c.Severity,
			Date:        c.Date,
			WeekStart:   c.WeekStart,
			Description: c.Description,
			DetectedAt:  detectedAt,
		})
	}
	return nil
}

func (m *mockConflictRecorder) ListUnnotified(ctx context.Context, limit int) ([]models.ConflictRecord, error) {
	if limit > 0 && len(m.pending) > limit {
		return m.pending[:limit], nil
	}
	return m.pending, nil
}

func (m *mockConflictRecorder) MarkNotified(ctx context.Context, ids []string) error {
	m.notified = append(m.notified, ids...)
	var remaining []models.ConflictRecord
	for _, rec := range m.pending {
		keep := true
		for _, id := range ids {
			if rec.ID == id {
				keep = false
				break
			}
		}
		if keep {
			remaining = append(remaining, rec)
		}
	}
	m.pending = remaining
	return nil
}

type memCacheRepo struct {
	store map[string][]byte
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.store == nil {
		m.store = make(map[string][]byte)
	}
	m.store[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.store = make(map[string][]byte)
	return nil
}

func directoryWith(ids ...int64) *mockEmployeeDirectory {
	dir := &mockEmployeeDirectory{employees: make(map[int64]models.Employee)}
	for _, id := range ids {
		dir.employees[id] = models.Employee{ID: id, Active: true}
	}
	return dir
}

func newConflictService(repo *mockIntervalRepo, dir *mockEmployeeDirectory, records *mockConflictRecorder, cache *CacheService) *ConflictService {
	detector := worktime.NewDetector(worktime.DefaultRules(), zap.NewNop())
	var recorder conflictRecorder
	if records != nil {
		recorder = records
	}
	return NewConflictService(repo, dir, recorder, cache, nil, detector, time.Minute, validator.New(), zap.NewNop())
}

func TestConflictServiceDetectEmployeeScope(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourceActual),
		entry("e2", 7, "2025-03-10", "16:00", "18:00", 0, models.KindWork, models.SourceActual),
	)
	employeeID := int64(7)
	svc := newConflictService(repo, directoryWith(7), nil, nil)

	report, err := svc.Detect(context.Background(), DetectConflictsRequest{
		EmployeeID: &employeeID,
		From:       "2025-03-10",
		To:         "2025-03-16",
	})
	require.NoError(t, err)
	assert.Positive(t, report.Summary.Errors)
	assert.Equal(t, 1, report.Summary.AffectedEmployees)
}

func TestConflictServiceDetectUnknownEmployee(t *testing.T) {
	employeeID := int64(99)
	svc := newConflictService(newMockIntervalRepo(), directoryWith(7), nil, nil)

	_, err := svc.Detect(context.Background(), DetectConflictsRequest{
		EmployeeID: &employeeID,
		From:       "2025-03-10",
		To:         "2025-03-16",
	})
	require.Error(t, err)
}

func TestConflictServiceDetectExclusiveScopes(t *testing.T) {
	employeeID, departmentID := int64(7), int64(3)
	svc := newConflictService(newMockIntervalRepo(), directoryWith(7), nil, nil)

	_, err := svc.Detect(context.Background(), DetectConflictsRequest{
		EmployeeID:   &employeeID,
		DepartmentID: &departmentID,
		From:         "2025-03-10",
		To:           "2025-03-16",
	})
	require.Error(t, err)
}

func TestConflictServiceDetectInvertedRange(t *testing.T) {
	svc := newConflictService(newMockIntervalRepo(), directoryWith(7), nil, nil)

	_, err := svc.Detect(context.Background(), DetectConflictsRequest{
		From: "2025-03-16",
		To:   "2025-03-10",
	})
	require.Error(t, err)
}

func TestConflictServiceDetectServesCachedReport(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourceActual),
	)
	cache := NewCacheService(&memCacheRepo{}, nil, time.Minute, zap.NewNop(), true)
	svc := newConflictService(repo, directoryWith(7), nil, cache)

	req := DetectConflictsRequest{From: "2025-03-10", To: "2025-03-16"}
	first, err := svc.Detect(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, repo.listRangeCalls)

	second, err := svc.Detect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listRangeCalls)
	assert.Equal(t, first.Summary, second.Summary)
}

func TestConflictServiceScanWithoutQueue(t *testing.T) {
	svc := newConflictService(newMockIntervalRepo(), directoryWith(7), nil, nil)

	_, err := svc.Scan(context.Background(), DetectConflictsRequest{From: "2025-03-10", To: "2025-03-16"})
	require.Error(t, err)
}

func TestConflictServiceHandleScanJobPersistsFindings(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourceActual),
		entry("e2", 7, "2025-03-10", "16:00", "18:00", 0, models.KindWork, models.SourceActual),
	)
	records := &mockConflictRecorder{}
	svc := newConflictService(repo, directoryWith(7), records, nil)

	err := svc.HandleScanJob(context.Background(), jobs.Job{
		ID:   "job-1",
		Type: "conflict_scan",
		Payload: DetectConflictsRequest{
			From: "2025-03-10",
			To:   "2025-03-16",
		},
	})
	require.NoError(t, err)
	require.Len(t, records.recorded, 1)
	assert.NotEmpty(t, records.recorded[0])
}

func TestConflictServiceHandleScanJobDispatchesNotifications(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourceActual),
		entry("e2", 7, "2025-03-10", "16:00", "18:00", 0, models.KindWork, models.SourceActual),
	)
	records := &mockConflictRecorder{}
	svc := newConflictService(repo, directoryWith(7), records, nil)

	err := svc.HandleScanJob(context.Background(), jobs.Job{
		ID:   "job-1",
		Type: "conflict_scan",
		Payload: DetectConflictsRequest{
			From: "2025-03-10",
			To:   "2025-03-16",
		},
	})
	require.NoError(t, err)
	require.Len(t, records.recorded, 1)
	// Every persisted finding is announced and flagged, nothing stays queued.
	assert.Len(t, records.notified, len(records.recorded[0]))
	assert.Empty(t, records.pending)
}

func TestConflictServiceDetectWithoutCache(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("e1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourceActual),
	)
	svc := newConflictService(repo, directoryWith(7), nil, nil)

	req := DetectConflictsRequest{From: "2025-03-10", To: "2025-03-16"}
	_, err := svc.Detect(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Detect(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listRangeCalls)
}

func TestConflictServiceHandleScanJobRejectsForeignPayload(t *testing.T) {
	svc := newConflictService(newMockIntervalRepo(), directoryWith(7), nil, nil)

	err := svc.HandleScanJob(context.Background(), jobs.Job{ID: "job-1", Type: "conflict_scan", Payload: 42})
	require.Error(t, err)
}
