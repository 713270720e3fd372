package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/worktime"
)

func newPlanningService(repo *mockIntervalRepo, audit *mockAudit) *PlanningService {
	detector := worktime.NewDetector(worktime.DefaultRules(), zap.NewNop())
	return NewPlanningService(repo, detector, audit, nil, validator.New(), zap.NewNop())
}

func planItem(employeeID int64, date, start, end string) PlanningItemRequest {
	return PlanningItemRequest{
		EmployeeID: employeeID,
		Date:       date,
		StartTime:  str(start),
		EndTime:    str(end),
		Kind:       "work",
	}
}

func TestPlanningServiceBulkCreate(t *testing.T) {
	repo := newMockIntervalRepo()
	audit := &mockAudit{}
	svc := newPlanningService(repo, audit)

	result, err := svc.BulkCreate(context.Background(), BulkPlanningRequest{
		Items: []PlanningItemRequest{
			planItem(7, "2025-03-10", "09:00", "17:00"),
			planItem(7, "2025-03-11", "09:00", "17:00"),
			planItem(7, "2025-03-12", "09:00", "17:00"),
		},
	}, "user-1")
	require.NoError(t, err)
	assert.Len(t, result.Created, 3)
	assert.Empty(t, result.Skipped)
	assert.Zero(t, result.Report.Summary.Errors)
	require.Len(t, repo.bulkCreated, 1)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionBulkPlanning, audit.logs[0].Action)

	for _, iv := range result.Created {
		assert.Equal(t, models.SourcePlanning, iv.Source)
		assert.Equal(t, models.StatusDraft, iv.Status)
		assert.NotEmpty(t, iv.ID)
	}
}

func TestPlanningServiceBulkCreateAtomicRefusal(t *testing.T) {
	repo := newMockIntervalRepo()
	svc := newPlanningService(repo, &mockAudit{})

	result, err := svc.BulkCreate(context.Background(), BulkPlanningRequest{
		Items: []PlanningItemRequest{
			planItem(7, "2025-03-10", "09:00", "17:00"),
			planItem(7, "2025-03-10", "16:00", "18:00"),
			planItem(7, "2025-03-11", "09:00", "17:00"),
		},
	}, "user-1")
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Positive(t, result.Report.Summary.Errors)
	assert.Empty(t, repo.bulkCreated)
}

func TestPlanningServiceBulkCreatePartialSkipsBlockedScope(t *testing.T) {
	repo := newMockIntervalRepo()
	svc := newPlanningService(repo, &mockAudit{})

	result, err := svc.BulkCreate(context.Background(), BulkPlanningRequest{
		Items: []PlanningItemRequest{
			planItem(7, "2025-03-10", "09:00", "17:00"),
			planItem(7, "2025-03-10", "16:00", "18:00"),
			planItem(8, "2025-03-10", "09:00", "17:00"),
		},
		PartialOnError: true,
	}, "user-1")
	require.NoError(t, err)

	// Both entries on the blocked day are skipped, the clean employee goes
	// through.
	require.Len(t, result.Created, 1)
	assert.Equal(t, int64(8), result.Created[0].EmployeeID)
	assert.Len(t, result.Skipped, 2)
	assert.Positive(t, result.Report.Summary.Errors)
}

func TestPlanningServiceBulkCreateConflictsWithExistingPlanning(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("p1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourcePlanning),
	)
	svc := newPlanningService(repo, &mockAudit{})

	result, err := svc.BulkCreate(context.Background(), BulkPlanningRequest{
		Items: []PlanningItemRequest{
			planItem(7, "2025-03-10", "16:00", "18:00"),
		},
	}, "")
	require.NoError(t, err)
	assert.Empty(t, result.Created)
	assert.Positive(t, result.Report.Summary.Errors)
}

func TestPlanningServiceCopyWeek(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("p1", 7, "2025-03-10", "09:00", "17:00", 60, models.KindWork, models.SourcePlanning),
		entry("p2", 7, "2025-03-11", "09:00", "17:00", 60, models.KindWork, models.SourcePlanning),
	)
	svc := newPlanningService(repo, &mockAudit{})

	result, err := svc.CopyWeek(context.Background(), CopyWeekRequest{
		EmployeeID: 7,
		FromWeek:   "2025-03-10",
		ToWeek:     "2025-03-17",
	}, "user-1")
	require.NoError(t, err)
	require.Len(t, result.Created, 2)

	dates := []string{
		result.Created[0].Date.Format("2006-01-02"),
		result.Created[1].Date.Format("2006-01-02"),
	}
	assert.ElementsMatch(t, []string{"2025-03-17", "2025-03-18"}, dates)
	for _, iv := range result.Created {
		assert.NotEqual(t, "p1", iv.ID)
		assert.NotEqual(t, "p2", iv.ID)
	}
}

func TestPlanningServiceCopyWeekIdenticalWeeks(t *testing.T) {
	svc := newPlanningService(newMockIntervalRepo(), &mockAudit{})

	_, err := svc.CopyWeek(context.Background(), CopyWeekRequest{
		EmployeeID: 7,
		FromWeek:   "2025-03-10",
		ToWeek:     "2025-03-12",
	}, "")
	require.Error(t, err)
}

func TestPlanningServiceCopyWeekEmptySource(t *testing.T) {
	svc := newPlanningService(newMockIntervalRepo(), &mockAudit{})

	_, err := svc.CopyWeek(context.Background(), CopyWeekRequest{
		EmployeeID: 7,
		FromWeek:   "2025-03-10",
		ToWeek:     "2025-03-17",
	}, "")
	require.Error(t, err)
}

func TestPlanningServiceDelete(t *testing.T) {
	repo := newMockIntervalRepo(
		entry("p1", 7, "2025-03-10", "09:00", "17:00", 0, models.KindWork, models.SourcePlanning),
	)
	audit := &mockAudit{}
	svc := newPlanningService(repo, audit)

	require.NoError(t, svc.Delete(context.Background(), "p1", "user-1"))
	assert.Equal(t, []string{"p1"}, repo.deleted)
	require.Len(t, audit.logs, 1)
}
