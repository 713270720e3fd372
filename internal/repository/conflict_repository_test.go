package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

func TestConflictRepositoryRecordMany(t *testing.T) {
	db, mock, cleanup := newIntervalMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	date := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	conflicts := []models.ConflictDescriptor{
		{Type: models.ConflictOverlap, Severity: models.SeverityError, EmployeeID: 7, Date: &date, Description: "09:00-17:00 overlaps 16:00-18:00"},
		{Type: models.ConflictBelowMinimumWeekly, Severity: models.SeverityWarning, EmployeeID: 7, WeekStart: &date, Description: "10.00h planned", Suggestion: "schedule toward the 35h target"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conflict_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO conflict_records").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RecordMany(context.Background(), conflicts, time.Now().UTC()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryRecordManyEmptyBatchIsNoop(t *testing.T) {
	db, mock, cleanup := newIntervalMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	require.NoError(t, repo.RecordMany(context.Background(), nil, time.Now().UTC()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryListUnnotified(t *testing.T) {
	db, mock, cleanup := newIntervalMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	rows := sqlmock.NewRows([]string{"id", "employee_id", "type", "severity", "date", "week_start", "description", "suggestion", "detected_at", "notified"}).
		AddRow("c-1", int64(7), "overlap", "error", time.Now(), nil, "overlapping shifts", nil, time.Now(), false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, employee_id, type, severity, date, week_start, description, suggestion, detected_at, notified FROM conflict_records WHERE notified = false ORDER BY detected_at ASC LIMIT $1")).
		WithArgs(100).
		WillReturnRows(rows)

	records, err := repo.ListUnnotified(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.ConflictOverlap, records[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryMarkNotified(t *testing.T) {
	db, mock, cleanup := newIntervalMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE conflict_records SET notified = true WHERE id IN ($1, $2)")).
		WithArgs("c-1", "c-2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.MarkNotified(context.Background(), []string{"c-1", "c-2"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
