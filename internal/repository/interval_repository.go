package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

const intervalColumns = "id, employee_id, date, start_time, end_time, break_minutes, kind, status, source_kind, note, created_at, updated_at"

// IntervalRepository provides persistence for work intervals (planned
// shifts and recorded time entries share one table, discriminated by
// source_kind).
type IntervalRepository struct {
	db *sqlx.DB
}

// NewIntervalRepository creates a new interval repository.
func NewIntervalRepository(db *sqlx.DB) *IntervalRepository {
	return &IntervalRepository{db: db}
}

// List returns intervals with optional filtering and pagination.
func (r *IntervalRepository) List(ctx context.Context, filter models.IntervalFilter) ([]models.WorkInterval, int, error) {
	base := "FROM work_intervals WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", len(args)+1))
		args = append(args, *filter.EmployeeID)
	}
	if filter.Source != nil {
		conditions = append(conditions, fmt.Sprintf("source_kind = $%d", len(args)+1))
		args = append(args, string(*filter.Source))
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(*filter.Status))
	}
	if filter.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)+1))
		args = append(args, string(*filter.Kind))
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"date":        true,
		"employee_id": true,
		"start_time":  true,
		"created_at":  true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", intervalColumns, base, sortBy, order, size, offset)
	var intervals []models.WorkInterval
	if err := r.db.SelectContext(ctx, &intervals, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list intervals: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count intervals: %w", err)
	}

	return intervals, total, nil
}

// ListRange returns all intervals for the given employees within the
// inclusive date range, optionally scoped to one source kind. An empty
// employee slice means no employee restriction.
func (r *IntervalRepository) ListRange(ctx context.Context, employeeIDs []int64, from, to time.Time, source *models.IntervalSource) ([]models.WorkInterval, error) {
	query := fmt.Sprintf("SELECT %s FROM work_intervals WHERE date >= ? AND date <= ?", intervalColumns)
	args := []interface{}{from, to}

	if source != nil {
		query += " AND source_kind = ?"
		args = append(args, string(*source))
	}
	if len(employeeIDs) > 0 {
		query += " AND employee_id IN (?)"
		args = append(args, employeeIDs)
	}
	query += " ORDER BY employee_id ASC, date ASC, start_time ASC"

	expanded, expandedArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("build range query: %w", err)
	}

	var intervals []models.WorkInterval
	if err := r.db.SelectContext(ctx, &intervals, r.db.Rebind(expanded), expandedArgs...); err != nil {
		return nil, fmt.Errorf("list intervals in range: %w", err)
	}
	return intervals, nil
}

// FindByID loads an interval by id.
func (r *IntervalRepository) FindByID(ctx context.Context, id string) (*models.WorkInterval, error) {
	query := fmt.Sprintf("SELECT %s FROM work_intervals WHERE id = $1", intervalColumns)
	var interval models.WorkInterval
	if err := r.db.GetContext(ctx, &interval, query, id); err != nil {
		return nil, err
	}
	return &interval, nil
}

// LastEndingBefore returns the employee's countable interval on the day
// before the given date with the latest end time, or nil when none exists.
// It feeds the inter-shift rest check.
func (r *IntervalRepository) LastEndingBefore(ctx context.Context, employeeID int64, date time.Time) (*models.WorkInterval, error) {
	priorDay := date.AddDate(0, 0, -1)
	query := fmt.Sprintf("SELECT %s FROM work_intervals WHERE employee_id = $1 AND date = $2 AND kind IN ('work', 'overtime') AND end_time IS NOT NULL ORDER BY end_time DESC LIMIT 1", intervalColumns)

	var interval models.WorkInterval
	if err := r.db.GetContext(ctx, &interval, query, employeeID, priorDay); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find last interval before %s: %w", date.Format("2006-01-02"), err)
	}
	return &interval, nil
}

// ValidatedWeeklyHoursBefore sums the net validated hours recorded for the
// employee from weekStart up to but excluding beforeDate. It feeds the
// weekly overtime trigger.
func (r *IntervalRepository) ValidatedWeeklyHoursBefore(ctx context.Context, employeeID int64, weekStart, beforeDate time.Time) (float64, error) {
	const query = `SELECT COALESCE(SUM(GREATEST(EXTRACT(EPOCH FROM (end_time - start_time)) / 3600 - break_minutes / 60.0, 0)), 0)
		FROM work_intervals
		WHERE employee_id = $1
		  AND source_kind = 'actual'
		  AND status = 'validated'
		  AND kind IN ('work', 'overtime')
		  AND date >= $2 AND date < $3
		  AND start_time IS NOT NULL AND end_time IS NOT NULL`

	var hours float64
	if err := r.db.GetContext(ctx, &hours, query, employeeID, weekStart, beforeDate); err != nil {
		return 0, fmt.Errorf("sum validated weekly hours: %w", err)
	}
	return hours, nil
}

// Create stores a new interval record.
func (r *IntervalRepository) Create(ctx context.Context, interval *models.WorkInterval) error {
	if interval.ID == "" {
		interval.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if interval.CreatedAt.IsZero() {
		interval.CreatedAt = now
	}
	interval.UpdatedAt = now

	const query = `INSERT INTO work_intervals (id, employee_id, date, start_time, end_time, break_minutes, kind, status, source_kind, note, created_at, updated_at) VALUES (:id, :employee_id, :date, :start_time, :end_time, :break_minutes, :kind, :status, :source_kind, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, interval); err != nil {
		return fmt.Errorf("create interval: %w", err)
	}
	return nil
}

// BulkCreate inserts many intervals within a transaction.
func (r *IntervalRepository) BulkCreate(ctx context.Context, intervals []models.WorkInterval) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create intervals: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.bulkInsertIntervals(ctx, tx, intervals); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create intervals: %w", err)
	}
	return nil
}

func (r *IntervalRepository) bulkInsertIntervals(ctx context.Context, exec sqlx.ExtContext, intervals []models.WorkInterval) error {
	now := time.Now().UTC()
	for i := range intervals {
		payload := intervals[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO work_intervals (id, employee_id, date, start_time, end_time, break_minutes, kind, status, source_kind, note, created_at, updated_at) VALUES (:id, :employee_id, :date, :start_time, :end_time, :break_minutes, :kind, :status, :source_kind, :note, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert interval: %w", err)
		}
		intervals[i] = payload
	}
	return nil
}

// Update modifies an interval record.
func (r *IntervalRepository) Update(ctx context.Context, interval *models.WorkInterval) error {
	interval.UpdatedAt = time.Now().UTC()
	const query = `UPDATE work_intervals SET employee_id = :employee_id, date = :date, start_time = :start_time, end_time = :end_time, break_minutes = :break_minutes, kind = :kind, status = :status, source_kind = :source_kind, note = :note, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, interval); err != nil {
		return fmt.Errorf("update interval: %w", err)
	}
	return nil
}

// Delete removes an interval by id.
func (r *IntervalRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM work_intervals WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete interval: %w", err)
	}
	return nil
}
