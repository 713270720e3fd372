package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/wfm-time-api/internal/models"
)

// ConflictRepository persists detected conflicts as audit records used for
// compliance trails and notification dispatch. Descriptors themselves are
// ephemeral; a record is the caller's durable copy.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository creates a new conflict repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// RecordMany stores a batch of conflict descriptors inside one transaction.
func (r *ConflictRepository) RecordMany(ctx context.Context, conflicts []models.ConflictDescriptor, detectedAt time.Time) error {
	if len(conflicts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record conflicts: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO conflict_records (id, employee_id, type, severity, date, week_start, description, suggestion, detected_at, notified) VALUES (:id, :employee_id, :type, :severity, :date, :week_start, :description, :suggestion, :detected_at, :notified)`
	for _, c := range conflicts {
		record := models.ConflictRecord{
			ID:          uuid.NewString(),
			EmployeeID:  c.EmployeeID,
			Type:        c.Type,
			Severity:    c.Severity,
			Date:        c.Date,
			WeekStart:   c.WeekStart,
			Description: c.Description,
			DetectedAt:  detectedAt,
		}
		if c.Suggestion != "" {
			suggestion := c.Suggestion
			record.Suggestion = &suggestion
		}
		if _, err = tx.NamedExecContext(ctx, query, &record); err != nil {
			return fmt.Errorf("record conflict: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit record conflicts: %w", err)
	}
	return nil
}

// ListUnnotified returns persisted conflicts that have not been dispatched.
func (r *ConflictRepository) ListUnnotified(ctx context.Context, limit int) ([]models.ConflictRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, employee_id, type, severity, date, week_start, description, suggestion, detected_at, notified FROM conflict_records WHERE notified = false ORDER BY detected_at ASC LIMIT $1`
	var records []models.ConflictRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("list unnotified conflicts: %w", err)
	}
	return records, nil
}

// MarkNotified flags records as dispatched.
func (r *ConflictRepository) MarkNotified(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE conflict_records SET notified = true WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build mark notified query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("mark conflicts notified: %w", err)
	}
	return nil
}
