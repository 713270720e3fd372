package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/worktime"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
)

type timeEntryRepository interface {
	List(ctx context.Context, filter models.IntervalFilter) ([]models.WorkInterval, int, error)
	ListRange(ctx context.Context, employeeIDs []int64, from, to time.Time, source *models.IntervalSource) ([]models.WorkInterval, error)
	FindByID(ctx context.Context, id string) (*models.WorkInterval, error)
	LastEndingBefore(ctx context.Context, employeeID int64, date time.Time) (*models.WorkInterval, error)
	ValidatedWeeklyHoursBefore(ctx context.Context, employeeID int64, weekStart, beforeDate time.Time) (float64, error)
	Create(ctx context.Context, interval *models.WorkInterval) error
	Update(ctx context.Context, interval *models.WorkInterval) error
	Delete(ctx context.Context, id string) error
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// TimeEntryRequest describes the payload for creating or replacing a
// recorded time entry.
type TimeEntryRequest struct {
	EmployeeID   int64   `json:"employee_id" validate:"required,gt=0"`
	Date         string  `json:"date" validate:"required"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	BreakMinutes int     `json:"break_minutes" validate:"gte=0"`
	Kind         string  `json:"kind" validate:"required"`
	Note         *string `json:"note,omitempty"`
}

// TimeEntryResult carries the persisted entry (nil when the write was
// refused), the validation verdict and the payroll hour split.
type TimeEntryResult struct {
	Entry      *models.WorkInterval     `json:"entry,omitempty"`
	Validation models.ValidationResult  `json:"validation"`
	Breakdown  *worktime.HoursBreakdown `json:"breakdown,omitempty"`
}

// TimeEntryService coordinates recorded time entries: every write runs
// through the validation engine first and is refused on blocking conflicts.
type TimeEntryService struct {
	repo      timeEntryRepository
	audit     auditRecorder
	cache     *CacheService
	rules     worktime.Rules
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimeEntryService instantiates TimeEntryService.
func NewTimeEntryService(repo timeEntryRepository, audit auditRecorder, cache *CacheService, rules worktime.Rules, validate *validator.Validate, logger *zap.Logger) *TimeEntryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeEntryService{repo: repo, audit: audit, cache: cache, rules: rules, validator: validate, logger: logger}
}

// List returns time entries with pagination metadata.
func (s *TimeEntryService) List(ctx context.Context, filter models.IntervalFilter) ([]models.WorkInterval, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time entries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

// Get loads a single entry by id.
func (s *TimeEntryService) Get(ctx context.Context, id string) (*models.WorkInterval, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time entry")
	}
	return entry, nil
}

// Validate runs the full rule check for the candidate entry without
// persisting anything.
func (s *TimeEntryService) Validate(ctx context.Context, req TimeEntryRequest) (*TimeEntryResult, error) {
	candidate, err := s.buildCandidate(req)
	if err != nil {
		return nil, err
	}
	return s.validateCandidate(ctx, candidate, "")
}

// Create validates the candidate against the employee's recorded schedule
// and persists it when no blocking conflict exists. A refused write is not
// an error: the result carries the conflicts and Entry stays nil.
func (s *TimeEntryService) Create(ctx context.Context, req TimeEntryRequest, actorID string) (*TimeEntryResult, error) {
	candidate, err := s.buildCandidate(req)
	if err != nil {
		return nil, err
	}

	result, err := s.validateCandidate(ctx, candidate, "")
	if err != nil {
		return nil, err
	}
	if !result.Validation.Valid {
		return result, nil
	}

	if err := s.repo.Create(ctx, candidate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time entry")
	}
	result.Entry = candidate

	s.invalidateCaches(ctx, candidate.EmployeeID)
	s.recordAudit(ctx, actorID, models.AuditActionEntryCreate, candidate)

	return result, nil
}

// Update replaces an existing entry after re-validating the new shape
// against the rest of the schedule (the entry being replaced is excluded
// from the comparison set).
func (s *TimeEntryService) Update(ctx context.Context, id string, req TimeEntryRequest, actorID string) (*TimeEntryResult, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time entry")
	}

	candidate, err := s.buildCandidate(req)
	if err != nil {
		return nil, err
	}
	candidate.ID = existing.ID
	candidate.Status = existing.Status
	candidate.CreatedAt = existing.CreatedAt

	result, err := s.validateCandidate(ctx, candidate, existing.ID)
	if err != nil {
		return nil, err
	}
	if !result.Validation.Valid {
		return result, nil
	}

	if err := s.repo.Update(ctx, candidate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update time entry")
	}
	result.Entry = candidate

	s.invalidateCaches(ctx, candidate.EmployeeID)
	s.recordAudit(ctx, actorID, models.AuditActionEntryUpdate, candidate)

	return result, nil
}

// Delete removes an entry. Deletion never needs rule validation; it can only
// reduce totals.
func (s *TimeEntryService) Delete(ctx context.Context, id string, actorID string) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "time entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time entry")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time entry")
	}

	s.invalidateCaches(ctx, existing.EmployeeID)
	s.recordAudit(ctx, actorID, models.AuditActionEntryDelete, existing)
	return nil
}

func (s *TimeEntryService) buildCandidate(req TimeEntryRequest) (*models.WorkInterval, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid time entry payload")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}

	kind := models.IntervalKind(req.Kind)
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported kind %q", req.Kind))
	}

	if (req.StartTime == nil) != (req.EndTime == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be provided together")
	}
	if kind.Countable() && req.StartTime == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "work entries require start_time and end_time")
	}

	candidate := &models.WorkInterval{
		EmployeeID:   req.EmployeeID,
		Date:         date,
		BreakMinutes: req.BreakMinutes,
		Kind:         kind,
		Status:       models.StatusSubmitted,
		Source:       models.SourceActual,
		Note:         req.Note,
	}

	if req.StartTime != nil {
		start, err := models.ParseTimeOfDay(*req.StartTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
		}
		end, err := models.ParseTimeOfDay(*req.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
		}
		if end.Minutes() <= start.Minutes() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time; split night shifts into two same-day entries")
		}
		candidate.StartTime = &start
		candidate.EndTime = &end
	}

	return candidate, nil
}

// validateCandidate runs the daily, rest and weekly checks against the
// employee's recorded schedule and computes the payroll split when the
// candidate survives them.
func (s *TimeEntryService) validateCandidate(ctx context.Context, candidate *models.WorkInterval, ignoreID string) (*TimeEntryResult, error) {
	source := models.SourceActual
	date := candidate.Date

	sameDay, err := s.repo.ListRange(ctx, []int64{candidate.EmployeeID}, date, date, &source)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load same-day entries")
	}
	sameDay = excludeInterval(sameDay, ignoreID)

	daily, err := worktime.ValidateDaily(s.rules, candidate.EmployeeID, date, *candidate, sameDay)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed interval data")
	}

	conflicts := append([]models.ConflictDescriptor{}, daily.Conflicts...)

	if candidate.Timed() && candidate.Kind.Countable() {
		prior, err := s.repo.LastEndingBefore(ctx, candidate.EmployeeID, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prior-day entry")
		}
		if prior != nil && prior.ID != ignoreID && prior.EndTime != nil {
			rest := worktime.ValidateRest(s.rules, candidate.EmployeeID, date, *candidate.StartTime, prior.EndTime)
			conflicts = append(conflicts, rest.Conflicts...)
		}
	}

	weekStart := worktime.WeekStart(date)
	weekEnd := weekStart.AddDate(0, 0, 6)
	weekIntervals, err := s.repo.ListRange(ctx, []int64{candidate.EmployeeID}, weekStart, weekEnd, &source)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly entries")
	}
	weekIntervals = excludeInterval(weekIntervals, ignoreID)
	weekIntervals = append(weekIntervals, *candidate)

	weekly, err := worktime.ValidateWeekly(s.rules, candidate.EmployeeID, weekStart, weekIntervals)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed interval data")
	}
	conflicts = append(conflicts, weekly.Conflicts...)

	result := &TimeEntryResult{Validation: models.NewValidationResult(conflicts)}
	if !result.Validation.Valid {
		s.logger.Info("time entry refused",
			zap.Int64("employee_id", candidate.EmployeeID),
			zap.String("date", date.Format("2006-01-02")),
			zap.Int("conflicts", len(conflicts)),
		)
		return result, nil
	}

	if candidate.Kind.Countable() {
		dayTotal, err := worktime.TotalHours(append(sameDay, *candidate))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed interval data")
		}
		weeklyBefore, err := s.repo.ValidatedWeeklyHoursBefore(ctx, candidate.EmployeeID, weekStart, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum weekly hours")
		}
		breakdown := worktime.SplitOvertime(s.rules, dayTotal, weeklyBefore)
		result.Breakdown = &breakdown
	}

	return result, nil
}

func (s *TimeEntryService) invalidateCaches(ctx context.Context, employeeID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "conflicts:*"); err != nil {
		s.logger.Warn("conflict cache invalidation failed", zap.Int64("employee_id", employeeID), zap.Error(err))
	}
}

func (s *TimeEntryService) recordAudit(ctx context.Context, actorID, action string, entry *models.WorkInterval) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:     action,
		Resource:   "time_entry",
		ResourceID: &entry.ID,
		NewValues:  []byte(fmt.Sprintf(`{"employee_id":%d,"date":%q}`, entry.EmployeeID, entry.Date.Format("2006-01-02"))),
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record time entry audit log", zap.Error(err))
	}
}

func excludeInterval(intervals []models.WorkInterval, ignoreID string) []models.WorkInterval {
	if ignoreID == "" {
		return intervals
	}
	filtered := intervals[:0:0]
	for _, iv := range intervals {
		if iv.ID != ignoreID {
			filtered = append(filtered, iv)
		}
	}
	return filtered
}
