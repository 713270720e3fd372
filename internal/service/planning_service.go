package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/worktime"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
)

type planningRepository interface {
	ListRange(ctx context.Context, employeeIDs []int64, from, to time.Time, source *models.IntervalSource) ([]models.WorkInterval, error)
	BulkCreate(ctx context.Context, intervals []models.WorkInterval) error
	Delete(ctx context.Context, id string) error
}

// PlanningItemRequest is one shift inside a bulk planning payload.
type PlanningItemRequest struct {
	EmployeeID   int64   `json:"employee_id" validate:"required,gt=0"`
	Date         string  `json:"date" validate:"required"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	BreakMinutes int     `json:"break_minutes" validate:"gte=0"`
	Kind         string  `json:"kind" validate:"required"`
	Note         *string `json:"note,omitempty"`
}

// BulkPlanningRequest holds multiple planned shifts for creation. When
// PartialOnError is false the batch is atomic: one blocking conflict refuses
// everything. When true, conflicting items are skipped and the rest persist.
type BulkPlanningRequest struct {
	Items          []PlanningItemRequest `json:"items" validate:"required,min=1,dive"`
	PartialOnError bool                  `json:"partial_on_error"`
}

// BulkPlanningResult summarises a bulk planning run. Report always covers
// the full candidate set, including skipped items.
type BulkPlanningResult struct {
	Created []models.WorkInterval    `json:"created"`
	Skipped []models.WorkInterval    `json:"skipped,omitempty"`
	Report  worktime.DetectionReport `json:"report"`
}

// CopyWeekRequest duplicates an employee's planned week onto another week.
type CopyWeekRequest struct {
	EmployeeID int64  `json:"employee_id" validate:"required,gt=0"`
	FromWeek   string `json:"from_week" validate:"required"`
	ToWeek     string `json:"to_week" validate:"required"`
}

// PlanningService coordinates planned shifts. Batches are validated as a
// whole: candidates are checked against persisted planning data and against
// each other before anything is written.
type PlanningService struct {
	repo      planningRepository
	detector  *worktime.Detector
	audit     auditRecorder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPlanningService instantiates PlanningService.
func NewPlanningService(repo planningRepository, detector *worktime.Detector, audit auditRecorder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *PlanningService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlanningService{repo: repo, detector: detector, audit: audit, cache: cache, validator: validate, logger: logger}
}

// BulkCreate validates and persists a batch of planned shifts.
func (s *PlanningService) BulkCreate(ctx context.Context, req BulkPlanningRequest, actorID string) (*BulkPlanningResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk planning payload")
	}

	candidates := make([]models.WorkInterval, 0, len(req.Items))
	for _, item := range req.Items {
		candidate, err := s.buildPlanned(item)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *candidate)
	}

	result, err := s.validateAndPersist(ctx, candidates, req.PartialOnError)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, actorID, models.AuditActionBulkPlanning, len(result.Created), len(result.Skipped))
	return result, nil
}

// CopyWeek duplicates the planned shifts of one week onto another, running
// the copied batch through the same validation as a fresh bulk create. The
// copy is atomic.
func (s *PlanningService) CopyWeek(ctx context.Context, req CopyWeekRequest, actorID string) (*BulkPlanningResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid copy week payload")
	}

	fromWeek, err := time.Parse("2006-01-02", req.FromWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "from_week must be YYYY-MM-DD")
	}
	toWeek, err := time.Parse("2006-01-02", req.ToWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "to_week must be YYYY-MM-DD")
	}
	fromWeek = worktime.WeekStart(fromWeek)
	toWeek = worktime.WeekStart(toWeek)
	if fromWeek.Equal(toWeek) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "source and target week are identical")
	}

	source := models.SourcePlanning
	template, err := s.repo.ListRange(ctx, []int64{req.EmployeeID}, fromWeek, fromWeek.AddDate(0, 0, 6), &source)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source week")
	}
	if len(template) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "source week has no planned shifts")
	}

	offsetDays := int(toWeek.Sub(fromWeek).Hours() / 24)
	candidates := make([]models.WorkInterval, 0, len(template))
	for _, iv := range template {
		copied := iv
		copied.ID = uuid.NewString()
		copied.Date = iv.Date.AddDate(0, 0, offsetDays)
		copied.Status = models.StatusDraft
		copied.CreatedAt = time.Time{}
		copied.UpdatedAt = time.Time{}
		candidates = append(candidates, copied)
	}

	result, err := s.validateAndPersist(ctx, candidates, false)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, actorID, models.AuditActionBulkPlanning, len(result.Created), len(result.Skipped))
	return result, nil
}

// Delete removes a planned shift.
func (s *PlanningService) Delete(ctx context.Context, id string, actorID string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete planned shift")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "conflicts:*"); err != nil {
			s.logger.Warn("conflict cache invalidation failed", zap.Error(err))
		}
	}
	if s.audit != nil {
		log := &models.AuditLog{
			Action:     models.AuditActionEntryDelete,
			Resource:   "planning",
			ResourceID: &id,
		}
		if actorID != "" {
			log.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, log); err != nil {
			s.logger.Warn("failed to record planning audit log", zap.Error(err))
		}
	}
	return nil
}

func (s *PlanningService) validateAndPersist(ctx context.Context, candidates []models.WorkInterval, partialOnError bool) (*BulkPlanningResult, error) {
	from, to := candidates[0].Date, candidates[0].Date
	employeeSet := make(map[int64]struct{})
	for _, c := range candidates {
		if c.Date.Before(from) {
			from = c.Date
		}
		if c.Date.After(to) {
			to = c.Date
		}
		employeeSet[c.EmployeeID] = struct{}{}
	}
	employees := make([]int64, 0, len(employeeSet))
	for id := range employeeSet {
		employees = append(employees, id)
	}

	// Widen by a week on both sides so weekly totals and prior-day rest
	// checks see the surrounding schedule.
	source := models.SourcePlanning
	existing, err := s.repo.ListRange(ctx, employees, from.AddDate(0, 0, -7), to.AddDate(0, 0, 7), &source)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing planning")
	}

	snapshot := make([]models.WorkInterval, 0, len(existing)+len(candidates))
	snapshot = append(snapshot, existing...)
	snapshot = append(snapshot, candidates...)

	report, err := s.detector.Detect(snapshot, worktime.WeekStart(from), worktime.WeekStart(to).AddDate(0, 0, 6))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed interval data")
	}

	result := &BulkPlanningResult{Report: report}

	if report.Summary.Errors > 0 && !partialOnError {
		s.logger.Info("bulk planning refused",
			zap.Int("items", len(candidates)),
			zap.Int("errors", report.Summary.Errors),
		)
		return result, nil
	}

	toCreate := candidates
	if report.Summary.Errors > 0 {
		toCreate = nil
		blockedDays, blockedWeeks := blockedScopes(report.Conflicts)
		for _, c := range candidates {
			day := c.Date.Format("2006-01-02")
			week := worktime.WeekStart(c.Date).Format("2006-01-02")
			if _, ok := blockedDays[scopeKey(c.EmployeeID, day)]; ok {
				result.Skipped = append(result.Skipped, c)
				continue
			}
			if _, ok := blockedWeeks[scopeKey(c.EmployeeID, week)]; ok {
				result.Skipped = append(result.Skipped, c)
				continue
			}
			toCreate = append(toCreate, c)
		}
	}

	if len(toCreate) > 0 {
		if err := s.repo.BulkCreate(ctx, toCreate); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to bulk create planning")
		}
	}
	result.Created = toCreate
	return result, nil
}

func (s *PlanningService) afterWrite(ctx context.Context, actorID, action string, created, skipped int) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, "conflicts:*"); err != nil {
			s.logger.Warn("conflict cache invalidation failed", zap.Error(err))
		}
	}
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{
		Action:    action,
		Resource:  "planning",
		NewValues: []byte(fmt.Sprintf(`{"created":%d,"skipped":%d}`, created, skipped)),
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record planning audit log", zap.Error(err))
	}
}

func (s *PlanningService) buildPlanned(item PlanningItemRequest) (*models.WorkInterval, error) {
	date, err := time.Parse("2006-01-02", item.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}

	kind := models.IntervalKind(item.Kind)
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported kind %q", item.Kind))
	}
	if (item.StartTime == nil) != (item.EndTime == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be provided together")
	}
	if kind.Countable() && item.StartTime == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "planned shifts require start_time and end_time")
	}

	planned := &models.WorkInterval{
		ID:           uuid.NewString(),
		EmployeeID:   item.EmployeeID,
		Date:         date,
		BreakMinutes: item.BreakMinutes,
		Kind:         kind,
		Status:       models.StatusDraft,
		Source:       models.SourcePlanning,
		Note:         item.Note,
	}

	if item.StartTime != nil {
		start, err := models.ParseTimeOfDay(*item.StartTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_time")
		}
		end, err := models.ParseTimeOfDay(*item.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_time")
		}
		if end.Minutes() <= start.Minutes() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time; split night shifts into two same-day entries")
		}
		planned.StartTime = &start
		planned.EndTime = &end
	}

	return planned, nil
}

func blockedScopes(conflicts []models.ConflictDescriptor) (days, weeks map[string]struct{}) {
	days = make(map[string]struct{})
	weeks = make(map[string]struct{})
	for _, c := range conflicts {
		if !c.IsError() {
			continue
		}
		if c.Date != nil {
			days[scopeKey(c.EmployeeID, c.Date.Format("2006-01-02"))] = struct{}{}
		}
		if c.WeekStart != nil {
			weeks[scopeKey(c.EmployeeID, c.WeekStart.Format("2006-01-02"))] = struct{}{}
		}
	}
	return days, weeks
}

func scopeKey(employeeID int64, date string) string {
	return fmt.Sprintf("%d:%s", employeeID, date)
}
