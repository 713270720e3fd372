package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/worktime"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
	"github.com/noah-isme/wfm-time-api/pkg/jobs"
)

type conflictIntervalRepository interface {
	ListRange(ctx context.Context, employeeIDs []int64, from, to time.Time, source *models.IntervalSource) ([]models.WorkInterval, error)
}

type conflictEmployeeRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Employee, error)
	ActiveIDs(ctx context.Context) ([]int64, error)
	IDsByDepartment(ctx context.Context, departmentID int64) ([]int64, error)
}

type conflictRecorder interface {
	RecordMany(ctx context.Context, conflicts []models.ConflictDescriptor, detectedAt time.Time) error
	ListUnnotified(ctx context.Context, limit int) ([]models.ConflictRecord, error)
	MarkNotified(ctx context.Context, ids []string) error
}

// notificationBatchSize caps how many pending records one scan run drains.
const notificationBatchSize = 100

// DetectConflictsRequest scopes an on-demand detection run. Exactly one of
// EmployeeID and DepartmentID may be set; when both are nil the run covers
// every active employee.
type DetectConflictsRequest struct {
	EmployeeID   *int64  `json:"employee_id,omitempty"`
	DepartmentID *int64  `json:"department_id,omitempty"`
	From         string  `json:"from" validate:"required"`
	To           string  `json:"to" validate:"required"`
	Source       *string `json:"source,omitempty"`
}

// ScanResult reports a persisted background scan.
type ScanResult struct {
	JobID    string `json:"job_id"`
	Enqueued bool   `json:"enqueued"`
}

// ConflictService runs the detection engine over persisted schedules,
// caching reports and optionally persisting them from a background worker.
type ConflictService struct {
	intervals conflictIntervalRepository
	employees conflictEmployeeRepository
	records   conflictRecorder
	cache     *CacheService
	metrics   *MetricsService
	detector  *worktime.Detector
	queue     *jobs.Queue
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewConflictService instantiates ConflictService. Attach the scan queue
// afterwards with SetQueue; the queue handler needs the service and the
// service needs the queue.
func NewConflictService(intervals conflictIntervalRepository, employees conflictEmployeeRepository, records conflictRecorder, cache *CacheService, metrics *MetricsService, detector *worktime.Detector, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{
		intervals: intervals,
		employees: employees,
		records:   records,
		cache:     cache,
		metrics:   metrics,
		detector:  detector,
		cacheTTL:  cacheTTL,
		validator: validate,
		logger:    logger,
	}
}

// SetQueue wires the background scan queue.
func (s *ConflictService) SetQueue(queue *jobs.Queue) {
	s.queue = queue
}

// Detect runs the engine for the requested scope and returns the full
// report. Results are cached per scope for the configured TTL; any schedule
// write invalidates the cache.
func (s *ConflictService) Detect(ctx context.Context, req DetectConflictsRequest) (*worktime.DetectionReport, error) {
	scope, err := s.resolveScope(ctx, req)
	if err != nil {
		return nil, err
	}

	cacheKey := scope.cacheKey()
	if s.cache != nil {
		var cached worktime.DetectionReport
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	intervals, err := s.intervals.ListRange(ctx, scope.employeeIDs, scope.from, scope.to, scope.source)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load intervals")
	}

	report, err := s.detector.Detect(intervals, scope.from, scope.to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed interval data")
	}

	if s.metrics != nil {
		s.metrics.RecordConflicts(report.Conflicts)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache detection report", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return &report, nil
}

// Scan enqueues a background detection run that persists its findings for
// notification dispatch.
func (s *ConflictService) Scan(ctx context.Context, req DetectConflictsRequest) (*ScanResult, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrDependencyUnavailable, "conflict scan worker is disabled")
	}
	if _, err := s.resolveScope(ctx, req); err != nil {
		return nil, err
	}

	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "conflict_scan",
		Payload: req,
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependencyUnavailable.Code, appErrors.ErrDependencyUnavailable.Status, "failed to enqueue conflict scan")
	}
	return &ScanResult{JobID: job.ID, Enqueued: true}, nil
}

// HandleScanJob is the queue handler for background scans. It bypasses the
// cache, persists every finding and counts them in metrics.
func (s *ConflictService) HandleScanJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(DetectConflictsRequest)
	if !ok {
		return fmt.Errorf("unexpected scan payload %T", job.Payload)
	}

	scope, err := s.resolveScope(ctx, req)
	if err != nil {
		return err
	}

	intervals, err := s.intervals.ListRange(ctx, scope.employeeIDs, scope.from, scope.to, scope.source)
	if err != nil {
		return fmt.Errorf("load intervals for scan: %w", err)
	}

	report, err := s.detector.Detect(intervals, scope.from, scope.to)
	if err != nil {
		return fmt.Errorf("run scan detection: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordConflicts(report.Conflicts)
	}
	if s.records != nil {
		if len(report.Conflicts) > 0 {
			if err := s.records.RecordMany(ctx, report.Conflicts, time.Now().UTC()); err != nil {
				return fmt.Errorf("persist scan findings: %w", err)
			}
		}
		if err := s.dispatchPending(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("conflict scan completed",
		zap.String("job_id", job.ID),
		zap.Int("employees", len(scope.employeeIDs)),
		zap.Int("conflicts", report.Summary.TotalConflicts),
		zap.Int("errors", report.Summary.Errors),
	)
	return nil
}

// dispatchPending drains persisted findings that have not been announced
// yet and flags them as notified. Delivery is a structured log line per
// record; a mail or chat channel can replace it without touching the scan
// flow.
func (s *ConflictService) dispatchPending(ctx context.Context) error {
	records, err := s.records.ListUnnotified(ctx, notificationBatchSize)
	if err != nil {
		return fmt.Errorf("list pending notifications: %w", err)
	}
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		s.logger.Info("conflict notification",
			zap.String("record_id", rec.ID),
			zap.Int64("employee_id", rec.EmployeeID),
			zap.String("type", string(rec.Type)),
			zap.String("severity", string(rec.Severity)),
			zap.String("description", rec.Description),
		)
		ids = append(ids, rec.ID)
	}
	if err := s.records.MarkNotified(ctx, ids); err != nil {
		return fmt.Errorf("mark notifications dispatched: %w", err)
	}
	return nil
}

type detectionScope struct {
	employeeIDs []int64
	from        time.Time
	to          time.Time
	source      *models.IntervalSource
	label       string
}

func (sc detectionScope) cacheKey() string {
	src := "all"
	if sc.source != nil {
		src = string(*sc.source)
	}
	return fmt.Sprintf("conflicts:%s:%s:%s:%s", sc.label, sc.from.Format("2006-01-02"), sc.to.Format("2006-01-02"), src)
}

func (s *ConflictService) resolveScope(ctx context.Context, req DetectConflictsRequest) (*detectionScope, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid detection payload")
	}
	if req.EmployeeID != nil && req.DepartmentID != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "employee_id and department_id are mutually exclusive")
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "to must be YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}

	scope := &detectionScope{from: from, to: to}

	if req.Source != nil {
		src := models.IntervalSource(*req.Source)
		if !src.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported source %q", *req.Source))
		}
		scope.source = &src
	}

	switch {
	case req.EmployeeID != nil:
		if _, err := s.employees.FindByID(ctx, *req.EmployeeID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "employee not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
		}
		scope.employeeIDs = []int64{*req.EmployeeID}
		scope.label = fmt.Sprintf("emp:%d", *req.EmployeeID)
	case req.DepartmentID != nil:
		ids, err := s.employees.IDsByDepartment(ctx, *req.DepartmentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve department")
		}
		if len(ids) == 0 {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "department has no active employees")
		}
		scope.employeeIDs = ids
		scope.label = fmt.Sprintf("dept:%d", *req.DepartmentID)
	default:
		ids, err := s.employees.ActiveIDs(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active employees")
		}
		scope.employeeIDs = ids
		scope.label = "all"
	}

	return scope, nil
}
