package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/worktime"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
	"github.com/noah-isme/wfm-time-api/pkg/export"
)

type reportIntervalRepository interface {
	ListRange(ctx context.Context, employeeIDs []int64, from, to time.Time, source *models.IntervalSource) ([]models.WorkInterval, error)
}

type reportEmployeeRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Employee, error)
	ActiveIDs(ctx context.Context) ([]int64, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledDatasetRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// OvertimeDay is one day in an overtime report.
type OvertimeDay struct {
	Date          time.Time `json:"date"`
	TotalHours    float64   `json:"total_hours"`
	RegularHours  float64   `json:"regular_hours"`
	OvertimeHours float64   `json:"overtime_hours"`
}

// OvertimeReport classifies an employee's recorded hours over a range.
type OvertimeReport struct {
	EmployeeID         int64         `json:"employee_id"`
	From               time.Time     `json:"from"`
	To                 time.Time     `json:"to"`
	Days               []OvertimeDay `json:"days"`
	TotalRegularHours  float64       `json:"total_regular_hours"`
	TotalOvertimeHours float64       `json:"total_overtime_hours"`
}

// PayrollExportRequest selects the payroll export scope and format.
type PayrollExportRequest struct {
	EmployeeID *int64 `json:"employee_id,omitempty"`
	From       string `json:"from" validate:"required"`
	To         string `json:"to" validate:"required"`
	Format     string `json:"format" validate:"required,oneof=csv pdf"`
}

// PayrollExport is a rendered payroll document.
type PayrollExport struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"-"`
}

// ReportService produces reconciliation and payroll reports from persisted
// schedules.
type ReportService struct {
	intervals reportIntervalRepository
	employees reportEmployeeRepository
	csv       datasetRenderer
	pdf       titledDatasetRenderer
	rules     worktime.Rules
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService instantiates ReportService.
func NewReportService(intervals reportIntervalRepository, employees reportEmployeeRepository, csv datasetRenderer, pdf titledDatasetRenderer, rules worktime.Rules, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{intervals: intervals, employees: employees, csv: csv, pdf: pdf, rules: rules, validator: validate, logger: logger}
}

// PlanVsActual reconciles one employee's planned shifts against recorded
// entries over the inclusive date range.
func (s *ReportService) PlanVsActual(ctx context.Context, employeeID int64, from, to time.Time) (*worktime.ComparisonReport, error) {
	if err := s.ensureEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}

	planning := models.SourcePlanning
	planned, err := s.intervals.ListRange(ctx, []int64{employeeID}, from, to, &planning)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load planned shifts")
	}

	actualSource := models.SourceActual
	actual, err := s.intervals.ListRange(ctx, []int64{employeeID}, from, to, &actualSource)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recorded entries")
	}

	report, err := worktime.ComparePlanActual(s.rules, employeeID, from, to, planned, actual)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed interval data")
	}
	return &report, nil
}

// Overtime classifies one employee's recorded hours into regular and
// overtime per day. Weekly accumulation runs per ISO week in date order, so
// a day pushed over the weekly cap is classified as overtime even when it
// stays under the daily cap.
func (s *ReportService) Overtime(ctx context.Context, employeeID int64, from, to time.Time) (*OvertimeReport, error) {
	if err := s.ensureEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not precede from")
	}

	// Load from the start of the first week so mid-week range starts still
	// see the hours already accumulated in that week.
	actualSource := models.SourceActual
	loadFrom := worktime.WeekStart(from)
	intervals, err := s.intervals.ListRange(ctx, []int64{employeeID}, loadFrom, to, &actualSource)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recorded entries")
	}

	byDay := make(map[time.Time]float64)
	for _, iv := range intervals {
		if !iv.Kind.Countable() {
			continue
		}
		hours, err := worktime.Duration(iv)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed interval data")
		}
		day := time.Date(iv.Date.Year(), iv.Date.Month(), iv.Date.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] += hours
	}

	days := make([]time.Time, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	report := &OvertimeReport{EmployeeID: employeeID, From: from, To: to}
	weeklySoFar := make(map[time.Time]float64)
	for _, day := range days {
		total := byDay[day]
		week := worktime.WeekStart(day)
		breakdown := worktime.SplitOvertime(s.rules, total, weeklySoFar[week])
		weeklySoFar[week] += total

		if day.Before(from) {
			continue
		}
		report.Days = append(report.Days, OvertimeDay{
			Date:          day,
			TotalHours:    total,
			RegularHours:  breakdown.RegularHours,
			OvertimeHours: breakdown.OvertimeHours,
		})
		report.TotalRegularHours += breakdown.RegularHours
		report.TotalOvertimeHours += breakdown.OvertimeHours
	}

	return report, nil
}

// PayrollExport renders the per-day hour classification for one employee or
// the whole active roster as CSV or PDF.
func (s *ReportService) PayrollExport(ctx context.Context, req PayrollExportRequest) (*PayrollExport, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payroll export payload")
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "to must be YYYY-MM-DD")
	}

	var employeeIDs []int64
	if req.EmployeeID != nil {
		if err := s.ensureEmployee(ctx, *req.EmployeeID); err != nil {
			return nil, err
		}
		employeeIDs = []int64{*req.EmployeeID}
	} else {
		employeeIDs, err = s.employees.ActiveIDs(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active employees")
		}
	}

	dataset := export.Dataset{
		Headers: []string{"Employee", "Date", "Total Hours", "Regular Hours", "Overtime Hours"},
	}
	for _, id := range employeeIDs {
		report, err := s.Overtime(ctx, id, from, to)
		if err != nil {
			return nil, err
		}
		for _, day := range report.Days {
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Employee":       fmt.Sprintf("%d", id),
				"Date":           day.Date.Format("2006-01-02"),
				"Total Hours":    fmt.Sprintf("%.2f", day.TotalHours),
				"Regular Hours":  fmt.Sprintf("%.2f", day.RegularHours),
				"Overtime Hours": fmt.Sprintf("%.2f", day.OvertimeHours),
			})
		}
	}

	stamp := fmt.Sprintf("%s_%s", from.Format("20060102"), to.Format("20060102"))
	switch req.Format {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &PayrollExport{
			FileName:    fmt.Sprintf("payroll_%s.csv", stamp),
			ContentType: "text/csv",
			Content:     content,
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, fmt.Sprintf("Payroll %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02")))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &PayrollExport{
			FileName:    fmt.Sprintf("payroll_%s.pdf", stamp),
			ContentType: "application/pdf",
			Content:     content,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", req.Format))
	}
}

func (s *ReportService) ensureEmployee(ctx context.Context, employeeID int64) error {
	if _, err := s.employees.FindByID(ctx, employeeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "employee not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee")
	}
	return nil
}
