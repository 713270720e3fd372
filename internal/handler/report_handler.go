package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfm-time-api/internal/service"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
	"github.com/noah-isme/wfm-time-api/pkg/response"
)

// ReportHandler exposes reconciliation and payroll report endpoints.
type ReportHandler struct {
	service *service.ReportService
}

// NewReportHandler constructs handler.
func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{service: svc}
}

// PlanVsActual godoc
// @Summary Compare planned shifts against recorded entries
// @Tags Reports
// @Produce json
// @Param employeeId path int true "Employee ID"
// @Param from query string true "Date from (YYYY-MM-DD)"
// @Param to query string true "Date to (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/plan-vs-actual/{employeeId} [get]
func (h *ReportHandler) PlanVsActual(c *gin.Context) {
	employeeID, from, to, err := reportScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.service.PlanVsActual(c.Request.Context(), employeeID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Overtime godoc
// @Summary Overtime classification per day
// @Tags Reports
// @Produce json
// @Param employeeId path int true "Employee ID"
// @Param from query string true "Date from (YYYY-MM-DD)"
// @Param to query string true "Date to (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /reports/overtime/{employeeId} [get]
func (h *ReportHandler) Overtime(c *gin.Context) {
	employeeID, from, to, err := reportScope(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.service.Overtime(c.Request.Context(), employeeID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// PayrollExport godoc
// @Summary Export payroll hours as CSV or PDF
// @Tags Reports
// @Produce octet-stream
// @Param employeeId query int false "Scope to one employee"
// @Param from query string true "Date from (YYYY-MM-DD)"
// @Param to query string true "Date to (YYYY-MM-DD)"
// @Param format query string true "csv or pdf"
// @Success 200 {file} binary
// @Router /reports/payroll/export [get]
func (h *ReportHandler) PayrollExport(c *gin.Context) {
	req := service.PayrollExportRequest{
		From:   c.Query("from"),
		To:     c.Query("to"),
		Format: c.DefaultQuery("format", "csv"),
	}
	if raw := c.Query("employeeId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "employeeId must be an integer"))
			return
		}
		req.EmployeeID = &id
	}

	result, err := h.service.PayrollExport(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.FileName)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func reportScope(c *gin.Context) (int64, time.Time, time.Time, error) {
	employeeID, err := strconv.ParseInt(c.Param("employeeId"), 10, 64)
	if err != nil {
		return 0, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "employeeId must be an integer")
	}
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return 0, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return 0, time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
	}
	return employeeID, from, to, nil
}
