package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/service"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
	"github.com/noah-isme/wfm-time-api/pkg/response"
)

// PlanningHandler manages planned shift endpoints.
type PlanningHandler struct {
	service   *service.PlanningService
	timeEntry *service.TimeEntryService
}

// NewPlanningHandler constructs handler.
func NewPlanningHandler(svc *service.PlanningService, timeEntry *service.TimeEntryService) *PlanningHandler {
	return &PlanningHandler{service: svc, timeEntry: timeEntry}
}

// List godoc
// @Summary List planned shifts
// @Tags Planning
// @Produce json
// @Param employeeId query int false "Filter by employee"
// @Param from query string false "Date from (YYYY-MM-DD)"
// @Param to query string false "Date to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /planning [get]
func (h *PlanningHandler) List(c *gin.Context) {
	filter, err := intervalFilterFromQuery(c, models.SourcePlanning)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, pagination, err := h.timeEntry.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// BulkCreate godoc
// @Summary Bulk create planned shifts
// @Tags Planning
// @Accept json
// @Produce json
// @Param payload body service.BulkPlanningRequest true "Bulk payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /planning/bulk [post]
func (h *PlanningHandler) BulkCreate(c *gin.Context) {
	var req service.BulkPlanningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.BulkCreate(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(result.Created) == 0 && result.Report.Summary.Errors > 0 {
		response.Conflicts(c, result)
		return
	}
	response.Created(c, result)
}

// CopyWeek godoc
// @Summary Copy a planned week onto another week
// @Tags Planning
// @Accept json
// @Produce json
// @Param payload body service.CopyWeekRequest true "Copy payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /planning/copy-week [post]
func (h *PlanningHandler) CopyWeek(c *gin.Context) {
	var req service.CopyWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.CopyWeek(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(result.Created) == 0 && result.Report.Summary.Errors > 0 {
		response.Conflicts(c, result)
		return
	}
	response.Created(c, result)
}

// Delete godoc
// @Summary Delete planned shift
// @Tags Planning
// @Produce json
// @Param id path string true "Shift ID"
// @Success 204
// @Router /planning/{id} [delete]
func (h *PlanningHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
