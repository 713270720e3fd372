package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/service"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
	"github.com/noah-isme/wfm-time-api/pkg/response"
)

// TimeEntryHandler manages recorded time entry endpoints.
type TimeEntryHandler struct {
	service *service.TimeEntryService
}

// NewTimeEntryHandler constructs handler.
func NewTimeEntryHandler(svc *service.TimeEntryService) *TimeEntryHandler {
	return &TimeEntryHandler{service: svc}
}

// List godoc
// @Summary List time entries
// @Tags TimeEntries
// @Produce json
// @Param employeeId query int false "Filter by employee"
// @Param status query string false "Filter by status"
// @Param kind query string false "Filter by kind"
// @Param from query string false "Date from (YYYY-MM-DD)"
// @Param to query string false "Date to (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /time-entries [get]
func (h *TimeEntryHandler) List(c *gin.Context) {
	filter, err := intervalFilterFromQuery(c, models.SourceActual)
	if err != nil {
		response.Error(c, err)
		return
	}

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get time entry
// @Tags TimeEntries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /time-entries/{id} [get]
func (h *TimeEntryHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Create time entry
// @Tags TimeEntries
// @Accept json
// @Produce json
// @Param payload body service.TimeEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /time-entries [post]
func (h *TimeEntryHandler) Create(c *gin.Context) {
	var req service.TimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Validation.Valid {
		response.Conflicts(c, result)
		return
	}
	response.Created(c, result)
}

// Validate godoc
// @Summary Dry-run validate a time entry
// @Tags TimeEntries
// @Accept json
// @Produce json
// @Param payload body service.TimeEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Router /time-entries/validate [post]
func (h *TimeEntryHandler) Validate(c *gin.Context) {
	var req service.TimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.Validate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Update godoc
// @Summary Update time entry
// @Tags TimeEntries
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.TimeEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /time-entries/{id} [put]
func (h *TimeEntryHandler) Update(c *gin.Context) {
	var req service.TimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.Update(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Validation.Valid {
		response.Conflicts(c, result)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete time entry
// @Tags TimeEntries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204
// @Router /time-entries/{id} [delete]
func (h *TimeEntryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func intervalFilterFromQuery(c *gin.Context, source models.IntervalSource) (models.IntervalFilter, error) {
	filter := models.IntervalFilter{Source: &source}

	if raw := c.Query("employeeId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "employeeId must be an integer")
		}
		filter.EmployeeID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := models.IntervalStatus(raw)
		if !status.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unsupported status")
		}
		filter.Status = &status
	}
	if raw := c.Query("kind"); raw != "" {
		kind := models.IntervalKind(raw)
		if !kind.Valid() {
			return filter, appErrors.Clone(appErrors.ErrValidation, "unsupported kind")
		}
		filter.Kind = &kind
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		filter.DateTo = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	return filter, nil
}
