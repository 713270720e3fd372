package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfm-time-api/internal/service"
	appErrors "github.com/noah-isme/wfm-time-api/pkg/errors"
	"github.com/noah-isme/wfm-time-api/pkg/response"
)

// ConflictHandler exposes the conflict detection endpoints.
type ConflictHandler struct {
	service *service.ConflictService
}

// NewConflictHandler constructs handler.
func NewConflictHandler(svc *service.ConflictService) *ConflictHandler {
	return &ConflictHandler{service: svc}
}

// Detect godoc
// @Summary Detect schedule conflicts
// @Tags Conflicts
// @Produce json
// @Param employeeId query int false "Scope to one employee"
// @Param departmentId query int false "Scope to a department"
// @Param from query string true "Date from (YYYY-MM-DD)"
// @Param to query string true "Date to (YYYY-MM-DD)"
// @Param source query string false "planning or actual"
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) Detect(c *gin.Context) {
	req, err := detectRequestFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	report, err := h.service.Detect(c.Request.Context(), *req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Scan godoc
// @Summary Queue a persisted background conflict scan
// @Tags Conflicts
// @Produce json
// @Param employeeId query int false "Scope to one employee"
// @Param departmentId query int false "Scope to a department"
// @Param from query string true "Date from (YYYY-MM-DD)"
// @Param to query string true "Date to (YYYY-MM-DD)"
// @Param source query string false "planning or actual"
// @Success 202 {object} response.Envelope
// @Router /conflicts/scan [post]
func (h *ConflictHandler) Scan(c *gin.Context) {
	req, err := detectRequestFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.service.Scan(c.Request.Context(), *req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

func detectRequestFromQuery(c *gin.Context) (*service.DetectConflictsRequest, error) {
	req := service.DetectConflictsRequest{
		From: c.Query("from"),
		To:   c.Query("to"),
	}

	if raw := c.Query("employeeId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "employeeId must be an integer")
		}
		req.EmployeeID = &id
	}
	if raw := c.Query("departmentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "departmentId must be an integer")
		}
		req.DepartmentID = &id
	}
	if raw := c.Query("source"); raw != "" {
		req.Source = &raw
	}

	return &req, nil
}
