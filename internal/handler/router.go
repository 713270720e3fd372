package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wfm-time-api/internal/middleware"
	"github.com/noah-isme/wfm-time-api/internal/models"
	"github.com/noah-isme/wfm-time-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth      *AuthHandler
	Employee  *EmployeeHandler
	TimeEntry *TimeEntryHandler
	Planning  *PlanningHandler
	Conflict  *ConflictHandler
	Report    *ReportHandler
}

// RouterOptions tunes which optional route groups are mounted.
type RouterOptions struct {
	ReportsEnabled bool
	ScanEnabled    bool
}

// Register mounts every API route under the given prefix.
func Register(router *gin.Engine, prefix string, h Handlers, auth *service.AuthService, opts RouterOptions) {
	api := router.Group(prefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)

		protected := authGroup.Group("")
		protected.Use(middleware.JWT(auth))
		protected.POST("/logout", h.Auth.Logout)
		protected.PUT("/password", h.Auth.ChangePassword)
		protected.GET("/me", h.Auth.Me)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(auth))

	managers := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	anyRole := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleEmployee)
	selfOrManager := middleware.RBAC(string(models.RoleAdmin), string(models.RoleManager), "SELF")

	employees := secured.Group("/employees")
	{
		employees.GET("", managers, h.Employee.List)
		employees.GET("/:employeeId", selfOrManager, h.Employee.Get)
		employees.POST("", middleware.RequireRoles(models.RoleAdmin), h.Employee.Create)
		employees.PUT("/:employeeId", middleware.RequireRoles(models.RoleAdmin), h.Employee.Update)
		employees.DELETE("/:employeeId", middleware.RequireRoles(models.RoleAdmin), h.Employee.Deactivate)
	}

	timeEntries := secured.Group("/time-entries")
	{
		timeEntries.GET("", managers, h.TimeEntry.List)
		timeEntries.GET("/:id", anyRole, h.TimeEntry.Get)
		timeEntries.POST("", anyRole, h.TimeEntry.Create)
		timeEntries.POST("/validate", anyRole, h.TimeEntry.Validate)
		timeEntries.PUT("/:id", anyRole, h.TimeEntry.Update)
		timeEntries.DELETE("/:id", managers, h.TimeEntry.Delete)
	}

	planning := secured.Group("/planning")
	planning.Use(managers)
	{
		planning.GET("", h.Planning.List)
		planning.POST("/bulk", h.Planning.BulkCreate)
		planning.POST("/copy-week", h.Planning.CopyWeek)
		planning.DELETE("/:id", h.Planning.Delete)
	}

	conflicts := secured.Group("/conflicts")
	conflicts.Use(managers)
	{
		conflicts.GET("", h.Conflict.Detect)
		if opts.ScanEnabled {
			conflicts.POST("/scan", h.Conflict.Scan)
		}
	}

	if opts.ReportsEnabled {
		reports := secured.Group("/reports")
		{
			reports.GET("/plan-vs-actual/:employeeId", selfOrManager, h.Report.PlanVsActual)
			reports.GET("/overtime/:employeeId", selfOrManager, h.Report.Overtime)
			reports.GET("/payroll/export", managers, h.Report.PayrollExport)
		}
	}
}
