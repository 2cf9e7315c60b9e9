package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hakplan/roster-api/internal/middleware"
	"github.com/hakplan/roster-api/internal/models"
	"github.com/hakplan/roster-api/internal/service"
)

// Register mounts all API routes under the given prefix. Every route
// requires a valid token; destructive operations additionally require
// the admin role.
func Register(r *gin.Engine, prefix string, auth *service.AuthService, sessions *SessionHandler, enrollments *EnrollmentHandler, rosters *RosterHandler) {
	api := r.Group(prefix)
	api.Use(middleware.JWT(auth))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleStaff)
	managers := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	admins := middleware.RequireRoles(models.RoleAdmin)

	api.GET("/sessions", staff, sessions.List)
	api.GET("/sessions/:id", staff, sessions.Get)
	api.POST("/sessions", managers, sessions.Create)
	api.PUT("/sessions/:id/schedule", admins, sessions.UpdateSchedule)
	api.POST("/sessions/:id/slots/toggle", admins, sessions.ToggleSlot)
	api.PUT("/sessions/:id/staffing", managers, sessions.UpdateStaffing)
	api.PUT("/sessions/:id/name", admins, sessions.Rename)
	api.DELETE("/sessions/:id", admins, sessions.Deactivate)
	api.POST("/conflicts/check", staff, sessions.CheckConflicts)
	api.GET("/periods", staff, sessions.Periods)

	api.POST("/enrollments", managers, enrollments.Assign)
	api.GET("/enrollments/:id", staff, enrollments.Get)
	api.POST("/enrollments/:id/withdraw", managers, enrollments.Withdraw)
	api.POST("/enrollments/:id/reinstate", managers, enrollments.Reinstate)
	api.POST("/enrollments/:id/transfer", managers, enrollments.Transfer)
	api.PUT("/enrollments/:id/attendance-days", managers, enrollments.SetAttendanceDays)
	api.PUT("/enrollments/:id/flags", managers, enrollments.SetFlags)
	api.DELETE("/enrollments/:id", admins, enrollments.Purge)

	api.GET("/roster", staff, rosters.GetRoster)
	api.GET("/students/:id/enrollments", staff, rosters.StudentSchedule)
}
