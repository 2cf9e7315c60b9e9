package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hakplan/roster-api/internal/models"
	"github.com/hakplan/roster-api/pkg/response"
)

type rosterService interface {
	GetRoster(ctx context.Context, subject models.Subject, className string) (*models.Roster, error)
	ListRosters(ctx context.Context, subject models.Subject) ([]models.RosterSummary, error)
	StudentSchedule(ctx context.Context, studentID string, currentOnly bool) ([]models.StudentScheduleEntry, error)
}

// RosterHandler exposes the read-side aggregation endpoints.
type RosterHandler struct {
	service rosterService
}

// NewRosterHandler builds a new handler.
func NewRosterHandler(service rosterService) *RosterHandler {
	return &RosterHandler{service: service}
}

// GetRoster godoc
// @Summary Get one class roster, or the class catalog when class_name is omitted
// @Tags Rosters
// @Produce json
// @Param subject query string false "Subject"
// @Param class_name query string false "Class name"
// @Success 200 {object} response.Envelope
// @Router /roster [get]
func (h *RosterHandler) GetRoster(c *gin.Context) {
	subject := models.Subject(c.Query("subject"))
	className := c.Query("class_name")
	if className == "" {
		summaries, err := h.service.ListRosters(c.Request.Context(), subject)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, summaries)
		return
	}
	roster, err := h.service.GetRoster(c.Request.Context(), subject, className)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster)
}

// StudentSchedule godoc
// @Summary List a student's memberships with session details
// @Tags Rosters
// @Produce json
// @Param id path string true "Student ID"
// @Param current query bool false "Only current memberships"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *RosterHandler) StudentSchedule(c *gin.Context) {
	currentOnly := c.Query("current") == "true"
	entries, err := h.service.StudentSchedule(c.Request.Context(), c.Param("id"), currentOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries)
}
