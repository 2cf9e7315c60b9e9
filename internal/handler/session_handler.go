package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hakplan/roster-api/internal/models"
	appErrors "github.com/hakplan/roster-api/pkg/errors"
	"github.com/hakplan/roster-api/pkg/response"
)

type sessionService interface {
	Create(ctx context.Context, req models.CreateSessionRequest) (*models.ClassSession, error)
	Get(ctx context.Context, id string) (*models.ClassSession, error)
	List(ctx context.Context, subject models.Subject, keyword string) ([]models.ClassSession, error)
	UpdateSchedule(ctx context.Context, id string, req models.UpdateScheduleRequest) (*models.ScheduleResult, error)
	ToggleSlot(ctx context.Context, id, day, periodID string) (*models.ScheduleResult, error)
	UpdateStaffing(ctx context.Context, id string, req models.UpdateStaffingRequest) (*models.ClassSession, error)
	Rename(ctx context.Context, id string, req models.RenameSessionRequest) (*models.RenameResult, error)
	Deactivate(ctx context.Context, id string, cascade bool) (*models.FanOutReport, error)
	CheckConflicts(ctx context.Context, req models.ConflictCheckRequest) ([]models.SlotConflict, error)
}

// SessionHandler exposes the class session catalog endpoints.
type SessionHandler struct {
	service sessionService
}

// NewSessionHandler builds a new handler.
func NewSessionHandler(service sessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// Create godoc
// @Summary Create a class session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Get godoc
// @Summary Get one class session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// List godoc
// @Summary List active class sessions
// @Tags Sessions
// @Produce json
// @Param subject query string false "Subject filter"
// @Param search query string false "Name or teacher keyword"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.service.List(c.Request.Context(), models.Subject(c.Query("subject")), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions)
}

// UpdateSchedule godoc
// @Summary Replace a session's weekly grid
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body models.UpdateScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/schedule [put]
func (h *SessionHandler) UpdateSchedule(c *gin.Context) {
	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	result, err := h.service.UpdateSchedule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// ToggleSlot godoc
// @Summary Toggle one grid cell on a session's schedule
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param day query string true "Weekday"
// @Param period query string true "Period ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/slots/toggle [post]
func (h *SessionHandler) ToggleSlot(c *gin.Context) {
	result, err := h.service.ToggleSlot(c.Request.Context(), c.Param("id"), c.Query("day"), c.Query("period"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// UpdateStaffing godoc
// @Summary Update a session's teacher, room and note
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body models.UpdateStaffingRequest true "Staffing payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/staffing [put]
func (h *SessionHandler) UpdateStaffing(c *gin.Context) {
	var req models.UpdateStaffingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid staffing payload"))
		return
	}
	session, err := h.service.UpdateStaffing(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// Rename godoc
// @Summary Rename a class session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body models.RenameSessionRequest true "Rename payload"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/name [put]
func (h *SessionHandler) Rename(c *gin.Context) {
	var req models.RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rename payload"))
		return
	}
	result, err := h.service.Rename(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if result.FanOut.Failed > 0 {
		status = http.StatusMultiStatus
	}
	response.JSON(c, status, result)
}

// Deactivate godoc
// @Summary Deactivate a class session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param cascade query bool false "Close current memberships first"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Deactivate(c *gin.Context) {
	cascade := c.Query("cascade") == "true"
	report, err := h.service.Deactivate(c.Request.Context(), c.Param("id"), cascade)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Periods godoc
// @Summary List the period grid for a subject
// @Tags Sessions
// @Produce json
// @Param subject query string false "Subject, defaults to the math grid"
// @Success 200 {object} response.Envelope
// @Router /periods [get]
func (h *SessionHandler) Periods(c *gin.Context) {
	subject := models.Subject(c.Query("subject"))
	if subject != "" && !subject.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown subject"))
		return
	}
	response.JSON(c, http.StatusOK, models.PeriodTable(subject))
}

// CheckConflicts godoc
// @Summary Detect teacher conflicts for a tentative schedule
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body models.ConflictCheckRequest true "Conflict check payload"
// @Success 200 {object} response.Envelope
// @Router /conflicts/check [post]
func (h *SessionHandler) CheckConflicts(c *gin.Context) {
	var req models.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	conflicts, err := h.service.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if conflicts == nil {
		conflicts = []models.SlotConflict{}
	}
	response.JSON(c, http.StatusOK, conflicts)
}
