package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hakplan/roster-api/internal/models"
	appErrors "github.com/hakplan/roster-api/pkg/errors"
	"github.com/hakplan/roster-api/pkg/response"
)

type enrollmentService interface {
	Assign(ctx context.Context, req models.AssignRequest) (*models.Enrollment, error)
	Get(ctx context.Context, id string) (*models.Enrollment, error)
	Withdraw(ctx context.Context, id string, req models.WithdrawRequest) (*models.Enrollment, error)
	Reinstate(ctx context.Context, id string) (*models.Enrollment, error)
	Transfer(ctx context.Context, id string, req models.TransferRequest) (*models.TransferResult, error)
	SetAttendanceDays(ctx context.Context, id string, req models.AttendanceDaysRequest) (*models.Enrollment, error)
	SetFlags(ctx context.Context, id string, req models.FlagsRequest) (*models.Enrollment, error)
	Purge(ctx context.Context, id string, role models.UserRole) error
}

// EnrollmentHandler exposes membership lifecycle endpoints.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler builds a new handler.
func NewEnrollmentHandler(service enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: service}
}

// Assign godoc
// @Summary Enroll a student into a class session
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.AssignRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Assign(c *gin.Context) {
	var req models.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	enrollment, err := h.service.Assign(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Get godoc
// @Summary Get one membership record
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	enrollment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Withdraw godoc
// @Summary Close a current membership
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.WithdrawRequest true "Withdrawal payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/withdraw [post]
func (h *EnrollmentHandler) Withdraw(c *gin.Context) {
	var req models.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid withdrawal payload"))
		return
	}
	enrollment, err := h.service.Withdraw(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Reinstate godoc
// @Summary Reopen an ended membership
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/reinstate [post]
func (h *EnrollmentHandler) Reinstate(c *gin.Context) {
	enrollment, err := h.service.Reinstate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Transfer godoc
// @Summary Transfer a student to another class of the same subject
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.TransferRequest true "Transfer payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/transfer [post]
func (h *EnrollmentHandler) Transfer(c *gin.Context) {
	var req models.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid transfer payload"))
		return
	}
	result, err := h.service.Transfer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// SetAttendanceDays godoc
// @Summary Replace a membership's attendance-day subset
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.AttendanceDaysRequest true "Attendance days payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/attendance-days [put]
func (h *EnrollmentHandler) SetAttendanceDays(c *gin.Context) {
	var req models.AttendanceDaysRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance days payload"))
		return
	}
	enrollment, err := h.service.SetAttendanceDays(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// SetFlags godoc
// @Summary Update a membership's display flags
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body models.FlagsRequest true "Flags payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/flags [put]
func (h *EnrollmentHandler) SetFlags(c *gin.Context) {
	var req models.FlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid flags payload"))
		return
	}
	enrollment, err := h.service.SetFlags(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// Purge godoc
// @Summary Hard-delete an ended membership
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 204
// @Router /enrollments/{id} [delete]
func (h *EnrollmentHandler) Purge(c *gin.Context) {
	if err := h.service.Purge(c.Request.Context(), c.Param("id"), roleFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
