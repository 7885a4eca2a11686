package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agendou/agenda-backend/internal/api/middleware"
	"github.com/agendou/agenda-backend/internal/models"
	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/service"
)

type AppointmentHandler struct {
	appointmentService service.AppointmentService
}

func (h *AppointmentHandler) Create(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	var req models.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.appointmentService.Create(c.Request.Context(), companyID, userID, &service.CreateAppointmentRequest{
		ClientID:      req.ClientID,
		Title:         req.Title,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		Status:        req.Status,
		Price:         req.Price,
		AmountPaid:    req.AmountPaid,
		PaymentStatus: req.PaymentStatus,
		Category:      req.Category,
		Notes:         req.Notes,
	})
	if err != nil {
		logAPIError(c, "Appointment.Create", err, map[string]interface{}{
			"companyID": companyID,
			"title":     req.Title,
		})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	apptID := c.Param("appointmentId")
	appt, err := h.appointmentService.GetByID(c.Request.Context(), companyID, userID, apptID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	filters, err := parseAppointmentFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appts, err := h.appointmentService.List(c.Request.Context(), companyID, userID, filters)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resp := make([]models.AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		resp = append(resp, toAppointmentResponse(a))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AppointmentHandler) Update(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	apptID := c.Param("appointmentId")
	var req models.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.appointmentService.Update(c.Request.Context(), companyID, userID, apptID, &service.UpdateAppointmentRequest{
		ClientID:      req.ClientID,
		Title:         req.Title,
		StartAt:       req.StartAt,
		EndAt:         req.EndAt,
		Status:        req.Status,
		Price:         req.Price,
		AmountPaid:    req.AmountPaid,
		PaymentStatus: req.PaymentStatus,
		Category:      req.Category,
		Notes:         req.Notes,
	})
	if err != nil {
		logAPIError(c, "Appointment.Update", err, map[string]interface{}{
			"companyID":     companyID,
			"appointmentID": apptID,
		})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	apptID := c.Param("appointmentId")
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.appointmentService.UpdateStatus(c.Request.Context(), companyID, userID, apptID, req.Status)
	if err != nil {
		logAPIError(c, "Appointment.UpdateStatus", err, map[string]interface{}{
			"appointmentID": apptID,
			"status":        req.Status,
		})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAppointmentResponse(appt))
}

func (h *AppointmentHandler) Delete(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	apptID := c.Param("appointmentId")
	if err := h.appointmentService.Delete(c.Request.Context(), companyID, userID, apptID); err != nil {
		logAPIError(c, "Appointment.Delete", err, map[string]interface{}{"appointmentID": apptID})
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "appointment deleted"})
}

func (h *AppointmentHandler) CheckAvailability(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	companyID := c.Param("id")
	start, err := time.Parse(time.RFC3339, c.Query("startAt"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startAt must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("endAt"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endAt must be RFC3339"})
		return
	}

	conflicts, err := h.appointmentService.CheckAvailability(c.Request.Context(), companyID, userID, start, end, c.Query("excludeId"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	resp := models.AvailabilityResponse{
		Available:   len(conflicts) == 0,
		Conflicting: make([]models.AppointmentResponse, 0, len(conflicts)),
	}
	for _, a := range conflicts {
		resp.Conflicting = append(resp.Conflicting, toAppointmentResponse(a))
	}
	c.JSON(http.StatusOK, resp)
}

func parseAppointmentFilters(c *gin.Context) (*repository.AppointmentFilters, error) {
	filters := &repository.AppointmentFilters{
		Search: c.Query("search"),
	}

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filters.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, err
		}
		filters.To = &t
	}
	if v := c.Query("status"); v != "" {
		filters.Status = strings.Split(v, ",")
	}
	if v := c.Query("createdBy"); v != "" {
		filters.CreatedBy = &v
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		filters.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, err
		}
		filters.Offset = n
	}
	return filters, nil
}
