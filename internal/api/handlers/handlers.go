package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/agendou/agenda-backend/internal/models"
	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/service"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Auth        *AuthHandler
	Company     *CompanyHandler
	Client      *ClientHandler
	Appointment *AppointmentHandler
	Staff       *StaffHandler
	Audit       *AuditHandler
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Auth:        &AuthHandler{authService: services.Auth},
		Company:     &CompanyHandler{companyService: services.Company},
		Client:      &ClientHandler{clientService: services.Client},
		Appointment: &AppointmentHandler{appointmentService: services.Appointment},
		Staff:       &StaffHandler{staffService: services.Staff},
		Audit:       &AuditHandler{auditService: services.Audit},
	}
}

func logAPIError(c *gin.Context, action string, err error, fields map[string]interface{}) {
	log.Printf(
		"[API_ERROR] action=%s method=%s path=%s userID=%v fields=%v err=%v",
		action,
		c.Request.Method,
		c.FullPath(),
		c.GetString("userID"),
		fields,
		err,
	)
}

// handleServiceError maps service errors onto HTTP responses.
func handleServiceError(c *gin.Context, err error) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validation.Message,
			"field": validation.Field,
		})
		return
	}

	var conflict *service.ConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{
			"error":          "time slot conflict",
			"conflictingIds": conflict.ConflictingIDs,
		})
		return
	}

	var transition *service.InvalidTransitionError
	if errors.As(err, &transition) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": transition.Error(),
			"from":  transition.From,
			"to":    transition.To,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTransient):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary failure, retry"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// ============================================
// Response Mappers
// ============================================

func toUserResponse(u *repository.User) models.UserResponse {
	return models.UserResponse{
		ID:                 u.ID,
		Email:              u.Email,
		FullName:           u.FullName,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt,
	}
}

func toCompanyResponse(c *repository.Company) models.CompanyResponse {
	return models.CompanyResponse{
		ID:                     c.ID,
		Name:                   c.Name,
		Slug:                   c.Slug,
		Phone:                  c.Phone,
		Segment:                c.Segment,
		City:                   c.City,
		State:                  c.State,
		Timezone:               c.Timezone,
		DefaultIntervalMinutes: c.DefaultIntervalMinutes,
		CreatedAt:              c.CreatedAt,
	}
}

func toClientResponse(c *repository.Client) models.ClientResponse {
	return models.ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toAppointmentResponse(a *repository.Appointment) models.AppointmentResponse {
	return models.AppointmentResponse{
		ID:              a.ID,
		CreatedByUserID: a.CreatedByUserID,
		ClientID:        a.ClientID,
		Title:           a.Title,
		StartAt:         a.StartAt,
		EndAt:           a.EndAt,
		Status:          a.Status,
		Price:           centsToAmount(a.PriceCents),
		AmountPaid:      centsToAmount(a.AmountPaidCents),
		PaymentStatus:   a.PaymentStatus,
		Category:        a.Category,
		Notes:           a.Notes,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

// centsToAmount renders stored cents back as a two-decimal amount string.
func centsToAmount(cents *int64) *string {
	if cents == nil {
		return nil
	}
	s := decimal.NewFromInt(*cents).Shift(-2).StringFixed(2)
	return &s
}

func toMemberResponse(m *repository.Membership) models.MemberResponse {
	resp := models.MemberResponse{
		UserID:       m.UserID,
		Role:         m.Role,
		RoleFunction: m.RoleFunction,
		Active:       m.Active,
		InvitedBy:    m.InvitedBy,
		CreatedAt:    m.CreatedAt,
	}
	if m.User != nil {
		resp.Email = m.User.Email
		resp.FullName = m.User.FullName
	}
	return resp
}

func toAuditResponse(e *repository.AuditEntry) models.AuditEntryResponse {
	return models.AuditEntryResponse{
		ID:          e.ID,
		ActorUserID: e.ActorUserID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Before:      e.Before,
		After:       e.After,
		CreatedAt:   e.CreatedAt,
	}
}
