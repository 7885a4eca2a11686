package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/socket"
	"github.com/agendou/agenda-backend/internal/types"
)

// ============================================
// Appointment Service
// ============================================

type AppointmentService interface {
	Create(ctx context.Context, companyID, userID string, req *CreateAppointmentRequest) (*repository.Appointment, error)
	GetByID(ctx context.Context, companyID, userID, id string) (*repository.Appointment, error)
	List(ctx context.Context, companyID, userID string, filters *repository.AppointmentFilters) ([]*repository.Appointment, error)
	Update(ctx context.Context, companyID, userID, id string, req *UpdateAppointmentRequest) (*repository.Appointment, error)
	UpdateStatus(ctx context.Context, companyID, userID, id, status string) (*repository.Appointment, error)
	Delete(ctx context.Context, companyID, userID, id string) error
	CheckAvailability(ctx context.Context, companyID, userID string, start, end time.Time, excludeID string) ([]*repository.Appointment, error)
}

type CreateAppointmentRequest struct {
	ClientID      *string
	Title         string
	StartAt       time.Time
	EndAt         time.Time
	Status        string
	Price         *string
	AmountPaid    *string
	PaymentStatus *string
	Category      *string
	Notes         *string
}

// UpdateAppointmentRequest carries partial updates. Nil means "leave as is";
// for ClientID an empty string detaches the client.
type UpdateAppointmentRequest struct {
	ClientID      *string
	Title         *string
	StartAt       *time.Time
	EndAt         *time.Time
	Status        *string
	Price         *string
	AmountPaid    *string
	PaymentStatus *string
	Category      *string
	Notes         *string
}

type appointmentService struct {
	guard       *Guard
	apptRepo    repository.AppointmentRepository
	clientRepo  repository.ClientRepository
	broadcaster *socket.Broadcaster
}

func NewAppointmentService(
	guard *Guard,
	apptRepo repository.AppointmentRepository,
	clientRepo repository.ClientRepository,
	broadcaster *socket.Broadcaster,
) AppointmentService {
	return &appointmentService{
		guard:       guard,
		apptRepo:    apptRepo,
		clientRepo:  clientRepo,
		broadcaster: broadcaster,
	}
}

func (s *appointmentService) Create(ctx context.Context, companyID, userID string, req *CreateAppointmentRequest) (*repository.Appointment, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpAppointmentCreate); err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Title) == "" {
		return nil, validationErr("title", "title is required")
	}
	if !req.StartAt.Before(req.EndAt) {
		return nil, validationErr("start_at", "start must be before end")
	}

	status := req.Status
	if status == "" {
		status = types.StatusScheduled
	}
	if !types.IsValidStatus(status) {
		return nil, validationErr("status", fmt.Sprintf("unknown status %q", status))
	}
	if req.PaymentStatus != nil && !types.IsValidPaymentStatus(*req.PaymentStatus) {
		return nil, validationErr("payment_status", fmt.Sprintf("unknown payment status %q", *req.PaymentStatus))
	}

	priceCents, err := parseMoney("price", req.Price)
	if err != nil {
		return nil, err
	}
	paidCents, err := parseMoney("amount_paid", req.AmountPaid)
	if err != nil {
		return nil, err
	}

	if req.ClientID != nil && *req.ClientID != "" {
		client, err := s.clientRepo.FindByID(ctx, companyID, *req.ClientID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		if client == nil {
			return nil, validationErr("client_id", "client not found in this company")
		}
	}

	appt := &repository.Appointment{
		CompanyID:       companyID,
		CreatedByUserID: userID,
		ClientID:        normalizeOptional(req.ClientID),
		Title:           strings.TrimSpace(req.Title),
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		Status:          status,
		PriceCents:      priceCents,
		AmountPaidCents: paidCents,
		PaymentStatus:   req.PaymentStatus,
		Category:        req.Category,
		Notes:           req.Notes,
	}

	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: userID,
		Action:      types.ActionAppointmentCreated,
		EntityType:  types.EntityAppointment,
		After:       appointmentSnapshot(appt),
	}

	if err := s.apptRepo.Create(ctx, appt, audit); err != nil {
		var overlap *repository.OverlapError
		if errors.As(err, &overlap) {
			return nil, &ConflictError{ConflictingIDs: overlap.ConflictingIDs}
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastAppointmentCreated(companyID, appointmentSnapshot(appt), userID)
	}
	return appt, nil
}

func (s *appointmentService) GetByID(ctx context.Context, companyID, userID, id string) (*repository.Appointment, error) {
	member, err := s.guard.Authorize(ctx, companyID, userID, OpAppointmentView)
	if err != nil {
		return nil, err
	}
	appt, err := s.apptRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if appt == nil {
		return nil, ErrNotFound
	}
	if member.Role != types.RoleOwner && appt.CreatedByUserID != userID {
		return nil, ErrForbidden
	}
	return appt, nil
}

func (s *appointmentService) List(ctx context.Context, companyID, userID string, filters *repository.AppointmentFilters) ([]*repository.Appointment, error) {
	member, err := s.guard.Authorize(ctx, companyID, userID, OpAppointmentView)
	if err != nil {
		return nil, err
	}
	// Staff only see their own calendar, whatever creator filter came in.
	if member.Role != types.RoleOwner {
		scoped := repository.AppointmentFilters{}
		if filters != nil {
			scoped = *filters
		}
		scoped.CreatedBy = &userID
		filters = &scoped
	}
	appts, err := s.apptRepo.FindByCompany(ctx, companyID, filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return appts, nil
}

func (s *appointmentService) Update(ctx context.Context, companyID, userID, id string, req *UpdateAppointmentRequest) (*repository.Appointment, error) {
	member, err := s.guard.Authorize(ctx, companyID, userID, OpAppointmentUpdate)
	if err != nil {
		return nil, err
	}

	existing, err := s.apptRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}

	requested := requestedFields(req)
	if member.Role != types.RoleOwner {
		if existing.CreatedByUserID != userID {
			return nil, ErrForbidden
		}
		for _, field := range requested {
			if !StaffMayEditField(field) {
				return nil, ErrForbidden
			}
		}
	}

	before := appointmentSnapshot(existing)
	updated := *existing

	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, validationErr("title", "title is required")
		}
		updated.Title = strings.TrimSpace(*req.Title)
	}
	if req.StartAt != nil {
		updated.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		updated.EndAt = *req.EndAt
	}
	if !updated.StartAt.Before(updated.EndAt) {
		return nil, validationErr("start_at", "start must be before end")
	}

	statusChanged := false
	if req.Status != nil && *req.Status != existing.Status {
		if !types.IsValidStatus(*req.Status) {
			return nil, validationErr("status", fmt.Sprintf("unknown status %q", *req.Status))
		}
		if !types.CanTransition(existing.Status, *req.Status) {
			return nil, &InvalidTransitionError{From: existing.Status, To: *req.Status}
		}
		updated.Status = *req.Status
		statusChanged = true
	}

	if req.Price != nil {
		cents, err := parseMoney("price", req.Price)
		if err != nil {
			return nil, err
		}
		updated.PriceCents = cents
	}
	if req.AmountPaid != nil {
		cents, err := parseMoney("amount_paid", req.AmountPaid)
		if err != nil {
			return nil, err
		}
		updated.AmountPaidCents = cents
	}
	if req.PaymentStatus != nil {
		if !types.IsValidPaymentStatus(*req.PaymentStatus) {
			return nil, validationErr("payment_status", fmt.Sprintf("unknown payment status %q", *req.PaymentStatus))
		}
		updated.PaymentStatus = req.PaymentStatus
	}
	if req.Category != nil {
		updated.Category = normalizeOptional(req.Category)
	}
	if req.Notes != nil {
		updated.Notes = req.Notes
	}
	if req.ClientID != nil {
		if *req.ClientID == "" {
			updated.ClientID = nil
		} else {
			client, err := s.clientRepo.FindByID(ctx, companyID, *req.ClientID)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTransient, err)
			}
			if client == nil {
				return nil, validationErr("client_id", "client not found in this company")
			}
			updated.ClientID = req.ClientID
		}
	}

	action := types.ActionAppointmentUpdated
	if statusChanged && len(requested) == 1 {
		action = types.ActionAppointmentStatusChanged
	}
	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: userID,
		Action:      action,
		EntityType:  types.EntityAppointment,
		EntityID:    existing.ID,
		Before:      before,
		After:       appointmentSnapshot(&updated),
	}

	if err := s.apptRepo.Update(ctx, &updated, audit); err != nil {
		var overlap *repository.OverlapError
		if errors.As(err, &overlap) {
			return nil, &ConflictError{ConflictingIDs: overlap.ConflictingIDs}
		}
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastAppointmentUpdated(companyID, appointmentSnapshot(&updated), requested, userID)
	}
	return &updated, nil
}

func (s *appointmentService) UpdateStatus(ctx context.Context, companyID, userID, id, status string) (*repository.Appointment, error) {
	return s.Update(ctx, companyID, userID, id, &UpdateAppointmentRequest{Status: &status})
}

func (s *appointmentService) Delete(ctx context.Context, companyID, userID, id string) error {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpAppointmentDelete); err != nil {
		return err
	}

	existing, err := s.apptRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if existing == nil {
		return ErrNotFound
	}

	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: userID,
		Action:      types.ActionAppointmentDeleted,
		EntityType:  types.EntityAppointment,
		EntityID:    existing.ID,
		Before:      appointmentSnapshot(existing),
	}
	if err := s.apptRepo.Delete(ctx, companyID, id, audit); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastAppointmentDeleted(companyID, id, userID)
	}
	return nil
}

// CheckAvailability reports the caller's non-canceled appointments that
// collide with the given interval, without writing anything.
func (s *appointmentService) CheckAvailability(ctx context.Context, companyID, userID string, start, end time.Time, excludeID string) ([]*repository.Appointment, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpAppointmentView); err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, validationErr("start_at", "start must be before end")
	}
	appts, err := s.apptRepo.FindOverlapping(ctx, companyID, userID, start, end, excludeID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return appts, nil
}

// parseMoney converts a decimal amount ("150.00") to cents. Values with more
// than two decimal places or below zero are rejected.
func parseMoney(field string, value *string) (*int64, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(*value))
	if err != nil {
		return nil, validationErr(field, "invalid amount")
	}
	if d.IsNegative() {
		return nil, validationErr(field, "amount cannot be negative")
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return nil, validationErr(field, "amount supports at most two decimal places")
	}
	v := cents.IntPart()
	return &v, nil
}

func normalizeOptional(v *string) *string {
	if v == nil || *v == "" {
		return nil
	}
	return v
}

// requestedFields lists the fields a partial update touches, in policy
// vocabulary.
func requestedFields(req *UpdateAppointmentRequest) []string {
	var fields []string
	if req.ClientID != nil {
		fields = append(fields, "client_id")
	}
	if req.Title != nil {
		fields = append(fields, "title")
	}
	if req.StartAt != nil {
		fields = append(fields, "start_at")
	}
	if req.EndAt != nil {
		fields = append(fields, "end_at")
	}
	if req.Status != nil {
		fields = append(fields, "status")
	}
	if req.Price != nil {
		fields = append(fields, "price")
	}
	if req.AmountPaid != nil {
		fields = append(fields, "amount_paid")
	}
	if req.PaymentStatus != nil {
		fields = append(fields, "payment_status")
	}
	if req.Category != nil {
		fields = append(fields, "category")
	}
	if req.Notes != nil {
		fields = append(fields, "notes")
	}
	return fields
}

func appointmentSnapshot(a *repository.Appointment) map[string]interface{} {
	snap := map[string]interface{}{
		"id":                 a.ID,
		"company_id":         a.CompanyID,
		"created_by_user_id": a.CreatedByUserID,
		"title":              a.Title,
		"start_at":           a.StartAt.UTC().Format(time.RFC3339),
		"end_at":             a.EndAt.UTC().Format(time.RFC3339),
		"status":             a.Status,
	}
	if a.ClientID != nil {
		snap["client_id"] = *a.ClientID
	}
	if a.PriceCents != nil {
		snap["price_cents"] = *a.PriceCents
	}
	if a.AmountPaidCents != nil {
		snap["amount_paid_cents"] = *a.AmountPaidCents
	}
	if a.PaymentStatus != nil {
		snap["payment_status"] = *a.PaymentStatus
	}
	if a.Category != nil {
		snap["category"] = *a.Category
	}
	if a.Notes != nil {
		snap["notes"] = *a.Notes
	}
	return snap
}
