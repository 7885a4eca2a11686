package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/types"
)

// ============================================
// Company Service
// ============================================

type CompanyService interface {
	Create(ctx context.Context, ownerUserID string, req *CompanyRequest) (*repository.Company, error)
	GetByID(ctx context.Context, companyID, userID string) (*repository.Company, error)
	Update(ctx context.Context, companyID, userID string, req *CompanyRequest) (*repository.Company, error)
}

type CompanyRequest struct {
	Name                   string
	Slug                   *string
	Phone                  *string
	Segment                *string
	City                   *string
	State                  *string
	Timezone               *string
	DefaultIntervalMinutes *int
}

type companyService struct {
	guard       *Guard
	directory   DirectoryService
	companyRepo repository.CompanyRepository
}

func NewCompanyService(guard *Guard, directory DirectoryService, companyRepo repository.CompanyRepository) CompanyService {
	return &companyService{guard: guard, directory: directory, companyRepo: companyRepo}
}

func (s *companyService) Create(ctx context.Context, ownerUserID string, req *CompanyRequest) (*repository.Company, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationErr("name", "company name is required")
	}
	if req.DefaultIntervalMinutes != nil && *req.DefaultIntervalMinutes <= 0 {
		return nil, validationErr("default_interval_minutes", "interval must be positive")
	}

	// One active membership per user: a user already attached to a company
	// cannot create a second one.
	existing, err := s.directory.ResolveActiveCompany(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: user already belongs to company %s", ErrConflict, existing.CompanyID)
	}

	company := &repository.Company{
		Name:                   strings.TrimSpace(req.Name),
		Slug:                   normalizeOptional(req.Slug),
		Phone:                  normalizeOptional(req.Phone),
		Segment:                normalizeOptional(req.Segment),
		City:                   normalizeOptional(req.City),
		State:                  normalizeOptional(req.State),
		Timezone:               normalizeOptional(req.Timezone),
		DefaultIntervalMinutes: req.DefaultIntervalMinutes,
	}
	audit := &repository.AuditEntry{
		ActorUserID: ownerUserID,
		Action:      types.ActionCompanyCreated,
		EntityType:  types.EntityCompany,
		After:       companySnapshot(company),
	}
	if err := s.companyRepo.CreateWithOwner(ctx, company, ownerUserID, audit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	s.directory.InvalidateMembership(ctx, company.ID, ownerUserID)
	return company, nil
}

func (s *companyService) GetByID(ctx context.Context, companyID, userID string) (*repository.Company, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpCompanyView); err != nil {
		return nil, err
	}
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if company == nil {
		return nil, ErrNotFound
	}
	return company, nil
}

func (s *companyService) Update(ctx context.Context, companyID, userID string, req *CompanyRequest) (*repository.Company, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpCompanyUpdate); err != nil {
		return nil, err
	}

	existing, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationErr("name", "company name is required")
	}
	if req.DefaultIntervalMinutes != nil && *req.DefaultIntervalMinutes <= 0 {
		return nil, validationErr("default_interval_minutes", "interval must be positive")
	}

	before := companySnapshot(existing)
	updated := *existing
	updated.Name = strings.TrimSpace(req.Name)
	updated.Slug = normalizeOptional(req.Slug)
	updated.Phone = normalizeOptional(req.Phone)
	updated.Segment = normalizeOptional(req.Segment)
	updated.City = normalizeOptional(req.City)
	updated.State = normalizeOptional(req.State)
	updated.Timezone = normalizeOptional(req.Timezone)
	updated.DefaultIntervalMinutes = req.DefaultIntervalMinutes

	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: userID,
		Action:      types.ActionCompanyUpdated,
		EntityType:  types.EntityCompany,
		EntityID:    companyID,
		Before:      before,
		After:       companySnapshot(&updated),
	}
	if err := s.companyRepo.Update(ctx, &updated, audit); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return &updated, nil
}

func companySnapshot(c *repository.Company) map[string]interface{} {
	snap := map[string]interface{}{
		"id":   c.ID,
		"name": c.Name,
	}
	if c.Slug != nil {
		snap["slug"] = *c.Slug
	}
	if c.Phone != nil {
		snap["phone"] = *c.Phone
	}
	if c.Segment != nil {
		snap["segment"] = *c.Segment
	}
	if c.City != nil {
		snap["city"] = *c.City
	}
	if c.State != nil {
		snap["state"] = *c.State
	}
	if c.Timezone != nil {
		snap["timezone"] = *c.Timezone
	}
	if c.DefaultIntervalMinutes != nil {
		snap["default_interval_minutes"] = *c.DefaultIntervalMinutes
	}
	return snap
}
