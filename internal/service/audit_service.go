package service

import (
	"context"
	"fmt"

	"github.com/agendou/agenda-backend/internal/repository"
)

// ============================================
// Audit Service
// ============================================

// AuditService exposes the company audit trail. Reading it is owner-only;
// writing happens inside the mutating repositories, never here.
type AuditService interface {
	List(ctx context.Context, companyID, userID string, filters *repository.AuditFilters) ([]*repository.AuditEntry, error)
}

type auditService struct {
	guard     *Guard
	auditRepo repository.AuditRepository
}

func NewAuditService(guard *Guard, auditRepo repository.AuditRepository) AuditService {
	return &auditService{guard: guard, auditRepo: auditRepo}
}

func (s *auditService) List(ctx context.Context, companyID, userID string, filters *repository.AuditFilters) ([]*repository.AuditEntry, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpAuditView); err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &repository.AuditFilters{}
	}
	if filters.Limit <= 0 || filters.Limit > 200 {
		filters.Limit = 50
	}
	entries, err := s.auditRepo.FindByCompany(ctx, companyID, filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return entries, nil
}
