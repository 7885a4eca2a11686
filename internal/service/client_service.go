package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/socket"
	"github.com/agendou/agenda-backend/internal/types"
)

// ============================================
// Client Service
// ============================================

type ClientService interface {
	Create(ctx context.Context, companyID, userID string, req *ClientRequest) (*repository.Client, error)
	GetByID(ctx context.Context, companyID, userID, id string) (*repository.Client, error)
	List(ctx context.Context, companyID, userID, search string) ([]*repository.Client, error)
	Update(ctx context.Context, companyID, userID, id string, req *ClientRequest) (*repository.Client, error)
	Delete(ctx context.Context, companyID, userID, id string) error
}

type ClientRequest struct {
	Name  string
	Phone *string
	Notes *string
}

type clientService struct {
	guard       *Guard
	clientRepo  repository.ClientRepository
	broadcaster *socket.Broadcaster
}

func NewClientService(guard *Guard, clientRepo repository.ClientRepository, broadcaster *socket.Broadcaster) ClientService {
	return &clientService{guard: guard, clientRepo: clientRepo, broadcaster: broadcaster}
}

func (s *clientService) Create(ctx context.Context, companyID, userID string, req *ClientRequest) (*repository.Client, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpClientCreate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationErr("name", "name is required")
	}

	client := &repository.Client{
		CompanyID: companyID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     normalizeOptional(req.Phone),
		Notes:     req.Notes,
	}
	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: userID,
		Action:      types.ActionClientCreated,
		EntityType:  types.EntityClient,
		After:       clientSnapshot(client),
	}
	if err := s.clientRepo.Create(ctx, client, audit); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastClientChanged(companyID, "created", clientSnapshot(client), userID)
	}
	return client, nil
}

func (s *clientService) GetByID(ctx context.Context, companyID, userID, id string) (*repository.Client, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpClientView); err != nil {
		return nil, err
	}
	client, err := s.clientRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if client == nil {
		return nil, ErrNotFound
	}
	return client, nil
}

func (s *clientService) List(ctx context.Context, companyID, userID, search string) ([]*repository.Client, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpClientView); err != nil {
		return nil, err
	}
	clients, err := s.clientRepo.FindByCompany(ctx, companyID, search)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return clients, nil
}

func (s *clientService) Update(ctx context.Context, companyID, userID, id string, req *ClientRequest) (*repository.Client, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpClientUpdate); err != nil {
		return nil, err
	}
	existing, err := s.clientRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, validationErr("name", "name is required")
	}

	before := clientSnapshot(existing)
	updated := *existing
	updated.Name = strings.TrimSpace(req.Name)
	updated.Phone = normalizeOptional(req.Phone)
	updated.Notes = req.Notes

	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: userID,
		Action:      types.ActionClientUpdated,
		EntityType:  types.EntityClient,
		EntityID:    existing.ID,
		Before:      before,
		After:       clientSnapshot(&updated),
	}
	if err := s.clientRepo.Update(ctx, &updated, audit); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastClientChanged(companyID, "updated", clientSnapshot(&updated), userID)
	}
	return &updated, nil
}

func (s *clientService) Delete(ctx context.Context, companyID, userID, id string) error {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpClientDelete); err != nil {
		return err
	}
	existing, err := s.clientRepo.FindByID(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if existing == nil {
		return ErrNotFound
	}

	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: userID,
		Action:      types.ActionClientDeleted,
		EntityType:  types.EntityClient,
		EntityID:    existing.ID,
		Before:      clientSnapshot(existing),
	}
	if err := s.clientRepo.Delete(ctx, companyID, id, audit); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastClientChanged(companyID, "deleted", map[string]interface{}{"id": id}, userID)
	}
	return nil
}

func clientSnapshot(c *repository.Client) map[string]interface{} {
	snap := map[string]interface{}{
		"id":         c.ID,
		"company_id": c.CompanyID,
		"name":       c.Name,
	}
	if c.Phone != nil {
		snap["phone"] = *c.Phone
	}
	if c.Notes != nil {
		snap["notes"] = *c.Notes
	}
	return snap
}
