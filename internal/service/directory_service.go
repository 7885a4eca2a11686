package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agendou/agenda-backend/internal/repository"
)

// ============================================
// Directory Service
// ============================================

// DirectoryService resolves company memberships. Lookups sit on every
// request, so resolved memberships are cached in Redis for a short TTL and
// invalidated on any membership mutation.
type DirectoryService interface {
	ResolveMembership(ctx context.Context, companyID, userID string) (*repository.Membership, error)
	ResolveActiveCompany(ctx context.Context, userID string) (*repository.Membership, error)
	InvalidateMembership(ctx context.Context, companyID, userID string)
}

type directoryService struct {
	companyRepo repository.CompanyRepository
	cache       *redis.Client
}

const membershipCacheTTL = 60 * time.Second

func NewDirectoryService(companyRepo repository.CompanyRepository, cache *redis.Client) DirectoryService {
	return &directoryService{companyRepo: companyRepo, cache: cache}
}

func membershipCacheKey(companyID, userID string) string {
	return fmt.Sprintf("membership:%s:%s", companyID, userID)
}

func (s *directoryService) ResolveMembership(ctx context.Context, companyID, userID string) (*repository.Membership, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, membershipCacheKey(companyID, userID)).Bytes(); err == nil {
			var m repository.Membership
			if jsonErr := json.Unmarshal(data, &m); jsonErr == nil {
				return &m, nil
			}
		}
	}

	m, err := s.companyRepo.FindMembership(ctx, companyID, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	if m == nil {
		return nil, nil
	}

	if s.cache != nil {
		if data, err := json.Marshal(m); err == nil {
			if err := s.cache.Set(ctx, membershipCacheKey(companyID, userID), data, membershipCacheTTL).Err(); err != nil {
				log.Printf("⚠️ membership cache write failed: %v", err)
			}
		}
	}
	return m, nil
}

func (s *directoryService) ResolveActiveCompany(ctx context.Context, userID string) (*repository.Membership, error) {
	m, err := s.companyRepo.FindActiveMembershipByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return m, nil
}

func (s *directoryService) InvalidateMembership(ctx context.Context, companyID, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, membershipCacheKey(companyID, userID)).Err(); err != nil {
		log.Printf("⚠️ membership cache invalidation failed: %v", err)
	}
}
