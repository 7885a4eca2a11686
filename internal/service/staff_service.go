package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/socket"
	"github.com/agendou/agenda-backend/internal/types"
)

// ============================================
// Staff Service
// ============================================

type StaffService interface {
	// CreateStaff provisions a login identity and attaches it to the
	// company. The temporary password is returned exactly once and is
	// never stored in clear.
	CreateStaff(ctx context.Context, companyID, actorID string, req *CreateStaffRequest) (*repository.Membership, string, error)
	List(ctx context.Context, companyID, userID string) ([]*repository.Membership, error)
	SetActive(ctx context.Context, companyID, actorID, targetUserID string, active bool) error
	// SweepOrphanedIdentities removes identities whose provisioning never
	// completed, once they are older than ttl.
	SweepOrphanedIdentities(ctx context.Context, ttl time.Duration) (int, error)
}

type CreateStaffRequest struct {
	Email    string
	FullName string
	// RoleFunction is a free-form job label ("hairdresser"); it carries no
	// access rights.
	RoleFunction *string
}

type staffService struct {
	guard       *Guard
	directory   DirectoryService
	userRepo    repository.UserRepository
	companyRepo repository.CompanyRepository
	auditRepo   repository.AuditRepository
	broadcaster *socket.Broadcaster
}

func NewStaffService(
	guard *Guard,
	directory DirectoryService,
	userRepo repository.UserRepository,
	companyRepo repository.CompanyRepository,
	auditRepo repository.AuditRepository,
	broadcaster *socket.Broadcaster,
) StaffService {
	return &staffService{
		guard:       guard,
		directory:   directory,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		broadcaster: broadcaster,
	}
}

func (s *staffService) CreateStaff(ctx context.Context, companyID, actorID string, req *CreateStaffRequest) (*repository.Membership, string, error) {
	actor, err := s.guard.Authorize(ctx, companyID, actorID, OpStaffManage)
	if err != nil {
		return nil, "", err
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", validationErr("email", "a valid email is required")
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, "", validationErr("full_name", "full name is required")
	}

	tempPassword, err := generateTempPassword()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrTransient, err)
	}

	user := &repository.User{
		Email:              email,
		Password:           string(hashed),
		FullName:           strings.TrimSpace(req.FullName),
		MustChangePassword: true,
		Provisioning:       true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, "", ErrDuplicateEmail
		}
		return nil, "", fmt.Errorf("%w: %v", ErrTransient, err)
	}

	member := &repository.Membership{
		CompanyID:    companyID,
		UserID:       user.ID,
		Role:         types.RoleStaff,
		RoleFunction: normalizeOptional(req.RoleFunction),
		Active:       true,
		InvitedBy:    &actor.UserID,
	}
	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: actorID,
		Action:      types.ActionStaffCreated,
		EntityType:  types.EntityMembership,
		After: map[string]interface{}{
			"user_id":   user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
			"role":      types.RoleStaff,
		},
	}
	if member.RoleFunction != nil {
		audit.After["role_function"] = *member.RoleFunction
	}
	if err := s.companyRepo.AddMembership(ctx, member, audit); err != nil {
		// The identity exists but never got its membership. Leave the
		// provisioning flag set so the sweep reclaims it, and record the
		// failure since the identity mutation already committed.
		failure := &repository.AuditEntry{
			CompanyID:   companyID,
			ActorUserID: actorID,
			Action:      types.ActionStaffProvisioningFailed,
			EntityType:  types.EntityUser,
			EntityID:    user.ID,
			After:       map[string]interface{}{"email": user.Email},
		}
		if auditErr := s.auditRepo.Append(ctx, failure); auditErr != nil {
			log.Printf("❌ failed to record provisioning failure for %s: %v", user.ID, auditErr)
		}
		return nil, "", fmt.Errorf("%w: %v", ErrTransient, err)
	}

	if err := s.userRepo.SetProvisioning(ctx, user.ID, false); err != nil {
		log.Printf("⚠️ provisioning flag not cleared for %s: %v", user.ID, err)
	}
	s.directory.InvalidateMembership(ctx, companyID, user.ID)

	member.User = user
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStaffChanged(companyID, "created", map[string]interface{}{
			"user_id":   user.ID,
			"email":     user.Email,
			"full_name": user.FullName,
			"role":      member.Role,
		}, actorID)
	}
	return member, tempPassword, nil
}

func (s *staffService) List(ctx context.Context, companyID, userID string) ([]*repository.Membership, error) {
	if _, err := s.guard.Authorize(ctx, companyID, userID, OpCompanyView); err != nil {
		return nil, err
	}
	members, err := s.companyRepo.FindMemberships(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return members, nil
}

func (s *staffService) SetActive(ctx context.Context, companyID, actorID, targetUserID string, active bool) error {
	if _, err := s.guard.Authorize(ctx, companyID, actorID, OpStaffManage); err != nil {
		return err
	}

	target, err := s.directory.ResolveMembership(ctx, companyID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNotFound
	}
	if target.Role == types.RoleOwner {
		return ErrForbidden
	}
	if target.Active == active {
		return nil
	}

	action := types.ActionStaffDeactivated
	if active {
		action = types.ActionStaffActivated
	}
	audit := &repository.AuditEntry{
		CompanyID:   companyID,
		ActorUserID: actorID,
		Action:      action,
		EntityType:  types.EntityMembership,
		Before:      map[string]interface{}{"user_id": targetUserID, "active": target.Active},
		After:       map[string]interface{}{"user_id": targetUserID, "active": active},
	}
	if err := s.companyRepo.SetMembershipActive(ctx, companyID, targetUserID, active, audit); err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}

	s.directory.InvalidateMembership(ctx, companyID, targetUserID)

	if s.broadcaster != nil {
		event := "deactivated"
		if active {
			event = "activated"
		}
		s.broadcaster.BroadcastStaffChanged(companyID, event, map[string]interface{}{
			"user_id": targetUserID,
			"active":  active,
		}, actorID)
	}
	return nil
}

func (s *staffService) SweepOrphanedIdentities(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().Add(-ttl)
	orphans, err := s.userRepo.FindProvisioningOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTransient, err)
	}

	removed := 0
	for _, u := range orphans {
		// A membership means provisioning actually completed and only the
		// flag clear was lost. Repair instead of deleting.
		member, err := s.companyRepo.FindActiveMembershipByUser(ctx, u.ID)
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		if member != nil {
			if err := s.userRepo.SetProvisioning(ctx, u.ID, false); err != nil {
				log.Printf("⚠️ sweep could not clear provisioning flag for %s: %v", u.ID, err)
			}
			continue
		}

		if err := s.userRepo.DeleteUserRefreshTokens(ctx, u.ID); err != nil {
			log.Printf("⚠️ sweep could not delete tokens for %s: %v", u.ID, err)
		}
		if err := s.userRepo.Delete(ctx, u.ID); err != nil {
			log.Printf("❌ sweep could not delete orphaned identity %s: %v", u.ID, err)
			continue
		}
		removed++
	}
	return removed, nil
}

const (
	passwordLength   = 16
	lowerChars       = "abcdefghijkmnopqrstuvwxyz"
	upperChars       = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	digitChars       = "23456789"
	symbolChars      = "!@#$%&*-_=+"
	allPasswordChars = lowerChars + upperChars + digitChars + symbolChars
)

// generateTempPassword builds a random password with at least one character
// from each class.
func generateTempPassword() (string, error) {
	buf := make([]byte, passwordLength)

	classes := []string{lowerChars, upperChars, digitChars, symbolChars}
	for i, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}
	for i := len(classes); i < passwordLength; i++ {
		c, err := randomChar(allPasswordChars)
		if err != nil {
			return "", err
		}
		buf[i] = c
	}

	// Shuffle so the class-guaranteed characters are not positional.
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}

func randomChar(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}
