package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/types"
)

func TestCreateStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	member, tempPassword, err := env.services.Staff.CreateStaff(ctx, env.companyID, env.ownerID, &CreateStaffRequest{
		Email:        "New.Person@Example.com",
		FullName:     "New Person",
		RoleFunction: strPtr("hairdresser"),
	})
	require.NoError(t, err)

	t.Run("membership is active staff invited by the owner", func(t *testing.T) {
		assert.Equal(t, types.RoleStaff, member.Role)
		assert.True(t, member.Active)
		require.NotNil(t, member.InvitedBy)
		assert.Equal(t, env.ownerID, *member.InvitedBy)
	})

	t.Run("job label is stored without granting rights", func(t *testing.T) {
		stored, err := env.repos.CompanyRepo.FindMembership(ctx, env.companyID, member.UserID)
		require.NoError(t, err)
		require.NotNil(t, stored.RoleFunction)
		assert.Equal(t, "hairdresser", *stored.RoleFunction)
		assert.Equal(t, types.RoleStaff, stored.Role)
	})

	t.Run("identity must change password and is no longer provisioning", func(t *testing.T) {
		user, err := env.repos.UserRepo.FindByID(ctx, member.UserID)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "new.person@example.com", user.Email)
		assert.True(t, user.MustChangePassword)
		assert.False(t, user.Provisioning)
	})

	t.Run("temp password is strong and verifiable", func(t *testing.T) {
		assert.GreaterOrEqual(t, len(tempPassword), 12)
		assert.True(t, strings.ContainsAny(tempPassword, lowerChars), "missing lowercase")
		assert.True(t, strings.ContainsAny(tempPassword, upperChars), "missing uppercase")
		assert.True(t, strings.ContainsAny(tempPassword, digitChars), "missing digit")
		assert.True(t, strings.ContainsAny(tempPassword, symbolChars), "missing symbol")

		user, err := env.repos.UserRepo.FindByID(ctx, member.UserID)
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(tempPassword)))
		assert.NotEqual(t, tempPassword, user.Password)
	})

	t.Run("new staff can log in with the temp password", func(t *testing.T) {
		user, _, _, err := env.services.Auth.Login(ctx, "new.person@example.com", tempPassword)
		require.NoError(t, err)
		assert.True(t, user.MustChangePassword)
	})

	t.Run("provisioning is audited", func(t *testing.T) {
		entries, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, &repository.AuditFilters{
			ActionPrefix: types.ActionStaffCreated,
		})
		require.NoError(t, err)
		// One from the test env harness, one from this test.
		require.Len(t, entries, 2)
		assert.Equal(t, env.ownerID, entries[0].ActorUserID)
		assert.Equal(t, "new.person@example.com", entries[0].After["email"])
	})
}

func TestCreateStaff_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.services.Staff.CreateStaff(ctx, env.companyID, env.ownerID, &CreateStaffRequest{
		Email:    "staff@example.com",
		FullName: "Duplicate",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestCreateStaff_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.services.Staff.CreateStaff(ctx, env.companyID, env.ownerID, &CreateStaffRequest{
		Email:    "not-an-email",
		FullName: "No Email",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, _, err = env.services.Staff.CreateStaff(ctx, env.companyID, env.ownerID, &CreateStaffRequest{
		Email:    "ok@example.com",
		FullName: "   ",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStaffList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	members, err := env.services.Staff.List(ctx, env.companyID, env.staffID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	roles := map[string]string{}
	for _, m := range members {
		roles[m.UserID] = m.Role
	}
	assert.Equal(t, types.RoleOwner, roles[env.ownerID])
	assert.Equal(t, types.RoleStaff, roles[env.staffID])
}

func TestSetActive_OwnerProtected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.services.Staff.SetActive(ctx, env.companyID, env.ownerID, env.ownerID, false)
	assert.ErrorIs(t, err, ErrForbidden)

	err = env.services.Staff.SetActive(ctx, env.companyID, env.ownerID, "missing-user", false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetActive_Audited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.services.Staff.SetActive(ctx, env.companyID, env.ownerID, env.staffID, false))
	require.NoError(t, env.services.Staff.SetActive(ctx, env.companyID, env.ownerID, env.staffID, true))

	entries, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, &repository.AuditFilters{
		ActionPrefix: "STAFF_",
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, types.ActionStaffActivated, entries[0].Action)
	assert.Equal(t, types.ActionStaffDeactivated, entries[1].Action)
	assert.Equal(t, types.ActionStaffCreated, entries[2].Action)
}

func TestSweepOrphanedIdentities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// An identity stuck in provisioning with no membership.
	orphan := &repository.User{
		Email:              "orphan@example.com",
		Password:           "hash",
		FullName:           "Orphan",
		MustChangePassword: true,
		Provisioning:       true,
	}
	require.NoError(t, env.repos.UserRepo.Create(ctx, orphan))

	// An identity whose flag clear was lost but whose membership exists.
	require.NoError(t, env.repos.UserRepo.SetProvisioning(ctx, env.staffID, true))

	removed, err := env.services.Staff.SweepOrphanedIdentities(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	gone, err := env.repos.UserRepo.FindByID(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	repaired, err := env.repos.UserRepo.FindByID(ctx, env.staffID)
	require.NoError(t, err)
	require.NotNil(t, repaired)
	assert.False(t, repaired.Provisioning)
}

func TestSweepRespectsTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	fresh := &repository.User{
		Email:        "fresh@example.com",
		Password:     "hash",
		FullName:     "Fresh",
		Provisioning: true,
	}
	require.NoError(t, env.repos.UserRepo.Create(ctx, fresh))

	removed, err := env.services.Staff.SweepOrphanedIdentities(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	still, err := env.repos.UserRepo.FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)
}
