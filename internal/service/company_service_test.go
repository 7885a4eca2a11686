package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendou/agenda-backend/internal/config"
	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/types"
)

func TestCompanyCreate(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	services := NewServices(&ServiceDeps{
		Config: &config.Config{JWTSecret: "test-secret", JWTExpiry: 1, RefreshExpiry: 1},
		Repos:  repos,
	})
	ctx := context.Background()

	owner, _, _, err := services.Auth.Register(ctx, "Owner", "owner@example.com", "password123")
	require.NoError(t, err)

	interval := 30
	company, err := services.Company.Create(ctx, owner.ID, &CompanyRequest{
		Name:                   "Barber Bros",
		Segment:                strPtr("barbershop"),
		DefaultIntervalMinutes: &interval,
	})
	require.NoError(t, err)

	t.Run("creator becomes the active owner", func(t *testing.T) {
		member, err := repos.CompanyRepo.FindMembership(ctx, company.ID, owner.ID)
		require.NoError(t, err)
		require.NotNil(t, member)
		assert.Equal(t, types.RoleOwner, member.Role)
		assert.True(t, member.Active)
	})

	t.Run("creation is audited", func(t *testing.T) {
		entries, err := services.Audit.List(ctx, company.ID, owner.ID, &repository.AuditFilters{
			ActionPrefix: types.ActionCompanyCreated,
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, company.ID, entries[0].EntityID)
	})

	t.Run("a second company for the same owner conflicts", func(t *testing.T) {
		_, err := services.Company.Create(ctx, owner.ID, &CompanyRequest{Name: "Second Shop"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invalid interval rejected", func(t *testing.T) {
		other, _, _, err := services.Auth.Register(ctx, "Other", "other@example.com", "password123")
		require.NoError(t, err)
		bad := 0
		_, err = services.Company.Create(ctx, other.ID, &CompanyRequest{
			Name:                   "Shop",
			DefaultIntervalMinutes: &bad,
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestCompanyUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tz := "America/Sao_Paulo"
	updated, err := env.services.Company.Update(ctx, env.companyID, env.ownerID, &CompanyRequest{
		Name:     "Studio Bela 2",
		Timezone: &tz,
	})
	require.NoError(t, err)
	assert.Equal(t, "Studio Bela 2", updated.Name)
	require.NotNil(t, updated.Timezone)
	assert.Equal(t, tz, *updated.Timezone)

	t.Run("members can read the company", func(t *testing.T) {
		company, err := env.services.Company.GetByID(ctx, env.companyID, env.staffID)
		require.NoError(t, err)
		assert.Equal(t, "Studio Bela 2", company.Name)
	})

	t.Run("non-members read nothing", func(t *testing.T) {
		stranger, _, _, err := env.services.Auth.Register(ctx, "Stranger", "stranger@example.com", "password123")
		require.NoError(t, err)
		_, err = env.services.Company.GetByID(ctx, env.companyID, stranger.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
