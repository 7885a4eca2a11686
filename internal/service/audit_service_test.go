package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendou/agenda-backend/internal/repository"
)

func TestAuditList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Generate a mixed trail.
	client, err := env.services.Client.Create(ctx, env.companyID, env.ownerID, &ClientRequest{Name: "Trail Client"})
	require.NoError(t, err)
	env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))
	_, err = env.services.Client.Update(ctx, env.companyID, env.staffID, client.ID, &ClientRequest{Name: "Trail Client 2"})
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		entries, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, nil)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(entries), 4)
		for i := 1; i < len(entries); i++ {
			assert.False(t, entries[i].CreatedAt.After(entries[i-1].CreatedAt))
		}
	})

	t.Run("prefix filter", func(t *testing.T) {
		entries, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, &repository.AuditFilters{
			ActionPrefix: "CLIENT_",
		})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.Contains(t, e.Action, "CLIENT_")
		}
	})

	t.Run("actor filter", func(t *testing.T) {
		entries, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, &repository.AuditFilters{
			ActorUserID: &env.staffID,
		})
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		for _, e := range entries {
			assert.Equal(t, env.staffID, e.ActorUserID)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		page1, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, &repository.AuditFilters{Limit: 2})
		require.NoError(t, err)
		require.Len(t, page1, 2)

		page2, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, &repository.AuditFilters{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.NotEmpty(t, page2)
		assert.NotEqual(t, page1[0].ID, page2[0].ID)
	})

	t.Run("scoped to company", func(t *testing.T) {
		otherOwner, _, _, err := env.services.Auth.Register(ctx, "Other", "other@example.com", "password123")
		require.NoError(t, err)
		otherCompany, err := env.services.Company.Create(ctx, otherOwner.ID, &CompanyRequest{Name: "Elsewhere"})
		require.NoError(t, err)

		entries, err := env.services.Audit.List(ctx, otherCompany.ID, otherOwner.ID, nil)
		require.NoError(t, err)
		// Only its own COMPANY_CREATED entry.
		require.Len(t, entries, 1)
	})
}
