package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/types"
)

func TestRoleCapabilities(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))

	t.Run("staff cannot delete appointments", func(t *testing.T) {
		err := env.services.Appointment.Delete(ctx, env.companyID, env.staffID, appt.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff cannot read the audit trail", func(t *testing.T) {
		_, err := env.services.Audit.List(ctx, env.companyID, env.staffID, nil)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff cannot provision staff", func(t *testing.T) {
		_, _, err := env.services.Staff.CreateStaff(ctx, env.companyID, env.staffID, &CreateStaffRequest{
			Email:    "other@example.com",
			FullName: "Other",
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff cannot update the company", func(t *testing.T) {
		_, err := env.services.Company.Update(ctx, env.companyID, env.staffID, &CompanyRequest{Name: "New Name"})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff cannot toggle memberships", func(t *testing.T) {
		err := env.services.Staff.SetActive(ctx, env.companyID, env.staffID, env.ownerID, false)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("owner can delete appointments", func(t *testing.T) {
		err := env.services.Appointment.Delete(ctx, env.companyID, env.ownerID, appt.ID)
		require.NoError(t, err)
	})
}

func TestStaffFieldPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))

	t.Run("staff may edit status, notes and payment fields on own appointments", func(t *testing.T) {
		notes := "running late"
		status := types.StatusConfirmed
		price := "80.00"
		updated, err := env.services.Appointment.Update(ctx, env.companyID, env.staffID, appt.ID, &UpdateAppointmentRequest{
			Status: &status,
			Notes:  &notes,
			Price:  &price,
		})
		require.NoError(t, err)
		assert.Equal(t, types.StatusConfirmed, updated.Status)
		require.NotNil(t, updated.PriceCents)
		assert.Equal(t, int64(8000), *updated.PriceCents)
	})

	t.Run("staff may not retitle own appointments", func(t *testing.T) {
		title := "Sneaky rename"
		_, err := env.services.Appointment.Update(ctx, env.companyID, env.staffID, appt.ID, &UpdateAppointmentRequest{
			Title: &title,
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff may not move own appointments", func(t *testing.T) {
		start := at(12, 0)
		_, err := env.services.Appointment.Update(ctx, env.companyID, env.staffID, appt.ID, &UpdateAppointmentRequest{
			StartAt: &start,
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff may not touch another member's appointment at all", func(t *testing.T) {
		other := env.addStaff(t, "second@example.com", "Second Staff")
		otherAppt := env.createAppointment(t, other, at(13, 0), at(14, 0))

		notes := "not mine"
		_, err := env.services.Appointment.Update(ctx, env.companyID, env.staffID, otherAppt.ID, &UpdateAppointmentRequest{
			Notes: &notes,
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("owner may edit any field of any appointment", func(t *testing.T) {
		title := "Rescheduled haircut"
		start, end := at(15, 0), at(16, 0)
		updated, err := env.services.Appointment.Update(ctx, env.companyID, env.ownerID, appt.ID, &UpdateAppointmentRequest{
			Title:   &title,
			StartAt: &start,
			EndAt:   &end,
		})
		require.NoError(t, err)
		assert.Equal(t, title, updated.Title)
	})
}

func TestStaffReadScope(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	own := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))

	ownersAppt, err := env.services.Appointment.Create(ctx, env.companyID, env.ownerID, &CreateAppointmentRequest{
		Title:   "Color",
		StartAt: at(10, 0),
		EndAt:   at(11, 0),
	})
	require.NoError(t, err)

	t.Run("staff cannot fetch another member's appointment", func(t *testing.T) {
		_, err := env.services.Appointment.GetByID(ctx, env.companyID, env.staffID, ownersAppt.ID)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("staff list only their own calendar", func(t *testing.T) {
		appts, err := env.services.Appointment.List(ctx, env.companyID, env.staffID, nil)
		require.NoError(t, err)
		require.Len(t, appts, 1)
		assert.Equal(t, own.ID, appts[0].ID)
	})

	t.Run("a creator filter does not widen staff scope", func(t *testing.T) {
		appts, err := env.services.Appointment.List(ctx, env.companyID, env.staffID, &repository.AppointmentFilters{
			CreatedBy: &env.ownerID,
		})
		require.NoError(t, err)
		require.Len(t, appts, 1)
		assert.Equal(t, env.staffID, appts[0].CreatedByUserID)
	})

	t.Run("owner sees the whole company calendar", func(t *testing.T) {
		appts, err := env.services.Appointment.List(ctx, env.companyID, env.ownerID, nil)
		require.NoError(t, err)
		assert.Len(t, appts, 2)
	})
}

func TestCrossTenantAccessReadsAsMissing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))

	// A second company with its own owner.
	otherOwner, _, _, err := env.services.Auth.Register(ctx, "Other Owner", "other-owner@example.com", "password123")
	require.NoError(t, err)
	otherCompany, err := env.services.Company.Create(ctx, otherOwner.ID, &CompanyRequest{Name: "Rival Studio"})
	require.NoError(t, err)

	// The appointment exists, but not in the caller's company.
	_, err = env.services.Appointment.GetByID(ctx, otherCompany.ID, otherOwner.ID, appt.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.services.Appointment.Update(ctx, otherCompany.ID, otherOwner.ID, appt.ID, &UpdateAppointmentRequest{})
	assert.ErrorIs(t, err, ErrNotFound)

	err = env.services.Appointment.Delete(ctx, otherCompany.ID, otherOwner.ID, appt.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// A member of company A gets no access at all in company B.
	_, err = env.services.Appointment.GetByID(ctx, otherCompany.ID, env.staffID, appt.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeactivatedMembershipLosesAccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))

	require.NoError(t, env.services.Staff.SetActive(ctx, env.companyID, env.ownerID, env.staffID, false))

	_, err := env.services.Appointment.GetByID(ctx, env.companyID, env.staffID, appt.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
		Title:   "After deactivation",
		StartAt: at(12, 0),
		EndAt:   at(13, 0),
	})
	assert.ErrorIs(t, err, ErrForbidden)

	// Reactivation restores access.
	require.NoError(t, env.services.Staff.SetActive(ctx, env.companyID, env.ownerID, env.staffID, true))
	_, err = env.services.Appointment.GetByID(ctx, env.companyID, env.staffID, appt.ID)
	require.NoError(t, err)
}

func TestGuardAuthorize(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	directory := NewDirectoryService(repos.CompanyRepo, nil)
	guard := NewGuard(directory)
	ctx := context.Background()

	t.Run("no membership means forbidden", func(t *testing.T) {
		_, err := guard.Authorize(ctx, "company-1", "nobody", OpAppointmentView)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown role has no capabilities", func(t *testing.T) {
		assert.False(t, roleAllows("superadmin", OpAppointmentView))
	})

	t.Run("field policy vocabulary", func(t *testing.T) {
		for _, field := range []string{"status", "notes", "price", "amount_paid", "payment_status", "category", "client_id"} {
			assert.True(t, StaffMayEditField(field), field)
		}
		for _, field := range []string{"title", "start_at", "end_at"} {
			assert.False(t, StaffMayEditField(field), field)
		}
	})
}
