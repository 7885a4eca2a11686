package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/types"
)

func TestAppointmentCreate_ConflictDetection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))

	t.Run("overlapping interval of same creator is rejected", func(t *testing.T) {
		_, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
			Title:   "Beard trim",
			StartAt: at(10, 30),
			EndAt:   at(11, 30),
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Contains(t, conflict.ConflictingIDs, first.ID)
	})

	t.Run("touching boundaries do not conflict", func(t *testing.T) {
		_, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
			Title:   "Next slot",
			StartAt: at(11, 0),
			EndAt:   at(12, 0),
		})
		require.NoError(t, err)
	})

	t.Run("same interval for a different creator is allowed", func(t *testing.T) {
		_, err := env.services.Appointment.Create(ctx, env.companyID, env.ownerID, &CreateAppointmentRequest{
			Title:   "Owner booking",
			StartAt: at(10, 0),
			EndAt:   at(11, 0),
		})
		require.NoError(t, err)
	})

	t.Run("containment counts as overlap", func(t *testing.T) {
		_, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
			Title:   "Inside",
			StartAt: at(10, 15),
			EndAt:   at(10, 45),
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
	})
}

func TestAppointmentCreate_CanceledFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(14, 0), at(15, 0))

	_, err := env.services.Appointment.UpdateStatus(ctx, env.companyID, env.staffID, appt.ID, types.StatusCanceled)
	require.NoError(t, err)

	replacement, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
		Title:   "Replacement",
		StartAt: at(14, 0),
		EndAt:   at(15, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusScheduled, replacement.Status)
}

func TestAppointmentUpdate_OverlapExcludesSelf(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(9, 0), at(10, 0))

	// Shifting within its own original window must not self-conflict.
	start, end := at(9, 30), at(10, 30)
	updated, err := env.services.Appointment.Update(ctx, env.companyID, env.ownerID, appt.ID, &UpdateAppointmentRequest{
		StartAt: &start,
		EndAt:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, start, updated.StartAt)
}

func TestAppointmentStatus_StateMachine(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("canceled is terminal", func(t *testing.T) {
		appt := env.createAppointment(t, env.staffID, at(8, 0), at(9, 0))
		_, err := env.services.Appointment.UpdateStatus(ctx, env.companyID, env.staffID, appt.ID, types.StatusCanceled)
		require.NoError(t, err)

		_, err = env.services.Appointment.UpdateStatus(ctx, env.companyID, env.staffID, appt.ID, types.StatusDone)
		var transition *InvalidTransitionError
		require.ErrorAs(t, err, &transition)
		assert.Equal(t, types.StatusCanceled, transition.From)
		assert.Equal(t, types.StatusDone, transition.To)
	})

	t.Run("done stays correctable", func(t *testing.T) {
		appt := env.createAppointment(t, env.staffID, at(16, 0), at(17, 0))
		_, err := env.services.Appointment.UpdateStatus(ctx, env.companyID, env.staffID, appt.ID, types.StatusDone)
		require.NoError(t, err)

		updated, err := env.services.Appointment.UpdateStatus(ctx, env.companyID, env.staffID, appt.ID, types.StatusNoShow)
		require.NoError(t, err)
		assert.Equal(t, types.StatusNoShow, updated.Status)
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		appt := env.createAppointment(t, env.staffID, at(18, 0), at(19, 0))
		_, err := env.services.Appointment.UpdateStatus(ctx, env.companyID, env.staffID, appt.ID, "postponed")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAppointmentCreate_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		req   *CreateAppointmentRequest
		field string
	}{
		{
			name:  "empty title",
			req:   &CreateAppointmentRequest{Title: "  ", StartAt: at(10, 0), EndAt: at(11, 0)},
			field: "title",
		},
		{
			name:  "start after end",
			req:   &CreateAppointmentRequest{Title: "X", StartAt: at(11, 0), EndAt: at(10, 0)},
			field: "start_at",
		},
		{
			name:  "zero length interval",
			req:   &CreateAppointmentRequest{Title: "X", StartAt: at(10, 0), EndAt: at(10, 0)},
			field: "start_at",
		},
		{
			name: "negative price",
			req: &CreateAppointmentRequest{
				Title: "X", StartAt: at(10, 0), EndAt: at(11, 0),
				Price: strPtr("-5.00"),
			},
			field: "price",
		},
		{
			name: "sub-cent price",
			req: &CreateAppointmentRequest{
				Title: "X", StartAt: at(10, 0), EndAt: at(11, 0),
				Price: strPtr("12.345"),
			},
			field: "price",
		},
		{
			name: "unknown payment status",
			req: &CreateAppointmentRequest{
				Title: "X", StartAt: at(10, 0), EndAt: at(11, 0),
				PaymentStatus: strPtr("installments"),
			},
			field: "payment_status",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, tc.req)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
		})
	}

	t.Run("unknown client in company is rejected", func(t *testing.T) {
		_, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
			Title: "X", StartAt: at(10, 0), EndAt: at(11, 0),
			ClientID: strPtr("00000000-0000-0000-0000-000000000000"),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAppointmentMoney_StoredAsCents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
		Title:         "Coloring",
		StartAt:       at(10, 0),
		EndAt:         at(12, 0),
		Price:         strPtr("150.00"),
		AmountPaid:    strPtr("50.5"),
		PaymentStatus: strPtr(types.PaymentPending),
	})
	require.NoError(t, err)
	require.NotNil(t, appt.PriceCents)
	assert.Equal(t, int64(15000), *appt.PriceCents)
	require.NotNil(t, appt.AmountPaidCents)
	assert.Equal(t, int64(5050), *appt.AmountPaidCents)
}

func TestAppointmentMutations_AreAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))

	notes := "client asked for window seat"
	_, err := env.services.Appointment.Update(ctx, env.companyID, env.staffID, appt.ID, &UpdateAppointmentRequest{
		Notes: &notes,
	})
	require.NoError(t, err)

	err = env.services.Appointment.Delete(ctx, env.companyID, env.ownerID, appt.ID)
	require.NoError(t, err)

	entries, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, &repository.AuditFilters{
		ActionPrefix: "APPOINTMENT_",
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Newest first.
	assert.Equal(t, types.ActionAppointmentDeleted, entries[0].Action)
	assert.Equal(t, types.ActionAppointmentUpdated, entries[1].Action)
	assert.Equal(t, types.ActionAppointmentCreated, entries[2].Action)

	created := entries[2]
	assert.Equal(t, env.staffID, created.ActorUserID)
	assert.Equal(t, appt.ID, created.EntityID)
	assert.Nil(t, created.Before)
	assert.Equal(t, "Haircut", created.After["title"])

	updated := entries[1]
	assert.Equal(t, appt.ID, updated.EntityID)
	assert.NotContains(t, updated.Before, "notes")
	assert.Equal(t, notes, updated.After["notes"])

	deleted := entries[0]
	assert.Equal(t, env.ownerID, deleted.ActorUserID)
	assert.Nil(t, deleted.After)
}

func TestAppointmentStatusChange_AuditAction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))
	_, err := env.services.Appointment.UpdateStatus(ctx, env.companyID, env.staffID, appt.ID, types.StatusConfirmed)
	require.NoError(t, err)

	entries, err := env.services.Audit.List(ctx, env.companyID, env.ownerID, &repository.AuditFilters{
		ActionPrefix: types.ActionAppointmentStatusChanged,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, types.StatusScheduled, entries[0].Before["status"])
	assert.Equal(t, types.StatusConfirmed, entries[0].After["status"])
}

func TestCheckAvailability(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	appt := env.createAppointment(t, env.staffID, at(10, 0), at(11, 0))

	conflicts, err := env.services.Appointment.CheckAvailability(ctx, env.companyID, env.staffID, at(10, 30), at(11, 30), "")
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, appt.ID, conflicts[0].ID)

	conflicts, err = env.services.Appointment.CheckAvailability(ctx, env.companyID, env.staffID, at(11, 0), at(12, 0), "")
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	// Excluding the appointment itself reports its slot as free.
	conflicts, err = env.services.Appointment.CheckAvailability(ctx, env.companyID, env.staffID, at(10, 0), at(11, 0), appt.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

// TestAppointmentCreate_RandomizedIntervals cross-checks the store's overlap
// decisions against a naive model over many random proposals.
func TestAppointmentCreate_RandomizedIntervals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	type interval struct{ start, end time.Time }
	var accepted []interval

	overlapsAny := func(start, end time.Time) bool {
		for _, iv := range accepted {
			if iv.start.Before(end) && start.Before(iv.end) {
				return true
			}
		}
		return false
	}

	for i := 0; i < 200; i++ {
		startMin := rng.Intn(20 * 60)
		length := 15 + rng.Intn(120)
		start := at(0, 0).Add(time.Duration(startMin) * time.Minute)
		end := start.Add(time.Duration(length) * time.Minute)

		_, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
			Title:   "Slot",
			StartAt: start,
			EndAt:   end,
		})

		if overlapsAny(start, end) {
			var conflict *ConflictError
			require.ErrorAs(t, err, &conflict, "iteration %d: expected conflict for [%v, %v)", i, start, end)
			require.NotEmpty(t, conflict.ConflictingIDs)
		} else {
			require.NoError(t, err, "iteration %d: expected acceptance for [%v, %v)", i, start, end)
			accepted = append(accepted, interval{start, end})
		}
	}

	require.NotEmpty(t, accepted)
}

func TestAppointmentConcurrentCreate_OnlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	start, end := at(10, 0), at(11, 0)
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func(n int) {
			_, err := env.services.Appointment.Create(ctx, env.companyID, env.staffID, &CreateAppointmentRequest{
				Title:   "Race",
				StartAt: start,
				EndAt:   end,
			})
			results <- err
		}(i)
	}

	var failures, successes int
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			assert.ErrorIs(t, err, ErrConflict)
			failures++
		} else {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, failures)
}

func strPtr(s string) *string { return &s }
