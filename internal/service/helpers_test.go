package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agendou/agenda-backend/internal/config"
	"github.com/agendou/agenda-backend/internal/repository"
)

// testEnv wires the services over in-memory repositories with one company,
// its owner and one staff member.
type testEnv struct {
	services *Services
	repos    *repository.Repositories

	companyID string
	ownerID   string
	staffID   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	repos := repository.NewMemoryRepositories()
	services := NewServices(&ServiceDeps{
		Config: &config.Config{JWTSecret: "test-secret", JWTExpiry: 1, RefreshExpiry: 1},
		Repos:  repos,
	})

	owner, _, _, err := services.Auth.Register(ctx, "Owner One", "owner@example.com", "password123")
	require.NoError(t, err)

	company, err := services.Company.Create(ctx, owner.ID, &CompanyRequest{Name: "Studio Bela"})
	require.NoError(t, err)

	member, _, err := services.Staff.CreateStaff(ctx, company.ID, owner.ID, &CreateStaffRequest{
		Email:    "staff@example.com",
		FullName: "Staff One",
	})
	require.NoError(t, err)

	return &testEnv{
		services:  services,
		repos:     repos,
		companyID: company.ID,
		ownerID:   owner.ID,
		staffID:   member.UserID,
	}
}

// addStaff provisions another staff member and returns its user ID.
func (e *testEnv) addStaff(t *testing.T, email, name string) string {
	t.Helper()
	member, _, err := e.services.Staff.CreateStaff(context.Background(), e.companyID, e.ownerID, &CreateStaffRequest{
		Email:    email,
		FullName: name,
	})
	require.NoError(t, err)
	return member.UserID
}

// at builds a fixed-day timestamp for interval tests.
func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 10, hour, min, 0, 0, time.UTC)
}

func (e *testEnv) createAppointment(t *testing.T, userID string, start, end time.Time) *repository.Appointment {
	t.Helper()
	appt, err := e.services.Appointment.Create(context.Background(), e.companyID, userID, &CreateAppointmentRequest{
		Title:   "Haircut",
		StartAt: start,
		EndAt:   end,
	})
	require.NoError(t, err)
	return appt
}
