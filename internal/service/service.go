package service

import (
	"github.com/redis/go-redis/v9"

	"github.com/agendou/agenda-backend/internal/config"
	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/socket"
)

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth        AuthService
	Company     CompanyService
	Client      ClientService
	Appointment AppointmentService
	Audit       AuditService
	Staff       StaffService
	Directory   DirectoryService
	Broadcaster *socket.Broadcaster
}

// ServiceDeps contains all dependencies needed to create services.
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	Cache       *redis.Client
	Broadcaster *socket.Broadcaster
}

func NewServices(deps *ServiceDeps) *Services {
	directory := NewDirectoryService(deps.Repos.CompanyRepo, deps.Cache)
	guard := NewGuard(directory)

	return &Services{
		Auth:        NewAuthService(deps.Config, deps.Repos.UserRepo),
		Company:     NewCompanyService(guard, directory, deps.Repos.CompanyRepo),
		Client:      NewClientService(guard, deps.Repos.ClientRepo, deps.Broadcaster),
		Appointment: NewAppointmentService(guard, deps.Repos.AppointmentRepo, deps.Repos.ClientRepo, deps.Broadcaster),
		Audit:       NewAuditService(guard, deps.Repos.AuditRepo),
		Staff: NewStaffService(
			guard,
			directory,
			deps.Repos.UserRepo,
			deps.Repos.CompanyRepo,
			deps.Repos.AuditRepo,
			deps.Broadcaster,
		),
		Directory:   directory,
		Broadcaster: deps.Broadcaster,
	}
}
