package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ============================================
// Models / Entities
// ============================================

type User struct {
	ID                 string
	Email              string
	Password           string
	FullName           string
	MustChangePassword bool
	Provisioning       bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type Company struct {
	ID                     string
	Name                   string
	Slug                   *string
	Phone                  *string
	Segment                *string
	City                   *string
	State                  *string
	Timezone               *string
	DefaultIntervalMinutes *int
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

type Membership struct {
	ID        string
	CompanyID string
	UserID    string
	Role      string
	// RoleFunction is the human job label ("hairdresser"), distinct from
	// the access role.
	RoleFunction *string
	Active       bool
	InvitedBy    *string
	CreatedAt    time.Time
	User         *User
}

type Client struct {
	ID        string
	CompanyID string
	Name      string
	Phone     *string
	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID              string
	CompanyID       string
	CreatedByUserID string
	ClientID        *string
	Title           string
	StartAt         time.Time
	EndAt           time.Time
	Status          string
	PriceCents      *int64
	AmountPaidCents *int64
	PaymentStatus   *string
	Category        *string
	Notes           *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type AuditEntry struct {
	ID          string
	CompanyID   string
	ActorUserID string
	Action      string
	EntityType  string
	EntityID    string
	Before      map[string]interface{}
	After       map[string]interface{}
	CreatedAt   time.Time
}

type AppointmentFilters struct {
	From      *time.Time
	To        *time.Time
	Status    []string
	CreatedBy *string
	Search    string
	Limit     int
	Offset    int
}

type AuditFilters struct {
	ActorUserID  *string
	ActionPrefix string
	Limit        int
	Offset       int
}

// ============================================
// Repository Errors
// ============================================

var (
	// ErrDuplicateEmail is returned when a user insert hits the unique
	// email index.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrNoRows marks lookups the store could not satisfy. Repositories
	// return (nil, nil) for plain finds; tx-bound operations return this.
	ErrNoRows = errors.New("no rows")
)

// OverlapError is returned when an appointment write collides with an
// existing non-canceled appointment of the same creator. The write and the
// overlap check share one transaction, so concurrent proposals cannot both
// slip through.
type OverlapError struct {
	ConflictingIDs []string
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("appointment overlaps with %d existing appointment(s)", len(e.ConflictingIDs))
}

// ============================================
// Repository Interfaces
// ============================================

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string, mustChange bool) error
	SetProvisioning(ctx context.Context, userID string, provisioning bool) error
	FindProvisioningOlderThan(ctx context.Context, cutoff time.Time) ([]*User, error)
	Delete(ctx context.Context, id string) error
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
	DeleteUserRefreshTokens(ctx context.Context, userID string) error
}

type CompanyRepository interface {
	// CreateWithOwner creates the company, its owner membership and the
	// audit entry in one transaction.
	CreateWithOwner(ctx context.Context, company *Company, ownerUserID string, audit *AuditEntry) error
	FindByID(ctx context.Context, id string) (*Company, error)
	Update(ctx context.Context, company *Company, audit *AuditEntry) error
	AddMembership(ctx context.Context, member *Membership, audit *AuditEntry) error
	FindMembership(ctx context.Context, companyID, userID string) (*Membership, error)
	FindActiveMembershipByUser(ctx context.Context, userID string) (*Membership, error)
	FindMemberships(ctx context.Context, companyID string) ([]*Membership, error)
	SetMembershipActive(ctx context.Context, companyID, userID string, active bool, audit *AuditEntry) error
}

type ClientRepository interface {
	Create(ctx context.Context, client *Client, audit *AuditEntry) error
	FindByID(ctx context.Context, companyID, id string) (*Client, error)
	FindByCompany(ctx context.Context, companyID, search string) ([]*Client, error)
	Update(ctx context.Context, client *Client, audit *AuditEntry) error
	// Delete removes the client; appointment references are nulled by the
	// store (ON DELETE SET NULL), keeping appointment history intact.
	Delete(ctx context.Context, companyID, id string, audit *AuditEntry) error
}

type AppointmentRepository interface {
	// Create inserts the appointment and its audit entry in one
	// transaction, failing with *OverlapError when the creator already has
	// a non-canceled appointment on an overlapping interval.
	Create(ctx context.Context, appt *Appointment, audit *AuditEntry) error
	FindByID(ctx context.Context, companyID, id string) (*Appointment, error)
	FindByCompany(ctx context.Context, companyID string, filters *AppointmentFilters) ([]*Appointment, error)
	FindOverlapping(ctx context.Context, companyID, creatorID string, start, end time.Time, excludeID string) ([]*Appointment, error)
	// Update rewrites the row and its audit entry in one transaction and
	// re-runs the overlap check when the interval is live.
	Update(ctx context.Context, appt *Appointment, audit *AuditEntry) error
	Delete(ctx context.Context, companyID, id string, audit *AuditEntry) error
}

type AuditRepository interface {
	// Append records an entry outside any mutation transaction. Mutating
	// repositories write their own entries transactionally; this exists
	// for actions whose mutation lives in another system (staff identity
	// creation) and must never be used to sidestep the tx pairing.
	Append(ctx context.Context, entry *AuditEntry) error
	FindByCompany(ctx context.Context, companyID string, filters *AuditFilters) ([]*AuditEntry, error)
}

// ============================================
// Repositories Container
// ============================================

type Repositories struct {
	UserRepo        UserRepository
	CompanyRepo     CompanyRepository
	ClientRepo      ClientRepository
	AppointmentRepo AppointmentRepository
	AuditRepo       AuditRepository
}

// NewRepositories creates PostgreSQL-backed repositories.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepo:        NewUserRepository(pool),
		CompanyRepo:     NewCompanyRepository(pool),
		ClientRepo:      NewClientRepository(pool),
		AppointmentRepo: NewAppointmentRepository(pool),
		AuditRepo:       NewAuditRepository(pool),
	}
}
