package models

import "time"

// ============================================
// Auth
// ============================================

type RegisterRequest struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

type UserResponse struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	FullName           string    `json:"fullName"`
	MustChangePassword bool      `json:"mustChangePassword"`
	CreatedAt          time.Time `json:"createdAt"`
}

type AuthResponse struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ============================================
// Company
// ============================================

type CompanyRequest struct {
	Name                   string  `json:"name" binding:"required"`
	Slug                   *string `json:"slug"`
	Phone                  *string `json:"phone"`
	Segment                *string `json:"segment"`
	City                   *string `json:"city"`
	State                  *string `json:"state"`
	Timezone               *string `json:"timezone"`
	DefaultIntervalMinutes *int    `json:"defaultIntervalMinutes"`
}

type CompanyResponse struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Slug                   *string   `json:"slug,omitempty"`
	Phone                  *string   `json:"phone,omitempty"`
	Segment                *string   `json:"segment,omitempty"`
	City                   *string   `json:"city,omitempty"`
	State                  *string   `json:"state,omitempty"`
	Timezone               *string   `json:"timezone,omitempty"`
	DefaultIntervalMinutes *int      `json:"defaultIntervalMinutes,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
}

// ============================================
// Clients
// ============================================

type ClientRequest struct {
	Name  string  `json:"name" binding:"required"`
	Phone *string `json:"phone"`
	Notes *string `json:"notes"`
}

type ClientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     *string   `json:"phone,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ============================================
// Appointments
// ============================================

type CreateAppointmentRequest struct {
	ClientID      *string   `json:"clientId"`
	Title         string    `json:"title" binding:"required"`
	StartAt       time.Time `json:"startAt" binding:"required"`
	EndAt         time.Time `json:"endAt" binding:"required"`
	Status        string    `json:"status"`
	Price         *string   `json:"price"`
	AmountPaid    *string   `json:"amountPaid"`
	PaymentStatus *string   `json:"paymentStatus"`
	Category      *string   `json:"category"`
	Notes         *string   `json:"notes"`
}

type UpdateAppointmentRequest struct {
	ClientID      *string    `json:"clientId"`
	Title         *string    `json:"title"`
	StartAt       *time.Time `json:"startAt"`
	EndAt         *time.Time `json:"endAt"`
	Status        *string    `json:"status"`
	Price         *string    `json:"price"`
	AmountPaid    *string    `json:"amountPaid"`
	PaymentStatus *string    `json:"paymentStatus"`
	Category      *string    `json:"category"`
	Notes         *string    `json:"notes"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AppointmentResponse struct {
	ID              string    `json:"id"`
	CreatedByUserID string    `json:"createdByUserId"`
	ClientID        *string   `json:"clientId,omitempty"`
	Title           string    `json:"title"`
	StartAt         time.Time `json:"startAt"`
	EndAt           time.Time `json:"endAt"`
	Status          string    `json:"status"`
	Price           *string   `json:"price,omitempty"`
	AmountPaid      *string   `json:"amountPaid,omitempty"`
	PaymentStatus   *string   `json:"paymentStatus,omitempty"`
	Category        *string   `json:"category,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type AvailabilityResponse struct {
	Available   bool                  `json:"available"`
	Conflicting []AppointmentResponse `json:"conflicting"`
}

// ============================================
// Staff
// ============================================

type CreateStaffRequest struct {
	Email        string  `json:"email" binding:"required,email"`
	FullName     string  `json:"fullName" binding:"required"`
	RoleFunction *string `json:"roleFunction,omitempty"`
}

type CreateStaffResponse struct {
	Member       MemberResponse `json:"member"`
	TempPassword string         `json:"tempPassword"`
}

type SetActiveRequest struct {
	Active bool `json:"active"`
}

type MemberResponse struct {
	UserID       string    `json:"userId"`
	Email        string    `json:"email,omitempty"`
	FullName     string    `json:"fullName,omitempty"`
	Role         string    `json:"role"`
	RoleFunction *string   `json:"roleFunction,omitempty"`
	Active       bool      `json:"active"`
	InvitedBy    *string   `json:"invitedBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ============================================
// Audit
// ============================================

type AuditEntryResponse struct {
	ID          string                 `json:"id"`
	ActorUserID string                 `json:"actorUserId"`
	Action      string                 `json:"action"`
	EntityType  string                 `json:"entityType"`
	EntityID    string                 `json:"entityId"`
	Before      map[string]interface{} `json:"before,omitempty"`
	After       map[string]interface{} `json:"after,omitempty"`
	CreatedAt   time.Time              `json:"createdAt"`
}
