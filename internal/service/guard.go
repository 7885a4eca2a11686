package service

import (
	"context"

	"github.com/agendou/agenda-backend/internal/repository"
	"github.com/agendou/agenda-backend/internal/types"
)

// ============================================
// Access Guard
// ============================================

type Operation string

const (
	OpAppointmentCreate Operation = "appointment:create"
	OpAppointmentView   Operation = "appointment:view"
	OpAppointmentUpdate Operation = "appointment:update"
	OpAppointmentDelete Operation = "appointment:delete"
	OpClientCreate      Operation = "client:create"
	OpClientView        Operation = "client:view"
	OpClientUpdate      Operation = "client:update"
	OpClientDelete      Operation = "client:delete"
	OpStaffManage       Operation = "staff:manage"
	OpAuditView         Operation = "audit:view"
	OpCompanyView       Operation = "company:view"
	OpCompanyUpdate     Operation = "company:update"
)

// roleCapabilities is the single source of truth for what each role may do.
// Ownership-scoped restrictions (staff editing only their own appointments,
// and only certain fields) are enforced on top of this table.
var roleCapabilities = map[string]map[Operation]bool{
	types.RoleOwner: {
		OpAppointmentCreate: true,
		OpAppointmentView:   true,
		OpAppointmentUpdate: true,
		OpAppointmentDelete: true,
		OpClientCreate:      true,
		OpClientView:        true,
		OpClientUpdate:      true,
		OpClientDelete:      true,
		OpStaffManage:       true,
		OpAuditView:         true,
		OpCompanyView:       true,
		OpCompanyUpdate:     true,
	},
	types.RoleStaff: {
		OpAppointmentCreate: true,
		OpAppointmentView:   true,
		OpAppointmentUpdate: true,
		OpClientCreate:      true,
		OpClientView:        true,
		OpClientUpdate:      true,
		OpCompanyView:       true,
	},
}

// staffEditableFields lists the appointment fields staff may change on their
// own existing appointments. Title, times and deletion stay owner-only.
var staffEditableFields = map[string]bool{
	"status":         true,
	"notes":          true,
	"price":          true,
	"amount_paid":    true,
	"payment_status": true,
	"category":       true,
	"client_id":      true,
}

func roleAllows(role string, op Operation) bool {
	caps, ok := roleCapabilities[role]
	return ok && caps[op]
}

func StaffMayEditField(field string) bool {
	return staffEditableFields[field]
}

// Guard resolves the caller's membership and checks it against the
// capability table. A missing or deactivated membership is indistinguishable
// from no access at all.
type Guard struct {
	directory DirectoryService
}

func NewGuard(directory DirectoryService) *Guard {
	return &Guard{directory: directory}
}

// Authorize returns the caller's active membership when the role permits the
// operation. Deactivated memberships fail exactly like absent ones.
func (g *Guard) Authorize(ctx context.Context, companyID, userID string, op Operation) (*repository.Membership, error) {
	member, err := g.directory.ResolveMembership(ctx, companyID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil || !member.Active {
		return nil, ErrForbidden
	}
	if !roleAllows(member.Role, op) {
		return nil, ErrForbidden
	}
	return member, nil
}
