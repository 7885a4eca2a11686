package types

// Appointment status values
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusCanceled   = "canceled"
	StatusNoShow     = "no_show"
)

// Payment status values
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentWaived  = "waived"
)

// Membership roles
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// Audit action kinds. Prefix filtering relies on the ENTITY_VERB shape.
const (
	ActionAppointmentCreated       = "APPOINTMENT_CREATED"
	ActionAppointmentUpdated       = "APPOINTMENT_UPDATED"
	ActionAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
	ActionAppointmentDeleted       = "APPOINTMENT_DELETED"
	ActionClientCreated            = "CLIENT_CREATED"
	ActionClientUpdated            = "CLIENT_UPDATED"
	ActionClientDeleted            = "CLIENT_DELETED"
	ActionStaffCreated             = "STAFF_CREATED"
	ActionStaffProvisioningFailed  = "STAFF_PROVISIONING_FAILED"
	ActionStaffActivated           = "STAFF_ACTIVATED"
	ActionStaffDeactivated         = "STAFF_DEACTIVATED"
	ActionCompanyCreated           = "COMPANY_CREATED"
	ActionCompanyUpdated           = "COMPANY_UPDATED"
)

// Audit entity types
const (
	EntityAppointment = "appointment"
	EntityClient      = "client"
	EntityMembership  = "membership"
	EntityCompany     = "company"
	EntityUser        = "user"
)

var ValidStatuses = []string{
	StatusScheduled, StatusConfirmed, StatusInProgress,
	StatusDone, StatusCanceled, StatusNoShow,
}

var ValidPaymentStatuses = []string{
	PaymentPending, PaymentPaid, PaymentWaived,
}

func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func IsValidPaymentStatus(status string) bool {
	for _, p := range ValidPaymentStatuses {
		if p == status {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status forbids further transitions.
// Only canceled is terminal; done and no_show stay correctable.
func IsTerminalStatus(status string) bool {
	return status == StatusCanceled
}

// CanTransition applies the state machine rule: any status may be set from
// any non-terminal status, nothing may leave canceled.
func CanTransition(from, to string) bool {
	if !IsValidStatus(to) {
		return false
	}
	return !IsTerminalStatus(from)
}

// FreesSlot reports whether an appointment in this status releases its time
// slot for conflict detection.
func FreesSlot(status string) bool {
	return status == StatusCanceled
}
