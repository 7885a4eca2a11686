package socket

import "fmt"

// Broadcaster provides high-level methods for broadcasting schedule events
// to company rooms.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

func companyRoom(companyID string) string {
	return fmt.Sprintf("company:%s", companyID)
}

// ============================================
// Appointment Broadcasting
// ============================================

// BroadcastAppointmentCreated notifies company members of a new appointment
func (b *Broadcaster) BroadcastAppointmentCreated(companyID string, appt map[string]interface{}, excludeUserID string) {
	b.hub.SendToRoom(companyRoom(companyID), MessageAppointmentCreated, appt, excludeUserID)
}

// BroadcastAppointmentUpdated notifies company members of appointment changes
func (b *Broadcaster) BroadcastAppointmentUpdated(
	companyID string,
	appt map[string]interface{},
	changes []string,
	excludeUserID string,
) {
	payload := map[string]interface{}{
		"appointment":   appt,
		"changedFields": changes,
		"changedByUser": excludeUserID,
	}
	b.hub.SendToRoom(companyRoom(companyID), MessageAppointmentUpdated, payload, excludeUserID)
}

// BroadcastAppointmentDeleted notifies company members of a removal
func (b *Broadcaster) BroadcastAppointmentDeleted(companyID, appointmentID, excludeUserID string) {
	b.hub.SendToRoom(companyRoom(companyID), MessageAppointmentDeleted, map[string]interface{}{
		"id": appointmentID,
	}, excludeUserID)
}

// ============================================
// Client Registry Broadcasting
// ============================================

// BroadcastClientChanged notifies company members of client registry changes.
// event is one of "created", "updated", "deleted".
func (b *Broadcaster) BroadcastClientChanged(companyID, event string, client map[string]interface{}, excludeUserID string) {
	var msgType MessageType
	switch event {
	case "created":
		msgType = MessageClientCreated
	case "updated":
		msgType = MessageClientUpdated
	case "deleted":
		msgType = MessageClientDeleted
	default:
		return
	}
	b.hub.SendToRoom(companyRoom(companyID), msgType, client, excludeUserID)
}

// ============================================
// Staff Broadcasting
// ============================================

// BroadcastStaffChanged notifies company members of staff roster changes.
// event is one of "created", "activated", "deactivated".
func (b *Broadcaster) BroadcastStaffChanged(companyID, event string, member map[string]interface{}, excludeUserID string) {
	var msgType MessageType
	switch event {
	case "created":
		msgType = MessageStaffCreated
	case "activated":
		msgType = MessageStaffActivated
	case "deactivated":
		msgType = MessageStaffDeactivated
	default:
		return
	}
	b.hub.SendToRoom(companyRoom(companyID), msgType, member, excludeUserID)
}
