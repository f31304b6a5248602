// Package domain holds the lead lifecycle state machine and the intent
// heuristics applied to inbound message text. Everything here is pure and
// side-effect free.
package domain

// Status is a lead's lifecycle status.
type Status string

const (
	StatusNew            Status = "new"
	StatusInConversation Status = "in_conversation"
	StatusQualified      Status = "qualified"
	StatusAppointmentSet Status = "appointment_set"
	StatusConverted      Status = "converted"
	StatusInactive       Status = "inactive"
)

// AllStatuses lists every valid lead status.
var AllStatuses = []Status{
	StatusNew,
	StatusInConversation,
	StatusQualified,
	StatusAppointmentSet,
	StatusConverted,
	StatusInactive,
}

// Valid reports whether s is a known lead status.
func Valid(s Status) bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// NextOnInbound returns the status a lead should hold after receiving an
// inbound message. The machine is intentionally conservative: the only
// automatic transition is new -> in_conversation. Applying it twice yields
// the same result, so duplicate inbound events cannot move a lead further.
func NextOnInbound(current Status) Status {
	if current == StatusNew {
		return StatusInConversation
	}
	return current
}
