package domain

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusStarted    TicketStatus = "started"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusCompleted  TicketStatus = "completed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// AllTicketStatuses lists every state in lifecycle order.
var AllTicketStatuses = []TicketStatus{
	TicketStatusAssigned,
	TicketStatusStarted,
	TicketStatusInProgress,
	TicketStatusCompleted,
	TicketStatusCancelled,
}

// Valid reports whether s is one of the five defined states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusAssigned, TicketStatusStarted, TicketStatusInProgress, TicketStatusCompleted, TicketStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s has no forward transitions.
func (s TicketStatus) IsTerminal() bool {
	return len(forwardTransitions[s]) == 0
}

// Forward transitions are open to the assigned technician and elevated roles.
var forwardTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusAssigned:   {TicketStatusStarted, TicketStatusCancelled},
	TicketStatusStarted:    {TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusInProgress: {TicketStatusCompleted, TicketStatusCancelled},
	TicketStatusCompleted:  {},
	TicketStatusCancelled:  {},
}

// Reverse transitions correct a mistaken advance and need an elevated role.
var reverseTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusStarted:    {TicketStatusAssigned},
	TicketStatusInProgress: {TicketStatusStarted},
	TicketStatusCompleted:  {TicketStatusInProgress},
	TicketStatusCancelled:  {TicketStatusAssigned},
}

// ForwardTransitions returns a copy of the forward targets of from.
func ForwardTransitions(from TicketStatus) []TicketStatus {
	return append([]TicketStatus{}, forwardTransitions[from]...)
}

// ReverseTransitions returns a copy of the reverse targets of from.
func ReverseTransitions(from TicketStatus) []TicketStatus {
	return append([]TicketStatus{}, reverseTransitions[from]...)
}

// IsForward reports whether from -> to is a forward edge.
func IsForward(from, to TicketStatus) bool {
	return contains(forwardTransitions[from], to)
}

// IsReverse reports whether from -> to is a reverse edge.
func IsReverse(from, to TicketStatus) bool {
	return contains(reverseTransitions[from], to)
}

// CanTransition applies the table for an actor that may or may not use reverse edges.
func CanTransition(from, to TicketStatus, privileged bool) bool {
	if IsForward(from, to) {
		return true
	}
	return privileged && IsReverse(from, to)
}

func contains(list []TicketStatus, target TicketStatus) bool {
	for _, candidate := range list {
		if candidate == target {
			return true
		}
	}
	return false
}
