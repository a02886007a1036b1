package domain

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew             TicketStatus = "NEW"
	TicketStatusTriaged         TicketStatus = "TRIAGED"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingCustomer TicketStatus = "WAITING_CUSTOMER"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// TicketChannel records how a ticket entered the system.
type TicketChannel string

const (
	ChannelEmail  TicketChannel = "EMAIL"
	ChannelPortal TicketChannel = "PORTAL"
	ChannelPhone  TicketChannel = "PHONE"
	ChannelAPI    TicketChannel = "API"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID            string
	CustomerID    string
	CreatorID     string
	Channel       TicketChannel
	Status        TicketStatus
	Priority      TicketPriority
	Category      string
	Subject       string
	Summary       string
	AssigneeID    *string
	ReferenceCode string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusNew:             {TicketStatusTriaged, TicketStatusInProgress, TicketStatusWaitingCustomer, TicketStatusResolved, TicketStatusClosed},
	TicketStatusTriaged:         {TicketStatusInProgress, TicketStatusWaitingCustomer, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress:      {TicketStatusWaitingCustomer, TicketStatusResolved, TicketStatusClosed},
	TicketStatusWaitingCustomer: {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:        {TicketStatusClosed, TicketStatusInProgress},
	TicketStatusClosed:          {TicketStatusInProgress},
}

// CanTransition reports whether the edge current->next is in the table.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the ticket along the transition table. A self-transition
// is a no-op. Entering RESOLVED stamps ResolvedAt; entering IN_PROGRESS clears
// it (reopen semantics).
func (t *Ticket) TransitionTo(next TicketStatus, at time.Time) error {
	if t.Status == next {
		return nil
	}
	if !CanTransition(t.Status, next) {
		return fmt.Errorf("invalid ticket status transition from %s to %s", t.Status, next)
	}
	t.Status = next
	switch next {
	case TicketStatusResolved:
		resolvedAt := at.UTC()
		t.ResolvedAt = &resolvedAt
	case TicketStatusInProgress:
		t.ResolvedAt = nil
	}
	return nil
}

// NormalizeCategory strips whitespace from a free-form category label.
func NormalizeCategory(raw string) string {
	return strings.Join(strings.Fields(raw), "")
}

// NormalizePriority maps arbitrary casing to a canonical priority. Unrecognized
// values default to MEDIUM.
func NormalizePriority(raw string) TicketPriority {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LOW":
		return TicketPriorityLow
	case "MEDIUM":
		return TicketPriorityMedium
	case "HIGH":
		return TicketPriorityHigh
	case "CRITICAL":
		return TicketPriorityCritical
	default:
		return TicketPriorityMedium
	}
}
