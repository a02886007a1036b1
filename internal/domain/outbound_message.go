package domain

import (
	"fmt"
	"time"
)

// OutboundStatus enumerates delivery states for queued notifications.
type OutboundStatus string

const (
	OutboundStatusPending    OutboundStatus = "PENDING"
	OutboundStatusFailed     OutboundStatus = "FAILED"
	OutboundStatusSent       OutboundStatus = "SENT"
	OutboundStatusDeadLetter OutboundStatus = "DEAD_LETTER"
)

// OutboundMessage is a queued notification with a bounded retry budget.
type OutboundMessage struct {
	ID             string
	TicketID       *string
	CustomerID     string
	Recipient      string
	Subject        string
	Body           string
	CorrelationKey string
	Status         OutboundStatus
	AttemptCount   int
	LastError      *string
	CreatedAt      time.Time
	SentAt         *time.Time
	DeadLetteredAt *time.Time
}

// MarkSent records a successful delivery.
func (m *OutboundMessage) MarkSent(at time.Time) {
	sentAt := at.UTC()
	m.Status = OutboundStatusSent
	m.SentAt = &sentAt
	m.LastError = nil
}

// MarkFailed records a failed delivery attempt.
func (m *OutboundMessage) MarkFailed(reason string) {
	m.Status = OutboundStatusFailed
	m.LastError = &reason
}

// MarkDeadLetter parks the message for manual recovery.
func (m *OutboundMessage) MarkDeadLetter(reason string, at time.Time) {
	deadAt := at.UTC()
	m.Status = OutboundStatusDeadLetter
	m.DeadLetteredAt = &deadAt
	m.LastError = &reason
}

// RetryFromDeadLetter revives a dead-lettered message, resetting its retry
// budget. Only valid from DEAD_LETTER.
func (m *OutboundMessage) RetryFromDeadLetter() error {
	if m.Status != OutboundStatusDeadLetter {
		return fmt.Errorf("cannot retry message in status %s, only %s", m.Status, OutboundStatusDeadLetter)
	}
	m.Status = OutboundStatusPending
	m.AttemptCount = 0
	m.LastError = nil
	m.DeadLetteredAt = nil
	return nil
}
