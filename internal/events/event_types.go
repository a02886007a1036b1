package events

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventSuggestionCreated   EventType = "suggestion_created"
	EventSuggestionResolved  EventType = "suggestion_resolved"
	EventAutoResponseSent    EventType = "auto_response_sent"
	EventMessageDeadLettered EventType = "message_dead_lettered"
	EventDeadLettersRequeued EventType = "dead_letters_requeued"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type   domain.MessageAuthorType `json:"type"`
	UserID *string                  `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	TicketID   string      `json:"ticket_id,omitempty"`
	CustomerID string      `json:"customer_id"`
	Actor      Actor       `json:"actor"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Channel  domain.TicketChannel  `json:"channel"`
	Priority domain.TicketPriority `json:"priority"`
	Subject  string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string                   `json:"message_id"`
	AuthorType  domain.MessageAuthorType `json:"author_type"`
	Source      domain.MessageSource     `json:"source"`
	BodyPreview string                   `json:"body_preview"`
}

// SuggestionCreatedPayload payload.
type SuggestionCreatedPayload struct {
	SuggestionID string                  `json:"suggestion_id"`
	Category     string                  `json:"category"`
	Priority     domain.TicketPriority   `json:"priority"`
	Risk         domain.RiskLevel        `json:"risk"`
	Confidence   float64                 `json:"confidence"`
	Status       domain.SuggestionStatus `json:"status"`
}

// SuggestionResolvedPayload payload for approve/discard.
type SuggestionResolvedPayload struct {
	SuggestionID string                  `json:"suggestion_id"`
	Status       domain.SuggestionStatus `json:"status"`
}

// AutoResponseSentPayload payload.
type AutoResponseSentPayload struct {
	SuggestionID   string  `json:"suggestion_id"`
	CorrelationKey string  `json:"correlation_key"`
	Confidence     float64 `json:"confidence"`
}

// MessageDeadLetteredPayload payload.
type MessageDeadLetteredPayload struct {
	MessageID    string `json:"message_id"`
	AttemptCount int    `json:"attempt_count"`
	LastError    string `json:"last_error"`
}

// DeadLettersRequeuedPayload payload.
type DeadLettersRequeuedPayload struct {
	Count int `json:"count"`
}
