package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Channel  domain.TicketChannel  `json:"channel"`
	Subject  string                `json:"subject"`
	Summary  string                `json:"summary"`
	Priority domain.TicketPriority `json:"priority"`
}

// AddMessageRequest payload.
type AddMessageRequest struct {
	Body string `json:"body"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status  domain.TicketStatus `json:"status"`
	Comment string              `json:"comment"`
}

// TicketSummary response.
type TicketSummary struct {
	ID            string                `json:"id"`
	ReferenceCode string                `json:"reference_code"`
	CustomerID    string                `json:"customer_id"`
	Channel       domain.TicketChannel  `json:"channel"`
	Status        domain.TicketStatus   `json:"status"`
	Priority      domain.TicketPriority `json:"priority"`
	Category      string                `json:"category"`
	Subject       string                `json:"subject"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
	ResolvedAt    *time.Time            `json:"resolved_at,omitempty"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID         string                   `json:"id"`
	TicketID   string                   `json:"ticket_id"`
	AuthorType domain.MessageAuthorType `json:"author_type"`
	AuthorID   *string                  `json:"author_id,omitempty"`
	Source     domain.MessageSource     `json:"source"`
	Body       string                   `json:"body"`
	CreatedAt  time.Time                `json:"created_at"`
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(ticket *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            ticket.ID,
		ReferenceCode: ticket.ReferenceCode,
		CustomerID:    ticket.CustomerID,
		Channel:       ticket.Channel,
		Status:        ticket.Status,
		Priority:      ticket.Priority,
		Category:      ticket.Category,
		Subject:       ticket.Subject,
		CreatedAt:     ticket.CreatedAt,
		UpdatedAt:     ticket.UpdatedAt,
		ResolvedAt:    ticket.ResolvedAt,
	}
}

// NewTicketMessageResponse maps a domain message.
func NewTicketMessageResponse(msg *domain.TicketMessage) TicketMessageResponse {
	return TicketMessageResponse{
		ID:         msg.ID,
		TicketID:   msg.TicketID,
		AuthorType: msg.AuthorType,
		AuthorID:   msg.AuthorID,
		Source:     msg.Source,
		Body:       msg.Body,
		CreatedAt:  msg.CreatedAt,
	}
}
