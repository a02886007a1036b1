package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/observability"
)

// RetryDeadLettersRequest payload.
type RetryDeadLettersRequest struct {
	Take int `json:"take"`
}

// RetryDeadLettersResponse reports how many messages were requeued.
type RetryDeadLettersResponse struct {
	Requeued int `json:"requeued"`
}

// OutboundMessageResponse represents a queued notification.
type OutboundMessageResponse struct {
	ID             string                `json:"id"`
	TicketID       *string               `json:"ticket_id,omitempty"`
	CustomerID     string                `json:"customer_id"`
	Recipient      string                `json:"recipient"`
	Subject        string                `json:"subject"`
	CorrelationKey string                `json:"correlation_key"`
	Status         domain.OutboundStatus `json:"status"`
	AttemptCount   int                   `json:"attempt_count"`
	LastError      *string               `json:"last_error,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	SentAt         *time.Time            `json:"sent_at,omitempty"`
	DeadLetteredAt *time.Time            `json:"dead_lettered_at,omitempty"`
}

// DeliveryMetricsResponse exposes delivery counters.
type DeliveryMetricsResponse struct {
	Sent         int64 `json:"sent"`
	Failed       int64 `json:"failed"`
	DeadLettered int64 `json:"dead_lettered"`
	QueueDepth   int64 `json:"queue_depth"`
}

// NewOutboundMessageResponse maps a domain message.
func NewOutboundMessageResponse(msg *domain.OutboundMessage) OutboundMessageResponse {
	return OutboundMessageResponse{
		ID:             msg.ID,
		TicketID:       msg.TicketID,
		CustomerID:     msg.CustomerID,
		Recipient:      msg.Recipient,
		Subject:        msg.Subject,
		CorrelationKey: msg.CorrelationKey,
		Status:         msg.Status,
		AttemptCount:   msg.AttemptCount,
		LastError:      msg.LastError,
		CreatedAt:      msg.CreatedAt,
		SentAt:         msg.SentAt,
		DeadLetteredAt: msg.DeadLetteredAt,
	}
}

// NewOutboundMessageList maps a slice of domain messages.
func NewOutboundMessageList(msgs []domain.OutboundMessage) []OutboundMessageResponse {
	out := make([]OutboundMessageResponse, 0, len(msgs))
	for i := range msgs {
		out = append(out, NewOutboundMessageResponse(&msgs[i]))
	}
	return out
}

// NewDeliveryMetricsResponse maps a metrics snapshot.
func NewDeliveryMetricsResponse(snap observability.DeliverySnapshot) DeliveryMetricsResponse {
	return DeliveryMetricsResponse{
		Sent:         snap.Sent,
		Failed:       snap.Failed,
		DeadLettered: snap.DeadLettered,
		QueueDepth:   snap.QueueDepth,
	}
}
