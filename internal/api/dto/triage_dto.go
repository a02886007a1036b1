package dto

import (
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/service"
)

// RunSuggestionRequest payload.
type RunSuggestionRequest struct {
	Trigger string `json:"trigger"`
}

// ApproveSuggestionRequest payload. EditedText, when present, replaces the
// drafted response body before sending.
type ApproveSuggestionRequest struct {
	EditedText *string `json:"edited_text"`
}

// SetPolicyRequest payload.
type SetPolicyRequest struct {
	CustomerID          string        `json:"customer_id"`
	Mode                domain.AiMode `json:"mode"`
	ConfidenceThreshold float64       `json:"confidence_threshold"`
}

// SuggestionResponse is the outcome of a triage operation.
type SuggestionResponse struct {
	TicketID         string                  `json:"ticket_id"`
	Category         string                  `json:"category"`
	Priority         domain.TicketPriority   `json:"priority"`
	DraftResponse    string                  `json:"draft_response"`
	Risk             domain.RiskLevel        `json:"risk"`
	Confidence       float64                 `json:"confidence"`
	Status           domain.SuggestionStatus `json:"status"`
	AutoResponseSent bool                    `json:"auto_response_sent"`
}

// NewSuggestionResponse maps a service result.
func NewSuggestionResponse(result *service.SuggestionResult) SuggestionResponse {
	return SuggestionResponse{
		TicketID:         result.TicketID,
		Category:         result.Category,
		Priority:         result.Priority,
		DraftResponse:    result.DraftResponse,
		Risk:             result.Risk,
		Confidence:       result.Confidence,
		Status:           result.Status,
		AutoResponseSent: result.AutoResponseSent,
	}
}
