package domain

import (
	"strings"
	"time"
)

// SuggestionStatus enumerates disposition states for AI suggestions.
type SuggestionStatus string

const (
	SuggestionStatusPendingApproval SuggestionStatus = "PENDING_APPROVAL"
	SuggestionStatusApproved        SuggestionStatus = "APPROVED"
	SuggestionStatusAutoSent        SuggestionStatus = "AUTO_SENT"
	SuggestionStatusDiscarded       SuggestionStatus = "DISCARDED"
)

// RiskLevel is the coarse classification gating automatic actions.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Canonical triage categories produced by the generator.
const (
	CategoryAccess           = "Access"
	CategoryServiceIncident  = "ServiceIncident"
	CategoryBillingDispute   = "BillingDispute"
	CategorySecurityIncident = "SecurityIncident"
	CategoryLegalRequest     = "LegalRequest"
	CategoryGeneralRequest   = "GeneralRequest"
)

// restrictedCategories never auto-send regardless of confidence.
var restrictedCategories = map[string]struct{}{
	CategorySecurityIncident: {},
	CategoryBillingDispute:   {},
	CategoryLegalRequest:     {},
}

// IsRestrictedCategory reports whether the category is excluded from auto-send.
func IsRestrictedCategory(category string) bool {
	_, restricted := restrictedCategories[category]
	return restricted
}

// Suggestion is an AI-produced recommendation for a ticket awaiting disposition.
type Suggestion struct {
	ID            string
	TicketID      string
	DraftResponse string
	Category      string
	Priority      TicketPriority
	Risk          RiskLevel
	Confidence    float64
	Status        SuggestionStatus
	ProcessedBy   *string
	PromptHash    string
	InputTokens   int
	OutputTokens  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NormalizeRisk maps arbitrary casing to a canonical risk level. Unrecognized
// values default to LOW.
func NormalizeRisk(raw string) RiskLevel {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "LOW":
		return RiskLow
	case "MEDIUM":
		return RiskMedium
	case "HIGH":
		return RiskHigh
	default:
		return RiskLow
	}
}
