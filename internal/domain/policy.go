package domain

import (
	"fmt"
	"time"
)

// AiMode controls whether suggestions may be sent without human review.
type AiMode string

const (
	AiModeSuggestOnly        AiMode = "SUGGEST_ONLY"
	AiModeAutoRespondLowRisk AiMode = "AUTO_RESPOND_LOW_RISK"
)

// CustomerAiPolicy is the per-tenant automation policy.
type CustomerAiPolicy struct {
	CustomerID          string
	Mode                AiMode
	ConfidenceThreshold float64
	UpdatedAt           time.Time
}

// DefaultAiPolicy applies when a customer has no stored policy.
func DefaultAiPolicy(customerID string) CustomerAiPolicy {
	return CustomerAiPolicy{
		CustomerID:          customerID,
		Mode:                AiModeSuggestOnly,
		ConfidenceThreshold: 0.75,
	}
}

// Validate checks policy invariants.
func (p CustomerAiPolicy) Validate() error {
	if p.Mode != AiModeSuggestOnly && p.Mode != AiModeAutoRespondLowRisk {
		return fmt.Errorf("unknown ai mode %q", p.Mode)
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v out of range [0,1]", p.ConfidenceThreshold)
	}
	return nil
}

// AllowsAutoSend decides whether a suggestion may be sent without approval.
// Restricted categories are excluded regardless of confidence.
func (p CustomerAiPolicy) AllowsAutoSend(risk RiskLevel, confidence float64, category string) bool {
	if p.Mode != AiModeAutoRespondLowRisk {
		return false
	}
	if risk != RiskLow {
		return false
	}
	if confidence < p.ConfidenceThreshold {
		return false
	}
	return !IsRestrictedCategory(category)
}
