package triage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/triage-service/internal/domain"
)

func TestFallbackClassification(t *testing.T) {
	cases := []struct {
		name       string
		subject    string
		summary    string
		category   string
		priority   domain.TicketPriority
		risk       domain.RiskLevel
		confidence float64
	}{
		{"login trouble", "Cannot login", "MFA code rejected", domain.CategoryAccess, domain.TicketPriorityMedium, domain.RiskLow, 0.78},
		{"password reset", "Help", "please reset my password", domain.CategoryAccess, domain.TicketPriorityMedium, domain.RiskLow, 0.78},
		{"outage report", "API down", "the whole service seems offline", domain.CategoryServiceIncident, domain.TicketPriorityHigh, domain.RiskLow, 0.83},
		{"invoice question", "Double billing", "charged twice on the last invoice", domain.CategoryBillingDispute, domain.TicketPriorityHigh, domain.RiskHigh, 0.66},
		{"phishing report", "Suspicious email", "looks like a phishing attempt", domain.CategorySecurityIncident, domain.TicketPriorityCritical, domain.RiskHigh, 0.61},
		{"legal request", "Subpoena", "legal counsel requests records", domain.CategoryLegalRequest, domain.TicketPriorityCritical, domain.RiskHigh, 0.61},
		{"no keywords", "Feature question", "how do I export a report", domain.CategoryGeneralRequest, domain.TicketPriorityMedium, domain.RiskLow, 0.78},
	}

	fallback := newHeuristicFallback()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft, err := fallback.Generate(context.Background(), Input{Subject: tc.subject, Summary: tc.summary})
			require.NoError(t, err)
			assert.Equal(t, tc.category, draft.Category)
			assert.Equal(t, tc.priority, draft.Priority)
			assert.Equal(t, tc.risk, draft.Risk)
			assert.Equal(t, tc.confidence, draft.Confidence)
			assert.NotEmpty(t, draft.DraftResponse)
			assert.NotEmpty(t, draft.PromptHash)
			assert.Greater(t, draft.InputTokens, 0)
			assert.Greater(t, draft.OutputTokens, 0)
		})
	}
}

func TestFallbackFirstMatchWins(t *testing.T) {
	// Both access and billing keywords present; the access rule is earlier.
	draft, err := newHeuristicFallback().Generate(context.Background(), Input{
		Subject: "login issue after invoice update",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryAccess, draft.Category)
}

func TestFallbackScansMessageBodies(t *testing.T) {
	draft, err := newHeuristicFallback().Generate(context.Background(), Input{
		Subject: "Follow up",
		Messages: []domain.TicketMessage{
			{Body: "Everything went offline an hour ago"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryServiceIncident, draft.Category)
}

func TestFallbackIsCaseInsensitive(t *testing.T) {
	draft, err := newHeuristicFallback().Generate(context.Background(), Input{Subject: "OUTAGE in eu-west"})
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryServiceIncident, draft.Category)
}
