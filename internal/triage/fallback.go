package triage

import (
	"context"
	"strings"

	"github.com/spec-kit/triage-service/internal/domain"
)

// fallbackRule matches keywords against concatenated message bodies. Rules are
// evaluated in order; the first match wins.
type fallbackRule struct {
	keywords   []string
	category   string
	priority   domain.TicketPriority
	risk       domain.RiskLevel
	confidence float64
}

var fallbackRules = []fallbackRule{
	{
		keywords:   []string{"access", "login", "mfa", "password", "reset"},
		category:   domain.CategoryAccess,
		priority:   domain.TicketPriorityMedium,
		risk:       domain.RiskLow,
		confidence: 0.78,
	},
	{
		keywords:   []string{"down", "outage", "offline"},
		category:   domain.CategoryServiceIncident,
		priority:   domain.TicketPriorityHigh,
		risk:       domain.RiskLow,
		confidence: 0.83,
	},
	{
		keywords:   []string{"billing", "invoice"},
		category:   domain.CategoryBillingDispute,
		priority:   domain.TicketPriorityHigh,
		risk:       domain.RiskHigh,
		confidence: 0.66,
	},
	{
		keywords:   []string{"security", "breach", "phish", "legal"},
		category:   domain.CategorySecurityIncident,
		priority:   domain.TicketPriorityCritical,
		risk:       domain.RiskHigh,
		confidence: 0.61,
	},
}

var cannedResponses = map[string]string{
	domain.CategoryAccess:           "Thanks for reaching out. It looks like you are having trouble signing in. Please try resetting your password from the login page; if multi-factor prompts are failing, we can re-provision your device. An agent will confirm shortly.",
	domain.CategoryServiceIncident:  "Thanks for the report. We are treating this as a possible service incident and have alerted the on-call team. We will post updates here as soon as we know more.",
	domain.CategoryBillingDispute:   "Thanks for flagging this billing concern. A billing specialist will review the charge and respond with a detailed breakdown. No payment action is needed from you right now.",
	domain.CategorySecurityIncident: "Thank you for reporting this. We take potential security issues seriously and have escalated your report to our security team for immediate review. Please do not share further details over email.",
	domain.CategoryLegalRequest:     "Thank you for your message. Requests of this nature are routed to our compliance team, who will respond through the appropriate channel. We have logged your request with high priority.",
	domain.CategoryGeneralRequest:   "Thanks for contacting support. We have logged your request and an agent will follow up shortly. If you have additional details that could help us resolve this faster, please reply to this message.",
}

// heuristicFallback is the deterministic, total strategy: it always produces a
// draft and never returns an error.
type heuristicFallback struct{}

func newHeuristicFallback() *heuristicFallback {
	return &heuristicFallback{}
}

func (f *heuristicFallback) Generate(_ context.Context, input Input) (*Draft, error) {
	prompt := buildPrompt(input)

	corpus := strings.ToLower(input.Subject + "\n" + input.Summary)
	for _, msg := range input.Messages {
		corpus += "\n" + strings.ToLower(msg.Body)
	}

	draft := &Draft{
		Category:    domain.CategoryGeneralRequest,
		Priority:    domain.TicketPriorityMedium,
		Risk:        domain.RiskLow,
		Confidence:  0.78,
		PromptHash:  promptHash(prompt),
		InputTokens: estimateTokens(prompt),
	}

	for _, rule := range fallbackRules {
		if !containsAny(corpus, rule.keywords) {
			continue
		}
		draft.Category = rule.category
		draft.Priority = rule.priority
		draft.Risk = rule.risk
		draft.Confidence = rule.confidence
		// security keywords route to LegalRequest when "legal" is present
		if rule.category == domain.CategorySecurityIncident && strings.Contains(corpus, "legal") {
			draft.Category = domain.CategoryLegalRequest
		}
		break
	}

	draft.DraftResponse = cannedResponse(draft.Category)
	draft.OutputTokens = estimateTokens(draft.DraftResponse)
	return draft, nil
}

// cannedResponse returns the template for a category, defaulting to the
// general template for categories without one.
func cannedResponse(category string) string {
	if response, ok := cannedResponses[category]; ok {
		return response
	}
	return cannedResponses[domain.CategoryGeneralRequest]
}

func containsAny(corpus string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(corpus, keyword) {
			return true
		}
	}
	return false
}
