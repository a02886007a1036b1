package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/triage"
)

type triageFixture struct {
	tickets       *fakeTicketRepo
	messages      *fakeMessageRepo
	suggestions   *fakeSuggestionRepo
	policies      *fakePolicyRepo
	audit         *fakeAuditRepo
	outbound      *fakeOutboundRepo
	transport     *fakeTransport
	generator     *scriptedGenerator
	ticketSvc     *TicketService
	notifications *NotificationService
	triage        *TriageService
}

func newTriageFixture(t *testing.T, draft *triage.Draft) *triageFixture {
	t.Helper()
	f := &triageFixture{
		tickets:     newFakeTicketRepo(),
		messages:    newFakeMessageRepo(),
		suggestions: newFakeSuggestionRepo(),
		policies:    newFakePolicyRepo(),
		audit:       newFakeAuditRepo(),
		outbound:    newFakeOutboundRepo(),
		transport:   &fakeTransport{},
		generator:   &scriptedGenerator{draft: draft},
	}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	f.ticketSvc = NewTicketService(TicketDependencies{
		TicketRepo:  f.tickets,
		MessageRepo: f.messages,
		AuditRepo:   f.audit,
		Dispatcher:  dispatcher,
	})
	f.notifications = NewNotificationService(NotificationDependencies{
		OutboundRepo:  f.outbound,
		AuditRepo:     f.audit,
		Transport:     f.transport,
		Metrics:       observability.NewDeliveryMetrics(),
		Dispatcher:    dispatcher,
		Logger:        zap.NewNop(),
		MaxRetryCount: 3,
	})
	f.triage = NewTriageService(TriageDependencies{
		TicketRepo:     f.tickets,
		MessageRepo:    f.messages,
		SuggestionRepo: f.suggestions,
		PolicyRepo:     f.policies,
		ArticleRepo:    &fakeArticleRepo{},
		AuditRepo:      f.audit,
		Generator:      f.generator,
		TicketService:  f.ticketSvc,
		Notifications:  f.notifications,
		Dispatcher:     dispatcher,
		Logger:         zap.NewNop(),
	})
	return f
}

func agentAccess(customerID string) domain.AccessContext {
	return domain.AccessContext{UserID: "agent-1", Role: domain.RoleAgent, CustomerID: customerID}
}

func endUserAccess(customerID string) domain.AccessContext {
	return domain.AccessContext{UserID: "user-1", Role: domain.RoleEndUser, CustomerID: customerID}
}

func (f *triageFixture) createTicket(t *testing.T, subject, summary string) *domain.Ticket {
	t.Helper()
	ticket, err := f.ticketSvc.CreateTicket(context.Background(), endUserAccess("cust-1"), TicketCreateInput{
		Subject: subject,
		Summary: summary,
	})
	require.NoError(t, err)
	return ticket
}

func lowRiskDraft(confidence float64) *triage.Draft {
	return &triage.Draft{
		Category:      domain.CategoryAccess,
		Priority:      domain.TicketPriorityMedium,
		Risk:          domain.RiskLow,
		Confidence:    confidence,
		DraftResponse: "Please reset your password from the login page.",
		PromptHash:    "abc123",
		InputTokens:   40,
		OutputTokens:  12,
	}
}

func TestRunSuggestionDefaultPolicyHoldsForApproval(t *testing.T) {
	f := newTriageFixture(t, &triage.Draft{
		Category:      domain.CategoryServiceIncident,
		Priority:      domain.TicketPriorityHigh,
		Risk:          domain.RiskLow,
		Confidence:    0.83,
		DraftResponse: "We are investigating the outage.",
	})
	ticket := f.createTicket(t, "Everything is down", "complete outage since 09:00")

	result, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusPendingApproval, result.Status)
	assert.False(t, result.AutoResponseSent)
	assert.Equal(t, domain.CategoryServiceIncident, result.Category)

	// triage fields land on the ticket before any human confirmation
	stored, err := f.tickets.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryServiceIncident, stored.Category)
	assert.Equal(t, domain.TicketPriorityHigh, stored.Priority)

	// no message and no notification while pending
	msgs, _ := f.messages.ListByTicket(context.Background(), ticket.ID)
	assert.Empty(t, msgs)
	assert.Empty(t, f.outbound.byCorrelationKey("auto-reply:"+ticket.ID))
	assert.Equal(t, 1, f.audit.countAction("suggestion_created"))
}

func TestRunSuggestionAutoSendsUnderPermissivePolicy(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.78))
	require.NoError(t, f.policies.Upsert(context.Background(), &domain.CustomerAiPolicy{
		CustomerID:          "cust-1",
		Mode:                domain.AiModeAutoRespondLowRisk,
		ConfidenceThreshold: 0.20,
	}))
	ticket := f.createTicket(t, "Help me reset my password", "locked out of the portal")

	result, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusAutoSent, result.Status)
	assert.True(t, result.AutoResponseSent)

	// exactly one AI-sourced agent message lands on the thread
	msgs, _ := f.messages.ListByTicket(context.Background(), ticket.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.AuthorTypeAgent, msgs[0].AuthorType)
	assert.Equal(t, domain.SourceAI, msgs[0].Source)
	assert.Nil(t, msgs[0].AuthorID)

	queued := f.outbound.byCorrelationKey("auto-reply:" + ticket.ID)
	require.Len(t, queued, 1)
	assert.Equal(t, ticket.CreatorID, queued[0].Recipient)
	assert.Equal(t, 1, f.audit.countAction("auto_response_sent"))
}

func TestRunSuggestionRestrictedCategoryNeverAutoSends(t *testing.T) {
	f := newTriageFixture(t, &triage.Draft{
		Category:      domain.CategoryBillingDispute,
		Priority:      domain.TicketPriorityHigh,
		Risk:          domain.RiskLow,
		Confidence:    0.99,
		DraftResponse: "A billing specialist will review the charge.",
	})
	require.NoError(t, f.policies.Upsert(context.Background(), &domain.CustomerAiPolicy{
		CustomerID:          "cust-1",
		Mode:                domain.AiModeAutoRespondLowRisk,
		ConfidenceThreshold: 0.10,
	}))
	ticket := f.createTicket(t, "Wrong invoice", "charged twice")

	result, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusPendingApproval, result.Status)
	assert.False(t, result.AutoResponseSent)
	assert.Empty(t, f.outbound.byCorrelationKey("auto-reply:"+ticket.ID))
}

func TestRunSuggestionBelowThresholdHeld(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.60))
	require.NoError(t, f.policies.Upsert(context.Background(), &domain.CustomerAiPolicy{
		CustomerID:          "cust-1",
		Mode:                domain.AiModeAutoRespondLowRisk,
		ConfidenceThreshold: 0.75,
	}))
	ticket := f.createTicket(t, "login issue", "mfa broken")

	result, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusPendingApproval, result.Status)
}

func TestRunSuggestionInvalidStoredPolicyFallsBackToDefault(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.99))
	f.policies.policies["cust-1"] = domain.CustomerAiPolicy{
		CustomerID:          "cust-1",
		Mode:                domain.AiModeAutoRespondLowRisk,
		ConfidenceThreshold: 1.5,
	}
	ticket := f.createTicket(t, "login issue", "cannot sign in")

	// default policy is suggest-only, so nothing auto-sends
	result, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusPendingApproval, result.Status)
}

func TestRunSuggestionAllowedForEndUser(t *testing.T) {
	// running a suggestion needs only view access; manage is reserved for
	// approve/discard
	f := newTriageFixture(t, lowRiskDraft(0.9))
	ticket := f.createTicket(t, "Help", "cannot sign in")

	result, err := f.triage.RunSuggestion(context.Background(), endUserAccess("cust-1"), ticket.ID, "ticket_created")
	require.NoError(t, err)
	assert.Equal(t, domain.SuggestionStatusPendingApproval, result.Status)
}

func TestRunSuggestionEnforcesTenantBoundary(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.9))
	ticket := f.createTicket(t, "login issue", "cannot sign in")

	_, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-2"), ticket.ID, "manual")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another customer")
}

func TestApproveSuggestionSendsDraft(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.9))
	ticket := f.createTicket(t, "login issue", "cannot sign in")
	_, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)

	result, err := f.triage.ApproveSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.SuggestionStatusApproved, result.Status)

	msgs, _ := f.messages.ListByTicket(context.Background(), ticket.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.SourceAI, msgs[0].Source)
	require.NotNil(t, msgs[0].AuthorID)
	assert.Equal(t, "agent-1", *msgs[0].AuthorID)

	suggestions, _ := f.suggestions.ListByTicket(context.Background(), ticket.ID)
	require.Len(t, suggestions, 1)
	queued := f.outbound.byCorrelationKey("approved-reply:" + suggestions[0].ID)
	assert.Len(t, queued, 1)
}

func TestApproveSuggestionWithEditedText(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.9))
	ticket := f.createTicket(t, "login issue", "cannot sign in")
	_, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)

	edited := "  Here is a hand-tuned reply.  "
	result, err := f.triage.ApproveSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, &edited)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Here is a hand-tuned reply.", result.DraftResponse)

	msgs, _ := f.messages.ListByTicket(context.Background(), ticket.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Here is a hand-tuned reply.", msgs[0].Body)
}

func TestApproveWithoutPendingSuggestionIsNoOp(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.9))
	ticket := f.createTicket(t, "login issue", "cannot sign in")

	result, err := f.triage.ApproveSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestApproveRequiresManageCapability(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.9))
	ticket := f.createTicket(t, "login issue", "cannot sign in")
	_, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)

	_, err = f.triage.ApproveSuggestion(context.Background(), endUserAccess("cust-1"), ticket.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manage capability")
}

func TestDiscardSuggestion(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.9))
	ticket := f.createTicket(t, "login issue", "cannot sign in")
	_, err := f.triage.RunSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID, "manual")
	require.NoError(t, err)

	result, err := f.triage.DiscardSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.SuggestionStatusDiscarded, result.Status)

	// a discard leaves no trace on the thread or the queue
	msgs, _ := f.messages.ListByTicket(context.Background(), ticket.ID)
	assert.Empty(t, msgs)
	assert.Empty(t, f.outbound.byCorrelationKey("auto-reply:"+ticket.ID))

	// the suggestion is no longer pending
	again, err := f.triage.DiscardSuggestion(context.Background(), agentAccess("cust-1"), ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestSetPolicyValidation(t *testing.T) {
	f := newTriageFixture(t, lowRiskDraft(0.9))

	err := f.triage.SetPolicy(context.Background(), agentAccess("cust-1"), domain.CustomerAiPolicy{
		CustomerID:          "cust-1",
		Mode:                domain.AiModeAutoRespondLowRisk,
		ConfidenceThreshold: 1.4,
	})
	require.Error(t, err)

	err = f.triage.SetPolicy(context.Background(), agentAccess("cust-1"), domain.CustomerAiPolicy{
		CustomerID:          "cust-1",
		Mode:                domain.AiModeAutoRespondLowRisk,
		ConfidenceThreshold: 0.5,
	})
	require.NoError(t, err)

	err = f.triage.SetPolicy(context.Background(), agentAccess("cust-2"), domain.CustomerAiPolicy{
		CustomerID:          "cust-1",
		Mode:                domain.AiModeSuggestOnly,
		ConfidenceThreshold: 0.5,
	})
	require.Error(t, err)
}
