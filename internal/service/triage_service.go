package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	"github.com/spec-kit/triage-service/internal/triage"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

const (
	recentMessageLimit = 12
	articleLimit       = 3
)

// SuggestionGenerator is the composed, total generator consumed by the triage
// service.
type SuggestionGenerator interface {
	Generate(ctx context.Context, input triage.Input) *triage.Draft
}

// TriageService runs suggestion generation, applies the per-tenant policy gate
// and owns the suggestion lifecycle.
type TriageService struct {
	tickets       repository.TicketRepository
	messages      repository.TicketMessageRepository
	suggestions   repository.SuggestionRepository
	policies      repository.PolicyRepository
	articles      repository.KnowledgeArticleRepository
	audit         repository.AuditRepository
	generator     SuggestionGenerator
	ticketSvc     *TicketService
	notifications *NotificationService
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// TriageDependencies bundles collaborators for the triage service.
type TriageDependencies struct {
	TicketRepo     repository.TicketRepository
	MessageRepo    repository.TicketMessageRepository
	SuggestionRepo repository.SuggestionRepository
	PolicyRepo     repository.PolicyRepository
	ArticleRepo    repository.KnowledgeArticleRepository
	AuditRepo      repository.AuditRepository
	Generator      SuggestionGenerator
	TicketService  *TicketService
	Notifications  *NotificationService
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// SuggestionResult is the caller-facing outcome of a triage operation.
type SuggestionResult struct {
	TicketID         string
	Category         string
	Priority         domain.TicketPriority
	DraftResponse    string
	Risk             domain.RiskLevel
	Confidence       float64
	Status           domain.SuggestionStatus
	AutoResponseSent bool
}

// NewTriageService constructs the service.
func NewTriageService(deps TriageDependencies) *TriageService {
	return &TriageService{
		tickets:       deps.TicketRepo,
		messages:      deps.MessageRepo,
		suggestions:   deps.SuggestionRepo,
		policies:      deps.PolicyRepo,
		articles:      deps.ArticleRepo,
		audit:         deps.AuditRepo,
		generator:     deps.Generator,
		ticketSvc:     deps.TicketService,
		notifications: deps.Notifications,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// RunSuggestion derives a machine-generated suggestion for a ticket and
// applies the tenant policy to decide between auto-send and held-for-approval.
// Generative-backend failures never surface: the composed generator is total.
func (s *TriageService) RunSuggestion(ctx context.Context, access domain.AccessContext, ticketID, trigger string) (*SuggestionResult, error) {
	ticket, err := s.loadTicket(ctx, access, ticketID)
	if err != nil {
		return nil, err
	}

	recent, err := s.messages.ListRecent(ctx, ticket.ID, recentMessageLimit)
	if err != nil {
		return nil, err
	}
	articles, err := s.articles.ListRelevant(ctx, ticket.CustomerID, ticket.Category, articleLimit)
	if err != nil {
		return nil, err
	}

	draft := s.generator.Generate(ctx, triage.Input{
		Subject:  ticket.Subject,
		Summary:  ticket.Summary,
		Messages: recent,
		Articles: articles,
	})

	policy := s.policyFor(ctx, ticket.CustomerID)
	// evaluated once, before persisting
	autoSend := policy.AllowsAutoSend(draft.Risk, draft.Confidence, draft.Category)

	suggestion := &domain.Suggestion{
		TicketID:      ticket.ID,
		DraftResponse: draft.DraftResponse,
		Category:      draft.Category,
		Priority:      draft.Priority,
		Risk:          draft.Risk,
		Confidence:    draft.Confidence,
		Status:        domain.SuggestionStatusPendingApproval,
		PromptHash:    draft.PromptHash,
		InputTokens:   draft.InputTokens,
		OutputTokens:  draft.OutputTokens,
	}
	if autoSend {
		suggestion.Status = domain.SuggestionStatusAutoSent
	}
	if err := s.suggestions.Create(ctx, suggestion); err != nil {
		return nil, err
	}

	// triage fields are overwritten immediately, before human confirmation
	ticket.Category = draft.Category
	ticket.Priority = draft.Priority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	if autoSend {
		if err := s.sendDraft(ctx, ticket, suggestion, nil, autoReplyCorrelationKey(ticket.ID)); err != nil {
			return nil, err
		}
		s.writeAudit(ctx, ticket, nil, "auto_response_sent", suggestion, map[string]any{"trigger": trigger})
		s.publishEvent(ctx, ticket, events.EventAutoResponseSent, events.AutoResponseSentPayload{
			SuggestionID:   suggestion.ID,
			CorrelationKey: autoReplyCorrelationKey(ticket.ID),
			Confidence:     suggestion.Confidence,
		})
	} else {
		s.writeAudit(ctx, ticket, nil, "suggestion_created", suggestion, map[string]any{"trigger": trigger})
		s.publishEvent(ctx, ticket, events.EventSuggestionCreated, events.SuggestionCreatedPayload{
			SuggestionID: suggestion.ID,
			Category:     suggestion.Category,
			Priority:     suggestion.Priority,
			Risk:         suggestion.Risk,
			Confidence:   suggestion.Confidence,
			Status:       suggestion.Status,
		})
	}

	return resultFor(ticket.ID, suggestion, autoSend), nil
}

// ApproveSuggestion approves the most-recently-created pending suggestion for
// the ticket, optionally overriding the draft text. A ticket without a pending
// suggestion yields a nil result, not an error.
func (s *TriageService) ApproveSuggestion(ctx context.Context, access domain.AccessContext, ticketID string, editedText *string) (*SuggestionResult, error) {
	ticket, suggestion, err := s.loadPending(ctx, access, ticketID)
	if err != nil || suggestion == nil {
		return nil, err
	}

	if editedText != nil && strings.TrimSpace(*editedText) != "" {
		suggestion.DraftResponse = strings.TrimSpace(*editedText)
	}
	suggestion.Status = domain.SuggestionStatusApproved
	approver := access.UserID
	suggestion.ProcessedBy = &approver
	if err := s.suggestions.Update(ctx, suggestion); err != nil {
		return nil, err
	}

	if err := s.sendDraft(ctx, ticket, suggestion, &approver, approvedReplyCorrelationKey(suggestion.ID)); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, ticket, &approver, "suggestion_approved", suggestion, map[string]any{
		"edited": editedText != nil,
	})
	s.publishEvent(ctx, ticket, events.EventSuggestionResolved, events.SuggestionResolvedPayload{
		SuggestionID: suggestion.ID,
		Status:       suggestion.Status,
	})
	return resultFor(ticket.ID, suggestion, false), nil
}

// DiscardSuggestion discards the most-recently-created pending suggestion.
// Like approval, a missing pending suggestion yields a nil result.
func (s *TriageService) DiscardSuggestion(ctx context.Context, access domain.AccessContext, ticketID string) (*SuggestionResult, error) {
	ticket, suggestion, err := s.loadPending(ctx, access, ticketID)
	if err != nil || suggestion == nil {
		return nil, err
	}

	suggestion.Status = domain.SuggestionStatusDiscarded
	operator := access.UserID
	suggestion.ProcessedBy = &operator
	if err := s.suggestions.Update(ctx, suggestion); err != nil {
		return nil, err
	}

	s.writeAudit(ctx, ticket, &operator, "suggestion_discarded", suggestion, nil)
	s.publishEvent(ctx, ticket, events.EventSuggestionResolved, events.SuggestionResolvedPayload{
		SuggestionID: suggestion.ID,
		Status:       suggestion.Status,
	})
	return resultFor(ticket.ID, suggestion, false), nil
}

func (s *TriageService) loadTicket(ctx context.Context, access domain.AccessContext, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	if !access.CanView(ticket.CustomerID) {
		return nil, apperrors.NewForbidden("ticket belongs to another customer")
	}
	return ticket, nil
}

// loadPending resolves the ticket and its active pending suggestion. The
// manage capability is checked before the suggestion lookup so tenant
// violations always surface.
func (s *TriageService) loadPending(ctx context.Context, access domain.AccessContext, ticketID string) (*domain.Ticket, *domain.Suggestion, error) {
	ticket, err := s.loadTicket(ctx, access, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanManage(ticket.CustomerID) {
		return nil, nil, apperrors.NewForbidden("manage capability required")
	}
	suggestion, err := s.suggestions.GetLatestPending(ctx, ticket.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ticket, nil, nil
		}
		return nil, nil, err
	}
	return ticket, suggestion, nil
}

// sendDraft appends the draft as an AI-sourced agent message and enqueues the
// outbound notification to the ticket creator.
func (s *TriageService) sendDraft(ctx context.Context, ticket *domain.Ticket, suggestion *domain.Suggestion, authorID *string, correlationKey string) error {
	if _, err := s.ticketSvc.AppendMessage(ctx, ticket, MessageInput{
		AuthorType: domain.AuthorTypeAgent,
		AuthorID:   authorID,
		Source:     domain.SourceAI,
		Body:       suggestion.DraftResponse,
	}); err != nil {
		return err
	}

	ticketID := ticket.ID
	_, err := s.notifications.Enqueue(ctx, EnqueueInput{
		CustomerID:     ticket.CustomerID,
		TicketID:       &ticketID,
		Recipient:      ticket.CreatorID,
		Subject:        "Re: " + ticket.Subject,
		Body:           suggestion.DraftResponse,
		CorrelationKey: correlationKey,
	})
	return err
}

func (s *TriageService) policyFor(ctx context.Context, customerID string) domain.CustomerAiPolicy {
	policy, err := s.policies.GetByCustomer(ctx, customerID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("policy lookup failed, using default", zap.Error(err))
		}
		return domain.DefaultAiPolicy(customerID)
	}
	if err := policy.Validate(); err != nil {
		s.logger.Warn("stored policy invalid, using default", zap.Error(err))
		return domain.DefaultAiPolicy(customerID)
	}
	return *policy
}

// SetPolicy validates and stores a customer's automation policy.
func (s *TriageService) SetPolicy(ctx context.Context, access domain.AccessContext, policy domain.CustomerAiPolicy) error {
	if !access.CanManage(policy.CustomerID) {
		return apperrors.NewForbidden("manage capability required")
	}
	if err := policy.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	return s.policies.Upsert(ctx, &policy)
}

func (s *TriageService) writeAudit(ctx context.Context, ticket *domain.Ticket, actorID *string, action string, suggestion *domain.Suggestion, extra map[string]any) {
	payload := map[string]any{
		"suggestion_id": suggestion.ID,
		"category":      suggestion.Category,
		"priority":      suggestion.Priority,
		"risk":          suggestion.Risk,
		"confidence":    suggestion.Confidence,
		"status":        suggestion.Status,
		"prompt_hash":   suggestion.PromptHash,
	}
	for k, v := range extra {
		payload[k] = v
	}
	actorType := domain.AuthorTypeSystem
	if actorID != nil {
		actorType = domain.AuthorTypeAgent
	}
	_ = s.audit.Create(ctx, &domain.AuditRecord{
		CustomerID: ticket.CustomerID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		EntityKind: "suggestion",
		EntityID:   suggestion.ID,
		Payload:    payload,
	})
}

func (s *TriageService) publishEvent(ctx context.Context, ticket *domain.Ticket, eventType events.EventType, payload any) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketID:   ticket.ID,
		CustomerID: ticket.CustomerID,
		Actor:      events.Actor{Type: domain.AuthorTypeSystem},
		Timestamp:  time.Now(),
		Payload:    payload,
	})
}

func resultFor(ticketID string, suggestion *domain.Suggestion, autoSent bool) *SuggestionResult {
	return &SuggestionResult{
		TicketID:         ticketID,
		Category:         suggestion.Category,
		Priority:         suggestion.Priority,
		DraftResponse:    suggestion.DraftResponse,
		Risk:             suggestion.Risk,
		Confidence:       suggestion.Confidence,
		Status:           suggestion.Status,
		AutoResponseSent: autoSent,
	}
}

func autoReplyCorrelationKey(ticketID string) string {
	return "auto-reply:" + ticketID
}

func approvedReplyCorrelationKey(suggestionID string) string {
	return "approved-reply:" + suggestionID
}
