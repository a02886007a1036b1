package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

// TicketService coordinates ticket workflows: intake, messaging and the
// guarded status state machine.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	AuditRepo   repository.AuditRepository
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Channel  domain.TicketChannel
	Subject  string
	Summary  string
	Priority domain.TicketPriority
}

// MessageInput describes a message to append to a ticket thread.
type MessageInput struct {
	AuthorType domain.MessageAuthorType
	AuthorID   *string
	Source     domain.MessageSource
	Body       string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket creates a ticket within the caller's tenant.
func (s *TicketService) CreateTicket(ctx context.Context, access domain.AccessContext, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject required", nil)
	}

	ticket := &domain.Ticket{
		CustomerID:    access.CustomerID,
		CreatorID:     access.UserID,
		Channel:       input.Channel,
		Status:        domain.TicketStatusNew,
		Priority:      input.Priority,
		Category:      domain.CategoryGeneralRequest,
		Subject:       subject,
		Summary:       strings.TrimSpace(input.Summary),
		ReferenceCode: generateReferenceCode(),
	}
	if ticket.Channel == "" {
		ticket.Channel = domain.ChannelPortal
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, access, "ticket_created", "ticket", ticket.ID, map[string]any{
		"subject":  ticket.Subject,
		"channel":  ticket.Channel,
		"priority": ticket.Priority,
	})
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTicketCreated,
		TicketID:   ticket.ID,
		CustomerID: ticket.CustomerID,
		Actor:      actorFor(access),
		Payload: events.TicketCreatedPayload{
			Channel:  ticket.Channel,
			Priority: ticket.Priority,
			Subject:  ticket.Subject,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket enforcing the tenant boundary.
func (s *TicketService) GetTicket(ctx context.Context, access domain.AccessContext, ticketID string) (*domain.Ticket, error) {
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

// ListTickets returns tickets visible to the caller.
func (s *TicketService) ListTickets(ctx context.Context, access domain.AccessContext, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	}
	if access.Role != domain.RolePlatformOperator {
		customerID := access.CustomerID
		filter.CustomerID = &customerID
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// ListMessages returns the full thread for a ticket.
func (s *TicketService) ListMessages(ctx context.Context, access domain.AccessContext, ticketID string) ([]domain.TicketMessage, error) {
	if _, err := s.GetTicket(ctx, access, ticketID); err != nil {
		return nil, err
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

// AddMessage appends a caller-authored message to a ticket thread.
func (s *TicketService) AddMessage(ctx context.Context, access domain.AccessContext, ticketID, body string) (*domain.TicketMessage, error) {
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	ticket, err := s.GetTicket(ctx, access, ticketID)
	if err != nil {
		return nil, err
	}
	authorID := access.UserID
	input := MessageInput{
		AuthorID: &authorID,
		Source:   domain.SourceHuman,
		Body:     body,
	}
	switch access.Role {
	case domain.RoleAgent, domain.RolePlatformOperator:
		input.AuthorType = domain.AuthorTypeAgent
	default:
		input.AuthorType = domain.AuthorTypeEndUser
	}
	return s.AppendMessage(ctx, ticket, input)
}

// AppendMessage persists a thread message and applies the implicit status
// transitions driven by message authorship: an agent reply while IN_PROGRESS
// moves the ticket to WAITING_CUSTOMER, and an end-user reply while
// WAITING_CUSTOMER moves it back to IN_PROGRESS. Both run through the guarded
// transition function.
func (s *TicketService) AppendMessage(ctx context.Context, ticket *domain.Ticket, input MessageInput) (*domain.TicketMessage, error) {
	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		AuthorType: input.AuthorType,
		AuthorID:   input.AuthorID,
		Source:     input.Source,
		Body:       strings.TrimSpace(input.Body),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	if next, ok := implicitTransition(ticket.Status, input.AuthorType); ok {
		oldStatus := ticket.Status
		if err := ticket.TransitionTo(next, time.Now()); err == nil {
			if err := s.tickets.Update(ctx, ticket); err != nil {
				return nil, err
			}
			s.publishEvent(ctx, events.Event{
				Type:       events.EventTicketStatusChanged,
				TicketID:   ticket.ID,
				CustomerID: ticket.CustomerID,
				Actor:      events.Actor{Type: input.AuthorType, UserID: input.AuthorID},
				Payload: events.TicketStatusChangedPayload{
					OldStatus: oldStatus,
					NewStatus: ticket.Status,
					Comment:   "implicit transition on message",
				},
			})
		}
	}

	s.audit.Create(ctx, &domain.AuditRecord{ //nolint:errcheck
		CustomerID: ticket.CustomerID,
		ActorType:  input.AuthorType,
		ActorID:    input.AuthorID,
		Action:     "message_added",
		EntityKind: "ticket",
		EntityID:   ticket.ID,
		Payload: map[string]any{
			"message_id": msg.ID,
			"source":     msg.Source,
			"preview":    stringPreview(msg.Body, 120),
		},
	})
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTicketMessageAdded,
		TicketID:   ticket.ID,
		CustomerID: ticket.CustomerID,
		Actor:      events.Actor{Type: input.AuthorType, UserID: input.AuthorID},
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			AuthorType:  msg.AuthorType,
			Source:      msg.Source,
			BodyPreview: stringPreview(msg.Body, 120),
		},
	})
	return msg, nil
}

// ChangeStatus moves a ticket along the transition table on behalf of an
// operator.
func (s *TicketService) ChangeStatus(ctx context.Context, access domain.AccessContext, ticketID string, next domain.TicketStatus, comment string) (*domain.Ticket, error) {
	ticket, err := s.GetTicket(ctx, access, ticketID)
	if err != nil {
		return nil, err
	}
	if !access.CanManage(ticket.CustomerID) {
		return nil, apperrors.NewForbidden("manage capability required")
	}
	oldStatus := ticket.Status
	if err := ticket.TransitionTo(next, time.Now()); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{
			"from": oldStatus,
			"to":   next,
		})
	}
	if oldStatus == ticket.Status {
		return ticket, nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, access, "status_changed", "ticket", ticket.ID, map[string]any{
		"old_status": oldStatus,
		"new_status": ticket.Status,
		"comment":    comment,
	})
	s.publishEvent(ctx, events.Event{
		Type:       events.EventTicketStatusChanged,
		TicketID:   ticket.ID,
		CustomerID: ticket.CustomerID,
		Actor:      actorFor(access),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			Comment:   comment,
		},
	})
	return ticket, nil
}

// implicitTransition returns the status edge triggered by a message author.
func implicitTransition(status domain.TicketStatus, author domain.MessageAuthorType) (domain.TicketStatus, bool) {
	switch {
	case author == domain.AuthorTypeAgent && status == domain.TicketStatusInProgress:
		return domain.TicketStatusWaitingCustomer, true
	case author == domain.AuthorTypeEndUser && status == domain.TicketStatusWaitingCustomer:
		return domain.TicketStatusInProgress, true
	default:
		return "", false
	}
}

func (s *TicketService) writeAudit(ctx context.Context, access domain.AccessContext, action, entityKind, entityID string, payload map[string]any) {
	actorID := access.UserID
	record := &domain.AuditRecord{
		CustomerID: access.CustomerID,
		ActorType:  actorTypeFor(access.Role),
		ActorID:    &actorID,
		Action:     action,
		EntityKind: entityKind,
		EntityID:   entityID,
		Payload:    payload,
	}
	_ = s.audit.Create(ctx, record)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorTypeFor(role domain.Role) domain.MessageAuthorType {
	switch role {
	case domain.RoleAgent, domain.RolePlatformOperator:
		return domain.AuthorTypeAgent
	default:
		return domain.AuthorTypeEndUser
	}
}

func actorFor(access domain.AccessContext) events.Actor {
	userID := access.UserID
	return events.Actor{Type: actorTypeFor(access.Role), UserID: &userID}
}

func generateReferenceCode() string {
	return "TKT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
