package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/delivery"
	"github.com/spec-kit/triage-service/internal/domain"
	"github.com/spec-kit/triage-service/internal/events"
	"github.com/spec-kit/triage-service/internal/observability"
	"github.com/spec-kit/triage-service/internal/repository"
	apperrors "github.com/spec-kit/triage-service/pkg/util"
)

const (
	deadLetterTakeMin      = 1
	deadLetterTakeMax      = 500
	deadLetterPageDefault  = 50
	customerListLimit      = 200
	exceededRetryLimitNote = "exceeded retry limit"
)

// NotificationService owns the outbound queue: idempotent enqueue, retrying
// dispatch with dead-lettering, and dead-letter recovery.
type NotificationService struct {
	outbound   repository.OutboundMessageRepository
	audit      repository.AuditRepository
	transport  delivery.Transport
	lease      delivery.Lease
	metrics    observability.DeliverySink
	dispatcher events.Dispatcher
	logger     *zap.Logger

	maxRetryCount int
	// asyncDispatch controls whether Enqueue triggers an immediate background
	// pass alongside the interval worker. Disabled in tests.
	asyncDispatch bool
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	OutboundRepo  repository.OutboundMessageRepository
	AuditRepo     repository.AuditRepository
	Transport     delivery.Transport
	Lease         delivery.Lease
	Metrics       observability.DeliverySink
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	MaxRetryCount int
	AsyncDispatch bool
}

// EnqueueInput describes an outbound message to queue.
type EnqueueInput struct {
	CustomerID     string
	TicketID       *string
	Recipient      string
	Subject        string
	Body           string
	CorrelationKey string
}

// NotificationFilter narrows customer listings.
type NotificationFilter struct {
	Status *domain.OutboundStatus
	Limit  int
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	maxRetry := deps.MaxRetryCount
	if maxRetry <= 0 {
		maxRetry = 3
	}
	return &NotificationService{
		outbound:      deps.OutboundRepo,
		audit:         deps.AuditRepo,
		transport:     deps.Transport,
		lease:         deps.Lease,
		metrics:       deps.Metrics,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
		maxRetryCount: maxRetry,
		asyncDispatch: deps.AsyncDispatch,
	}
}

// Enqueue inserts a pending message unless a message with the same correlation
// key has already been sent, then triggers a dispatch pass. The correlation
// key makes repeated enqueues for one logical event a no-op once delivered.
func (s *NotificationService) Enqueue(ctx context.Context, input EnqueueInput) (*domain.OutboundMessage, error) {
	if strings.TrimSpace(input.Recipient) == "" {
		return nil, apperrors.NewValidationError("recipient required", nil)
	}
	if strings.TrimSpace(input.CorrelationKey) == "" {
		return nil, apperrors.NewValidationError("correlation key required", nil)
	}

	existing, err := s.outbound.FindByCorrelationKey(ctx, input.CorrelationKey)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil && existing.Status == domain.OutboundStatusSent {
		s.logger.Debug("duplicate enqueue suppressed",
			zap.String("correlation_key", input.CorrelationKey),
			zap.String("message_id", existing.ID))
		return existing, nil
	}

	msg := &domain.OutboundMessage{
		TicketID:       input.TicketID,
		CustomerID:     input.CustomerID,
		Recipient:      input.Recipient,
		Subject:        input.Subject,
		Body:           input.Body,
		CorrelationKey: input.CorrelationKey,
		Status:         domain.OutboundStatusPending,
	}
	if err := s.outbound.Create(ctx, msg); err != nil {
		return nil, err
	}
	s.writeAudit(ctx, msg, "notification_enqueued", map[string]any{
		"recipient":       msg.Recipient,
		"correlation_key": msg.CorrelationKey,
	})

	if s.asyncDispatch {
		go func() {
			if err := s.DispatchPending(context.Background()); err != nil {
				s.logger.Warn("enqueue-triggered dispatch failed", zap.Error(err))
			}
		}()
	}
	return msg, nil
}

// DispatchPending drains the queue: every PENDING and FAILED message is
// attempted up to its remaining retry budget within this single pass, then
// either SENT or DEAD_LETTER. Cancellation between attempts leaves a message
// FAILED for the next pass.
func (s *NotificationService) DispatchPending(ctx context.Context) error {
	msgs, err := s.outbound.ListDispatchable(ctx)
	if err != nil {
		return err
	}
	s.metrics.SetQueueDepth(len(msgs))
	if len(msgs) > 0 {
		s.logger.Info("dispatch pass started", zap.Int("queue_depth", len(msgs)))
	}

	for i := range msgs {
		if ctx.Err() != nil {
			break
		}
		msg := &msgs[i]
		if !s.claim(ctx, msg.ID) {
			continue
		}
		s.dispatchOne(ctx, msg)
		s.release(ctx, msg.ID)
	}

	depth, err := s.outbound.CountDispatchable(ctx)
	if err != nil {
		return err
	}
	s.metrics.SetQueueDepth(depth)
	return nil
}

func (s *NotificationService) dispatchOne(ctx context.Context, msg *domain.OutboundMessage) {
	remaining := s.maxRetryCount - msg.AttemptCount
	if remaining <= 0 {
		s.deadLetter(ctx, msg, exceededRetryLimitNote)
		return
	}

	var lastErr string
	for attempt := 0; attempt < remaining; attempt++ {
		if ctx.Err() != nil {
			return
		}
		msg.AttemptCount++
		err := s.transport.Send(ctx, msg)
		s.writeAudit(ctx, msg, "delivery_attempted", map[string]any{
			"attempt": msg.AttemptCount,
			"success": err == nil,
		})
		if err == nil {
			msg.MarkSent(time.Now())
			if updateErr := s.outbound.Update(ctx, msg); updateErr != nil {
				s.logger.Error("failed to persist sent message", zap.Error(updateErr), zap.String("message_id", msg.ID))
				return
			}
			s.metrics.RecordSent()
			s.writeAudit(ctx, msg, "notification_sent", map[string]any{
				"attempt_count": msg.AttemptCount,
			})
			return
		}

		lastErr = err.Error()
		msg.MarkFailed(lastErr)
		if updateErr := s.outbound.Update(ctx, msg); updateErr != nil {
			s.logger.Error("failed to persist delivery failure", zap.Error(updateErr), zap.String("message_id", msg.ID))
			return
		}
		s.metrics.RecordFailure()
		s.logger.Warn("delivery attempt failed",
			zap.String("message_id", msg.ID),
			zap.Int("attempt", msg.AttemptCount),
			zap.String("error", lastErr))
	}

	s.deadLetter(ctx, msg, lastErr)
}

func (s *NotificationService) deadLetter(ctx context.Context, msg *domain.OutboundMessage, reason string) {
	msg.MarkDeadLetter(reason, time.Now())
	if err := s.outbound.Update(ctx, msg); err != nil {
		s.logger.Error("failed to persist dead-letter", zap.Error(err), zap.String("message_id", msg.ID))
		return
	}
	s.metrics.RecordDeadLetter()
	s.writeAudit(ctx, msg, "notification_dead_lettered", map[string]any{
		"attempt_count": msg.AttemptCount,
		"last_error":    reason,
	})
	if s.dispatcher != nil {
		ticketID := ""
		if msg.TicketID != nil {
			ticketID = *msg.TicketID
		}
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:         uuid.NewString(),
			Type:       events.EventMessageDeadLettered,
			TicketID:   ticketID,
			CustomerID: msg.CustomerID,
			Actor:      events.Actor{Type: domain.AuthorTypeSystem},
			Timestamp:  time.Now(),
			Payload: events.MessageDeadLetteredPayload{
				MessageID:    msg.ID,
				AttemptCount: msg.AttemptCount,
				LastError:    reason,
			},
		})
	}
}

// RetryDeadLetters revives up to take dead-lettered messages oldest-first,
// resetting their retry budget, then triggers a dispatch pass. Returns the
// number revived.
func (s *NotificationService) RetryDeadLetters(ctx context.Context, take int) (int, error) {
	if take < deadLetterTakeMin {
		take = deadLetterTakeMin
	}
	if take > deadLetterTakeMax {
		take = deadLetterTakeMax
	}

	msgs, err := s.outbound.ListDeadLetters(ctx, take)
	if err != nil {
		return 0, err
	}

	revived := 0
	for i := range msgs {
		msg := &msgs[i]
		if err := msg.RetryFromDeadLetter(); err != nil {
			continue
		}
		if err := s.outbound.Update(ctx, msg); err != nil {
			return revived, err
		}
		revived++
		s.writeAudit(ctx, msg, "dead_letter_requeued", map[string]any{
			"correlation_key": msg.CorrelationKey,
		})
	}

	if s.dispatcher != nil && revived > 0 {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventDeadLettersRequeued,
			Actor:     events.Actor{Type: domain.AuthorTypeSystem},
			Timestamp: time.Now(),
			Payload:   events.DeadLettersRequeuedPayload{Count: revived},
		})
	}

	if revived > 0 {
		if s.asyncDispatch {
			go func() {
				if err := s.DispatchPending(context.Background()); err != nil {
					s.logger.Warn("retry-triggered dispatch failed", zap.Error(err))
				}
			}()
		}
	}
	return revived, nil
}

// RequeueDeadLetter revives a single message. Only valid from DEAD_LETTER.
func (s *NotificationService) RequeueDeadLetter(ctx context.Context, id string) error {
	msg, err := s.outbound.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("outbound message", map[string]any{"message_id": id})
		}
		return err
	}
	if err := msg.RetryFromDeadLetter(); err != nil {
		return apperrors.NewValidationError(err.Error(), map[string]any{"status": msg.Status})
	}
	if err := s.outbound.Update(ctx, msg); err != nil {
		return err
	}
	s.writeAudit(ctx, msg, "dead_letter_requeued", map[string]any{
		"correlation_key": msg.CorrelationKey,
	})
	return nil
}

// ListByCustomer returns the most recent outbound messages for a tenant,
// capped at 200.
func (s *NotificationService) ListByCustomer(ctx context.Context, access domain.AccessContext, customerID string, filter NotificationFilter) ([]domain.OutboundMessage, error) {
	if !access.CanView(customerID) {
		return nil, apperrors.NewForbidden("notifications belong to another customer")
	}
	limit := filter.Limit
	if limit <= 0 || limit > customerListLimit {
		limit = customerListLimit
	}
	return s.outbound.ListByCustomer(ctx, customerID, repository.OutboundMessageFilter{
		Status: filter.Status,
		Limit:  limit,
	})
}

// ListDeadLetters returns recent dead-lettered messages for the operations
// view. Page size defaults to 50 and is clamped to [1,500].
func (s *NotificationService) ListDeadLetters(ctx context.Context, pageSize int) ([]domain.OutboundMessage, error) {
	if pageSize <= 0 {
		pageSize = deadLetterPageDefault
	}
	if pageSize > deadLetterTakeMax {
		pageSize = deadLetterTakeMax
	}
	return s.outbound.ListDeadLetters(ctx, pageSize)
}

// MetricsSnapshot returns current delivery counters.
func (s *NotificationService) MetricsSnapshot() observability.DeliverySnapshot {
	return s.metrics.Snapshot()
}

func (s *NotificationService) claim(ctx context.Context, messageID string) bool {
	if s.lease == nil {
		return true
	}
	ok, err := s.lease.Acquire(ctx, messageID)
	if err != nil {
		s.logger.Warn("lease acquire failed, skipping message", zap.Error(err), zap.String("message_id", messageID))
		return false
	}
	return ok
}

func (s *NotificationService) release(ctx context.Context, messageID string) {
	if s.lease == nil {
		return
	}
	if err := s.lease.Release(ctx, messageID); err != nil {
		s.logger.Warn("lease release failed", zap.Error(err), zap.String("message_id", messageID))
	}
}

func (s *NotificationService) writeAudit(ctx context.Context, msg *domain.OutboundMessage, action string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["status"] = msg.Status
	_ = s.audit.Create(ctx, &domain.AuditRecord{
		CustomerID: msg.CustomerID,
		ActorType:  domain.AuthorTypeSystem,
		Action:     action,
		EntityKind: "outbound_message",
		EntityID:   msg.ID,
		Payload:    payload,
	})
}
