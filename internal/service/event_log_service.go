package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/events"
)

// EventLogService subscribes to domain events and writes a structured activity
// log, giving operators a single stream across triage and delivery.
type EventLogService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewEventLogService creates the service.
func NewEventLogService(dispatcher events.Dispatcher, logger *zap.Logger) *EventLogService {
	return &EventLogService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (s *EventLogService) RegisterHandlers() {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Subscribe(events.EventTicketCreated, s.handle)
	s.dispatcher.Subscribe(events.EventTicketStatusChanged, s.handle)
	s.dispatcher.Subscribe(events.EventTicketMessageAdded, s.handle)
	s.dispatcher.Subscribe(events.EventSuggestionCreated, s.handle)
	s.dispatcher.Subscribe(events.EventSuggestionResolved, s.handle)
	s.dispatcher.Subscribe(events.EventAutoResponseSent, s.handle)
	s.dispatcher.Subscribe(events.EventMessageDeadLettered, s.handle)
	s.dispatcher.Subscribe(events.EventDeadLettersRequeued, s.handle)
}

func (s *EventLogService) handle(_ context.Context, event events.Event) error {
	s.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("customer_id", event.CustomerID),
		zap.Any("payload", event.Payload))
	return nil
}
