package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
)

const outboundRoutingKey = "notification.outbound"

// AMQPTransport publishes outbound messages to a durable topic exchange for a
// downstream mailer to consume.
type AMQPTransport struct {
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger
}

// NewAMQPTransport dials the broker and declares the exchange.
func NewAMQPTransport(url, exchange string, logger *zap.Logger) (*AMQPTransport, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	return &AMQPTransport{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
	}, nil
}

func (t *AMQPTransport) Name() string { return "amqp" }

type outboundPayload struct {
	ID             string    `json:"id"`
	TicketID       *string   `json:"ticket_id,omitempty"`
	CustomerID     string    `json:"customer_id"`
	Recipient      string    `json:"recipient"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	CorrelationKey string    `json:"correlation_key"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// Send publishes on a confirmed channel and waits for the broker ack, so
// publish failures surface as errors to the retry loop.
func (t *AMQPTransport) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	ch, err := t.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()
	if err := ch.Confirm(false); err != nil {
		return err
	}
	confirms := ch.NotifyPublish(make(chan amqp091.Confirmation, 1))

	body, err := json.Marshal(outboundPayload{
		ID:             msg.ID,
		TicketID:       msg.TicketID,
		CustomerID:     msg.CustomerID,
		Recipient:      msg.Recipient,
		Subject:        msg.Subject,
		Body:           msg.Body,
		CorrelationKey: msg.CorrelationKey,
		EnqueuedAt:     msg.CreatedAt,
	})
	if err != nil {
		return err
	}

	if err := ch.PublishWithContext(
		ctx, t.exchange, outboundRoutingKey, false, false,
		amqp091.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp091.Persistent,
			MessageId:     msg.ID,
			CorrelationId: msg.CorrelationKey,
			Timestamp:     time.Now(),
			Body:          body,
		},
	); err != nil {
		return err
	}

	select {
	case confirmation, ok := <-confirms:
		if !ok {
			return errors.New("amqp channel closed before confirmation")
		}
		if !confirmation.Ack {
			return errors.New("amqp broker rejected publish")
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	t.logger.Debug("published outbound message",
		zap.String("message_id", msg.ID),
		zap.String("routing_key", outboundRoutingKey))
	return nil
}

// Close releases the broker connection.
func (t *AMQPTransport) Close() error {
	return t.conn.Close()
}
