package delivery

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/domain"
)

// Transport sends one outbound message to its recipient. A returned error is a
// transient delivery failure: the caller retries within its budget.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg *domain.OutboundMessage) error
}

// LogTransport is the development default: it logs the message and succeeds.
type LogTransport struct {
	logger    *zap.Logger
	emailFrom string
}

// NewLogTransport builds the stub transport.
func NewLogTransport(logger *zap.Logger, emailFrom string) *LogTransport {
	return &LogTransport{logger: logger, emailFrom: emailFrom}
}

func (t *LogTransport) Name() string { return "log" }

func (t *LogTransport) Send(_ context.Context, msg *domain.OutboundMessage) error {
	t.logger.Info("outbound message delivered (stub)",
		zap.String("message_id", msg.ID),
		zap.String("from", t.emailFrom),
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject),
		zap.String("correlation_key", msg.CorrelationKey))
	return nil
}
